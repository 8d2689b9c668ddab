// Command dishola-cli runs dish searches against a Dishola API and renders
// the stream as it arrives.
//
// One-shot:
//
//	dishola-cli -q ramen -lat 37.7749 -long -122.4194
//
// Interactive, one query per line; a new line supersedes the running search:
//
//	dishola-cli -i -lat 37.7749 -long -122.4194
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	dishola "github.com/dishola/dishola/pkg/sdk"
)

type options struct {
	api         string
	query       string
	tastes      string
	lat         string
	long        string
	sort        string
	timeout     time.Duration
	debounce    time.Duration
	interactive bool
	usage       string
	health      bool
	verbose     bool
}

func main() {
	_ = godotenv.Load()

	var o options
	flag.StringVar(&o.api, "api", envOr("DISHOLA_API_URL", "http://localhost:8080"), "API base URL")
	flag.StringVar(&o.query, "q", "", "dish query, e.g. \"spicy ramen\"")
	flag.StringVar(&o.tastes, "tastes", "", "comma-separated tastes, used when -q is empty")
	flag.StringVar(&o.lat, "lat", os.Getenv("DISHOLA_LAT"), "latitude")
	flag.StringVar(&o.long, "long", os.Getenv("DISHOLA_LONG"), "longitude")
	flag.StringVar(&o.sort, "sort", string(dishola.SortDistance), "distance or rating")
	flag.DurationVar(&o.timeout, "timeout", dishola.DefaultTimeout, "per-search ceiling")
	flag.DurationVar(&o.debounce, "debounce", dishola.DefaultDebounce, "quiet period before an interactive search fires")
	flag.BoolVar(&o.interactive, "i", false, "read queries from stdin, one per line")
	flag.StringVar(&o.usage, "usage", "", "print the LLM usage report for day, month or total and exit")
	flag.BoolVar(&o.health, "health", false, "print service health and exit")
	flag.BoolVar(&o.verbose, "v", false, "log SDK operations to stderr")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("dishola-cli: "+err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, in io.Reader, out io.Writer) error {
	opts := []dishola.Option{dishola.WithBaseURL(o.api), dishola.WithTimeout(o.timeout)}
	if o.verbose {
		opts = append(opts, dishola.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))))
	}
	client, err := dishola.New(opts...)
	if err != nil {
		return err
	}

	switch {
	case o.health:
		h, err := client.Health(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, renderHealth(h))
		return nil
	case o.usage != "":
		r, err := client.Usage(ctx, dishola.UsagePeriod(o.usage))
		if err != nil {
			return err
		}
		fmt.Fprintln(out, renderUsage(r))
		return nil
	case o.interactive:
		return interactive(ctx, client, o, in, out)
	}

	_, err = search(ctx, client.Search, o.params(o.query), out)
	return err
}

func (o options) params(query string) dishola.Params {
	p := dishola.Params{
		Query: strings.TrimSpace(query),
		Lat:   o.lat,
		Long:  o.long,
		Sort:  dishola.Sort(o.sort),
	}
	if o.tastes != "" {
		for _, t := range strings.Split(o.tastes, ",") {
			if t = strings.TrimSpace(t); t != "" {
				p.Tastes = append(p.Tastes, t)
			}
		}
	}
	return p
}

type searchFunc func(ctx context.Context, p dishola.Params, fn dishola.Handler) (dishola.Snapshot, error)

// search streams one search, tracing events to out and drawing the final list.
func search(ctx context.Context, do searchFunc, p dishola.Params, out io.Writer) (dishola.Snapshot, error) {
	snap, err := do(ctx, p, func(ev dishola.Event, s dishola.Snapshot) {
		if line := renderEvent(ev, s); line != "" {
			fmt.Fprintln(out, line)
		}
	})
	switch {
	case snap.State == dishola.StateCancelled:
		return snap, nil
	case errors.Is(err, dishola.ErrTimeout):
		return snap, errors.New("the search took too long, try again")
	case dishola.IsRateLimited(err):
		fmt.Fprintln(out, warnStyle.Render("Too many searches right now, wait a moment and retry."))
		return snap, nil
	case err != nil && len(snap.Dishes()) == 0:
		return snap, err
	}
	fmt.Fprintln(out, renderSnapshot(snap))
	return snap, err
}

// interactive treats every stdin line as a fresh query. Lines arriving within
// the debounce window collapse into the last one; a search still running
// when the next fires is cancelled.
func interactive(ctx context.Context, client *dishola.Client, o options, in io.Reader, out io.Writer) error {
	sess := client.NewSession()
	deb := dishola.NewDebouncer(o.debounce)
	w := &lockedWriter{w: out}

	// One wg slot per scheduled query, released when it runs or is dropped.
	var wg sync.WaitGroup
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		p := o.params(line)
		wg.Add(1)
		if deb.Trigger(func() {
			defer wg.Done()
			if _, err := search(ctx, sess.Search, p, w); err != nil {
				fmt.Fprintln(w, errorStyle.Render(err.Error()))
			}
		}) {
			wg.Done()
		}
	}
	if ctx.Err() != nil && deb.Stop() {
		wg.Done()
	}
	wg.Wait()
	return sc.Err()
}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
