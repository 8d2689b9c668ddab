package dishola

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Handler observes a search. It runs on the reading goroutine after each
// event has been folded into the snapshot, so it must not block for long.
type Handler func(ev Event, snap Snapshot)

// Client is the Dishola SDK entry point. It is safe for concurrent use.
type Client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	obs     *observer
}

// New creates a Client.
func New(opts ...Option) (*Client, error) {
	cfg := &clientConfig{timeout: DefaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}
	if cfg.baseURL == "" {
		return nil, errors.New("dishola: base URL is required, use WithBaseURL")
	}
	if _, err := url.Parse(cfg.baseURL); err != nil {
		return nil, fmt.Errorf("dishola: invalid base URL: %w", err)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{}
	}
	if cfg.timeout <= 0 {
		cfg.timeout = DefaultTimeout
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL: cfg.baseURL,
		http:    cfg.httpClient,
		timeout: cfg.timeout,
		obs:     obs,
	}, nil
}

// Search runs one search and blocks until the stream ends.
// The returned snapshot is always usable, even alongside an error:
//   - an in-band error event yields StateError and a *StreamError
//   - a cancelled ctx yields StateCancelled and ctx.Err()
//   - the client ceiling yields StateError and ErrTimeout
func (c *Client) Search(ctx context.Context, p Params, fn Handler) (snap Snapshot, err error) {
	start := time.Now()
	defer func() { c.obs.search(snap, start, err) }()

	t := newTracker()
	_ = t.begin()

	ctx, cancel := context.WithTimeoutCause(ctx, c.timeout, ErrTimeout)
	defer cancel()

	err = c.stream(ctx, p, t, fn)
	switch {
	case err == nil:
	case errors.Is(context.Cause(ctx), ErrTimeout):
		err = ErrTimeout
		t.fail(err)
	case ctx.Err() != nil:
		err = ctx.Err()
		t.cancel()
	default:
		t.fail(err)
	}

	snap = t.snapshot()
	if err == nil && snap.Err != nil {
		err = snap.Err
	}
	return snap, err
}

func (c *Client) stream(ctx context.Context, p Params, t *tracker, fn Handler) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/search?"+searchQuery(p).Encode(), nil)
	if err != nil {
		return fmt.Errorf("dishola: build request: %w", err)
	}
	req.Header.Set("Accept", "application/x-ndjson")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("dishola: search request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}

	err = readStream(resp.Body, func(ev Event) error {
		if err := t.apply(ev); err != nil {
			return err
		}
		if fn != nil {
			fn(ev, t.snapshot())
		}
		return nil
	}, func(line []byte, err error) {
		if c.obs != nil && c.obs.logger != nil {
			c.obs.logger.Debug("skipping malformed stream line", "error", err, "bytes", len(line))
		}
	})
	if err != nil {
		return fmt.Errorf("dishola: read stream: %w", err)
	}
	if !t.snap.State.Terminal() {
		return ErrIncompleteStream
	}
	return nil
}

func searchQuery(p Params) url.Values {
	q := url.Values{}
	if p.Query != "" {
		q.Set("q", p.Query)
	}
	if len(p.Tastes) > 0 {
		q.Set("tastes", strings.Join(p.Tastes, ","))
	}
	q.Set("lat", p.Lat)
	q.Set("long", p.Long)
	if p.Sort != "" {
		q.Set("sort", string(p.Sort))
	}
	return q
}

// ClearCache drops every cached search result and returns how many were removed.
func (c *Client) ClearCache(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { c.obs.call("clear_cache", start, err) }()

	var out struct {
		Cleared int `json:"cleared"`
	}
	if err := c.doJSON(ctx, http.MethodDelete, "/api/search/cache", nil, &out, http.StatusOK); err != nil {
		return 0, err
	}
	return out.Cleared, nil
}

// Usage returns the LLM token usage report for the given period.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) (report UsageReport, err error) {
	start := time.Now()
	defer func() { c.obs.call("usage", start, err) }()

	q := url.Values{}
	if period != "" {
		q.Set("period", string(period))
	}
	err = c.doJSON(ctx, http.MethodGet, "/api/usage", q, &report, http.StatusOK)
	return report, err
}

// Locate returns a place label for the coordinates.
func (c *Client) Locate(ctx context.Context, lat, long float64) (loc Location, err error) {
	start := time.Now()
	defer func() { c.obs.call("locate", start, err) }()

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("long", strconv.FormatFloat(long, 'f', -1, 64))
	err = c.doJSON(ctx, http.MethodGet, "/api/locate", q, &loc, http.StatusOK)
	return loc, err
}

// Health checks the health of all system components. A degraded service
// answers 503 with a body, which is returned without an error.
func (c *Client) Health(ctx context.Context) (h HealthStatus, err error) {
	start := time.Now()
	defer func() { c.obs.call("health", start, err) }()

	err = c.doJSON(ctx, http.MethodGet, "/health", nil, &h, http.StatusOK, http.StatusServiceUnavailable)
	return h, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, q url.Values, out any, okStatus ...int) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("dishola: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("dishola: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if !slices.Contains(okStatus, resp.StatusCode) {
		return decodeAPIError(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("dishola: decode %s response: %w", path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var e struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &e) == nil {
		apiErr.Code = e.Code
		apiErr.Message = e.Message
	} else {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
