package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func apiRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/api/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("{}\n"))
	})
	r.Delete("/api/search/cache", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"cleared":0}`))
	})
	r.Get("/api/locate", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	return r
}

func TestMiddleware_CountsByRouteAndStatus(t *testing.T) {
	h := apiRouter()
	tests := []struct {
		method, target, path, status string
	}{
		{"GET", "/api/search?q=ramen", "/api/search", "200"},
		{"GET", "/api/search", "/api/search", "400"},
		{"DELETE", "/api/search/cache", "/api/search/cache", "200"},
		{"GET", "/api/locate?lat=0&long=0", "/api/locate", "404"},
		{"GET", "/health", "/health", "503"},
	}
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.target, func(t *testing.T) {
			counter := httpRequestsTotal.WithLabelValues(tc.method, tc.path, tc.status)
			before := testutil.ToFloat64(counter)

			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(tc.method, tc.target, http.NoBody))

			if got := testutil.ToFloat64(counter) - before; got != 1 {
				t.Errorf("requests_total delta = %v, want 1", got)
			}
		})
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected duration observations")
	}
}

func TestMiddleware_UnmatchedRoute(t *testing.T) {
	if got := normalizePath(""); got != "unknown" {
		t.Errorf("normalizePath(\"\") = %q", got)
	}
	if got := normalizePath("/api/search"); got != "/api/search" {
		t.Errorf("normalizePath kept = %q", got)
	}
}

func TestMiddleware_ClientClosedAndBytes(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())

	line := `{"type":"metadata","data":{}}` + "\n"
	r.Get("/api/search", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(line))
	})

	bytesBefore := testutil.ToFloat64(httpResponseBytes.WithLabelValues("/api/search"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest("GET", "/api/search", http.NoBody).WithContext(ctx)
	r.ServeHTTP(httptest.NewRecorder(), req)

	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/api/search", StatusClientClosed)); got < 1 {
		t.Errorf("client-closed requests = %f, want >= 1", got)
	}
	if got := testutil.ToFloat64(httpResponseBytes.WithLabelValues("/api/search")) - bytesBefore; got != float64(len(line)) {
		t.Errorf("response bytes = %f, want %d", got, len(line))
	}
	if got := testutil.ToFloat64(httpInFlight); got != 0 {
		t.Errorf("in flight after return = %f, want 0", got)
	}
}

func TestMiddleware_PreservesFlusher(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())

	var canFlush bool
	r.Get("/stream", func(w http.ResponseWriter, r *http.Request) {
		f, ok := w.(http.Flusher)
		canFlush = ok
		_, _ = w.Write([]byte("line\n"))
		if ok {
			f.Flush()
		}
	})

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest("GET", "/stream", http.NoBody))

	if !canFlush {
		t.Fatal("handler should see an http.Flusher")
	}
	if !rr.Flushed {
		t.Error("expected recorder to be flushed")
	}
}

type plainWriter struct {
	header http.Header
	status int
}

func (p *plainWriter) Header() http.Header         { return p.header }
func (p *plainWriter) Write(b []byte) (int, error) { return len(b), nil }
func (p *plainWriter) WriteHeader(status int)      { p.status = status }

func TestMiddleware_NoFlusherStaysHidden(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())

	var canFlush bool
	r.Get("/stream", func(w http.ResponseWriter, r *http.Request) {
		_, canFlush = w.(http.Flusher)
	})

	r.ServeHTTP(&plainWriter{header: http.Header{}}, httptest.NewRequest("GET", "/stream", http.NoBody))

	if canFlush {
		t.Fatal("writer without Flush must not appear flushable")
	}
}
