package chi

import (
	"bufio"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/dishola/dishola/internal/domain"
	"github.com/dishola/dishola/internal/domain/search/event"
	searchuc "github.com/dishola/dishola/internal/usecase/search"
)

type line struct {
	Type event.Type      `json:"type"`
	Data json.RawMessage `json:"data"`
}

func readLines(t *testing.T, body string) []line {
	t.Helper()
	var out []line
	sc := bufio.NewScanner(strings.NewReader(body))
	for sc.Scan() {
		if sc.Text() == "" {
			continue
		}
		var l line
		if err := json.Unmarshal(sc.Bytes(), &l); err != nil {
			t.Fatalf("line %q is not JSON: %v", sc.Text(), err)
		}
		out = append(out, l)
	}
	return out
}

func typesOf(lines []line) []event.Type {
	out := make([]event.Type, len(lines))
	for i, l := range lines {
		out[i] = l.Type
	}
	return out
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("body is not an ErrorResponse: %v (%s)", err, w.Body.String())
	}
	return resp
}

func TestSearchDishes_HealthyStream(t *testing.T) {
	f := newFixture()
	w := f.do(t, http.MethodGet, "/api/search?q=ramen&lat=37.7749&long=-122.4194&sort=distance")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != ContentTypeNDJSON {
		t.Errorf("Content-Type = %q", ct)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID")
	}
	if !w.Flushed {
		t.Error("stream was never flushed")
	}

	lines := readLines(t, w.Body.String())
	types := typesOf(lines)
	if len(types) < 4 {
		t.Fatalf("too few events: %v", types)
	}
	if types[0] != event.Metadata {
		t.Errorf("first event = %s", types[0])
	}
	if types[len(types)-1] != event.Complete {
		t.Errorf("last event = %s", types[len(types)-1])
	}
	var sawDB, sawAI bool
	for _, typ := range types {
		sawDB = sawDB || typ == event.DBResults
		sawAI = sawAI || typ == event.AIResults
	}
	if !sawDB || !sawAI {
		t.Errorf("missing result events: %v", types)
	}

	var meta event.MetadataData
	if err := json.Unmarshal(lines[0].Data, &meta); err != nil {
		t.Fatalf("metadata: %v", err)
	}
	if meta.Lat != "37.7749" || meta.Location != "San Francisco, CA" {
		t.Errorf("metadata = %+v", meta)
	}
}

func TestSearchDishes_AIFailureStillCompletes(t *testing.T) {
	f := newFixture()
	f.ai.fail = true
	w := f.do(t, http.MethodGet, "/api/search?q=ramen&lat=37.7749&long=-122.4194")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	lines := readLines(t, w.Body.String())
	types := typesOf(lines)

	var aiErr *line
	for i := range lines {
		if lines[i].Type == event.AIError {
			aiErr = &lines[i]
		}
		if lines[i].Type == event.Error {
			t.Errorf("unexpected fatal error event in %v", types)
		}
	}
	if aiErr == nil {
		t.Fatalf("no aiError in %v", types)
	}
	var data event.AIErrorData
	if err := json.Unmarshal(aiErr.Data, &data); err != nil {
		t.Fatal(err)
	}
	if !data.RateLimited || len(data.Placeholder) != 1 {
		t.Errorf("aiError = %+v", data)
	}
	if types[len(types)-1] != event.Complete {
		t.Errorf("last event = %s", types[len(types)-1])
	}
}

func TestSearchDishes_ValidationIsPlainJSON(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"no query or tastes", "/api/search?lat=37.7&long=-122.4"},
		{"missing lat", "/api/search?q=pho&long=-122.4"},
		{"bad coordinates", "/api/search?q=pho&lat=north&long=-122.4"},
		{"out of range", "/api/search?q=pho&lat=95&long=-122.4"},
		{"bad sort", "/api/search?q=pho&lat=37.7&long=-122.4&sort=price"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			w := f.do(t, http.MethodGet, tc.target)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			resp := decodeError(t, w)
			if resp.Code != ErrorResponseCodeValidationFailed {
				t.Errorf("code = %q", resp.Code)
			}
			if f.db.calls != 0 {
				t.Error("pipeline ran for an invalid request")
			}
		})
	}
}

func TestSearchDishes_TastesAcceptCommaAndRepeat(t *testing.T) {
	f := newFixture()
	w := f.do(t, http.MethodGet, "/api/search?tastes=spicy,umami&tastes=crispy&lat=37.7749&long=-122.4194")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	lines := readLines(t, w.Body.String())
	var meta event.MetadataData
	if err := json.Unmarshal(lines[0].Data, &meta); err != nil {
		t.Fatal(err)
	}
	if strings.Join(meta.Tastes, "|") != "spicy|umami|crispy" {
		t.Errorf("tastes = %v", meta.Tastes)
	}
}

type noFlushWriter struct {
	header http.Header
	status int
	body   strings.Builder
}

func (w *noFlushWriter) Header() http.Header         { return w.header }
func (w *noFlushWriter) WriteHeader(status int)      { w.status = status }
func (w *noFlushWriter) Write(b []byte) (int, error) { return w.body.Write(b) }

func TestSearchDishes_StreamingUnsupported(t *testing.T) {
	logger := zap.NewNop()
	f := newFixture()
	search := searchuc.New(stubParser{}, f.db, f.ai, nil, nil, domain.DefaultPipelineConfig(), logger)
	server := NewServer(search, nil, nil, nil, logger)

	w := &noFlushWriter{header: http.Header{}}
	r := httptest.NewRequest(http.MethodGet, "/api/search?q=pho&lat=37.7&long=-122.4", nil)
	server.SearchDishes(w, r, SearchDishesParams{Q: ptr("pho"), Lat: ptr("37.7"), Long: ptr("-122.4")})

	if w.status != http.StatusInternalServerError {
		t.Fatalf("status = %d", w.status)
	}
	if !strings.Contains(w.body.String(), string(ErrorResponseCodeStreamingUnsupported)) {
		t.Errorf("body = %s", w.body.String())
	}
	if f.db.calls != 0 {
		t.Error("pipeline ran without a flushable writer")
	}
}

func TestClearSearchCache(t *testing.T) {
	w := newFixture().do(t, http.MethodDelete, "/api/search/cache")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ClearCacheResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Cleared != 0 {
		t.Errorf("cleared = %d", resp.Cleared)
	}
}

func TestGetUsage(t *testing.T) {
	f := newFixture()

	w := f.do(t, http.MethodGet, "/api/usage?period=month")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp UsageResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Period != "month" || resp.PeriodStartAt == nil || resp.Budget.IsExhausted {
		t.Errorf("usage = %+v", resp)
	}

	w = f.do(t, http.MethodGet, "/api/usage?period=total")
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Period != "total" {
		t.Errorf("period = %q", resp.Period)
	}

	w = f.do(t, http.MethodGet, "/api/usage?period=week")
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid period: status = %d", w.Code)
	}
}

func TestHealthCheck(t *testing.T) {
	f := newFixture()
	if w := f.do(t, http.MethodGet, "/health"); w.Code != http.StatusOK {
		t.Errorf("healthy: status = %d, body %s", w.Code, w.Body.String())
	}

	f.dbPing = stubPinger{err: errDown}
	w := f.do(t, http.MethodGet, "/health")
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("down: status = %d", w.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Checks["database"] != "error" {
		t.Errorf("checks = %v", resp.Checks)
	}
}

func TestLocate(t *testing.T) {
	f := newFixture()

	w := f.do(t, http.MethodGet, "/api/locate?lat=41.8781&long=-87.6298")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var loc LocationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &loc); err != nil {
		t.Fatal(err)
	}
	if loc.Label != "Chicago, IL" || loc.Source != "table" {
		t.Errorf("location = %+v", loc)
	}

	w = f.do(t, http.MethodGet, "/api/locate?lat=0&long=-150")
	if w.Code != http.StatusNotFound || decodeError(t, w).Code != ErrorResponseCodeLocationUnknown {
		t.Errorf("unknown: status = %d body %s", w.Code, w.Body.String())
	}

	w = f.do(t, http.MethodGet, "/api/locate?lat=abc&long=1")
	if w.Code != http.StatusBadRequest || decodeError(t, w).Code != ErrorResponseCodeBadRequest {
		t.Errorf("bad param: status = %d body %s", w.Code, w.Body.String())
	}

	w = f.do(t, http.MethodGet, "/api/locate?lat=1")
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing param: status = %d", w.Code)
	}
}

func TestMetrics(t *testing.T) {
	w := newFixture().do(t, http.MethodGet, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "dishola_http_requests_total") {
		t.Error("http metrics not exposed")
	}
}

func TestHandleDomainError_Mapping(t *testing.T) {
	s := NewServer(nil, nil, nil, nil, zap.NewNop())
	tests := []struct {
		err    error
		status int
		code   ErrorResponseCode
	}{
		{domain.NewValidationError("q", "is required"), http.StatusBadRequest, ErrorResponseCodeValidationFailed},
		{domain.ErrRateLimited, http.StatusTooManyRequests, ErrorResponseCodeRateLimited},
		{domain.ErrLLMQuotaExceeded, http.StatusPaymentRequired, ErrorResponseCodeLLMQuotaExceeded},
		{domain.ErrLLMProviderError, http.StatusBadGateway, ErrorResponseCodeLLMProviderError},
		{errDown, http.StatusInternalServerError, ErrorResponseCodeInternalError},
	}
	for _, tc := range tests {
		t.Run(string(tc.code), func(t *testing.T) {
			w := httptest.NewRecorder()
			s.handleDomainError(w, tc.err)
			if w.Code != tc.status {
				t.Errorf("status = %d, want %d", w.Code, tc.status)
			}
			resp := decodeError(t, w)
			if resp.Code != tc.code {
				t.Errorf("code = %q, want %q", resp.Code, tc.code)
			}
			if tc.code == ErrorResponseCodeInternalError && resp.Message != "internal error" {
				t.Errorf("leaked message %q", resp.Message)
			}
		})
	}
}

func TestJSONRecoverer(t *testing.T) {
	h := jsonRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusInternalServerError || decodeError(t, w).Code != ErrorResponseCodeInternalError {
		t.Errorf("status = %d body %s", w.Code, w.Body.String())
	}
}

func ptr[T any](v T) *T { return &v }
