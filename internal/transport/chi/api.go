package chi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// ErrorResponseCode is the machine-readable error code of an ErrorResponse.
type ErrorResponseCode string

// Error codes.
const (
	ErrorResponseCodeBadRequest           ErrorResponseCode = "bad_request"
	ErrorResponseCodeValidationFailed     ErrorResponseCode = "validation_failed"
	ErrorResponseCodeRateLimited          ErrorResponseCode = "rate_limited"
	ErrorResponseCodeLLMQuotaExceeded     ErrorResponseCode = "llm_quota_exceeded"
	ErrorResponseCodeLLMProviderError     ErrorResponseCode = "llm_provider_error"
	ErrorResponseCodeStreamingUnsupported ErrorResponseCode = "streaming_unsupported"
	ErrorResponseCodeLocationUnknown      ErrorResponseCode = "location_unknown"
	ErrorResponseCodeInternalError        ErrorResponseCode = "internal_error"
)

// ErrorResponse is the JSON body of every non-stream error.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// SearchDishesParams are the query parameters of GET /api/search.
// Coordinates stay strings so prompts see exactly what the client sent.
type SearchDishesParams struct {
	Q      *string   `form:"q,omitempty" json:"q,omitempty"`
	Tastes *[]string `form:"tastes,omitempty" json:"tastes,omitempty"`
	Lat    *string   `form:"lat,omitempty" json:"lat,omitempty"`
	Long   *string   `form:"long,omitempty" json:"long,omitempty"`
	Sort   *string   `form:"sort,omitempty" json:"sort,omitempty"`
}

// GetUsageParams are the query parameters of GET /api/usage.
type GetUsageParams struct {
	Period *string `form:"period,omitempty" json:"period,omitempty"`
}

// LocateParams are the query parameters of GET /api/locate.
type LocateParams struct {
	Lat  float64 `form:"lat" json:"lat"`
	Long float64 `form:"long" json:"long"`
}

// UsageResponse reports LLM token usage for one period.
type UsageResponse struct {
	Period        string       `json:"period"`
	PeriodStartAt *time.Time   `json:"period_start_at,omitempty"`
	PeriodEndAt   *time.Time   `json:"period_end_at,omitempty"`
	Usage         UsageMetrics `json:"usage"`
	Budget        BudgetStatus `json:"budget"`
}

// UsageMetrics counts LLM calls.
type UsageMetrics struct {
	LLMRequests int64 `json:"llm_requests"`
	Tokens      int64 `json:"tokens"`
}

// BudgetStatus is the token budget snapshot. A zero limit means unlimited.
type BudgetStatus struct {
	TokensLimit     int64      `json:"tokens_limit"`
	TokensRemaining int64      `json:"tokens_remaining"`
	Action          string     `json:"action"`
	IsExhausted     bool       `json:"is_exhausted"`
	ResetsAt        *time.Time `json:"resets_at,omitempty"`
}

// HealthResponse is the aggregated component status.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// ClearCacheResponse reports how many cached searches were dropped.
type ClearCacheResponse struct {
	Cleared int `json:"cleared"`
}

// LocationResponse is a resolved place label.
type LocationResponse struct {
	Label  string `json:"label"`
	Source string `json:"source"`
}

// ServerInterface is implemented by the HTTP API.
type ServerInterface interface {
	// (GET /api/search)
	SearchDishes(w http.ResponseWriter, r *http.Request, params SearchDishesParams)
	// (DELETE /api/search/cache)
	ClearSearchCache(w http.ResponseWriter, r *http.Request)
	// (GET /api/usage)
	GetUsage(w http.ResponseWriter, r *http.Request, params GetUsageParams)
	// (GET /api/locate)
	Locate(w http.ResponseWriter, r *http.Request, params LocateParams)
	// (GET /health)
	HealthCheck(w http.ResponseWriter, r *http.Request)
	// (GET /metrics)
	Metrics(w http.ResponseWriter, r *http.Request)
}

// InvalidParamFormatError reports a query parameter that failed to bind.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error { return e.Err }

// RequiredParamError reports a missing required query parameter.
type RequiredParamError struct {
	ParamName string
}

func (e *RequiredParamError) Error() string {
	return fmt.Sprintf("query argument %s is required, but not found", e.ParamName)
}

// ChiServerOptions configures HandlerWithOptions.
type ChiServerOptions struct {
	BaseRouter       chi.Router
	Middlewares      []func(http.Handler) http.Handler
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

// Handler mounts si on a new chi router with default options.
func Handler(si ServerInterface) http.Handler {
	return HandlerWithOptions(si, ChiServerOptions{})
}

// HandlerWithOptions mounts si on options.BaseRouter.
func HandlerWithOptions(si ServerInterface, options ChiServerOptions) http.Handler {
	r := options.BaseRouter
	if r == nil {
		r = chi.NewRouter()
	}
	if options.ErrorHandlerFunc == nil {
		options.ErrorHandlerFunc = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
	w := &wrapper{
		handler:          si,
		middlewares:      options.Middlewares,
		errorHandlerFunc: options.ErrorHandlerFunc,
	}

	r.Get("/api/search", w.SearchDishes)
	r.Delete("/api/search/cache", w.ClearSearchCache)
	r.Get("/api/usage", w.GetUsage)
	r.Get("/api/locate", w.Locate)
	r.Get("/health", w.HealthCheck)
	r.Get("/metrics", w.Metrics)

	return r
}

// wrapper binds query parameters before calling into ServerInterface.
type wrapper struct {
	handler          ServerInterface
	middlewares      []func(http.Handler) http.Handler
	errorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *wrapper) serve(w http.ResponseWriter, r *http.Request, h http.Handler) {
	for _, m := range siw.middlewares {
		h = m(h)
	}
	h.ServeHTTP(w, r)
}

func (siw *wrapper) SearchDishes(w http.ResponseWriter, r *http.Request) {
	var params SearchDishesParams
	query := r.URL.Query()

	for _, p := range []struct {
		name string
		dest any
	}{
		{"q", &params.Q},
		{"tastes", &params.Tastes},
		{"lat", &params.Lat},
		{"long", &params.Long},
		{"sort", &params.Sort},
	} {
		if err := runtime.BindQueryParameter("form", true, false, p.name, query, p.dest); err != nil {
			siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: p.name, Err: err})
			return
		}
	}

	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.handler.SearchDishes(w, r, params)
	}))
}

func (siw *wrapper) ClearSearchCache(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.handler.ClearSearchCache))
}

func (siw *wrapper) GetUsage(w http.ResponseWriter, r *http.Request) {
	var params GetUsageParams
	if err := runtime.BindQueryParameter("form", true, false, "period", r.URL.Query(), &params.Period); err != nil {
		siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "period", Err: err})
		return
	}

	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.handler.GetUsage(w, r, params)
	}))
}

func (siw *wrapper) Locate(w http.ResponseWriter, r *http.Request) {
	var params LocateParams
	query := r.URL.Query()

	for _, p := range []struct {
		name string
		dest *float64
	}{
		{"lat", &params.Lat},
		{"long", &params.Long},
	} {
		if _, ok := query[p.name]; !ok {
			siw.errorHandlerFunc(w, r, &RequiredParamError{ParamName: p.name})
			return
		}
		if err := runtime.BindQueryParameter("form", true, true, p.name, query, p.dest); err != nil {
			siw.errorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: p.name, Err: err})
			return
		}
	}

	siw.serve(w, r, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		siw.handler.Locate(w, r, params)
	}))
}

func (siw *wrapper) HealthCheck(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.handler.HealthCheck))
}

func (siw *wrapper) Metrics(w http.ResponseWriter, r *http.Request) {
	siw.serve(w, r, http.HandlerFunc(siw.handler.Metrics))
}
