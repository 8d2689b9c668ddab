package chi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dishola/dishola/internal/domain"
	"github.com/dishola/dishola/internal/domain/search/request"
	domusage "github.com/dishola/dishola/internal/domain/usage"
	"github.com/dishola/dishola/internal/logger"
	healthuc "github.com/dishola/dishola/internal/usecase/health"
	locateuc "github.com/dishola/dishola/internal/usecase/locate"
	searchuc "github.com/dishola/dishola/internal/usecase/search"
	usageuc "github.com/dishola/dishola/internal/usecase/usage"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server implements ServerInterface.
type Server struct {
	search        *searchuc.Service
	usage         *usageuc.Service
	health        *healthuc.Service
	locate        *locateuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server.
func NewServer(
	search *searchuc.Service,
	usage *usageuc.Service,
	health *healthuc.Service,
	locate *locateuc.Service,
	logger *zap.Logger,
) *Server {
	s := &Server{
		search: search,
		usage:  usage,
		health: health,
		locate: locate,
		logger: logger,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrLocationUnknown, http.StatusNotFound, ErrorResponseCodeLocationUnknown),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorResponseCodeRateLimited),
		sentinelHandler(domain.ErrLLMQuotaExceeded,
			http.StatusPaymentRequired, ErrorResponseCodeLLMQuotaExceeded),
		sentinelHandler(domain.ErrLLMProviderError,
			http.StatusBadGateway, ErrorResponseCodeLLMProviderError),
		sentinelHandler(domain.ErrStreamingUnsupported,
			http.StatusInternalServerError, ErrorResponseCodeStreamingUnsupported),
	}
	return s
}

// SearchDishes handles GET /api/search. Validation failures are plain JSON
// errors; once the stream starts every outcome is reported in-band.
func (s *Server) SearchDishes(w http.ResponseWriter, r *http.Request, params SearchDishesParams) {
	var tastes []string
	if params.Tastes != nil {
		for _, raw := range *params.Tastes {
			tastes = append(tastes, request.SplitTastes(raw)...)
		}
	}

	req, err := request.New(deref(params.Q), tastes, deref(params.Lat), deref(params.Long), deref(params.Sort))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.handleDomainError(w, domain.ErrStreamingUnsupported)
		return
	}

	startStream(w)
	if err := s.search.Search(r.Context(), &req, newNDJSONEmitter(w, flusher)); err != nil {
		logger.FromContextOr(r.Context(), s.logger).Debug("search stream ended with error", zap.Error(err))
	}
}

// ClearSearchCache handles DELETE /api/search/cache.
func (s *Server) ClearSearchCache(w http.ResponseWriter, r *http.Request) {
	n, err := s.search.ClearCache(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ClearCacheResponse{Cleared: n})
}

// GetUsage handles GET /api/usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request, params GetUsageParams) {
	period, ok := domusage.ParsePeriod(deref(params.Period))
	if !ok {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest,
			"period must be one of day, month, total")
		return
	}

	report := s.usage.GetReport(r.Context(), period)
	budget := report.Budget()

	resp := UsageResponse{
		Period: string(report.Period()),
		Usage: UsageMetrics{
			LLMRequests: report.Requests(),
			Tokens:      budget.TokensUsed,
		},
		Budget: BudgetStatus{
			TokensLimit:     budget.TokensLimit,
			TokensRemaining: budget.TokensRemaining,
			Action:          budget.Action,
			IsExhausted:     budget.IsExhausted(),
		},
	}

	if report.PeriodStart() > 0 {
		start := time.UnixMilli(report.PeriodStart()).UTC()
		end := time.UnixMilli(report.PeriodEnd()).UTC()
		resp.PeriodStartAt = &start
		resp.PeriodEndAt = &end
	}

	if budget.ResetsAt > 0 {
		resetsAt := time.UnixMilli(budget.ResetsAt).UTC()
		resp.Budget.ResetsAt = &resetsAt
	}

	writeJSON(w, http.StatusOK, resp)
}

// Locate handles GET /api/locate.
func (s *Server) Locate(w http.ResponseWriter, r *http.Request, params LocateParams) {
	loc, err := s.locate.Locate(r.Context(), params.Lat, params.Long)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LocationResponse{Label: loc.Label, Source: loc.Source})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// BadRequestHandler renders parameter binding failures.
func BadRequestHandler(w http.ResponseWriter, _ *http.Request, err error) {
	var rpe *RequiredParamError
	if errors.As(err, &rpe) {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, rpe.Error())
		return
	}
	var ipe *InvalidParamFormatError
	if errors.As(err, &ipe) {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "invalid "+ipe.ParamName)
		return
	}
	writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "invalid request")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrLocationUnknown,
		domain.ErrRateLimited,
		domain.ErrLLMQuotaExceeded,
		domain.ErrLLMProviderError,
		domain.ErrStreamingUnsupported,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

// validationHandler exposes the offending parameter, which is safe to show.
func validationHandler(w http.ResponseWriter, err error, _ string) bool {
	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		return false
	}
	writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, ve.Error())
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
