// Package app is the composition root shared by the API server and the MCP server.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/dishola/dishola/internal/config"
	dbPostgres "github.com/dishola/dishola/internal/db/postgres"
	dbRedis "github.com/dishola/dishola/internal/db/redis"
	dbSqlite "github.com/dishola/dishola/internal/db/sqlite"
	"github.com/dishola/dishola/internal/domain"
	"github.com/dishola/dishola/internal/metrics"
	budgetrepo "github.com/dishola/dishola/internal/repository/budget"
	dishrepo "github.com/dishola/dishola/internal/repository/dish"
	"github.com/dishola/dishola/internal/repository/searchcache"
	"github.com/dishola/dishola/internal/transport/geocode"
	openaiLLM "github.com/dishola/dishola/internal/transport/openai"
	"github.com/dishola/dishola/internal/usecase/airecommend"
	"github.com/dishola/dishola/internal/usecase/dbrecommend"
	healthuc "github.com/dishola/dishola/internal/usecase/health"
	llmuc "github.com/dishola/dishola/internal/usecase/llm"
	locateuc "github.com/dishola/dishola/internal/usecase/locate"
	"github.com/dishola/dishola/internal/usecase/queryparse"
	searchuc "github.com/dishola/dishola/internal/usecase/search"
	usageuc "github.com/dishola/dishola/internal/usecase/usage"
)

// dishRepository is what the catalog drivers have in common.
type dishRepository interface {
	dbrecommend.Repository
	healthuc.Pinger
}

// App holds the wired services. Close releases every connection it opened.
type App struct {
	Search *searchuc.Service
	Usage  *usageuc.Service
	Health *healthuc.Service
	Locate *locateuc.Service

	closers []func()
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// New connects to the catalog and cache and builds the service graph.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	a := &App{}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	metrics.RegisterLLMMetrics()
	metrics.RegisterSearchMetrics()

	dishes, err := a.openCatalog(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	// Shared KV store for the cache and budget counters (redis driver only).
	var kv *dbRedis.Store
	if cfg.Cache.Driver == "redis" {
		kv, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("connect cache: %w", err)
		}
		a.closers = append(a.closers, kv.Close)
		if err := kv.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			return nil, fmt.Errorf("cache not ready: %w", err)
		}
		logger.Info("Connected to cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	var cache searchuc.Cache
	ttl := time.Duration(cfg.Cache.TTLSec) * time.Second
	if kv != nil {
		cache = searchcache.NewRedis(kv, ttl, logger)
	} else {
		cache = searchcache.NewMemory(cfg.Cache.Size, ttl)
	}

	budget := buildBudget(ctx, cfg.LLM, kv, logger)

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	var budgetChecker llmuc.BudgetChecker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetChecker = budget
		budgetReader = budget
	}

	base := openaiLLM.NewClient(&openaiLLM.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Provider:    cfg.LLM.Provider,
		Timeout:     time.Duration(cfg.LLM.TimeoutSec) * time.Second,
		StreamUsage: cfg.LLM.StreamUsage,
		Logger:      logger,
	})
	llm := llmuc.NewInstrumented(base, cfg.LLM.Provider, cfg.LLM.Model, budgetChecker, logger)
	logger.Info("LLM gateway created",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", cfg.LLM.Model),
		zap.String("parser_model", cfg.LLM.ParserModel),
	)

	var reverser locateuc.Reverser
	if cfg.Geocode.ReverseURL != "" {
		reverser = geocode.NewClient(geocode.Config{
			ReverseURL: cfg.Geocode.ReverseURL,
			UserAgent:  cfg.Geocode.UserAgent,
			Timeout:    time.Duration(cfg.Geocode.TimeoutSec) * time.Second,
		})
	}
	a.Locate = locateuc.New(reverser, logger)

	pipeline := PipelineConfig(cfg.Search)
	parser := queryparse.New(llm, cfg.LLM.ParserModel, logger)
	dbRec := dbrecommend.New(dishes, pipeline, logger)
	aiRec := airecommend.New(llm, airecommend.Config{
		Model:         cfg.LLM.Model,
		Temperature:   cfg.LLM.Temperature,
		MaxTokens:     cfg.LLM.MaxTokens,
		Results:       pipeline.AIResults,
		ProgressEvery: pipeline.ProgressEvery,
	}, logger)

	a.Search = searchuc.New(parser, dbRec, aiRec, cache, a.Locate, pipeline, logger)
	a.Usage = usageuc.New(budgetReader)

	probes := []healthuc.Probe{{Name: "llm", Check: llm.HealthCheck}}
	if kv != nil {
		probes = append(probes, healthuc.Probe{Name: "cache", Check: kv.Ping})
	}
	a.Health = healthuc.New(dishes, probes...)

	ok = true
	return a, nil
}

// PipelineConfig maps the search config section onto the pipeline tuning knobs.
func PipelineConfig(c config.SearchConfig) domain.PipelineConfig {
	p := domain.DefaultPipelineConfig()
	if c.RadiusMiles > 0 {
		p.RadiusMiles = c.RadiusMiles
	}
	if c.DBCandidates > 0 {
		p.DBCandidates = c.DBCandidates
	}
	if c.DBLimit > 0 {
		p.DBLimit = c.DBLimit
	}
	if c.AIResults > 0 {
		p.AIResults = c.AIResults
	}
	if c.ProgressEvery > 0 {
		p.ProgressEvery = c.ProgressEvery
	}
	p.ProgressiveAI = c.ProgressiveAI
	return p
}

func (a *App) openCatalog(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (dishRepository, error) {
	switch cfg.Driver {
	case "sqlite":
		conn, err := dbSqlite.Open(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite catalog: %w", err)
		}
		a.closers = append(a.closers, func() { _ = conn.Close() })
		logger.Info("Opened sqlite catalog", zap.String("path", cfg.DSN))
		return dishrepo.NewSQLiteRepository(conn), nil
	default:
		pool, err := dbPostgres.Connect(ctx, dbPostgres.Config{
			DSN:             cfg.DSN,
			MaxConns:        cfg.MaxConns,
			MinConns:        cfg.MinConns,
			MaxConnLifetime: time.Duration(cfg.MaxConnLifetime) * time.Second,
		})
		if err != nil {
			return nil, fmt.Errorf("connect postgres catalog: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		if err := dbPostgres.WaitForReady(ctx, pool, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
			return nil, fmt.Errorf("postgres not ready: %w", err)
		}
		logger.Info("Connected to postgres catalog")
		return dishrepo.NewPostgresRepository(pool), nil
	}
}

// buildBudget returns nil when no limit is configured.
func buildBudget(ctx context.Context, cfg config.LLMConfig, kv *dbRedis.Store, logger *zap.Logger) *llmuc.BudgetTracker {
	b := cfg.Budget
	if b.DailyTokenLimit <= 0 && b.MonthlyTokenLimit <= 0 {
		return nil
	}
	action := llmuc.BudgetActionWarn
	if b.Action == "reject" {
		action = llmuc.BudgetActionReject
	}
	tracker := llmuc.NewBudgetTracker(cfg.Provider, b.DailyTokenLimit, b.MonthlyTokenLimit, action, logger)
	if kv != nil {
		// Loads current counters so the budget survives restarts.
		tracker.WithStore(ctx, budgetrepo.New(kv, budgetrepo.DefaultDailyTTL, budgetrepo.DefaultMonthlyTTL))
	}
	return tracker
}
