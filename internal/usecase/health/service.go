package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure.
	Degraded Status = "degraded"
	// Unhealthy indicates total failure.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// DefaultCheckTimeout bounds each component probe.
const DefaultCheckTimeout = 3 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// CatalogCheck names the dish catalog in Report.Checks.
const CatalogCheck = "database"

// Service coordinates health checks.
type Service struct {
	probes  []Probe
	timeout time.Duration
}

// New checks catalog plus every extra probe. Probes without a Check are
// skipped, so optional dependencies can be passed unconditionally.
func New(catalog Pinger, extra ...Probe) *Service {
	probes := []Probe{{Name: CatalogCheck, Check: catalog.Ping}}
	for _, p := range extra {
		if p.Check != nil {
			probes = append(probes, p)
		}
	}
	return &Service{probes: probes, timeout: DefaultCheckTimeout}
}

// Check probes every component concurrently.
func (s *Service) Check(ctx context.Context) Report {
	var (
		mu     sync.Mutex
		checks = make(map[string]CheckResult)
	)
	set := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			checks[name] = CheckError
			return
		}
		checks[name] = CheckOK
	}

	var g errgroup.Group
	for _, p := range s.probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			set(p.Name, p.Check(pctx))
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, v := range checks {
		if v == CheckError {
			failed++
		}
	}

	// Search still streams from whichever side is up, so only a total
	// outage is an error.
	status := Healthy
	switch {
	case failed == len(checks):
		status = Unhealthy
	case failed > 0:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}
