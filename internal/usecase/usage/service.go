package usage

import (
	"context"
	"time"

	domusage "github.com/dishola/dishola/internal/domain/usage"
)

// Service handles LLM usage reporting.
type Service struct {
	br  BudgetReader
	now func() time.Time
}

// New creates a Service. br can be nil (unlimited mode).
func New(br BudgetReader) *Service {
	return &Service{br: br, now: func() time.Time { return time.Now().UTC() }}
}

// GetReport builds a usage report for the given period. Total reports reuse
// the monthly window, since counters are not kept beyond a month, and carry
// no boundaries.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	start, end := bounds(period, s.now())

	var (
		c      domusage.Counters
		action string
	)
	if s.br != nil {
		if period == domusage.PeriodDay {
			c = s.br.Daily()
		} else {
			c = s.br.Monthly()
		}
		action = s.br.Action()
	}

	rem := c.Remaining
	if c.Limit == 0 {
		rem = 0
	}
	return domusage.NewReport(period, start.UnixMilli(), end.UnixMilli(), c.Requests, domusage.Budget{
		TokensLimit:     c.Limit,
		TokensUsed:      c.Used,
		TokensRemaining: rem,
		Action:          action,
		ResetsAt:        end.UnixMilli(),
	})
}

// bounds returns the UTC window for period. Total has zero bounds, reported
// as 0 millis.
func bounds(period domusage.Period, now time.Time) (time.Time, time.Time) {
	switch period {
	case domusage.PeriodDay:
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		return day, day.AddDate(0, 0, 1)
	case domusage.PeriodMonth:
		month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return month, month.AddDate(0, 1, 0)
	}
	return time.UnixMilli(0), time.UnixMilli(0)
}
