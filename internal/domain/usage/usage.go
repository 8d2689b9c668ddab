package usage

// Period is the aggregation granularity.
type Period string

// Aggregation period constants.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
	PeriodTotal Period = "total"
)

// ParsePeriod maps a query parameter to a Period. Empty input defaults to day.
func ParsePeriod(s string) (Period, bool) {
	switch Period(s) {
	case "", PeriodDay:
		return PeriodDay, true
	case PeriodMonth:
		return PeriodMonth, true
	case PeriodTotal:
		return PeriodTotal, true
	}
	return "", false
}

// Counters is one budget window as the LLM gateway tracks it. Remaining is
// -1 when Limit is 0, meaning unlimited. Requests only counts calls made by
// this process.
type Counters struct {
	Limit     int64
	Used      int64
	Remaining int64
	Requests  int64
}

// Budget is a snapshot of the LLM token budget for one period.
// A zero limit means unlimited.
type Budget struct {
	TokensLimit     int64
	TokensUsed      int64
	TokensRemaining int64
	Action          string
	ResetsAt        int64 // unix millis
}

// IsExhausted reports whether a limited budget is spent.
func (b Budget) IsExhausted() bool {
	return b.TokensLimit > 0 && b.TokensRemaining <= 0
}

// Report is an LLM usage report for a time period.
// PeriodTotal reports have zero boundaries.
type Report struct {
	period      Period
	periodStart int64
	periodEnd   int64
	requests    int64
	budget      Budget
}

// NewReport creates a usage report.
func NewReport(period Period, start, end, requests int64, b Budget) Report {
	return Report{
		period:      period,
		periodStart: start,
		periodEnd:   end,
		requests:    requests,
		budget:      b,
	}
}

// Period returns the aggregation granularity.
func (r *Report) Period() Period { return r.period }

// PeriodStart returns the period start timestamp (unix millis).
func (r *Report) PeriodStart() int64 { return r.periodStart }

// PeriodEnd returns the period end timestamp (unix millis).
func (r *Report) PeriodEnd() int64 { return r.periodEnd }

// Requests returns the number of LLM calls made in the period by this process.
func (r *Report) Requests() int64 { return r.requests }

// Budget returns the budget status.
func (r *Report) Budget() Budget { return r.budget }
