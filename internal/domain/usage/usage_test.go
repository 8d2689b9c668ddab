package usage

import "testing"

func TestNewReport(t *testing.T) {
	b := Budget{TokensLimit: 1000000, TokensUsed: 384200, TokensRemaining: 615800, Action: "warn", ResetsAt: 1700000000000}
	r := NewReport(PeriodMonth, 1700000000, 1702600000, 1542, b)

	if r.Period() != PeriodMonth {
		t.Errorf("Period() = %q", r.Period())
	}
	if r.PeriodStart() != 1700000000 {
		t.Errorf("PeriodStart() = %d", r.PeriodStart())
	}
	if r.PeriodEnd() != 1702600000 {
		t.Errorf("PeriodEnd() = %d", r.PeriodEnd())
	}
	if r.Requests() != 1542 {
		t.Errorf("Requests() = %d", r.Requests())
	}
	if r.Budget().TokensLimit != 1000000 {
		t.Errorf("Budget().TokensLimit = %d", r.Budget().TokensLimit)
	}
	if r.Budget().IsExhausted() {
		t.Error("budget should not be exhausted")
	}
}

func TestBudget_IsExhausted(t *testing.T) {
	if !(Budget{TokensLimit: 1000, TokensRemaining: 0}).IsExhausted() {
		t.Error("spent budget should be exhausted")
	}
	if (Budget{TokensLimit: 0, TokensRemaining: 0}).IsExhausted() {
		t.Error("unlimited budget is never exhausted")
	}
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		in   string
		want Period
		ok   bool
	}{
		{"", PeriodDay, true},
		{"day", PeriodDay, true},
		{"month", PeriodMonth, true},
		{"total", PeriodTotal, true},
		{"year", "", false},
	}
	for _, tc := range tests {
		got, ok := ParsePeriod(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParsePeriod(%q) = (%q, %v), want (%q, %v)", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
