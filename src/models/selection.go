package models

import "fmt"

// Period is the lookback window of a historical fetch.
type Period string

const (
	PeriodOneMonth  Period = "1mo"
	PeriodSixMonths Period = "6mo"
)

// ParsePeriod validates a period string. An empty string maps to 1mo.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "":
		return PeriodOneMonth, nil
	case PeriodOneMonth, PeriodSixMonths:
		return Period(s), nil
	}
	return "", fmt.Errorf("unsupported period %q (want %s or %s)", s, PeriodOneMonth, PeriodSixMonths)
}

// MSelection is the (symbol, period) pair driving which history is current.
type MSelection struct {
	Symbol string `json:"symbol"`
	Period Period `json:"period"`
}

func (s MSelection) String() string {
	return fmt.Sprintf("%s/%s", s.Symbol, s.Period)
}
