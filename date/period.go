package date

import (
	"fmt"
	"strings"
)

// Period is a recurring calendar interval, used for contribution and
// rebalancing schedules.
type Period int

const (
	Monthly Period = iota
	Quarterly
	Yearly
)

func (p Period) String() string {
	switch p {
	case Monthly:
		return "monthly"
	case Quarterly:
		return "quarterly"
	case Yearly:
		return "yearly"
	default:
		panic(fmt.Sprintf("unknown period %d", p))
	}
}

// ParsePeriod parses a period name, accepting both noun and adjective forms.
func ParsePeriod(s string) (Period, error) {
	switch strings.ToLower(s) {
	case "monthly", "month":
		return Monthly, nil
	case "quarterly", "quarter":
		return Quarterly, nil
	case "yearly", "year":
		return Yearly, nil
	default:
		return Monthly, fmt.Errorf("unknown period %q", s)
	}
}

// Step returns the date one period after d.
func (p Period) Step(d Date) Date {
	switch p {
	case Monthly:
		return d.AddMonths(1)
	case Quarterly:
		return d.AddMonths(3)
	case Yearly:
		return d.AddMonths(12)
	default:
		panic(fmt.Sprintf("unknown period %d", p))
	}
}
