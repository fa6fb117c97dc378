package date

import "fmt"

// Range represents an inclusive range of dates.
type Range struct{ From, To Date }

// NewRange returns the range [from, to].
func NewRange(from, to Date) Range { return Range{From: from, To: to} }

// Contains reports whether the date is included in the range (boundaries included).
func (r Range) Contains(day Date) bool { return !day.Before(r.From) && !day.After(r.To) }

// IsZero reports whether both boundaries are the zero date.
func (r Range) IsZero() bool { return r.From.IsZero() && r.To.IsZero() }

// IsValid reports whether the range has at least one day in it.
func (r Range) IsValid() bool { return !r.IsZero() && !r.From.After(r.To) }

// Intersect returns the overlap of r and x. The result may be invalid
// (From after To) when the two ranges are disjoint.
func (r Range) Intersect(x Range) Range {
	return Range{From: Max(r.From, x.From), To: Min(r.To, x.To)}
}

// Days returns the number of calendar days in the range, boundaries included.
func (r Range) Days() int {
	if !r.IsValid() {
		return 0
	}
	return int(r.To.time().Sub(r.From.time()).Hours()/24) + 1
}

// String formats the range as "from..to".
func (r Range) String() string { return fmt.Sprintf("%s..%s", r.From, r.To) }
