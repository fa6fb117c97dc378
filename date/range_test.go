package date

import "testing"

func TestRangeContains(t *testing.T) {
	r := NewRange(New(2022, 1, 10), New(2022, 1, 20))

	testCases := []struct {
		day  Date
		want bool
	}{
		{New(2022, 1, 10), true},  // lower boundary
		{New(2022, 1, 20), true},  // upper boundary
		{New(2022, 1, 15), true},  // inside
		{New(2022, 1, 9), false},  // just before
		{New(2022, 1, 21), false}, // just after
	}
	for _, tc := range testCases {
		if got := r.Contains(tc.day); got != tc.want {
			t.Errorf("Contains(%v) = %v want %v", tc.day, got, tc.want)
		}
	}
}

func TestRangeIntersect(t *testing.T) {
	a := NewRange(New(2022, 1, 1), New(2022, 6, 30))
	b := NewRange(New(2022, 3, 1), New(2022, 9, 30))

	got := a.Intersect(b)
	want := NewRange(New(2022, 3, 1), New(2022, 6, 30))
	if got != want {
		t.Errorf("Intersect = %v want %v", got, want)
	}
	if !got.IsValid() {
		t.Errorf("overlapping intersection reported invalid")
	}

	// Disjoint ranges intersect to an invalid range, not an error.
	c := NewRange(New(2023, 1, 1), New(2023, 2, 1))
	if a.Intersect(c).IsValid() {
		t.Errorf("disjoint intersection reported valid")
	}
}

func TestRangeDays(t *testing.T) {
	if got := NewRange(New(2022, 1, 1), New(2022, 1, 1)).Days(); got != 1 {
		t.Errorf("single-day range Days() = %v want 1", got)
	}
	if got := NewRange(New(2022, 1, 1), New(2022, 1, 31)).Days(); got != 31 {
		t.Errorf("january Days() = %v want 31", got)
	}
	if got := NewRange(New(2022, 2, 1), New(2022, 1, 1)).Days(); got != 0 {
		t.Errorf("invalid range Days() = %v want 0", got)
	}
}

func TestPeriodStep(t *testing.T) {
	d := New(2022, 1, 15)
	if got, want := Monthly.Step(d), New(2022, 2, 15); got != want {
		t.Errorf("Monthly.Step = %v want %v", got, want)
	}
	if got, want := Quarterly.Step(d), New(2022, 4, 15); got != want {
		t.Errorf("Quarterly.Step = %v want %v", got, want)
	}
	if got, want := Yearly.Step(d), New(2023, 1, 15); got != want {
		t.Errorf("Yearly.Step = %v want %v", got, want)
	}
}
