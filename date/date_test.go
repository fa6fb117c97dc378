package date

import (
	"testing"
	"time"
)

// TestTime asserts that time() is canonical and gives comparable times.
func TestTime(t *testing.T) {
	d1 := New(2025, 7, 31)
	d2 := New(2025, 7, 31)

	if d1.time() != d2.time() {
		// time.Time values are usually not comparable (the timezone is a
		// pointer); this also checks that the property remains true.
		t.Errorf("invalid time() function: same day gives two different times")
	}
}

func TestParse(t *testing.T) {
	testCases := []struct {
		in        string
		want      Date
		expectErr bool
	}{
		{"2021-12-01", New(2021, time.December, 1), false},
		{"2021-12-1", New(2021, time.December, 1), false},
		{"2021-2-28", New(2021, time.February, 28), false},
		{"not-a-date", Date{}, true},
		{"", Date{}, true},
	}

	for _, tc := range testCases {
		got, err := Parse(tc.in)
		hasErr := err != nil
		if hasErr != tc.expectErr {
			t.Errorf("Parse(%q) returned error: %v, want error: %v", tc.in, err, tc.expectErr)
			continue
		}
		if got != tc.want {
			t.Errorf("Parse(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestNormalization(t *testing.T) {
	if got, want := New(2022, time.January, 32), New(2022, time.February, 1); got != want {
		t.Errorf("New(2022, 1, 32) = %v, want %v", got, want)
	}
	if got, want := New(2021, time.December, 31).Add(1), New(2022, time.January, 1); got != want {
		t.Errorf("Add(1) over year boundary = %v, want %v", got, want)
	}
	if got, want := New(2021, time.December, 1).AddMonths(2), New(2022, time.February, 1); got != want {
		t.Errorf("AddMonths(2) = %v, want %v", got, want)
	}
}

func TestCompare(t *testing.T) {
	a, b := New(2022, time.March, 1), New(2022, time.March, 2)
	if !a.Before(b) || b.Before(a) {
		t.Errorf("Before is inconsistent for %v and %v", a, b)
	}
	if !b.After(a) || a.After(b) {
		t.Errorf("After is inconsistent for %v and %v", a, b)
	}
	if a.Compare(b) != -1 || b.Compare(a) != 1 || a.Compare(a) != 0 {
		t.Errorf("Compare is inconsistent for %v and %v", a, b)
	}
	if Max(a, b) != b || Min(a, b) != a {
		t.Errorf("Max/Min inconsistent for %v and %v", a, b)
	}
}

func TestJSONRoundTrip(t *testing.T) {
	d := New(2023, time.June, 15)
	b, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	if string(b) != `"2023-06-15"` {
		t.Errorf("MarshalJSON = %s, want %q", b, `"2023-06-15"`)
	}
	var back Date
	if err := back.UnmarshalJSON(b); err != nil {
		t.Fatalf("UnmarshalJSON: %v", err)
	}
	if back != d {
		t.Errorf("round trip = %v, want %v", back, d)
	}
}
