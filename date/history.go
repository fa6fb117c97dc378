package date

import (
	"iter"
	"slices"
)

// History stores a chronological series of values, each associated with a
// specific date. Dates are unique and the series is always sorted.
type History[T any] struct {
	days   []Date
	values []T
}

// Len returns the number of entries in the history.
func (h *History[T]) Len() int { return len(h.days) }

// Clear removes all entries from the history.
func (h *History[T]) Clear() {
	h.days = h.days[:0]
	h.values = h.values[:0]
}

// search locates day in the sorted days slice.
func (h *History[T]) search(day Date) (int, bool) {
	return slices.BinarySearchFunc(h.days, day, Date.Compare)
}

// Append adds an entry to the history, keeping it sorted.
// An existing value at that date is overwritten.
func (h *History[T]) Append(on Date, v T) *History[T] {
	i, found := h.search(on)
	if found {
		h.values[i] = v
		return h
	}
	h.days = slices.Insert(h.days, i, on)
	h.values = slices.Insert(h.values, i, v)
	return h
}

// Get returns the value at exactly 'day', if any.
func (h *History[T]) Get(day Date) (T, bool) {
	if i, found := h.search(day); found {
		return h.values[i], true
	}
	var zero T
	return zero, false
}

// AsOf returns the entry at 'day', or the most recent entry before it.
// It reports false when there is no entry on or before the given day.
func (h *History[T]) AsOf(day Date) (Date, T, bool) {
	i, found := h.search(day)
	if found {
		return h.days[i], h.values[i], true
	}
	if i == 0 {
		var zero T
		return Date{}, zero, false
	}
	return h.days[i-1], h.values[i-1], true
}

// Next returns the earliest entry strictly after 'day'.
// It reports false when there is no entry after the given day.
func (h *History[T]) Next(day Date) (Date, T, bool) {
	i, found := h.search(day)
	if found {
		i++
	}
	if i >= len(h.days) {
		var zero T
		return Date{}, zero, false
	}
	return h.days[i], h.values[i], true
}

// First returns the earliest entry in the history, or zero values when empty.
func (h *History[T]) First() (Date, T) {
	if len(h.days) == 0 {
		var zero T
		return Date{}, zero
	}
	return h.days[0], h.values[0]
}

// Latest returns the latest entry in the history, or zero values when empty.
func (h *History[T]) Latest() (Date, T) {
	last := len(h.days) - 1
	if last < 0 {
		var zero T
		return Date{}, zero
	}
	return h.days[last], h.values[last]
}

// Span returns the range covered by the history, from first to latest entry.
func (h *History[T]) Span() Range {
	from, _ := h.First()
	to, _ := h.Latest()
	return Range{From: from, To: to}
}

// Between returns a new history holding only the entries within r.
func (h *History[T]) Between(r Range) *History[T] {
	out := &History[T]{}
	for on, v := range h.Values() {
		if r.Contains(on) {
			out.Append(on, v)
		}
	}
	return out
}

// Values returns an iterator over all date/value pairs, in chronological order.
func (h *History[T]) Values() iter.Seq2[Date, T] {
	return func(yield func(Date, T) bool) {
		for i, on := range h.days {
			if !yield(on, h.values[i]) {
				return
			}
		}
	}
}

// Dates returns the sorted dates of the history as a fresh slice.
func (h *History[T]) Dates() []Date {
	return slices.Clone(h.days)
}
