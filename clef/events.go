package clef

import (
	"iter"
	"math"
	"slices"
)

// Open marks an omitted bound in Events.SliceStep, e.g. SliceStep(Open, Open, -1) reverses the sequence.
const Open = math.MinInt

// Events is an ordered sequence of events in discovery order.
// Slice, SliceStep, Reversed and Filter always return a new sequence and never modify the receiver.
type Events struct {
	events []Event
}

// NewEvents creates a sequence holding the given events in order.
func NewEvents(events ...Event) Events {
	return Events{events: slices.Clone(events)}
}

// Add appends one event.
func (es *Events) Add(event Event) {
	es.events = append(es.events, event)
}

// Len returns the number of events.
func (es Events) Len() int {
	return len(es.events)
}

// IsEmpty reports whether there are no events.
func (es Events) IsEmpty() bool {
	return len(es.events) == 0
}

// At returns the event at index. Negative indices count from the end, -1 being the last event.
func (es Events) At(index int) (Event, error) {
	resolved := index
	if resolved < 0 {
		resolved += len(es.events)
	}

	if resolved < 0 || resolved >= len(es.events) {
		return Event{}, &IndexError{Index: index, Length: len(es.events)}
	}

	return es.events[resolved], nil
}

// Slice returns the events in [start, stop). Negative bounds count from the end,
// bounds outside of the sequence are clamped.
func (es Events) Slice(start, stop int) Events {
	sliced, _ := es.SliceStep(start, stop, 1)

	return sliced
}

// SliceStep returns every step-th event from start towards stop, stop excluded.
// A negative step walks backwards. Use Open for an omitted bound.
func (es Events) SliceStep(start, stop, step int) (Events, error) {
	if step == 0 {
		return Events{}, ErrZeroSliceStep
	}

	length := len(es.events)
	lower, upper := 0, length
	if step < 0 {
		lower, upper = -1, length-1
	}

	from := resolveSliceBound(start, length, lower, upper, step < 0)
	to := resolveSliceBound(stop, length, lower, upper, step > 0)

	sliced := Events{events: make([]Event, 0)}

	if step > 0 {
		for i := from; i < to; i += step {
			sliced.events = append(sliced.events, es.events[i])
		}

		return sliced, nil
	}

	for i := from; i > to; i += step {
		sliced.events = append(sliced.events, es.events[i])
	}

	return sliced, nil
}

// resolveSliceBound resolves one slice bound the same way for start and stop.
// An Open bound becomes upper when openIsUpper is set, otherwise lower.
func resolveSliceBound(bound, length, lower, upper int, openIsUpper bool) int {
	if bound == Open {
		if openIsUpper {
			return upper
		}

		return lower
	}

	if bound < 0 {
		bound += length
		if bound < lower {
			bound = lower
		}

		return bound
	}

	if bound > upper {
		bound = upper
	}

	return bound
}

// Reversed returns the events in reverse order.
func (es Events) Reversed() Events {
	reversed := slices.Clone(es.events)
	slices.Reverse(reversed)

	return Events{events: reversed}
}

// All iterates over the events in stored order.
func (es Events) All() iter.Seq2[int, Event] {
	return func(yield func(int, Event) bool) {
		for i, event := range es.events {
			if !yield(i, event) {
				return
			}
		}
	}
}

// Filter returns a new sequence with the events for which predicate returns true.
func (es Events) Filter(predicate func(Event) bool) Events {
	filtered := Events{events: make([]Event, 0)}

	for _, event := range es.events {
		if predicate(event) {
			filtered.events = append(filtered.events, event)
		}
	}

	return filtered
}

// ToSlice returns a copy of the events; changing it does not affect the sequence.
func (es Events) ToSlice() []Event {
	if es.events == nil {
		return []Event{}
	}

	return slices.Clone(es.events)
}
