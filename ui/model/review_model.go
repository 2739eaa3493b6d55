package model

import (
	"fmt"

	"github.com/soocke/bleedscan-go/domain/bleed"
)

// ReviewModel is a cursor over the events of one video. It is decoupled from the UI;
// presenters read Current() and push updates to views.
// The zero value is an empty model.
type ReviewModel struct {
	events []bleed.Event
	cur    int
}

// NewReviewModel returns a model positioned at the first event.
func NewReviewModel(events []bleed.Event) *ReviewModel {
	return &ReviewModel{events: append([]bleed.Event(nil), events...)}
}

// Len reports the number of events.
func (m *ReviewModel) Len() int {
	if m == nil {
		return 0
	}
	return len(m.events)
}

// Index returns the cursor position, or -1 when empty.
func (m *ReviewModel) Index() int {
	if m.Len() == 0 {
		return -1
	}
	return m.cur
}

// Current returns the event under the cursor.
func (m *ReviewModel) Current() (bleed.Event, bool) {
	if m.Len() == 0 {
		return bleed.Event{}, false
	}
	return m.events[m.cur], true
}

// Select moves the cursor to i. Out-of-range indices are ignored and report false.
func (m *ReviewModel) Select(i int) bool {
	if i < 0 || i >= m.Len() {
		return false
	}
	m.cur = i
	return true
}

// Next advances the cursor, stopping at the last event.
func (m *ReviewModel) Next() bool { return m.Select(m.Index() + 1) }

// Prev moves the cursor back, stopping at the first event.
func (m *ReviewModel) Prev() bool { return m.Select(m.Index() - 1) }

// Labels returns one selector label per event.
func (m *ReviewModel) Labels() []string {
	out := make([]string, m.Len())
	for i := range out {
		out[i] = Label(i, m.events[i])
	}
	return out
}

// Covered sums event durations in seconds.
func (m *ReviewModel) Covered() float64 {
	var sum float64
	for i := 0; i < m.Len(); i++ {
		sum += m.events[i].End - m.events[i].Start
	}
	return sum
}

// Label renders an event for the selector.
func Label(i int, ev bleed.Event) string {
	return fmt.Sprintf("#%d  %.2fs - %.2fs", i+1, ev.Start, ev.End)
}
