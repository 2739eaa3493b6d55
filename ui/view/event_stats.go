package view

import (
	"fmt"

	//lint:ignore ST1001 Dot import for concise Tk widget DSL.
	. "modernc.org/tk9.0"
)

// EventStats shows the event count and the total flagged duration.
type EventStats interface {
	Set(count int, coveredSeconds float64)
}

type eventStats struct {
	countLbl   *LabelWidget
	coveredLbl *LabelWidget
}

// NewEventStats places the count label at (row, startCol) and the duration label next to it.
func NewEventStats(parent *FrameWidget, row, startCol int) EventStats {
	s := &eventStats{countLbl: Label(Width(12)), coveredLbl: Label(Width(16))}
	if parent != nil {
		Grid(s.countLbl, In(parent), Row(row), Column(startCol), Sticky("w"), Padx("0.2m"))
		Grid(s.coveredLbl, In(parent), Row(row), Column(startCol+1), Sticky("w"), Padx("0.2m"))
	} else {
		Grid(s.countLbl, Row(row), Column(startCol), Sticky("w"), Padx("0.2m"))
		Grid(s.coveredLbl, Row(row), Column(startCol+1), Sticky("w"), Padx("0.2m"))
	}
	s.Set(0, 0)
	return s
}

func (s *eventStats) Set(count int, covered float64) {
	if s == nil || s.countLbl == nil {
		return
	}
	s.countLbl.Configure(Txt(fmt.Sprintf("Events: %d", count)))
	seconds := int(covered + 0.5)
	s.coveredLbl.Configure(Txt(fmt.Sprintf("Flagged: %02d:%02d", seconds/60, seconds%60)))
}
