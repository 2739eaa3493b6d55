package bleed

import "log/slog"

// Extractor is the two-state threshold-crossing automaton. Feed samples in time order,
// then call Finish to close a run still open at the end of the series.
type Extractor struct {
	params     Params
	minSamples int
	logger     *slog.Logger
	listeners  []StateListener

	state     State
	runStart  float64
	runLast   float64
	runLen    int
	runPeak   float64
	events    []Event
	discarded int
}

// NewExtractor constructs an extractor in the outside state.
func NewExtractor(p Params, logger *slog.Logger) *Extractor {
	return &Extractor{params: p, minSamples: p.MinSamples(), logger: logger, state: StateOutside}
}

// AddListener registers a transition callback.
func (x *Extractor) AddListener(l StateListener) {
	if l != nil {
		x.listeners = append(x.listeners, l)
	}
}

// Current returns the current state.
func (x *Extractor) Current() State { return x.state }

// Feed consumes one smoothed sample.
func (x *Extractor) Feed(t, v float64) {
	switch x.state {
	case StateOutside:
		if v > x.params.Threshold {
			x.runStart, x.runLast, x.runLen, x.runPeak = t, t, 1, v
			x.transition(StateInside, t)
		}
	case StateInside:
		if v > x.params.Threshold {
			x.runLast = t
			x.runLen++
			if v > x.runPeak {
				x.runPeak = v
			}
			return
		}
		x.closeRun()
		x.transition(StateOutside, t)
	}
}

// Finish closes any open run and returns every emitted event.
func (x *Extractor) Finish() []Event {
	if x.state == StateInside {
		x.closeRun()
		x.transition(StateOutside, x.runLast)
	}
	return x.events
}

// Discarded reports how many runs were shorter than the minimum duration.
func (x *Extractor) Discarded() int { return x.discarded }

func (x *Extractor) closeRun() {
	if x.runLen < x.minSamples {
		x.discarded++
		return
	}
	x.events = append(x.events, Event{
		Type:          EventType,
		Metric:        x.params.Metric,
		Threshold:     x.params.Threshold,
		MinDuration:   x.params.MinDuration,
		SmoothSeconds: x.params.SmoothSeconds,
		Peak:          x.runPeak,
		Start:         x.runStart,
		End:           x.runLast,
	})
}

func (x *Extractor) transition(next State, t float64) {
	prev := x.state
	if prev == next {
		return
	}
	x.state = next
	if x.logger != nil {
		x.logger.Debug("bleed state transition", "from", prev.String(), "to", next.String(), "t", t)
	}
	for _, l := range x.listeners {
		l(prev, next, t)
	}
}

// Extract runs the automaton over a complete series. times and values must be the same length.
func Extract(times, values []float64, p Params, logger *slog.Logger) []Event {
	x := NewExtractor(p, logger)
	n := len(values)
	if len(times) < n {
		n = len(times)
	}
	for i := 0; i < n; i++ {
		x.Feed(times[i], values[i])
	}
	return x.Finish()
}
