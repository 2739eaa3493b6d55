package bleed

// EventType is the type tag of every event the extractor emits.
const EventType = "bleed_candidate"

// State enumerates the extractor's two states.
type State int

const (
	StateOutside State = iota
	StateInside
)

func (s State) String() string {
	switch s {
	case StateOutside:
		return "outside"
	case StateInside:
		return "inside"
	default:
		return "unknown"
	}
}

// Event is one candidate interval. Start and End are the timestamps of the first and
// last above-threshold samples.
type Event struct {
	Type          string  `json:"type"`
	Metric        string  `json:"metric"`
	Threshold     float64 `json:"thr"`
	MinDuration   float64 `json:"k_s"`
	SmoothSeconds float64 `json:"smooth_s"`
	Peak          float64 `json:"delta_max"`
	Start         float64 `json:"start_sec"`
	End           float64 `json:"end_sec"`
}

// Params configures extraction.
type Params struct {
	Metric        string
	Threshold     float64
	MinDuration   float64 // seconds
	SmoothSeconds float64 // recorded on events only
	FPS           float64
}

// MinSamples is the shortest run, in samples, that becomes an event: round(k_s*fps), at least 1.
func (p Params) MinSamples() int {
	return WindowSize(p.MinDuration, p.FPS)
}

// StateListener is called on each state transition.
type StateListener func(prev, next State, t float64)
