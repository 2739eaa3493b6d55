package metrics

import (
	"fmt"
	"image"

	"github.com/soocke/bleedscan-go/domain/redness"
)

// ROIBuilder builds the session ROI from the first frame's height and width.
// Returning nil disables the ROI.
type ROIBuilder func(h, w int) *redness.Mask

// CircleROI returns a builder for the circular ROI with the given margin.
func CircleROI(margin float64) ROIBuilder {
	return func(h, w int) *redness.Mask { return redness.CircularROI(h, w, margin) }
}

// NoROI disables the ROI so every pixel counts.
func NoROI(h, w int) *redness.Mask { return nil }

// Fold is the accumulator threaded through a session's frames. Each call to Next consumes
// one frame and returns the successor; the previous frame's features live only in the
// accumulator handed to the next step. Accumulators are linear: keep only the latest one,
// since successors share the sample slice.
type Fold struct {
	engine   Engine
	buildROI ROIBuilder
	roi      *redness.Mask
	started  bool
	prev     *Features
	samples  []Sample
}

// NewFold returns the empty accumulator for a session.
func NewFold(engine Engine, buildROI ROIBuilder) Fold {
	if buildROI == nil {
		buildROI = NoROI
	}
	return Fold{engine: engine, buildROI: buildROI}
}

// Next consumes one frame. The ROI is fixed from the first frame; later frames must
// share its dimensions.
func (f Fold) Next(img *image.RGBA, t float64) (Fold, error) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if !f.started {
		f.roi = f.buildROI(h, w)
		f.started = true
	} else if f.prev != nil && (f.prev.W != w || f.prev.H != h) {
		return f, fmt.Errorf("frame size changed mid-session: %dx%d -> %dx%d", f.prev.W, f.prev.H, w, h)
	}
	cur := f.engine.Extract(img, t, f.roi)
	s := f.engine.Step(f.prev, cur)
	f.samples = append(f.samples, s)
	f.prev = cur
	return f, nil
}

// Samples returns the accumulated samples.
func (f Fold) Samples() []Sample { return f.samples }

// Len returns the number of frames consumed.
func (f Fold) Len() int { return len(f.samples) }

// ROI returns the session ROI, nil until the first frame or when disabled.
func (f Fold) ROI() *redness.Mask { return f.roi }

// Variant reports the engine variant.
func (f Fold) Variant() Variant { return f.engine.Variant() }
