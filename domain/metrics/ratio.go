package metrics

import (
	"image"

	"github.com/soocke/bleedscan-go/domain/redness"
)

// RatioEngine emits the red area ratio and its frame-to-frame delta.
type RatioEngine struct{ params Params }

func (e *RatioEngine) Variant() Variant { return VariantRatio }

func (e *RatioEngine) Extract(img *image.RGBA, t float64, roi *redness.Mask) *Features {
	f := baseFeatures(e.params.Classifier, img, t, roi)
	f.Red = nil // only the ratio survives to the next step
	return f
}

func (e *RatioEngine) Step(prev, cur *Features) Sample {
	s := Sample{T: cur.T, RedRatio: cur.RedRatio}
	if prev != nil {
		s.Delta = cur.RedRatio - prev.RedRatio
	}
	return s
}

var _ Engine = (*RatioEngine)(nil)
