package metrics

import (
	"image"
	"math"

	"github.com/soocke/bleedscan-go/domain/redness"
)

// ExpansionEngine scores newly red pixels weighted by how still the non-red background is.
type ExpansionEngine struct{ params Params }

func (e *ExpansionEngine) Variant() Variant { return VariantExpansion }

func (e *ExpansionEngine) Extract(img *image.RGBA, t float64, roi *redness.Mask) *Features {
	f := baseFeatures(e.params.Classifier, img, t, roi)
	f.Gray = redness.GrayPlane(img)
	return f
}

func (e *ExpansionEngine) Step(prev, cur *Features) Sample {
	s := Sample{T: cur.T, RedRatio: cur.RedRatio, BgStability: 1}
	if prev == nil || cur.Total == 0 {
		return s
	}
	n := cur.W * cur.H
	newly, bgCount := 0, 0
	bgSum := 0
	for i := 0; i < n; i++ {
		if !inROI(cur.ROI, i) {
			continue
		}
		pr, cr := prev.Red.Index(i), cur.Red.Index(i)
		if cr && !pr {
			newly++
		}
		if !cr && !pr {
			d := int(cur.Gray[i]) - int(prev.Gray[i])
			if d < 0 {
				d = -d
			}
			bgSum += d
			bgCount++
		}
	}
	bgDiff := 0.0
	if bgCount > 0 {
		bgDiff = float64(bgSum) / float64(bgCount)
	}
	s.NewlyRedRatio = float64(newly) / float64(cur.Total)
	s.BgStability = 1 - math.Min(bgDiff/e.params.BgNormFactor, 1)
	s.RedExpansion = s.NewlyRedRatio * s.BgStability
	return s
}

var _ Engine = (*ExpansionEngine)(nil)
