package metrics

import (
	"fmt"
	"image"

	"github.com/soocke/bleedscan-go/domain/redness"
)

// Variant identifies which metric engine produced a series.
type Variant int

const (
	VariantRatio Variant = iota
	VariantExpansion
	VariantSpread
)

func (v Variant) String() string {
	switch v {
	case VariantRatio:
		return "ratio"
	case VariantExpansion:
		return "expansion"
	case VariantSpread:
		return "spread"
	default:
		return "unknown"
	}
}

// ParseVariant maps a config name onto a Variant.
func ParseVariant(name string) (Variant, error) {
	switch name {
	case "ratio", "":
		return VariantRatio, nil
	case "expansion":
		return VariantExpansion, nil
	case "spread":
		return VariantSpread, nil
	}
	return VariantRatio, fmt.Errorf("unknown variant %q", name)
}

// MetricName is the event "metric" label for the variant's smoothed signal.
func (v Variant) MetricName() string {
	switch v {
	case VariantExpansion:
		return "red_expansion"
	case VariantSpread:
		return "spread_score"
	default:
		return "red_ratio"
	}
}

// VariantForMetric is the inverse of MetricName.
func VariantForMetric(metric string) (Variant, bool) {
	for _, v := range []Variant{VariantRatio, VariantExpansion, VariantSpread} {
		if v.MetricName() == metric {
			return v, true
		}
	}
	return VariantRatio, false
}

// Signal returns the raw scalar a variant smooths and thresholds.
func (v Variant) Signal(s Sample) float64 {
	switch v {
	case VariantExpansion:
		return s.RedExpansion
	case VariantSpread:
		return s.SpreadScore
	default:
		return s.Delta
	}
}

// Sample is one per-timestamp record. Only the fields of the producing variant are meaningful.
type Sample struct {
	T        float64
	RedRatio float64

	// ratio
	Delta float64

	// expansion
	NewlyRedRatio float64
	BgStability   float64
	RedExpansion  float64

	// spread
	MaxCellDelta float64
	DeltaStd     float64
	SpreadScore  float64
	NRisingCells int
}

// Series is a full session of samples with its smoothed signal.
type Series struct {
	Variant  Variant
	Reader   string
	FPS      float64
	Samples  []Sample
	Smoothed []float64
}

// Times returns the sample timestamps.
func (s *Series) Times() []float64 {
	out := make([]float64, len(s.Samples))
	for i, x := range s.Samples {
		out[i] = x.T
	}
	return out
}

// Signal returns the raw signal column of the series' variant.
func (s *Series) Signal() []float64 {
	out := make([]float64, len(s.Samples))
	for i, x := range s.Samples {
		out[i] = s.Variant.Signal(x)
	}
	return out
}

// Features holds the per-frame derived state an engine needs for pair differencing.
// Only the fields of the producing engine are populated.
type Features struct {
	T        float64
	W, H     int
	ROI      *redness.Mask
	Red      *redness.Mask
	Total    int
	RedRatio float64
	Gray     []uint8
	Cells    []float64
}

// Engine turns frames into features and consecutive feature pairs into samples.
// Step receives a nil prev for the first frame of a session.
type Engine interface {
	Variant() Variant
	Extract(img *image.RGBA, t float64, roi *redness.Mask) *Features
	Step(prev, cur *Features) Sample
}

// Params carries the tunables shared by all engines.
type Params struct {
	Classifier   redness.Classifier
	BgNormFactor float64
	GridSize     int
}

// DefaultParams returns the standard engine parameters.
func DefaultParams() Params {
	return Params{Classifier: redness.DefaultClassifier(), BgNormFactor: 30.0, GridSize: 8}
}

// NewEngine constructs the engine for a variant.
func NewEngine(v Variant, p Params) Engine {
	if p.BgNormFactor <= 0 {
		p.BgNormFactor = 30.0
	}
	if p.GridSize <= 0 {
		p.GridSize = 8
	}
	switch v {
	case VariantExpansion:
		return &ExpansionEngine{params: p}
	case VariantSpread:
		return &SpreadEngine{params: p}
	default:
		return &RatioEngine{params: p}
	}
}

// baseFeatures classifies the frame and applies the shared denominator rule.
func baseFeatures(c redness.Classifier, img *image.RGBA, t float64, roi *redness.Mask) *Features {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	red := c.Classify(img, roi)
	total := w * h
	if roi != nil {
		total = roi.Count()
	}
	f := &Features{T: t, W: w, H: h, ROI: roi, Red: red, Total: total}
	if total > 0 {
		f.RedRatio = float64(red.Count()) / float64(total)
	}
	return f
}

func inROI(roi *redness.Mask, i int) bool { return roi == nil || roi.Index(i) }
