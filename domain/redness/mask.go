package redness

import "image"

// Red hue sub-ranges on the 180-step scale. Red straddles the wrap point.
const (
	lowHueMax  = 10
	highHueMin = 170
)

// Classifier decides which pixels are red from saturation and value floors.
type Classifier struct {
	SMin uint8
	VMin uint8
}

// DefaultClassifier returns the standard floors (S >= 60, V >= 40).
func DefaultClassifier() Classifier { return Classifier{SMin: 60, VMin: 40} }

// NewClassifier clamps integer floors into the 8-bit range.
func NewClassifier(sMin, vMin int) Classifier {
	return Classifier{SMin: clamp8(sMin), VMin: clamp8(vMin)}
}

func clamp8(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// IsRedHSV reports whether an HSV sample is red.
func (c Classifier) IsRedHSV(h, s, v uint8) bool {
	if s < c.SMin || v < c.VMin {
		return false
	}
	return h <= lowHueMax || (h >= highHueMin && h <= 179)
}

// IsRed reports whether an RGB sample is red.
func (c Classifier) IsRed(r, g, b uint8) bool {
	h, s, v := HSV(r, g, b)
	return c.IsRedHSV(h, s, v)
}

// Classify returns the red mask of img intersected with roi. A nil roi keeps every pixel.
// roi must match the frame dimensions when set.
func (c Classifier) Classify(img *image.RGBA, roi *Mask) *Mask {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	bits := make([]bool, w*h)
	n := 0
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			idx := y*w + x
			if roi != nil && !roi.bits[idx] {
				continue
			}
			i := x * 4
			if c.IsRed(row[i], row[i+1], row[i+2]) {
				bits[idx] = true
				n++
			}
		}
	}
	return &Mask{w: w, h: h, bits: bits, count: n}
}
