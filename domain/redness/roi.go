package redness

// Mask is an immutable boolean grid with a cached true count. A nil *Mask used
// as an ROI means "every pixel".
type Mask struct {
	w, h  int
	bits  []bool
	count int
}

func newMask(w, h int, bits []bool) *Mask {
	n := 0
	for _, b := range bits {
		if b {
			n++
		}
	}
	return &Mask{w: w, h: h, bits: bits, count: n}
}

// Width returns the mask width in pixels.
func (m *Mask) Width() int { return m.w }

// Height returns the mask height in pixels.
func (m *Mask) Height() int { return m.h }

// Count returns the number of true pixels.
func (m *Mask) Count() int {
	if m == nil {
		return 0
	}
	return m.count
}

// At reports whether (x, y) is set. Out of range coordinates are false.
func (m *Mask) At(x, y int) bool {
	if m == nil || x < 0 || y < 0 || x >= m.w || y >= m.h {
		return false
	}
	return m.bits[y*m.w+x]
}

// Index reports the value at the flat row-major index i.
func (m *Mask) Index(i int) bool { return m.bits[i] }

// CircularROI builds the centered circular region of interest for an h x w frame.
// Center is (h/2, w/2) and radius min(h, w) * (0.5 - margin); the boundary is inclusive.
// A margin of 0.5 or more yields an empty mask.
func CircularROI(h, w int, margin float64) *Mask {
	if h < 0 {
		h = 0
	}
	if w < 0 {
		w = 0
	}
	bits := make([]bool, w*h)
	short := h
	if w < short {
		short = w
	}
	radius := float64(short) * (0.5 - margin)
	if margin >= 0.5 || radius <= 0 {
		return &Mask{w: w, h: h, bits: bits}
	}
	cy, cx := float64(h)/2, float64(w)/2
	r2 := radius * radius
	for y := 0; y < h; y++ {
		dy := float64(y) - cy
		for x := 0; x < w; x++ {
			dx := float64(x) - cx
			if dx*dx+dy*dy <= r2 {
				bits[y*w+x] = true
			}
		}
	}
	return newMask(w, h, bits)
}
