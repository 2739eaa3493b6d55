package capture

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// defaultSourceFPS is assumed when a container does not report its frame rate.
const defaultSourceFPS = 30.0

// PTSGate samples a stream by presentation time: a frame is taken once its timestamp
// reaches the next slot, and the following slot opens one interval after it.
type PTSGate struct {
	interval float64
	next     float64
}

// NewPTSGate returns a gate for the target fps. Non-positive fps takes every frame.
func NewPTSGate(fps float64) *PTSGate {
	g := &PTSGate{}
	if fps > 0 {
		g.interval = 1 / fps
	}
	return g
}

// Take reports whether the frame at pts (seconds) should be sampled.
func (g *PTSGate) Take(pts float64) bool {
	if pts < g.next {
		return false
	}
	g.next = pts + g.interval
	return true
}

// StepFor returns the decode-index stride approximating fps from a source rate:
// max(1, round(srcFPS/fps)), with srcFPS defaulting to 30 when unknown.
func StepFor(srcFPS, fps float64) int {
	if srcFPS <= 0 || math.IsNaN(srcFPS) {
		srcFPS = defaultSourceFPS
	}
	if fps <= 0 {
		return 1
	}
	step := int(math.RoundToEven(srcFPS / fps))
	if step < 1 {
		return 1
	}
	return step
}

// Downscale shrinks img to maxWidth preserving aspect ratio. Frames already narrow
// enough, or maxWidth <= 0, are returned unchanged. The source frame is recycled when
// a new one is produced.
func Downscale(img *image.RGBA, maxWidth int) *image.RGBA {
	if img == nil || maxWidth <= 0 || img.Rect.Dx() <= maxWidth {
		return img
	}
	n := imaging.Resize(img, maxWidth, 0, imaging.Box)
	RecycleFrame(img)
	// Frames are opaque, so non-premultiplied and premultiplied pixels coincide.
	return &image.RGBA{Pix: n.Pix, Stride: n.Stride, Rect: n.Rect}
}
