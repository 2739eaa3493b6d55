package images

import (
	"image"
	"image/color"

	"github.com/soocke/bleedscan-go/domain/redness"
)

var (
	tintColor    = color.RGBA{R: 255, G: 0, B: 255, A: 255}
	outlineColor = color.RGBA{R: 0, G: 220, B: 255, A: 255}
)

// Overlay returns a copy of frame with classified red pixels tinted and the ROI boundary
// outlined. Either mask may be nil.
func Overlay(frame *image.RGBA, red, roi *redness.Mask) *image.RGBA {
	if frame == nil {
		return nil
	}
	b := frame.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		copy(out.Pix[y*out.Stride:y*out.Stride+b.Dx()*4], frame.Pix[frame.PixOffset(b.Min.X, b.Min.Y+y):][:b.Dx()*4])
	}
	if red != nil && red.Width() == b.Dx() && red.Height() == b.Dy() {
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				if red.At(x, y) {
					blend(out, x, y, tintColor)
				}
			}
		}
	}
	if roi != nil && roi.Width() == b.Dx() && roi.Height() == b.Dy() {
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				if onEdge(roi, x, y) {
					out.SetRGBA(x, y, outlineColor)
				}
			}
		}
	}
	return out
}

// blend mixes c into the pixel at half strength.
func blend(img *image.RGBA, x, y int, c color.RGBA) {
	i := img.PixOffset(x, y)
	p := img.Pix[i : i+3 : i+3]
	p[0] = uint8((uint16(p[0]) + uint16(c.R)) / 2)
	p[1] = uint8((uint16(p[1]) + uint16(c.G)) / 2)
	p[2] = uint8((uint16(p[2]) + uint16(c.B)) / 2)
}

// onEdge reports an inside pixel with at least one 4-neighbour outside the mask.
func onEdge(m *redness.Mask, x, y int) bool {
	if !m.At(x, y) {
		return false
	}
	return !m.At(x-1, y) || !m.At(x+1, y) || !m.At(x, y-1) || !m.At(x, y+1)
}

// Bounds returns the bounding rectangle of the set pixels of m, or an empty rectangle.
func Bounds(m *redness.Mask) image.Rectangle {
	if m.Count() == 0 {
		return image.Rectangle{}
	}
	r := image.Rectangle{Min: image.Pt(m.Width(), m.Height())}
	for y := 0; y < m.Height(); y++ {
		for x := 0; x < m.Width(); x++ {
			if !m.At(x, y) {
				continue
			}
			r.Min.X = min(r.Min.X, x)
			r.Min.Y = min(r.Min.Y, y)
			r.Max.X = max(r.Max.X, x+1)
			r.Max.Y = max(r.Max.Y, y+1)
		}
	}
	return r
}

// CropToMask crops img to the bounding box of m. An empty or mismatched mask returns img.
func CropToMask(img *image.RGBA, m *redness.Mask) *image.RGBA {
	if img == nil || m == nil || m.Width() != img.Bounds().Dx() || m.Height() != img.Bounds().Dy() {
		return img
	}
	r := Bounds(m)
	if r.Empty() {
		return img
	}
	return img.SubImage(r.Add(img.Bounds().Min)).(*image.RGBA)
}
