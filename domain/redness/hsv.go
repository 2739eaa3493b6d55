package redness

import (
	"image"
	"math"
)

// HSV converts an 8-bit RGB triple to the 8-bit HSV convention used by OpenCV:
// hue in half-degrees [0,180), saturation and value in [0,255].
func HSV(r, g, b uint8) (h, s, v uint8) {
	ri, gi, bi := int(r), int(g), int(b)
	vmax, vmin := ri, ri
	if gi > vmax {
		vmax = gi
	}
	if bi > vmax {
		vmax = bi
	}
	if gi < vmin {
		vmin = gi
	}
	if bi < vmin {
		vmin = bi
	}
	diff := vmax - vmin
	v = uint8(vmax)
	if vmax == 0 || diff == 0 {
		return 0, 0, v
	}
	s = uint8((diff*255 + vmax/2) / vmax)

	var num int
	switch vmax {
	case ri:
		num = gi - bi
	case gi:
		num = bi - ri + 2*diff
	default:
		num = ri - gi + 4*diff
	}
	hf := math.Floor(float64(num)*30/float64(diff) + 0.5)
	hi := int(hf)
	if hi < 0 {
		hi += 180
	}
	if hi >= 180 {
		hi -= 180
	}
	return uint8(hi), s, v
}

// Gray returns the luma of an RGB triple using fixed-point BT.601 weights.
func Gray(r, g, b uint8) uint8 {
	return uint8((int(r)*4899 + int(g)*9617 + int(b)*1868 + 8192) >> 14)
}

// GrayPlane converts an RGBA frame into a row-major grayscale plane.
func GrayPlane(img *image.RGBA) []uint8 {
	if img == nil {
		return nil
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	out := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			i := x * 4
			out[y*w+x] = Gray(row[i], row[i+1], row[i+2])
		}
	}
	return out
}
