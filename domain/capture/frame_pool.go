package capture

import (
	"image"
	"image/draw"
	"sync"
)

// Reusable frame pool. Decoders hand out a fresh frame per sample and the session
// discards it as soon as its features are extracted, so backing slices are recycled
// instead of accumulating one allocation per sampled frame.
//
// Usage: AcquireFrame(rect) returns a *image.RGBA whose Pix slice capacity is at least
// rect area * 4. After consumers finish using the frame they call RecycleFrame(frame).
// If consumers never recycle, behaviour degrades to plain allocation.

var framePool sync.Pool // stores *image.RGBA

// AcquireFrame returns a reusable RGBA image sized to rect. The returned Pix length
// exactly matches rect area * 4, and Stride is width*4.
func AcquireFrame(rect image.Rectangle) *image.RGBA {
	w, h := rect.Dx(), rect.Dy()
	if w <= 0 || h <= 0 {
		return &image.RGBA{Rect: rect}
	}
	needed := w * h * 4
	var img *image.RGBA
	if v := framePool.Get(); v != nil {
		img = v.(*image.RGBA)
	}
	if img == nil || cap(img.Pix) < needed {
		img = &image.RGBA{Pix: make([]byte, needed), Stride: w * 4, Rect: rect}
	} else {
		img.Stride = w * 4
		img.Rect = rect
		img.Pix = img.Pix[:needed]
	}
	return img
}

// RecycleFrame returns the frame to the pool for potential reuse. The frame must no
// longer be accessed by the caller after invoking RecycleFrame.
func RecycleFrame(img *image.RGBA) {
	if img == nil || img.Pix == nil {
		return
	}
	framePool.Put(img)
}

// CopyRGBA copies packed RGBA rows (stride bytes apart) into a pooled frame anchored at 0,0.
func CopyRGBA(data []byte, w, h, stride int) *image.RGBA {
	img := AcquireFrame(image.Rect(0, 0, w, h))
	row := w * 4
	for y := 0; y < h; y++ {
		copy(img.Pix[y*row:(y+1)*row], data[y*stride:y*stride+row])
	}
	return img
}

// ToRGBA converts any image into a pooled RGBA frame anchored at 0,0.
func ToRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := AcquireFrame(image.Rect(0, 0, b.Dx(), b.Dy()))
	if rgba, ok := src.(*image.RGBA); ok && rgba.Stride == b.Dx()*4 {
		copy(dst.Pix, rgba.Pix[:len(dst.Pix)])
		return dst
	}
	draw.Draw(dst, dst.Rect, src, b.Min, draw.Src)
	return dst
}
