package images

import (
	"image"
	"image/color"
	"testing"

	"github.com/soocke/bleedscan-go/domain/redness"
)

func synthFrame(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func applyRegion(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func TestOverlay_TintsRedAndOutlinesROI(t *testing.T) {
	frame := synthFrame(40, 40, color.RGBA{G: 120, A: 255})
	applyRegion(frame, image.Rect(18, 18, 22, 22), color.RGBA{R: 200, G: 10, B: 10, A: 255})
	roi := redness.CircularROI(40, 40, 0.25)
	red := redness.DefaultClassifier().Classify(frame, roi)
	if red.Count() != 16 {
		t.Fatalf("expected 16 red pixels, got %d", red.Count())
	}
	out := Overlay(frame, red, roi)
	if out == frame {
		t.Fatalf("overlay must not alias the input")
	}
	if got := out.RGBAAt(20, 20); got.B == 10 || got.R == 200 {
		t.Fatalf("red pixel not tinted: %v", got)
	}
	if frame.RGBAAt(20, 20).R != 200 {
		t.Fatalf("input frame modified")
	}
	if got := out.RGBAAt(20, 10); got != outlineColor {
		t.Fatalf("expected outline at top of circle, got %v", got)
	}
	if got := out.RGBAAt(0, 0); got != (color.RGBA{G: 120, A: 255}) {
		t.Fatalf("pixel outside roi changed: %v", got)
	}
}

func TestCropToMask(t *testing.T) {
	frame := synthFrame(40, 30, color.RGBA{A: 255})
	roi := redness.CircularROI(30, 40, 0.1)
	crop := CropToMask(frame, roi)
	// radius 12 around (20,15), boundary inclusive
	if r := crop.Bounds(); r != image.Rect(8, 3, 33, 28) {
		t.Fatalf("expected crop (8,3)-(33,28), got %v", r)
	}
	if b := Bounds(roi); b != image.Rect(8, 3, 33, 28) {
		t.Fatalf("unexpected mask bounds %v", b)
	}
	if b := Bounds(redness.CircularROI(30, 40, 0.5)); !b.Empty() {
		t.Fatalf("empty mask should have empty bounds, got %v", b)
	}
	if CropToMask(frame, redness.CircularROI(30, 40, 0.5)) != frame {
		t.Fatalf("empty mask should leave frame uncropped")
	}
	if CropToMask(frame, nil) != frame {
		t.Fatalf("nil mask should leave frame uncropped")
	}
}

func TestScaleToFit(t *testing.T) {
	src := synthFrame(400, 200, color.RGBA{R: 50, A: 255})
	out := ScaleToFit(src, 100, 100)
	if b := out.Bounds(); b.Dx() != 100 || b.Dy() != 50 {
		t.Fatalf("expected 100x50, got %v", b)
	}
	if r, _, _, _ := out.At(50, 25).RGBA(); r>>8 != 50 {
		t.Fatalf("uniform colour not preserved: %d", r>>8)
	}
	small := synthFrame(10, 10, color.RGBA{})
	if ScaleToFit(small, 100, 100) != image.Image(small) {
		t.Fatalf("image that fits should be returned as is")
	}
	if len(EncodePNG(out)) == 0 {
		t.Fatalf("png encoding failed")
	}
}
