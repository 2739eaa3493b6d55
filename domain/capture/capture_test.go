package capture

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"testing"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// fakeReader emits n frames at 0.2s spacing, then fails with err (if set).
type fakeReader struct {
	name  string
	n     int
	err   error
	calls int
}

func (f *fakeReader) Name() string { return f.name }

func (f *fakeReader) Read(ctx context.Context, src string, fps float64, fn FrameFunc) error {
	f.calls++
	for i := 0; i < f.n; i++ {
		img := AcquireFrame(image.Rect(0, 0, 4, 4))
		if err := fn(Frame{T: float64(i) * 0.2, Image: img}); err != nil {
			return err
		}
	}
	return f.err
}

func TestChain_FallbackDiscardsPartialAttempt(t *testing.T) {
	primary := &fakeReader{name: "primary", n: 3, err: errors.New("decode exploded")}
	backup := &fakeReader{name: "backup", n: 5}
	chain := NewChain(discardLogger, primary, backup)

	var got []Frame
	var begins []string
	reader, err := chain.Read(context.Background(), "video.mp4", 5, func(name string) FrameFunc {
		begins = append(begins, name)
		got = nil
		return func(f Frame) error {
			got = append(got, f)
			return nil
		}
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reader != "backup" {
		t.Fatalf("expected backup reader, got %q", reader)
	}
	if len(begins) != 2 {
		t.Fatalf("expected two attempts, got %v", begins)
	}
	if len(got) != 5 {
		t.Fatalf("frames from failed attempt leaked: got %d frames", len(got))
	}
	for i, f := range got {
		if f.Reader != "backup" || f.Seq != uint64(i+1) {
			t.Fatalf("frame %d has reader=%q seq=%d", i, f.Reader, f.Seq)
		}
	}
	if s := chain.Stats(); s.Reader != "backup" || s.Frames != 5 || s.Err != nil {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestChain_ConsumerErrorDoesNotFallBack(t *testing.T) {
	primary := &fakeReader{name: "primary", n: 3}
	backup := &fakeReader{name: "backup", n: 3}
	chain := NewChain(nil, primary, backup)
	boom := errors.New("consumer failed")
	_, err := chain.Read(context.Background(), "x", 5, func(string) FrameFunc {
		return func(Frame) error { return boom }
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected consumer error, got %v", err)
	}
	if backup.calls != 0 {
		t.Fatalf("backup must not run after a consumer error")
	}
}

func TestChain_AllFailJoinsErrors(t *testing.T) {
	e1, e2 := errors.New("first"), errors.New("second")
	chain := NewChain(discardLogger, &fakeReader{name: "a", err: e1}, &fakeReader{name: "b", err: e2})
	_, err := chain.Read(context.Background(), "x", 5, func(string) FrameFunc {
		return func(Frame) error { return nil }
	})
	if !errors.Is(err, e1) || !errors.Is(err, e2) {
		t.Fatalf("expected joined errors, got %v", err)
	}
}

func TestChain_Empty(t *testing.T) {
	_, err := NewChain(nil).Read(context.Background(), "x", 5, nil)
	if !errors.Is(err, ErrNoReaders) {
		t.Fatalf("expected ErrNoReaders, got %v", err)
	}
}

func TestChain_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &fakeReader{name: "a", n: 1}
	_, err := NewChain(nil, r).Read(ctx, "x", 5, func(string) FrameFunc { return func(Frame) error { return nil } })
	if !errors.Is(err, context.Canceled) || r.calls != 0 {
		t.Fatalf("expected cancellation before any attempt, err=%v calls=%d", err, r.calls)
	}
}

func TestPTSGate_SamplesByPresentationTime(t *testing.T) {
	g := NewPTSGate(5)
	var taken []float64
	// 30 fps source for one second
	for i := 0; i < 30; i++ {
		pts := float64(i) / 30
		if g.Take(pts) {
			taken = append(taken, pts)
		}
	}
	if len(taken) != 5 {
		t.Fatalf("expected 5 samples in one second at 5fps, got %d (%v)", len(taken), taken)
	}
	if taken[0] != 0 {
		t.Fatalf("first frame must be taken")
	}
}

func TestStepFor(t *testing.T) {
	if StepFor(30, 5) != 6 {
		t.Fatalf("30/5 should step 6")
	}
	if StepFor(0, 5) != 6 {
		t.Fatalf("unknown source fps defaults to 30")
	}
	if StepFor(24, 50) != 1 {
		t.Fatalf("step floor is 1")
	}
	if StepFor(25, 10) != 2 {
		t.Fatalf("2.5 rounds half to even")
	}
}

func TestCopyRGBA_HonoursStride(t *testing.T) {
	w, h, stride := 2, 2, 12
	data := make([]byte, stride*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w*4; x++ {
			data[y*stride+x] = byte(10*y + x)
		}
	}
	img := CopyRGBA(data, w, h, stride)
	if img.Stride != 8 || img.Pix[8] != 10 || img.Pix[7] != 7 {
		t.Fatalf("unexpected copy: stride=%d pix=%v", img.Stride, img.Pix)
	}
}

func TestDownscale(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	if Downscale(img, 0) != img || Downscale(img, 64) != img {
		t.Fatalf("frames within width must be returned unchanged")
	}
	out := Downscale(image.NewRGBA(image.Rect(0, 0, 40, 20)), 10)
	if out.Rect.Dx() != 10 || out.Rect.Dy() != 5 {
		t.Fatalf("unexpected downscaled size %v", out.Rect)
	}
}
