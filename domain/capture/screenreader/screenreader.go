// Package screenreader samples a live screen region, for dry runs against a video
// playing in another window.
package screenreader

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/soocke/bleedscan-go/domain/capture"
	"github.com/vova616/screenshot"
)

// Name is the reader tag recorded on frames and in exported logs.
const Name = "screen"

// Reader captures Rect (or the full screen when empty) at the target fps for Duration.
// The src argument of Read is ignored.
type Reader struct {
	Rect     image.Rectangle
	Duration time.Duration
	logger   *slog.Logger
}

// New returns a screen reader.
func New(rect image.Rectangle, duration time.Duration, logger *slog.Logger) *Reader {
	return &Reader{Rect: rect, Duration: duration, logger: logger}
}

func (r *Reader) Name() string { return Name }

// grab returns a capture of the selection or, when empty, of the whole screen.
func (r *Reader) grab() (*image.RGBA, error) {
	if !r.Rect.Empty() {
		return screenshot.CaptureRect(r.Rect)
	}
	return screenshot.CaptureScreen()
}

func (r *Reader) Read(ctx context.Context, _ string, fps float64, fn capture.FrameFunc) error {
	if fps <= 0 {
		fps = 5
	}
	if r.Duration <= 0 {
		return fmt.Errorf("screen: non-positive capture duration")
	}
	interval := time.Duration(float64(time.Second) / fps)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	start := time.Now()
	for {
		elapsed := time.Since(start)
		if elapsed > r.Duration {
			return nil
		}
		shot, err := r.grab()
		if err != nil {
			return fmt.Errorf("screen: capture: %w", err)
		}
		img := capture.ToRGBA(shot)
		if err := fn(capture.Frame{T: elapsed.Seconds(), Image: img, Reader: Name}); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

var _ capture.Reader = (*Reader)(nil)
