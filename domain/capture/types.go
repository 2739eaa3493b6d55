package capture

import (
	"context"
	"errors"
	"image"
	"time"
)

// ErrNoReaders is returned by a Chain with nothing to try.
var ErrNoReaders = errors.New("capture: no frame readers configured")

// Frame is one sampled video frame. Image may come from the frame pool; consumers that
// are done with it should call RecycleFrame.
type Frame struct {
	Seq    uint64
	T      float64 // seconds from the start of the source, non-decreasing
	Image  *image.RGBA
	Reader string
}

// FrameFunc consumes frames in order. Returning an error stops the read.
type FrameFunc func(Frame) error

// Reader is a decoding backend that samples a source at approximately fps.
type Reader interface {
	Name() string
	Read(ctx context.Context, src string, fps float64, fn FrameFunc) error
}

// FrameSeeker fetches a single frame near a timestamp, used by review tooling.
type FrameSeeker interface {
	FrameAt(src string, t float64) (*image.RGBA, error)
}

// ReadStats summarises one read attempt for instrumentation.
type ReadStats struct {
	Reader  string
	Frames  uint64
	Bytes   uint64
	Elapsed time.Duration
	LastT   float64
	Err     error
}
