// Package cvreader decodes video files with OpenCV, sampling every Nth decoded frame.
package cvreader

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/soocke/bleedscan-go/domain/capture"
	"gocv.io/x/gocv"
)

// Name is the reader tag recorded on frames and in exported logs.
const Name = "opencv"

// Reader is the fallback decode backend. It also implements capture.FrameSeeker.
type Reader struct {
	logger *slog.Logger
}

// New returns an OpenCV reader.
func New(logger *slog.Logger) *Reader { return &Reader{logger: logger} }

func (r *Reader) Name() string { return Name }

// Read decodes src keeping frames whose decode index is a multiple of
// StepFor(source fps, fps). Timestamps come from the container position.
func (r *Reader) Read(ctx context.Context, src string, fps float64, fn capture.FrameFunc) error {
	vc, err := gocv.VideoCaptureFile(src)
	if err != nil {
		return fmt.Errorf("opencv: open %s: %w", src, err)
	}
	defer vc.Close()
	if !vc.IsOpened() {
		return fmt.Errorf("opencv: cannot open %s", src)
	}
	step := capture.StepFor(vc.Get(gocv.VideoCaptureFPS), fps)
	if r.logger != nil {
		r.logger.Debug("opencv: decode started", "src", src, "step", step)
	}

	mat := gocv.NewMat()
	defer mat.Close()
	rgba := gocv.NewMat()
	defer rgba.Close()

	for idx := 0; ; idx++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !vc.Read(&mat) || mat.Empty() {
			return nil
		}
		if idx%step != 0 {
			continue
		}
		t := vc.Get(gocv.VideoCapturePosMsec) / 1000.0
		img, err := toRGBA(mat, &rgba)
		if err != nil {
			return err
		}
		if err := fn(capture.Frame{T: t, Image: img, Reader: Name}); err != nil {
			return err
		}
	}
}

// FrameAt seeks src to t seconds and decodes one frame.
func (r *Reader) FrameAt(src string, t float64) (*image.RGBA, error) {
	vc, err := gocv.VideoCaptureFile(src)
	if err != nil {
		return nil, fmt.Errorf("opencv: open %s: %w", src, err)
	}
	defer vc.Close()
	if t > 0 {
		vc.Set(gocv.VideoCapturePosMsec, t*1000)
	}
	mat := gocv.NewMat()
	defer mat.Close()
	if !vc.Read(&mat) || mat.Empty() {
		return nil, fmt.Errorf("opencv: no frame at %.3fs in %s", t, src)
	}
	rgba := gocv.NewMat()
	defer rgba.Close()
	return toRGBA(mat, &rgba)
}

func toRGBA(bgr gocv.Mat, dst *gocv.Mat) (*image.RGBA, error) {
	gocv.CvtColor(bgr, dst, gocv.ColorBGRToRGBA)
	w, h := dst.Cols(), dst.Rows()
	data, err := dst.DataPtrUint8()
	if err != nil {
		return nil, fmt.Errorf("opencv: frame data: %w", err)
	}
	if len(data) < w*h*4 {
		return nil, fmt.Errorf("opencv: short frame %d bytes for %dx%d", len(data), w, h)
	}
	return capture.CopyRGBA(data, w, h, w*4), nil
}

var (
	_ capture.Reader      = (*Reader)(nil)
	_ capture.FrameSeeker = (*Reader)(nil)
)
