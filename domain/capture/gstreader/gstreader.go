// Package gstreader decodes video files through a GStreamer pipeline and samples
// frames by presentation timestamp.
package gstreader

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/soocke/bleedscan-go/domain/capture"
	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"
)

// Name is the reader tag recorded on frames and in exported logs.
const Name = "gstreamer"

var initOnce sync.Once

// Reader is the preferred decode backend.
type Reader struct {
	logger *slog.Logger
}

// New returns a GStreamer reader.
func New(logger *slog.Logger) *Reader { return &Reader{logger: logger} }

func (r *Reader) Name() string { return Name }

type elements struct {
	pipeline *gst.Pipeline
	convert  *gst.Element
	sink     *app.Sink
}

// filesrc -> decodebin -> videoconvert -> capsfilter(RGBA) -> appsink
func (r *Reader) build(src string) (*elements, error) {
	initOnce.Do(func() { gst.Init(nil) })

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline: %w", err)
	}
	filesrc, err := gst.NewElement("filesrc")
	if err != nil {
		return nil, fmt.Errorf("failed to create filesrc: %w", err)
	}
	filesrc.SetProperty("location", src)
	decodebin, err := gst.NewElement("decodebin")
	if err != nil {
		return nil, fmt.Errorf("failed to create decodebin: %w", err)
	}
	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("failed to create videoconvert: %w", err)
	}
	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("failed to create capsfilter: %w", err)
	}
	capsfilter.SetProperty("caps", gst.NewCapsFromString("video/x-raw,format=RGBA"))
	sink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("failed to create appsink: %w", err)
	}
	// Offline decode: no clock sync and no drops, every buffer must be seen.
	sink.SetProperty("sync", false)

	pipeline.AddMany(filesrc, decodebin, convert, capsfilter, sink.Element)
	if err := filesrc.Link(decodebin); err != nil {
		return nil, fmt.Errorf("failed to link filesrc: %w", err)
	}
	if err := gst.ElementLinkMany(convert, capsfilter, sink.Element); err != nil {
		return nil, fmt.Errorf("failed to link convert chain: %w", err)
	}
	decodebin.Connect("pad-added", func(self *gst.Element, srcPad *gst.Pad) {
		sinkPad := convert.GetStaticPad("sink")
		if sinkPad == nil || sinkPad.IsLinked() {
			return
		}
		// Audio pads fail to link against videoconvert and are ignored.
		if ret := srcPad.Link(sinkPad); ret != gst.PadLinkOK && r.logger != nil {
			r.logger.Debug("gstreamer: pad not linked", "pad", srcPad.GetName(), "ret", ret)
		}
	})
	return &elements{pipeline: pipeline, convert: convert, sink: sink}, nil
}

// Read decodes src and calls fn for each sampled frame. It returns the first pipeline
// error reported on the bus, or nil at end of stream.
func (r *Reader) Read(ctx context.Context, src string, fps float64, fn capture.FrameFunc) error {
	el, err := r.build(src)
	if err != nil {
		return err
	}
	defer el.pipeline.SetState(gst.StateNull)
	if err := el.pipeline.SetState(gst.StatePlaying); err != nil {
		return fmt.Errorf("failed to start pipeline: %w", err)
	}
	bus := el.pipeline.GetPipelineBus()
	gate := capture.NewPTSGate(fps)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		sample := el.sink.PullSample()
		if sample == nil {
			if err := busError(bus); err != nil {
				return err
			}
			if el.sink.IsEOS() {
				return nil
			}
			return fmt.Errorf("gstreamer: appsink returned no sample")
		}
		frame, ok, err := r.toFrame(sample, gate)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := fn(frame); err != nil {
			return err
		}
	}
}

func (r *Reader) toFrame(sample *gst.Sample, gate *capture.PTSGate) (capture.Frame, bool, error) {
	buffer := sample.GetBuffer()
	if buffer == nil {
		return capture.Frame{}, false, nil
	}
	pts := time.Duration(buffer.PresentationTimestamp())
	if pts < 0 {
		return capture.Frame{}, false, nil
	}
	t := pts.Seconds()
	if !gate.Take(t) {
		return capture.Frame{}, false, nil
	}
	w, h, err := frameSize(sample)
	if err != nil {
		return capture.Frame{}, false, err
	}
	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	defer buffer.Unmap()
	if len(data) < w*h*4 || h == 0 {
		return capture.Frame{}, false, fmt.Errorf("gstreamer: short buffer %d bytes for %dx%d", len(data), w, h)
	}
	img := capture.CopyRGBA(data, w, h, len(data)/h)
	return capture.Frame{T: t, Image: img, Reader: Name}, true, nil
}

func frameSize(sample *gst.Sample) (int, int, error) {
	caps := sample.GetCaps()
	if caps == nil || caps.GetSize() == 0 {
		return 0, 0, fmt.Errorf("gstreamer: sample without caps")
	}
	st := caps.GetStructureAt(0)
	wv, err := st.GetValue("width")
	if err != nil {
		return 0, 0, fmt.Errorf("gstreamer: caps width: %w", err)
	}
	hv, err := st.GetValue("height")
	if err != nil {
		return 0, 0, fmt.Errorf("gstreamer: caps height: %w", err)
	}
	w, wok := wv.(int)
	h, hok := hv.(int)
	if !wok || !hok || w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("gstreamer: bad frame size %v x %v", wv, hv)
	}
	return w, h, nil
}

// busError drains pending bus messages and returns the first pipeline error, if any.
func busError(bus *gst.Bus) error {
	for {
		msg := bus.TimedPop(0)
		if msg == nil {
			return nil
		}
		if msg.Type() == gst.MessageError {
			gerr := msg.ParseError()
			return fmt.Errorf("gstreamer pipeline error: %s (%s)", gerr.Error(), gerr.DebugString())
		}
	}
}

var _ capture.Reader = (*Reader)(nil)
