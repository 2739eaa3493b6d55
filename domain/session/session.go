// Package session runs the two passes of a screening session: record (frames to a
// metric series) and annotate (series to candidate events).
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/soocke/bleedscan-go/domain/bleed"
	"github.com/soocke/bleedscan-go/domain/capture"
	"github.com/soocke/bleedscan-go/domain/metrics"
)

// ErrNoFrames reports that the source yielded no frames; callers should skip output.
var ErrNoFrames = errors.New("session: no frames obtained from source")

// defaultFPS is assumed when a series does not carry a usable sampling rate.
const defaultFPS = 5.0

// Source delivers frames with fallback across backends. *capture.Chain implements it.
type Source interface {
	Read(ctx context.Context, src string, fps float64, begin capture.BeginFunc) (string, error)
}

// Options configures the record pass.
type Options struct {
	Variant       metrics.Variant
	Params        metrics.Params
	FPS           float64
	ROIMargin     float64
	NoROI         bool
	MaxWidth      int
	SmoothSeconds float64
}

// AnnotateOptions configures the annotate pass.
type AnnotateOptions struct {
	Threshold     float64
	MinDuration   float64
	SmoothSeconds float64
	// Resmooth recomputes the smoothed column from the raw signal instead of reusing it.
	Resmooth bool
}

// Result is a finished session.
type Result struct {
	ID      string
	Source  string
	Series  *metrics.Series
	Events  []bleed.Event
	Elapsed time.Duration
}

// Recorder runs the record pass.
type Recorder struct {
	source Source
	opts   Options
	logger *slog.Logger
}

// NewRecorder constructs a recorder.
func NewRecorder(source Source, opts Options, logger *slog.Logger) *Recorder {
	if opts.FPS <= 0 {
		opts.FPS = defaultFPS
	}
	return &Recorder{source: source, opts: opts, logger: logger}
}

func (r *Recorder) roiBuilder() metrics.ROIBuilder {
	if r.opts.NoROI {
		return metrics.NoROI
	}
	return metrics.CircleROI(r.opts.ROIMargin)
}

// Record samples src and returns its series with the smoothed signal. Every fallback
// attempt starts a fresh fold, so only the completing reader's frames are kept.
func (r *Recorder) Record(ctx context.Context, src string) (*metrics.Series, error) {
	engine := metrics.NewEngine(r.opts.Variant, r.opts.Params)
	buildROI := r.roiBuilder()
	var fold metrics.Fold
	reader, err := r.source.Read(ctx, src, r.opts.FPS, func(name string) capture.FrameFunc {
		fold = metrics.NewFold(engine, buildROI)
		return func(f capture.Frame) error {
			img := capture.Downscale(f.Image, r.opts.MaxWidth)
			next, err := fold.Next(img, f.T)
			capture.RecycleFrame(img)
			if err != nil {
				return err
			}
			fold = next
			return nil
		}
	})
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", src, err)
	}
	if fold.Len() == 0 {
		return nil, ErrNoFrames
	}
	series := &metrics.Series{
		Variant: r.opts.Variant,
		Reader:  reader,
		FPS:     r.opts.FPS,
		Samples: fold.Samples(),
	}
	series.Smoothed = bleed.Smooth(series.Signal(), bleed.WindowSize(r.opts.SmoothSeconds, r.opts.FPS))
	if r.logger != nil {
		r.logger.Info("series recorded", "src", src, "reader", reader, "variant", series.Variant.String(), "samples", len(series.Samples))
	}
	return series, nil
}

// EstimateFPS infers the sampling rate from the first two timestamps, falling back to 5.
func EstimateFPS(times []float64) float64 {
	if len(times) < 2 {
		return defaultFPS
	}
	dt := times[1] - times[0]
	if dt <= 0 {
		return defaultFPS
	}
	return 1 / dt
}

// Annotate segments a recorded series into candidate events.
func Annotate(series *metrics.Series, opts AnnotateOptions, logger *slog.Logger) []bleed.Event {
	if series == nil || len(series.Samples) == 0 {
		return nil
	}
	times := series.Times()
	fps := series.FPS
	if fps <= 0 {
		fps = EstimateFPS(times)
	}
	signal := series.Smoothed
	if opts.Resmooth || len(signal) != len(times) {
		signal = bleed.Smooth(series.Signal(), bleed.WindowSize(opts.SmoothSeconds, fps))
		series.Smoothed = signal
	}
	events := bleed.Extract(times, signal, bleed.Params{
		Metric:        series.Variant.MetricName(),
		Threshold:     opts.Threshold,
		MinDuration:   opts.MinDuration,
		SmoothSeconds: opts.SmoothSeconds,
		FPS:           fps,
	}, logger)
	if logger != nil {
		logger.Info("series annotated", "variant", series.Variant.String(), "fps", fps, "thr", opts.Threshold, "k_s", opts.MinDuration, "events", len(events))
	}
	return events
}

// Run records src and annotates the result under a fresh session id.
func Run(ctx context.Context, rec *Recorder, src string, opts AnnotateOptions, logger *slog.Logger) (*Result, error) {
	id := uuid.NewString()
	if logger != nil {
		logger = logger.With("session", id)
	}
	start := time.Now()
	r := &Recorder{source: rec.source, opts: rec.opts, logger: logger}
	series, err := r.Record(ctx, src)
	if err != nil {
		return nil, err
	}
	if opts.SmoothSeconds == 0 {
		opts.SmoothSeconds = rec.opts.SmoothSeconds
	}
	events := Annotate(series, opts, logger)
	return &Result{ID: id, Source: src, Series: series, Events: events, Elapsed: time.Since(start)}, nil
}
