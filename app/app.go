// Package app wires configuration, frame sources and exporters into the commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/soocke/bleedscan-go/domain/action"
	"github.com/soocke/bleedscan-go/domain/bleed"
	"github.com/soocke/bleedscan-go/domain/metrics"
	"github.com/soocke/bleedscan-go/domain/session"
	"github.com/soocke/bleedscan-go/export"
)

// App runs the command-line operations over a container.
type App struct {
	c      *Container
	logger *slog.Logger
}

func New(c *Container) *App { return &App{c: c, logger: c.Logger} }

// outDir returns the configured output directory, or the directory of src.
func (a *App) outDir(src string) string {
	if a.c.Config.OutDir != "" {
		return a.c.Config.OutDir
	}
	return filepath.Dir(src)
}

// Record samples each video and writes its series CSV. Videos without frames are
// skipped with a warning.
func (a *App) Record(ctx context.Context, videos []string) error {
	rec := session.NewRecorder(a.c.Chain, a.c.RecordOptions(), a.logger)
	for _, video := range videos {
		series, err := rec.Record(ctx, video)
		if errors.Is(err, session.ErrNoFrames) {
			a.logger.Warn("no frames, skipping", "video", video)
			continue
		}
		if err != nil {
			return err
		}
		names := export.NamesFor(a.outDir(video), export.Stem(video), series.Variant)
		if err := writeFile(names.CSV, func(f *os.File) error { return export.WriteSeries(f, series) }); err != nil {
			return err
		}
		a.logger.Info("series written", "video", video, "csv", names.CSV)
	}
	return nil
}

// Annotate segments previously recorded series CSVs and writes events next to them.
func (a *App) Annotate(ctx context.Context, csvs []string) error {
	for _, path := range csvs {
		if err := ctx.Err(); err != nil {
			return err
		}
		series, err := readSeries(path)
		if err != nil {
			return err
		}
		events := session.Annotate(series, a.c.AnnotateOptions(series.Variant), a.logger)
		names := export.NamesFor(a.outDir(path), export.StemFromCSV(path), series.Variant)
		if err := a.writeEvents(names, events); err != nil {
			return err
		}
	}
	return nil
}

// Analyze records and annotates each video, writing every configured output and
// publishing the events.
func (a *App) Analyze(ctx context.Context, videos []string) error {
	cfg := a.c.Config
	rec := session.NewRecorder(a.c.Chain, a.c.RecordOptions(), a.logger)
	opts := a.c.AnnotateOptions(a.c.Variant())
	for _, video := range videos {
		res, err := session.Run(ctx, rec, video, opts, a.logger)
		if errors.Is(err, session.ErrNoFrames) {
			a.logger.Warn("no frames, skipping", "video", video)
			continue
		}
		if err != nil {
			return err
		}
		names := export.NamesFor(a.outDir(video), export.Stem(video), res.Series.Variant)
		if err := writeFile(names.CSV, func(f *os.File) error { return export.WriteSeries(f, res.Series) }); err != nil {
			return err
		}
		if err := a.writeEvents(names, res.Events); err != nil {
			return err
		}
		if cfg.Archive {
			arc := export.NewArchive(res.ID, video, res.Series, res.Events, export.ArchiveParams{
				Threshold:     opts.Threshold,
				MinDuration:   opts.MinDuration,
				SmoothSeconds: opts.SmoothSeconds,
			})
			if err := writeFile(names.Archive, func(f *os.File) error { return export.WriteArchive(f, arc) }); err != nil {
				return err
			}
		}
		if cfg.Plot {
			if err := writeFile(names.Plot, func(f *os.File) error {
				return export.WriteChart(f, filepath.Base(video), res.Series, res.Events, opts.Threshold)
			}); err != nil {
				return err
			}
		}
		if err := action.PublishAll(ctx, a.c.Publisher, res.ID, video, res.Events); err != nil {
			a.logger.Warn("event publishing incomplete", "session", res.ID, "error", err)
		}
		a.logger.Info("session complete",
			"session", res.ID,
			"video", video,
			"reader", res.Series.Reader,
			"samples", humanize.Comma(int64(len(res.Series.Samples))),
			"events", len(res.Events),
			"elapsed", res.Elapsed.Round(time.Millisecond).String(),
		)
	}
	return nil
}

func (a *App) writeEvents(names export.Names, events []bleed.Event) error {
	if err := writeFile(names.JSONL, func(f *os.File) error { return export.WriteEvents(f, events) }); err != nil {
		return err
	}
	recs := make([]export.Record, len(events))
	for i, ev := range events {
		recs[i] = export.NewRecord(ev)
	}
	if err := writeFile(names.SRT, func(f *os.File) error {
		return export.WriteSRT(f, export.RecordsToSRT(recs, bleed.EventType))
	}); err != nil {
		return err
	}
	a.logger.Info("events written", "jsonl", names.JSONL, "srt", names.SRT, "events", len(events))
	return nil
}

// JSONLToSRT converts an events file into subtitles, keeping only eventType when set.
func (a *App) JSONLToSRT(in, out, eventType string) error {
	f, err := os.Open(in)
	if err != nil {
		return err
	}
	defer f.Close()
	recs, err := export.ReadRecords(f, a.logger)
	if err != nil {
		return fmt.Errorf("read %s: %w", in, err)
	}
	return writeFile(out, func(w *os.File) error { return export.WriteSRT(w, export.RecordsToSRT(recs, eventType)) })
}

// SRTToJSONL recovers events from edited subtitles.
func (a *App) SRTToJSONL(in, out string) error {
	f, err := os.Open(in)
	if err != nil {
		return err
	}
	defer f.Close()
	recs, err := export.SRTToRecords(f, a.logger)
	if err != nil {
		return fmt.Errorf("read %s: %w", in, err)
	}
	return writeFile(out, func(w *os.File) error { return export.WriteRecords(w, recs) })
}

// MergeSRT merges subtitle files into out, ordered by start time.
func (a *App) MergeSRT(out string, ins []string) error {
	var lists [][]export.Entry
	for _, in := range ins {
		f, err := os.Open(in)
		if err != nil {
			return err
		}
		entries, err := export.ReadSRT(f, a.logger)
		f.Close()
		if err != nil {
			return fmt.Errorf("read %s: %w", in, err)
		}
		lists = append(lists, entries)
	}
	return writeFile(out, func(w *os.File) error { return export.WriteSRT(w, export.MergeSRT(lists...)) })
}

// CSVToSRT renders a series CSV as per-sample subtitles of the given columns.
func (a *App) CSVToSRT(in, out string, columns []string) error {
	series, err := readSeries(in)
	if err != nil {
		return err
	}
	entries, err := export.SeriesToSRT(series, columns)
	if err != nil {
		return err
	}
	return writeFile(out, func(w *os.File) error { return export.WriteSRT(w, entries) })
}

// Plot renders a series CSV, plus events when eventsPath is set, as an HTML chart.
func (a *App) Plot(in, eventsPath, out string) error {
	series, err := readSeries(in)
	if err != nil {
		return err
	}
	opts := a.c.AnnotateOptions(series.Variant)
	if len(series.Smoothed) != len(series.Samples) || opts.Resmooth {
		fps := session.EstimateFPS(series.Times())
		series.Smoothed = bleed.Smooth(series.Signal(), bleed.WindowSize(opts.SmoothSeconds, fps))
	}
	var events []bleed.Event
	if eventsPath != "" {
		evs, err := readEvents(eventsPath, a.logger)
		if err != nil {
			return err
		}
		events = evs
	}
	if out == "" {
		out = export.NamesFor(filepath.Dir(in), export.StemFromCSV(in), series.Variant).Plot
	}
	if err := writeFile(out, func(w *os.File) error {
		return export.WriteChart(w, filepath.Base(in), series, events, opts.Threshold)
	}); err != nil {
		return err
	}
	a.logger.Info("plot written", "csv", in, "html", out)
	return nil
}

func readSeries(path string) (*metrics.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := export.ReadSeries(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return s, nil
}

func readEvents(path string, logger *slog.Logger) ([]bleed.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	recs, err := export.ReadRecords(f, logger)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	events := make([]bleed.Event, 0, len(recs))
	for _, r := range recs {
		if r.Type == bleed.EventType {
			events = append(events, r.Event)
		}
	}
	return events, nil
}

// writeFile creates path (and its directory) and hands it to write.
func writeFile(path string, write func(*os.File) error) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
