package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

const captureStatsLogInterval = 5 * time.Second

// BeginFunc is called before each read attempt with the reader's name and returns the
// consumer for that attempt. Consumers must start from empty state each time: frames
// delivered by a failed attempt are never replayed, decoding restarts from the beginning.
type BeginFunc func(reader string) FrameFunc

// Chain tries readers in order until one completes. Use NewChain to construct an instance.
type Chain struct {
	readers []Reader
	logger  *slog.Logger
	last    atomic.Pointer[ReadStats]
}

// NewChain constructs a fallback chain over readers. Nil readers are skipped.
func NewChain(logger *slog.Logger, readers ...Reader) *Chain {
	c := &Chain{logger: logger}
	for _, r := range readers {
		if r != nil {
			c.readers = append(c.readers, r)
		}
	}
	return c
}

// Readers returns the reader names in attempt order.
func (c *Chain) Readers() []string {
	names := make([]string, len(c.readers))
	for i, r := range c.readers {
		names[i] = r.Name()
	}
	return names
}

// Stats returns the statistics of the most recent attempt.
func (c *Chain) Stats() ReadStats {
	if s := c.last.Load(); s != nil {
		return *s
	}
	return ReadStats{}
}

// Read runs the chain and returns the name of the reader that completed. An error from
// the consumer ends the chain immediately and is returned unchanged; decoder errors
// move on to the next reader. When every reader fails the errors are joined.
func (c *Chain) Read(ctx context.Context, src string, fps float64, begin BeginFunc) (string, error) {
	if len(c.readers) == 0 {
		return "", ErrNoReaders
	}
	var failures []error
	for _, r := range c.readers {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		name := r.Name()
		consumerErr, err := c.attempt(ctx, r, src, fps, begin(name))
		if consumerErr != nil {
			return name, consumerErr
		}
		if err == nil {
			return name, nil
		}
		if ctx.Err() != nil {
			return name, ctx.Err()
		}
		if c.logger != nil {
			c.logger.Warn("capture reader failed, falling back", "reader", name, "src", src, "error", err)
		}
		failures = append(failures, fmt.Errorf("%s: %w", name, err))
	}
	return "", errors.Join(failures...)
}

func (c *Chain) attempt(ctx context.Context, r Reader, src string, fps float64, fn FrameFunc) (consumerErr, readErr error) {
	stats := ReadStats{Reader: r.Name()}
	start := time.Now()
	lastLog := start
	var seq uint64
	wrapped := func(f Frame) error {
		seq++
		f.Seq = seq
		f.Reader = stats.Reader
		stats.Frames++
		if f.Image != nil {
			stats.Bytes += uint64(len(f.Image.Pix))
		}
		stats.LastT = f.T
		if err := fn(f); err != nil {
			consumerErr = err
			return err
		}
		if now := time.Now(); now.Sub(lastLog) >= captureStatsLogInterval {
			lastLog = now
			c.logProgress(stats, now.Sub(start))
		}
		return nil
	}
	readErr = r.Read(ctx, src, fps, wrapped)
	stats.Elapsed = time.Since(start)
	stats.Err = readErr
	c.last.Store(&stats)
	c.logSummary(stats)
	return consumerErr, readErr
}

func (c *Chain) logProgress(stats ReadStats, elapsed time.Duration) {
	if c.logger == nil {
		return
	}
	c.logger.Debug("capture.stats",
		"reader", stats.Reader,
		"frames", stats.Frames,
		"t", stats.LastT,
		"elapsed", elapsed,
	)
}

func (c *Chain) logSummary(stats ReadStats) {
	if c.logger == nil {
		return
	}
	c.logger.Info("capture.stats",
		"reader", stats.Reader,
		"frames", humanize.Comma(int64(stats.Frames)),
		"decoded", humanize.Bytes(stats.Bytes),
		"elapsed", stats.Elapsed.Round(time.Millisecond),
		"ok", stats.Err == nil,
	)
}
