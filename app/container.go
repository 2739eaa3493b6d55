package app

import (
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/soocke/bleedscan-go/config"
	"github.com/soocke/bleedscan-go/domain/action"
	"github.com/soocke/bleedscan-go/domain/capture"
	"github.com/soocke/bleedscan-go/domain/capture/cvreader"
	"github.com/soocke/bleedscan-go/domain/capture/gstreader"
	"github.com/soocke/bleedscan-go/domain/capture/screenreader"
	"github.com/soocke/bleedscan-go/domain/metrics"
	"github.com/soocke/bleedscan-go/domain/redness"
	"github.com/soocke/bleedscan-go/domain/session"
)

// Container assembles frame sources, the event publisher and session options.
type Container struct {
	Config    *config.Config
	Logger    *slog.Logger
	Chain     *capture.Chain
	Seeker    capture.FrameSeeker
	Publisher action.Publisher
}

// BuildContainer constructs all components. Side-effects limited to the broker connection.
func BuildContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger}
	var readers []capture.Reader
	for _, name := range cfg.Readers {
		r, err := newReader(name, cfg, logger)
		if err != nil {
			return nil, err
		}
		readers = append(readers, r)
	}
	c.Chain = capture.NewChain(logger, readers...)
	c.Seeker = cvreader.New(logger)
	c.Publisher = newPublisher(cfg.MQTT, logger)
	return c, nil
}

func newReader(name string, cfg *config.Config, logger *slog.Logger) (capture.Reader, error) {
	switch name {
	case gstreader.Name:
		return gstreader.New(logger), nil
	case cvreader.Name:
		return cvreader.New(logger), nil
	case screenreader.Name:
		rect := image.Rect(cfg.ScreenX, cfg.ScreenY, cfg.ScreenX+cfg.ScreenW, cfg.ScreenY+cfg.ScreenH)
		d := time.Duration(cfg.ScreenSeconds * float64(time.Second))
		return screenreader.New(rect, d, logger), nil
	}
	return nil, fmt.Errorf("unknown reader %q", name)
}

// newPublisher connects to the configured broker, falling back to logging events when
// no broker is set or the connection fails.
func newPublisher(mc config.MQTTConfig, logger *slog.Logger) action.Publisher {
	if mc.Broker == "" {
		return action.NewLogPublisher(logger)
	}
	p, err := action.NewMQTTPublisher(action.MQTTOptions{
		Broker:   mc.Broker,
		Topic:    mc.Topic,
		ClientID: mc.ClientID,
		QoS:      byte(mc.QoS),
	}, logger)
	if err != nil {
		logger.Warn("mqtt unavailable, logging events instead", "broker", mc.Broker, "error", err)
		return action.NewLogPublisher(logger)
	}
	return p
}

// Variant returns the configured metric variant.
func (c *Container) Variant() metrics.Variant {
	v, _ := metrics.ParseVariant(c.Config.Variant)
	return v
}

// RecordOptions maps the configuration onto the record pass.
func (c *Container) RecordOptions() session.Options {
	cfg := c.Config
	return session.Options{
		Variant: c.Variant(),
		Params: metrics.Params{
			Classifier:   redness.NewClassifier(cfg.SMin, cfg.VMin),
			BgNormFactor: cfg.BgNormFactor,
			GridSize:     cfg.GridSize,
		},
		FPS:           cfg.FPS,
		ROIMargin:     cfg.ROIMargin,
		NoROI:         cfg.NoROI,
		MaxWidth:      cfg.MaxWidth,
		SmoothSeconds: cfg.SmoothSeconds,
	}
}

// AnnotateOptions maps the configuration onto the annotate pass for variant v.
func (c *Container) AnnotateOptions(v metrics.Variant) session.AnnotateOptions {
	cfg := *c.Config
	cfg.Variant = v.String()
	return session.AnnotateOptions{
		Threshold:     cfg.EffectiveThreshold(),
		MinDuration:   cfg.EffectiveMinDuration(),
		SmoothSeconds: cfg.SmoothSeconds,
		Resmooth:      cfg.Resmooth,
	}
}

// Close releases the publisher.
func (c *Container) Close() error {
	if c.Publisher != nil {
		return c.Publisher.Close()
	}
	return nil
}
