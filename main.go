package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/soocke/bleedscan-go/app"
	"github.com/soocke/bleedscan-go/config"
	"github.com/soocke/bleedscan-go/debug"
)

const usage = `usage: bleedscan <command> [flags] [files...]

commands:
  record     sample videos into series CSVs
  annotate   segment series CSVs into events
  analyze    record and annotate videos in one pass
  jsonl2srt  convert an events JSONL file to SRT
  srt2jsonl  recover events JSONL from an edited SRT
  mergesrt   merge SRT files ordered by start time
  csv2srt    render series columns as subtitles
  plot       render a series CSV as an HTML chart
  review     browse events over the video frames
  config     write the effective configuration to a file
`

// overrides binds command-line flags onto a loaded configuration.
type overrides struct {
	cfgPath  *string
	variant  *string
	fps      *float64
	readers  *string
	thr      *float64
	ks       *float64
	smooth   *float64
	margin   *float64
	noROI    *bool
	sMin     *int
	vMin     *int
	bgNorm   *float64
	grid     *int
	maxWidth *int
	resmooth *bool
	outDir   *string
	archive  *bool
	plot     *bool
	broker   *string
	debug    *bool
	logFile  *string
}

func bindOverrides(fs *flag.FlagSet) *overrides {
	return &overrides{
		cfgPath:  fs.String("config", "bleedscan.yaml", "Path to a JSON or YAML config file"),
		variant:  fs.String("variant", "", "Metric variant: ratio, expansion or spread"),
		fps:      fs.Float64("fps", 0, "Sampling rate in frames per second"),
		readers:  fs.String("readers", "", "Comma-separated frame readers in fallback order"),
		thr:      fs.Float64("thr", config.UseVariantDefault, "Event threshold (negative selects the variant default)"),
		ks:       fs.Float64("k_s", config.UseVariantDefault, "Minimum event duration in seconds (negative selects the variant default)"),
		smooth:   fs.Float64("smooth_s", -1, "Smoothing window in seconds"),
		margin:   fs.Float64("roi_margin", -1, "Circular ROI margin as a fraction of the short side"),
		noROI:    fs.Bool("no_roi", false, "Classify the whole frame"),
		sMin:     fs.Int("s_min", 60, "Minimum HSV saturation (0-255) for a red pixel"),
		vMin:     fs.Int("v_min", 40, "Minimum HSV value (0-255) for a red pixel"),
		bgNorm:   fs.Float64("bg_norm_factor", 30, "expansion: background difference that zeroes stability"),
		grid:     fs.Int("grid_size", 8, "spread: grid cells per side"),
		maxWidth: fs.Int("max_width", 0, "Downscale frames wider than this before classifying (0 keeps size)"),
		resmooth: fs.Bool("resmooth", false, "Recompute the smoothed column when annotating"),
		outDir:   fs.String("out", "", "Output directory (default: next to the input)"),
		archive:  fs.Bool("archive", false, "Also write a CBOR session archive"),
		plot:     fs.Bool("plot", false, "Also write an HTML plot"),
		broker:   fs.String("mqtt", "", "MQTT broker address for event publishing"),
		debug:    fs.Bool("debug", false, "Enable debug logging and runtime stats"),
		logFile:  fs.String("log_file", "", "Also write logs to this rotating file"),
	}
}

// load reads the config file and applies every flag that was set explicitly.
func (o *overrides) load(fs *flag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(*o.cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", *o.cfgPath, err)
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "variant":
			cfg.Variant = *o.variant
		case "fps":
			cfg.FPS = *o.fps
		case "readers":
			cfg.Readers = strings.Split(*o.readers, ",")
		case "thr":
			cfg.Threshold = *o.thr
		case "k_s":
			cfg.MinDuration = *o.ks
		case "smooth_s":
			cfg.SmoothSeconds = *o.smooth
		case "roi_margin":
			cfg.ROIMargin = *o.margin
		case "no_roi":
			cfg.NoROI = *o.noROI
		case "s_min":
			cfg.SMin = *o.sMin
		case "v_min":
			cfg.VMin = *o.vMin
		case "bg_norm_factor":
			cfg.BgNormFactor = *o.bgNorm
		case "grid_size":
			cfg.GridSize = *o.grid
		case "max_width":
			cfg.MaxWidth = *o.maxWidth
		case "resmooth":
			cfg.Resmooth = *o.resmooth
		case "out":
			cfg.OutDir = *o.outDir
		case "archive":
			cfg.Archive = *o.archive
		case "plot":
			cfg.Plot = *o.plot
		case "mqtt":
			cfg.MQTT.Broker = *o.broker
		case "debug":
			cfg.Debug = *o.debug
		case "log_file":
			cfg.LogFile = *o.logFile
		}
	})
	_ = cfg.Validate()
	return cfg, nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err := run(os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "bleedscan %s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func run(cmd string, args []string) error {
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	o := bindOverrides(fs)
	eventType := fs.String("event_type", "", "jsonl2srt: keep only this event type")
	output := fs.String("o", "", "Output file for single-output commands")
	columns := fs.String("columns", "", "csv2srt: comma-separated columns (default: red_ratio and the smoothed column)")
	events := fs.String("events", "", "plot/review: events JSONL file")
	video := fs.String("video", "", "review: video file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	files := fs.Args()

	cfg, err := o.load(fs)
	if err != nil {
		return err
	}
	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	logger, closer, err := NewLogger(level, cfg.LogFile)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if cfg.Debug {
		debug.StartGoroutineLogger(ctx, 5*time.Second, logger)
		debug.StartMemLogger(ctx, 5*time.Second, logger)
	}

	if cmd == "config" {
		if *output == "" {
			return fmt.Errorf("missing -o")
		}
		return cfg.Save(*output)
	}

	c, err := app.BuildContainer(cfg, logger)
	if err != nil {
		return err
	}
	defer c.Close()
	a := app.New(c)

	need := func(n int) error {
		if len(files) < n {
			return fmt.Errorf("expected at least %d input file(s)", n)
		}
		return nil
	}
	single := func() error {
		if err := need(1); err != nil {
			return err
		}
		if *output == "" {
			return fmt.Errorf("missing -o")
		}
		return nil
	}

	switch cmd {
	case "record":
		if err := need(1); err != nil {
			return err
		}
		return a.Record(ctx, files)
	case "annotate":
		if err := need(1); err != nil {
			return err
		}
		return a.Annotate(ctx, files)
	case "analyze":
		if err := need(1); err != nil {
			return err
		}
		return a.Analyze(ctx, files)
	case "jsonl2srt":
		if err := single(); err != nil {
			return err
		}
		return a.JSONLToSRT(files[0], *output, *eventType)
	case "srt2jsonl":
		if err := single(); err != nil {
			return err
		}
		return a.SRTToJSONL(files[0], *output)
	case "mergesrt":
		if err := single(); err != nil {
			return err
		}
		return a.MergeSRT(*output, files)
	case "csv2srt":
		if err := single(); err != nil {
			return err
		}
		var cols []string
		if *columns != "" {
			cols = strings.Split(*columns, ",")
		}
		return a.CSVToSRT(files[0], *output, cols)
	case "plot":
		if err := need(1); err != nil {
			return err
		}
		return a.Plot(files[0], *events, *output)
	case "review":
		if *video == "" || *events == "" {
			return fmt.Errorf("review needs -video and -events")
		}
		return a.Review(*video, *events, 800, 600)
	}
	fmt.Fprint(os.Stderr, usage)
	return fmt.Errorf("unknown command %q", cmd)
}
