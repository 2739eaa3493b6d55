package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Variant names accepted by Config.Variant.
const (
	VariantRatio     = "ratio"
	VariantExpansion = "expansion"
	VariantSpread    = "spread"
)

// Config holds runtime configuration for the screening pipeline and tooling.
// Fields may be loaded from a JSON or YAML file and overridden by command-line flags.
type Config struct {
	Debug   bool   `json:"debug" yaml:"debug"`
	LogFile string `json:"log_file" yaml:"log_file"`

	// Sampling
	Variant  string   `json:"variant" yaml:"variant"`
	FPS      float64  `json:"fps" yaml:"fps"`
	Readers  []string `json:"readers" yaml:"readers"`
	MaxWidth int      `json:"max_width" yaml:"max_width"`

	// Classification
	SMin         int     `json:"s_min" yaml:"s_min"`
	VMin         int     `json:"v_min" yaml:"v_min"`
	ROIMargin    float64 `json:"roi_margin" yaml:"roi_margin"`
	NoROI        bool    `json:"no_roi" yaml:"no_roi"`
	BgNormFactor float64 `json:"bg_norm_factor" yaml:"bg_norm_factor"`
	GridSize     int     `json:"grid_size" yaml:"grid_size"`

	// Segmentation. A negative Threshold/MinDuration (UseVariantDefault) selects the
	// variant default; zero is an explicit setting.
	SmoothSeconds float64 `json:"smooth_s" yaml:"smooth_s"`
	Threshold     float64 `json:"thr" yaml:"thr"`
	MinDuration   float64 `json:"k_s" yaml:"k_s"`
	Resmooth      bool    `json:"resmooth" yaml:"resmooth"`

	// Outputs
	OutDir  string `json:"out_dir" yaml:"out_dir"`
	Archive bool   `json:"archive" yaml:"archive"`
	Plot    bool   `json:"plot" yaml:"plot"`

	// Screen source (used by the "screen" reader only)
	ScreenX       int     `json:"screen_x" yaml:"screen_x"`
	ScreenY       int     `json:"screen_y" yaml:"screen_y"`
	ScreenW       int     `json:"screen_w" yaml:"screen_w"`
	ScreenH       int     `json:"screen_h" yaml:"screen_h"`
	ScreenSeconds float64 `json:"screen_seconds" yaml:"screen_seconds"`

	MQTT MQTTConfig `json:"mqtt" yaml:"mqtt"`
}

// MQTTConfig configures the optional event publisher. An empty Broker disables it.
type MQTTConfig struct {
	Broker   string `json:"broker" yaml:"broker"`
	Topic    string `json:"topic" yaml:"topic"`
	ClientID string `json:"client_id" yaml:"client_id"`
	QoS      int    `json:"qos" yaml:"qos"`
}

// DefaultConfig returns a Config populated with standard defaults.
func DefaultConfig() *Config {
	return &Config{
		Debug:         false,
		Variant:       VariantRatio,
		FPS:           5.0,
		Readers:       []string{"gstreamer", "opencv"},
		MaxWidth:      0,
		SMin:          60,
		VMin:          40,
		ROIMargin:     0.08,
		NoROI:         false,
		BgNormFactor:  30.0,
		GridSize:      8,
		SmoothSeconds: 5.0,
		Threshold:     UseVariantDefault,
		MinDuration:   UseVariantDefault,
		OutDir:        "",
		ScreenSeconds: 10,
		MQTT: MQTTConfig{
			Topic:    "bleedscan/events",
			ClientID: "bleedscan",
			QoS:      1,
		},
	}
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	switch c.Variant {
	case VariantRatio, VariantExpansion, VariantSpread:
	default:
		c.Variant = VariantRatio
	}
	if c.FPS <= 0 {
		c.FPS = 5.0
	}
	if len(c.Readers) == 0 {
		c.Readers = []string{"gstreamer", "opencv"}
	}
	if c.MaxWidth < 0 {
		c.MaxWidth = 0
	}
	if c.SMin < 0 || c.SMin > 255 {
		c.SMin = 60
	}
	if c.VMin < 0 || c.VMin > 255 {
		c.VMin = 40
	}
	if c.ROIMargin < 0 {
		c.ROIMargin = 0.08
	}
	if c.BgNormFactor <= 0 {
		c.BgNormFactor = 30.0
	}
	if c.GridSize <= 0 {
		c.GridSize = 8
	}
	if c.SmoothSeconds < 0 {
		c.SmoothSeconds = 5.0
	}
	if c.Threshold < 0 {
		c.Threshold = UseVariantDefault
	}
	if c.MinDuration < 0 {
		c.MinDuration = UseVariantDefault
	}
	if c.ScreenSeconds <= 0 {
		c.ScreenSeconds = 10
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		c.MQTT.QoS = 1
	}
	if c.MQTT.Topic == "" {
		c.MQTT.Topic = "bleedscan/events"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "bleedscan"
	}
	return nil
}

// UseVariantDefault marks Threshold or MinDuration as unset.
const UseVariantDefault = -1.0

// EffectiveThreshold returns Threshold, or the variant default when unset.
func (c *Config) EffectiveThreshold() float64 {
	if c.Threshold >= 0 {
		return c.Threshold
	}
	switch c.Variant {
	case VariantExpansion:
		return 0.005
	case VariantSpread:
		return 0.001
	default:
		return 0.03
	}
}

// EffectiveMinDuration returns MinDuration, or the variant default when unset.
func (c *Config) EffectiveMinDuration() float64 {
	if c.MinDuration >= 0 {
		return c.MinDuration
	}
	if c.Variant == VariantRatio {
		return 3.0
	}
	return 1.0
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// Load attempts to read configuration from the given JSON or YAML file path (chosen by
// extension). If the file does not exist it returns DefaultConfig(). On decode error it
// returns defaults with the error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}
	if isYAML(path) {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return DefaultConfig(), err
	}
	_ = cfg.Validate()
	return cfg, nil
}

// Save writes the configuration to the given path, in YAML for .yaml/.yml and JSON otherwise.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if isYAML(path) {
		enc := yaml.NewEncoder(f)
		enc.SetIndent(2)
		if err := enc.Encode(c); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}
