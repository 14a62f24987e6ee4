package sigview

import (
	"bytes"
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
	"maze.io/x/duration"
)

// Sampling units for Sampling.Unit.
const (
	UnitSeconds = "seconds"
	UnitMinutes = "minutes"
)

// Defaults matching the detectors the viewer was first written for: 3000
// samples every 0.4 seconds, or 20 minutes.
const (
	DefaultInterval = 0.4
	DefaultCount    = 3000
	DefaultBaseline = 0
)

// Sampling describes how samples are spaced on the X axis.
type Sampling struct {
	// Interval is the time between two samples in Unit.
	Interval float64 `yaml:"interval"`
	// Count is the number of samples on the X axis.
	Count int `yaml:"count"`
	// Unit is either "seconds" or "minutes".
	Unit string `yaml:"unit"`
}

// DefaultSampling returns the default sampling of 3000 samples 0.4s apart.
func DefaultSampling() Sampling {
	return Sampling{
		Interval: DefaultInterval,
		Count:    DefaultCount,
		Unit:     UnitSeconds,
	}
}

// Step returns the distance between two samples in minutes.
func (s Sampling) Step() float64 {
	if s.Unit == UnitMinutes {
		return s.Interval
	}
	return s.Interval / 60
}

// XAxis returns Count points in minutes starting at 0.
func (s Sampling) XAxis() []float64 {
	if s.Count <= 0 {
		return nil
	}

	step := s.Step()

	x := make([]float64, s.Count)
	for i := range x {
		x[i] = step * float64(i)
	}

	return x
}

// XMax returns the end of the sampling window in minutes.
func (s Sampling) XMax() float64 {
	return s.Step() * float64(s.Count)
}

// Validate returns an error if the sampling cannot produce an X axis.
func (s Sampling) Validate() error {
	if s.Interval <= 0 {
		return errors.Errorf("sampling interval %v must be positive", s.Interval)
	}
	if s.Count <= 0 {
		return errors.Errorf("sampling count %d must be positive", s.Count)
	}
	if s.Unit != UnitSeconds && s.Unit != UnitMinutes {
		return errors.Errorf("unknown sampling unit %q", s.Unit)
	}
	return nil
}

// Duration is a time.Duration that reads the extended duration syntax, such
// as "1d" or "2w", from YAML and command line flags.
type Duration time.Duration

// ParseDuration parses an extended duration string.
func ParseDuration(s string) (Duration, error) {
	d, err := duration.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	return Duration(d), nil
}

// String implements flag.Value.
func (d Duration) String() string { return time.Duration(d).String() }

// Set implements flag.Value.
func (d *Duration) Set(s string) error {
	v, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	return d.Set(s)
}

// Cache backends.
const (
	BackendBadger = "badger"
	BackendBolt   = "bolt"
)

// CacheConfig configures the blob cache. An empty Path disables caching.
type CacheConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	// TTL is how long a cached blob is served before it is fetched again. Zero
	// means cached blobs never expire.
	TTL Duration `yaml:"ttl"`
	// LogLevel is badger's log level: none, error, warning, info or debug.
	LogLevel string `yaml:"log_level"`
}

// FetchConfig configures blob fetching.
type FetchConfig struct {
	Timeout  Duration `yaml:"timeout"`
	MaxBytes int64    `yaml:"max_bytes"`
}

// PlotConfig configures the rendered chart size in pixels.
type PlotConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Config is the configuration shared by the sigview commands.
type Config struct {
	Listen   string      `yaml:"listen"`
	Baseline int         `yaml:"baseline"`
	Sampling Sampling    `yaml:"sampling"`
	Cache    CacheConfig `yaml:"cache"`
	Fetch    FetchConfig `yaml:"fetch"`
	Plot     PlotConfig  `yaml:"plot"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Listen:   "localhost:8080",
		Baseline: DefaultBaseline,
		Sampling: DefaultSampling(),
		Cache: CacheConfig{
			Backend:  BackendBadger,
			TTL:      Duration(time.Hour),
			LogLevel: "warning",
		},
		Fetch: FetchConfig{
			Timeout:  Duration(30 * time.Second),
			MaxBytes: 64 << 20,
		},
		Plot: PlotConfig{
			Width:  600,
			Height: 400,
		},
	}
}

// LoadConfig reads a YAML configuration file on top of DefaultConfig. An
// empty path returns the defaults. Unknown keys are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "failed to read config")
	}

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return cfg, errors.Wrapf(err, "failed to parse config %s", path)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, errors.Wrapf(err, "invalid config %s", path)
	}

	return cfg, nil
}

// Validate checks the configuration for values the commands cannot use.
func (c Config) Validate() error {
	if err := c.Sampling.Validate(); err != nil {
		return err
	}

	switch c.Cache.Backend {
	case BackendBadger, BackendBolt:
	default:
		return errors.Errorf("unknown cache backend %q", c.Cache.Backend)
	}

	if c.Cache.TTL < 0 {
		return errors.New("cache ttl must not be negative")
	}
	if c.Fetch.Timeout < 0 {
		return errors.New("fetch timeout must not be negative")
	}
	if c.Fetch.MaxBytes <= 0 {
		return errors.New("fetch max_bytes must be positive")
	}
	if c.Plot.Width <= 0 || c.Plot.Height <= 0 {
		return errors.Errorf("plot size %dx%d must be positive", c.Plot.Width, c.Plot.Height)
	}

	return nil
}
