// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Player  PlayerConfig  `yaml:"player"`
	Loop    LoopConfig    `yaml:"loop"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// PlayerConfig represents playback control configuration.
type PlayerConfig struct {
	PollIntervalMS int   `yaml:"poll_interval_ms" default:"50" validate:"gte=10,lte=1000"`
	SeekStepMS     int64 `yaml:"seek_step_ms" default:"5000" validate:"gt=0"`
	LongSeekStepMS int64 `yaml:"long_seek_step_ms" default:"60000" validate:"gt=0"`
	Volume         int   `yaml:"volume" default:"50" validate:"gte=0,lte=100"`
	VolumeStep     int   `yaml:"volume_step" default:"5" validate:"gte=1,lte=50"`
	LoopNudgeMS    int64 `yaml:"loop_nudge_ms" default:"500" validate:"gt=0"`
}

// LoopConfig represents A/B loop configuration.
type LoopConfig struct {
	// Policy decides what a B capture at or before the A marker does:
	// swap the pair, reject the capture, or allow the degenerate loop.
	Policy           string `yaml:"policy" default:"swap" validate:"oneof=swap reject allow"`
	CaptureLatencyMS int64  `yaml:"capture_latency_ms" default:"100" validate:"gte=0,lte=1000"`
}

// StorageConfig represents persistence paths.
type StorageConfig struct {
	SettingsPath string `yaml:"settings_path" default:"okplayer.json" validate:"required"`
	HistoryPath  string `yaml:"history_path" default:"okplayer_history.jsonl" validate:"required"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Output string `yaml:"output" default:"stderr"`
	File   string `yaml:"file"`
}

// Load loads configuration from a YAML file. A missing file yields pure
// defaults; a desktop player must run unconfigured.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// Defaults only
	case err != nil:
		return nil, errors.Wrap(err, "failed to read config file")
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, errors.Wrap(err, "failed to parse config file")
		}
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("OKPLAYER_SETTINGS_PATH"); v != "" {
		c.Storage.SettingsPath = v
	}
	if v := os.Getenv("OKPLAYER_HISTORY_PATH"); v != "" {
		c.Storage.HistoryPath = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// PollInterval returns the position poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Player.PollIntervalMS) * time.Millisecond
}
