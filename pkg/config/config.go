package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mcuadros/go-defaults"
	"github.com/sirupsen/logrus"
	"github.com/srg/blelink/internal/device"
	goble "github.com/srg/blelink/internal/device/go-ble"
	"github.com/srg/blelink/internal/session"
	"gopkg.in/yaml.v3"
)

// OutputFormats lists the accepted output_format values.
var OutputFormats = []string{"table", "json"}

// Config holds application configuration
type Config struct {
	LogLevel        logrus.Level            `yaml:"-" json:"log_level"`
	LogLevelName    string                  `yaml:"log_level" json:"-" default:"panic"`
	ScanWindow      time.Duration           `yaml:"scan_window" json:"scan_window" default:"10s"`
	StaleAfter      time.Duration           `yaml:"stale_after" json:"stale_after" default:"30s"`
	ConnectTimeout  time.Duration           `yaml:"connect_timeout" json:"connect_timeout" default:"30s"`
	WriteTimeout    time.Duration           `yaml:"write_timeout" json:"write_timeout" default:"5s"`
	ReconnectPolicy session.ReconnectPolicy `yaml:"reconnect_policy" json:"reconnect_policy" default:"disconnect-first"`
	TeardownOnDrop  bool                    `yaml:"teardown_on_drop" json:"teardown_on_drop" default:"true"`
	DispatchBuffer  uint32                  `yaml:"dispatch_buffer" json:"dispatch_buffer" default:"128"`
	ReceiveBuffer   int                     `yaml:"receive_buffer" json:"receive_buffer" default:"4096"`
	RadioAdapter    string                  `yaml:"radio_adapter" json:"radio_adapter"`
	OutputFormat    string                  `yaml:"output_format" json:"output_format" default:"table"`
	AutoScan        bool                    `yaml:"auto_scan" json:"auto_scan" default:"true"` // start the shared watcher with the first handler
}

// DefaultConfig returns default configuration values
func DefaultConfig() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	cfg.LogLevel, _ = logrus.ParseLevel(cfg.LogLevelName)
	return cfg
}

// DefaultPath returns ~/.config/blelink/config.yaml, or "" when the home
// directory is unknown.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "blelink", "config.yaml")
}

// Load reads a YAML file over the defaults. A missing file at the default
// path is not an error; an explicitly requested one is.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	level, err := logrus.ParseLevel(cfg.LogLevelName)
	if err != nil {
		return nil, fmt.Errorf("%w: config %s: %v", device.ErrInvalidArgument, path, err)
	}
	cfg.LogLevel = level

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks enums and sizes.
func (c *Config) Validate() error {
	var errs []error

	if !c.ReconnectPolicy.Valid() {
		errs = append(errs, fmt.Errorf("reconnect_policy %q must be %q or %q", c.ReconnectPolicy, session.DisconnectFirst, session.RequireDisconnect))
	}
	if !validFormat(c.OutputFormat) {
		errs = append(errs, fmt.Errorf("output_format %q must be one of %v", c.OutputFormat, OutputFormats))
	}
	if c.ScanWindow <= 0 {
		errs = append(errs, fmt.Errorf("scan_window must be positive, got %s", c.ScanWindow))
	}
	if c.StaleAfter < 0 {
		errs = append(errs, fmt.Errorf("stale_after must not be negative, got %s", c.StaleAfter))
	}
	if c.ConnectTimeout <= 0 {
		errs = append(errs, fmt.Errorf("connect_timeout must be positive, got %s", c.ConnectTimeout))
	}
	if c.WriteTimeout <= 0 {
		errs = append(errs, fmt.Errorf("write_timeout must be positive, got %s", c.WriteTimeout))
	}
	if c.DispatchBuffer == 0 {
		errs = append(errs, errors.New("dispatch_buffer must be positive"))
	}
	if c.ReceiveBuffer <= 0 {
		errs = append(errs, errors.New("receive_buffer must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", device.ErrInvalidArgument, errors.Join(errs...))
	}
	return nil
}

func validFormat(f string) bool {
	for _, v := range OutputFormats {
		if f == v {
			return true
		}
	}
	return false
}

// SessionOptions returns the session manager options.
func (c *Config) SessionOptions() session.Options {
	return session.Options{
		Reconnect:      c.ReconnectPolicy,
		TeardownOnDrop: c.TeardownOnDrop,
		ConnectTimeout: c.ConnectTimeout,
		WriteTimeout:   c.WriteTimeout,
		DispatchBuffer: c.DispatchBuffer,
		ReceiveBuffer:  c.ReceiveBuffer,
	}
}

// AdapterOptions returns the go-ble adapter options.
func (c *Config) AdapterOptions() goble.Options {
	return goble.Options{
		ScanWindow: c.ScanWindow,
		StaleAfter: c.StaleAfter,
	}
}

// NewLogger creates a configured logger instance
func (c *Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)

	// Use structured logging format
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})

	return logger
}
