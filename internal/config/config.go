/*
Copyright 2024 Tim St. Pierre
YAML configuration for the lcdi2c command
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/tstpierre-tc/lcdi2c"
)

const (
	BackendPeriph = "periph"
	BackendD2R2   = "d2r2"
)

// Config describes one display and how to reach it.
type Config struct {
	// Backend selects the bus driver: "periph" (default) or "d2r2".
	Backend string `yaml:"backend"`

	// Bus is the periph bus name, "" for the first one found.
	Bus string `yaml:"bus"`

	// D2R2Bus is the N of /dev/i2c-N for the d2r2 backend.
	D2R2Bus int `yaml:"d2r2_bus"`

	// BusSpeedKHz changes the periph bus clock when non zero.
	BusSpeedKHz int64 `yaml:"bus_speed_khz"`

	Address       uint16        `yaml:"address"`
	Cols          uint8         `yaml:"cols"`
	Rows          uint8         `yaml:"rows"`
	LargeFont     bool          `yaml:"large_font"`
	StrictColumns bool          `yaml:"strict_columns"`
	CharDelay     time.Duration `yaml:"char_delay"`

	// LogLevel is any logrus level name.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the usual 16x2 backpack at 0x27 on the default bus.
func DefaultConfig() *Config {
	return &Config{
		Backend:  BackendPeriph,
		D2R2Bus:  1,
		Address:  lcdi2c.DefaultOpts.I2CAddr,
		Cols:     lcdi2c.DefaultOpts.Cols,
		Rows:     lcdi2c.DefaultOpts.Rows,
		LogLevel: "info",
	}
}

// Normalize fills in zero values so partial files still work.
func (c *Config) Normalize() {
	switch c.Backend {
	case BackendPeriph, BackendD2R2:
	case "":
		c.Backend = BackendPeriph
	default:
		log.Warnf("unknown backend %q, using %s", c.Backend, BackendPeriph)
		c.Backend = BackendPeriph
	}
	if c.Address == 0 {
		c.Address = lcdi2c.DefaultOpts.I2CAddr
	}
	if c.Cols == 0 {
		c.Cols = lcdi2c.DefaultOpts.Cols
	}
	if c.Rows == 0 {
		c.Rows = lcdi2c.DefaultOpts.Rows
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Opts converts the display part of the configuration.
func (c *Config) Opts() *lcdi2c.Opts {
	return &lcdi2c.Opts{
		I2CAddr:       c.Address,
		Cols:          c.Cols,
		Rows:          c.Rows,
		LargeFont:     c.LargeFont,
		CharDelay:     c.CharDelay,
		StrictColumns: c.StrictColumns,
	}
}

// Level parses LogLevel.
func (c *Config) Level() (log.Level, error) {
	return log.ParseLevel(c.LogLevel)
}

// Load reads the YAML file at path. A missing file yields the defaults and
// is not written back.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debugf("no config at %s, using defaults", path)
			return DefaultConfig(), nil
		}
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.Normalize()
	return cfg, nil
}

// Save writes cfg to path through a temporary file in the same directory.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".lcdi2c-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
