package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDataDir    = ".damaskio"
	DefaultLogLevel   = "info"
	DefaultPlotHeight = 15
	DefaultPlotWidth  = 70
	DefaultFormat     = "json"
	DefaultPrecision  = 8
	DefaultDebounceMs = 250
)

type Config struct {
	DataDir  string       `yaml:"data_dir"`
	LogLevel string       `yaml:"log_level"`
	Plot     PlotConfig   `yaml:"plot"`
	Export   ExportConfig `yaml:"export"`
	Watch    WatchConfig  `yaml:"watch"`
	Table    TableConfig  `yaml:"table"`
}

type PlotConfig struct {
	Height int `yaml:"height"`
	Width  int `yaml:"width"`
}

type ExportConfig struct {
	Format    string `yaml:"format"`
	Precision int    `yaml:"precision"`
}

type WatchConfig struct {
	DebounceMs int `yaml:"debounce_ms"`
}

type TableConfig struct {
	CombineArrayColumns    bool `yaml:"combine_array_columns"`
	IgnoreDuplicateColumns bool `yaml:"ignore_duplicate_columns"`
}

func DefaultConfig() *Config {
	return &Config{
		DataDir:  DefaultDataDir,
		LogLevel: DefaultLogLevel,
		Plot: PlotConfig{
			Height: DefaultPlotHeight,
			Width:  DefaultPlotWidth,
		},
		Export: ExportConfig{
			Format:    DefaultFormat,
			Precision: DefaultPrecision,
		},
		Watch: WatchConfig{
			DebounceMs: DefaultDebounceMs,
		},
		Table: TableConfig{
			CombineArrayColumns: true,
		},
	}
}

// Load reads a YAML file over the defaults, so absent keys keep their
// default values.
func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver reads a YAML file over base, which it modifies and returns.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, base); err != nil {
		return nil, err
	}
	return base, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Debounce() time.Duration {
	if c.Watch.DebounceMs <= 0 {
		return DefaultDebounceMs * time.Millisecond
	}
	return time.Duration(c.Watch.DebounceMs) * time.Millisecond
}
