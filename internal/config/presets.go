package config

import "sort"

var Presets = map[string]*Config{
	"quiet": preset(func(c *Config) {
		c.LogLevel = "warn"
	}),
	"verbose": preset(func(c *Config) {
		c.LogLevel = "debug"
		c.Export.Precision = 12
	}),
	"wide-plots": preset(func(c *Config) {
		c.Plot.Height = 25
		c.Plot.Width = 140
	}),
}

func preset(apply func(*Config)) *Config {
	cfg := DefaultConfig()
	apply(cfg)
	return cfg
}

// GetPreset returns a copy of the named preset, or nil if there is none.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	cp := *cfg
	return &cp
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
