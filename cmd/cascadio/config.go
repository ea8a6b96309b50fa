package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds conversion defaults loadable from a YAML file. Command-line
// flags override whatever the file sets.
type Config struct {
	Tolerance struct {
		Linear   float64 `yaml:"linear"`
		Angular  float64 `yaml:"angular"`
		Relative bool    `yaml:"relative"`
	} `yaml:"tolerance"`
	Export struct {
		MergePrimitives bool `yaml:"merge_primitives"`
		Parallel        bool `yaml:"parallel"`
		Colors          bool `yaml:"colors"`
	} `yaml:"export"`
	Brep struct {
		Include bool     `yaml:"include"`
		Types   []string `yaml:"types"`
	} `yaml:"brep"`
	Materials bool `yaml:"materials"`
	Logging   struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
}

// Default returns the built-in conversion defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.Tolerance.Linear = 0.01
	cfg.Tolerance.Angular = 0.5
	cfg.Export.MergePrimitives = true
	cfg.Export.Parallel = true
	cfg.Export.Colors = true
	cfg.Logging.Level = "info"
	return cfg
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}
