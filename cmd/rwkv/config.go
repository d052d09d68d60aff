package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// config holds defaults for the CLI's flags; zero values mean
// "unspecified" and are left for each flag's own default to fill in.
type config struct {
	Threads     int    `yaml:"threads"`
	PrintErrors bool   `yaml:"print_errors"`
	LogLevel    string `yaml:"log_level"`
}

func loadConfig(path string) (config, error) {
	var cfg config
	if path == "" {
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
