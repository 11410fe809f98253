// Package config loads optional interpreter limits from a YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// Limits are the tunable runtime bounds
type Limits struct {
	// RecursionLimit bounds nested Python calls; 0 keeps the default.
	RecursionLimit int `yaml:"recursion_limit"`
	// CheckInterval is how many instructions run between cancellation
	// checks; 0 keeps the default.
	CheckInterval int `yaml:"check_interval"`
	// TimeoutMS aborts execution after this many milliseconds; 0 disables.
	TimeoutMS int `yaml:"timeout_ms"`
}

// Default returns the zero configuration, which keeps every built-in default
func Default() Limits {
	return Limits{}
}

// Load reads limits from a YAML file
func Load(path string) (Limits, error) {
	var l Limits
	data, err := os.ReadFile(path)
	if err != nil {
		return l, err
	}
	if err := yaml.Unmarshal(data, &l); err != nil {
		return l, fmt.Errorf("config %s: %w", path, err)
	}
	if l.RecursionLimit < 0 || l.CheckInterval < 0 || l.TimeoutMS < 0 {
		return Limits{}, fmt.Errorf("config %s: limits must not be negative", path)
	}
	return l, nil
}

// LoadIfPresent reads limits from path, treating a missing file as the
// default configuration.
func LoadIfPresent(path string) (Limits, error) {
	l, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return l, err
}
