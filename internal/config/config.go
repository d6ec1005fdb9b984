// Package config loads the matcher's driver bounds and exclusion rules
// from a YAML file (spec §6: debug, restart_limit, max_stage), the way the
// teacher repo's CLI exposes everything through flags directly but a
// real deployment of this toolchain is expected to carry a config file for
// the settings an operator tunes once and reuses across many patches.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the matcher's tunable policy knobs.
type Config struct {
	// Debug is the verbosity threshold, 0-3 (spec §6).
	Debug int `yaml:"debug"`
	// RestartLimit bounds how many times the driver starts another pass
	// after a pass that matched new sections. Default 20.
	RestartLimit int `yaml:"restart_limit"`
	// MaxStage bounds how far the search escalates. Default 3.
	MaxStage int `yaml:"max_stage"`
	// SelfModulePrefix and HelperSuffix identify this matcher's own
	// modules so brute search excludes them (spec §4.4).
	SelfModulePrefix string `yaml:"self_module_prefix"`
	HelperSuffix     string `yaml:"helper_suffix"`
}

// Default returns the spec's documented defaults.
func Default() Config {
	return Config{
		Debug:        0,
		RestartLimit: 20,
		MaxStage:     3,
		HelperSuffix: "_helper",
	}
}

// Load reads and parses a YAML config file, filling in defaults for any
// field the file leaves at its zero value.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	parsed := Default()
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return Config{}, err
	}
	def := Default()
	if parsed.RestartLimit == 0 {
		parsed.RestartLimit = def.RestartLimit
	}
	if parsed.MaxStage == 0 {
		parsed.MaxStage = def.MaxStage
	}
	if parsed.HelperSuffix == "" {
		parsed.HelperSuffix = def.HelperSuffix
	}
	return parsed, nil
}
