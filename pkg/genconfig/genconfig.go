// Copyright 2025 picklegen project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package genconfig loads generation run configuration from YAML files.
// A config file carries the same knobs as the picklegen command line; flags
// given explicitly on the command line win over config values.
package genconfig

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Protocol pins the pickle protocol version (0-5). Unset means derive
	// from the seed, or pick randomly.
	Protocol *int `yaml:"protocol,omitempty"`
	// Seed makes generation deterministic.
	Seed *int64 `yaml:"seed,omitempty"`

	MinOpcodes int `yaml:"min_opcodes"`
	MaxOpcodes int `yaml:"max_opcodes"`

	// Mutators lists mutation strategy names ("all" expands).
	Mutators     []string `yaml:"mutators,omitempty"`
	MutationRate float64  `yaml:"mutation_rate"`
	Unsafe       bool     `yaml:"unsafe_mutations"`

	AllowExt    bool `yaml:"allow_ext"`
	AllowBuffer bool `yaml:"allow_buffer"`

	// Batch mode: number of samples and the output directory.
	Samples int    `yaml:"samples"`
	Dir     string `yaml:"dir,omitempty"`
}

func Default() *Config {
	return &Config{
		MinOpcodes:   60,
		MaxOpcodes:   300,
		MutationRate: 0.1,
		Samples:      10000,
	}
}

// Load reads and validates a config file. Unknown fields are an error so
// typos do not silently fall back to defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %v: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", path, err)
	}
	return cfg, nil
}

func (cfg *Config) Validate() error {
	if cfg.Protocol != nil && (*cfg.Protocol < 0 || *cfg.Protocol > 5) {
		return fmt.Errorf("protocol must be 0-5, got %v", *cfg.Protocol)
	}
	if cfg.MinOpcodes < 0 || cfg.MaxOpcodes < cfg.MinOpcodes {
		return fmt.Errorf("bad opcode range [%v, %v]", cfg.MinOpcodes, cfg.MaxOpcodes)
	}
	if cfg.MutationRate < 0 || cfg.MutationRate > 1 {
		return fmt.Errorf("mutation_rate must be in [0, 1], got %v", cfg.MutationRate)
	}
	if cfg.Samples < 1 {
		return fmt.Errorf("samples must be positive, got %v", cfg.Samples)
	}
	return nil
}
