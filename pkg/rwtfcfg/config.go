// Package rwtfcfg carries ambient defaults a host may want to pin once
// at startup rather than thread through every call: the creator_version
// stamp a writer uses, the log level its injected codec.Logger runs at,
// and a ceiling on F64 scale tighter than the wire's 8-bit maximum. This
// is a plain struct, not a server or CLI config format — the codec
// itself has no config file of its own, no I/O, and no global state.
package rwtfcfg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the ambient configuration a host loads once and consults
// when constructing writers/readers.
type Config struct {
	CreatorVersion uint16  `yaml:"creator_version"`
	Logging        Logging `yaml:"logging"`
	Limits         Limits  `yaml:"limits"`
}

// Logging carries a log level for the host's own logger setup. No
// package in this module reads it; codec.SlogLogger always logs drops at
// debug level.
type Logging struct {
	Level string `yaml:"level"`
}

// Limits carries format maximums a host may enforce itself; the defaults
// are the wire format's full range. No package in this module reads
// them: schema.NewF64Field always accepts scales 0 through 255.
type Limits struct {
	MaxF64Scale uint8 `yaml:"max_f64_scale"`
}

// DefaultConfig returns the configuration a host gets if it never loads
// one: creator_version 1, info-level logging, and the wire format's full
// F64 scale range.
func DefaultConfig() *Config {
	return &Config{
		CreatorVersion: 1,
		Logging:        Logging{Level: "info"},
		Limits:         Limits{MaxF64Scale: 255},
	}
}

// LoadConfig reads and parses a YAML config file at path, falling back
// to DefaultConfig's values for any field the file omits.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rwtf config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse rwtf config file: %w", err)
	}
	return cfg, nil
}
