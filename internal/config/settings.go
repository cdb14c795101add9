// Package config loads the optional perfclass.yml file that supplies
// server defaults. Every field is optional: a missing file, or a missing
// field within a present file, yields the zero value and the CLI's own
// flag defaults take over from there. CLI flags always win over the file.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Settings holds the subset of server configuration that may be set via
// perfclass.yml instead of command-line flags.
type Settings struct {
	Host                  string `yaml:"host"`
	Port                  int    `yaml:"port"`
	Public                bool   `yaml:"public"`
	RegenerateLeaderboard bool   `yaml:"regenerate_leaderboard"`
}

// LoadSettings reads a YAML config file into Settings. If the file does
// not exist, it returns zero-value Settings and a nil error — an absent
// perfclass.yml is the normal, supported case, not a startup failure.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Settings{}, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	return &s, nil
}
