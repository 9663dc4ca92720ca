// Package config provides configuration loading and management for icegrouper.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// Workers specifies how many worker goroutines segment micrographs in parallel
		Workers int `yaml:"workers"`

		// XPatches is the number of grid patches along the x axis
		XPatches int `yaml:"xPatches"`

		// YPatches is the number of grid patches along the y axis
		YPatches int `yaml:"yPatches"`

		// Segments is the number of ice-thickness groups per micrograph
		Segments int `yaml:"segments"`
	} `yaml:"processing"`

	// Micrograph location parameters
	Micrographs struct {
		// Dir overrides the directory the micrograph images are read from.
		// When empty, the paths stored in the particle table are used as-is.
		Dir string `yaml:"dir"`
	} `yaml:"micrographs"`

	// Output parameters
	Output struct {
		// StarFile is the default output STAR file name
		StarFile string `yaml:"starFile"`

		// SegmentDir, when set, receives rendered segment images for
		// visual inspection, one PNG per micrograph
		SegmentDir string `yaml:"segmentDir"`

		// Verbose controls the level of progress output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Defaults mirror the processing parameters used by icebreaker
	cfg.Processing.Workers = 12
	cfg.Processing.XPatches = 40
	cfg.Processing.YPatches = 40
	cfg.Processing.Segments = 16

	cfg.Output.StarFile = "extract_particles_icegroups.star"
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
