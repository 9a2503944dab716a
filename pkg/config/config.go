// Package config provides configuration loading and management for
// qpsphere. It handles loading configuration from YAML files and
// provides default values.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Imaging metadata applied to loaded phase images
	Imaging struct {
		// PixelSize is the lateral pixel size in meters
		PixelSize float64 `yaml:"pixelSize"`

		// Wavelength is the vacuum wavelength of the imaging light in meters
		Wavelength float64 `yaml:"wavelength"`

		// MediumIndex is the refractive index of the surrounding medium
		MediumIndex float64 `yaml:"mediumIndex"`
	} `yaml:"imaging"`

	// Edge detection parameters
	Edge struct {
		// MultCoarse scales the coarse detection smoothing relative to the radius
		MultCoarse float64 `yaml:"multCoarse"`

		// MultFine scales the fine detection smoothing relative to the radius
		MultFine float64 `yaml:"multFine"`

		// ClipRMin and ClipRMax clip contour points outside the given
		// multiples of the mean contour radius
		ClipRMin float64 `yaml:"clipRMin"`
		ClipRMax float64 `yaml:"clipRMax"`

		// MaxIter bounds the number of smoothing scales tried
		MaxIter int `yaml:"maxIter"`
	} `yaml:"edge"`

	// Image fit parameters
	ImageFit struct {
		// NRel sets the initial refractive index search interval
		// relative to the index contrast
		NRel float64 `yaml:"nRel"`

		// RRel sets the initial radius search interval relative to the radius
		RRel float64 `yaml:"rRel"`

		// CRel bounds the center search interval relative to the radius
		CRel float64 `yaml:"cRel"`

		// StopDn is the absolute refractive index convergence threshold
		StopDn float64 `yaml:"stopDn"`

		// StopDr is the relative radius convergence threshold
		StopDr float64 `yaml:"stopDr"`

		// StopDc is the center movement convergence threshold in pixels
		StopDc float64 `yaml:"stopDc"`

		// MinIter and MaxIter bound the number of fit iterations
		MinIter int `yaml:"minIter"`
		MaxIter int `yaml:"maxIter"`

		// TracePath persists every iteration to an SQLite file when set
		TracePath string `yaml:"tracePath"`
	} `yaml:"imageFit"`

	// BHField controls the external Mie field computation
	BHField struct {
		// Binary is an explicit path to the BHFIELD executable;
		// when empty the binary is located automatically
		Binary string `yaml:"binary"`

		// TimeoutSeconds bounds a single BHFIELD invocation
		TimeoutSeconds int `yaml:"timeoutSeconds"`
	} `yaml:"bhfield"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Imaging defaults match a typical DHM setup in water
	cfg.Imaging.PixelSize = 1e-7
	cfg.Imaging.Wavelength = 550e-9
	cfg.Imaging.MediumIndex = 1.335

	cfg.Edge.MultCoarse = 0.40
	cfg.Edge.MultFine = 0.10
	cfg.Edge.ClipRMin = 0.9
	cfg.Edge.ClipRMax = 1.1
	cfg.Edge.MaxIter = 20

	cfg.ImageFit.NRel = 0.10
	cfg.ImageFit.RRel = 0.05
	cfg.ImageFit.CRel = 0.05
	cfg.ImageFit.StopDn = 0.0005
	cfg.ImageFit.StopDr = 0.0010
	cfg.ImageFit.StopDc = 1
	cfg.ImageFit.MinIter = 3
	cfg.ImageFit.MaxIter = 100

	cfg.BHField.TimeoutSeconds = 600

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
