package viewer

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultAppID is the application identifier used when none is given.
	DefaultAppID = "newton-viewer"

	// DefaultAddress is the serving endpoint bind address.
	DefaultAddress = "127.0.0.1:9876"
)

type Config struct {
	// Server starts a local serving endpoint viewer clients attach to.
	Server bool `yaml:"server"`
	// Address is the serving endpoint bind address.
	Address string `yaml:"address"`
	// LaunchViewer starts a browser viewer connected to the endpoint.
	// Requires Server.
	LaunchViewer bool `yaml:"launch_viewer"`
	// AppID identifies the application to the backend (DefaultAppID when empty).
	AppID string `yaml:"app_id"`
}

func DefaultConfig() Config {
	return Config{
		Server:       true,
		Address:      DefaultAddress,
		LaunchViewer: true,
	}
}

// LoadConfig reads a yaml config over the defaults. An empty path returns
// the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("viewer.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("viewer.yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) Normalize() {
	c.Address = strings.TrimSpace(c.Address)
	if c.Address == "" {
		c.Address = DefaultAddress
	}
	c.AppID = strings.TrimSpace(c.AppID)
}

func (c Config) Validate() error {
	if c.LaunchViewer && !c.Server {
		return fmt.Errorf("%w: launch_viewer requires server=true (a viewer needs a local endpoint to attach to)", ErrInvalidConfig)
	}
	return nil
}
