package viewer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if !cfg.Server || !cfg.LaunchViewer {
		t.Fatalf("defaults: %+v", cfg)
	}
	if cfg.Address != "127.0.0.1:9876" {
		t.Fatalf("default address: %q", cfg.Address)
	}
	if cfg.AppID != "" {
		t.Fatalf("default app id should be empty (resolved at construction): %q", cfg.AppID)
	}
}

func TestLoadConfig_EmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("config: %+v", cfg)
	}
}

func TestLoadConfig_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.yaml")
	raw := "server: false\nlaunch_viewer: false\naddress: \"0.0.0.0:7000\"\napp_id: demo\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server || cfg.LaunchViewer {
		t.Fatalf("flags: %+v", cfg)
	}
	if cfg.Address != "0.0.0.0:7000" || cfg.AppID != "demo" {
		t.Fatalf("config: %+v", cfg)
	}
}

func TestLoadConfig_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.yaml")
	if err := os.WriteFile(path, []byte("address: \"127.0.0.1:7777\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.Server || !cfg.LaunchViewer {
		t.Fatalf("absent booleans should keep defaults: %+v", cfg)
	}
	if cfg.Address != "127.0.0.1:7777" {
		t.Fatalf("address: %q", cfg.Address)
	}
}

func TestLoadConfig_RejectsInvalidCombination(t *testing.T) {
	path := filepath.Join(t.TempDir(), "viewer.yaml")
	if err := os.WriteFile(path, []byte("server: false\nlaunch_viewer: true\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := LoadConfig(path)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatalf("missing file accepted")
	}
}

func TestConfigNormalize_EmptyAddressGetsDefault(t *testing.T) {
	cfg := Config{Server: true, Address: "  "}
	cfg.Normalize()
	if cfg.Address != DefaultAddress {
		t.Fatalf("address: %q", cfg.Address)
	}
}
