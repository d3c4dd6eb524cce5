package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Database.Path == "" {
		t.Error("Expected a default database path")
	}
	if len(cfg.Library.SupportedFormats) == 0 {
		t.Error("Expected default supported formats")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("CreatesDefaultWhenMissing", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		cfg, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("Failed to load config: %v", err)
		}
		if cfg.Library.Path != "./music" {
			t.Errorf("Expected default library path, got %s", cfg.Library.Path)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Errorf("Expected config file to be created: %v", err)
		}
	})

	t.Run("RoundTrip", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")

		original := DefaultConfig()
		original.Library.Path = "/srv/music"
		original.Logging.Format = "json"
		original.Remote.Enabled = false
		if err := original.SaveToFile(configPath); err != nil {
			t.Fatalf("Failed to save config: %v", err)
		}

		loaded, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("Failed to reload config: %v", err)
		}
		if loaded.Library.Path != "/srv/music" {
			t.Errorf("Expected library path /srv/music, got %s", loaded.Library.Path)
		}
		if loaded.Logging.Format != "json" {
			t.Errorf("Expected json log format, got %s", loaded.Logging.Format)
		}
		if loaded.Remote.Enabled {
			t.Error("Expected remote disabled after reload")
		}
	})

	t.Run("RejectsInvalidFile", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(configPath, []byte("this is not toml {{{"), 0644); err != nil {
			t.Fatalf("Failed to write file: %v", err)
		}

		if _, err := LoadConfig(configPath); err == nil {
			t.Error("Expected error for malformed config")
		}
	})
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"EmptyDatabasePath", func(c *Config) { c.Database.Path = "" }},
		{"EmptyLibraryPath", func(c *Config) { c.Library.Path = "" }},
		{"NoFormats", func(c *Config) { c.Library.SupportedFormats = nil }},
		{"BadLogLevel", func(c *Config) { c.Logging.Level = "verbose" }},
		{"BadLogFormat", func(c *Config) { c.Logging.Format = "xml" }},
		{"NegativeTimeout", func(c *Config) { c.Remote.TimeoutSeconds = -1 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestIsFormatSupported(t *testing.T) {
	cfg := DefaultConfig()

	if !cfg.IsFormatSupported(".mp3") {
		t.Error("Expected .mp3 to be supported")
	}
	if cfg.IsFormatSupported(".ogg") {
		t.Error("Expected .ogg to be unsupported by default")
	}
}
