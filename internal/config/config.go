// Package config provides the application settings for dispresence.
//
// Settings are loaded from a TOML file in the user's data directory. They
// cover the default presence file for headless runs, the worker's timing,
// update checks, and logging. The presence payload itself lives in its own
// JSON file, see package presence.
package config

//go:generate go run ../../cmd/genconfig

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"tools.zach/dev/dispresence/internal/atomicfile"
	"tools.zach/dev/dispresence/internal/logger"
	"tools.zach/dev/dispresence/internal/migrate"
	"tools.zach/dev/dispresence/internal/paths"
)

// ///////////////////////////////////////////////
// Config Types
// ///////////////////////////////////////////////

// Config represents the top-level application settings.
type Config struct {
	// Version is the settings schema version used for migrations.
	Version int `toml:"version"`
	// Presence selects the presence file used by the headless runner.
	Presence PresenceConfig `toml:"presence"`
	// Worker holds the broadcast loop's timing.
	Worker WorkerConfig `toml:"worker"`
	// Update holds release check settings.
	Update UpdateConfig `toml:"update"`
	// Log holds logging settings.
	Log LogConfig `toml:"log"`
}

// PresenceConfig selects the presence file for `dispresence run`.
type PresenceConfig struct {
	// File is the presence file to broadcast. Relative paths are resolved
	// against the data directory.
	File string `toml:"file"`
	// Watch re-applies the presence whenever File changes on disk.
	Watch bool `toml:"watch"`
}

// WorkerConfig holds the broadcast loop's timing.
type WorkerConfig struct {
	// UpdateIntervalSeconds is how often the presence is re-sent.
	UpdateIntervalSeconds int `toml:"update_interval_seconds"`
	// BackoffMinMS is the wait after the first failed connect attempt.
	BackoffMinMS int `toml:"backoff_min_ms"`
	// BackoffMaxMS caps the connect backoff.
	BackoffMaxMS int `toml:"backoff_max_ms"`
}

// UpdateConfig holds release check settings.
type UpdateConfig struct {
	// Check enables the startup check for a newer release.
	Check bool `toml:"check"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is the minimum log level (trace, debug, info, warn, error, fail).
	Level string `toml:"level"`
	// MaxSizeMB is the maximum log file size in megabytes before rotation.
	MaxSizeMB int `toml:"max_size_mb"`
}

// ///////////////////////////////////////////////
// Default Configuration
// ///////////////////////////////////////////////

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: migrate.Settings.CurrentVersion,
		Presence: PresenceConfig{
			File:  "",
			Watch: true,
		},
		Worker: WorkerConfig{
			UpdateIntervalSeconds: 15,
			BackoffMinMS:          250,
			BackoffMaxMS:          30000,
		},
		Update: UpdateConfig{
			Check: true,
		},
		Log: LogConfig{
			Level:     "info",
			MaxSizeMB: 10,
		},
	}
}

// ExampleConfig returns a Config suitable for generating config.default.toml.
// It points the presence file at the presets directory so the example shows
// the expected shape of the path.
func ExampleConfig() *Config {
	cfg := DefaultConfig()
	cfg.Presence.File = filepath.ToSlash(filepath.Join(paths.PresetsDir, paths.DefaultPresenceFile))
	return cfg
}

// ///////////////////////////////////////////////
// Derived Values
// ///////////////////////////////////////////////

// UpdateInterval returns the worker's send interval.
func (c *Config) UpdateInterval() time.Duration {
	return time.Duration(c.Worker.UpdateIntervalSeconds) * time.Second
}

// BackoffMin returns the first connect backoff step.
func (c *Config) BackoffMin() time.Duration {
	return time.Duration(c.Worker.BackoffMinMS) * time.Millisecond
}

// BackoffMax returns the connect backoff cap.
func (c *Config) BackoffMax() time.Duration {
	return time.Duration(c.Worker.BackoffMaxMS) * time.Millisecond
}

// PresencePath resolves Presence.File against dataDir. It returns "" when no
// file is configured.
func (c *Config) PresencePath(dataDir string) string {
	if c.Presence.File == "" {
		return ""
	}
	p := filepath.FromSlash(c.Presence.File)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dataDir, p)
}

// ///////////////////////////////////////////////
// PeekVersion
// ///////////////////////////////////////////////

// PeekVersion reads just the version field from raw TOML bytes.
// Returns 1 if the version field is missing or zero.
func PeekVersion(data []byte) int {
	var v struct {
		Version int `toml:"version"`
	}
	if err := toml.Unmarshal(data, &v); err != nil {
		return 1
	}
	if v.Version == 0 {
		return 1
	}
	return v.Version
}

// ///////////////////////////////////////////////
// Loading and Saving
// ///////////////////////////////////////////////

// Load reads and parses the settings file from dataDir/settings.toml.
// If the file doesn't exist, returns DefaultConfig.
func Load(dataDir string) (*Config, error) {
	path := filepath.Join(dataDir, paths.ConfigFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	version := PeekVersion(data)
	if version > migrate.Settings.CurrentVersion {
		return nil, fmt.Errorf("config version %d is newer than supported version %d", version, migrate.Settings.CurrentVersion)
	}

	shouldMigrate := migrate.Settings.NeedsMigration(version)
	if shouldMigrate {
		if backupErr := os.WriteFile(path+".bak", data, 0o644); backupErr != nil {
			slog.Warn("failed to write config backup", "error", backupErr)
		}
		var migrateErr error
		data, _, migrateErr = migrate.Settings.Run(data, version)
		if migrateErr != nil {
			return nil, fmt.Errorf("migrate config: %w", migrateErr)
		}
	}

	cfg := DefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Version = migrate.Settings.CurrentVersion

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	if shouldMigrate {
		if err := cfg.Save(path); err != nil {
			slog.Warn("failed to save migrated config", "error", err)
		}
	}

	return cfg, nil
}

// Save writes the config to disk as TOML using atomic file write.
func (c *Config) Save(path string) error {
	var buf bytes.Buffer
	enc := toml.NewEncoder(&buf)
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return atomicfile.Write(path, buf.Bytes(), 0o644)
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// Validate checks that all configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	if _, ok := logger.LookupLevel(c.Log.Level); !ok {
		return fmt.Errorf("invalid log.level %q: must be one of %s", c.Log.Level, strings.Join(logger.LevelNames(), ", "))
	}

	if c.Log.MaxSizeMB <= 0 {
		return fmt.Errorf("log.max_size_mb must be > 0, got %d", c.Log.MaxSizeMB)
	}

	if c.Worker.UpdateIntervalSeconds <= 0 {
		return fmt.Errorf("update_interval_seconds must be > 0, got %d", c.Worker.UpdateIntervalSeconds)
	}

	if c.Worker.BackoffMinMS <= 0 {
		return fmt.Errorf("backoff_min_ms must be > 0, got %d", c.Worker.BackoffMinMS)
	}

	if c.Worker.BackoffMaxMS < c.Worker.BackoffMinMS {
		return fmt.Errorf("backoff_max_ms (%d) must be >= backoff_min_ms (%d)", c.Worker.BackoffMaxMS, c.Worker.BackoffMinMS)
	}

	if c.Presence.File != "" && !paths.IsPresenceFile(c.Presence.File) {
		return fmt.Errorf("invalid presence.file %q: must end in .json or .dspson", c.Presence.File)
	}

	return nil
}
