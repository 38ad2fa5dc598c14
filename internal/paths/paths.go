// Package paths centralizes file and directory names used across the project.
// All data directory file names are defined here as the single source of truth.
package paths

import (
	"path/filepath"
	"strings"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Data directory file names.
const (
	PIDFile    = "dispresence.pid"
	ConfigFile = "settings.toml"
	LogFile    = "dispresence.log"
	PresetsDir = "presets"
)

// Binary and data directory names.
const (
	BinaryName = "dispresence"
	DataDirRel = ".dispresence" // relative to $HOME
)

// Presence file names and extensions.
const (
	// DefaultPresenceFile is where the editor saves a draft that has no path yet.
	DefaultPresenceFile = "config.json"
	PresenceExt         = ".json"
	PresenceAltExt      = ".dspson"
	// PresencePattern matches presence files below a directory.
	PresencePattern = "**/*.{json,dspson}"
)

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// PID returns the full path to the PID file.
func (d DataDir) PID() string { return filepath.Join(d.Root, PIDFile) }

// Config returns the full path to the settings file.
func (d DataDir) Config() string { return filepath.Join(d.Root, ConfigFile) }

// Log returns the full path to the log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }

// Presets returns the full path to the directory of saved presence files.
func (d DataDir) Presets() string { return filepath.Join(d.Root, PresetsDir) }

// Preset returns the full path of a named preset in the presets directory.
// A name without a presence extension gets ".json" appended.
func (d DataDir) Preset(name string) string {
	if !IsPresenceFile(name) {
		name += PresenceExt
	}
	return filepath.Join(d.Presets(), name)
}

// IsPresenceFile reports whether name carries one of the presence file
// extensions. The check is case-insensitive so "Game.JSON" qualifies.
func IsPresenceFile(name string) bool {
	switch ext := filepath.Ext(name); {
	case strings.EqualFold(ext, PresenceExt), strings.EqualFold(ext, PresenceAltExt):
		return true
	default:
		return false
	}
}
