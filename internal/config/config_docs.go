package config

// ///////////////////////////////////////////////
// Documentation Types
// ///////////////////////////////////////////////

// FieldDoc holds documentation and alternative examples for a single config field.
// The genconfig tool uses [FieldDoc] values to annotate the generated config.default.toml.
type FieldDoc struct {
	// Comment is shown as a header comment above the field in the example config.
	Comment string

	// Alternatives are shown as commented-out lines below the active value.
	Alternatives []string
}

// ///////////////////////////////////////////////
// Field Documentation Map
// ///////////////////////////////////////////////

// ConfigDocs maps TOML field paths (dot-separated, e.g. "worker.backoff_min_ms")
// to their [FieldDoc] entries.
var ConfigDocs = map[string]FieldDoc{
	"version": {
		Comment: "Settings schema version. Do not edit.",
	},

	// Presence
	"presence.file": {
		Comment: "Presence file broadcast by `dispresence run`. Relative paths are\nresolved against the data directory. Both .json and .dspson are accepted.",
		Alternatives: []string{
			`file = "/home/me/games/raid-night.dspson"`,
		},
	},
	"presence.watch": {
		Comment: "Re-apply the presence whenever the file above changes on disk.",
	},

	// Worker
	"worker.update_interval_seconds": {
		Comment: "Seconds between presence updates while connected.",
	},
	"worker.backoff_min_ms": {
		Comment: "Connect retry backoff. The wait starts at backoff_min_ms, doubles after\neach failed attempt up to backoff_max_ms, and gets up to 20% random jitter.",
	},
	"worker.backoff_max_ms": {},

	// Update
	"update.check": {
		Comment: "Check GitHub for a newer release on startup and log it.",
		Alternatives: []string{
			`check = false`,
		},
	},

	// Log
	"log.level": {
		Comment: "Minimum log level. Options: \"trace\", \"debug\", \"info\", \"warn\", \"error\", \"fail\"",
		Alternatives: []string{
			`level = "debug"`,
			`level = "warn"`,
		},
	},
	"log.max_size_mb": {
		Comment: "Maximum log file size in megabytes before rotation.",
	},
}
