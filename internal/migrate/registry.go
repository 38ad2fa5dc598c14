package migrate

import "fmt"

// Registry holds the current version and the migration chain for one file
// kind.
type Registry struct {
	// CurrentVersion is the schema version the application reads and writes.
	CurrentVersion int
	// Migrations is the upgrade chain. Exported so tests can swap it.
	Migrations []Migration
}

// Register appends m. It panics on a duplicate version so two upgrades can
// never silently race for the same slot.
func (r *Registry) Register(m Migration) {
	for _, existing := range r.Migrations {
		if existing.Version == m.Version {
			panic(fmt.Sprintf("migrate: duplicate migration version %d (description: %q)", m.Version, m.Description))
		}
	}
	r.Migrations = append(r.Migrations, m)
}

// NeedsMigration reports whether a file written at fileVersion must be
// upgraded before it is decoded.
func (r *Registry) NeedsMigration(fileVersion int) bool {
	if fileVersion < r.CurrentVersion {
		return true
	}
	for _, m := range r.Migrations {
		if fileVersion < m.Version {
			return true
		}
	}
	return false
}

// Run applies the registry's migrations to data written at fromVersion.
func (r *Registry) Run(data []byte, fromVersion int) ([]byte, int, error) {
	return Run(data, fromVersion, r.Migrations)
}

// Settings is the registry for settings.toml. Version 1 is the first
// released schema, so the chain is empty.
var Settings = &Registry{CurrentVersion: 1}
