// Package dispresence provides embedded assets for the dispresence CLI.
//
// The root package exists solely to embed [config.default.toml] via
// [DefaultConfigTOML]. The CLI writes it to the data directory on first run
// and `dispresence init` prints it.
package dispresence

import _ "embed"

// DefaultConfigTOML holds the raw bytes of config.default.toml, embedded at
// build time.
//
//go:embed config.default.toml
var DefaultConfigTOML []byte
