// Package main implements the dispresence command: a terminal editor for
// Discord rich presence files and a headless broadcaster for them.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime/debug"
)

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// version is set at build time via ldflags, which cmd/buildver prints:
//
//	go build -ldflags "$(go run ./cmd/buildver ldflags)" ./cmd/dispresence
//
// Bare `go build` leaves it at "dev" and resolveVersion falls back to the
// embedded VCS info.
var version = "dev"

// resolveVersion returns the ldflags version, or "dev+<hash>[.dirty]" from
// the VCS settings the toolchain embeds.
func resolveVersion() string {
	if version != "dev" {
		return version
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return version
	}
	var revision string
	var dirty bool
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if revision == "" {
		return version
	}
	hash := revision[:min(7, len(revision))]
	if dirty {
		return "dev+" + hash + ".dirty"
	}
	return "dev+" + hash
}

// ///////////////////////////////////////////////
// Main
// ///////////////////////////////////////////////

func main() {
	cmd := newRootCommand()
	if err := cmd.Execute(); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
