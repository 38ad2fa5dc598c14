// conn_unix.go implements Discord IPC socket discovery for Unix-like systems
// (Linux, macOS, FreeBSD). It searches the runtime and temp directories from the
// environment, /tmp, and the Snap and Flatpak socket paths, for the stable,
// Canary and PTB clients.

//go:build !windows

package discord

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
)

// ///////////////////////////////////////////////
// Socket Discovery
// ///////////////////////////////////////////////

// runtimeDirEnv lists the environment variables that may point at the
// directory Discord creates its socket in, in lookup order.
var runtimeDirEnv = []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"}

// socketPrefixes are the socket names of the stable, Canary and PTB clients.
// Windows builds of all three share discord-ipc.
var socketPrefixes = []string{"discord-ipc", "discordcanary-ipc", "discordptb-ipc"}

// socketCandidates returns every socket path worth dialing, most likely first.
// Duplicates are removed while preserving order.
func socketCandidates() []string {
	var dirs []string
	for _, env := range runtimeDirEnv {
		if dir := os.Getenv(env); dir != "" {
			dirs = append(dirs, dir)
		}
	}
	dirs = append(dirs, "/tmp")

	uid := strconv.Itoa(os.Getuid())
	for _, sd := range []string{"snap.discord", "snap.discord-canary", "snap.discord-ptb"} {
		dirs = append(dirs, filepath.Join("/run/user", uid, sd))
	}
	for _, app := range []string{
		"com.discordapp.Discord",
		"com.discordapp.DiscordCanary",
		"com.discordapp.DiscordPTB",
	} {
		dirs = append(dirs, filepath.Join("/run/user", uid, "app", app))
	}

	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}
	for _, dir := range dirs {
		for _, prefix := range socketPrefixes {
			for i := range maxIPCSlots {
				add(filepath.Join(dir, fmt.Sprintf("%s-%d", prefix, i)))
			}
		}
	}
	for _, p := range wslSocketPaths() {
		add(p)
	}
	return paths
}

// ///////////////////////////////////////////////
// Connection
// ///////////////////////////////////////////////

// connectToDiscord tries each candidate socket path and returns the first
// successful connection.
func connectToDiscord() (net.Conn, error) {
	for _, path := range socketCandidates() {
		conn, err := net.Dial("unix", path)
		if err == nil {
			return conn, nil
		}
	}

	if isWSL() {
		return nil, fmt.Errorf("%w: running under WSL, a socat + npiperelay.exe relay is required", ErrIPCNotAvailable)
	}
	return nil, ErrIPCNotAvailable
}
