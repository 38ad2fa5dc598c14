// conn_wsl.go provides WSL-specific Discord IPC socket discovery.
//
// When running inside WSL (Windows Subsystem for Linux), Discord runs on the
// Windows host side. Its IPC socket is a Windows named pipe (\\.\pipe\discord-ipc-N),
// which is not directly accessible from WSL2 as a Unix socket.
//
// WSL1 may expose Windows named pipes transparently, but WSL2 does not.
// For WSL2, users need to set up a relay using socat + npiperelay.exe:
//
//	socat UNIX-LISTEN:/tmp/discord-ipc-0,fork EXEC:"npiperelay.exe -ep -s //./pipe/discord-ipc-0"
//
// The relay's /tmp socket is already tried on every Unix system; this file
// only adds the WSLg runtime paths. When no relay is running none of the
// paths exist and the dial falls through to ErrIPCNotAvailable.

//go:build linux

package discord

import (
	"fmt"
	"os"
	"strings"
)

// isWSL reports whether the current process is running inside WSL.
func isWSL() bool {
	data, err := os.ReadFile("/proc/version")
	if err != nil {
		return false
	}
	lower := strings.ToLower(string(data))
	return strings.Contains(lower, "microsoft")
}

// wslSocketPaths returns additional socket paths to try when running under WSL.
// The standard /tmp and XDG_RUNTIME_DIR locations a relay would use are
// already part of [socketCandidates]; only the WSLg paths are added here.
func wslSocketPaths() []string {
	if !isWSL() {
		return nil
	}

	// WSLg exposes a shared runtime directory that some relays target.
	var paths []string
	for _, dir := range []string{"/mnt/wslg/runtime-dir", "/mnt/wslg"} {
		for i := range maxIPCSlots {
			paths = append(paths, fmt.Sprintf("%s/discord-ipc-%d", dir, i))
		}
	}
	return paths
}
