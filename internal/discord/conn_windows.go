// conn_windows.go implements Discord IPC discovery for Windows. The client
// listens on named pipes \\.\pipe\discord-ipc-0 through -9; they are dialed
// with go-winio.

//go:build windows

package discord

import (
	"fmt"
	"net"
	"time"

	"github.com/Microsoft/go-winio"
)

// pipeDialTimeout bounds how long a busy pipe slot is waited on before the
// next slot is tried.
const pipeDialTimeout = 2 * time.Second

// socketCandidates returns the named pipe paths in slot order.
func socketCandidates() []string {
	paths := make([]string, 0, maxIPCSlots)
	for i := range maxIPCSlots {
		paths = append(paths, fmt.Sprintf(`\\.\pipe\discord-ipc-%d`, i))
	}
	return paths
}

// connectToDiscord tries each Discord named pipe slot and returns the first
// successful connection.
func connectToDiscord() (net.Conn, error) {
	timeout := pipeDialTimeout
	for _, path := range socketCandidates() {
		conn, err := winio.DialPipe(path, &timeout)
		if err == nil {
			return conn, nil
		}
	}
	return nil, ErrIPCNotAvailable
}
