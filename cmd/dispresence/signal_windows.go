//go:build windows

package main

import (
	"os"
	"os/signal"
)

// signalChannel delivers Ctrl+C to the headless runner. Windows has no
// SIGTERM; the runtime maps console close and Ctrl+Break to os.Interrupt.
func signalChannel() (<-chan os.Signal, func()) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt)
	return ch, func() { signal.Stop(ch) }
}
