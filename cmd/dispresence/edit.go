package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"tools.zach/dev/dispresence/internal/tui"
	"tools.zach/dev/dispresence/internal/worker"
)

// errNoTerminal is returned when the editor is started without a TTY.
var errNoTerminal = errors.New("the editor needs an interactive terminal; use `dispresence run` to broadcast headless")

// stopTimeout bounds how long exiting the editor or the runner waits for
// the worker.
const stopTimeout = 3 * time.Second

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "edit [file]",
		Short: "Open the presence editor",
		Long:  "Open the terminal editor. The file argument, or presence.file from the\nsettings when it exists, is loaded on start.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
				return errNoTerminal
			}
			cfg, err := ctx.ensureSettings()
			if err != nil {
				return err
			}
			closer, err := ctx.openLog(cfg, nil)
			if err != nil {
				return err
			}
			defer closer.Close()

			path := ""
			if len(args) == 1 {
				path = args[0]
			} else if p := cfg.PresencePath(ctx.paths().Root); p != "" {
				if _, statErr := os.Stat(p); statErr == nil {
					path = p
				}
			}

			slog.Info("editor starting", "version", resolveVersion(), "file", path)
			model := tui.New(starter(cfg), path)
			final, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
			if m, ok := final.(tui.Model); ok {
				waitStopped(m.Handle(), stopTimeout)
			}
			if err != nil {
				return fmt.Errorf("editor: %w", err)
			}
			return nil
		},
	}
}

// waitStopped stops h and waits up to timeout for its worker to finish.
// It reports whether the worker finished in time.
func waitStopped(h *worker.Handle, timeout time.Duration) bool {
	h.Stop()
	select {
	case <-h.Done():
		return true
	case <-time.After(timeout):
		slog.Warn("presence worker did not stop in time", "timeout", timeout)
		return false
	}
}
