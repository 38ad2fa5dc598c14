package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"tools.zach/dev/dispresence/internal/logger"
	"tools.zach/dev/dispresence/internal/presence"
	"tools.zach/dev/dispresence/internal/update"
	"tools.zach/dev/dispresence/internal/watch"
	"tools.zach/dev/dispresence/internal/worker"
)

// errNoPresenceFile is returned by run when neither --config nor
// presence.file names a file.
var errNoPresenceFile = errors.New("no presence file: pass --config or set presence.file in the settings")

type runOptions struct {
	presencePath string
	noWatch      bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Broadcast a presence file without the editor",
		Long:  "Broadcast a presence file until interrupted. When watching is enabled,\nedits to the file restart the broadcast; invalid edits are logged and ignored.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHeadless(ctx, opts, cmd.ErrOrStderr())
		},
	}
	cmd.Flags().StringVar(&opts.presencePath, "config", "", "Presence file to broadcast (default presence.file from the settings)")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "Do not restart the broadcast when the file changes")
	return cmd
}

// runHeadless broadcasts one presence file until a shutdown signal arrives.
func runHeadless(ctx *commandContext, opts runOptions, console io.Writer) error {
	cfg, err := ctx.ensureSettings()
	if err != nil {
		return err
	}
	dp := ctx.paths()

	if alive, pid := checkStalePID(dp); alive {
		return fmt.Errorf("dispresence already running (pid %d)", pid)
	}

	closer, err := ctx.openLog(cfg, console)
	if err != nil {
		return err
	}
	defer closer.Close()
	log := slog.Default()

	ver := resolveVersion()
	log.Info("dispresence starting", "version", ver, "data_dir", dp.Root)

	token := pidToken()
	pidFile, err := writePID(dp, token)
	if err != nil {
		logger.Fail(log, "failed to write PID file", "error", err)
		return err
	}
	defer removePID(dp, token, pidFile)

	path := opts.presencePath
	if path == "" {
		path = cfg.PresencePath(dp.Root)
	}
	if path == "" {
		logger.Fail(log, "nothing to broadcast", "error", errNoPresenceFile)
		return errNoPresenceFile
	}
	initial, err := presence.Load(path)
	if err != nil {
		logger.Fail(log, "cannot load presence file", "path", path, "error", err)
		return err
	}

	// runCtx ends on SIGINT/SIGTERM. Every wait below selects on it so a
	// worker stuck in an IPC call cannot make the runner ignore signals.
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh, stopSignals := signalChannel()
	defer stopSignals()
	go func() {
		select {
		case <-sigCh:
			log.Info("received shutdown signal")
			cancel()
		case <-runCtx.Done():
		}
	}()

	if cfg.Update.Check {
		go func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error("update check panic", "error", r)
				}
			}()
			update.NewChecker("dispresence/"+ver).Check(runCtx, ver)
		}()
	}

	b := newBroadcaster(starter(cfg))
	b.launch(initial)
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), stopTimeout)
		defer stopCancel()
		b.shutdown(stopCtx)
	}()

	var changes <-chan struct{}
	if cfg.Presence.Watch && !opts.noWatch {
		w, err := watch.New(path)
		if err != nil {
			log.Warn("cannot watch presence file, edits need a restart", "path", path, "error", err)
		} else {
			defer w.Close()
			changes = w.Events()
			if w.Polling() {
				log.Info("using polling mode for file watching", "path", w.Path())
			}
		}
	}

	for {
		select {
		case <-runCtx.Done():
			return nil
		case <-changes:
			b.reload(runCtx, path)
		}
	}
}

// ///////////////////////////////////////////////
// Broadcaster
// ///////////////////////////////////////////////

// broadcaster keeps at most one worker alive and swaps it when the presence
// changes.
type broadcaster struct {
	start   func(*presence.Config) *worker.Handle
	handle  *worker.Handle
	current *presence.Config
	// slowStop is how long shutdown waits before warning about a worker
	// blocked in IPC.
	slowStop time.Duration
}

func newBroadcaster(start func(*presence.Config) *worker.Handle) *broadcaster {
	return &broadcaster{start: start, slowStop: 5 * time.Second}
}

func (b *broadcaster) launch(cfg *presence.Config) {
	b.current = cfg.Clone()
	b.handle = b.start(b.current)
}

// reload loads path and restarts the worker when the presence changed.
// Load failures keep the current broadcast, and so does a cancelled ctx
// while the old worker is still finishing. It reports whether a restart
// happened.
func (b *broadcaster) reload(ctx context.Context, path string) bool {
	cfg, err := presence.Load(path)
	if err != nil {
		slog.Warn("ignoring presence file change", "path", path, "error", err)
		return false
	}
	if cfg.Equal(b.current) {
		slog.Debug("presence file unchanged", "path", path)
		return false
	}
	if !b.shutdown(ctx) {
		return false
	}
	b.launch(cfg)
	slog.Info("presence reloaded", "path", path, "details", cfg.Details, "state", cfg.State)
	return true
}

// shutdown stops the running worker and waits until it finishes or ctx is
// done. It reports whether the worker finished. A worker that did not is
// kept as the handle, so a later shutdown waits for it again.
func (b *broadcaster) shutdown(ctx context.Context) bool {
	if b.handle == nil {
		return true
	}
	b.handle.Stop()

	slow := time.NewTimer(b.slowStop)
	defer slow.Stop()
	for {
		select {
		case <-b.handle.Done():
			b.handle = nil
			return true
		case <-slow.C:
			slog.Warn("waiting for presence worker to finish an IPC call")
		case <-ctx.Done():
			slog.Warn("presence worker did not stop", "error", ctx.Err())
			return false
		}
	}
}
