package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	rootpkg "tools.zach/dev/dispresence"
	"tools.zach/dev/dispresence/internal/atomicfile"
	"tools.zach/dev/dispresence/internal/config"
	"tools.zach/dev/dispresence/internal/discord"
	"tools.zach/dev/dispresence/internal/logger"
	"tools.zach/dev/dispresence/internal/presence"
	"tools.zach/dev/dispresence/internal/worker"
)

// commandContext carries state shared by the subcommands: the data
// directory flag and the settings loaded from it.
type commandContext struct {
	dataDirFlag *string

	settingsOnce sync.Once
	settings     *config.Config
	settingsErr  error
}

func newCommandContext(dataDirFlag *string) *commandContext {
	return &commandContext{dataDirFlag: dataDirFlag}
}

// paths returns the data directory layout, honoring --data-dir.
func (c *commandContext) paths() DataPaths {
	root := ""
	if c.dataDirFlag != nil {
		root = strings.TrimSpace(*c.dataDirFlag)
	}
	if root == "" {
		root = defaultDataDir()
	}
	return DataPaths{Root: root}
}

// ensureSettings creates the data directory, writes the default settings
// file on first use, and loads settings once per invocation.
func (c *commandContext) ensureSettings() (*config.Config, error) {
	c.settingsOnce.Do(func() {
		dp := c.paths()
		if err := os.MkdirAll(dp.Root, 0o755); err != nil {
			c.settingsErr = fmt.Errorf("create data dir: %w", err)
			return
		}
		if err := writeDefaultSettings(dp); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to write default settings: %v\n", err)
		}
		c.settings, c.settingsErr = config.Load(dp.Root)
	})
	return c.settings, c.settingsErr
}

// writeDefaultSettings writes the embedded default settings unless a
// settings file already exists.
func writeDefaultSettings(dp DataPaths) error {
	if _, err := os.Stat(dp.Config()); !os.IsNotExist(err) {
		return nil
	}
	return atomicfile.Write(dp.Config(), rootpkg.DefaultConfigTOML, 0o644)
}

// openLog installs the rotating file logger as the slog default. console,
// when non-nil, receives a copy of every record.
func (c *commandContext) openLog(cfg *config.Config, console io.Writer) (io.Closer, error) {
	log, closer, err := logger.NewLogger(logger.Options{
		Path:      c.paths().Log(),
		Level:     logger.ParseLevel(cfg.Log.Level),
		MaxSizeMB: cfg.Log.MaxSizeMB,
		Console:   console,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	slog.SetDefault(log)
	return closer, nil
}

// workerOptions maps settings onto worker options.
func workerOptions(cfg *config.Config) worker.Options {
	return worker.Options{
		UpdateInterval: cfg.UpdateInterval(),
		BackoffMin:     cfg.BackoffMin(),
		BackoffMax:     cfg.BackoffMax(),
		Logger:         slog.Default().With("component", "worker"),
	}
}

// starter returns a function that launches a worker with its own IPC client
// for each presence it is given.
func starter(cfg *config.Config) func(*presence.Config) *worker.Handle {
	return func(p *presence.Config) *worker.Handle {
		slog.Info("starting presence worker", "app_id", p.AppID, "details", p.Details)
		return worker.Start(discord.NewClient(p.AppID), p, workerOptions(cfg))
	}
}
