package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"tools.zach/dev/dispresence/internal/paths"
	"tools.zach/dev/dispresence/internal/presence"
)

// errInvalidFiles is returned by validate when any file fails.
var errInvalidFiles = errors.New("some presence files are invalid")

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check presence files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				if _, err := presence.Load(path); err != nil {
					fmt.Fprintf(out, "FAIL %v\n", err)
					failed++
					continue
				}
				fmt.Fprintf(out, "ok   %s\n", path)
			}
			if failed > 0 {
				return fmt.Errorf("%w: %d of %d", errInvalidFiles, failed, len(args))
			}
			return nil
		},
	}
}

func newListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list [dir]",
		Short: "List presence files (default the presets directory)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ctx.paths().Presets()
			if len(args) == 1 {
				dir = args[0]
			}
			files, err := presence.Discover(dir)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(files) == 0 {
				fmt.Fprintf(out, "No presence files in %s\n", dir)
				return nil
			}
			for _, f := range files {
				rel, relErr := filepath.Rel(dir, f)
				if relErr != nil {
					rel = f
				}
				fmt.Fprintln(out, filepath.ToSlash(rel))
			}
			return nil
		},
	}
}

// samplePresence is written by init. It validates, but the application ID
// must be replaced with a real one before Discord accepts it. The image keys
// match the placeholder art from tools/generate-assets.
func samplePresence() *presence.Config {
	return &presence.Config{
		AppID:      "1234567890123456789",
		Details:    "Playing something",
		State:      "In a party",
		Party:      &presence.Party{Current: 2, Max: 4},
		LargeImage: &presence.Image{Key: "large", Text: "Large image"},
		SmallImage: &presence.Image{Key: "small", Text: "Small image"},
	}
}

func newInitCommand(ctx *commandContext) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Write a sample presence file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := ctx.paths().Preset(paths.DefaultPresenceFile)
			if len(args) == 1 {
				target = args[0]
			}
			if !paths.IsPresenceFile(target) {
				return fmt.Errorf("%s: presence files end in %s or %s", target, paths.PresenceExt, paths.PresenceAltExt)
			}
			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("presence file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check presence path: %w", err)
				}
			}
			if err := presence.Save(target, samplePresence()); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample presence to %s\n", target)
			fmt.Fprintln(out, "Set app_id to your Discord application ID before applying it.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing file")
	return cmd
}
