// Package main prints build metadata for ldflags.
//
//	go run ./cmd/buildver           0.1.0-dev.3+g1234567
//	go run ./cmd/buildver ldflags   -X main.version=... -X .../remote.ldRepoURL=...
//
// Versions follow git state:
//
//	No tags, clean:     0.0.0-dev+05ffee5
//	No tags, dirty:     0.0.0-dev+05ffee5.dirty
//	On tag v0.1.0:      0.1.0
//	Dirty tag:          0.1.0-dirty
//	3 past v0.1.0:      0.1.0-dev.3+g1234567
//	Same but dirty:     0.1.0-dev.3+g1234567.dirty
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"tools.zach/dev/dispresence/internal/remote"
)

const (
	versionVar = "main.version"
	repoVar    = "tools.zach/dev/dispresence/internal/remote.ldRepoURL"
)

// gitFunc runs git with args and returns its trimmed stdout.
type gitFunc func(args ...string) (string, error)

func runGit(args ...string) (string, error) {
	out, err := exec.Command("git", args...).Output()
	return strings.TrimSpace(string(out)), err
}

func main() {
	if err := newRootCommand(runGit).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand(git gitFunc) *cobra.Command {
	root := &cobra.Command{
		Use:           "buildver",
		Short:         "Print the build version",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), buildVersion(git, baseVersion()))
		},
	}
	root.AddCommand(&cobra.Command{
		Use:   "ldflags",
		Short: "Print -X flags for the version and the origin repository",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprint(cmd.OutOrStdout(), ldflags(buildVersion(git, baseVersion()), originURL(git)))
		},
	})
	return root
}

// ///////////////////////////////////////////////
// Version
// ///////////////////////////////////////////////

// buildVersion describes HEAD relative to the newest v* tag, or as
// base-dev+<hash> when the repository has no version tags.
func buildVersion(git gitFunc, base string) string {
	if desc, err := git("describe", "--tags", "--match", "v*", "--dirty"); err == nil {
		return formatTaggedVersion(desc)
	}

	hash, err := git("rev-parse", "--short=7", "HEAD")
	if err != nil {
		return base + "-dev"
	}
	if status, err := git("status", "--porcelain"); err == nil && status != "" {
		return fmt.Sprintf("%s-dev+%s.dirty", base, hash)
	}
	return fmt.Sprintf("%s-dev+%s", base, hash)
}

// describeRe matches the "<tag>-<N>-g<hash>" form git describe uses for
// commits past a tag.
var describeRe = regexp.MustCompile(`^(.+)-(\d+)-(g[0-9a-f]+)$`)

// formatTaggedVersion turns git describe output into SemVer:
// "v0.1.0-3-g1234567-dirty" becomes "0.1.0-dev.3+g1234567.dirty".
func formatTaggedVersion(desc string) string {
	clean, dirty := strings.CutSuffix(desc, "-dirty")
	clean = strings.TrimPrefix(clean, "v")

	if m := describeRe.FindStringSubmatch(clean); m != nil {
		meta := m[3]
		if dirty {
			meta += ".dirty"
		}
		return fmt.Sprintf("%s-dev.%s+%s", m[1], m[2], meta)
	}
	if dirty {
		return clean + "-dirty"
	}
	return clean
}

// baseVersion reads the root version from .release-manifest.json (key ".").
// It returns "0.0.0" if the file is missing, malformed, or lacks a root entry.
func baseVersion() string {
	data, err := os.ReadFile(".release-manifest.json")
	if err != nil {
		return "0.0.0"
	}
	var manifest map[string]string
	if err := json.Unmarshal(data, &manifest); err != nil {
		return "0.0.0"
	}
	if v := manifest["."]; v != "" {
		return v
	}
	return "0.0.0"
}

// ///////////////////////////////////////////////
// Repository
// ///////////////////////////////////////////////

// originURL returns the origin remote when it points at GitHub, so forks
// check their own releases. Anything else yields "".
func originURL(git gitFunc) string {
	url, err := git("remote", "get-url", "origin")
	if err != nil {
		return ""
	}
	if _, _, ok := remote.ParseGitHubURL(url); !ok {
		return ""
	}
	return url
}

// ldflags renders the -X flags for version and, when set, repoURL.
func ldflags(version, repoURL string) string {
	flags := []string{fmt.Sprintf("-X %s=%s", versionVar, version)}
	if repoURL != "" {
		flags = append(flags, fmt.Sprintf("-X %s=%s", repoVar, repoURL))
	}
	return strings.Join(flags, " ")
}
