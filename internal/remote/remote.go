// Package remote centralizes the GitHub coordinates of the project.
//
// The repository defaults to the upstream project and can be overridden at
// build time by setting ldRepoURL to any GitHub URL form:
//
//	-X tools.zach/dev/dispresence/internal/remote.ldRepoURL=git@github.com:me/fork.git
package remote

import (
	"log/slog"
	"regexp"
	"sync"
)

const (
	// DefaultOwner and DefaultRepo identify the upstream repository.
	DefaultOwner = "Ciavi"
	DefaultRepo  = "dispresence-rs"
)

var ldRepoURL string

var (
	initOnce sync.Once
	owner    string
	repo     string
)

// githubRemoteRe extracts owner and repo from GitHub remote URLs.
// Matches both HTTPS (github.com/) and SSH (github.com:) formats.
var githubRemoteRe = regexp.MustCompile(`github\.com[:/]([^/]+)/([^/.]+)`)

// ParseGitHubURL returns the owner and repository named by a GitHub URL.
func ParseGitHubURL(url string) (owner, repo string, ok bool) {
	m := githubRemoteRe.FindStringSubmatch(url)
	if len(m) != 3 {
		return "", "", false
	}
	return m[1], m[2], true
}

func ensureInit() {
	initOnce.Do(func() {
		owner, repo = DefaultOwner, DefaultRepo
		if ldRepoURL == "" {
			return
		}
		o, r, ok := ParseGitHubURL(ldRepoURL)
		if !ok {
			slog.Warn("remote: ignoring unparsable repository URL", "url", ldRepoURL)
			return
		}
		owner, repo = o, r
	})
}

// Owner returns the GitHub repository owner.
func Owner() string {
	ensureInit()
	return owner
}

// Repo returns the GitHub repository name.
func Repo() string {
	ensureInit()
	return repo
}

// LatestReleaseURL returns the GitHub API endpoint describing the newest
// published release. Returns empty string if owner/repo are unset.
func LatestReleaseURL() string {
	ensureInit()
	if owner == "" || repo == "" {
		return ""
	}
	return "https://api.github.com/repos/" + owner + "/" + repo + "/releases/latest"
}

// ReleasesPage returns the human-facing releases page.
func ReleasesPage() string {
	ensureInit()
	if owner == "" || repo == "" {
		return ""
	}
	return "https://github.com/" + owner + "/" + repo + "/releases"
}
