// Package update checks GitHub for a newer dispresence release.
package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"tools.zach/dev/dispresence/internal/remote"
)

// ErrNoRelease is returned when the repository has no published release.
var ErrNoRelease = errors.New("no published release")

// maxBody bounds the release document read from the API.
const maxBody = 256 << 10

// Release is the subset of the GitHub release object the check uses.
type Release struct {
	Tag        string `json:"tag_name"`
	URL        string `json:"html_url"`
	Prerelease bool   `json:"prerelease"`
}

// ///////////////////////////////////////////////
// Checker
// ///////////////////////////////////////////////

// Checker queries a latest-release endpoint.
type Checker struct {
	// URL is the GitHub API latest-release endpoint.
	URL string
	// UserAgent is required by the GitHub API.
	UserAgent string
	client    *retryablehttp.Client
}

// NewChecker returns a Checker for the configured repository.
func NewChecker(userAgent string) *Checker {
	client := retryablehttp.NewClient()
	client.RetryMax = 2
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = 5 * time.Second
	client.Logger = nil
	return &Checker{
		URL:       remote.LatestReleaseURL(),
		UserAgent: userAgent,
		client:    client,
	}
}

// Latest fetches the newest published release.
func (c *Checker) Latest(ctx context.Context) (Release, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return Release{}, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Release{}, fmt.Errorf("GET %s: %w", c.URL, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return Release{}, ErrNoRelease
	default:
		return Release{}, fmt.Errorf("GET %s: status %d", c.URL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return Release{}, fmt.Errorf("reading response: %w", err)
	}

	var rel Release
	if err := json.Unmarshal(body, &rel); err != nil {
		return Release{}, fmt.Errorf("parsing release: %w", err)
	}
	if rel.Tag == "" {
		return Release{}, fmt.Errorf("parsing release: %w", ErrNoRelease)
	}
	return rel, nil
}

// Newer returns the latest release and whether it is newer than current.
// Pre-releases never count as newer.
func (c *Checker) Newer(ctx context.Context, current string) (Release, bool, error) {
	rel, err := c.Latest(ctx)
	if err != nil {
		return Release{}, false, err
	}
	if rel.Prerelease {
		return rel, false, nil
	}
	return rel, semverLess(current, rel.Tag), nil
}

// Check logs when a newer release exists. Failures are logged at debug
// level and otherwise ignored.
func (c *Checker) Check(ctx context.Context, current string) {
	if c.URL == "" {
		slog.Debug("skipping version check: no release URL configured")
		return
	}
	rel, newer, err := c.Newer(ctx, current)
	if err != nil {
		slog.Debug("version check failed", "error", err)
		return
	}
	if newer {
		slog.Info("new version available", "current", current, "latest", rel.Tag, "url", rel.URL)
	}
}

// ///////////////////////////////////////////////
// Version Comparison
// ///////////////////////////////////////////////

// semverLess reports whether a < b. Non-semver strings are never less.
// A pre-release sorts before the same version without one
// (e.g., "0.1.0-dev" < "0.1.0"); pre-releases are not ordered among
// themselves.
func semverLess(a, b string) bool {
	pa := parseSemver(a)
	pb := parseSemver(b)
	if pa == nil || pb == nil {
		return false
	}
	for i := range 3 {
		if pa[i] != pb[i] {
			return pa[i] < pb[i]
		}
	}
	return hasPreRelease(a) && !hasPreRelease(b)
}

func hasPreRelease(s string) bool {
	return strings.Contains(strings.TrimPrefix(s, "v"), "-")
}

// parseSemver splits "v1.2.3" or "0.1.0-dev+build" into [major, minor,
// patch]. Returns nil if s is not a three-part numeric version.
func parseSemver(s string) []int {
	s = strings.TrimPrefix(s, "v")
	if idx := strings.IndexAny(s, "-+"); idx >= 0 {
		s = s[:idx]
	}
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return nil
	}
	result := make([]int, 3)
	for i, p := range parts {
		if p == "" || strings.TrimLeft(p, "0123456789") != "" {
			return nil
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil
		}
		result[i] = n
	}
	return result
}
