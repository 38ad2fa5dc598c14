// google_fonts.go downloads font files from the Google Fonts CSS API.
//
// Font specs use the format "google:FAMILY:WEIGHT" (e.g. "google:Inter:800").
// Downloaded fonts are cached locally so they aren't re-fetched on every run.

package main

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// fontURLRe extracts the font file URL from the CSS response.
// Matches: url(https://fonts.gstatic.com/s/inter/v18/xxx.woff2)
var fontURLRe = regexp.MustCompile(`url\((https://fonts\.gstatic\.com/[^)]+)\)`)

// ParseGoogleFontSpec parses a "google:Family:Weight" spec into its parts.
// Returns family, weight, and whether the spec is valid.
func ParseGoogleFontSpec(spec string) (family, weight string, ok bool) {
	parts := strings.SplitN(spec, ":", 3)
	if len(parts) != 3 || parts[0] != "google" {
		return "", "", false
	}
	return parts[1], parts[2], true
}

// FetchGoogleFont downloads a font from Google Fonts, caching the result.
// The cacheDir is created if it doesn't exist. Returns the raw font bytes
// in SFNT (TTF/OTF) format, converting from WOFF2 if necessary.
func FetchGoogleFont(spec, cacheDir string) ([]byte, error) {
	family, weight, ok := ParseGoogleFontSpec(spec)
	if !ok {
		return nil, fmt.Errorf("invalid google font spec %q: expected google:FAMILY:WEIGHT", spec)
	}

	cacheFile := filepath.Join(cacheDir, fmt.Sprintf("%s-%s.ttf", family, weight))
	if data, err := os.ReadFile(cacheFile); err == nil {
		return data, nil
	}

	cssURL := fmt.Sprintf("https://fonts.googleapis.com/css2?family=%s:wght@%s",
		url.QueryEscape(family), weight)

	// Google serves WOFF2 URLs to modern user agents.
	client := &http.Client{Timeout: 15 * time.Second}
	req, err := http.NewRequest("GET", cssURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching CSS from Google Fonts: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Google Fonts CSS API returned status %d for %s wght@%s", resp.StatusCode, family, weight)
	}

	cssBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("reading CSS response: %w", err)
	}

	matches := fontURLRe.FindSubmatch(cssBody)
	if matches == nil {
		return nil, fmt.Errorf("no font URL found in Google Fonts CSS response for %s wght@%s", family, weight)
	}
	fontURL := string(matches[1])

	fontResp, err := client.Get(fontURL)
	if err != nil {
		return nil, fmt.Errorf("downloading font file: %w", err)
	}
	defer fontResp.Body.Close()

	if fontResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("font file download returned status %d", fontResp.StatusCode)
	}

	fontData, err := io.ReadAll(io.LimitReader(fontResp.Body, 10<<20)) // 10 MiB limit
	if err != nil {
		return nil, fmt.Errorf("reading font file: %w", err)
	}

	fontData, err = toSFNT(fontURL, fontData)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating font cache dir: %w", err)
	}
	if err := os.WriteFile(cacheFile, fontData, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "  warning: failed to cache font: %v\n", err)
	}

	return fontData, nil
}
