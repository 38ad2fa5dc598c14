// gen-assets renders placeholder art for a Discord application's rich
// presence assets.
//
// Reads asset keys and styling from data/assets.json and renders each label
// centered on its background. The PNGs land in assets/discord/<key>.png,
// ready to upload under the same key in the developer portal so presence
// files (including the one written by "dispresence init") show an image.
//
// Font resolution:
//  1. Local file path from the "font" field
//  2. Google Fonts download from "font_fallback" (e.g. "google:Inter:800")
//
// Usage:
//
//	cd tools/generate-assets && go run .
//	cd tools/generate-assets && go run . -assets ../../data/assets.json -out ../../assets/discord
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tdewolff/font"
	"golang.org/x/image/font/opentype"
)

func main() {
	assetsFile := flag.String("assets", "../../data/assets.json", "Path to assets.json")
	outDir := flag.String("out", "../../assets/discord", "Output directory")
	flag.Parse()

	// Font paths in assets.json are relative to the repo root.
	repoRoot, err := filepath.Abs(filepath.Join(filepath.Dir(*assetsFile), ".."))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: resolve repo root: %v\n", err)
		os.Exit(1)
	}

	data, err := LoadAssetData(*assetsFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: load assets: %v\n", err)
		os.Exit(1)
	}
	if len(data.Assets) == 0 {
		fmt.Fprintln(os.Stderr, "error: no assets defined")
		os.Exit(1)
	}

	fontBytes, err := resolveFont(data, repoRoot, filepath.Join(repoRoot, "assets", "fonts", ".cache"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	otFont, err := opentype.Parse(fontBytes)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: parse font: %v\n", err)
		os.Exit(1)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error: create output dir: %v\n", err)
		os.Exit(1)
	}

	for _, key := range data.Keys() {
		style := data.Resolved(key)
		pngData, err := RenderAsset(style, otFont)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: render %s: %v\n", key, err)
			os.Exit(1)
		}
		outPath := filepath.Join(*outDir, key+".png")
		if err := os.WriteFile(outPath, pngData, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "error: write %s: %v\n", outPath, err)
			os.Exit(1)
		}
		fmt.Printf("  %s.png (%s)\n", key, style.Label)
	}

	fmt.Printf("Done. Generated %d assets.\n", len(data.Assets))
}

// resolveFont loads the local font when present, otherwise downloads the
// Google Fonts fallback.
func resolveFont(data *AssetData, repoRoot, cacheDir string) ([]byte, error) {
	if data.Font != "" {
		localPath := filepath.Join(repoRoot, data.Font)
		if raw, err := os.ReadFile(localPath); err == nil {
			fmt.Printf("font: %s (local)\n", data.Font)
			return toSFNT(localPath, raw)
		}
	}

	if data.FontFallback != "" {
		if family, weight, ok := ParseGoogleFontSpec(data.FontFallback); ok {
			fmt.Printf("font: %s wght@%s (Google Fonts)\n", family, weight)
			raw, err := FetchGoogleFont(data.FontFallback, cacheDir)
			if err != nil {
				return nil, fmt.Errorf("google fonts fallback failed: %w", err)
			}
			return raw, nil
		}
	}

	return nil, fmt.Errorf("no font configured (set \"font\" or \"font_fallback\" in assets.json)")
}

// toSFNT converts WOFF2 font data to SFNT; other formats pass through.
func toSFNT(path string, data []byte) ([]byte, error) {
	if !isWOFF2(path, data) {
		return data, nil
	}
	sfnt, err := font.ToSFNT(data)
	if err != nil {
		return nil, fmt.Errorf("convert woff2 to sfnt: %w", err)
	}
	return sfnt, nil
}

// isWOFF2 reports whether font data is WOFF2 by extension or the "wOF2" magic.
func isWOFF2(name string, data []byte) bool {
	if strings.HasSuffix(strings.ToLower(name), ".woff2") {
		return true
	}
	return len(data) >= 4 && string(data[:4]) == "wOF2"
}
