// config.go defines the asset list read from data/assets.json. Each entry is
// an application art asset keyed by the name presence files reference in
// image_large and image_small.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// AssetStyle holds the visual styling for one rendered asset.
type AssetStyle struct {
	// Label is the text drawn on the asset. Defaults to the key's first letter.
	Label string `json:"label,omitempty"`
	// BgColor is the background hex color (e.g. "#5865F2").
	BgColor string `json:"bg_color,omitempty"`
	// FgColor is the foreground hex color.
	FgColor string `json:"fg_color,omitempty"`
	// Size is the square image dimension in pixels. Discord requires at
	// least 512 for uploaded art.
	Size int `json:"size,omitempty"`
	// FontSize is the font size in points at 72 DPI.
	FontSize int `json:"font_size,omitempty"`
}

// AssetData is the top-level structure of data/assets.json.
type AssetData struct {
	// Font is a local font path relative to the repo root.
	Font string `json:"font,omitempty"`
	// FontFallback is a Google Fonts spec (e.g. "google:Inter:800") used
	// when Font is missing.
	FontFallback string `json:"font_fallback,omitempty"`
	// Defaults is inherited by every asset.
	Defaults AssetStyle `json:"defaults"`
	// Assets maps asset keys to their overrides.
	Assets map[string]AssetStyle `json:"assets"`
}

// Keys returns the asset keys in sorted order.
func (d *AssetData) Keys() []string {
	keys := make([]string, 0, len(d.Assets))
	for k := range d.Assets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Resolved returns the effective style for key: defaults, then the asset's
// own overrides, then a label derived from the key when none is set.
func (d *AssetData) Resolved(key string) AssetStyle {
	style := d.Defaults
	if over, ok := d.Assets[key]; ok {
		mergeStyle(&style, over)
	}
	if style.Label == "" && key != "" {
		style.Label = strings.ToUpper(key[:1])
	}
	return style
}

// mergeStyle applies non-zero fields from src onto dst.
func mergeStyle(dst *AssetStyle, src AssetStyle) {
	if src.Label != "" {
		dst.Label = src.Label
	}
	if src.BgColor != "" {
		dst.BgColor = src.BgColor
	}
	if src.FgColor != "" {
		dst.FgColor = src.FgColor
	}
	if src.Size != 0 {
		dst.Size = src.Size
	}
	if src.FontSize != 0 {
		dst.FontSize = src.FontSize
	}
}

// LoadAssetData reads and parses an assets.json file.
func LoadAssetData(path string) (*AssetData, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ad AssetData
	if err := json.Unmarshal(data, &ad); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &ad, nil
}
