// config_test.go tests assets.json loading and style inheritance.

package main

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadAssetData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assets.json")
	raw := `{
  "font_fallback": "google:Inter:800",
  "defaults": {"bg_color": "#5865F2", "fg_color": "#FFFFFF", "size": 512, "font_size": 300},
  "assets": {
    "small": {"bg_color": "#23A55A", "font_size": 340},
    "large": {"label": "DP"}
  }
}`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	data, err := LoadAssetData(path)
	if err != nil {
		t.Fatalf("LoadAssetData: %v", err)
	}

	if got := data.Keys(); !reflect.DeepEqual(got, []string{"large", "small"}) {
		t.Errorf("Keys() = %v", got)
	}

	large := data.Resolved("large")
	want := AssetStyle{Label: "DP", BgColor: "#5865F2", FgColor: "#FFFFFF", Size: 512, FontSize: 300}
	if large != want {
		t.Errorf("Resolved(large) = %+v, want %+v", large, want)
	}

	small := data.Resolved("small")
	want = AssetStyle{Label: "S", BgColor: "#23A55A", FgColor: "#FFFFFF", Size: 512, FontSize: 340}
	if small != want {
		t.Errorf("Resolved(small) = %+v, want %+v", small, want)
	}
}

func TestLoadAssetDataErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadAssetData(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadAssetData(bad); err == nil {
		t.Error("expected error for malformed JSON")
	}
}

func TestGoogleFontSpec(t *testing.T) {
	family, weight, ok := ParseGoogleFontSpec("google:Inter:800")
	if !ok || family != "Inter" || weight != "800" {
		t.Errorf("ParseGoogleFontSpec = %q %q %v", family, weight, ok)
	}
	for _, spec := range []string{"Inter:800", "google:Inter", "local:Inter:800"} {
		if _, _, ok := ParseGoogleFontSpec(spec); ok {
			t.Errorf("ParseGoogleFontSpec(%q) accepted", spec)
		}
	}
}

func TestIsWOFF2(t *testing.T) {
	if !isWOFF2("font.WOFF2", nil) {
		t.Error("extension not detected")
	}
	if !isWOFF2("font.bin", []byte("wOF2rest")) {
		t.Error("magic not detected")
	}
	if isWOFF2("font.ttf", []byte{0, 1, 0, 0}) {
		t.Error("ttf detected as woff2")
	}
}
