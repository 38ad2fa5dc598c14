// render.go draws a short label centered on a solid square and encodes it
// as PNG.

package main

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/png"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// RenderAsset renders style as PNG bytes.
func RenderAsset(style AssetStyle, otFont *opentype.Font) ([]byte, error) {
	if style.Label == "" {
		return nil, errors.New("empty label")
	}
	if style.Size <= 0 || style.FontSize <= 0 {
		return nil, fmt.Errorf("invalid size %d / font size %d", style.Size, style.FontSize)
	}

	bg, err := ParseHexColor(style.BgColor)
	if err != nil {
		return nil, fmt.Errorf("parse bg_color: %w", err)
	}
	fg, err := ParseHexColor(style.FgColor)
	if err != nil {
		return nil, fmt.Errorf("parse fg_color: %w", err)
	}

	face, err := opentype.NewFace(otFont, &opentype.FaceOptions{
		Size:    float64(style.FontSize),
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face: %w", err)
	}
	defer face.Close()

	// Center on the glyph bounds, not the advance, so the label sits
	// visually in the middle.
	bounds, _ := font.BoundString(face, style.Label)
	w := (bounds.Max.X - bounds.Min.X).Ceil()
	h := (bounds.Max.Y - bounds.Min.Y).Ceil()
	x := (style.Size-w)/2 - bounds.Min.X.Floor()
	y := (style.Size-h)/2 - bounds.Min.Y.Floor()

	img := image.NewNRGBA(image.Rect(0, 0, style.Size, style.Size))
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(fg),
		Face: face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(style.Label)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
