package presence

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"tools.zach/dev/dispresence/internal/atomicfile"
	"tools.zach/dev/dispresence/internal/paths"
)

// ///////////////////////////////////////////////
// File Format
// ///////////////////////////////////////////////

// file is the on-disk shape. Every field is required; pointers let decode
// tell a missing field apart from a zero one.
type file struct {
	AppID      *string    `json:"app_id"`
	Details    *string    `json:"details"`
	State      *string    `json:"state"`
	Party      *[2]uint32 `json:"party"`
	ImageLarge *[2]string `json:"image_large"`
	ImageSmall *[2]string `json:"image_small"`
}

// isPartySentinel reports whether a party pair means "no party".
func isPartySentinel(current, max uint32) bool {
	return (current == 0 && max == 0) || (current == 1 && max == 1)
}

// isImageSentinel reports whether a key/text pair means "no image".
func isImageSentinel(key, text string) bool {
	return (key == "" && text == "") || (key == "none" && text == "none")
}

func partyFromPair(pair [2]uint32) *Party {
	if isPartySentinel(pair[0], pair[1]) {
		return nil
	}
	return &Party{Current: pair[0], Max: pair[1]}
}

func imageFromPair(pair [2]string) *Image {
	if isImageSentinel(pair[0], pair[1]) {
		return nil
	}
	return &Image{Key: pair[0], Text: pair[1]}
}

func partyToPair(p *Party) [2]uint32 {
	if p == nil {
		return [2]uint32{0, 0}
	}
	return [2]uint32{p.Current, p.Max}
}

func imageToPair(img *Image) [2]string {
	if img == nil {
		return [2]string{"", ""}
	}
	return [2]string{img.Key, img.Text}
}

// PartyFromValues builds the optional party for a current/max pair the way
// the file format reads it back.
func PartyFromValues(current, max uint32) *Party {
	return partyFromPair([2]uint32{current, max})
}

// ImageFromValues builds the optional image for a key/text pair the way the
// file format reads it back.
func ImageFromValues(key, text string) *Image {
	return imageFromPair([2]string{key, text})
}

// ///////////////////////////////////////////////
// Encode / Decode
// ///////////////////////////////////////////////

// Decode parses a presence document. It does not validate.
func Decode(data []byte) (*Config, error) {
	var f file
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	missing := func(name string) error {
		return fmt.Errorf("%w: missing field %q", ErrDecode, name)
	}
	switch {
	case f.AppID == nil:
		return nil, missing("app_id")
	case f.Details == nil:
		return nil, missing("details")
	case f.State == nil:
		return nil, missing("state")
	case f.Party == nil:
		return nil, missing("party")
	case f.ImageLarge == nil:
		return nil, missing("image_large")
	case f.ImageSmall == nil:
		return nil, missing("image_small")
	}

	return &Config{
		AppID:      *f.AppID,
		Details:    *f.Details,
		State:      *f.State,
		Party:      partyFromPair(*f.Party),
		LargeImage: imageFromPair(*f.ImageLarge),
		SmallImage: imageFromPair(*f.ImageSmall),
	}, nil
}

// Encode renders c in the file format, writing sentinels for absent values.
func Encode(c *Config) ([]byte, error) {
	party := partyToPair(c.Party)
	large := imageToPair(c.LargeImage)
	small := imageToPair(c.SmallImage)
	f := file{
		AppID:      &c.AppID,
		Details:    &c.Details,
		State:      &c.State,
		Party:      &party,
		ImageLarge: &large,
		ImageSmall: &small,
	}
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding presence: %w", err)
	}
	return append(data, '\n'), nil
}

// ///////////////////////////////////////////////
// Load / Save
// ///////////////////////////////////////////////

// Load reads, decodes and validates the presence file at path. Both the
// .json and .dspson extensions are parsed the same way. Errors wrap
// [ErrRead], [ErrDecode] or [ErrInvalid].
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRead, err)
	}
	c, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return c, nil
}

// Save validates c and atomically writes it to path, creating missing parent
// directories.
func Save(path string, c *Config) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := Encode(c)
	if err != nil {
		return err
	}
	if err := atomicfile.Write(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: %w", ErrWrite, err)
	}
	return nil
}

// ///////////////////////////////////////////////
// Discovery
// ///////////////////////////////////////////////

// Discover returns every presence file below dir, sorted. A missing dir is
// not an error and yields no files.
func Discover(dir string) ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), paths.PresencePattern, doublestar.WithFilesOnly())
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("discover presence files in %s: %w", dir, err)
	}
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, filepath.Join(dir, filepath.FromSlash(m)))
	}
	sort.Strings(out)
	return out, nil
}
