// Package presence defines the rich presence configuration a user authors,
// its on-disk file format, and the mapping onto the Discord activity payload.
//
// The in-memory [Config] models "not shown" explicitly with nil pointers.
// The file format predates that and encodes absence with sentinel values;
// the conversion happens only in file.go.
package presence

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"tools.zach/dev/dispresence/internal/discord"
)

// ///////////////////////////////////////////////
// Sentinel Errors
// ///////////////////////////////////////////////

var (
	// ErrRead is returned when a presence file cannot be read.
	ErrRead = errors.New("read presence file")
	// ErrDecode is returned when a presence file is not valid JSON or is
	// missing a required field.
	ErrDecode = errors.New("decode presence file")
	// ErrInvalid is returned when a configuration fails validation.
	ErrInvalid = errors.New("invalid presence")
	// ErrWrite is returned when a presence file cannot be written.
	ErrWrite = errors.New("write presence file")
)

// ///////////////////////////////////////////////
// Limits
// ///////////////////////////////////////////////

const (
	// PartyMin and PartyMax bound both party values.
	PartyMin = 1
	PartyMax = 10
	// MinTextLen and MaxTextLen bound details, state and image text in
	// characters. Empty text is always allowed.
	MinTextLen = 2
	MaxTextLen = 128
)

// ///////////////////////////////////////////////
// Types
// ///////////////////////////////////////////////

// Party is the "n of m" group indicator.
type Party struct {
	Current uint32
	Max     uint32
}

// Image is an uploaded art asset key and its hover text.
type Image struct {
	Key  string
	Text string
}

// Config is one presence: what a single worker broadcasts for its lifetime.
type Config struct {
	// AppID is the Discord application the presence is shown under.
	AppID   string
	Details string
	State   string

	Party      *Party
	LargeImage *Image
	SmallImage *Image
}

// Clone returns a deep copy of c. A worker gets a clone so later edits in
// the UI cannot reach the snapshot it broadcasts.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := *c
	if c.Party != nil {
		p := *c.Party
		out.Party = &p
	}
	if c.LargeImage != nil {
		img := *c.LargeImage
		out.LargeImage = &img
	}
	if c.SmallImage != nil {
		img := *c.SmallImage
		out.SmallImage = &img
	}
	return &out
}

// Equal reports whether c and o describe the same presence.
func (c *Config) Equal(o *Config) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.AppID == o.AppID &&
		c.Details == o.Details &&
		c.State == o.State &&
		equalPtr(c.Party, o.Party) &&
		equalPtr(c.LargeImage, o.LargeImage) &&
		equalPtr(c.SmallImage, o.SmallImage)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// ///////////////////////////////////////////////
// Validation
// ///////////////////////////////////////////////

// Validate checks c against Discord's limits and the file format's sentinels.
// Values that would read back as "not shown" are rejected so that a saved
// config always loads back equal. All errors wrap [ErrInvalid].
func (c *Config) Validate() error {
	if c.AppID == "" {
		return fmt.Errorf("%w: app_id is required", ErrInvalid)
	}
	if !isSnowflake(c.AppID) {
		return fmt.Errorf("%w: app_id %q must contain only digits", ErrInvalid, c.AppID)
	}
	if err := validateText("details", c.Details); err != nil {
		return err
	}
	if err := validateText("state", c.State); err != nil {
		return err
	}
	if p := c.Party; p != nil {
		if p.Current < PartyMin || p.Current > PartyMax || p.Max < PartyMin || p.Max > PartyMax {
			return fmt.Errorf("%w: party %d/%d out of range %d..%d", ErrInvalid, p.Current, p.Max, PartyMin, PartyMax)
		}
		if p.Current > p.Max {
			return fmt.Errorf("%w: party current %d exceeds max %d", ErrInvalid, p.Current, p.Max)
		}
		if isPartySentinel(p.Current, p.Max) {
			return fmt.Errorf("%w: party %d/%d is indistinguishable from no party", ErrInvalid, p.Current, p.Max)
		}
	}
	if err := validateImage("image_large", c.LargeImage); err != nil {
		return err
	}
	return validateImage("image_small", c.SmallImage)
}

func validateImage(field string, img *Image) error {
	if img == nil {
		return nil
	}
	if img.Key == "" {
		return fmt.Errorf("%w: %s key is required when text is set", ErrInvalid, field)
	}
	if isImageSentinel(img.Key, img.Text) {
		return fmt.Errorf("%w: %s %q/%q is indistinguishable from no image", ErrInvalid, field, img.Key, img.Text)
	}
	return validateText(field+" text", img.Text)
}

// validateText enforces the length Discord accepts for free text. Discord
// answers anything outside it with an ERROR event, which the worker would
// retry forever.
func validateText(field, s string) error {
	n := utf8.RuneCountInString(s)
	switch {
	case n == 0:
		return nil
	case n < MinTextLen:
		return fmt.Errorf("%w: %s is %d character, min %d", ErrInvalid, field, n, MinTextLen)
	case n > MaxTextLen:
		return fmt.Errorf("%w: %s is %d characters, max %d", ErrInvalid, field, n, MaxTextLen)
	}
	return nil
}

// isSnowflake reports whether s is a non-empty decimal string.
func isSnowflake(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ///////////////////////////////////////////////
// Activity Mapping
// ///////////////////////////////////////////////

// Activity converts c into the [discord.Activity] wire type. A missing party
// is omitted. Each image contributes its half of the assets object on its
// own, so a config with only a small image still shows it.
func (c *Config) Activity() *discord.Activity {
	a := &discord.Activity{
		Details: c.Details,
		State:   c.State,
	}
	if c.Party != nil {
		a.Party = &discord.Party{Size: [2]int{int(c.Party.Current), int(c.Party.Max)}}
	}
	if c.LargeImage != nil || c.SmallImage != nil {
		a.Assets = &discord.Assets{}
		if c.LargeImage != nil {
			a.Assets.LargeImage = c.LargeImage.Key
			a.Assets.LargeText = c.LargeImage.Text
		}
		if c.SmallImage != nil {
			a.Assets.SmallImage = c.SmallImage.Key
			a.Assets.SmallText = c.SmallImage.Text
		}
	}
	return a
}
