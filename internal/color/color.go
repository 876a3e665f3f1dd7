// Package color converts textual color tokens into RGB triples.
package color

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// RGB is one 8-bit-per-channel color.
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// Canonical colors.
var (
	Off     = RGB{0, 0, 0}
	Red     = RGB{255, 0, 0}
	Green   = RGB{0, 255, 0}
	Blue    = RGB{0, 0, 255}
	Yellow  = RGB{255, 255, 0}
	Cyan    = RGB{0, 255, 255}
	Magenta = RGB{255, 0, 255}
	White   = RGB{255, 255, 255}
	Orange  = RGB{255, 165, 0}
)

var named = map[string]RGB{
	"red":     Red,
	"green":   Green,
	"blue":    Blue,
	"yellow":  Yellow,
	"cyan":    Cyan,
	"magenta": Magenta,
	"purple":  Magenta,
	"white":   White,
	"orange":  Orange,
}

// Hex returns the color as #RRGGBB with upper-case digits.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// String implements fmt.Stringer.
func (c RGB) String() string {
	return c.Hex()
}

// IsOff reports whether all channels are zero.
func (c RGB) IsOff() bool {
	return c == Off
}

// ParseHex parses "RRGGBB" or "#RRGGBB". Exactly six hex digits are required.
func ParseHex(token string) (RGB, bool) {
	s := strings.TrimPrefix(token, "#")
	if len(s) != 6 {
		return Off, false
	}

	var channels [3]uint8
	for i := range channels {
		v, err := strconv.ParseUint(s[i*2:i*2+2], 16, 8)
		if err != nil {
			return Off, false
		}
		channels[i] = uint8(v)
	}

	return RGB{R: channels[0], G: channels[1], B: channels[2]}, true
}

// Lookup resolves a color name from the fixed table. Names are matched
// case-insensitively.
func Lookup(name string) (RGB, bool) {
	c, ok := named[strings.ToLower(name)]
	if !ok {
		return Off, false
	}
	return c, true
}

// Resolve trims and lowercases the token, then tries hex and the name table.
// Unknown tokens resolve to Off with ok=false; Off is still a valid color to
// render, so callers may ignore ok.
func Resolve(token string) (RGB, bool) {
	t := strings.ToLower(strings.TrimSpace(token))

	if c, ok := ParseHex(t); ok {
		return c, true
	}
	if c, ok := Lookup(t); ok {
		return c, true
	}
	return Off, false
}

// Names returns the known color names in sorted order.
func Names() []string {
	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
