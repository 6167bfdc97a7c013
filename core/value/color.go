package value

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/drmem-io/drmem/core/errors"
)

// Color is a 4-byte RGBA color, used as one of the Value variants.
type Color struct {
	R, G, B, A uint8
}

// namedColors is the small, fixed table of basic color names the logic
// engine's `#name` literal syntax accepts.
var namedColors = map[string]Color{
	"black":   {0x00, 0x00, 0x00, 0xff},
	"white":   {0xff, 0xff, 0xff, 0xff},
	"red":     {0xff, 0x00, 0x00, 0xff},
	"green":   {0x00, 0x80, 0x00, 0xff},
	"blue":    {0x00, 0x00, 0xff, 0xff},
	"yellow":  {0xff, 0xff, 0x00, 0xff},
	"cyan":    {0x00, 0xff, 0xff, 0xff},
	"magenta": {0xff, 0x00, 0xff, 0xff},
	"orange":  {0xff, 0xa5, 0x00, 0xff},
	"purple":  {0x80, 0x00, 0x80, 0xff},
	"gray":    {0x80, 0x80, 0x80, 0xff},
	"grey":    {0x80, 0x80, 0x80, 0xff},
}

// String renders the color as "#rrggbbaa".
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// ParseColor parses a color literal in any of the forms accepted by the
// logic engine: "#rgb", "#rgba", "#rrggbb", "#rrggbbaa", or a named color
// such as "#red".
func ParseColor(s string) (Color, error) {
	if !strings.HasPrefix(s, "#") {
		return Color{}, errors.InvArgument("color literal must start with '#': %s", s)
	}
	body := s[1:]

	if c, ok := namedColors[strings.ToLower(body)]; ok {
		return c, nil
	}

	switch len(body) {
	case 3:
		r, g, b, err := parseShortHex(body)
		if err != nil {
			return Color{}, err
		}
		return Color{r, g, b, 0xff}, nil
	case 4:
		r, g, b, err := parseShortHex(body[:3])
		if err != nil {
			return Color{}, err
		}
		a, err := expandNibble(body[3])
		if err != nil {
			return Color{}, err
		}
		return Color{r, g, b, a}, nil
	case 6:
		r, g, b, err := parseLongHex(body)
		if err != nil {
			return Color{}, err
		}
		return Color{r, g, b, 0xff}, nil
	case 8:
		r, g, b, err := parseLongHex(body[:6])
		if err != nil {
			return Color{}, err
		}
		a, err := parseByte(body[6:8])
		if err != nil {
			return Color{}, err
		}
		return Color{r, g, b, a}, nil
	default:
		return Color{}, errors.InvArgument("invalid color literal: %s", s)
	}
}

func parseShortHex(body string) (r, g, b uint8, err error) {
	r, err = expandNibble(body[0])
	if err != nil {
		return
	}
	g, err = expandNibble(body[1])
	if err != nil {
		return
	}
	b, err = expandNibble(body[2])
	return
}

func parseLongHex(body string) (r, g, b uint8, err error) {
	r, err = parseByte(body[0:2])
	if err != nil {
		return
	}
	g, err = parseByte(body[2:4])
	if err != nil {
		return
	}
	b, err = parseByte(body[4:6])
	return
}

func expandNibble(c byte) (uint8, error) {
	n, err := strconv.ParseUint(string(c), 16, 8)
	if err != nil {
		return 0, errors.InvArgument("invalid hex digit: %c", c)
	}
	return uint8(n)*16 + uint8(n), nil
}

func parseByte(s string) (uint8, error) {
	n, err := strconv.ParseUint(s, 16, 8)
	if err != nil {
		return 0, errors.InvArgument("invalid hex byte: %s", s)
	}
	return uint8(n), nil
}
