package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseColor(t *testing.T) {
	cases := []struct {
		in       string
		expected Color
	}{
		{"#fff", Color{0xff, 0xff, 0xff, 0xff}},
		{"#000", Color{0x00, 0x00, 0x00, 0xff}},
		{"#f00f", Color{0xff, 0x00, 0x00, 0xff}},
		{"#ff0000", Color{0xff, 0x00, 0x00, 0xff}},
		{"#ff000080", Color{0xff, 0x00, 0x00, 0x80}},
		{"#red", Color{0xff, 0x00, 0x00, 0xff}},
		{"#RED", Color{0xff, 0x00, 0x00, 0xff}},
	}

	for _, tc := range cases {
		got, err := ParseColor(tc.in)
		assert.NoError(t, err, tc.in)
		assert.Equal(t, tc.expected, got, tc.in)
	}
}

func TestParseColorInvalid(t *testing.T) {
	cases := []string{"fff", "#ff", "#fffffffff", "#zzz", "#notacolor"}
	for _, in := range cases {
		_, err := ParseColor(in)
		assert.Error(t, err, in)
	}
}

func TestColorString(t *testing.T) {
	assert.Equal(t, "#deadbeef", Color{0xde, 0xad, 0xbe, 0xef}.String())
}
