package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeInt(t *testing.T) {
	got := Encode(Int(0x01234567))
	assert.Equal(t, []byte{0x49, 0x01, 0x23, 0x45, 0x67}, got)
}

func TestEncodeBool(t *testing.T) {
	assert.Equal(t, []byte{'B', 'T'}, Encode(Bool(true)))
	assert.Equal(t, []byte{'B', 'F'}, Encode(Bool(false)))
}

func TestDecodeRoundTrip(t *testing.T) {
	cases := []Value{
		Bool(true),
		Bool(false),
		Int(0x01234567),
		Int(-1),
		Float(3.14159),
		Float(0),
		Str(""),
		Str("hello, drmem"),
		ColorValue(Color{0xde, 0xad, 0xbe, 0xef}),
	}

	for _, v := range cases {
		encoded := Encode(v)
		decoded, err := Decode(encoded)
		assert.NoError(t, err)
		assert.True(t, v.Equal(decoded), "round trip mismatch for %v", v)
	}
}

func TestDecodeRejectsShortBuffers(t *testing.T) {
	cases := [][]byte{
		{},
		{'B'},
		{'I', 0x01, 0x02},
		{'D', 0x01, 0x02, 0x03},
		{'S', 0x00, 0x00, 0x00, 0x05, 'h', 'i'},
		{'C', 0x01, 0x02},
		{0xff},
	}
	for _, buf := range cases {
		_, err := Decode(buf)
		assert.Error(t, err, "expected error decoding %v", buf)
	}
}

func TestDecodeRejectsInvalidUTF8(t *testing.T) {
	buf := []byte{'S', 0x00, 0x00, 0x00, 0x01, 0xff}
	_, err := Decode(buf)
	assert.Error(t, err)
}
