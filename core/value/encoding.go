package value

import (
	"encoding/binary"
	"math"
	"unicode/utf8"

	"github.com/drmem-io/drmem/core/errors"
)

// The wire tags, per the core data model. Written out explicitly (rather
// than derived from rune literals) since the encoding is a stability
// contract: these bytes must never change once persisted data exists.
const (
	tagBool   byte = 'B'
	tagFalse  byte = 'F'
	tagTrue   byte = 'T'
	tagInt    byte = 'I'
	tagFloat  byte = 'D'
	tagString byte = 'S'
	tagColor  byte = 'C'
)

// Encode renders v as its binary wire representation: one tag byte followed
// by type-specific big-endian bytes, per the core data model.
func Encode(v Value) []byte {
	switch v.kind {
	case KindBool:
		if v.b {
			return []byte{tagBool, tagTrue}
		}
		return []byte{tagBool, tagFalse}
	case KindInt:
		buf := make([]byte, 5)
		buf[0] = tagInt
		binary.BigEndian.PutUint32(buf[1:], uint32(v.i))
		return buf
	case KindFloat:
		buf := make([]byte, 9)
		buf[0] = tagFloat
		binary.BigEndian.PutUint64(buf[1:], math.Float64bits(v.f))
		return buf
	case KindString:
		body := []byte(v.s)
		buf := make([]byte, 1+4+len(body))
		buf[0] = tagString
		binary.BigEndian.PutUint32(buf[1:5], uint32(len(body)))
		copy(buf[5:], body)
		return buf
	case KindColor:
		return []byte{tagColor, v.c.R, v.c.G, v.c.B, v.c.A}
	default:
		return nil
	}
}

// Decode parses a binary wire representation into a Value, per Encode's
// format. Malformed input (short buffers, invalid UTF-8) fails with a
// KindTypeError.
func Decode(buf []byte) (Value, error) {
	if len(buf) < 1 {
		return Value{}, errors.TypeError("empty buffer")
	}
	switch buf[0] {
	case tagBool:
		if len(buf) < 2 {
			return Value{}, errors.TypeError("short buffer for bool: need 2 bytes, got %d", len(buf))
		}
		switch buf[1] {
		case tagFalse:
			return Bool(false), nil
		case tagTrue:
			return Bool(true), nil
		default:
			return Value{}, errors.TypeError("invalid bool payload byte: 0x%02x", buf[1])
		}
	case tagInt:
		if len(buf) < 5 {
			return Value{}, errors.TypeError("short buffer for int: need 5 bytes, got %d", len(buf))
		}
		return Int(int32(binary.BigEndian.Uint32(buf[1:5]))), nil
	case tagFloat:
		if len(buf) < 9 {
			return Value{}, errors.TypeError("short buffer for float: need 9 bytes, got %d", len(buf))
		}
		return Float(math.Float64frombits(binary.BigEndian.Uint64(buf[1:9]))), nil
	case tagString:
		if len(buf) < 5 {
			return Value{}, errors.TypeError("short buffer for string length")
		}
		n := binary.BigEndian.Uint32(buf[1:5])
		if uint32(len(buf)-5) < n {
			return Value{}, errors.TypeError("short buffer for string body: need %d bytes, got %d", n, len(buf)-5)
		}
		body := buf[5 : 5+n]
		if !utf8.Valid(body) {
			return Value{}, errors.TypeError("string body is not valid utf-8")
		}
		return Str(string(body)), nil
	case tagColor:
		if len(buf) < 5 {
			return Value{}, errors.TypeError("short buffer for color: need 5 bytes, got %d", len(buf))
		}
		return ColorValue(Color{R: buf[1], G: buf[2], B: buf[3], A: buf[4]}), nil
	default:
		return Value{}, errors.TypeError("unrecognized tag byte: 0x%02x", buf[0])
	}
}
