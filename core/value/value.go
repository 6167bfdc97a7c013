// Package value implements DrMem's dynamically-typed Value: a tagged union
// over bool, int32, float64, string, and Color, with total-but-fallible
// conversions to host types and a stable binary wire encoding.
//
// This mirrors the teacher SDK's ConvertToFloat64-style fallible-conversion
// idiom (sdk/utils/convert.go), but expressed with Go generics so each
// conversion is type-safe rather than routed through interface{}.
package value

import (
	"fmt"

	"github.com/drmem-io/drmem/core/errors"
)

// Kind identifies which variant a Value currently holds.
type Kind uint8

// The Value variants, per the core data model.
const (
	KindBool Kind = iota
	KindInt
	KindFloat
	KindString
	KindColor
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindColor:
		return "color"
	default:
		return "unknown"
	}
}

// Value is the tagged union. The zero Value is a Bool(false).
type Value struct {
	kind Kind
	b    bool
	i    int32
	f    float64
	s    string
	c    Color
}

// Bool constructs a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int constructs an integer Value.
func Int(i int32) Value { return Value{kind: KindInt, i: i} }

// Float constructs a floating-point Value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Str constructs a string Value.
func Str(s string) Value { return Value{kind: KindString, s: s} }

// ColorValue constructs a Color Value.
func ColorValue(c Color) Value { return Value{kind: KindColor, c: c} }

// Kind returns the variant currently held.
func (v Value) Kind() Kind { return v.kind }

// AsBool returns the bool held by v, or a KindTypeError if v is not a Bool.
func (v Value) AsBool() (bool, error) {
	if v.kind != KindBool {
		return false, errors.TypeError("value is %s, not bool", v.kind)
	}
	return v.b, nil
}

// AsInt32 returns the int32 held by v, or a KindTypeError if v is not an
// Int.
func (v Value) AsInt32() (int32, error) {
	if v.kind != KindInt {
		return 0, errors.TypeError("value is %s, not int", v.kind)
	}
	return v.i, nil
}

// AsFloat64 returns the float64 held by v, or a KindTypeError if v is not a
// Float.
func (v Value) AsFloat64() (float64, error) {
	if v.kind != KindFloat {
		return 0, errors.TypeError("value is %s, not float", v.kind)
	}
	return v.f, nil
}

// AsString returns the string held by v, or a KindTypeError if v is not a
// String.
func (v Value) AsString() (string, error) {
	if v.kind != KindString {
		return "", errors.TypeError("value is %s, not string", v.kind)
	}
	return v.s, nil
}

// AsColor returns the Color held by v, or a KindTypeError if v is not a
// Color.
func (v Value) AsColor() (Color, error) {
	if v.kind != KindColor {
		return Color{}, errors.TypeError("value is %s, not color", v.kind)
	}
	return v.c, nil
}

// Equal reports structural equality. Values of different kinds are never
// equal, even Int vs Float holding the same numeric magnitude -- storage
// preserves the variant (per the core data model); only the expression
// evaluator widens across Int/Float.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindBool:
		return v.b == other.b
	case KindInt:
		return v.i == other.i
	case KindFloat:
		return v.f == other.f
	case KindString:
		return v.s == other.s
	case KindColor:
		return v.c == other.c
	default:
		return false
	}
}

// String renders the value for logging/debugging purposes.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		return fmt.Sprintf("%t", v.b)
	case KindInt:
		return fmt.Sprintf("%d", v.i)
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return v.s
	case KindColor:
		return v.c.String()
	default:
		return "<invalid>"
	}
}
