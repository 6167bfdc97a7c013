package value

import "github.com/drmem-io/drmem/core/errors"

// Scalar constrains the host types a device channel may be parameterized
// over. Each is a distinct Value variant; there is no implicit widening at
// this layer (that only happens inside the logic engine's evaluator).
type Scalar interface {
	bool | int32 | float64 | string | Color
}

// From converts a Value into a Scalar host type T, failing with a
// KindTypeError if the Value's variant does not match T.
func From[T Scalar](v Value) (T, error) {
	var zero T
	switch any(zero).(type) {
	case bool:
		b, err := v.AsBool()
		if err != nil {
			return zero, err
		}
		return any(b).(T), nil
	case int32:
		i, err := v.AsInt32()
		if err != nil {
			return zero, err
		}
		return any(i).(T), nil
	case float64:
		f, err := v.AsFloat64()
		if err != nil {
			return zero, err
		}
		return any(f).(T), nil
	case string:
		s, err := v.AsString()
		if err != nil {
			return zero, err
		}
		return any(s).(T), nil
	case Color:
		c, err := v.AsColor()
		if err != nil {
			return zero, err
		}
		return any(c).(T), nil
	default:
		return zero, errors.TypeError("unsupported scalar type")
	}
}

// To converts a host type T into a Value.
func To[T Scalar](t T) Value {
	switch v := any(t).(type) {
	case bool:
		return Bool(v)
	case int32:
		return Int(v)
	case float64:
		return Float(v)
	case string:
		return Str(v)
	case Color:
		return ColorValue(v)
	default:
		// Unreachable: T is constrained to Scalar.
		panic("value: unsupported scalar type")
	}
}
