package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAccessors(t *testing.T) {
	b, err := Bool(true).AsBool()
	assert.NoError(t, err)
	assert.True(t, b)

	i, err := Int(42).AsInt32()
	assert.NoError(t, err)
	assert.Equal(t, int32(42), i)

	f, err := Float(3.14).AsFloat64()
	assert.NoError(t, err)
	assert.Equal(t, 3.14, f)

	s, err := Str("hello").AsString()
	assert.NoError(t, err)
	assert.Equal(t, "hello", s)

	c, err := ColorValue(Color{1, 2, 3, 4}).AsColor()
	assert.NoError(t, err)
	assert.Equal(t, Color{1, 2, 3, 4}, c)
}

func TestAccessorsTypeMismatch(t *testing.T) {
	_, err := Bool(true).AsInt32()
	assert.Error(t, err)

	_, err = Int(1).AsBool()
	assert.Error(t, err)

	_, err = Float(1).AsString()
	assert.Error(t, err)

	_, err = Str("x").AsColor()
	assert.Error(t, err)
}

func TestEqual(t *testing.T) {
	assert.True(t, Int(1).Equal(Int(1)))
	assert.False(t, Int(1).Equal(Int(2)))
	// Int and Float never compare equal at the storage layer, even with the
	// same numeric magnitude -- only the expression evaluator widens them.
	assert.False(t, Int(1).Equal(Float(1.0)))
}

func TestScalarRoundTrip(t *testing.T) {
	v := To(int32(7))
	got, err := From[int32](v)
	assert.NoError(t, err)
	assert.Equal(t, int32(7), got)

	v = To("hi")
	s, err := From[string](v)
	assert.NoError(t, err)
	assert.Equal(t, "hi", s)

	v = To(Color{1, 2, 3, 4})
	c, err := From[Color](v)
	assert.NoError(t, err)
	assert.Equal(t, Color{1, 2, 3, 4}, c)
}

func TestScalarMismatch(t *testing.T) {
	_, err := From[int32](Str("not an int"))
	assert.Error(t, err)
}
