package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	err := New(KindNotFound, "device %s not found", "therm:kitchen")

	assert.Equal(t, KindNotFound, err.Kind())
	assert.Contains(t, err.Error(), "not_found")
	assert.Contains(t, err.Error(), "therm:kitchen")
}

func TestWrap(t *testing.T) {
	underlying := errors.New("connection reset")
	err := Wrap(KindDbCommunicationError, underlying, "store write failed")

	assert.Equal(t, KindDbCommunicationError, err.Kind())
	assert.ErrorIs(t, err, underlying)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestWithDevice(t *testing.T) {
	err := New(KindTypeError, "bad conversion").WithDevice("outside:temp")

	assert.Contains(t, err.Error(), "outside:temp")
}

func TestIs(t *testing.T) {
	a := NotFound("a")
	b := NotFound("b")
	c := InUse("c")

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestConstructors(t *testing.T) {
	cases := []struct {
		name string
		err  *Error
		kind Kind
	}{
		{"not found", NotFound("x"), KindNotFound},
		{"in use", InUse("x"), KindInUse},
		{"device defined", DeviceDefined("a:b"), KindDeviceDefined},
		{"missing peer", MissingPeer("driver"), KindMissingPeer},
		{"type error", TypeError("x"), KindTypeError},
		{"inv argument", InvArgument("x"), KindInvArgument},
		{"operation error", OperationError("x"), KindOperationError},
		{"bad config", BadConfig("x"), KindBadConfig},
		{"config error", ConfigError("x"), KindConfigError},
		{"parse error", ParseError("x"), KindParseError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.kind, tc.err.Kind())
		})
	}
}

func TestNilError(t *testing.T) {
	var err *Error

	assert.Equal(t, Kind(""), err.Kind())
	assert.Equal(t, "<nil>", err.Error())
	assert.Nil(t, err.Unwrap())
}
