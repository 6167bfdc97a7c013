package name

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSpecDefaultField(t *testing.T) {
	spec, err := ParseSpec("outside:temp")
	assert.NoError(t, err)
	assert.Equal(t, FieldValue, spec.Field)
	assert.Equal(t, "outside:temp", spec.String())
}

func TestParseSpecExplicitField(t *testing.T) {
	spec, err := ParseSpec("outside:temp.unit")
	assert.NoError(t, err)
	assert.Equal(t, FieldUnit, spec.Field)
	assert.Equal(t, "outside:temp.unit", spec.String())
}

func TestParseSpecAllFields(t *testing.T) {
	for _, f := range []Field{FieldValue, FieldUnit, FieldLocation, FieldSummary, FieldDetail} {
		s := "a:b." + string(f)
		spec, err := ParseSpec(s)
		assert.NoError(t, err)
		assert.Equal(t, f, spec.Field)
	}
}

func TestParseSpecInvalidField(t *testing.T) {
	_, err := ParseSpec("a:b.bogus")
	assert.Error(t, err)
}
