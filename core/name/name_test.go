package name

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	n, err := Parse("p-1:p-2:abc")
	assert.NoError(t, err)
	assert.Equal(t, []string{"p-1", "p-2"}, n.PathSegments())
	assert.Equal(t, "p-1:p-2", n.Path())
	assert.Equal(t, "abc", n.Base())
}

func TestParseInvalid(t *testing.T) {
	cases := []string{"-p:a", "p:-a", "", "p::a", "p:a-", "p-:a"}
	for _, s := range cases {
		_, err := Parse(s)
		assert.Error(t, err, s)
	}
}

func TestParseSingleSegment(t *testing.T) {
	n, err := Parse("solo")
	assert.NoError(t, err)
	assert.Equal(t, "", n.Path())
	assert.Equal(t, "solo", n.Base())
}

func TestRoundTrip(t *testing.T) {
	cases := []string{
		"p-1:p-2:abc",
		"solo",
		"a:b:c:d-e-f",
	}
	for _, s := range cases {
		n, err := Parse(s)
		assert.NoError(t, err)
		assert.Equal(t, s, n.String())
	}
}

func TestEqual(t *testing.T) {
	a := MustParse("a:b")
	b := MustParse("a:b")
	c := MustParse("a:c")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
