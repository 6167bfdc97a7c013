package name

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatch(t *testing.T) {
	cases := []struct {
		pattern  string
		input    string
		expected bool
	}{
		{"a*bc", "azbcbc", true},
		{"a*bc", "azbcd", false},
		{"outside:*", "outside:temp", true},
		{"outside:*", "inside:temp", false},
		{"*:temp", "outside:temp", true},
		{"a?c", "abc", true},
		{"a?c", "abbc", false},
		{"*", "anything:at:all", true},
		{"", "anything", true},
	}

	for _, tc := range cases {
		got, err := Match(tc.pattern, tc.input)
		assert.NoError(t, err, tc.pattern)
		assert.Equal(t, tc.expected, got, "pattern=%q input=%q", tc.pattern, tc.input)
	}
}

func TestMatcherCacheReusesCompiledPattern(t *testing.T) {
	mc := NewMatcherCache()

	m1, err := mc.Get("a*bc")
	assert.NoError(t, err)
	assert.True(t, m1.Match("azbc"))

	m2, err := mc.Get("a*bc")
	assert.NoError(t, err)
	assert.True(t, m2.Match("azbc"))
	assert.False(t, m2.Match("azbcd"))

	_, err = mc.Get("[")
	assert.Error(t, err)
}

// TestMatchAgreesWithReference checks the backtracking law from the core
// testable properties: for arbitrary pattern/string pairs, the compiled
// matcher must agree with a naive recursive reference implementation.
func TestMatchAgreesWithReference(t *testing.T) {
	patterns := []string{"a*bc", "a?c", "*", "ab*cd*ef", "*a*b*c*", "x?y*z", "exact"}
	inputs := []string{"abc", "azbcbc", "azbcd", "abbc", "ac", "xaybcz", "xy", "exact", "exacto", ""}

	for _, p := range patterns {
		for _, in := range inputs {
			got, err := Match(p, in)
			assert.NoError(t, err)
			want := referenceMatch(p, in)
			assert.Equal(t, want, got, "pattern=%q input=%q", p, in)
		}
	}
}
