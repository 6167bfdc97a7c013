package name

import (
	"time"

	"github.com/gobwas/glob"
	gocache "github.com/patrickmn/go-cache"
)

// Matcher matches device names against a glob pattern using '?' (any single
// character) and '*' (zero or more characters), per the get_device_info
// contract. It wraps github.com/gobwas/glob, the teacher SDK's own glob
// dependency, for the actual backtracking match.
type Matcher struct {
	g glob.Glob
}

// NewMatcher compiles pattern into a Matcher. An empty pattern matches
// everything.
func NewMatcher(pattern string) (Matcher, error) {
	if pattern == "" {
		pattern = "*"
	}
	g, err := glob.Compile(pattern, '?', '*')
	if err != nil {
		return Matcher{}, err
	}
	return Matcher{g: g}, nil
}

// Match reports whether s matches the compiled pattern.
func (m Matcher) Match(s string) bool {
	return m.g.Match(s)
}

// Match compiles pattern and matches it against s in one step. It is a
// convenience for call sites that don't need to reuse a compiled Matcher
// (e.g. one-off filters); tests cross-check its backtracking behavior
// against referenceMatch.
func Match(pattern, s string) (bool, error) {
	m, err := NewMatcher(pattern)
	if err != nil {
		return false, err
	}
	return m.Match(s), nil
}

// matcherCacheTTL bounds how long a compiled Matcher is kept for reuse; a
// pattern that stops being queried (a client disconnects, a dashboard panel
// is removed) eventually falls out rather than accumulating forever.
const matcherCacheTTL = 10 * time.Minute

// MatcherCache memoizes compiled Matchers by pattern string so that a
// get_device_info call repeated with the same pattern (dashboards poll
// on an interval; the streams store's Scan does too) does not recompile
// the glob on every call. Grounded on the teacher SDK's use of
// patrickmn/go-cache as a TTL'd lookaside for its readings store
// (sdk/state_manager.go); here the same library backs a compiled-pattern
// cache instead, since go-cache's TTL eviction fits "patterns queried
// recently" far better than it fits device history, which is bounded by
// count, not by time (see §3's max_history).
type MatcherCache struct {
	c *gocache.Cache
}

// NewMatcherCache creates an empty matcher cache.
func NewMatcherCache() *MatcherCache {
	return &MatcherCache{c: gocache.New(matcherCacheTTL, 2*matcherCacheTTL)}
}

// Get compiles pattern, or returns the previously compiled Matcher if this
// exact pattern string was seen within the TTL window.
func (mc *MatcherCache) Get(pattern string) (Matcher, error) {
	if cached, ok := mc.c.Get(pattern); ok {
		return cached.(Matcher), nil
	}
	m, err := NewMatcher(pattern)
	if err != nil {
		return Matcher{}, err
	}
	mc.c.SetDefault(pattern, m)
	return m, nil
}

// referenceMatch is a direct recursive definition of glob matching over '?'
// and '*', used only in tests to verify that the gobwas/glob-backed Matcher
// agrees with a naive reference, per the glob-matching law in the core
// testable properties.
func referenceMatch(pattern, s string) bool {
	switch {
	case pattern == "":
		return s == ""
	case pattern[0] == '*':
		return referenceMatch(pattern[1:], s) || (s != "" && referenceMatch(pattern, s[1:]))
	case s == "":
		return false
	case pattern[0] == '?' || pattern[0] == s[0]:
		return referenceMatch(pattern[1:], s[1:])
	default:
		return false
	}
}
