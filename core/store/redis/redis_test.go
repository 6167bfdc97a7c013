package redis

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractDeviceName(t *testing.T) {
	cases := []struct {
		key      string
		prefix   string
		expected string
	}{
		{"drmem:sensors:outside:temp#info", "drmem", "sensors:outside:temp"},
		{"drmem:a:b#info", "drmem", "a:b"},
		{"other:a:b#info", "drmem", ""},
		{"drmem:a:b#hist", "drmem", ""},
	}
	for _, tc := range cases {
		got := extractDeviceName(tc.key, tc.prefix)
		assert.Equal(t, tc.expected, got, tc.key)
	}
}

func TestStreamIDToTime(t *testing.T) {
	got := streamIDToTime("1609459200000-0")
	assert.Equal(t, int64(1609459200000), got.UnixMilli())
}

func TestStreamIDToTimeMalformed(t *testing.T) {
	// Falls back to "now" rather than panicking.
	got := streamIDToTime("not-an-id")
	assert.WithinDuration(t, time.Now().UTC(), got, time.Minute)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"communication", errors.New("dial tcp: connection refused")},
		{"auth", errors.New("NOAUTH Authentication required")},
		{"unknown", errors.New("some unclassified failure")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.err, "op failed")
			assert.Error(t, got)
		})
	}
}

func TestClassifyNil(t *testing.T) {
	assert.NoError(t, classify(nil, "x"))
}
