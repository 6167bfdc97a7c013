package solar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Scenario from spec §8 end-to-end scenario 6.
func TestPositionKnownScenario(t *testing.T) {
	ts := time.Date(2000, time.January, 1, 12, 0, 0, 0, time.UTC)
	r := Position(45, 0, ts)

	assert.InDelta(t, 22.0, r.Altitude, 0.2)
	assert.InDelta(t, 179.2, r.Azimuth, 0.2)
	assert.InDelta(t, -23.0, r.Declination, 0.2)
}

func TestPositionRounding(t *testing.T) {
	ts := time.Date(2020, time.June, 21, 12, 0, 0, 0, time.UTC)
	r := Position(40, -74, ts)

	// Elevation rounds to a multiple of 0.02 degrees; the rest to 0.1.
	scaled := r.Altitude / 0.02
	assert.InDelta(t, scaled, float64(int64(scaled+0.5)), 1e-6)
}
