// Package solar implements the §4.7 solar provider: a periodic publisher
// of sun elevation/azimuth/right-ascension/declination for a configured
// (latitude, longitude), using the standard low-precision almanac
// formulas (USNO's approximate solar coordinates, as cited by §4.6/§4.7:
// mean longitude, mean anomaly, ecliptic longitude, obliquity,
// hour-angle).
//
// Grounded on the teacher's periodic health-check ticker pattern
// (sdk/health/periodic.go), generalized to a 15s almanac computation; the
// almanac math itself is stdlib math only -- no library in the pack offers
// solar ephemeris routines, so this is a justified stdlib component (see
// DESIGN.md).
package solar

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/drmem-io/drmem/core/logic"
)

// Reading is one sun-position sample, matching logic.SolarSnapshot's
// shape.
type Reading = logic.SolarSnapshot

const tickInterval = 15 * time.Second

// unixEpochJD is the Julian Date at the Unix epoch, 1970-01-01T00:00:00Z.
const unixEpochJD = 2440587.5

// j2000JD is the Julian Date of the J2000.0 epoch.
const j2000JD = 2451545.0

func daysSinceJ2000(t time.Time) float64 {
	u := t.UTC()
	unixSeconds := float64(u.Unix()) + float64(u.Nanosecond())/1e9
	jd := unixEpochJD + unixSeconds/86400.0
	return jd - j2000JD
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }

func normalizeDeg(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

func round(v float64, step float64) float64 {
	return math.Round(v/step) * step
}

// Position computes the sun's apparent position for (lat, lon) in degrees
// (north/east positive) at time t, per the USNO low-precision formulas.
// Elevation is rounded to 0.02 degrees, the other fields to 0.1 degrees,
// per §4.7.
func Position(lat, lon float64, t time.Time) Reading {
	d := daysSinceJ2000(t)

	g := deg2rad(normalizeDeg(357.529 + 0.98560028*d)) // mean anomaly
	q := normalizeDeg(280.459 + 0.98564736*d)          // mean longitude
	l := deg2rad(normalizeDeg(q + 1.915*math.Sin(g) + 0.020*math.Sin(2*g)))
	eps := deg2rad(23.439 - 0.00000036*d) // obliquity of the ecliptic

	ra := math.Atan2(math.Cos(eps)*math.Sin(l), math.Cos(l))
	dec := math.Asin(math.Sin(eps) * math.Sin(l))

	gmstHours := math.Mod(18.697374558+24.06570982441908*d, 24)
	if gmstHours < 0 {
		gmstHours += 24
	}
	lstDeg := normalizeDeg(gmstHours*15 + lon)
	ha := deg2rad(normalizeDeg(lstDeg - rad2deg(ra)))
	// Fold the hour angle into [-180, 180) so cos(ha) behaves for angles
	// near the meridian in either direction.
	haDeg := rad2deg(ha)
	if haDeg > 180 {
		haDeg -= 360
	}
	ha = deg2rad(haDeg)

	latR := deg2rad(lat)

	sinAlt := math.Sin(latR)*math.Sin(dec) + math.Cos(latR)*math.Cos(dec)*math.Cos(ha)
	alt := math.Asin(clamp(sinAlt, -1, 1))

	cosAz := (math.Sin(dec) - math.Sin(alt)*math.Sin(latR)) / (math.Cos(alt) * math.Cos(latR))
	az := math.Acos(clamp(cosAz, -1, 1))
	if math.Sin(ha) > 0 {
		az = 2*math.Pi - az
	}

	return Reading{
		Altitude:    round(rad2deg(alt), 0.02),
		Azimuth:     round(rad2deg(az), 0.1),
		RightAscen:  round(normalizeDeg(rad2deg(ra)), 0.1),
		Declination: round(rad2deg(dec), 0.1),
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Provider publishes a Reading for a fixed (lat, lon) every 15s.
type Provider struct {
	lat, lon float64

	mu   sync.Mutex
	subs map[chan Reading]struct{}
	now  func() time.Time
}

// New creates a stopped Provider for the given coordinates.
func New(lat, lon float64) *Provider {
	return &Provider{lat: lat, lon: lon, subs: make(map[chan Reading]struct{}), now: time.Now}
}

// Subscribe registers a new listener. The channel is buffered by 1; a slow
// consumer drops ticks rather than stalling the publisher.
func (p *Provider) Subscribe() (<-chan Reading, func()) {
	ch := make(chan Reading, 1)
	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()

	unsub := func() {
		p.mu.Lock()
		delete(p.subs, ch)
		remaining := len(p.subs)
		p.mu.Unlock()
		_ = remaining
	}
	return ch, unsub
}

func (p *Provider) subscriberCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.subs)
}

func (p *Provider) publish(r Reading) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for ch := range p.subs {
		select {
		case ch <- r:
		default:
		}
	}
}

// Run publishes a Reading every 15s until ctx is cancelled or, per §4.7,
// every subscriber has dropped.
func (p *Provider) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	p.publish(Position(p.lat, p.lon, p.now()))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if p.subscriberCount() == 0 {
				return
			}
			p.publish(Position(p.lat, p.lon, p.now()))
		}
	}
}
