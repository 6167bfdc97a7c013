// Package clock implements the §4.7 time provider: a single-producer
// broadcast of (utc_now, local_now) pairs aligned to the next whole
// second.
//
// Grounded on the teacher's periodic health-check ticker
// (sdk/health/periodic.go): a goroutine driven by a time.Timer, republished
// to however many subscribers are listening.
package clock

import (
	"context"
	"sync"
	"time"

	"github.com/drmem-io/drmem/core/logic"
)

// Reading is one clock tick, matching logic.TimeSnapshot's shape.
type Reading = logic.TimeSnapshot

// Provider publishes a Reading roughly every second, aligned so the first
// tick fires within ~20ms of a wall-clock second boundary.
type Provider struct {
	mu   sync.Mutex
	subs map[chan Reading]struct{}
	now  func() time.Time
}

// New creates a stopped Provider; call Run in its own goroutine to start
// publishing.
func New() *Provider {
	return &Provider{subs: make(map[chan Reading]struct{}), now: time.Now}
}

// Subscribe registers a new listener and returns a channel that receives
// every future tick plus an unsubscribe function. The channel is buffered
// by 1 so a slow consumer doesn't stall the publisher; it drops ticks
// rather than blocking.
func (p *Provider) Subscribe() (<-chan Reading, func()) {
	ch := make(chan Reading, 1)
	p.mu.Lock()
	p.subs[ch] = struct{}{}
	p.mu.Unlock()

	unsub := func() {
		p.mu.Lock()
		delete(p.subs, ch)
		p.mu.Unlock()
	}
	return ch, unsub
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

// Run publishes a Reading about once a second until ctx is cancelled.
func (p *Provider) Run(ctx context.Context) {
	now := p.now()
	delay := time.Until(now.Truncate(time.Second).Add(time.Second))
	if delay < 0 {
		delay += time.Second
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case t := <-timer.C:
			p.publish(Reading{UTC: t.UTC(), Local: t.Local()})
			timer.Reset(time.Second)
		}
	}
}
