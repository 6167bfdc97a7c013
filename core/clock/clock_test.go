package clock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderPublishesWithinASecond(t *testing.T) {
	p := New()
	ch, unsub := p.Subscribe()
	defer unsub()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go p.Run(ctx)

	select {
	case r := <-ch:
		assert.False(t, r.UTC.IsZero())
		assert.Equal(t, r.UTC.Unix(), r.Local.Unix())
	case <-time.After(1500 * time.Millisecond):
		t.Fatal("did not receive a tick within 1.5s")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	p := New()
	ch, unsub := p.Subscribe()
	unsub()

	ctx, cancel := context.WithTimeout(context.Background(), 1200*time.Millisecond)
	defer cancel()
	go p.Run(ctx)

	select {
	case <-ch:
		t.Fatal("unsubscribed channel should not receive ticks")
	case <-ctx.Done():
	}
	require.True(t, true)
}
