package channel

import (
	"context"

	"github.com/drmem-io/drmem/core/store"
	"github.com/drmem-io/drmem/core/value"
)

// ReadWrite mediates a settable driver with no cooperative-override
// semantics: every accepted setting is surfaced to the driver unchanged,
// pass-through style. Use Overridable instead when the hardware can drift
// from the last commanded value on its own (WiFi bulbs, thermostats).
type ReadWrite[T value.Scalar] struct {
	report store.Reporter
	recv   store.SettingReceiver
	last   *T
}

// NewReadWrite wraps the Reporter/SettingReceiver pair handed out by
// store.RegisterReadWrite.
func NewReadWrite[T value.Scalar](report store.Reporter, recv store.SettingReceiver) *ReadWrite[T] {
	return &ReadWrite[T]{report: report, recv: recv}
}

// Report publishes a new reading to the store and caches it as Last.
func (c *ReadWrite[T]) Report(ctx context.Context, v T) error {
	if err := c.report(ctx, value.To(v)); err != nil {
		return err
	}
	c.last = &v
	return nil
}

// Last returns the most recently reported value, if any.
func (c *ReadWrite[T]) Last() (T, bool) {
	if c.last == nil {
		var zero T
		return zero, false
	}
	return *c.last, true
}

// NextSetting blocks for the next client setting that converts to T. Values
// that don't convert are rejected with a TypeError reply and never reach
// the driver. Returns ok=false if recv closed or ctx was cancelled.
func (c *ReadWrite[T]) NextSetting(ctx context.Context) (T, Responder[T], bool) {
	return recvTyped[T](ctx, c.recv)
}
