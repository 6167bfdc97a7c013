package channel

import (
	"context"

	"github.com/drmem-io/drmem/core/store"
	"github.com/drmem-io/drmem/core/value"
)

// ReadOnly mediates a driver that only ever reports readings; it never
// yields settings. Grounded on the teacher's plain reader-side device loop
// (sdk/reader.go): one direction, no write queue.
type ReadOnly[T value.Scalar] struct {
	report store.Reporter
	last   *T
}

// NewReadOnly wraps a Reporter handed out by store.RegisterReadOnly.
func NewReadOnly[T value.Scalar](report store.Reporter) *ReadOnly[T] {
	return &ReadOnly[T]{report: report}
}

// Report publishes a new reading to the store and caches it as Last.
func (c *ReadOnly[T]) Report(ctx context.Context, v T) error {
	if err := c.report(ctx, value.To(v)); err != nil {
		return err
	}
	c.last = &v
	return nil
}

// Last returns the most recently reported value, if any.
func (c *ReadOnly[T]) Last() (T, bool) {
	if c.last == nil {
		var zero T
		return zero, false
	}
	return *c.last, true
}
