// Package channel implements the three device-channel flavors that mediate
// all driver <-> store traffic: ReadOnly[T], ReadWrite[T], and
// Overridable[T]. Each wraps a store.Reporter and, for the settable
// flavors, a stream of incoming settings with a typed adapter that
// converts store.Setting's dynamic value.Value into the channel's host
// type T, auto-replying a TypeError to the client on conversion failure
// without ever surfacing the bad setting to the driver.
//
// Grounded on the teacher SDK's scheduler (sdk/scheduler.go), which
// multiplexes device reads and writes through goroutines and buffered
// channels; generalized here into the per-channel state machines the core
// runtime spec calls for.
package channel

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/drmem-io/drmem/core/errors"
	"github.com/drmem-io/drmem/core/store"
	"github.com/drmem-io/drmem/core/value"
)

// Responder lets a settable channel reply to the client that issued a
// setting, once the driver has accepted (or rejected) it.
type Responder[T value.Scalar] struct {
	reply chan<- store.Reply
}

// Ok replies to the client with the accepted value.
func (r Responder[T]) Ok(v T) {
	if r.reply == nil {
		return
	}
	r.reply <- store.Reply{Value: value.To(v)}
}

// Err replies to the client with an error.
func (r Responder[T]) Err(err error) {
	if r.reply == nil {
		return
	}
	r.reply <- store.Reply{Err: err}
}

// IsZero reports whether this Responder is a no-op placeholder (used for
// driver-internal reassert/timeout transitions that have no waiting
// client).
func (r Responder[T]) IsZero() bool {
	return r.reply == nil
}

// recvTyped reads from recv until it gets a setting convertible to T,
// auto-replying a KindTypeError to the client for every setting that
// doesn't convert and never surfacing those to the caller, per the
// channel's conversion-failure policy. Returns false if recv or ctx
// closed/cancelled before a convertible setting arrived.
func recvTyped[T value.Scalar](ctx context.Context, recv store.SettingReceiver) (T, Responder[T], bool) {
	var zero T
	for {
		select {
		case s, ok := <-recv:
			if !ok {
				return zero, Responder[T]{}, false
			}
			v, err := value.From[T](s.Value)
			if err != nil {
				if s.Reply != nil {
					s.Reply <- store.Reply{Err: errors.TypeError("setting %v is not convertible to the device's type", s.Value)}
				}
				log.WithField("value", s.Value.String()).Debug("[channel] rejected setting: type mismatch")
				continue
			}
			return v, Responder[T]{reply: s.Reply}, true
		case <-ctx.Done():
			return zero, Responder[T]{}, false
		}
	}
}
