package channel

import (
	"context"
	"sync"
	"time"

	"github.com/drmem-io/drmem/core/store"
	"github.com/drmem-io/drmem/core/value"
)

// overrideState is the sum type for an Overridable[T]'s state machine (§4.2).
// Each concrete type below is one state; overridable.go's transition tables
// implement every event as a total function over this set.
type overrideState[T value.Scalar] interface {
	isOverrideState()
}

type stUnknown[T value.Scalar] struct{}

type stUnknownTrans[T value.Scalar] struct {
	v T
	r Responder[T]
}

type stSynced[T value.Scalar] struct{ v T }

type stSyncedTrans[T value.Scalar] struct{ v T }

type stSetting[T value.Scalar] struct{ v T }

type stSettingTrans[T value.Scalar] struct {
	v T
	r Responder[T]
}

type stReassertSetting[T value.Scalar] struct{ v T }

type stUnreportedSetting[T value.Scalar] struct{ v T }

type stOverridden[T value.Scalar] struct {
	setting  T
	override T
	since    time.Time
}

func (stUnknown[T]) isOverrideState()           {}
func (stUnknownTrans[T]) isOverrideState()      {}
func (stSynced[T]) isOverrideState()            {}
func (stSyncedTrans[T]) isOverrideState()       {}
func (stSetting[T]) isOverrideState()           {}
func (stSettingTrans[T]) isOverrideState()      {}
func (stReassertSetting[T]) isOverrideState()   {}
func (stUnreportedSetting[T]) isOverrideState() {}
func (stOverridden[T]) isOverrideState()        {}

// Overridable mediates a settable device whose hardware can change state on
// its own -- a smart bulb toggled from its own app, a thermostat responding
// to its local dial. It reconciles polled readings (ReportUpdate) against
// pending client settings (NextSetting) through the §4.2 state machine,
// entering an "override" window whenever a poll diverges from the last
// commanded value.
//
// Grounded on the teacher's scheduler write-queue/read-loop split
// (sdk/scheduler.go), generalized from a simple queue into the full
// reconciliation state machine the spec requires.
type Overridable[T value.Scalar] struct {
	report store.Reporter
	recv   store.SettingReceiver

	mu    sync.Mutex
	state overrideState[T]
	last  *T

	// overrideDuration, if non-zero, bounds how long the channel stays in
	// Overridden before reasserting the last commanded setting. Zero means
	// overrides hold indefinitely (§4.2, next_setting/Overridden).
	overrideDuration time.Duration

	// now is the clock source; overridable in tests.
	now func() time.Time
}

// NewOverridable wraps the Reporter/SettingReceiver pair handed out by
// store.RegisterReadWrite. overrideDuration of 0 means overrides never
// expire on their own.
func NewOverridable[T value.Scalar](report store.Reporter, recv store.SettingReceiver, overrideDuration time.Duration) *Overridable[T] {
	return &Overridable[T]{
		report:           report,
		recv:             recv,
		state:            stUnknown[T]{},
		overrideDuration: overrideDuration,
		now:              time.Now,
	}
}

// ResetState returns the channel to Unknown, discarding any in-flight
// setting/override bookkeeping, without touching the cached Last reading.
// The driver supervisor calls this between restarts (§4.4 step 4) so a
// fresh driver instance resynchronizes against the next poll rather than
// inheriting stale Setting/Overridden state from the instance that just
// failed.
func (c *Overridable[T]) ResetState() {
	c.setState(stUnknown[T]{})
}

// Last returns the most recently reported reading, if any.
func (c *Overridable[T]) Last() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		var zero T
		return zero, false
	}
	return *c.last, true
}

func (c *Overridable[T]) publish(ctx context.Context, v T) error {
	if err := c.report(ctx, value.To(v)); err != nil {
		return err
	}
	c.mu.Lock()
	c.last = &v
	c.mu.Unlock()
	return nil
}

func (c *Overridable[T]) getState() overrideState[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Overridable[T]) setState(s overrideState[T]) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// ReportUpdate is called by the driver after polling hardware. It is NOT
// cancel-safe: it may write the store before the state transition
// completes, per §5.
func (c *Overridable[T]) ReportUpdate(ctx context.Context, new T) error {
	switch s := c.getState().(type) {
	case stUnknown[T]:
		if err := c.publish(ctx, new); err != nil {
			return err
		}
		c.setState(stSynced[T]{new})

	case stUnknownTrans[T]:
		// Reserved for the in-flight setting; ignore the poll.

	case stSynced[T]:
		if s.v != new {
			if err := c.publish(ctx, new); err != nil {
				return err
			}
			c.setState(stOverridden[T]{setting: s.v, override: new, since: c.now()})
		}

	case stSyncedTrans[T]:
		if s.v != new {
			if err := c.publish(ctx, s.v); err != nil {
				return err
			}
			if err := c.publish(ctx, new); err != nil {
				return err
			}
			c.setState(stOverridden[T]{setting: s.v, override: new, since: c.now()})
		}

	case stSetting[T]:
		if s.v == new {
			c.setState(stSynced[T]{new})
		} else {
			c.setState(stReassertSetting[T]{s.v})
		}

	case stReassertSetting[T]:
		if s.v == new {
			c.setState(stSynced[T]{new})
		}

	case stUnreportedSetting[T]:
		if s.v == new {
			c.setState(stSynced[T]{new})
		}

	case stSettingTrans[T]:
		if s.v == new {
			s.r.Ok(new)
			c.setState(stSyncedTrans[T]{s.v})
		}

	case stOverridden[T]:
		if s.setting == new {
			if err := c.publish(ctx, new); err != nil {
				return err
			}
			c.setState(stSynced[T]{s.setting})
		} else if s.override != new {
			if err := c.publish(ctx, new); err != nil {
				return err
			}
			c.setState(stOverridden[T]{setting: s.setting, override: new, since: c.now()})
		}
	}
	return nil
}

// NextSetting is awaited by the driver to learn the next value it should
// push to hardware. It is cancel-safe except while passing through a
// transitional (*Trans) state or the Overridden timeout arm, per §5; the
// caller may freely re-invoke after a cancellation there.
func (c *Overridable[T]) NextSetting(ctx context.Context) (T, Responder[T], bool) {
	var zero T
	for {
		switch s := c.getState().(type) {
		case stUnknown[T]:
			v, r, ok := recvTyped[T](ctx, c.recv)
			if !ok {
				return zero, Responder[T]{}, false
			}
			c.setState(stUnknownTrans[T]{v, r})

		case stUnknownTrans[T]:
			if err := c.publish(ctx, s.v); err != nil {
				return zero, Responder[T]{}, false
			}
			c.setState(stSetting[T]{s.v})
			return s.v, s.r, true

		case stUnreportedSetting[T]:
			if err := c.publish(ctx, s.v); err != nil {
				return zero, Responder[T]{}, false
			}
			c.setState(stSetting[T]{s.v})
			// loop to yield next (§4.2)

		case stReassertSetting[T]:
			c.setState(stSetting[T]{s.v})
			return s.v, Responder[T]{}, true

		case stSetting[T]:
			v, r, ok := recvTyped[T](ctx, c.recv)
			if !ok {
				return zero, Responder[T]{}, false
			}
			if v != s.v {
				c.setState(stSettingTrans[T]{v, r})
			} else {
				r.Ok(v)
				c.setState(stUnreportedSetting[T]{v})
			}

		case stSynced[T]:
			v, r, ok := recvTyped[T](ctx, c.recv)
			if !ok {
				return zero, Responder[T]{}, false
			}
			if v != s.v {
				c.setState(stSettingTrans[T]{v, r})
			} else {
				r.Ok(v)
				c.setState(stSyncedTrans[T]{v})
			}

		case stSettingTrans[T]:
			if err := c.publish(ctx, s.v); err != nil {
				return zero, Responder[T]{}, false
			}
			c.setState(stSetting[T]{s.v})
			return s.v, s.r, true

		case stSyncedTrans[T]:
			if err := c.publish(ctx, s.v); err != nil {
				return zero, Responder[T]{}, false
			}
			c.setState(stSynced[T]{s.v})
			// loop

		case stOverridden[T]:
			next, timedOut, ok := c.waitOverridden(ctx, s)
			if !ok {
				return zero, Responder[T]{}, false
			}
			if timedOut {
				if s.setting != s.override {
					c.setState(stSettingTrans[T]{s.setting, Responder[T]{}})
				} else {
					c.setState(stSynced[T]{s.override})
				}
			} else {
				// Incoming setting while overridden: the client is told
				// its wish was accepted, but hardware is left alone --
				// the override still holds.
				next.r.Ok(next.v)
				c.setState(stOverridden[T]{setting: next.v, override: s.override, since: s.since})
			}
		}
	}
}

type overriddenSetting[T value.Scalar] struct {
	v T
	r Responder[T]
}

// waitOverridden selects between an incoming client setting and, if an
// override duration is configured, the expiry of the current override
// window. ok=false means recv/ctx closed.
func (c *Overridable[T]) waitOverridden(ctx context.Context, s stOverridden[T]) (overriddenSetting[T], bool, bool) {
	if c.overrideDuration <= 0 {
		v, r, ok := recvTyped[T](ctx, c.recv)
		if !ok {
			return overriddenSetting[T]{}, false, false
		}
		return overriddenSetting[T]{v, r}, false, true
	}

	remaining := c.overrideDuration - c.now().Sub(s.since)
	if remaining < 0 {
		remaining = 0
	}
	timer := time.NewTimer(remaining)
	defer timer.Stop()

	for {
		select {
		case setting, ok := <-c.recv:
			if !ok {
				return overriddenSetting[T]{}, false, false
			}
			v, err := value.From[T](setting.Value)
			if err != nil {
				if setting.Reply != nil {
					setting.Reply <- store.Reply{Err: err}
				}
				continue
			}
			return overriddenSetting[T]{v, Responder[T]{reply: setting.Reply}}, false, true
		case <-timer.C:
			return overriddenSetting[T]{}, true, true
		case <-ctx.Done():
			return overriddenSetting[T]{}, false, false
		}
	}
}
