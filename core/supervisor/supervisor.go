// Package supervisor implements the §4.4 driver supervisor: one-time
// device registration followed by a forever loop that (re)creates and runs
// a driver instance, backing off exponentially (capped at 600s) whenever
// the instance fails.
//
// Grounded on the teacher's scheduler restart loop (sdk/scheduler.go's
// listen()/read() retry-on-error pattern), generalized from a fixed retry
// count into the spec's capped exponential backoff.
package supervisor

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/drmem-io/drmem/core/driver"
	"github.com/drmem-io/drmem/core/errors"
	"github.com/drmem-io/drmem/core/metrics"
)

const (
	initialDelay = 5 * time.Second
	maxDelay     = 600 * time.Second
)

// Clock abstracts time so tests can drive backoff without sleeping for
// real. Sleep must return (or be cancelled) when ctx is done.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration)
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// Supervisor owns the lifetime of a single configured driver instance: one
// call to RegisterDevices, then a forever create/run/backoff loop.
type Supervisor struct {
	Name   string
	Driver driver.Driver
	Cfg    map[string]any
	Clock  Clock
}

// New builds a Supervisor with a real wall-clock.
func New(name string, d driver.Driver, cfg map[string]any) *Supervisor {
	return &Supervisor{Name: name, Driver: d, Cfg: cfg, Clock: realClock{}}
}

// Run performs the one-time registration, then the forever restart loop.
// It returns only when ctx is cancelled or registration itself fails
// (a fatal configuration error, per §4.4 step 1).
func (s *Supervisor) Run(ctx context.Context, acq driver.Acquirer, maxHistory *int) error {
	logger := log.WithField("driver", s.Name)

	logger.Info("[supervisor] one-time-init")
	devices, err := s.Driver.RegisterDevices(ctx, acq, s.Cfg, maxHistory)
	if err != nil {
		logger.WithError(err).Error("[supervisor] device registration failed, driver disabled")
		return errors.Wrap(errors.KindConfigError, err, "registering devices for driver %s", s.Name)
	}

	delay := initialDelay

	for {
		if ctx.Err() != nil {
			return nil
		}

		if resettable, ok := devices.(driver.ResettableState); ok {
			resettable.ResetState()
		}

		started := time.Now()
		if err := s.runOnce(ctx, devices); err != nil {
			// A re-entry that ran for at least one full backoff interval
			// before failing again counts as "successful" (§4.4): the
			// instance clearly started up and did useful work, so the
			// next failure shouldn't pay the accumulated penalty.
			if time.Since(started) >= initialDelay {
				delay = initialDelay
			}
			metrics.DriverRestartsTotal.WithLabelValues(s.Name).Inc()
			logger.WithError(err).WithField("retry_in", delay).Error("[supervisor] driver instance failed")
			s.Clock.Sleep(ctx, delay)
			delay *= 2
			if delay > maxDelay {
				delay = maxDelay
			}
			continue
		}

		// A clean return from runOnce means ctx was cancelled.
		return nil
	}
}

// runOnce creates one driver instance and runs it to completion, catching
// panics so they are treated the same as a returned error (§4.4).
func (s *Supervisor) runOnce(ctx context.Context, devices driver.DeviceSet) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.New(errors.KindOperationError, "driver %s panicked: %v", s.Name, r)
		}
	}()

	inst, err := s.Driver.CreateInstance(ctx, s.Cfg)
	if err != nil {
		return errors.Wrap(errors.KindOperationError, err, "creating instance for driver %s", s.Name)
	}
	defer inst.Close()

	// A Run that ends because ctx was cancelled yields nil, which the
	// caller treats as a clean shutdown rather than a failure to retry;
	// any other end of Run is returned as an error.
	if runErr := inst.Run(ctx, devices); runErr != nil {
		if ctx.Err() != nil {
			return nil
		}
		return runErr
	}
	if ctx.Err() != nil {
		return nil
	}
	return errors.New(errors.KindOperationError, "driver %s Run returned without error or cancellation", s.Name)
}
