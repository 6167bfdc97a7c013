package drivers

import (
	"context"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/drmem-io/drmem/core/channel"
	"github.com/drmem-io/drmem/core/driver"
	"github.com/drmem-io/drmem/core/errors"
)

// TimerDriver is the "timer" pseudo-driver: a read-only boolean that flips
// on a fixed interval. Useful for driving logic blocks that need a periodic
// pulse without waiting on a real clock schedule.
type TimerDriver struct{}

type timerDeviceSet struct {
	state *channel.ReadOnly[bool]
}

func (TimerDriver) RegisterDevices(ctx context.Context, acq driver.Acquirer, cfg map[string]any, maxHistory *int) (driver.DeviceSet, error) {
	reporter, err := acq.ReadOnly(ctx, "state", "", maxHistory)
	if err != nil {
		return nil, err
	}
	return &timerDeviceSet{state: channel.NewReadOnly[bool](reporter)}, nil
}

// timerConfig is the decoded shape of a [[driver.cfg]] table for the timer
// driver, unmarshalled with mapstructure the same way the teacher's plugin
// handlers decode their free-form device data.
type timerConfig struct {
	IntervalMs int `mapstructure:"interval_ms"`
}

func (TimerDriver) CreateInstance(ctx context.Context, cfg map[string]any) (driver.Instance, error) {
	tc := timerConfig{IntervalMs: 1000}
	if err := mapstructure.Decode(cfg, &tc); err != nil {
		return nil, errors.Wrap(errors.KindBadConfig, err, "decoding timer driver cfg")
	}
	if tc.IntervalMs <= 0 {
		return nil, errors.BadConfig("timer driver: interval_ms must be positive")
	}
	return &timerInstance{interval: time.Duration(tc.IntervalMs) * time.Millisecond}, nil
}

type timerInstance struct {
	interval time.Duration
}

func (i *timerInstance) Run(ctx context.Context, devices driver.DeviceSet) error {
	ds, ok := devices.(*timerDeviceSet)
	if !ok {
		return errors.InvArgument("timer driver given an unexpected device set")
	}

	ticker := time.NewTicker(i.interval)
	defer ticker.Stop()

	state := false
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			state = !state
			if err := ds.state.Report(ctx, state); err != nil {
				return err
			}
		}
	}
}

func (i *timerInstance) Close() error { return nil }
