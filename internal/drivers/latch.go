package drivers

import (
	"context"

	"github.com/drmem-io/drmem/core/channel"
	"github.com/drmem-io/drmem/core/driver"
	"github.com/drmem-io/drmem/core/errors"
)

// LatchDriver is the "latch" pseudo-driver: a settable boolean with no
// cooperative-override behavior. Unlike MemoryDriver it holds a bool rather
// than a float64 and is built on channel.ReadWrite rather than
// channel.Overridable, giving logic blocks a plain pass-through flag they
// can set and read back without ever entering an override window.
type LatchDriver struct{}

type latchDeviceSet struct {
	state *channel.ReadWrite[bool]
}

func (LatchDriver) RegisterDevices(ctx context.Context, acq driver.Acquirer, cfg map[string]any, maxHistory *int) (driver.DeviceSet, error) {
	reporter, recv, _, err := acq.ReadWrite(ctx, "state", "", maxHistory)
	if err != nil {
		return nil, err
	}
	return &latchDeviceSet{state: channel.NewReadWrite[bool](reporter, recv)}, nil
}

func (LatchDriver) CreateInstance(ctx context.Context, cfg map[string]any) (driver.Instance, error) {
	return &latchInstance{}, nil
}

type latchInstance struct{}

func (i *latchInstance) Run(ctx context.Context, devices driver.DeviceSet) error {
	ds, ok := devices.(*latchDeviceSet)
	if !ok {
		return errors.InvArgument("latch driver given an unexpected device set")
	}

	for {
		v, r, ok := ds.state.NextSetting(ctx)
		if !ok {
			if ctx.Err() != nil {
				return nil
			}
			return errors.MissingPeer("latch driver: setting channel closed")
		}
		if err := ds.state.Report(ctx, v); err != nil {
			if !r.IsZero() {
				r.Err(err)
			}
			return err
		}
		if !r.IsZero() {
			r.Ok(v)
		}
	}
}

func (i *latchInstance) Close() error { return nil }
