package drivers

import (
	"context"

	"github.com/drmem-io/drmem/core/channel"
	"github.com/drmem-io/drmem/core/driver"
	"github.com/drmem-io/drmem/core/errors"
)

// MemoryDriver is the "memory" pseudo-driver: a single settable device with
// no hardware behind it at all. Every accepted setting is echoed straight
// back as the new reading. It exists to give the overridable-channel state
// machine and the logic engine something to exercise without a real
// external device -- exactly the role the spec's memory/cycle/latch/map
// pseudo-drivers play (§9), kept in core scope here since they have no
// hardware protocol of their own.
type MemoryDriver struct{}

type memoryDeviceSet struct {
	value *channel.Overridable[float64]
}

func (s *memoryDeviceSet) ResetState() { s.value.ResetState() }

func (MemoryDriver) RegisterDevices(ctx context.Context, acq driver.Acquirer, cfg map[string]any, maxHistory *int) (driver.DeviceSet, error) {
	reporter, recv, _, err := acq.ReadWrite(ctx, "value", "", maxHistory)
	if err != nil {
		return nil, err
	}
	return &memoryDeviceSet{value: channel.NewOverridable[float64](reporter, recv, 0)}, nil
}

func (MemoryDriver) CreateInstance(ctx context.Context, cfg map[string]any) (driver.Instance, error) {
	return &memoryInstance{}, nil
}

type memoryInstance struct{}

func (i *memoryInstance) Run(ctx context.Context, devices driver.DeviceSet) error {
	ds, ok := devices.(*memoryDeviceSet)
	if !ok {
		return errors.InvArgument("memory driver given an unexpected device set")
	}

	for {
		v, r, ok := ds.value.NextSetting(ctx)
		if !ok {
			if ctx.Err() != nil {
				return nil
			}
			return errors.MissingPeer("memory driver: setting channel closed")
		}
		if !r.IsZero() {
			r.Ok(v)
		}
		if err := ds.value.ReportUpdate(ctx, v); err != nil {
			return err
		}
	}
}

func (i *memoryInstance) Close() error { return nil }
