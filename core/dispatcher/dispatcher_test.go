package dispatcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drmem-io/drmem/core/errors"
	"github.com/drmem-io/drmem/core/name"
	"github.com/drmem-io/drmem/core/store"
	"github.com/drmem-io/drmem/core/store/memory"
	"github.com/drmem-io/drmem/core/value"
)

func startDispatcher(t *testing.T) (*Dispatcher, context.Context) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	d := New(memory.New())
	go d.Run(ctx)
	t.Cleanup(cancel)
	return d, ctx
}

func TestDispatcherRegisterAndQuery(t *testing.T) {
	d, ctx := startDispatcher(t)

	h, err := NewHandle(d, "thermo", "house:kitchen")
	require.NoError(t, err)

	reporter, err := h.ReadOnly(ctx, "temp", "F", nil)
	require.NoError(t, err)
	require.NoError(t, reporter(ctx, value.Float(71.5)))

	infos, err := d.GetDeviceInfo(ctx, "house:kitchen:*")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "house:kitchen:temp", infos[0].Name.String())
	assert.Equal(t, "thermo", infos[0].Driver)
}

func TestDispatcherSetDeviceRoundTrip(t *testing.T) {
	d, ctx := startDispatcher(t)

	h, err := NewHandle(d, "thermo", "house:kitchen")
	require.NoError(t, err)

	_, recv, _, err := h.ReadWrite(ctx, "setpoint", "F", nil)
	require.NoError(t, err)

	go func() {
		s := <-recv
		s.Reply <- store.Reply{Value: s.Value}
	}()

	n := name.MustParse("house:kitchen:setpoint")
	got, err := d.SetDevice(ctx, n, value.Float(68.0))
	require.NoError(t, err)
	f, err := got.AsFloat64()
	require.NoError(t, err)
	assert.Equal(t, 68.0, f)
}

func TestDispatcherSetDeviceNotFound(t *testing.T) {
	d, ctx := startDispatcher(t)
	_, err := d.SetDevice(ctx, name.MustParse("no:such:device"), value.Bool(true))
	require.Error(t, err)
}

func TestDispatcherSettingRateLimitThrottles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	d := New(memory.New()).WithSettingRateLimit(1, 1)
	go d.Run(ctx)

	h, err := NewHandle(d, "thermo", "house:kitchen")
	require.NoError(t, err)

	_, recv, _, err := h.ReadWrite(ctx, "setpoint", "F", nil)
	require.NoError(t, err)

	go func() {
		for s := range recv {
			s.Reply <- store.Reply{Value: s.Value}
		}
	}()

	n := name.MustParse("house:kitchen:setpoint")
	_, err = d.SetDevice(ctx, n, value.Float(1.0))
	require.NoError(t, err)

	_, err = d.SetDevice(ctx, n, value.Float(2.0))
	require.Error(t, err)
	assert.Equal(t, errors.KindInUse, err.(*errors.Error).Kind())
}
