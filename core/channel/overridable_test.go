package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drmem-io/drmem/core/store"
	"github.com/drmem-io/drmem/core/value"
)

func newTestOverridable(t *testing.T) (*Overridable[int32], chan store.Setting, *[]int32) {
	t.Helper()
	reported := &[]int32{}
	report := func(_ context.Context, v value.Value) error {
		iv, err := v.AsInt32()
		require.NoError(t, err)
		*reported = append(*reported, iv)
		return nil
	}
	recv := make(chan store.Setting, 4)
	return NewOverridable[int32](report, store.SettingReceiver(recv), 0), recv, reported
}

// Scenario from spec §8 end-to-end scenario 4.
func TestOverridableScenario(t *testing.T) {
	c, recv, reported := newTestOverridable(t)
	ctx := context.Background()

	// The initial desired value arrives with no client waiting on a reply,
	// so the driver is handed a no-op Responder.
	recv <- store.Setting{Value: value.Int(1)}

	v, r, ok := c.NextSetting(ctx)
	require.True(t, ok)
	assert.Equal(t, int32(1), v)
	assert.True(t, r.IsZero())
	assert.Equal(t, []int32{1}, *reported)

	require.NoError(t, c.ReportUpdate(ctx, 1))
	last, _ := c.Last()
	assert.Equal(t, int32(1), last)

	require.NoError(t, c.ReportUpdate(ctx, 2))
	last, _ = c.Last()
	assert.Equal(t, int32(2), last)
	st, ok := c.getState().(stOverridden[int32])
	require.True(t, ok)
	assert.Equal(t, int32(1), st.setting)
	assert.Equal(t, int32(2), st.override)

	reply2 := make(chan store.Reply, 1)
	recv <- store.Setting{Value: value.Int(1), Reply: reply2}

	// Force-timeout path: give waitOverridden a near-zero budget so it
	// drains the queued client setting then times out.
	c.overrideDuration = time.Millisecond
	c.state = stOverridden[int32]{setting: st.setting, override: st.override, since: time.Now().Add(-time.Hour)}

	v, r, ok = c.NextSetting(ctx)
	require.True(t, ok)
	assert.Equal(t, int32(1), v)
	assert.True(t, r.IsZero())
	assert.Equal(t, int32(1), (*reported)[len(*reported)-1])
}

func TestOverridableRejectsWrongType(t *testing.T) {
	c, recv, _ := newTestOverridable(t)
	ctx := context.Background()

	reply := make(chan store.Reply, 1)
	recv <- store.Setting{Value: value.Str("nope"), Reply: reply}
	recv <- store.Setting{Value: value.Int(5), Reply: make(chan store.Reply, 1)}

	v, _, ok := c.NextSetting(ctx)
	require.True(t, ok)
	assert.Equal(t, int32(5), v)

	select {
	case got := <-reply:
		require.Error(t, got.Err)
	default:
		t.Fatal("expected a TypeError reply for the bad setting")
	}
}

func TestReadOnlyReportsAndCaches(t *testing.T) {
	var got value.Value
	ro := NewReadOnly[float64](func(_ context.Context, v value.Value) error {
		got = v
		return nil
	})
	require.NoError(t, ro.Report(context.Background(), 3.5))
	f, err := got.AsFloat64()
	require.NoError(t, err)
	assert.Equal(t, 3.5, f)
	last, ok := ro.Last()
	assert.True(t, ok)
	assert.Equal(t, 3.5, last)
}

func TestReadWritePassesSettingsThrough(t *testing.T) {
	recv := make(chan store.Setting, 1)
	rw := NewReadWrite[bool](func(_ context.Context, v value.Value) error { return nil }, store.SettingReceiver(recv))

	reply := make(chan store.Reply, 1)
	recv <- store.Setting{Value: value.Bool(true), Reply: reply}

	v, r, ok := rw.NextSetting(context.Background())
	require.True(t, ok)
	assert.True(t, v)
	r.Ok(true)
	got := <-reply
	assert.Equal(t, value.Bool(true), got.Value)
}
