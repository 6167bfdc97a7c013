package logicblock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drmem-io/drmem/core/clock"
	"github.com/drmem-io/drmem/core/name"
	"github.com/drmem-io/drmem/core/value"
)

type fakeSetter struct {
	sets []value.Value
}

func (f *fakeSetter) SetDevice(ctx context.Context, n name.Name, v value.Value) (value.Value, error) {
	f.sets = append(f.sets, v)
	return v, nil
}

func TestBlockTicksOnlyOnChange(t *testing.T) {
	b, err := New("hallway", "{house:motion} -> {house:light}")
	require.NoError(t, err)
	require.Equal(t, []string{"house:motion"}, b.Compiled.Inputs)

	setter := &fakeSetter{}
	ts := clock.Reading{UTC: time.Now().UTC(), Local: time.Now()}

	b.SetInput(0, value.Bool(true))
	b.Tick(context.Background(), setter, ts, nil)
	require.Len(t, setter.sets, 1)

	// Same value again: no duplicate setting, per the "avoid storm" rule.
	b.Tick(context.Background(), setter, ts, nil)
	assert.Len(t, setter.sets, 1)

	b.SetInput(0, value.Bool(false))
	b.Tick(context.Background(), setter, ts, nil)
	require.Len(t, setter.sets, 2)
}

func TestBlockUndefinedEvaluationSkipsOutput(t *testing.T) {
	b, err := New("div", "1/{house:zero} -> {house:out}")
	require.NoError(t, err)

	setter := &fakeSetter{}
	b.SetInput(0, value.Int(0))
	b.Tick(context.Background(), setter, clock.Reading{}, nil)
	assert.Empty(t, setter.sets)
}
