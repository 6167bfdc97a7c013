package supervisor

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drmem-io/drmem/core/driver"
)

// fakeClock records every requested sleep duration instead of sleeping.
type fakeClock struct {
	mu    sync.Mutex
	sleep []time.Duration
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) {
	c.mu.Lock()
	c.sleep = append(c.sleep, d)
	c.mu.Unlock()
}

func (c *fakeClock) durations() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleep))
	copy(out, c.sleep)
	return out
}

type failingInstance struct{}

func (failingInstance) Run(ctx context.Context, devices driver.DeviceSet) error {
	panic("simulated driver crash")
}
func (failingInstance) Close() error { return nil }

type crashDriver struct {
	attempts *int
	stopAt   int
	cancel   context.CancelFunc
}

func (d *crashDriver) RegisterDevices(ctx context.Context, acq driver.Acquirer, cfg map[string]any, maxHistory *int) (driver.DeviceSet, error) {
	return struct{}{}, nil
}

func (d *crashDriver) CreateInstance(ctx context.Context, cfg map[string]any) (driver.Instance, error) {
	*d.attempts++
	if *d.attempts >= d.stopAt {
		d.cancel()
	}
	return failingInstance{}, nil
}

func TestSupervisorBackoffDoubles(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	drv := &crashDriver{attempts: &attempts, stopAt: 5, cancel: cancel}
	clock := &fakeClock{}

	s := New("test", drv, nil)
	s.Clock = clock

	err := s.Run(ctx, nil, nil)
	require.NoError(t, err)

	got := clock.durations()
	require.GreaterOrEqual(t, len(got), 3)
	assert.Equal(t, 5*time.Second, got[0])
	assert.Equal(t, 10*time.Second, got[1])
	assert.Equal(t, 20*time.Second, got[2])
}

type alwaysFailDriver struct{ calls int }

func (d *alwaysFailDriver) RegisterDevices(ctx context.Context, acq driver.Acquirer, cfg map[string]any, maxHistory *int) (driver.DeviceSet, error) {
	return struct{}{}, nil
}

func (d *alwaysFailDriver) CreateInstance(ctx context.Context, cfg map[string]any) (driver.Instance, error) {
	d.calls++
	if d.calls > 12 {
		panic("test runaway")
	}
	return failingInstance{}, nil
}

func TestSupervisorBackoffSaturatesAt600s(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	drv := &alwaysFailDriver{}
	clock := &fakeClock{}
	s := New("test", drv, nil)
	s.Clock = clock

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, nil, nil) }()

	require.Eventually(t, func() bool {
		return len(clock.durations()) >= 10
	}, time.Second, time.Millisecond)
	cancel()
	<-done

	got := clock.durations()
	assert.Equal(t, 600*time.Second, got[len(got)-1])
	for _, d := range got {
		assert.LessOrEqual(t, d, 600*time.Second)
	}
}

type failingRegisterDriver struct{}

func (failingRegisterDriver) RegisterDevices(ctx context.Context, acq driver.Acquirer, cfg map[string]any, maxHistory *int) (driver.DeviceSet, error) {
	return nil, assertErr
}
func (failingRegisterDriver) CreateInstance(ctx context.Context, cfg map[string]any) (driver.Instance, error) {
	return nil, nil
}

var assertErr = context.DeadlineExceeded

func TestSupervisorRegisterFailureIsFatal(t *testing.T) {
	s := New("test", failingRegisterDriver{}, nil)
	err := s.Run(context.Background(), nil, nil)
	require.Error(t, err)
}
