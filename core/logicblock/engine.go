package logicblock

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/drmem-io/drmem/core/clock"
	"github.com/drmem-io/drmem/core/logic"
	"github.com/drmem-io/drmem/core/name"
	"github.com/drmem-io/drmem/core/solar"
	"github.com/drmem-io/drmem/core/store"
)

// InputMonitor streams a device's live readings. Implemented by
// *core/dispatcher.Dispatcher.MonitorDevice (called with start=end=nil for
// a live-only subscription).
type InputMonitor interface {
	MonitorDevice(ctx context.Context, n name.Name, start, end *time.Time) (<-chan store.HistEntry, error)
}

// Engine runs a set of logic blocks: it subscribes each block to its
// input devices, drives ticks off the clock/solar providers according to
// each block's Schedule, and re-evaluates on every input change.
type Engine struct {
	setter  Setter
	monitor InputMonitor
	clockP  *clock.Provider
	solarP  *solar.Provider

	// solarMu guards lastSolar, the most recently published solar reading,
	// shared between Run's tick loop and watchOne's input-change ticks
	// (different goroutines) so a block using {solar:...} sees the current
	// sun position regardless of which event re-evaluated it.
	solarMu   sync.RWMutex
	lastSolar *solar.Reading
}

// NewEngine wires a logic engine against the given dispatcher-backed
// setter/monitor and clock/solar providers. solarP may be nil if no
// [latitude, longitude] was configured; blocks using {solar:...} then
// always evaluate those fields as undefined.
func NewEngine(setter Setter, monitor InputMonitor, clockP *clock.Provider, solarP *solar.Provider) *Engine {
	return &Engine{setter: setter, monitor: monitor, clockP: clockP, solarP: solarP}
}

// Run starts goroutines that watch each block's inputs and drives clock
// ticks on the calling goroutine; it blocks until ctx is cancelled.
func (e *Engine) Run(ctx context.Context, blocks []*Block) {
	var solarCh <-chan solar.Reading
	if e.solarP != nil {
		var unsub func()
		solarCh, unsub = e.solarP.Subscribe()
		defer unsub()
	}

	clockCh, unsubClock := e.clockP.Subscribe()
	defer unsubClock()

	for _, b := range blocks {
		go e.watchInputs(ctx, b)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-solarCh:
			if !ok {
				solarCh = nil
				continue
			}
			rr := r
			e.solarMu.Lock()
			e.lastSolar = &rr
			e.solarMu.Unlock()
		case t, ok := <-clockCh:
			if !ok {
				return
			}
			e.tickAll(ctx, blocks, t, e.currentSolar())
		}
	}
}

// currentSolar returns the most recently published solar reading, or nil
// if none has arrived yet (or no solar provider is configured). Safe to
// call from any goroutine.
func (e *Engine) currentSolar() *solar.Reading {
	e.solarMu.RLock()
	defer e.solarMu.RUnlock()
	return e.lastSolar
}

// tickAll re-evaluates every clock-scheduled block whose field boundary
// this tick satisfies: a hour-scheduled block only fires when minute and
// second both read zero, and so on up through year, per §4.6's "coarsest
// TimeField wins" rule. Blocks with no clock dependency (FieldNone) are
// driven purely by watchInputs instead.
func (e *Engine) tickAll(ctx context.Context, blocks []*Block, t clock.Reading, sun *solar.Reading) {
	for _, b := range blocks {
		if fieldDue(b.Schedule.Field, t) {
			b.Tick(ctx, e.setter, t, sun)
		}
	}
}

func fieldDue(f logic.TimeField, t clock.Reading) bool {
	u := t.UTC
	switch f {
	case logic.FieldNone:
		return false
	case logic.FieldSecond:
		return true
	case logic.FieldMinute:
		return u.Second() == 0
	case logic.FieldHour:
		return u.Second() == 0 && u.Minute() == 0
	case logic.FieldDay:
		return u.Second() == 0 && u.Minute() == 0 && u.Hour() == 0
	case logic.FieldMonth:
		return u.Second() == 0 && u.Minute() == 0 && u.Hour() == 0 && u.Day() == 1
	case logic.FieldYear:
		return u.Second() == 0 && u.Minute() == 0 && u.Hour() == 0 && u.Day() == 1 && u.Month() == time.January
	default:
		return false
	}
}

func (e *Engine) watchInputs(ctx context.Context, b *Block) {
	for idx, devName := range b.Compiled.Inputs {
		n, err := name.Parse(devName)
		if err != nil {
			log.WithFields(log.Fields{"block": b.Name, "device": devName, "error": err}).
				Error("[logicblock] invalid input device name")
			continue
		}
		ch, err := e.monitor.MonitorDevice(ctx, n, nil, nil)
		if err != nil {
			log.WithFields(log.Fields{"block": b.Name, "device": devName, "error": err}).
				Error("[logicblock] failed to monitor input device")
			continue
		}
		go e.watchOne(ctx, b, idx, ch)
	}
}

func (e *Engine) watchOne(ctx context.Context, b *Block, idx int, ch <-chan store.HistEntry) {
	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-ch:
			if !ok {
				return
			}
			b.SetInput(idx, entry.Value)
			// The block is re-evaluated on every input change in
			// addition to its scheduled clock tick (§4.6).
			now := time.Now()
			b.Tick(ctx, e.setter, clock.Reading{UTC: now.UTC(), Local: now}, e.currentSolar())
		}
	}
}
