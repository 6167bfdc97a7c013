// Package logicblock is the thin adapter between core/logic (a pure
// expression compiler/evaluator) and live devices: it gathers current
// input values, runs Eval on each scheduled tick, and issues a setting via
// the dispatcher only when the result differs from the previous output
// (§4.6's "avoid storm" rule).
package logicblock

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/drmem-io/drmem/core/clock"
	"github.com/drmem-io/drmem/core/logic"
	"github.com/drmem-io/drmem/core/metrics"
	"github.com/drmem-io/drmem/core/name"
	"github.com/drmem-io/drmem/core/solar"
	"github.com/drmem-io/drmem/core/value"
)

// Setter issues a client-originated setting against the core dispatcher.
// Implemented by *core/dispatcher.Dispatcher.
type Setter interface {
	SetDevice(ctx context.Context, n name.Name, v value.Value) (value.Value, error)
}

// Block is one running logic block: a compiled expression, its resolved
// input device names, and the output device it drives.
type Block struct {
	Name     string
	Compiled *logic.Block
	Schedule logic.Schedule

	mu          sync.Mutex
	inputs      []*value.Value
	lastOut     *value.Value
	undefLogged bool
}

// New compiles src into a runnable Block named name.
func New(blockName string, src string) (*Block, error) {
	compiled, err := logic.Compile(src)
	if err != nil {
		return nil, err
	}
	optimized := logic.Optimize(compiled.Expr)
	compiled.Expr = optimized

	b := &Block{
		Name:     blockName,
		Compiled: compiled,
		Schedule: logic.Analyze(optimized),
		inputs:   make([]*value.Value, len(compiled.Inputs)),
	}
	return b, nil
}

// SetInput updates the cached value for the input at index idx (as
// resolved in Compiled.Inputs), to be used by the next Tick.
func (b *Block) SetInput(idx int, v value.Value) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if idx < 0 || idx >= len(b.inputs) {
		return
	}
	vv := v
	b.inputs[idx] = &vv
}

// Tick evaluates the block against its current cached inputs and the given
// clock/solar state. If the result is Some(v) and differs from the
// previous tick's output, it issues a setting via setter and remembers the
// new output. A failed/undefined evaluation is logged once and otherwise
// silent, per §4.6/§7.
func (b *Block) Tick(ctx context.Context, setter Setter, ts clock.Reading, sun *solar.Reading) {
	b.mu.Lock()
	inputs := make([]*value.Value, len(b.inputs))
	copy(inputs, b.inputs)
	lastOut := b.lastOut
	b.mu.Unlock()

	var solarSnap *logic.SolarSnapshot
	if sun != nil {
		s := logic.SolarSnapshot(*sun)
		solarSnap = &s
	}

	result, ok := logic.Eval(b.Compiled.Expr, inputs, logic.TimeSnapshot(ts), solarSnap)
	if !ok {
		metrics.LogicBlockEvaluationsTotal.WithLabelValues(b.Name, "undefined").Inc()
		b.mu.Lock()
		first := !b.undefLogged
		b.undefLogged = true
		b.mu.Unlock()
		if first {
			log.WithField("block", b.Name).Debug("[logicblock] evaluation undefined this tick")
		}
		return
	}

	if lastOut != nil && lastOut.Equal(result) {
		metrics.LogicBlockEvaluationsTotal.WithLabelValues(b.Name, "unchanged").Inc()
		return
	}

	outName, err := name.Parse(b.Compiled.Output.Name)
	if err != nil {
		log.WithFields(log.Fields{"block": b.Name, "error": err}).Error("[logicblock] invalid output device name")
		return
	}

	if _, err := setter.SetDevice(ctx, outName, result); err != nil {
		log.WithFields(log.Fields{"block": b.Name, "output": outName.String(), "error": err}).
			Error("[logicblock] failed to set output device")
		return
	}
	metrics.LogicBlockEvaluationsTotal.WithLabelValues(b.Name, "set").Inc()

	b.mu.Lock()
	res := result
	b.lastOut = &res
	b.mu.Unlock()
}
