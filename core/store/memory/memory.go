// Package memory implements the in-memory store.Store adapter: a map from
// device name to a record holding metadata, last value, a bounded history
// ring buffer, and a broadcast fan-out for live monitors.
//
// Grounded on the teacher SDK's stateManager (sdk/state_manager.go): a
// RWMutex-guarded map of device records. History itself is a hand-rolled
// ring buffer (gocache expires by time, not by count, and the spec calls
// for count-bounded retention per §3); gocache instead backs the compiled
// glob-pattern cache used by GetDeviceInfo (see core/name.MatcherCache).
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/drmem-io/drmem/core/errors"
	"github.com/drmem-io/drmem/core/metrics"
	"github.com/drmem-io/drmem/core/name"
	"github.com/drmem-io/drmem/core/store"
	"github.com/drmem-io/drmem/core/value"
)

const backendLabel = "memory"

// monitorBuffer is the per-subscriber channel buffer size for live
// monitors; a slow consumer drops -- never blocks the dispatcher -- once
// this fills.
const monitorBuffer = 64

type device struct {
	info     store.DeviceInfo
	settable bool
	settings chan store.Setting
	subs     []chan store.HistEntry
}

// Memory is the in-memory Store implementation.
type Memory struct {
	mu       sync.RWMutex
	devices  map[string]*device
	matchers *name.MatcherCache
}

// New creates an empty in-memory store.
func New() *Memory {
	return &Memory{devices: make(map[string]*device), matchers: name.NewMatcherCache()}
}

func ringAppend(entries []store.HistEntry, e store.HistEntry, max int, hasMax bool) []store.HistEntry {
	entries = append(entries, e)
	if hasMax && max >= 0 && len(entries) > max {
		// Approximate upper bound is acceptable per the data model; drop
		// from the front to keep the most recent `max` entries.
		entries = entries[len(entries)-max:]
	}
	return entries
}

func (m *Memory) register(ctx context.Context, driver string, n name.Name, units string, hasUnits bool, maxHistory int, hasMaxHistory bool, settable bool) (*device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := n.String()
	if existing, ok := m.devices[key]; ok {
		if existing.info.Driver != driver {
			return nil, errors.DeviceDefined(key)
		}
		return existing, nil
	}

	d := &device{
		info: store.DeviceInfo{
			Name:       n,
			Driver:     driver,
			Units:      units,
			HasUnits:   hasUnits,
			MaxHistory: maxHistory,
			HasMaxHist: hasMaxHistory,
			Settable:   settable,
		},
		settable: settable,
	}
	if settable {
		d.settings = make(chan store.Setting, 1)
	}
	m.devices[key] = d
	log.WithFields(log.Fields{"device": key, "driver": driver}).Debug("[memstore] registered device")
	return d, nil
}

// RegisterReadOnly implements store.Store.
func (m *Memory) RegisterReadOnly(ctx context.Context, driver string, n name.Name, units string, hasUnits bool, maxHistory int, hasMaxHistory bool) (store.Reporter, error) {
	d, err := m.register(ctx, driver, n, units, hasUnits, maxHistory, hasMaxHistory, false)
	if err != nil {
		return nil, err
	}
	return m.reporterFor(n, d), nil
}

// RegisterReadWrite implements store.Store.
func (m *Memory) RegisterReadWrite(ctx context.Context, driver string, n name.Name, units string, hasUnits bool, maxHistory int, hasMaxHistory bool) (store.Reporter, store.SettingReceiver, *value.Value, error) {
	d, err := m.register(ctx, driver, n, units, hasUnits, maxHistory, hasMaxHistory, true)
	if err != nil {
		return nil, nil, nil, err
	}

	m.mu.RLock()
	var last *value.Value
	if d.info.HasLastVal {
		v := d.info.LastValue
		last = &v
	}
	m.mu.RUnlock()

	return m.reporterFor(n, d), store.SettingReceiver(d.settings), last, nil
}

func (m *Memory) reporterFor(n name.Name, d *device) store.Reporter {
	return func(ctx context.Context, v value.Value) error {
		timer := prometheus.NewTimer(metrics.StoreOpLatency.WithLabelValues(backendLabel, "report"))
		defer timer.ObserveDuration()

		now := time.Now().UTC()

		m.mu.Lock()
		d.info.LastValue = v
		d.info.HasLastVal = true
		d.info.History = ringAppend(d.info.History, store.HistEntry{Timestamp: now, Value: v}, d.info.MaxHistory, d.info.HasMaxHist)
		historyLen := len(d.info.History)
		subs := make([]chan store.HistEntry, len(d.subs))
		copy(subs, d.subs)
		m.mu.Unlock()

		metrics.StoreHistoryLength.WithLabelValues(backendLabel, n.String()).Set(float64(historyLen))

		entry := store.HistEntry{Timestamp: now, Value: v}
		for _, sub := range subs {
			select {
			case sub <- entry:
			default:
				log.WithField("device", n.String()).Warn("[memstore] monitor subscriber is slow, dropping update")
			}
		}
		return nil
	}
}

// GetDeviceInfo implements store.Store.
func (m *Memory) GetDeviceInfo(ctx context.Context, pattern string) ([]store.DeviceInfo, error) {
	timer := prometheus.NewTimer(metrics.StoreOpLatency.WithLabelValues(backendLabel, "get_device_info"))
	defer timer.ObserveDuration()

	matcher, err := m.matchers.Get(pattern)
	if err != nil {
		return nil, errors.InvArgument("invalid glob pattern %q: %v", pattern, err)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []store.DeviceInfo
	for key, d := range m.devices {
		if matcher.Match(key) {
			out = append(out, d.info)
		}
	}
	return out, nil
}

// SetDevice implements store.Store.
func (m *Memory) SetDevice(ctx context.Context, n name.Name, v value.Value) (value.Value, error) {
	timer := prometheus.NewTimer(metrics.StoreOpLatency.WithLabelValues(backendLabel, "set_device"))
	defer timer.ObserveDuration()

	m.mu.RLock()
	d, ok := m.devices[n.String()]
	m.mu.RUnlock()
	if !ok || !d.settable {
		return value.Value{}, errors.NotFound("no settable device named %s", n.String())
	}

	reply := make(chan store.Reply, 1)
	select {
	case d.settings <- store.Setting{Value: v, Reply: reply}:
	case <-ctx.Done():
		return value.Value{}, errors.MissingPeer("driver did not accept setting before context cancellation")
	}

	select {
	case r := <-reply:
		return r.Value, r.Err
	case <-ctx.Done():
		return value.Value{}, errors.MissingPeer("driver did not reply before context cancellation")
	}
}

// GetSettingChan implements store.Store.
func (m *Memory) GetSettingChan(ctx context.Context, n name.Name, exclusive bool) (store.SettingSender, error) {
	m.mu.RLock()
	d, ok := m.devices[n.String()]
	m.mu.RUnlock()
	if !ok || !d.settable {
		return nil, errors.NotFound("no settable device named %s", n.String())
	}
	return store.SettingSender(d.settings), nil
}

// MonitorDevice implements store.Store.
func (m *Memory) MonitorDevice(ctx context.Context, n name.Name, start, end *time.Time) (<-chan store.HistEntry, error) {
	m.mu.Lock()
	d, ok := m.devices[n.String()]
	if !ok {
		m.mu.Unlock()
		return nil, errors.NotFound("no device named %s", n.String())
	}

	var backlog []store.HistEntry
	for _, e := range d.info.History {
		if start != nil && e.Timestamp.Before(*start) {
			continue
		}
		if end != nil && e.Timestamp.After(*end) {
			continue
		}
		backlog = append(backlog, e)
	}

	var sub chan store.HistEntry
	live := end == nil
	if live {
		sub = make(chan store.HistEntry, monitorBuffer)
		d.subs = append(d.subs, sub)
		metrics.StoreMonitorSubscribers.WithLabelValues(backendLabel, n.String()).Set(float64(len(d.subs)))
	}
	m.mu.Unlock()

	out := make(chan store.HistEntry, len(backlog)+1)
	go func() {
		defer close(out)
		for _, e := range backlog {
			select {
			case out <- e:
			case <-ctx.Done():
				m.unsubscribe(d, sub)
				return
			}
		}
		if !live {
			return
		}
		defer m.unsubscribe(d, sub)
		for {
			select {
			case e, ok := <-sub:
				if !ok {
					return
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (m *Memory) unsubscribe(d *device, sub chan store.HistEntry) {
	if sub == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, s := range d.subs {
		if s == sub {
			d.subs = append(d.subs[:i], d.subs[i+1:]...)
			break
		}
	}
	metrics.StoreMonitorSubscribers.WithLabelValues(backendLabel, d.info.Name.String()).Set(float64(len(d.subs)))
}
