// Package redis implements the streams store.Store adapter over a
// Redis-protocol streams database. Each device gets two keys: a metadata
// hash at "<prefix>:<name>#info" and an append-only history stream at
// "<prefix>:<name>#hist", trimmed with an approximate MAXLEN when
// max_history is configured, per the wire shape in the core runtime spec.
//
// Settings remain process-local (the store contract never routes a
// setting through the back end), so this adapter keeps the same small
// in-memory registry of setting channels the in-memory adapter uses; only
// metadata and history are persisted to Redis.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"github.com/drmem-io/drmem/core/errors"
	"github.com/drmem-io/drmem/core/metrics"
	"github.com/drmem-io/drmem/core/name"
	"github.com/drmem-io/drmem/core/store"
	"github.com/drmem-io/drmem/core/value"
)

const backendLabel = "streams"

const (
	fieldSummary  = "summary"
	fieldUnits    = "units"
	fieldDriver   = "driver"
	fieldMaxHist  = "max_history"
	fieldLastVal  = "last_value"
	fieldSettable = "settable"

	streamValueField = "value"

	monitorPollInterval = 200 * time.Millisecond
	monitorBuffer       = 64
)

// Redis is the streams Store implementation.
type Redis struct {
	client *goredis.Client
	prefix string

	mu       sync.RWMutex
	settable map[string]chan store.Setting
	matchers *name.MatcherCache
}

// Options configures a new Redis store.
type Options struct {
	// Addr is the host:port of the Redis-compatible server.
	Addr string
	// DB is the logical database number.
	DB int
	// Password, if set, authenticates the client.
	Password string
	// Prefix namespaces every key this adapter writes, e.g. the
	// configured driver Path.
	Prefix string
}

// New creates a Redis-backed Store from opts.
func New(opts Options) *Redis {
	client := goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		DB:       opts.DB,
		Password: opts.Password,
	})
	return &Redis{
		client:   client,
		prefix:   opts.Prefix,
		settable: make(map[string]chan store.Setting),
		matchers: name.NewMatcherCache(),
	}
}

func (r *Redis) infoKey(n name.Name) string { return fmt.Sprintf("%s:%s#info", r.prefix, n.String()) }
func (r *Redis) histKey(n name.Name) string { return fmt.Sprintf("%s:%s#hist", r.prefix, n.String()) }

// classify maps a go-redis error into the core error taxonomy, per the
// store adapter's error propagation policy.
func classify(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	switch {
	case err == goredis.Nil:
		return errors.NotFound(format, args...)
	case err == context.DeadlineExceeded || err == context.Canceled:
		return errors.OperationError(fmt.Sprintf(format, args...))
	default:
		msg := err.Error()
		switch {
		case isAuthError(msg):
			return errors.AuthenticationError(err, format, args...)
		case isCommunicationError(msg):
			return errors.DbCommunicationError(err, format, args...)
		case isRedirectOrMissing(msg):
			return errors.NotFound(format, args...)
		default:
			return errors.UnknownError(err, format, args...)
		}
	}
}

func isAuthError(msg string) bool {
	return containsAny(msg, "NOAUTH", "WRONGPASS", "auth")
}

func isCommunicationError(msg string) bool {
	return containsAny(msg, "connect", "connection", "broken pipe", "EOF", "CLUSTERDOWN", "i/o timeout", "read:", "write:")
}

func isRedirectOrMissing(msg string) bool {
	return containsAny(msg, "MOVED", "ASK", "no such key")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if len(sub) <= len(s) && indexOf(s, sub) >= 0 {
			return true
		}
	}
	return false
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func (r *Redis) register(ctx context.Context, driver string, n name.Name, units string, hasUnits bool, maxHistory int, hasMaxHistory bool, settable bool) error {
	infoKey := r.infoKey(n)

	existing, err := r.client.HGet(ctx, infoKey, fieldDriver).Result()
	if err != nil && err != goredis.Nil {
		return classify(err, "failed checking existing registration for %s", n.String())
	}
	if err == nil {
		if existing != driver {
			return errors.DeviceDefined(n.String())
		}
		return nil
	}

	fields := map[string]interface{}{
		fieldDriver:   driver,
		fieldSettable: strconv.FormatBool(settable),
	}
	if hasUnits {
		fields[fieldUnits] = units
	}
	if hasMaxHistory {
		fields[fieldMaxHist] = strconv.Itoa(maxHistory)
	}

	if err := r.client.HSet(ctx, infoKey, fields).Err(); err != nil {
		return classify(err, "failed registering device %s", n.String())
	}

	if settable {
		r.mu.Lock()
		if _, ok := r.settable[n.String()]; !ok {
			r.settable[n.String()] = make(chan store.Setting, 1)
		}
		r.mu.Unlock()
	}

	log.WithFields(log.Fields{"device": n.String(), "driver": driver}).Debug("[redisstore] registered device")
	return nil
}

// RegisterReadOnly implements store.Store.
func (r *Redis) RegisterReadOnly(ctx context.Context, driver string, n name.Name, units string, hasUnits bool, maxHistory int, hasMaxHistory bool) (store.Reporter, error) {
	if err := r.register(ctx, driver, n, units, hasUnits, maxHistory, hasMaxHistory, false); err != nil {
		return nil, err
	}
	return r.reporterFor(n, maxHistory, hasMaxHistory), nil
}

// RegisterReadWrite implements store.Store.
func (r *Redis) RegisterReadWrite(ctx context.Context, driver string, n name.Name, units string, hasUnits bool, maxHistory int, hasMaxHistory bool) (store.Reporter, store.SettingReceiver, *value.Value, error) {
	if err := r.register(ctx, driver, n, units, hasUnits, maxHistory, hasMaxHistory, true); err != nil {
		return nil, nil, nil, err
	}

	var last *value.Value
	if raw, err := r.client.HGet(ctx, r.infoKey(n), fieldLastVal).Bytes(); err == nil {
		if v, derr := value.Decode(raw); derr == nil {
			last = &v
		}
	}

	r.mu.RLock()
	ch := r.settable[n.String()]
	r.mu.RUnlock()

	return r.reporterFor(n, maxHistory, hasMaxHistory), store.SettingReceiver(ch), last, nil
}

func (r *Redis) reporterFor(n name.Name, maxHistory int, hasMaxHistory bool) store.Reporter {
	infoKey := r.infoKey(n)
	histKey := r.histKey(n)

	return func(ctx context.Context, v value.Value) error {
		timer := prometheus.NewTimer(metrics.StoreOpLatency.WithLabelValues(backendLabel, "report"))
		defer timer.ObserveDuration()

		encoded := value.Encode(v)

		pipe := r.client.TxPipeline()
		args := &goredis.XAddArgs{
			Stream: histKey,
			Values: map[string]interface{}{streamValueField: encoded},
		}
		if hasMaxHistory {
			args.Approx = true
			args.MaxLen = int64(maxHistory)
		}
		pipe.XAdd(ctx, args)
		pipe.HSet(ctx, infoKey, fieldLastVal, encoded)

		if _, err := pipe.Exec(ctx); err != nil {
			return classify(err, "failed reporting value for %s", n.String())
		}
		if l, err := r.client.XLen(ctx, histKey).Result(); err == nil {
			metrics.StoreHistoryLength.WithLabelValues(backendLabel, n.String()).Set(float64(l))
		}
		return nil
	}
}

// GetDeviceInfo implements store.Store.
func (r *Redis) GetDeviceInfo(ctx context.Context, pattern string) ([]store.DeviceInfo, error) {
	timer := prometheus.NewTimer(metrics.StoreOpLatency.WithLabelValues(backendLabel, "get_device_info"))
	defer timer.ObserveDuration()

	matcher, err := r.matchers.Get(pattern)
	if err != nil {
		return nil, errors.InvArgument("invalid glob pattern %q: %v", pattern, err)
	}

	scanPattern := r.prefix + ":*#info"
	var out []store.DeviceInfo

	iter := r.client.Scan(ctx, 0, scanPattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		deviceName := extractDeviceName(key, r.prefix)
		if deviceName == "" || !matcher.Match(deviceName) {
			continue
		}
		n, err := name.Parse(deviceName)
		if err != nil {
			continue
		}
		info, err := r.loadDeviceInfo(ctx, n)
		if err != nil {
			continue
		}
		out = append(out, info)
	}
	if err := iter.Err(); err != nil {
		return nil, classify(err, "failed scanning device info keys")
	}
	return out, nil
}

func extractDeviceName(infoKey, prefix string) string {
	p := prefix + ":"
	suffix := "#info"
	if len(infoKey) <= len(p)+len(suffix) || infoKey[:len(p)] != p {
		return ""
	}
	body := infoKey[len(p):]
	if len(body) <= len(suffix) || body[len(body)-len(suffix):] != suffix {
		return ""
	}
	return body[:len(body)-len(suffix)]
}

func (r *Redis) loadDeviceInfo(ctx context.Context, n name.Name) (store.DeviceInfo, error) {
	fields, err := r.client.HGetAll(ctx, r.infoKey(n)).Result()
	if err != nil {
		return store.DeviceInfo{}, classify(err, "failed loading info for %s", n.String())
	}

	info := store.DeviceInfo{Name: n, Driver: fields[fieldDriver]}
	if units, ok := fields[fieldUnits]; ok {
		info.Units = units
		info.HasUnits = true
	}
	if mh, ok := fields[fieldMaxHist]; ok {
		if v, err := strconv.Atoi(mh); err == nil {
			info.MaxHistory = v
			info.HasMaxHist = true
		}
	}
	if fields[fieldSettable] == "true" {
		info.Settable = true
	}
	if lv, ok := fields[fieldLastVal]; ok {
		if v, err := value.Decode([]byte(lv)); err == nil {
			info.LastValue = v
			info.HasLastVal = true
		}
	}
	return info, nil
}

// SetDevice implements store.Store.
func (r *Redis) SetDevice(ctx context.Context, n name.Name, v value.Value) (value.Value, error) {
	timer := prometheus.NewTimer(metrics.StoreOpLatency.WithLabelValues(backendLabel, "set_device"))
	defer timer.ObserveDuration()

	r.mu.RLock()
	ch, ok := r.settable[n.String()]
	r.mu.RUnlock()
	if !ok {
		return value.Value{}, errors.NotFound("no settable device named %s", n.String())
	}

	reply := make(chan store.Reply, 1)
	select {
	case ch <- store.Setting{Value: v, Reply: reply}:
	case <-ctx.Done():
		return value.Value{}, errors.MissingPeer("driver did not accept setting before context cancellation")
	}

	select {
	case reply := <-reply:
		return reply.Value, reply.Err
	case <-ctx.Done():
		return value.Value{}, errors.MissingPeer("driver did not reply before context cancellation")
	}
}

// GetSettingChan implements store.Store.
func (r *Redis) GetSettingChan(ctx context.Context, n name.Name, exclusive bool) (store.SettingSender, error) {
	r.mu.RLock()
	ch, ok := r.settable[n.String()]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.NotFound("no settable device named %s", n.String())
	}
	return store.SettingSender(ch), nil
}

// MonitorDevice implements store.Store. It replays history read from the
// stream and, if end is nil, continues by polling XRead for new entries.
// Approximate trimming (MAXLEN ~) means the earliest entries may already
// have been evicted; this is within the spec's stated tolerance.
func (r *Redis) MonitorDevice(ctx context.Context, n name.Name, start, end *time.Time) (<-chan store.HistEntry, error) {
	histKey := r.histKey(n)
	out := make(chan store.HistEntry, monitorBuffer)

	startID := "-"
	if start != nil {
		startID = strconv.FormatInt(start.UnixMilli(), 10)
	}
	endID := "+"
	if end != nil {
		endID = strconv.FormatInt(end.UnixMilli(), 10)
	}

	entries, err := r.client.XRange(ctx, histKey, startID, endID).Result()
	if err != nil && err != goredis.Nil {
		return nil, classify(err, "failed reading history for %s", n.String())
	}

	live := end == nil
	lastID := "$"
	if live {
		metrics.StoreMonitorSubscribers.WithLabelValues(backendLabel, n.String()).Inc()
	}
	go func() {
		defer close(out)
		if live {
			defer metrics.StoreMonitorSubscribers.WithLabelValues(backendLabel, n.String()).Dec()
		}
		for _, e := range entries {
			v, ts, ok := decodeStreamEntry(e)
			if !ok {
				continue
			}
			select {
			case out <- store.HistEntry{Timestamp: ts, Value: v}:
			case <-ctx.Done():
				return
			}
			lastID = e.ID
		}
		if !live {
			return
		}

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			res, err := r.client.XRead(ctx, &goredis.XReadArgs{
				Streams: []string{histKey, lastID},
				Block:   monitorPollInterval,
			}).Result()
			if err != nil {
				if err == goredis.Nil || err == context.DeadlineExceeded {
					continue
				}
				return
			}
			for _, stream := range res {
				for _, e := range stream.Messages {
					v, ts, ok := decodeStreamEntry(e)
					if !ok {
						continue
					}
					select {
					case out <- store.HistEntry{Timestamp: ts, Value: v}:
					case <-ctx.Done():
						return
					}
					lastID = e.ID
				}
			}
		}
	}()

	return out, nil
}

func decodeStreamEntry(e goredis.XMessage) (value.Value, time.Time, bool) {
	raw, ok := e.Values[streamValueField]
	if !ok {
		return value.Value{}, time.Time{}, false
	}
	var bs []byte
	switch t := raw.(type) {
	case string:
		bs = []byte(t)
	case []byte:
		bs = t
	default:
		return value.Value{}, time.Time{}, false
	}
	v, err := value.Decode(bs)
	if err != nil {
		return value.Value{}, time.Time{}, false
	}
	ts := streamIDToTime(e.ID)
	return v, ts, true
}

func streamIDToTime(id string) time.Time {
	for i := 0; i < len(id); i++ {
		if id[i] == '-' {
			ms, err := strconv.ParseInt(id[:i], 10, 64)
			if err != nil {
				return time.Now().UTC()
			}
			return time.UnixMilli(ms).UTC()
		}
	}
	return time.Now().UTC()
}
