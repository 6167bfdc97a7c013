// Package dispatcher implements the core §4.5 dispatcher: the single
// owner of a store.Store, fed by two request queues -- driver
// registration/setup requests and client requests -- served strictly
// sequentially so the store never sees concurrent mutation.
//
// Grounded on the teacher's deviceManager/stateManager request handling
// (sdk/device_manager.go, sdk/state_manager.go): a goroutine reading a
// buffered request channel, each request carrying its own reply channel.
package dispatcher

import (
	"context"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/drmem-io/drmem/core/errors"
	"github.com/drmem-io/drmem/core/metrics"
	"github.com/drmem-io/drmem/core/name"
	"github.com/drmem-io/drmem/core/store"
	"github.com/drmem-io/drmem/core/value"
)

// String names a reqKind for metrics/log correlation.
func (k reqKind) String() string {
	switch k {
	case reqRegisterRO:
		return "register_ro"
	case reqRegisterRW:
		return "register_rw"
	case reqGetInfo:
		return "get_info"
	case reqSetDevice:
		return "set_device"
	case reqGetSettingChan:
		return "get_setting_chan"
	case reqMonitor:
		return "monitor"
	default:
		return "unknown"
	}
}

// request is the sum of every operation the dispatcher can serve against
// the store; exactly one of its result channels is written to, exactly
// once, before the request is dropped.
type request struct {
	kind  reqKind
	reply any

	// id tags a client-originated setting for log correlation, mirroring
	// the teacher's transaction-ID-per-write idiom.
	id string

	driver        string
	name          name.Name
	units         string
	hasUnits      bool
	maxHistory    int
	hasMaxHistory bool
	pattern       string
	value         value.Value
	exclusive     bool
	start, end    *time.Time
}

type reqKind int

const (
	reqRegisterRO reqKind = iota
	reqRegisterRW
	reqGetInfo
	reqSetDevice
	reqGetSettingChan
	reqMonitor
)

type registerROReply struct {
	reporter store.Reporter
	err      error
}

type registerRWReply struct {
	reporter  store.Reporter
	recv      store.SettingReceiver
	lastValue *value.Value
	err       error
}

type infoReply struct {
	infos []store.DeviceInfo
	err   error
}

type setReply struct {
	value value.Value
	err   error
}

type settingChanReply struct {
	sender store.SettingSender
	err    error
}

type monitorReply struct {
	ch  <-chan store.HistEntry
	err error
}

// Dispatcher serves driver-registration requests and client requests
// against a single store.Store, one at a time, on a dedicated goroutine.
type Dispatcher struct {
	store      store.Store
	driverReq  chan request
	clientReq  chan request
	driverDone chan struct{}
	clientDone chan struct{}

	// settingLimiter, if non-nil, caps the rate at which reqSetDevice
	// requests are handed to the store, protecting it from a runaway
	// logic block or misbehaving client issuing settings in a tight loop.
	settingLimiter *rate.Limiter
}

// New creates a Dispatcher over the given store. Call Run in its own
// goroutine to start serving; it exits once both queues are closed.
func New(s store.Store) *Dispatcher {
	return &Dispatcher{
		store:      s,
		driverReq:  make(chan request, 64),
		clientReq:  make(chan request, 256),
		driverDone: make(chan struct{}),
		clientDone: make(chan struct{}),
	}
}

// WithSettingRateLimit caps SetDevice throughput to r settings/sec with the
// given burst allowance. Call before Run; nil (the default from New) means
// unlimited.
func (d *Dispatcher) WithSettingRateLimit(r float64, burst int) *Dispatcher {
	d.settingLimiter = rate.NewLimiter(rate.Limit(r), burst)
	return d
}

// Run serves requests until both the driver queue and the client queue are
// closed (§4.5: "exit when both queues are closed"). Call CloseDrivers /
// CloseClients, or cancel ctx, to let it terminate.
func (d *Dispatcher) Run(ctx context.Context) {
	driverOpen, clientOpen := true, true
	driverDone, clientDone := d.driverDone, d.clientDone
	for driverOpen || clientOpen {
		select {
		case <-ctx.Done():
			return
		case <-driverDone:
			driverOpen = false
			driverDone = nil
		case <-clientDone:
			clientOpen = false
			clientDone = nil
		case req, ok := <-d.driverReq:
			if !ok {
				driverOpen = false
				d.driverReq = nil
				continue
			}
			d.serve(ctx, req)
		case req, ok := <-d.clientReq:
			if !ok {
				clientOpen = false
				d.clientReq = nil
				continue
			}
			d.serve(ctx, req)
		}
	}
}

// CloseDrivers signals that no more driver requests will be submitted.
func (d *Dispatcher) CloseDrivers() { close(d.driverDone) }

// CloseClients signals that no more client requests will be submitted.
func (d *Dispatcher) CloseClients() { close(d.clientDone) }

func (d *Dispatcher) serve(ctx context.Context, req request) {
	metrics.DispatcherRequestsTotal.WithLabelValues(req.kind.String()).Inc()
	metrics.DispatcherQueueDepth.WithLabelValues("driver").Set(float64(len(d.driverReq)))
	metrics.DispatcherQueueDepth.WithLabelValues("client").Set(float64(len(d.clientReq)))

	switch req.kind {
	case reqRegisterRO:
		rep, err := d.store.RegisterReadOnly(ctx, req.driver, req.name, req.units, req.hasUnits, req.maxHistory, req.hasMaxHistory)
		req.reply.(chan registerROReply) <- registerROReply{rep, err}

	case reqRegisterRW:
		rep, recv, last, err := d.store.RegisterReadWrite(ctx, req.driver, req.name, req.units, req.hasUnits, req.maxHistory, req.hasMaxHistory)
		req.reply.(chan registerRWReply) <- registerRWReply{rep, recv, last, err}

	case reqGetInfo:
		infos, err := d.store.GetDeviceInfo(ctx, req.pattern)
		req.reply.(chan infoReply) <- infoReply{infos, err}

	case reqSetDevice:
		if d.settingLimiter != nil && !d.settingLimiter.Allow() {
			err := errors.InUse("setting rate limit exceeded, device %s", req.name.String())
			log.WithFields(log.Fields{"txn": req.id, "device": req.name.String()}).
				Warn("[dispatcher] setting throttled")
			req.reply.(chan setReply) <- setReply{value.Value{}, err}
			return
		}

		v, err := d.store.SetDevice(ctx, req.name, req.value)
		if err != nil {
			log.WithFields(log.Fields{"txn": req.id, "device": req.name.String(), "error": err}).
				Warn("[dispatcher] setting rejected")
		} else {
			log.WithFields(log.Fields{"txn": req.id, "device": req.name.String()}).
				Debug("[dispatcher] setting accepted")
		}
		req.reply.(chan setReply) <- setReply{v, err}

	case reqGetSettingChan:
		sender, err := d.store.GetSettingChan(ctx, req.name, req.exclusive)
		req.reply.(chan settingChanReply) <- settingChanReply{sender, err}

	case reqMonitor:
		ch, err := d.store.MonitorDevice(ctx, req.name, req.start, req.end)
		req.reply.(chan monitorReply) <- monitorReply{ch, err}

	default:
		log.Errorf("[dispatcher] unknown request kind %d", req.kind)
	}
}

func (d *Dispatcher) submitDriver(ctx context.Context, req request) error {
	select {
	case d.driverReq <- req:
		return nil
	case <-d.driverDone:
		return errors.MissingPeer("dispatcher")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) submitClient(ctx context.Context, req request) error {
	select {
	case d.clientReq <- req:
		return nil
	case <-d.clientDone:
		return errors.MissingPeer("dispatcher")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RegisterReadOnly submits a driver registration request and waits for the
// dispatcher's reply.
func (d *Dispatcher) RegisterReadOnly(ctx context.Context, driver string, n name.Name, units string, hasUnits bool, maxHistory int, hasMaxHistory bool) (store.Reporter, error) {
	reply := make(chan registerROReply, 1)
	if err := d.submitDriver(ctx, request{
		kind: reqRegisterRO, reply: reply, driver: driver, name: n,
		units: units, hasUnits: hasUnits, maxHistory: maxHistory, hasMaxHistory: hasMaxHistory,
	}); err != nil {
		return nil, err
	}
	select {
	case r := <-reply:
		return r.reporter, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RegisterReadWrite submits a driver registration request for a settable
// device and waits for the dispatcher's reply.
func (d *Dispatcher) RegisterReadWrite(ctx context.Context, driver string, n name.Name, units string, hasUnits bool, maxHistory int, hasMaxHistory bool) (store.Reporter, store.SettingReceiver, *value.Value, error) {
	reply := make(chan registerRWReply, 1)
	if err := d.submitDriver(ctx, request{
		kind: reqRegisterRW, reply: reply, driver: driver, name: n,
		units: units, hasUnits: hasUnits, maxHistory: maxHistory, hasMaxHistory: hasMaxHistory,
	}); err != nil {
		return nil, nil, nil, err
	}
	select {
	case r := <-reply:
		return r.reporter, r.recv, r.lastValue, r.err
	case <-ctx.Done():
		return nil, nil, nil, ctx.Err()
	}
}

// GetDeviceInfo submits a client query and waits for the dispatcher's
// reply.
func (d *Dispatcher) GetDeviceInfo(ctx context.Context, pattern string) ([]store.DeviceInfo, error) {
	reply := make(chan infoReply, 1)
	if err := d.submitClient(ctx, request{kind: reqGetInfo, reply: reply, pattern: pattern}); err != nil {
		return nil, err
	}
	select {
	case r := <-reply:
		return r.infos, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SetDevice submits a client set request and waits for the dispatcher's
// reply (which itself waits on the driver's response, per §4.1).
func (d *Dispatcher) SetDevice(ctx context.Context, n name.Name, v value.Value) (value.Value, error) {
	reply := make(chan setReply, 1)
	id := uuid.New().String()
	if err := d.submitClient(ctx, request{kind: reqSetDevice, reply: reply, name: n, value: v, id: id}); err != nil {
		return value.Value{}, err
	}
	select {
	case r := <-reply:
		return r.value, r.err
	case <-ctx.Done():
		return value.Value{}, ctx.Err()
	}
}

// GetSettingChan submits a client request for a device's setting sender.
func (d *Dispatcher) GetSettingChan(ctx context.Context, n name.Name, exclusive bool) (store.SettingSender, error) {
	reply := make(chan settingChanReply, 1)
	if err := d.submitClient(ctx, request{kind: reqGetSettingChan, reply: reply, name: n, exclusive: exclusive}); err != nil {
		return nil, err
	}
	select {
	case r := <-reply:
		return r.sender, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// MonitorDevice submits a client request for a device's history/live
// stream.
func (d *Dispatcher) MonitorDevice(ctx context.Context, n name.Name, start, end *time.Time) (<-chan store.HistEntry, error) {
	reply := make(chan monitorReply, 1)
	if err := d.submitClient(ctx, request{kind: reqMonitor, reply: reply, name: n, start: start, end: end}); err != nil {
		return nil, err
	}
	select {
	case r := <-reply:
		return r.ch, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
