// Package driver defines the two-phase driver contract the supervisor
// (core/supervisor) runs forever against each configured driver instance,
// per §4.3. Concrete drivers (TCP sump pump, NTP mode-6, HTTP weather
// services, local pseudo-drivers) live outside core scope; this package
// only fixes the shape they must implement.
//
// Grounded on the teacher's DeviceHandler/PluginHandlers split
// (sdk/device_handler.go, sdk/plugin_handlers.go): a one-time setup phase
// that binds handlers to devices, followed by a long-running read/write
// loop driven by the scheduler.
package driver

import (
	"context"

	"github.com/drmem-io/drmem/core/store"
	"github.com/drmem-io/drmem/core/value"
)

// DeviceSet is any aggregate of device channels a driver builds during
// RegisterDevices and then operates on during Run. It has no required
// shape; drivers typically define a small struct of *channel.ReadOnly[T] /
// *channel.Overridable[T] fields, built by wrapping the store.Reporter /
// store.SettingReceiver values an Acquirer hands out.
type DeviceSet interface{}

// ResettableState lets the supervisor reset per-instance channel state
// machines between restarts without discarding the underlying device
// registrations (§4.4 step 4): overridable channels return to Unknown and
// resynchronize against the next poll.
type ResettableState interface {
	ResetState()
}

// Acquirer is the capability a driver's RegisterDevices uses to obtain the
// store-level primitives for the devices it owns, scoped under its
// configured name prefix. Implemented by core/dispatcher.Handle. Drivers
// wrap the returned Reporter/SettingReceiver in a channel.ReadOnly[T],
// channel.ReadWrite[T], or channel.Overridable[T] for whichever host type T
// the device's readings/settings use.
type Acquirer interface {
	// ReadOnly registers a read-only device under suffix and returns its
	// Reporter.
	ReadOnly(ctx context.Context, suffix string, units string, maxHistory *int) (store.Reporter, error)

	// ReadWrite registers a settable device under suffix and returns its
	// Reporter, SettingReceiver, and last persisted value, if any.
	ReadWrite(ctx context.Context, suffix string, units string, maxHistory *int) (store.Reporter, store.SettingReceiver, *value.Value, error)
}

// Driver is the contract every DrMem driver implements. An instance is
// constructed fresh on every supervisor restart; RegisterDevices runs only
// once per driver *configuration* (not per instance), acquiring the
// channels that persist across restarts.
type Driver interface {
	// RegisterDevices acquires every channel this driver needs, one time,
	// using cfg (the driver's free-form [[driver.cfg]] table) to decide
	// which devices to create. Returns the DeviceSet that Run will operate
	// on; the supervisor holds onto it across restarts.
	RegisterDevices(ctx context.Context, acq Acquirer, cfg map[string]any, maxHistory *int) (DeviceSet, error)

	// CreateInstance parses cfg and opens whatever external resource this
	// driver talks to (a TCP socket, an HTTP client, ...). Called once per
	// supervisor (re)start.
	CreateInstance(ctx context.Context, cfg map[string]any) (Instance, error)
}

// Instance is one live incarnation of a driver, holding whatever resources
// CreateInstance opened. Run must not return under normal operation; a
// returned error or a panic is treated identically by the supervisor as a
// failure to be retried with backoff.
type Instance interface {
	// Run is the driver's hot loop: poll hardware, call
	// channel.Report/ReportUpdate, await channel.NextSetting, and apply
	// accepted settings to hardware. It should run until ctx is cancelled;
	// any other return is a supervisor-visible failure.
	Run(ctx context.Context, devices DeviceSet) error

	// Close releases whatever CreateInstance opened. Called once Run
	// returns, before the supervisor decides whether to retry.
	Close() error
}
