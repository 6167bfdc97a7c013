// Package store defines the back-end storage contract shared by DrMem's
// in-memory and Redis-streams adapters (core/store/memory,
// core/store/redis). It is a capability interface: the two
// implementations share no code, and the dispatcher (core/dispatcher)
// depends only on this package, never on either concrete adapter.
package store

import (
	"context"
	"time"

	"github.com/drmem-io/drmem/core/name"
	"github.com/drmem-io/drmem/core/value"
)

// Reporter is the closure a device channel uses to publish a new reading to
// the store. It is handed out by Register{ReadOnly,ReadWrite}.
type Reporter func(ctx context.Context, v value.Value) error

// Setting is one client-originated request to change a settable device's
// value. Reply carries the driver's response back to the requesting
// client: either the accepted value or an error.
type Setting struct {
	Value value.Value
	Reply chan<- Reply
}

// Reply is the driver's response to a Setting.
type Reply struct {
	Value value.Value
	Err   error
}

// SettingReceiver is the driver's unique receive handle for incoming
// settings on one device (§5: "the receiver is unique, single consumer,
// held by the driver").
type SettingReceiver <-chan Setting

// SettingSender is a cloneable send handle for incoming settings; the store
// hands out as many of these as are requested via GetSettingChan.
type SettingSender chan<- Setting

// HistEntry is one (timestamp, Value) pair from a device's history.
type HistEntry struct {
	Timestamp time.Time
	Value     value.Value
}

// DeviceInfo is the per-device metadata record the store maintains, per the
// core data model.
type DeviceInfo struct {
	Name        name.Name
	Driver      string
	Units       string
	HasUnits    bool
	MaxHistory  int
	HasMaxHist  bool
	LastValue   value.Value
	HasLastVal  bool
	History     []HistEntry
	Settable    bool
}

// Store is the back-end storage contract. All operations fail with a
// *errors.Error from the core error taxonomy.
type Store interface {
	// RegisterReadOnly registers a read-only device and returns its
	// Reporter. Re-registering an existing name under a different driver
	// fails with a KindDeviceDefined error.
	RegisterReadOnly(ctx context.Context, driver string, n name.Name, units string, hasUnits bool, maxHistory int, hasMaxHistory bool) (Reporter, error)

	// RegisterReadWrite registers a settable device and returns its
	// Reporter, the driver's unique SettingReceiver, and the last
	// persisted value, if any.
	RegisterReadWrite(ctx context.Context, driver string, n name.Name, units string, hasUnits bool, maxHistory int, hasMaxHistory bool) (Reporter, SettingReceiver, *value.Value, error)

	// GetDeviceInfo returns the metadata for every device whose name
	// matches pattern. An empty pattern matches all devices.
	GetDeviceInfo(ctx context.Context, pattern string) ([]DeviceInfo, error)

	// SetDevice forwards v to the named device's setting channel and
	// waits for the driver's reply. Fails with KindNotFound if the
	// device is not settable or does not exist.
	SetDevice(ctx context.Context, n name.Name, v value.Value) (value.Value, error)

	// GetSettingChan hands out a send handle for the named device's
	// setting channel. Every caller receives the same shared channel; the
	// in-memory and streams adapters both ignore exclusive.
	GetSettingChan(ctx context.Context, n name.Name, exclusive bool) (SettingSender, error)

	// MonitorDevice streams history entries intersecting [start, end],
	// followed by live updates if end is nil. The returned channel is
	// closed when the context is cancelled or the store shuts down.
	MonitorDevice(ctx context.Context, n name.Name, start, end *time.Time) (<-chan HistEntry, error)
}
