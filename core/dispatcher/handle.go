package dispatcher

import (
	"context"

	"github.com/drmem-io/drmem/core/name"
	"github.com/drmem-io/drmem/core/store"
	"github.com/drmem-io/drmem/core/value"
)

// Handle is the driver.Acquirer a supervisor hands to one driver instance:
// it binds that driver's name and configured name prefix so RegisterDevices
// only ever has to supply the device's local suffix.
type Handle struct {
	d      *Dispatcher
	driver string
	prefix string // colon-separated path, e.g. "sump:tank1"; may be empty
}

// NewHandle builds a Handle for one driver, scoped to prefix (the driver's
// configured [[driver]].prefix).
func NewHandle(d *Dispatcher, driverName string, prefix string) (*Handle, error) {
	// Validate the prefix by probing a throwaway name built from it; an
	// empty prefix is valid (each device is then named by its suffix alone).
	if prefix != "" {
		if _, err := name.Parse(prefix + ":probe"); err != nil {
			return nil, err
		}
	}
	return &Handle{d: d, driver: driverName, prefix: prefix}, nil
}

func (h *Handle) fullName(suffix string) (name.Name, error) {
	if h.prefix == "" {
		return name.Parse(suffix)
	}
	return name.Parse(h.prefix + ":" + suffix)
}

// ReadOnly registers a read-only device under suffix and returns its
// Reporter.
func (h *Handle) ReadOnly(ctx context.Context, suffix string, units string, maxHistory *int) (store.Reporter, error) {
	n, err := h.fullName(suffix)
	if err != nil {
		return nil, err
	}
	hasMax := maxHistory != nil
	mh := 0
	if hasMax {
		mh = *maxHistory
	}
	return h.d.RegisterReadOnly(ctx, h.driver, n, units, units != "", mh, hasMax)
}

// ReadWrite registers a settable device under suffix and returns its
// Reporter, SettingReceiver, and last persisted value, if any.
func (h *Handle) ReadWrite(ctx context.Context, suffix string, units string, maxHistory *int) (store.Reporter, store.SettingReceiver, *value.Value, error) {
	n, err := h.fullName(suffix)
	if err != nil {
		return nil, nil, nil, err
	}
	hasMax := maxHistory != nil
	mh := 0
	if hasMax {
		mh = *maxHistory
	}
	return h.d.RegisterReadWrite(ctx, h.driver, n, units, units != "", mh, hasMax)
}
