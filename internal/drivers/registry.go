// Package drivers holds DrMem's built-in local pseudo-drivers -- "memory"
// (a settable value with no hardware behind it, for testing logic blocks
// and overridable-channel behavior), "timer" (a periodic boolean toggle),
// and "latch" (a settable boolean pass-through). Concrete hardware
// drivers (TCP, HTTP, UDP protocols) are out of core scope per §1/§9; this
// registry only covers the local, hardware-free ones the spec calls out as
// examples.
package drivers

import "github.com/drmem-io/drmem/core/driver"

// Factory constructs a fresh driver.Driver for one [[driver]] config
// entry. The supervisor calls it once per configured driver instance.
type Factory func() driver.Driver

var registry = map[string]Factory{
	"memory": func() driver.Driver { return &MemoryDriver{} },
	"timer":  func() driver.Driver { return &TimerDriver{} },
	"latch":  func() driver.Driver { return &LatchDriver{} },
}

// Lookup returns the Factory registered under name, if any.
func Lookup(name string) (Factory, bool) {
	f, ok := registry[name]
	return f, ok
}
