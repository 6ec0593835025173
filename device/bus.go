package device

import (
	"sync"

	"example.com/isapnp/portio"
)

// Bus is one ISA PnP bus instance: an isolation port, an ordered list of
// logical devices, and at most one Read Port record owned by this bus
// (spec §3, §9).
//
// Each Bus has its own mutex guarding its device list. BusList never
// takes a Bus lock; enum.Enumerator.RemoveBus holds this bus's Lock while
// BusList.Drain takes the bus-list lock, so where the two are nested the
// Bus lock is the outer one.
type Bus struct {
	Number int

	mu      sync.Mutex
	devices []*LogicalDevice

	ReadPort *ReadPortDevice

	// opMu serializes an entire lifecycle transition (start, stop,
	// remove, probe) on this bus, distinct from mu's narrower job of
	// protecting the device slice itself: a probe needs ClearPresent and
	// several Insert/FindByIdentity calls to all observe a
	// consistent view without one long-running operation blocking the
	// unrelated, individually-atomic slice accessors other callers use
	// (spec §9: "held for the probe's duration", no lock-order
	// inversion with the global bus-list mutex).
	opMu sync.Mutex
}

// NewBus constructs an empty Bus ready to receive isolated devices.
func NewBus(number int) *Bus {
	return &Bus{Number: number}
}

// Lock and Unlock hold the bus for the duration of one lifecycle
// transition (spec §4.9: start, stop, remove and probe each run under
// this lock). They do not block the individually-atomic device-list
// accessors below (Insert, Remove, Devices, ...), which take their own
// narrower lock.
func (b *Bus) Lock()   { b.opMu.Lock() }
func (b *Bus) Unlock() { b.opMu.Unlock() }

// Insert appends a LogicalDevice to the bus's ordered list and sets its
// back-reference. The caller must have fully populated the device (LDN,
// identity, resources) before calling Insert.
func (b *Bus) Insert(d *LogicalDevice) {
	d.bus = b
	b.mu.Lock()
	defer b.mu.Unlock()
	b.devices = append(b.devices, d)
}

// Remove deletes the device with the given handle from the bus's list.
// It reports whether a device was actually removed.
func (b *Bus) Remove(d *LogicalDevice) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, existing := range b.devices {
		if existing == d {
			b.devices = append(b.devices[:i], b.devices[i+1:]...)
			return true
		}
	}
	return false
}

// Devices returns a snapshot slice of the bus's current logical devices,
// in insertion order. Callers must not mutate the returned slice.
func (b *Bus) Devices() []*LogicalDevice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*LogicalDevice, len(b.devices))
	copy(out, b.devices)
	return out
}

// FindByIdentity looks up a device surviving from a previous probe by
// its rescan-matching key (spec §3 Lifecycle), independent of CSN.
func (b *Bus) FindByIdentity(id Identity) *LogicalDevice {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.devices {
		if d.Identity() == id {
			return d
		}
	}
	return nil
}

// ClearPresent marks every device on the bus as not-yet-seen-this-pass.
// Enumerator.Rescan calls this before reprobing, then relies on Insert
// (for new identities) and the returned matches (for survivors) to
// reestablish which devices are still Present.
func (b *Bus) ClearPresent() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, d := range b.devices {
		d.Present = false
	}
}

// Absent returns every device that did not have Present set, e.g. after
// a rescan pass finished walking the isolated cards. The Enumerator does
// not call it: devices missed by a probe stay on the list with Present
// cleared.
func (b *Bus) Absent() []*LogicalDevice {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []*LogicalDevice
	for _, d := range b.devices {
		if !d.Present {
			out = append(out, d)
		}
	}
	return out
}

// SetReadPort attaches the bus's Read Data Port resource: it always
// replaces b.ReadPort with a new record for addr and the given started
// state. It never releases ownership; BusList.Drain hands the record
// back when a bus is removed (spec §9: the Read Data Port is a singleton
// shared resource).
func (b *Bus) SetReadPort(addr portio.Address, started bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ReadPort = &ReadPortDevice{Bus: b, Address: addr, Started: started}
}
