package device

import "sync"

// BusList is the global registry of buses this driver instance manages
// (spec §9: "a single global bus-list mutex"). Its methods never take a
// Bus's lock. enum.Enumerator.RemoveBus calls Drain while holding the
// removed bus's Lock, so this lock is taken inside a Bus lock, never
// the other way round.
type BusList struct {
	mu   sync.Mutex
	byNo map[int]*Bus
}

// NewBusList constructs an empty bus registry.
func NewBusList() *BusList {
	return &BusList{byNo: make(map[int]*Bus)}
}

// Add registers a newly discovered bus. It is a no-op if a bus with the
// same number is already registered.
func (l *BusList) Add(b *Bus) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.byNo[b.Number]; exists {
		return
	}
	l.byNo[b.Number] = b
}

// Get returns the bus with the given number, or nil if none is
// registered.
func (l *BusList) Get(number int) *Bus {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.byNo[number]
}

// All returns a snapshot slice of every registered bus.
func (l *BusList) All() []*Bus {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Bus, 0, len(l.byNo))
	for _, b := range l.byNo {
		out = append(out, b)
	}
	return out
}

// Drain removes a bus from the registry and returns its Read Port
// resource, if it owned one, so the caller can hand it off to a
// remaining bus (spec §9). It returns nil if the bus was not registered
// or never owned a Read Port.
func (l *BusList) Drain(number int) *ReadPortDevice {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.byNo[number]
	if !ok {
		return nil
	}
	delete(l.byNo, number)
	return b.ReadPort
}

// AnyOther returns some registered bus other than the given number, used
// to pick a recipient for a migrating Read Port. It returns nil if no
// other bus is registered.
func (l *BusList) AnyOther(excludeNumber int) *Bus {
	l.mu.Lock()
	defer l.mu.Unlock()
	for no, b := range l.byNo {
		if no != excludeNumber {
			return b
		}
	}
	return nil
}
