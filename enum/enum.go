// Package enum implements the Enumerator (spec §4.9): the orchestrator
// that ties isolation, tags, currentres, resources and identity together
// behind the bus-lifecycle and per-device operations a host PnP manager
// actually calls. It never touches hardware directly — everything goes
// through portio.PortIO and hostif's host-provided seams.
package enum

import (
	"fmt"
	"sync"

	"example.com/isapnp/device"
	"example.com/isapnp/hostif"
	"example.com/isapnp/identity"
	"example.com/isapnp/isolation"
	"example.com/isapnp/pnperrors"
	"example.com/isapnp/portio"
	"example.com/isapnp/tags"
)

// MaxLDN bounds how many logical devices a single card's resource-data
// stream is probed for (spec §4.9: "for each LDN 0..max_ldn present in
// the buffer").
const MaxLDN = tags.MaxLogicalDevices

// Enumerator owns the global bus registry and the host-facing seams
// (spec §9: "a single global bus-list mutex" plus an Arbiter/Logger/
// ChildDeviceFactory the host supplies once at construction).
type Enumerator struct {
	buses *device.BusList

	p        portio.PortIO
	arbiter  hostif.Arbiter
	children hostif.ChildDeviceFactory
	logger   hostif.Logger

	// candidatePorts is the Read Port address list isolation tries in
	// order (spec §4.2 Edge cases). Overridable in tests; defaults to
	// portio.CandidateReadPorts.
	candidatePorts []portio.Address

	stateMu sync.Mutex
	state   map[int]*busState
}

// busState tracks per-bus control-plane fields the Enumerator needs
// beyond what device.Bus itself stores (spec §4.9 Read-Port-start
// steps 2-4): whether the Read Port's candidate window is still open
// across several addresses, or has been pinned down to one.
type busState struct {
	pinned bool
}

// New constructs an Enumerator. logger may be nil, in which case a
// hostif.NopLogger is used.
func New(p portio.PortIO, arbiter hostif.Arbiter, children hostif.ChildDeviceFactory, logger hostif.Logger) *Enumerator {
	if logger == nil {
		logger = hostif.NopLogger{}
	}
	return &Enumerator{
		buses:          device.NewBusList(),
		p:              p,
		arbiter:        arbiter,
		children:       children,
		logger:         logger,
		candidatePorts: portio.CandidateReadPorts,
		state:          make(map[int]*busState),
	}
}

func (e *Enumerator) stateFor(busNo int) *busState {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	s, ok := e.state[busNo]
	if !ok {
		s = &busState{}
		e.state[busNo] = s
	}
	return s
}

func (e *Enumerator) dropState(busNo int) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	delete(e.state, busNo)
}

// AddBus creates a new Bus record and registers it, leaving it stopped
// (spec §4.9 "Bus lifecycle"). The host is expected to follow this with
// a QueryBusRelations call.
func (e *Enumerator) AddBus(number int) *device.Bus {
	b := device.NewBus(number)
	e.buses.Add(b)
	e.logger.Logf(hostif.SeverityInfo, "bus %d added", number)
	return b
}

// Bus looks up a previously added bus by number, or nil.
func (e *Enumerator) Bus(number int) *device.Bus { return e.buses.Get(number) }

// QueryBusRelations returns the current device relations for a bus. The
// first call after AddBus creates the bus's Read Port record (and, when a
// ChildDeviceFactory was given, its child device); resource requirements
// for the Read Port cover every candidate window until isolation pins
// one down. The returned list holds only the bus's logical devices: the
// Read Port is not part of it, so before any probe the list is empty.
func (e *Enumerator) QueryBusRelations(b *device.Bus) ([]*device.LogicalDevice, error) {
	if b.ReadPort == nil {
		var handle any
		if e.children != nil {
			h, err := e.children.CreateChild(identity.ReadPortHardwareID, nil, identity.ReadPortInstanceID)
			if err != nil {
				return nil, fmt.Errorf("enum: create Read Port child for bus %d: %w", b.Number, err)
			}
			handle = h
		}
		b.SetReadPort(0, false)
		b.ReadPort.ChildHandle = handle
	}
	return b.Devices(), nil
}

// ReadPortRequirements returns the candidate window(s) the Read Port's
// resource requirements should currently advertise: every candidate
// address before isolation pins one down, or just the pinned one after
// (spec §4.9 Read-Port-start step 2).
func (e *Enumerator) ReadPortRequirements(b *device.Bus) []portio.Address {
	st := e.stateFor(b.Number)
	if st.pinned && b.ReadPort != nil {
		return []portio.Address{b.ReadPort.Address}
	}
	out := make([]portio.Address, len(e.candidatePorts))
	copy(out, e.candidatePorts)
	return out
}

// StartResult reports what StartReadPort did, so the host dispatch loop
// knows whether to re-query requirements or relations (spec §4.9
// Read-Port-start steps 2-4).
type StartResult struct {
	RequirementsChanged  bool // step 2: window pinned, requirements must be requeried
	RelationsInvalidated bool // step 3: a probe ran, relations must be requeried
	Started              bool // the Read Port is now marked started
}

// StartReadPort runs the Read-Port-start sequence (spec §4.9): isolate
// at the arbitrated address; if cards were found and the candidate
// window was still open, pin it down and tell the caller to requery
// requirements before going further (step 2); if cards were found and
// the window was already pinned, record the address and run a full
// probe (step 3); if no cards were found, mark the bus started with no
// children (step 4).
func (e *Enumerator) StartReadPort(b *device.Bus, arbitrated portio.Address) (StartResult, error) {
	b.Lock()
	defer b.Unlock()

	st := e.stateFor(b.Number)

	cards, err := isolation.Isolate(e.p, arbitrated)
	if err != nil && len(cards) == 0 {
		return StartResult{}, fmt.Errorf("enum: isolate bus %d at %s: %w", b.Number, arbitrated, err)
	}

	if len(cards) == 0 {
		b.SetReadPort(arbitrated, true)
		st.pinned = true
		e.logger.Logf(hostif.SeverityInfo, "bus %d: no cards found at %s", b.Number, arbitrated)
		return StartResult{Started: true}, nil
	}

	if !st.pinned {
		st.pinned = true
		b.SetReadPort(arbitrated, false)
		b.ReadPort.NeedRebalance = true
		e.logger.Logf(hostif.SeverityInfo, "bus %d: pinned Read Port window to %s, %d card(s) present", b.Number, arbitrated, len(cards))
		return StartResult{RequirementsChanged: true}, nil
	}

	b.SetReadPort(arbitrated, true)
	e.probeLocked(b, arbitrated, cards)
	e.logger.Logf(hostif.SeverityInfo, "bus %d: probed %d card(s) at %s", b.Number, len(cards), arbitrated)
	return StartResult{RelationsInvalidated: true, Started: true}, nil
}

// Rescan re-runs isolation and a full probe on an already-started bus
// (SPEC_FULL.md supplement #3: the explicit, host-initiated re-entrant
// form of probe — ISA has no hot-plug, so a rescan only ever happens
// because the host asked for one).
func (e *Enumerator) Rescan(b *device.Bus) error {
	b.Lock()
	defer b.Unlock()

	if b.ReadPort == nil {
		return fmt.Errorf("enum: rescan bus %d: %w", b.Number, pnperrors.ResourceConflict)
	}
	port := b.ReadPort.Address
	cards, err := isolation.Isolate(e.p, port)
	if err != nil && len(cards) == 0 {
		return fmt.Errorf("enum: rescan bus %d at %s: %w", b.Number, port, err)
	}
	e.probeLocked(b, port, cards)
	e.logger.Logf(hostif.SeverityInfo, "bus %d: rescanned, %d card(s) present", b.Number, len(cards))
	return nil
}

// probeLocked runs the 4-step Probe (spec §4.9), assuming the caller
// already holds b.Lock().
//
//  1. Clear PRESENT on every existing device.
//  2. Send the key, wake each CSN in turn, read its serial identifier,
//     buffer its tag stream.
//  3. For each LDN 0..MaxLDN present in that buffer: if a device with
//     this (card identity, ldn) already exists, mark it PRESENT and
//     update its CSN (which may have shifted); otherwise allocate and
//     insert a new LogicalDevice, parse it, and read its current
//     resources if it is activated.
//  4. Deactivate every device seen: the host starts them explicitly
//     later.
func (e *Enumerator) probeLocked(b *device.Bus, port portio.Address, cards []isolation.Card) {
	b.ClearPresent()

	if len(cards) > 0 {
		isolation.SendKey(e.p) // Isolate left the bus locked in wait-for-key; unlock it again.
	}

	for _, card := range cards {
		isolation.Wake(e.p, card.CSN)
		tags.SkipIdentifier(e.p, port) // every wake restreams the serial identifier first.

		buf, ldnCount, err := tags.Read(e.p, port)
		if err != nil {
			e.logger.Logf(hostif.SeverityWarn, "bus %d: CSN %d tag read failed: %v", b.Number, card.CSN, err)
			continue
		}
		if ldnCount > MaxLDN {
			ldnCount = MaxLDN
		}
		if ldnCount == 0 {
			ldnCount = 1 // a single-function card carries no LOGDEVID tag at all.
		}

		for ldn := 0; ldn < ldnCount; ldn++ {
			id := device.Identity{
				VendorID:  card.Identifier.VendorID,
				ProductID: card.Identifier.ProductID,
				Serial:    card.Identifier.Serial,
				LDN:       uint8(ldn),
			}

			existing := b.FindByIdentity(id)
			target := existing
			if target == nil {
				target = &device.LogicalDevice{
					CSN:           card.CSN,
					CardVendorID:  card.Identifier.VendorID,
					CardProductID: card.Identifier.ProductID,
					CardSerial:    card.Identifier.Serial,
				}
			} else {
				target.CSN = card.CSN // CSNs may have shifted since the last probe.
			}

			if err := tags.Parse(buf, ldn, target); err != nil {
				if existing == nil {
					continue // not present in this buffer at all: nothing to insert.
				}
				e.logger.Logf(hostif.SeverityWarn, "bus %d: CSN %d LDN %d parse failed: %v", b.Number, card.CSN, ldn, err)
				continue
			}

			target.Present = true
			target.Enumerated = true

			selectLogicalDevice(e.p, port, target.LDN)
			readCurrentResourcesIfActivated(e.p, port, target)
			deactivate(e.p, port, target.LDN)
			target.State = device.StateStopped

			if existing == nil {
				b.Insert(target)
			}
		}
	}
}

// Per-card register used to select which logical device subsequent
// register reads/writes target (spec §6).
const regLogicalDeviceNo byte = 0x07

// selectLogicalDevice writes the LDN-select register so subsequent
// per-device register accesses (activation, current resources) target
// the right logical device on a multi-function card.
func selectLogicalDevice(p portio.PortIO, port portio.Address, ldn uint8) {
	p.WriteByte(regLogicalDeviceNo, ldn)
}
