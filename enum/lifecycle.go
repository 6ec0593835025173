package enum

import (
	"fmt"

	"example.com/isapnp/currentres"
	"example.com/isapnp/device"
	"example.com/isapnp/hostif"
	"example.com/isapnp/identity"
	"example.com/isapnp/pnperrors"
	"example.com/isapnp/portio"
	"example.com/isapnp/resources"
)

// regActivate mirrors currentres's own constant (spec §6): bit 0 of this
// per-device register is the activation flag.
const regActivate byte = 0x30

// regIORangeCheck controls the I/O range check a card performs before
// committing to its configured I/O base; clearing it is part of Start
// (spec §4.9 "Start: ... clear I/O range check bit").
const regIORangeCheck byte = 0x31

func readCurrentResourcesIfActivated(p portio.PortIO, port portio.Address, dev *device.LogicalDevice) {
	currentres.Read(p, port, dev)
}

func deactivate(p portio.PortIO, port portio.Address, ldn uint8) {
	selectLogicalDevice(p, port, ldn)
	p.WriteByte(regActivate, 0x00)
}

func activate(p portio.PortIO, port portio.Address, ldn uint8) {
	selectLogicalDevice(p, port, ldn)
	p.WriteByte(regActivate, 0x01)
}

// programArbitratedResources consumes dev's fixed requirement set through
// the host Arbiter and writes the chosen I/O, IRQ and DMA assignments into
// dev's registers before activation (spec §6: "the core consumes the
// arbitrated result at start time"). It is a no-op when the host gave no
// Arbiter at construction. 24-bit and 32-bit memory ranges are deliberately
// not arbitrated here: hostif.Arbiter has no ArbitrateMem/ArbitrateMem32
// method, so a card whose only fixed requirement is a memory window keeps
// whatever current value currentres.Read last observed (see DESIGN.md).
func (e *Enumerator) programArbitratedResources(dev *device.LogicalDevice) error {
	if e.arbiter == nil {
		return nil
	}

	req := resources.Build(dev)
	fixed := req.Fixed

	for i, desc := range fixed.Io {
		base, err := e.arbiter.ArbitrateIO(dev, []device.IODescriptor{desc})
		if err != nil {
			return fmt.Errorf("arbitrate I/O slot %d: %w", i, err)
		}
		currentres.WriteIO(e.p, i, base)
		dev.Io[i].CurrentBase = base
	}

	for i, opts := range fixed.IrqOptions {
		// Only the primary, edge-triggered options are offered: the wire
		// type byte can't record which IRQOption the arbiter actually
		// picked (ArbitrateIRQ returns a bare vector), so level-sensitive
		// alternatives are left for the host to request by other means.
		candidates := make([]uint8, 0, len(opts))
		for _, opt := range opts {
			if !opt.LevelSensitive {
				candidates = append(candidates, opt.Vector)
			}
		}
		vector, err := e.arbiter.ArbitrateIRQ(dev, candidates)
		if err != nil {
			return fmt.Errorf("arbitrate IRQ slot %d: %w", i, err)
		}
		currentres.WriteIRQ(e.p, i, vector, false)
		dev.Irq[i].CurrentNo = vector
		dev.Irq[i].CurrentType = 0
	}

	for i, opts := range fixed.DmaOptions {
		candidates := make([]uint8, len(opts))
		for j, opt := range opts {
			candidates[j] = opt.Channel
		}
		channel, err := e.arbiter.ArbitrateDMA(dev, candidates)
		if err != nil {
			return fmt.Errorf("arbitrate DMA slot %d: %w", i, err)
		}
		currentres.WriteDMA(e.p, i, channel)
		dev.Dma[i].CurrentChannel = channel
	}

	return nil
}

// Start transitions a logical device Stopped -> Started (spec §4.9 "Per-
// device events: Start"): write its LDN-select register, clear the I/O
// range check bit, consume the host Arbiter's chosen I/O/IRQ/DMA
// assignments into the device's configuration registers (spec §6: "the
// core consumes the arbitrated result at start time"), set the
// activation bit, and move to StateStarted. A failed start leaves the
// device Stopped (spec §4.9 "State machine").
func (e *Enumerator) Start(b *device.Bus, dev *device.LogicalDevice) error {
	b.Lock()
	defer b.Unlock()

	if b.ReadPort == nil {
		return fmt.Errorf("enum: start LDN %d: bus %d has no Read Port: %w", dev.LDN, b.Number, pnperrors.ResourceConflict)
	}
	port := b.ReadPort.Address

	selectLogicalDevice(e.p, port, dev.LDN)
	e.p.WriteByte(regIORangeCheck, 0x00)
	if err := e.programArbitratedResources(dev); err != nil {
		return fmt.Errorf("enum: start LDN %d: %w", dev.LDN, err)
	}
	activate(e.p, port, dev.LDN)
	dev.State = device.StateStarted
	e.logger.Logf(hostif.SeverityInfo, "bus %d: LDN %d started", b.Number, dev.LDN)
	return nil
}

// Stop transitions a logical device Started -> Stopped (spec §4.9 "Per-
// device events: Stop"): clear the activation bit.
func (e *Enumerator) Stop(b *device.Bus, dev *device.LogicalDevice) error {
	b.Lock()
	defer b.Unlock()

	if b.ReadPort == nil {
		return fmt.Errorf("enum: stop LDN %d: bus %d has no Read Port: %w", dev.LDN, b.Number, pnperrors.ResourceConflict)
	}
	deactivate(e.p, b.ReadPort.Address, dev.LDN)
	dev.State = device.StateStopped
	e.logger.Logf(hostif.SeverityInfo, "bus %d: LDN %d stopped", b.Number, dev.LDN)
	return nil
}

// Remove drops a logical device from its bus's model and, if the host
// provided a ChildDeviceFactory, asks it to remove the corresponding
// child node (spec §4.9 "Per-device events: Remove").
func (e *Enumerator) Remove(b *device.Bus, dev *device.LogicalDevice) error {
	b.Lock()
	defer b.Unlock()

	b.Remove(dev)
	if e.children != nil && dev.ChildHandle != nil {
		if err := e.children.RemoveChild(dev.ChildHandle); err != nil {
			return fmt.Errorf("enum: remove child for LDN %d: %w", dev.LDN, err)
		}
	}
	e.logger.Logf(hostif.SeverityInfo, "bus %d: LDN %d removed", b.Number, dev.LDN)
	return nil
}

// RemoveBus tears down a bus entirely (spec §4.9 "Remove: ... if Bus
// also removed, remove Read Port too and hand ownership to next Bus in
// the global list, invalidate its relations"). It returns the bus that
// received Read Port ownership, or nil if there was no other bus to
// hand it to or this bus never owned the Read Port.
func (e *Enumerator) RemoveBus(b *device.Bus) (*device.Bus, error) {
	b.Lock()
	readPort := e.buses.Drain(b.Number)
	b.Unlock()
	e.dropState(b.Number)

	if e.children != nil && readPort != nil && readPort.ChildHandle != nil {
		if err := e.children.RemoveChild(readPort.ChildHandle); err != nil {
			return nil, fmt.Errorf("enum: remove Read Port child for bus %d: %w", b.Number, err)
		}
	}

	if readPort == nil {
		e.logger.Logf(hostif.SeverityInfo, "bus %d removed", b.Number)
		return nil, nil
	}

	next := e.buses.AnyOther(b.Number)
	if next == nil {
		e.logger.Logf(hostif.SeverityInfo, "bus %d removed, Read Port had no successor", b.Number)
		return nil, nil
	}

	next.Lock()
	next.SetReadPort(readPort.Address, false)
	e.dropState(next.Number) // force a fresh candidate-window pass on the new owner.
	next.Unlock()

	e.logger.Logf(hostif.SeverityInfo, "bus %d removed, Read Port handed to bus %d", b.Number, next.Number)
	return next, nil
}

// QueryID formats the identifier strings a host's query-id request
// expects for dev (spec §4.9 "Per-device events: Query-ids", spec §6).
type QueryID struct {
	DeviceID      string
	HardwareIDs   []string
	CompatibleIDs []string
	InstanceID    string
}

// BuildQueryID formats dev's identifiers via the identity package.
func (e *Enumerator) BuildQueryID(dev *device.LogicalDevice) QueryID {
	return QueryID{
		DeviceID:      identity.DeviceID(dev),
		HardwareIDs:   identity.HardwareIDs(dev),
		CompatibleIDs: identity.CompatibleIDs(dev),
		InstanceID:    identity.InstanceID(dev),
	}
}

// ReadPortQueryID is the identity a host reports for the Read Port
// pseudo-device itself (spec §6, §9).
func ReadPortQueryID() QueryID {
	return QueryID{
		DeviceID:    identity.ReadPortHardwareID,
		HardwareIDs: []string{identity.ReadPortHardwareID},
		InstanceID:  identity.ReadPortInstanceID,
	}
}

// PnpState is the answer to a query-pnp-state request (spec §4.9).
type PnpState struct {
	NeedRebalance bool
}

// QueryDevicePnpState answers query-pnp-state for a logical device.
// LogicalDevice carries no NEED_REBALANCE flag at all: that signal is
// only meaningful on the Read Port itself (spec §5), so this always
// reports the zero value.
func (e *Enumerator) QueryDevicePnpState(dev *device.LogicalDevice) PnpState {
	return PnpState{}
}

// QueryReadPortPnpState answers query-pnp-state for the bus's Read
// Port: NEED_REBALANCE is set between the moment isolation first pins
// the candidate window down (spec §4.9 step 2) and the moment the host
// re-starts the Read Port at the now-fixed address (step 3).
func (e *Enumerator) QueryReadPortPnpState(b *device.Bus) PnpState {
	if b.ReadPort == nil {
		return PnpState{}
	}
	return PnpState{NeedRebalance: b.ReadPort.NeedRebalance}
}

// DeviceText implements query-device-text (SPEC_FULL.md supplement #4):
// the stored friendly name if one was parsed from an ANSISTRING tag, or
// a synthesized "ISAPNP\VVVPPPP" fallback otherwise (mirrors
// original_source's Pdo_QueryDeviceText falling back to the hardware ID
// when no friendly name is present).
func DeviceText(dev *device.LogicalDevice) string {
	if dev.FriendlyName != "" {
		return dev.FriendlyName
	}
	return identity.DeviceID(dev)
}
