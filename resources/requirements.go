// Package resources turns a device.LogicalDevice's raw descriptor
// fields into the enumerated option lists and linear assigned-resource
// lists a host resource arbiter actually consumes (spec §4.7/§4.8).
package resources

import "example.com/isapnp/device"

// IRQOption is one concrete IRQ vector a device is willing to use,
// expanded out of an IRQDescriptor's bitmask. The first option in the
// list (the lowest vector, edge-triggered) is the primary choice;
// Alternative marks every option after it, including the level-sensitive duplicate
// LevelSensitive adds when the originating descriptor's information
// byte claims level-sensitive capability (spec §4.7, §8 testable
// property 3).
type IRQOption struct {
	Vector         uint8
	Information    byte
	Alternative    bool
	LevelSensitive bool
}

// DMAOption is one concrete DMA channel a device is willing to use.
type DMAOption struct {
	Channel     uint8
	Information byte
	Alternative bool
}

func expandIRQMask(d device.IRQDescriptor) []IRQOption {
	var out []IRQOption
	for i := 0; i < 16; i++ {
		if d.Mask&(1<<uint(i)) != 0 {
			out = append(out, IRQOption{Vector: uint8(i), Information: d.Information, Alternative: len(out) > 0})
		}
	}
	// Bits 2-3 of the information byte claim level-sensitive capability
	// (spec §4.7): emit one level-sensitive alternative per vector
	// already listed, after all the edge-triggered ones (spec §8
	// testable property 3: popcount(m) edge + popcount(m) level).
	if d.Information&0x0C != 0 {
		edgeCount := len(out)
		for i := 0; i < edgeCount; i++ {
			out = append(out, IRQOption{
				Vector:         out[i].Vector,
				Information:    d.Information,
				Alternative:    true,
				LevelSensitive: true,
			})
		}
	}
	return out
}

func expandDMAMask(d device.DMADescriptor) []DMAOption {
	var out []DMAOption
	for i := 0; i < 8; i++ {
		if d.Mask&(1<<uint(i)) != 0 {
			out = append(out, DMAOption{Channel: uint8(i), Information: d.Information, Alternative: len(out) > 0})
		}
	}
	return out
}

// MemRequirement is a 24-bit memory requirement as reported to the host:
// identical to device.MemDescriptor except Align has already had the
// spec §4.7 zero-means-64KB substitution applied, which needs a wider
// type than the on-wire uint16 can hold.
type MemRequirement struct {
	Information byte
	Min, Max    uint32
	Align       uint32
	Length      uint32
}

func toMemRequirement(d device.MemDescriptor) MemRequirement {
	align := uint32(d.Align)
	if align == 0 {
		align = 0x10000
	}
	return MemRequirement{Information: d.Information, Min: d.Min, Max: d.Max, Align: align, Length: d.Length}
}

// FunctionSet is one resource-requirement group: either the device's
// fixed requirements, or a single dependent-function set's alternative
// requirements (spec §4.7).
type FunctionSet struct {
	Priority byte // meaningless on the Fixed set; 0=Good..2=Sub-optimal on alternatives

	Io         []device.IODescriptor
	IrqOptions [][]IRQOption // one slice per IRQ descriptor in this set
	DmaOptions [][]DMAOption // one slice per DMA descriptor in this set
	Mem        []MemRequirement
	Mem32      []device.Mem32Descriptor
}

// Requirements is the full expanded requirement tree for one logical
// device: its fixed set plus every dependent-function set, the latter
// sorted by ascending priority (best choice first).
type Requirements struct {
	Fixed        FunctionSet
	Alternatives []FunctionSet
}

// Build expands dev's requirement descriptors into Requirements, ready
// for a host resource arbiter to pick concrete assignments from (spec
// §4.7). It does not allocate anything itself.
func Build(dev *device.LogicalDevice) Requirements {
	fixed := FunctionSet{
		Io:    append([]device.IODescriptor(nil), dev.Io[:dev.IoCount]...),
		Mem32: append([]device.Mem32Descriptor(nil), dev.Mem32[:dev.Mem32Count]...),
	}
	for i := 0; i < dev.MemCount; i++ {
		fixed.Mem = append(fixed.Mem, toMemRequirement(dev.Mem[i]))
	}
	for i := 0; i < dev.IrqCount; i++ {
		fixed.IrqOptions = append(fixed.IrqOptions, expandIRQMask(dev.Irq[i]))
	}
	for i := 0; i < dev.DmaCount; i++ {
		fixed.DmaOptions = append(fixed.DmaOptions, expandDMAMask(dev.Dma[i]))
	}

	var alts []FunctionSet
	if dev.Alternatives != nil {
		for i := 0; i < dev.Alternatives.Count; i++ {
			fs := FunctionSet{Priority: dev.Alternatives.Priority[i]}
			if dev.Alternatives.IoPresent[i] {
				fs.Io = []device.IODescriptor{dev.Alternatives.Io[i]}
			}
			if dev.Alternatives.IrqPresent[i] {
				fs.IrqOptions = [][]IRQOption{expandIRQMask(dev.Alternatives.Irq[i])}
			}
			if dev.Alternatives.DmaPresent[i] {
				fs.DmaOptions = [][]DMAOption{expandDMAMask(dev.Alternatives.Dma[i])}
			}
			if dev.Alternatives.MemPresent[i] {
				fs.Mem = []MemRequirement{toMemRequirement(dev.Alternatives.Mem[i])}
			}
			if dev.Alternatives.Mem32Present[i] {
				fs.Mem32 = []device.Mem32Descriptor{dev.Alternatives.Mem32[i]}
			}
			alts = append(alts, fs)
		}
		sortByPriority(alts)
	}

	return Requirements{Fixed: fixed, Alternatives: alts}
}

// sortByPriority is a stable insertion sort: the input is at most 8
// elements (device.MaxAlternatives), so there is no reason to reach for
// sort.Slice's reflection-based comparator overhead here.
func sortByPriority(sets []FunctionSet) {
	for i := 1; i < len(sets); i++ {
		for j := i; j > 0 && sets[j].Priority < sets[j-1].Priority; j-- {
			sets[j], sets[j-1] = sets[j-1], sets[j]
		}
	}
}
