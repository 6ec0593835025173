package resources

import "example.com/isapnp/device"

// AssignedIO is one currently-assigned I/O range. Decode16Bit reflects the
// originating IOPORT descriptor's information byte bit 0 (1 = 16-bit ISA
// address decode, 0 = 10-bit). ShareDeviceExclusive is always true: this
// implementation never arbitrates shared I/O ranges (spec §4.8).
type AssignedIO struct {
	Base                 uint16
	Length               uint8
	Decode16Bit          bool
	ShareDeviceExclusive bool
}

// AssignedIRQ is one currently-assigned IRQ vector. LevelSensitive reflects
// the current-resource type register's bit 0 (spec §4.8).
type AssignedIRQ struct {
	Vector               uint8
	Type                 uint8
	LevelSensitive       bool
	ShareDeviceExclusive bool
}

// AssignedDMA is one currently-assigned DMA channel. Width8Bit is always
// true: the current-resource DMA register carries no width bit of its
// own, so the 8-bit default applies (spec §4.8).
type AssignedDMA struct {
	Channel              uint8
	Width8Bit            bool
	ShareDeviceExclusive bool
}

// AssignedMem is one currently-assigned 24-bit memory range.
type AssignedMem struct {
	Base                 uint32
	Length               uint32
	ShareDeviceExclusive bool
}

// AssignedMem32 is one currently-assigned 32-bit memory range.
type AssignedMem32 struct {
	Base                 uint32
	Length               uint32
	ShareDeviceExclusive bool
}

// Assigned is the flat list of resources a logical device is presently
// configured to use (spec §4.8), as the host reports them back in
// response to a query-resources request.
type Assigned struct {
	Io    []AssignedIO
	Irq   []AssignedIRQ
	Dma   []AssignedDMA
	Mem   []AssignedMem
	Mem32 []AssignedMem32
}

// BuildAssigned linearises dev's current-resource fields (as populated
// by currentres.Read) into Assigned. It returns the zero Assigned if
// dev.HasResources is false: an inactive device has nothing assigned.
func BuildAssigned(dev *device.LogicalDevice) Assigned {
	if !dev.HasResources {
		return Assigned{}
	}

	var out Assigned
	for i := 0; i < dev.IoCount; i++ {
		out.Io = append(out.Io, AssignedIO{
			Base:                 dev.Io[i].CurrentBase,
			Length:               dev.Io[i].Length,
			Decode16Bit:          dev.Io[i].Information&0x01 != 0,
			ShareDeviceExclusive: true,
		})
	}
	for i := 0; i < dev.IrqCount; i++ {
		out.Irq = append(out.Irq, AssignedIRQ{
			Vector:               dev.Irq[i].CurrentNo,
			Type:                 dev.Irq[i].CurrentType,
			LevelSensitive:       dev.Irq[i].CurrentType&0x01 != 0,
			ShareDeviceExclusive: true,
		})
	}
	for i := 0; i < dev.DmaCount; i++ {
		out.Dma = append(out.Dma, AssignedDMA{
			Channel:              dev.Dma[i].CurrentChannel,
			Width8Bit:            true,
			ShareDeviceExclusive: true,
		})
	}
	for i := 0; i < dev.MemCount; i++ {
		out.Mem = append(out.Mem, AssignedMem{
			Base:                 dev.Mem[i].CurrentBase,
			Length:               dev.Mem[i].CurrentLength,
			ShareDeviceExclusive: true,
		})
	}
	for i := 0; i < dev.Mem32Count; i++ {
		out.Mem32 = append(out.Mem32, AssignedMem32{
			Base:                 dev.Mem32[i].CurrentBase,
			Length:               dev.Mem32[i].CurrentLength,
			ShareDeviceExclusive: true,
		})
	}
	return out
}
