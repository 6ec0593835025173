package resources_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/isapnp/device"
	"example.com/isapnp/resources"
)

func TestBuildExpandsIRQMaskIntoOneOptionPerVector(t *testing.T) {
	dev := &device.LogicalDevice{
		IrqCount: 1,
		Irq:      [device.MaxIRQ]device.IRQDescriptor{{Mask: 0x0028}},
	}

	req := resources.Build(dev)
	require.Len(t, req.Fixed.IrqOptions, 1)
	opts := req.Fixed.IrqOptions[0]
	require.Len(t, opts, 2)
	assert.Equal(t, uint8(3), opts[0].Vector)
	assert.Equal(t, uint8(5), opts[1].Vector)
}

func TestBuildDoublesLevelSensitiveIRQAlternatives(t *testing.T) {
	dev := &device.LogicalDevice{
		IrqCount: 1,
		Irq:      [device.MaxIRQ]device.IRQDescriptor{{Mask: 0x0028, Information: 0x0C}}, // level-sensitive capable
	}

	req := resources.Build(dev)
	opts := req.Fixed.IrqOptions[0]
	require.Len(t, opts, 4) // 2 edge + 2 level-sensitive duplicates
	assert.False(t, opts[0].Alternative)
	assert.False(t, opts[0].LevelSensitive)
	assert.True(t, opts[1].Alternative)
	assert.False(t, opts[1].LevelSensitive)
	assert.True(t, opts[2].LevelSensitive)
	assert.Equal(t, opts[0].Vector, opts[2].Vector)
	assert.True(t, opts[3].LevelSensitive)
	assert.Equal(t, opts[1].Vector, opts[3].Vector)
}

func TestBuildExpandsDMAMask(t *testing.T) {
	dev := &device.LogicalDevice{
		DmaCount: 1,
		Dma:      [device.MaxDMA]device.DMADescriptor{{Mask: 0x05}}, // channels 0 and 2
	}

	req := resources.Build(dev)
	require.Len(t, req.Fixed.DmaOptions, 1)
	opts := req.Fixed.DmaOptions[0]
	require.Len(t, opts, 2)
	assert.Equal(t, uint8(0), opts[0].Channel)
	assert.Equal(t, uint8(2), opts[1].Channel)
}

func TestBuildSortsAlternativesByPriority(t *testing.T) {
	dev := &device.LogicalDevice{
		Alternatives: &device.Alternatives{
			Count:    3,
			Priority: [device.MaxAlternatives]byte{2, 0, 1},
		},
	}

	req := resources.Build(dev)
	require.Len(t, req.Alternatives, 3)
	assert.Equal(t, byte(0), req.Alternatives[0].Priority)
	assert.Equal(t, byte(1), req.Alternatives[1].Priority)
	assert.Equal(t, byte(2), req.Alternatives[2].Priority)
}

func TestBuildDefaultsZeroMemoryAlignmentTo64K(t *testing.T) {
	dev := &device.LogicalDevice{
		MemCount: 1,
		Mem:      [device.MaxMem]device.MemDescriptor{{Align: 0, Min: 0xC0000, Max: 0xCFFFF, Length: 0x4000}},
	}

	req := resources.Build(dev)
	require.Len(t, req.Fixed.Mem, 1)
	assert.Equal(t, uint32(0x10000), req.Fixed.Mem[0].Align)
}

func TestBuildPreservesNonZeroMemoryAlignment(t *testing.T) {
	dev := &device.LogicalDevice{
		MemCount: 1,
		Mem:      [device.MaxMem]device.MemDescriptor{{Align: 0x1000}},
	}

	req := resources.Build(dev)
	assert.Equal(t, uint32(0x1000), req.Fixed.Mem[0].Align)
}

func TestBuildAssignedReturnsEmptyWhenNotActive(t *testing.T) {
	dev := &device.LogicalDevice{HasResources: false, IoCount: 1}
	assigned := resources.BuildAssigned(dev)
	assert.Empty(t, assigned.Io)
}

func TestBuildAssignedLinearisesCurrentResources(t *testing.T) {
	dev := &device.LogicalDevice{
		HasResources: true,
		IoCount:      1,
		Io:           [device.MaxIO]device.IODescriptor{{CurrentBase: 0x0300, Length: 8, Information: 0x01}},
		IrqCount:     1,
		Irq:          [device.MaxIRQ]device.IRQDescriptor{{CurrentNo: 5, CurrentType: 1}},
		DmaCount:     1,
		Dma:          [device.MaxDMA]device.DMADescriptor{{CurrentChannel: 2}},
	}

	assigned := resources.BuildAssigned(dev)
	require.Len(t, assigned.Io, 1)
	assert.Equal(t, uint16(0x0300), assigned.Io[0].Base)
	assert.Equal(t, uint8(8), assigned.Io[0].Length)
	assert.True(t, assigned.Io[0].Decode16Bit)
	assert.True(t, assigned.Io[0].ShareDeviceExclusive)
	require.Len(t, assigned.Irq, 1)
	assert.Equal(t, uint8(5), assigned.Irq[0].Vector)
	assert.True(t, assigned.Irq[0].LevelSensitive)
	require.Len(t, assigned.Dma, 1)
	assert.True(t, assigned.Dma[0].Width8Bit)
}
