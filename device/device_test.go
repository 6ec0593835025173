package device_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/isapnp/device"
)

func newDevice(csn, ldn uint8, vendor, product uint16, serial uint32) *device.LogicalDevice {
	return &device.LogicalDevice{
		CSN: csn, LDN: ldn,
		CardVendorID: vendor, CardProductID: product, CardSerial: serial,
		Present: true,
	}
}

func TestBusInsertAndDevices(t *testing.T) {
	b := device.NewBus(0)
	d1 := newDevice(1, 0, 0x6834, 0x1234, 0xDEADBEEF)
	d2 := newDevice(1, 1, 0x6834, 0x1234, 0xDEADBEEF)
	b.Insert(d1)
	b.Insert(d2)

	got := b.Devices()
	require.Len(t, got, 2)
	assert.Same(t, d1, got[0])
	assert.Same(t, d2, got[1])
	assert.Same(t, b, d1.Bus())
}

func TestBusRemove(t *testing.T) {
	b := device.NewBus(0)
	d1 := newDevice(1, 0, 0x6834, 0x1234, 0xDEADBEEF)
	b.Insert(d1)

	assert.True(t, b.Remove(d1))
	assert.Empty(t, b.Devices())
	assert.False(t, b.Remove(d1))
}

func TestBusFindByIdentitySurvivesCSNChange(t *testing.T) {
	b := device.NewBus(0)
	d1 := newDevice(1, 0, 0x6834, 0x1234, 0xDEADBEEF)
	b.Insert(d1)

	// A rescan reassigns CSN, but the identity key is CSN-independent.
	d1.CSN = 3
	found := b.FindByIdentity(device.Identity{VendorID: 0x6834, ProductID: 0x1234, Serial: 0xDEADBEEF, LDN: 0})
	require.NotNil(t, found)
	assert.Same(t, d1, found)

	notFound := b.FindByIdentity(device.Identity{VendorID: 0x6834, ProductID: 0x1234, Serial: 0xDEADBEEF, LDN: 1})
	assert.Nil(t, notFound)
}

func TestBusClearPresentAndAbsent(t *testing.T) {
	b := device.NewBus(0)
	d1 := newDevice(1, 0, 0x6834, 0x1234, 0xDEADBEEF)
	d2 := newDevice(2, 0, 0x7A2F, 0x5678, 0x12345678)
	b.Insert(d1)
	b.Insert(d2)

	b.ClearPresent()
	assert.False(t, d1.Present)
	assert.False(t, d2.Present)

	d1.Present = true // simulates a rescan finding d1 again, not d2.
	absent := b.Absent()
	require.Len(t, absent, 1)
	assert.Same(t, d2, absent[0])
}

func TestBusListAddGetDrain(t *testing.T) {
	list := device.NewBusList()
	b0 := device.NewBus(0)
	b1 := device.NewBus(1)
	list.Add(b0)
	list.Add(b1)

	assert.Same(t, b0, list.Get(0))
	assert.Len(t, list.All(), 2)

	b0.SetReadPort(0x3E4, true)
	drained := list.Drain(0)
	require.NotNil(t, drained)
	assert.Equal(t, b0, drained.Bus)
	assert.Nil(t, list.Get(0))

	other := list.AnyOther(0)
	assert.Same(t, b1, other)
}

func TestLifecycleStateString(t *testing.T) {
	assert.Equal(t, "Stopped", device.StateStopped.String())
	assert.Equal(t, "Started", device.StateStarted.String())
}
