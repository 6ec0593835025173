package identity_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"example.com/isapnp/device"
	"example.com/isapnp/identity"
)

// 0x0105 is independently verified against the §6 formula letter-by-
// letter (not the spec's own "0x1E34 -> FMS" example, which does not
// actually satisfy the formula as written -- see DESIGN.md).
const vendorAHA = 0x0105

func TestExpandVendorID(t *testing.T) {
	assert.Equal(t, "AHA", identity.ExpandVendorID(vendorAHA))
}

func TestDeviceIDUsesCardIdentityNotLogicalDeviceIdentity(t *testing.T) {
	dev := &device.LogicalDevice{
		CardVendorID: vendorAHA, CardProductID: 0x0501,
		VendorID: 0x0000, ProductID: 0x0000,
	}
	assert.Equal(t, `ISAPNP\AHA0501`, identity.DeviceID(dev))
}

func TestHardwareIDsCardFirstThenLogicalDevice(t *testing.T) {
	dev := &device.LogicalDevice{
		CardVendorID: vendorAHA, CardProductID: 0x0501,
		VendorID: vendorAHA, ProductID: 0x0502,
	}
	got := identity.HardwareIDs(dev)
	assert.Equal(t, []string{`ISAPNP\AHA0501`, `*AHA0502`}, got)
}

func TestCompatibleIDs(t *testing.T) {
	dev := &device.LogicalDevice{
		CompatibleIDs: []device.CompatibleId{
			{VendorID: vendorAHA, ProductID: 0x0500},
			{VendorID: vendorAHA, ProductID: 0x0501},
		},
	}
	got := identity.CompatibleIDs(dev)
	assert.Equal(t, []string{`*AHA0500`, `*AHA0501`}, got)
}

func TestInstanceIDIsStableAcrossCSNChange(t *testing.T) {
	dev := &device.LogicalDevice{CardSerial: 0xDEADBEEF, LDN: 2, CSN: 1}
	id1 := identity.InstanceID(dev)
	assert.Equal(t, "DEADBEEF", id1)

	dev.CSN = 5 // a rescan may reassign CSN without changing card identity.
	assert.Equal(t, id1, identity.InstanceID(dev))
}

func TestReadPortIdentityConstants(t *testing.T) {
	assert.Equal(t, `ISAPNP\ReadDataPort`, identity.ReadPortHardwareID)
	assert.Equal(t, "0", identity.ReadPortInstanceID)
}
