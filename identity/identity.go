// Package identity formats the wire-exact identifier strings a host's
// plug-and-play manager matches drivers against (spec §6), from the raw
// compressed vendor/product IDs a LogicalDevice carries.
package identity

import (
	"fmt"

	"example.com/isapnp/device"
)

// ExpandVendorID decodes a compressed 16-bit vendor ID into its
// three-letter vendor code (spec §6's bit layout, which does not match
// the "plain" EISA compression — it is reproduced here exactly as
// given, not as commonly documented elsewhere).
func ExpandVendorID(c uint16) string {
	l0 := byte((c>>2)&0x1F) + 'A' - 1
	l1 := byte(((c&0x3)<<3)|((c>>13)&0x7)) + 'A' - 1
	l2 := byte((c>>8)&0x1F) + 'A' - 1
	return string([]byte{l0, l1, l2})
}

// deviceIDString formats a vendor/product pair as "ISAPNP\VVVPPPP": the
// 3-letter vendor code uppercase, the product id as lowercase hex (spec
// §6).
func deviceIDString(vendorID, productID uint16) string {
	return fmt.Sprintf(`ISAPNP\%s%04x`, ExpandVendorID(vendorID), productID)
}

// compatibleIDString formats a vendor/product pair as "*VVVPPPP" (spec
// §6).
func compatibleIDString(vendorID, productID uint16) string {
	return fmt.Sprintf(`*%s%04x`, ExpandVendorID(vendorID), productID)
}

// DeviceID is the primary id string reported for a logical device,
// built from its card's own (isolation-derived) vendor/product, not the
// logical device's own LOGDEVID vendor/product (spec §6, §9).
func DeviceID(dev *device.LogicalDevice) string {
	return deviceIDString(dev.CardVendorID, dev.CardProductID)
}

// HardwareIDs is the hardware-id list: the card id first, then the
// logical device's own `*VVVPPPP` compatible-style id (spec §6: "card id
// then logical-device id").
func HardwareIDs(dev *device.LogicalDevice) []string {
	return []string{
		deviceIDString(dev.CardVendorID, dev.CardProductID),
		compatibleIDString(dev.VendorID, dev.ProductID),
	}
}

// CompatibleIDs formats every COMPATDEVID entry a logical device carries
// as a `*VVVPPPP` string (spec §6).
func CompatibleIDs(dev *device.LogicalDevice) []string {
	out := make([]string, len(dev.CompatibleIDs))
	for i, id := range dev.CompatibleIDs {
		out[i] = compatibleIDString(id.VendorID, id.ProductID)
	}
	return out
}

// InstanceID is the hex card serial number (spec §6), shared by every
// logical device on the same card: siblings are disambiguated by their
// differing device/hardware ids, not by instance id.
func InstanceID(dev *device.LogicalDevice) string {
	return fmt.Sprintf("%08X", dev.CardSerial)
}

// Read Data Port pseudo-device identity (spec §6, §9): the Read Port is
// not a logical device parsed from a tag stream, but the Enumerator
// still gives it a PnP-style identity so the host can create a child
// device node for it like any other.
const (
	ReadPortHardwareID = `ISAPNP\ReadDataPort`
	ReadPortInstanceID = "0"
)
