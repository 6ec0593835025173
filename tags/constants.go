package tags

// Small-tag names (header bit7==0, name = bits 6..3, length = bits 2..0).
const (
	SmallLogDevID     byte = 0x01
	SmallCompatDevID  byte = 0x02
	SmallIRQ          byte = 0x04
	SmallDMA          byte = 0x05
	SmallStartDep     byte = 0x06
	SmallEndDep       byte = 0x07
	SmallIOPort       byte = 0x08
	SmallFixedIO      byte = 0x09
	SmallEnd          byte = 0x0F
)

// Large-tag names (header bit7==1, name = bits 6..0).
const (
	LargeMemRange        byte = 0x01
	LargeANSIString      byte = 0x02
	LargeMem32Range      byte = 0x05
	LargeFixedMem32Range byte = 0x06
)

// MaxBufferSize is the largest resource-data stream TagReader will
// accept for one card (spec §7 BufferOverflow).
const MaxBufferSize = 0x1000

// MaxLogicalDevices bounds the LDN search space a caller will probe
// (spec §4.9: "For each LDN 0..max_ldn present in the buffer").
const MaxLogicalDevices = 8
