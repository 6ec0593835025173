// Package portio abstracts byte/word reads and writes to fixed ISA I/O
// port addresses, plus the microsecond stall ISA bus settling needs.
// Every other package in this module talks to hardware only through the
// PortIO interface, never through a raw syscall, so that isolation,
// tag reading and resource reading can all be driven by the same
// scripted fake in tests.
package portio

import "fmt"

// Address is an ISA I/O port address. It is a distinct type from any
// memory address on purpose (spec §9): nothing in this module should be
// able to pass a guest-physical or host-virtual address where a port
// number is expected, even though both are ultimately integers.
type Address uint16

// Well-known, architecturally fixed ISA PnP ports (spec §6). These are
// not negotiable and never change at runtime.
const (
	AddressPort   Address = 0x279 // write-only: selects a card config register
	WriteDataPort Address = 0xA79 // write-only: writes the selected register
)

// CandidateReadPorts is the standard list of Read Data Port addresses a
// caller tries in order during isolation (spec §4.2 Edge cases). Every
// entry is the 4-byte-aligned base of a candidate window (port&3 == 0);
// Isolate and IsolateAny read from the address exactly as given, with no
// offset added within the window.
var CandidateReadPorts = []Address{0x274, 0x3E4, 0x204, 0x2E4, 0x354, 0x2F4}

// PortIO is the narrow hardware seam every other package depends on.
// Implementations must be synchronous; callers may only invoke these
// methods at a scheduling level that permits blocking I/O (spec §5).
type PortIO interface {
	// WriteAddr writes to the fixed address-select port (0x279).
	WriteAddr(val byte)
	// WriteData writes to the fixed write-data port (0xA79).
	WriteData(val byte)
	// ReadData reads a byte from the given (arbitrated) Read Data Port.
	ReadData(port Address) byte

	// WriteByte selects register addr via WriteAddr, then writes val via
	// WriteData. This is the "select-then-write" pattern every per-card
	// configuration register access uses.
	WriteByte(addr byte, val byte)
	// ReadByte selects register addr via WriteAddr, then reads a byte
	// back from the Read Data Port. This is the "select-then-read"
	// pattern every per-card configuration register access uses.
	ReadByte(port Address, addr byte) byte

	// Stall yields for at least micros microseconds. ISA settling only
	// needs "at least", never "exactly" — callers must not depend on
	// precise timing.
	Stall(micros uint32)
}

// ReadWord reads a 16-bit register as two consecutive byte reads at addr
// and addr+1, most-significant byte first. The 16-bit resource registers
// in this module (I/O base, 24-bit memory base and limit) are read this
// way, and 32-bit memory base and limit through ReadDoubleWord; there is
// no native word-width port primitive on the ISA PnP card side.
func ReadWord(p PortIO, port Address, addr byte) uint16 {
	hi := p.ReadByte(port, addr)
	lo := p.ReadByte(port, addr+1)
	return uint16(hi)<<8 | uint16(lo)
}

// WriteWord is the write-side counterpart of ReadWord.
func WriteWord(p PortIO, addr byte, val uint16) {
	p.WriteByte(addr, byte(val>>8))
	p.WriteByte(addr+1, byte(val))
}

// ReadDoubleWord reads a 32-bit register as four consecutive byte reads
// starting at addr, most-significant byte first.
func ReadDoubleWord(p PortIO, port Address, addr byte) uint32 {
	var v uint32
	for i := byte(0); i < 4; i++ {
		v = v<<8 | uint32(p.ReadByte(port, addr+i))
	}
	return v
}

// String renders a port address the way the teacher renders register
// addresses in its debug output: "0x%x".
func (a Address) String() string {
	return fmt.Sprintf("0x%x", uint16(a))
}
