// Package isolation implements the ISA PnP bit-serial isolation protocol:
// given a candidate Read Data Port, it finds every card listening on the
// bus and assigns each a unique Card Select Number (CSN).
package isolation

import (
	"fmt"

	"example.com/isapnp/pnperrors"
	"example.com/isapnp/portio"
)

// Card-level configuration register addresses used before and during
// isolation. These are the low end of the register window spec §6
// describes ("0x02 config-control, 0x03 wake, ..."); 0x00 and 0x01 are
// used only during isolation itself and are not listed there because a
// card only responds to them before it has been assigned a CSN.
const (
	regSetReadDataPort byte = 0x00
	regSerialIsolation byte = 0x01
	regConfigControl   byte = 0x02
	regWake            byte = 0x03
	regCSN             byte = 0x06
)

// Config Control (0x02) command bits.
const (
	ccResetCSN   byte = 0x04
	ccWaitForKey byte = 0x02
)

// lfsrSeed is the 8-bit LFSR seed spec §4.2 fixes for both the
// initiation key and the isolation checksum.
const lfsrSeed byte = 0x6A

// nextLFSR steps the 8-bit isolation LFSR by one bit, per spec §4.2:
// next = (lfsr>>1) | (((lfsr ^ (lfsr>>1)) ^ input_bit) << 7).
func nextLFSR(lfsr byte, inputBit byte) byte {
	feedback := (lfsr ^ (lfsr >> 1)) ^ inputBit
	return (lfsr >> 1) | (feedback << 7)
}

// checksum recomputes the 8-bit LFSR checksum over the first 64 bits of
// a card's serial identifier, per spec §4.2 step 5.
func checksum(bits [72]byte) byte {
	lfsr := lfsrSeed
	for i := 0; i < 64; i++ {
		lfsr = nextLFSR(lfsr, bits[i])
	}
	return lfsr
}

// Identifier is a card's 72-bit serial identifier (spec §3).
type Identifier struct {
	VendorID  uint16
	ProductID uint16
	Serial    uint32
	Checksum  uint8
}

func identifierFromBits(bits [72]byte) Identifier {
	var raw [9]byte
	for i := 0; i < 72; i++ {
		if bits[i] != 0 {
			raw[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return Identifier{
		VendorID:  uint16(raw[0])<<8 | uint16(raw[1]),
		ProductID: uint16(raw[2])<<8 | uint16(raw[3]),
		Serial:    uint32(raw[4])<<24 | uint32(raw[5])<<16 | uint32(raw[6])<<8 | uint32(raw[7]),
		Checksum:  raw[8],
	}
}

// Card pairs an isolated card's identifier with the CSN isolation
// assigned it.
type Card struct {
	CSN        uint8
	Identifier Identifier
}

// sendKey issues the ISA PnP initiation key: two 0x00 writes followed by
// 32 successive LFSR values (input bit always 0), all written straight
// to the address port with no register-select semantics — a card that
// has not yet seen the key pattern does not interpret address-port
// writes as register selection at all.
func sendKey(p portio.PortIO) {
	p.WriteAddr(0x00)
	p.WriteAddr(0x00)
	lfsr := lfsrSeed
	for i := 0; i < 32; i++ {
		p.WriteAddr(lfsr)
		lfsr = nextLFSR(lfsr, 0)
	}
}

func waitForKey(p portio.PortIO) {
	p.WriteByte(regConfigControl, ccWaitForKey)
}

func resetCSN(p portio.PortIO) {
	p.WriteByte(regConfigControl, ccResetCSN)
}

func wake(p portio.PortIO, csn byte) {
	p.WriteByte(regWake, csn)
}

func setReadDataPort(p portio.PortIO, port portio.Address) {
	p.WriteByte(regSetReadDataPort, byte(port>>2))
}

func enterIsolationState(p portio.PortIO) {
	p.WriteAddr(regSerialIsolation)
}

// SendKey re-issues the ISA PnP initiation key to unlock the bus for
// register access (spec §4.2 step 1). Isolate always leaves the bus
// locked in wait-for-key on return (its deferred waitForKey); callers
// that need to address a card by CSN afterwards — the Probe step that
// wakes each isolated card in turn — must send the key again first
// (original hardware.c's IsaHwFillDeviceList: "WaitForKey(); SendKey();"
// before the per-card Wake/Peek/ReadTags loop).
func SendKey(p portio.PortIO) {
	sendKey(p)
}

// Wake addresses the card with the given CSN so subsequent register and
// Read Data Port accesses target it (spec §4.2 step 1, spec §6 register
// 0x03).
func Wake(p portio.PortIO, csn byte) {
	wake(p, csn)
}

// Isolate drives the full isolation protocol on a candidate Read Data
// Port (spec §4.2). It returns the cards isolated (possibly none), each
// assigned a CSN starting at 1. A non-nil error means the
// caller should retry at a different candidate port: either the
// checksum never validated, or another device already occupies this
// port (seen_life without seen_55aa while no card has yet been
// assigned).
func Isolate(p portio.PortIO, port portio.Address) ([]Card, error) {
	sendKey(p)

	resetCSN(p)
	p.Stall(1)
	p.Stall(1)

	waitForKey(p)
	sendKey(p)
	wake(p, 0x00)
	setReadDataPort(p, port)
	p.Stall(1)

	defer waitForKey(p) // spec §4.2 step 9: always lock the bus on exit.

	var cards []Card
	for {
		enterIsolationState(p)
		p.Stall(1)

		var bits [72]byte
		seen55aa := false
		seenLife := false

		for i := 0; i < 72; i++ {
			hi := p.ReadData(port)
			p.Stall(1)
			lo := p.ReadData(port)
			p.Stall(1)

			pair := uint16(hi)<<8 | uint16(lo)
			if pair != 0xFFFF {
				seenLife = true
			}
			if pair == 0x55AA {
				seen55aa = true
				bits[i] = 1
			}
		}

		if !seen55aa {
			if len(cards) == 0 && seenLife {
				return cards, fmt.Errorf("isolation: port %s is occupied by another device: %w", port, pnperrors.ChecksumMismatch)
			}
			return cards, nil
		}

		ident := identifierFromBits(bits)
		if checksum(bits) != ident.Checksum {
			return cards, fmt.Errorf("isolation: checksum mismatch on port %s: %w", port, pnperrors.ChecksumMismatch)
		}

		csn := byte(len(cards) + 1)
		cards = append(cards, Card{CSN: csn, Identifier: ident})
		p.WriteByte(regCSN, csn)
		wake(p, 0x00)
	}
}

// IsolateAny tries each of the given candidate ports in order, returning
// the first one that yields at least one card. It is the Enumerator's
// standard entry point (spec §4.2 Edge cases).
func IsolateAny(p portio.PortIO, candidates []portio.Address) (portio.Address, []Card, error) {
	var lastErr error
	for _, candidate := range candidates {
		cards, err := Isolate(p, candidate)
		if err != nil {
			lastErr = err
			continue
		}
		if len(cards) > 0 {
			return candidate, cards, nil
		}
		lastErr = nil
	}
	if lastErr != nil {
		return 0, nil, lastErr
	}
	return 0, nil, nil
}
