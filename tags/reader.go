package tags

import (
	"fmt"

	"example.com/isapnp/pnperrors"
	"example.com/isapnp/portio"
)

// Per-card configuration registers used while streaming resource data
// (spec §6): status (bit 0 = byte ready) and resource-data.
const (
	regStatus       byte = 0x05
	regResourceData byte = 0x04
)

// maxStatusPolls and statusPollMicros bound how long TagReader waits for
// a card to present the next resource-data byte (spec §4.3: "≤ 20 polls
// of 1 ms each").
const (
	maxStatusPolls   = 20
	statusPollMicros = 1000
)

// readNextByte polls the status register for byte-ready, then reads the
// resource-data register. If the card never raises the ready bit, it
// returns the synthetic 0xFF spec §4.3 calls for, which downstream
// callers treat as end-of-stream or a bad tag.
func readNextByte(p portio.PortIO, port portio.Address) byte {
	for i := 0; i < maxStatusPolls; i++ {
		if p.ReadByte(port, regStatus)&0x01 != 0 {
			return p.ReadByte(port, regResourceData)
		}
		p.Stall(statusPollMicros)
	}
	return 0xFF
}

// SkipIdentifier consumes and discards the 9-byte serial identifier a
// newly-woken card streams off the Read Data Port before its tag
// stream, using the same status/resource-data handshake as Read itself
// (spec §4.9 Probe step 2; original hardware.c's IsaHwFillDeviceList:
// "Wake(Csn); Peek(&Identifier, 9); ReadTags(...)" — isolation already
// validated and recorded this identifier, so the bytes themselves are
// not needed again here).
func SkipIdentifier(p portio.PortIO, port portio.Address) {
	for i := 0; i < 9; i++ {
		readNextByte(p, port)
	}
}

// Read streams one card's resource-data tag stream into a buffer,
// splitting small and large tags by their header byte (spec §4.3). The
// caller must already have woken the target CSN. It returns the
// buffered bytes (header-to-END, inclusive) and the number of LOGDEVID
// tags seen, which bounds the LDN indices TagParser can be invoked
// with.
func Read(p portio.PortIO, port portio.Address) (buf []byte, logicalDeviceCount int, err error) {
	buf = make([]byte, 0, 256)

	appendByte := func(b byte) error {
		if len(buf) >= MaxBufferSize {
			return fmt.Errorf("tags: resource-data stream exceeds %#x bytes: %w", MaxBufferSize, pnperrors.BufferOverflow)
		}
		buf = append(buf, b)
		return nil
	}

	for {
		header := readNextByte(p, port)
		if header == 0x00 {
			return buf, logicalDeviceCount, fmt.Errorf("tags: zero tag header: %w", pnperrors.InvalidTag)
		}

		isLarge := header&0x80 != 0
		var name byte
		var length int

		if isLarge {
			name = header & 0x7F
			lenLo := readNextByte(p, port)
			lenHi := readNextByte(p, port)
			length = int(lenHi)<<8 | int(lenLo)
			if length == 0xFFFF {
				return buf, logicalDeviceCount, fmt.Errorf("tags: large tag length 0xFFFF: %w", pnperrors.InvalidTag)
			}
			if err := appendByte(header); err != nil {
				return buf, logicalDeviceCount, err
			}
			if err := appendByte(lenLo); err != nil {
				return buf, logicalDeviceCount, err
			}
			if err := appendByte(lenHi); err != nil {
				return buf, logicalDeviceCount, err
			}
		} else {
			name = (header >> 3) & 0x0F
			length = int(header & 0x07)
			if err := appendByte(header); err != nil {
				return buf, logicalDeviceCount, err
			}
		}

		if !isLarge && name == SmallEnd && length == 1 {
			end := readNextByte(p, port)
			if err := appendByte(end); err != nil {
				return buf, logicalDeviceCount, err
			}
			return buf, logicalDeviceCount, nil
		}

		if !isLarge && name == SmallLogDevID {
			logicalDeviceCount++
		}

		for i := 0; i < length; i++ {
			if err := appendByte(readNextByte(p, port)); err != nil {
				return buf, logicalDeviceCount, err
			}
		}
	}
}
