package tags

import (
	"encoding/binary"
	"fmt"
	"strings"

	"example.com/isapnp/device"
	"example.com/isapnp/pnperrors"
)

// tagIterator walks a buffered resource-data stream one tag at a time,
// mirroring the split TagReader already made between header, length and
// payload (spec §4.3/§4.4).
type tagIterator struct {
	buf []byte
	pos int
}

func (it *tagIterator) next() (isLarge bool, name byte, payload []byte, ok bool) {
	if it.pos >= len(it.buf) {
		return false, 0, nil, false
	}
	header := it.buf[it.pos]
	it.pos++

	if header&0x80 != 0 {
		if it.pos+2 > len(it.buf) {
			return false, 0, nil, false
		}
		length := int(it.buf[it.pos]) | int(it.buf[it.pos+1])<<8
		it.pos += 2
		if it.pos+length > len(it.buf) {
			return false, 0, nil, false
		}
		payload = it.buf[it.pos : it.pos+length]
		it.pos += length
		return true, header & 0x7F, payload, true
	}

	name = (header >> 3) & 0x0F
	length := int(header & 0x07)
	if it.pos+length > len(it.buf) {
		return false, 0, nil, false
	}
	payload = it.buf[it.pos : it.pos+length]
	it.pos += length
	return false, name, payload, true
}

// le16/le32 decode the little-endian integers the small and large tag
// payloads use throughout (spec §4.4).
func le16(b []byte) uint16 { return binary.LittleEndian.Uint16(b) }
func le32(b []byte) uint32 { return binary.LittleEndian.Uint32(b) }

// Parse walks a buffered resource-data stream (as produced by Read) and
// populates dev with the fields belonging to logical device index ldn
// (spec §4.4). The caller must have already set dev.CSN, dev.CardVendorID,
// dev.CardProductID and dev.CardSerial; Parse fills in dev.LDN and
// everything the tag stream itself describes.
//
// It returns pnperrors.DeviceAbsent if the stream does not contain an
// LDNth LOGDEVID tag.
func Parse(buf []byte, ldn int, dev *device.LogicalDevice) error {
	it := tagIterator{buf: buf}

	// Tags before the first LOGDEVID (or the entire stream, for a
	// single-function card with no LOGDEVID tag at all) describe logical
	// device 0 implicitly; the first LOGDEVID tag seen does not advance
	// past it; every one after that starts a new logical device (spec
	// §4.4: ANSISTRING "only before first LOGDEVID or in LDN 0").
	currentLDN := 0
	seenLogDevID := false
	active := ldn == 0
	found := active

	inAlternatives := false
	altSlot := -1 // -1 while not inside a dependent-function set, or when the 9th+ set is being discarded (spec §4.4 tie-break)

	for {
		isLarge, name, payload, ok := it.next()
		if !ok {
			break
		}

		if !isLarge && name == SmallEnd {
			break
		}

		if !isLarge && name == SmallLogDevID {
			if seenLogDevID {
				currentLDN++
			}
			seenLogDevID = true
			active = currentLDN == ldn
			inAlternatives = false
			altSlot = -1
			if active {
				found = true
				dev.LDN = uint8(ldn)
				// LOGDEVID is 6 bytes (vendor+product+2 flag bytes) or 7
				// (plus a vendor-defined byte we have nowhere to put and
				// so ignore); only the low flags byte is kept (spec §4.4).
				if len(payload) >= 6 {
					dev.VendorID = le16BE(payload[0:2])
					dev.ProductID = le16BE(payload[2:4])
					dev.LogDevFlags = payload[4]
				}
			}
			continue
		}

		if !active {
			continue
		}

		switch {
		case !isLarge && name == SmallCompatDevID:
			if len(payload) >= 4 {
				dev.CompatibleIDs = append(dev.CompatibleIDs, device.CompatibleId{
					VendorID:  le16BE(payload[0:2]),
					ProductID: le16BE(payload[2:4]),
				})
			}

		case !isLarge && name == SmallIRQ:
			if len(payload) < 2 {
				continue
			}
			info := byte(0x01)
			if len(payload) >= 3 {
				info = payload[2]
			}
			irq := device.IRQDescriptor{Mask: le16(payload[0:2]), Information: info}
			storeIRQ(dev, inAlternatives, altSlot, irq)

		case !isLarge && name == SmallDMA:
			if len(payload) < 2 {
				continue
			}
			dma := device.DMADescriptor{Mask: payload[0], Information: payload[1]}
			storeDMA(dev, inAlternatives, altSlot, dma)

		case !isLarge && name == SmallStartDep:
			priority := byte(0x01) // Acceptable, the spec-defined default when the byte is omitted.
			if len(payload) >= 1 {
				priority = payload[0]
			}
			if dev.Alternatives == nil {
				dev.Alternatives = &device.Alternatives{}
			}
			inAlternatives = true
			if dev.Alternatives.Count < device.MaxAlternatives {
				altSlot = dev.Alternatives.Count
				dev.Alternatives.Priority[altSlot] = priority
				dev.Alternatives.Count++
			} else {
				altSlot = -1 // beyond the 8th dependent-function set: parse but discard (spec §4.4 tie-break).
			}

		case !isLarge && name == SmallEndDep:
			inAlternatives = false
			altSlot = -1

		case !isLarge && name == SmallIOPort:
			if len(payload) < 7 {
				continue
			}
			io := device.IODescriptor{
				Information: payload[0],
				Min:         le16(payload[1:3]),
				Max:         le16(payload[3:5]),
				Align:       payload[5],
				Length:      payload[6],
			}
			storeIO(dev, inAlternatives, altSlot, io)

		case !isLarge && name == SmallFixedIO:
			if len(payload) < 3 {
				continue
			}
			base := le16(payload[0:2])
			io := device.IODescriptor{Min: base, Max: base, Align: 1, Length: payload[2]}
			storeIO(dev, inAlternatives, altSlot, io)

		case isLarge && name == LargeANSIString:
			dev.FriendlyName = strings.TrimRight(string(payload), " \x00")

		case isLarge && name == LargeMemRange:
			if len(payload) < 9 {
				continue
			}
			mem := device.MemDescriptor{
				Information: payload[0],
				Min:         uint32(le16(payload[1:3])) << 8,
				Max:         uint32(le16(payload[3:5])) << 8,
				Align:       le16(payload[5:7]),
				Length:      uint32(le16(payload[7:9])) << 8,
			}
			storeMem(dev, inAlternatives, altSlot, mem)

		case isLarge && name == LargeMem32Range:
			if len(payload) < 17 {
				continue
			}
			mem := device.Mem32Descriptor{
				Information: payload[0],
				Min:         le32(payload[1:5]),
				Max:         le32(payload[5:9]),
				Align:       le32(payload[9:13]),
				Length:      le32(payload[13:17]),
			}
			storeMem32(dev, inAlternatives, altSlot, mem)

		case isLarge && name == LargeFixedMem32Range:
			if len(payload) < 9 {
				continue
			}
			base := le32(payload[1:5])
			mem := device.Mem32Descriptor{
				Information: payload[0],
				Min:         base,
				Max:         base,
				Align:       1,
				Length:      le32(payload[5:9]),
			}
			storeMem32(dev, inAlternatives, altSlot, mem)

		default:
			// Unrecognized tag: the iterator has already skipped its
			// payload, nothing more to do (spec §4.4 "unknown-tag-skip").
		}
	}

	if !found {
		return fmt.Errorf("tags: no LOGDEVID tag for LDN %d: %w", ldn, pnperrors.DeviceAbsent)
	}
	return nil
}

// le16BE decodes the big-endian compressed vendor/product halves LOGDEVID
// and COMPATDEVID use, matching the encoding of a card's own isolation
// identifier (spec §3).
func le16BE(b []byte) uint16 { return uint16(b[0])<<8 | uint16(b[1]) }

func storeIRQ(dev *device.LogicalDevice, inAlternatives bool, altSlot int, irq device.IRQDescriptor) {
	if inAlternatives {
		if altSlot >= 0 {
			dev.Alternatives.Irq[altSlot] = irq
			dev.Alternatives.IrqPresent[altSlot] = true
		}
		return
	}
	if dev.IrqCount < device.MaxIRQ {
		dev.Irq[dev.IrqCount] = irq
		dev.IrqCount++
	}
}

func storeDMA(dev *device.LogicalDevice, inAlternatives bool, altSlot int, dma device.DMADescriptor) {
	if inAlternatives {
		if altSlot >= 0 {
			dev.Alternatives.Dma[altSlot] = dma
			dev.Alternatives.DmaPresent[altSlot] = true
		}
		return
	}
	if dev.DmaCount < device.MaxDMA {
		dev.Dma[dev.DmaCount] = dma
		dev.DmaCount++
	}
}

func storeIO(dev *device.LogicalDevice, inAlternatives bool, altSlot int, io device.IODescriptor) {
	if inAlternatives {
		if altSlot >= 0 {
			dev.Alternatives.Io[altSlot] = io
			dev.Alternatives.IoPresent[altSlot] = true
		}
		return
	}
	if dev.IoCount < device.MaxIO {
		dev.Io[dev.IoCount] = io
		dev.IoCount++
	}
}

func storeMem(dev *device.LogicalDevice, inAlternatives bool, altSlot int, mem device.MemDescriptor) {
	if inAlternatives {
		if altSlot >= 0 {
			dev.Alternatives.Mem[altSlot] = mem
			dev.Alternatives.MemPresent[altSlot] = true
		}
		return
	}
	if dev.MemCount < device.MaxMem {
		dev.Mem[dev.MemCount] = mem
		dev.MemCount++
	}
}

func storeMem32(dev *device.LogicalDevice, inAlternatives bool, altSlot int, mem device.Mem32Descriptor) {
	if inAlternatives {
		if altSlot >= 0 {
			dev.Alternatives.Mem32[altSlot] = mem
			dev.Alternatives.Mem32Present[altSlot] = true
		}
		return
	}
	if dev.Mem32Count < device.MaxMem32 {
		dev.Mem32[dev.Mem32Count] = mem
		dev.Mem32Count++
	}
}
