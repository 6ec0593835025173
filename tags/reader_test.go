package tags_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"example.com/isapnp/portio"
	"example.com/isapnp/tags"
)

// Mirrors tags.regStatus/tags.regResourceData: the status/resource-data
// register pair a woken card streams its tag data through.
const (
	regStatus       = 0x05
	regResourceData = 0x04
)

func TestReadBuffersOneLogicalDeviceToEnd(t *testing.T) {
	p := portio.NewMockPortIO()
	p.RegReads[regStatus] = 0x01 // always byte-ready: no timeout polling needed.

	p.QueueRegReads(regResourceData,
		0x0D, 0x12, 0x34, 0x56, 0x78, 0x00, // LOGDEVID, length 5
		0x22, 0x08, 0x00, // IRQ, length 2, mask=0x0008 (IRQ3)
		0x79, 0x00, // END, length 1, checksum byte
	)

	buf, ldCount, err := tags.Read(p, 0x3E4)
	require.NoError(t, err)
	assert.Equal(t, 1, ldCount)
	assert.Equal(t, []byte{
		0x0D, 0x12, 0x34, 0x56, 0x78, 0x00,
		0x22, 0x08, 0x00,
		0x79, 0x00,
	}, buf)
}

func TestReadCountsMultipleLogicalDevices(t *testing.T) {
	p := portio.NewMockPortIO()
	p.RegReads[regStatus] = 0x01

	p.QueueRegReads(regResourceData,
		0x0D, 0x12, 0x34, 0x56, 0x78, 0x00, // LOGDEVID 0
		0x0D, 0xAB, 0xCD, 0xEF, 0x01, 0x00, // LOGDEVID 1
		0x79, 0x00, // END
	)

	_, ldCount, err := tags.Read(p, 0x3E4)
	require.NoError(t, err)
	assert.Equal(t, 2, ldCount)
}

func TestReadLargeTag(t *testing.T) {
	p := portio.NewMockPortIO()
	p.RegReads[regStatus] = 0x01

	// Large ANSI string tag (name=0x02), length=3, payload "Hi!".
	p.QueueRegReads(regResourceData,
		0x82, 0x03, 0x00, 'H', 'i', '!',
		0x79, 0x00,
	)

	buf, _, err := tags.Read(p, 0x3E4)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x82, 0x03, 0x00, 'H', 'i', '!', 0x79, 0x00}, buf)
}

func TestReadRejectsZeroHeader(t *testing.T) {
	p := portio.NewMockPortIO()
	p.RegReads[regStatus] = 0x01
	p.QueueRegReads(regResourceData, 0x00)

	_, _, err := tags.Read(p, 0x3E4)
	assert.Error(t, err)
}

func TestReadTimesOutToSyntheticEnd(t *testing.T) {
	// Status bit never sets: readNextByte gives up and returns the
	// synthetic 0xFF for every byte, including the header. 0xFF has
	// bit7 set, so it reads as a large tag whose two length bytes are
	// also synthetic 0xFF, giving length 0xFFFF -- the explicit
	// InvalidTag case.
	p := portio.NewMockPortIO()

	_, _, err := tags.Read(p, 0x3E4)
	require.Error(t, err)
}
