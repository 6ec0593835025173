//go:build linux

package portio

import (
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// RealPortIO drives actual ISA I/O ports through /dev/port, the Linux
// pseudo-device that exposes the processor's I/O address space as a
// byte-addressable file. This mirrors the teacher's
// core_engine/network.TapDevice: open a fixed pseudo-device node with
// syscall.Open, then drive it through golang.org/x/sys/unix rather than
// raw syscall numbers.
//
// A host kernel driver would issue inb/outb directly; a userspace Go
// process cannot without CGO or inline assembly, so /dev/port positioned
// reads/writes are the idiomatic substitute. The file must be opened
// read-write and the process needs CAP_SYS_RAWIO (or to be root).
type RealPortIO struct {
	fd int
}

// NewRealPortIO opens /dev/port for positioned byte-granularity access.
func NewRealPortIO() (*RealPortIO, error) {
	fd, err := unix.Open("/dev/port", unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("portio: failed to open /dev/port: %w", err)
	}
	return &RealPortIO{fd: fd}, nil
}

// Close releases the underlying /dev/port file descriptor.
func (r *RealPortIO) Close() error {
	if r.fd == 0 {
		return nil
	}
	err := unix.Close(r.fd)
	r.fd = 0
	return err
}

func (r *RealPortIO) readAt(addr Address) byte {
	var buf [1]byte
	n, err := unix.Pread(r.fd, buf[:], int64(addr))
	if err != nil || n != 1 {
		// A failed raw port read has no sane recovery at this layer;
		// the caller (isolation/tags/currentres) already treats a
		// non-responding card as "no data" via its own timeouts, so we
		// surface that same shape here instead of panicking.
		return 0xFF
	}
	return buf[0]
}

func (r *RealPortIO) writeAt(addr Address, val byte) {
	buf := [1]byte{val}
	_, _ = unix.Pwrite(r.fd, buf[:], int64(addr))
}

func (r *RealPortIO) WriteAddr(val byte) { r.writeAt(AddressPort, val) }
func (r *RealPortIO) WriteData(val byte) { r.writeAt(WriteDataPort, val) }
func (r *RealPortIO) ReadData(port Address) byte { return r.readAt(port) }

func (r *RealPortIO) WriteByte(addr byte, val byte) {
	r.WriteAddr(addr)
	r.WriteData(val)
}

func (r *RealPortIO) ReadByte(port Address, addr byte) byte {
	r.WriteAddr(addr)
	return r.ReadData(port)
}

// Stall sleeps for at least micros microseconds. ISA settling times
// are small enough (single-digit microseconds) that a sleep-based stall
// is both simpler and more than adequate; the teacher's device code has
// no equivalent (a hypervisor vCPU never needs to stall host time), so
// this follows spec §4.1's "≥1µs per call is acceptable" directly.
func (r *RealPortIO) Stall(micros uint32) {
	time.Sleep(time.Duration(micros) * time.Microsecond)
}
