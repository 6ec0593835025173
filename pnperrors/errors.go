// Package pnperrors defines the error taxonomy shared by every package in
// this module, so that callers at any layer can test with errors.Is
// regardless of which package actually raised the failure.
package pnperrors

import "errors"

// Sentinel errors from spec §7. Wrap these with fmt.Errorf("...: %w", Err)
// to attach context; never redefine them per package.
var (
	// InvalidTag marks a malformed tag header: a 0x00 header byte, or a
	// large tag whose length reads 0xFFFF.
	InvalidTag = errors.New("isapnp: invalid resource-data tag")

	// BufferOverflow marks a card's resource-data stream exceeding the
	// TagReader's fixed buffer capacity (0x1000 bytes).
	BufferOverflow = errors.New("isapnp: resource-data buffer overflow")

	// ChecksumMismatch marks an isolation pass whose received checksum
	// byte does not match the LFSR checksum computed over the first 64
	// identifier bits. Isolation also returns it when a candidate port
	// shows activity but no card ever answers 0x55AA (another device
	// occupies the port). Non-fatal: the caller retries at another port.
	ChecksumMismatch = errors.New("isapnp: isolation checksum mismatch")

	// OutOfMemory marks an allocation failure during parse or
	// requirements-list construction. Propagates; partial records are
	// released by the caller.
	OutOfMemory = errors.New("isapnp: allocation failed")

	// ResourceConflict marks a host-arbitrated resource list this core
	// cannot apply (wrong count, wrong version, or otherwise malformed).
	ResourceConflict = errors.New("isapnp: arbitrated resource list rejected")

	// DeviceAbsent marks a previously-present logical device that did
	// not respond during a probe. Local only: the PRESENT flag is
	// cleared and the omission surfaces on the next relations query.
	DeviceAbsent = errors.New("isapnp: device absent on rescan")

	// HostRelayed marks a request this core does not handle and has
	// forwarded unchanged to the next driver in the stack.
	HostRelayed = errors.New("isapnp: request relayed to next driver")
)
