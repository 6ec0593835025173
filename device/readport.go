package device

import "example.com/isapnp/portio"

// ReadPortDevice represents the bus-wide Read Data Port resource. Unlike
// a logical device, there is at most one per bus, and it can migrate
// between buses (spec §9: "the Read Data Port is a globally-shared
// singleton resource passed between buses on removal").
type ReadPortDevice struct {
	Bus     *Bus
	Address portio.Address
	Started bool

	// NeedRebalance reports whether the host must requery this bus's
	// resource requirements before the Read Port can finish starting
	// (spec §4.9 step 2, spec §5: "NEED_REBALANCE is only meaningful on
	// the Read Port" — LogicalDevice carries no equivalent field).
	NeedRebalance bool

	// ChildHandle is the host-opaque handle for the Read Port's own
	// child-device representation, if the host models it as one.
	ChildHandle any
}
