// Package hostif defines the boundary between this module and the
// external PnP manager/host that embeds it (spec §6, §9). Everything
// here is an interface: logging, resource arbitration and child-device
// lifecycle are all host responsibilities, never implemented in this
// module itself.
package hostif

import "example.com/isapnp/device"

// Severity classifies a log line's importance, mirroring the
// trace/debug/info/warn/error ladder the teacher's own
// network/tap_device.go comments assume a host logger provides.
type Severity int

const (
	SeverityTrace Severity = iota
	SeverityDebug
	SeverityInfo
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityTrace:
		return "TRACE"
	case SeverityDebug:
		return "DEBUG"
	case SeverityInfo:
		return "INFO"
	case SeverityWarn:
		return "WARN"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the host-provided logging seam. This module never writes to
// stdout/stderr or a file directly; every diagnostic goes through here
// so the host can route it into its own logging stack.
type Logger interface {
	Logf(severity Severity, format string, args ...any)
}

// NopLogger discards everything. Useful as a default in tests and as a
// zero-value-safe fallback.
type NopLogger struct{}

func (NopLogger) Logf(Severity, string, ...any) {}

// Arbiter is the host's resource arbiter: given a set of requirement
// options (built by the resources package), it decides which concrete
// resources a logical device actually gets. This module never performs
// arbitration itself — conflicting resource claims across devices and
// buses are the host's problem to solve (spec §6).
type Arbiter interface {
	// ArbitrateIO is asked to reserve one of the given fixed or
	// alternative I/O range options for dev, returning the chosen base
	// address. An error means no candidate could be satisfied.
	ArbitrateIO(dev *device.LogicalDevice, candidates []device.IODescriptor) (uint16, error)
	// ArbitrateIRQ reserves one IRQ vector out of the given options.
	ArbitrateIRQ(dev *device.LogicalDevice, candidates []uint8) (uint8, error)
	// ArbitrateDMA reserves one DMA channel out of the given options.
	ArbitrateDMA(dev *device.LogicalDevice, candidates []uint8) (uint8, error)
}

// ChildDeviceFactory lets the Enumerator ask the host to create, update
// or remove the child device node a logical device (or the Read Port
// itself) is represented by outside this module. The returned/consumed
// handle is opaque to this module (device.LogicalDevice.ChildHandle):
// it is whatever the host's own device tree uses to identify a node.
type ChildDeviceFactory interface {
	CreateChild(hardwareID string, compatibleIDs []string, instanceID string) (handle any, err error)
	RemoveChild(handle any) error
}

// RequestKind tags the minor-function codes a host PnP manager dispatch
// loop issues against a bus or device (spec §6/§9: "model minor-function
// codes as a tagged variant" rather than an untyped opcode byte).
type RequestKind int

const (
	RequestStartDevice RequestKind = iota
	RequestStopDevice
	RequestRemoveDevice
	RequestQueryDeviceRelations
	RequestQueryResourceRequirements
	RequestQueryResources
	RequestQueryID
	RequestQueryDeviceText
)

func (r RequestKind) String() string {
	switch r {
	case RequestStartDevice:
		return "StartDevice"
	case RequestStopDevice:
		return "StopDevice"
	case RequestRemoveDevice:
		return "RemoveDevice"
	case RequestQueryDeviceRelations:
		return "QueryDeviceRelations"
	case RequestQueryResourceRequirements:
		return "QueryResourceRequirements"
	case RequestQueryResources:
		return "QueryResources"
	case RequestQueryID:
		return "QueryID"
	case RequestQueryDeviceText:
		return "QueryDeviceText"
	default:
		return "Unknown"
	}
}

// Request is one dispatched host request against a specific logical
// device (or, for bus-scoped requests, a nil Device).
type Request struct {
	Kind   RequestKind
	Device *device.LogicalDevice
}
