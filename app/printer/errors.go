package printer

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConnected is returned when a command is sent without an open device
	ErrNotConnected = errors.New("printer not connected")

	// ErrNoOutputEndpoint is returned when the device exposes no bulk-out endpoint
	ErrNoOutputEndpoint = errors.New("printer has no usable output endpoint")

	// ErrAccessDenied is returned when the operating system or another driver
	// holds the device. Switching to generic printing usually resolves it.
	ErrAccessDenied = errors.New("access denied to printer: another driver may be using it, switch to generic printing")

	// ErrNoDeviceFound is returned when no allow-listed printer is attached
	ErrNoDeviceFound = errors.New("no compatible thermal printer found")

	// ErrDrawerUnsupported is returned when a drawer pulse is requested on a
	// generic printer
	ErrDrawerUnsupported = errors.New("cash drawer requires a thermal printer; the configured printer is generic")
)

// TransferError wraps a failure of the underlying transport
type TransferError struct {
	Op  string
	Err error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("printer %s failed: %v", e.Op, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}
