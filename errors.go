package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrAlreadyCapturing is returned by Start when a producer loop is
	// already running for the session.
	ErrAlreadyCapturing = errors.New("capture already in progress")

	// ErrAlreadyStopped is returned by Stop when no loop is running.
	ErrAlreadyStopped = errors.New("capture already stopped")

	// ErrDimensionsUnavailable is returned when the source cannot
	// report its frame size.
	ErrDimensionsUnavailable = errors.New("source cannot report frame dimensions")

	// ErrSendFailed is returned by the loop when the frame receiver
	// has been closed and no consumer remains.
	ErrSendFailed = errors.New("frame receiver is gone")

	// ErrReceiverClosed is returned by Receiver.Recv after the
	// receiver or its session has been closed.
	ErrReceiverClosed = errors.New("frame receiver closed")

	// ErrSessionClosed is returned when operating on a closed session.
	ErrSessionClosed = errors.New("capture session closed")

	// ErrNotSupported is returned on platforms without a capture
	// backend.
	ErrNotSupported = errors.New("capture not supported on this platform")
)

// AcquisitionError is a fatal platform failure during frame
// acquisition, copy, map or metadata query. It terminates the capture
// loop; the session must be restarted explicitly.
type AcquisitionError struct {
	// Op names the native call that failed.
	Op string
	// HResult is the raw Windows HRESULT, zero when Err carries the
	// cause instead.
	HResult uint32
	// Err is an underlying error, if any.
	Err error
}

func (e *AcquisitionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("acquisition failed: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("acquisition failed: %s: HRESULT 0x%08X", e.Op, e.HResult)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// hresultError wraps a failed native call as a fatal AcquisitionError.
func hresultError(op string, hr uintptr) *AcquisitionError {
	return &AcquisitionError{Op: op, HResult: uint32(hr)}
}

// acquisitionError wraps an underlying error as a fatal AcquisitionError.
func acquisitionError(op string, err error) *AcquisitionError {
	return &AcquisitionError{Op: op, Err: err}
}
