package slots

import "errors"

var (
	// ErrInvalidHandle is wrapped by the panic raised when a handle does not
	// name an occupied cell.
	ErrInvalidHandle = errors.New("slots: invalid handle")

	// ErrDoubleRelease is wrapped by the panic raised when a handle is
	// released again while its first release is still deferred.
	ErrDoubleRelease = errors.New("slots: handle already released")
)
