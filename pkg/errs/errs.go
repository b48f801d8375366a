// Package errs defines the failure taxonomy shared by the storage pool, the
// dispatcher and the communication operations.
package errs

import "github.com/cockroachdb/errors"

var (
	// ErrConnection: the pool cannot be built or cannot hand out a connection.
	ErrConnection = errors.New("connection error")
	// ErrDispatch: a unit of work panicked or could not be scheduled.
	ErrDispatch = errors.New("dispatch failure")
	// ErrStorage: a statement failed against a checked-out connection.
	ErrStorage = errors.New("storage error")
	// ErrInternal is the only failure visible past the operation boundary.
	ErrInternal = errors.New("internal error")
)

// Connection marks err as a ConnectionError.
func Connection(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrap(err, msg), ErrConnection)
}

// Storage marks err as a StorageError.
func Storage(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrap(err, msg), ErrStorage)
}

// Dispatch marks err as a DispatchFailure.
func Dispatch(err error, msg string) error {
	if err == nil {
		return nil
	}
	return errors.Mark(errors.Wrap(err, msg), ErrDispatch)
}

// Internal collapses any failure into the opaque internal signal. The cause is
// kept in the chain for logging but Kind reports only ErrInternal.
func Internal(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, ErrInternal)
}

// Kind returns the taxonomy sentinel err was marked with, or nil.
func Kind(err error) error {
	for _, k := range []error{ErrInternal, ErrConnection, ErrDispatch, ErrStorage} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
