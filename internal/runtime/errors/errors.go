// Package errors defines the sentinel errors shared across the upgo core.
// Callers are expected to test them with errors.Is; richer context is added
// at the call site with fmt.Errorf("%w: ...").
package errors

import (
	sterrors "errors"
	"fmt"
)

var (
	// ErrInvalidAddress reports a malformed URI component: an empty or
	// wildcard authority, a separator inside an authority, or a wildcard
	// sentinel where a concrete value is required.
	ErrInvalidAddress = sterrors.New("upgo: invalid address")

	// ErrRegistration reports a listener registration that could not be
	// stored, e.g. a malformed pattern.
	ErrRegistration = sterrors.New("upgo: listener registration failed")

	// ErrNotFound reports an unregister call for a (pattern, handle) pair
	// the registry does not hold.
	ErrNotFound = sterrors.New("upgo: listener not found")

	// ErrTransport reports a message that failed basic validity checks
	// before it reached any delivery path.
	ErrTransport = sterrors.New("upgo: invalid message for transport")

	// ErrSend reports a network transport publish failure. The core never
	// retries; retry policy belongs to the caller.
	ErrSend = sterrors.New("upgo: send failed")

	// ErrNotConnected is returned by send and register calls made while the
	// network session is down, instead of queueing indefinitely.
	ErrNotConnected = sterrors.New("upgo: transport not connected")

	// ErrBuild reports a network transport construction failure, e.g. an
	// unreachable substrate or an invalid authority namespace.
	ErrBuild = sterrors.New("upgo: transport build failed")

	// ErrSubstrate marks an opaque lower-layer pub/sub failure. Matched by
	// SubstrateError via errors.Is.
	ErrSubstrate = sterrors.New("upgo: substrate failure")

	// ErrConfigRequired is returned when a component needs configuration
	// that was not supplied.
	ErrConfigRequired = sterrors.New("upgo: configuration is required")

	// ErrInvalidConfig reports configuration that failed validation.
	ErrInvalidConfig = sterrors.New("upgo: invalid configuration")

	// ErrListenerRequired is returned when a nil listener is registered.
	ErrListenerRequired = sterrors.New("upgo: listener is required")

	// ErrTransportRequired is returned by façades constructed without a
	// transport.
	ErrTransportRequired = sterrors.New("upgo: transport is required")

	// ErrProviderRequired is returned by façades constructed without a URI
	// provider.
	ErrProviderRequired = sterrors.New("upgo: uri provider is required")
)

// SubstrateError wraps a failure from the byte-level pub/sub substrate with
// the operation that triggered it. It matches ErrSubstrate under errors.Is
// and unwraps to the underlying cause.
type SubstrateError struct {
	Op  string
	Err error
}

func (e SubstrateError) Error() string {
	return fmt.Sprintf("upgo: substrate %s: %v", e.Op, e.Err)
}

func (e SubstrateError) Unwrap() error { return e.Err }

func (e SubstrateError) Is(target error) bool { return target == ErrSubstrate }

// NewSubstrateError wraps err in a SubstrateError, or returns nil when err
// is nil.
func NewSubstrateError(op string, err error) error {
	if err == nil {
		return nil
	}
	return SubstrateError{Op: op, Err: err}
}
