package soundio

import "github.com/tphakala/go-soundio/internal/errors"

// Error is the flat error taxonomy. Every error returned by this package and
// its backends matches exactly one of these with errors.Is.
type Error = errors.Kind

const (
	ErrNoMem               = errors.KindNoMem
	ErrInitAudioBackend    = errors.KindInitAudioBackend
	ErrSystemResources     = errors.KindSystemResources
	ErrOpeningDevice       = errors.KindOpeningDevice
	ErrNoSuchDevice        = errors.KindNoSuchDevice
	ErrInvalid             = errors.KindInvalid
	ErrBackendUnavailable  = errors.KindBackendUnavailable
	ErrStreaming           = errors.KindStreaming
	ErrIncompatibleDevice  = errors.KindIncompatibleDevice
	ErrNoSuchClient        = errors.KindNoSuchClient
	ErrIncompatibleBackend = errors.KindIncompatibleBackend
	ErrBackendDisconnected = errors.KindBackendDisconnected
	ErrInterrupted         = errors.KindInterrupted
	ErrUnderflow           = errors.KindUnderflow
	ErrEncodingString      = errors.KindEncodingString
)

// ErrorName returns the stable taxonomy name for err. nil yields "(no error)".
// Errors from outside the taxonomy render with their own message.
func ErrorName(err error) string {
	if err == nil {
		return errors.KindNone.String()
	}
	if k := errors.KindOf(err); k != errors.KindNone {
		return k.String()
	}
	return err.Error()
}

// ErrorKind classifies err into the taxonomy. Unclassified errors yield 0.
func ErrorKind(err error) Error {
	return errors.KindOf(err)
}

// newError builds a classified error for this package.
func newError(kind Error, err error, component string) *errors.EnhancedError {
	return errors.New(err).
		Component(component).
		Kind(kind).
		Build()
}
