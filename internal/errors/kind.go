package errors

// Kind is the flat error taxonomy shared by every backend. A Kind is itself an
// error so it can be returned directly and matched with Is.
type Kind int

const (
	KindNone Kind = iota
	KindNoMem
	KindInitAudioBackend
	KindSystemResources
	KindOpeningDevice
	KindNoSuchDevice
	KindInvalid
	KindBackendUnavailable
	KindStreaming
	KindIncompatibleDevice
	KindNoSuchClient
	KindIncompatibleBackend
	KindBackendDisconnected
	KindInterrupted
	KindUnderflow
	KindEncodingString
)

var kindNames = [...]string{
	KindNone:                "(no error)",
	KindNoMem:               "out of memory",
	KindInitAudioBackend:    "unable to initialize audio backend",
	KindSystemResources:     "system resource not available",
	KindOpeningDevice:       "unable to open device",
	KindNoSuchDevice:        "no such device",
	KindInvalid:             "invalid value",
	KindBackendUnavailable:  "backend unavailable",
	KindStreaming:           "unrecoverable streaming failure",
	KindIncompatibleDevice:  "incompatible device",
	KindNoSuchClient:        "no such client",
	KindIncompatibleBackend: "incompatible backend",
	KindBackendDisconnected: "backend disconnected",
	KindInterrupted:         "interrupted; try again",
	KindUnderflow:           "buffer underflow",
	KindEncodingString:      "failed to encode string",
}

// String returns the stable human-readable name of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "(invalid error)"
	}
	return kindNames[k]
}

// Error implements the error interface.
func (k Kind) Error() string {
	return k.String()
}

// KindOf classifies err. nil and errors that carry no taxonomy information
// both map to KindNone.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	var ee *EnhancedError
	if As(err, &ee) && ee.Kind != KindNone {
		return ee.Kind
	}
	var k Kind
	if As(err, &k) {
		return k
	}
	return KindNone
}
