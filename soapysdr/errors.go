package soapysdr

import (
	"errors"
	"fmt"
	"strings"
)

// Contract violations. These are detected in Go before any native call and
// are always returned as errors; use errors.Is to tell them apart.
var (
	ErrArityMismatch       = errors.New("soapysdr: buffer count does not match channel count")
	ErrInconsistentBuffers = errors.New("soapysdr: all buffers must be non-nil and of the same non-zero length")
	ErrOddComplexLength    = errors.New("soapysdr: complex interleaved buffers must have an even length")
	ErrFormatMismatch      = errors.New("soapysdr: buffer type does not match stream format")
	ErrLengthMismatch      = errors.New("soapysdr: source and destination must be the same length")
	ErrOddLength           = errors.New("soapysdr: complex interleaved buffers must be of even size")
	ErrUnsupportedType     = errors.New("soapysdr: unsupported sample type")
	ErrUnsupportedPair     = errors.New("soapysdr: no converter registered for format pair")
	ErrInvalidState        = errors.New("soapysdr: invalid stream state")
	ErrAcquisitionFailed   = errors.New("soapysdr: failed to acquire stable buffer address")
)

// ArityError reports a buffer set whose length differs from the stream's
// channel count.
type ArityError struct {
	Expected int
	Found    int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("soapysdr: expected %d channels, found %d buffers", e.Expected, e.Found)
}

func (e *ArityError) Unwrap() error { return ErrArityMismatch }

// FormatMismatchError reports a buffer element type that matches neither the
// scalar nor the complex token the stream could accept.
type FormatMismatchError struct {
	Expected []string
	Found    string
}

func (e *FormatMismatchError) Error() string {
	quoted := make([]string, len(e.Expected))
	for i, f := range e.Expected {
		quoted[i] = fmt.Sprintf("%q", f)
	}
	return fmt.Sprintf("soapysdr: expected format %s, found format %q", strings.Join(quoted, " or "), e.Found)
}

func (e *FormatMismatchError) Unwrap() error { return ErrFormatMismatch }

// UnsupportedTypeError reports a Kind outside the supported numeric set.
type UnsupportedTypeError struct {
	Kind Kind
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("soapysdr: type %s has no stream format", e.Kind)
}

func (e *UnsupportedTypeError) Unwrap() error { return ErrUnsupportedType }

// StateError reports a stream operation attempted from a state that does not
// allow it.
type StateError struct {
	Op    string
	State StreamState
}

func (e *StateError) Error() string {
	return fmt.Sprintf("soapysdr: cannot %s stream: stream is %s", e.Op, e.State)
}

func (e *StateError) Unwrap() error { return ErrInvalidState }

// PairError reports a conversion request for an unregistered
// (source, target, priority) combination.
type PairError struct {
	Source   string
	Target   string
	Priority Priority
	// HasPriority is false when the best available priority was requested.
	HasPriority bool
}

func (e *PairError) Error() string {
	if e.HasPriority {
		return fmt.Sprintf("soapysdr: no %s converter for %s -> %s", e.Priority, e.Source, e.Target)
	}
	return fmt.Sprintf("soapysdr: no converter for %s -> %s", e.Source, e.Target)
}

func (e *PairError) Unwrap() error { return ErrUnsupportedPair }

// ErrorCode is a status reported by the native transfer layer. Codes are
// expected, recoverable outcomes (a timeout, an overflow, an operation the
// transport does not support) and are returned as values next to a
// StreamResult instead of as errors.
type ErrorCode int

const (
	ErrorNone         ErrorCode = 0
	ErrorTimeout      ErrorCode = -1
	ErrorStreamError  ErrorCode = -2
	ErrorCorruption   ErrorCode = -3
	ErrorOverflow     ErrorCode = -4
	ErrorNotSupported ErrorCode = -5
	ErrorTimeError    ErrorCode = -6
	ErrorUnderflow    ErrorCode = -7
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorNone:
		return "NONE"
	case ErrorTimeout:
		return "TIMEOUT"
	case ErrorStreamError:
		return "STREAM_ERROR"
	case ErrorCorruption:
		return "CORRUPTION"
	case ErrorOverflow:
		return "OVERFLOW"
	case ErrorNotSupported:
		return "NOT_SUPPORTED"
	case ErrorTimeError:
		return "TIME_ERROR"
	case ErrorUnderflow:
		return "UNDERFLOW"
	default:
		return fmt.Sprintf("UNKNOWN_ERROR(%d)", int(c))
	}
}

// Err converts the code into an error for callers that prefer error flow.
// ErrorNone yields nil.
func (c ErrorCode) Err() error {
	if c == ErrorNone {
		return nil
	}
	return &CodeError{Code: c}
}

// CodeError wraps a native ErrorCode as an error.
type CodeError struct {
	Code ErrorCode
}

func (e *CodeError) Error() string {
	return "soapysdr: " + e.Code.String()
}
