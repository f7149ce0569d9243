package soapysdr

import (
	"fmt"
	"unsafe"
)

// validateBuffers checks a per-channel buffer set against a stream's channel
// count and format before any of it reaches the native layer, which performs
// no bounds checking of its own. It returns the per-channel element count in
// stream units: complex samples for complex formats, scalars otherwise.
func validateBuffers[T Sample](channels int, format string, buffs [][]T) (int, error) {
	if len(buffs) != channels {
		return 0, &ArityError{Expected: channels, Found: len(buffs)}
	}

	length := 0
	for i, b := range buffs {
		if len(b) == 0 {
			return 0, fmt.Errorf("%w: buffer %d is empty", ErrInconsistentBuffers, i)
		}
		if i > 0 && len(b) != length {
			return 0, fmt.Errorf("%w: buffer %d has length %d, buffer 0 has %d",
				ErrInconsistentBuffers, i, len(b), length)
		}
		length = len(b)
	}

	scalarFormat := ScalarFormatOf[T]()
	complexFormat := ComplexFormatOf[T]()
	switch format {
	case scalarFormat:
		return length, nil
	case complexFormat:
		if length%2 != 0 {
			return 0, fmt.Errorf("%w: got %d elements", ErrOddComplexLength, length)
		}
		return length / 2, nil
	default:
		return 0, &FormatMismatchError{
			Expected: []string{scalarFormat, complexFormat},
			Found:    format,
		}
	}
}

// validateAddrs checks a raw address set. Raw buffers carry no type or
// length, so only arity and nil addresses can be verified.
func validateAddrs(channels int, addrs []unsafe.Pointer, numElems uint) error {
	if len(addrs) != channels {
		return &ArityError{Expected: channels, Found: len(addrs)}
	}
	for i, a := range addrs {
		if a == nil {
			return fmt.Errorf("%w: address %d is nil", ErrInconsistentBuffers, i)
		}
	}
	if numElems == 0 {
		return fmt.Errorf("%w: element count must be positive", ErrInconsistentBuffers)
	}
	return nil
}
