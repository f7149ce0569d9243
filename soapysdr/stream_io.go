package soapysdr

import "unsafe"

// Transfers return (code, result, err). A non-nil err is a contract
// violation detected before the native layer was reached; code and result
// are then zero. Otherwise code is the native outcome: ErrorTimeout,
// ErrorOverflow and friends are expected on real hardware and are left to
// the caller, as is any retry. result.NumSamples may be less than requested.

// Write transmits one buffer per channel. All buffers must have the same
// non-zero length; for complex formats the length counts interleaved
// elements and must be even (2 elements per sample).
func Write[T Sample](s *TxStream, buffs [][]T, flags StreamFlags, timeNs int64, timeoutUs int) (ErrorCode, StreamResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return ErrorNone, StreamResult{}, &StateError{Op: "write to", State: s.state}
	}
	numElems, err := validateBuffers(len(s.channels), s.format, buffs)
	if err != nil {
		return ErrorNone, StreamResult{}, err
	}
	scope, err := pinBuffers(buffs)
	if err != nil {
		return ErrorNone, StreamResult{}, err
	}
	defer scope.release()

	code, res := s.device.WriteStream(s.handle, scope.addrs, uint(numElems), flags, timeNs, timeoutUs)
	s.log().Debug("stream write", "num_elems", numElems, "written", res.NumSamples, "code", code.String())
	return code, res, nil
}

// WriteSingle transmits buf on a single-channel stream.
func WriteSingle[T Sample](s *TxStream, buf []T, flags StreamFlags, timeNs int64, timeoutUs int) (ErrorCode, StreamResult, error) {
	return Write(s, [][]T{buf}, flags, timeNs, timeoutUs)
}

// WriteRaw transmits from caller-managed addresses, one per channel, each
// holding at least numElems elements of the stream format. The caller is
// responsible for keeping the memory valid and, for Go memory, pinned.
func (s *TxStream) WriteRaw(addrs []unsafe.Pointer, numElems uint, flags StreamFlags, timeNs int64, timeoutUs int) (ErrorCode, StreamResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return ErrorNone, StreamResult{}, &StateError{Op: "write to", State: s.state}
	}
	if err := validateAddrs(len(s.channels), addrs, numElems); err != nil {
		return ErrorNone, StreamResult{}, err
	}
	code, res := s.device.WriteStream(s.handle, addrs, numElems, flags, timeNs, timeoutUs)
	return code, res, nil
}

// Read receives into one buffer per channel. The same layout rules as Write
// apply. flags are passed to the device (e.g. FlagOnePacket); the result
// reports the received flags and timestamp.
func Read[T Sample](s *RxStream, buffs [][]T, flags StreamFlags, timeoutUs int) (ErrorCode, StreamResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return ErrorNone, StreamResult{}, &StateError{Op: "read from", State: s.state}
	}
	numElems, err := validateBuffers(len(s.channels), s.format, buffs)
	if err != nil {
		return ErrorNone, StreamResult{}, err
	}
	scope, err := pinBuffers(buffs)
	if err != nil {
		return ErrorNone, StreamResult{}, err
	}
	defer scope.release()

	code, res := s.device.ReadStream(s.handle, scope.addrs, uint(numElems), flags, timeoutUs)
	s.log().Debug("stream read", "num_elems", numElems, "read", res.NumSamples, "code", code.String())
	return code, res, nil
}

// ReadSingle receives into buf on a single-channel stream.
func ReadSingle[T Sample](s *RxStream, buf []T, flags StreamFlags, timeoutUs int) (ErrorCode, StreamResult, error) {
	return Read(s, [][]T{buf}, flags, timeoutUs)
}

// ReadRaw receives into caller-managed addresses. See WriteRaw.
func (s *RxStream) ReadRaw(addrs []unsafe.Pointer, numElems uint, flags StreamFlags, timeoutUs int) (ErrorCode, StreamResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return ErrorNone, StreamResult{}, &StateError{Op: "read from", State: s.state}
	}
	if err := validateAddrs(len(s.channels), addrs, numElems); err != nil {
		return ErrorNone, StreamResult{}, err
	}
	code, res := s.device.ReadStream(s.handle, addrs, numElems, flags, timeoutUs)
	return code, res, nil
}
