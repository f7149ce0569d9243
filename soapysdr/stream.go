package soapysdr

import (
	"fmt"
	"log/slog"
	"sync"
)

// StreamState is the lifecycle state of a Stream.
type StreamState int

const (
	StateConfigured StreamState = iota
	StateActivated
	StateDeactivated
	StateClosed
)

func (s StreamState) String() string {
	switch s {
	case StateConfigured:
		return "configured"
	case StateActivated:
		return "activated"
	case StateDeactivated:
		return "deactivated"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("StreamState(%d)", int(s))
	}
}

// Stream is one directional, multi-channel sample stream on a Device.
//
// A Stream starts Configured. Activate and Deactivate may alternate any
// number of times; Close is terminal and every later operation fails with
// ErrInvalidState. All native calls on a Stream are serialized, so Close
// waits for an in-flight transfer (bounded by its timeout) instead of
// racing it. Concurrent transfers on one Stream are still discouraged: use
// one goroutine per stream direction.
type Stream struct {
	mu       sync.Mutex
	device   Device
	handle   StreamHandle
	dir      Direction
	format   string
	channels []uint
	args     Kwargs
	state    StreamState
}

// TxStream is a transmit stream. See Write, WriteSingle and WriteRaw.
type TxStream struct{ *Stream }

// RxStream is a receive stream. See Read, ReadSingle and ReadRaw.
type RxStream struct{ *Stream }

// SetupStream asks dev to set up a stream in the given direction and format
// over channels. An empty channel list selects channel 0. The channel list
// and args are copied; later changes by the caller have no effect.
func SetupStream(dev Device, dir Direction, format string, channels []uint, args Kwargs) (*Stream, error) {
	if len(channels) == 0 {
		channels = []uint{0}
	}
	chans := append([]uint(nil), channels...)
	args = args.Clone()

	h, err := dev.SetupStream(dir, format, chans, args)
	if err != nil {
		return nil, fmt.Errorf("setup %s stream %s on channels %v: %w", dir, format, chans, err)
	}

	s := &Stream{
		device:   dev,
		handle:   h,
		dir:      dir,
		format:   format,
		channels: chans,
		args:     args,
		state:    StateConfigured,
	}
	s.log().Debug("stream set up", "args", args.String())
	return s, nil
}

// SetupTxStream sets up a transmit stream.
func SetupTxStream(dev Device, format string, channels []uint, args Kwargs) (*TxStream, error) {
	s, err := SetupStream(dev, Tx, format, channels, args)
	if err != nil {
		return nil, err
	}
	return &TxStream{s}, nil
}

// SetupRxStream sets up a receive stream.
func SetupRxStream(dev Device, format string, channels []uint, args Kwargs) (*RxStream, error) {
	s, err := SetupStream(dev, Rx, format, channels, args)
	if err != nil {
		return nil, err
	}
	return &RxStream{s}, nil
}

// SetupTxStreamOf sets up a transmit stream in the scalar format of T.
func SetupTxStreamOf[T Sample](dev Device, channels []uint, args Kwargs) (*TxStream, error) {
	return SetupTxStream(dev, ScalarFormatOf[T](), channels, args)
}

// SetupComplexTxStreamOf sets up a transmit stream in the complex format of T.
func SetupComplexTxStreamOf[T Sample](dev Device, channels []uint, args Kwargs) (*TxStream, error) {
	return SetupTxStream(dev, ComplexFormatOf[T](), channels, args)
}

// SetupRxStreamOf sets up a receive stream in the scalar format of T.
func SetupRxStreamOf[T Sample](dev Device, channels []uint, args Kwargs) (*RxStream, error) {
	return SetupRxStream(dev, ScalarFormatOf[T](), channels, args)
}

// SetupComplexRxStreamOf sets up a receive stream in the complex format of T.
func SetupComplexRxStreamOf[T Sample](dev Device, channels []uint, args Kwargs) (*RxStream, error) {
	return SetupRxStream(dev, ComplexFormatOf[T](), channels, args)
}

// Direction returns the stream direction.
func (s *Stream) Direction() Direction { return s.dir }

// Format returns the stream format token.
func (s *Stream) Format() string { return s.format }

// Channels returns a copy of the stream's channel list.
func (s *Stream) Channels() []uint { return append([]uint(nil), s.channels...) }

// Args returns a copy of the arguments used to set up the stream.
func (s *Stream) Args() Kwargs { return s.args.Clone() }

// State returns the current lifecycle state.
func (s *Stream) State() StreamState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Active reports whether the stream is activated.
func (s *Stream) Active() bool { return s.State() == StateActivated }

// MTU returns the maximum number of elements per channel the transport
// accepts in a single read or write. Larger buffers must be split by the
// caller; no chunking is done here so flags and timing stay explicit per call.
func (s *Stream) MTU() (uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return 0, &StateError{Op: "query MTU of", State: s.state}
	}
	return s.device.GetStreamMTU(s.handle), nil
}

// Activate prepares the stream for transfers. timeNs is only meaningful when
// flags has FlagHasTime; numElems optionally bounds a burst.
//
// The native code is returned as data. ErrorNone and ErrorNotSupported (a
// transport without an activation step) move the stream to activated; any
// other code leaves the state unchanged. Activating an active or closed
// stream fails with ErrInvalidState.
func (s *Stream) Activate(flags StreamFlags, timeNs int64, numElems uint) (ErrorCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateActivated || s.state == StateClosed {
		return ErrorNone, &StateError{Op: "activate", State: s.state}
	}

	code := s.device.ActivateStream(s.handle, flags, timeNs, numElems)
	if stateChanging(code) {
		s.state = StateActivated
	}
	s.log().Debug("stream activate", "flags", flags.String(), "time_ns", timeNs,
		"num_elems", numElems, "code", code.String(), "state", s.state.String())
	return code, nil
}

// Deactivate ends transfers on an active stream. The same code rules as
// Activate apply. Deactivating a stream that is not active fails with
// ErrInvalidState.
func (s *Stream) Deactivate(flags StreamFlags, timeNs int64) (ErrorCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActivated {
		return ErrorNone, &StateError{Op: "deactivate", State: s.state}
	}

	code := s.device.DeactivateStream(s.handle, flags, timeNs)
	if stateChanging(code) {
		s.state = StateDeactivated
	}
	s.log().Debug("stream deactivate", "flags", flags.String(), "time_ns", timeNs,
		"code", code.String(), "state", s.state.String())
	return code, nil
}

// Close releases the native stream. The stream is closed even if the device
// reports an error. Closing twice fails with ErrInvalidState.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return &StateError{Op: "close", State: s.state}
	}

	err := s.device.CloseStream(s.handle)
	s.handle = nil
	s.state = StateClosed
	s.log().Debug("stream closed")
	if err != nil {
		return fmt.Errorf("close stream: %w", err)
	}
	return nil
}

// ReadStatus waits up to timeoutUs for an asynchronous event on the stream,
// typically the completion or underflow of a transmit burst. It moves no
// data.
func (s *Stream) ReadStatus(timeoutUs int) (ErrorCode, StreamResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return ErrorNone, StreamResult{}, &StateError{Op: "read status of", State: s.state}
	}
	code, res := s.device.ReadStreamStatus(s.handle, timeoutUs)
	return code, res, nil
}

// log returns the current package logger tagged with the stream's identity,
// so SetLogger also reaches streams that already exist.
func (s *Stream) log() *slog.Logger {
	return logger().With("direction", s.dir.String(), "format", s.format, "channels", s.channels)
}

func stateChanging(code ErrorCode) bool {
	return code == ErrorNone || code == ErrorNotSupported
}

// String describes the stream.
func (s *Stream) String() string {
	return fmt.Sprintf("%s stream %s on channels %v", s.dir, s.format, s.channels)
}
