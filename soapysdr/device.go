package soapysdr

import "unsafe"

// StreamHandle is the opaque native stream state returned by
// Device.SetupStream. It is owned by exactly one Stream and handed back to
// the device on Close.
type StreamHandle any

// Device is the streaming surface of a hardware (or software) SDR backend.
// Stream consumes it; implementations trust their inputs, so every buffer
// set reaching ReadStream/WriteStream has already been validated and pinned.
//
// Timeouts are forwarded verbatim; a Device blocks for at most timeoutUs.
type Device interface {
	SetupStream(dir Direction, format string, channels []uint, args Kwargs) (StreamHandle, error)
	CloseStream(h StreamHandle) error
	GetStreamMTU(h StreamHandle) uint
	ActivateStream(h StreamHandle, flags StreamFlags, timeNs int64, numElems uint) ErrorCode
	DeactivateStream(h StreamHandle, flags StreamFlags, timeNs int64) ErrorCode

	// ReadStream fills numElems elements per channel into buffs and returns the
	// number actually read in StreamResult.NumSamples.
	ReadStream(h StreamHandle, buffs []unsafe.Pointer, numElems uint, flags StreamFlags, timeoutUs int) (ErrorCode, StreamResult)
	// WriteStream consumes up to numElems elements per channel from buffs.
	WriteStream(h StreamHandle, buffs []unsafe.Pointer, numElems uint, flags StreamFlags, timeNs int64, timeoutUs int) (ErrorCode, StreamResult)
	// ReadStreamStatus reports asynchronous events such as burst
	// completion or underflow on a transmit stream.
	ReadStreamStatus(h StreamHandle, timeoutUs int) (ErrorCode, StreamResult)
}
