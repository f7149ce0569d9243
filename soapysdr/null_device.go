package soapysdr

import (
	"sync/atomic"
	"unsafe"
)

// NullDeviceMTU is the MTU reported for every NullDevice stream.
const NullDeviceMTU = 1024

// NullDevice is a Device that moves no data. It behaves like SoapySDR's
// "null" driver: plain activation and deactivation succeed, while timed or
// burst activation and every transfer report ErrorNotSupported. Transfers
// move zero samples and echo the caller's flags and time. It is useful for
// exercising stream plumbing without hardware.
type NullDevice struct {
	transfers atomic.Int64
	open      atomic.Int64
}

type nullStream struct {
	dir      Direction
	format   string
	channels int
	closed   bool
}

// NewNullDevice creates a NullDevice.
func NewNullDevice() *NullDevice { return &NullDevice{} }

func (d *NullDevice) SetupStream(dir Direction, format string, channels []uint, _ Kwargs) (StreamHandle, error) {
	d.open.Add(1)
	return &nullStream{dir: dir, format: format, channels: len(channels)}, nil
}

func (d *NullDevice) CloseStream(h StreamHandle) error {
	ns := h.(*nullStream)
	if !ns.closed {
		ns.closed = true
		d.open.Add(-1)
	}
	return nil
}

func (d *NullDevice) GetStreamMTU(StreamHandle) uint { return NullDeviceMTU }

func (d *NullDevice) ActivateStream(_ StreamHandle, flags StreamFlags, _ int64, numElems uint) ErrorCode {
	if flags != FlagNone || numElems != 0 {
		return ErrorNotSupported
	}
	return ErrorNone
}

func (d *NullDevice) DeactivateStream(_ StreamHandle, flags StreamFlags, _ int64) ErrorCode {
	if flags != FlagNone {
		return ErrorNotSupported
	}
	return ErrorNone
}

func (d *NullDevice) ReadStream(_ StreamHandle, _ []unsafe.Pointer, _ uint, flags StreamFlags, timeoutUs int) (ErrorCode, StreamResult) {
	d.transfers.Add(1)
	return ErrorNotSupported, StreamResult{Flags: flags, TimeoutUs: timeoutUs}
}

func (d *NullDevice) WriteStream(_ StreamHandle, _ []unsafe.Pointer, _ uint, flags StreamFlags, timeNs int64, timeoutUs int) (ErrorCode, StreamResult) {
	d.transfers.Add(1)
	return ErrorNotSupported, StreamResult{Flags: flags, TimeNs: timeNs, TimeoutUs: timeoutUs}
}

func (d *NullDevice) ReadStreamStatus(StreamHandle, int) (ErrorCode, StreamResult) {
	return ErrorNotSupported, StreamResult{}
}

// Transfers returns the number of read/write calls that reached the device.
func (d *NullDevice) Transfers() int64 { return d.transfers.Load() }

// OpenStreams returns the number of streams set up and not yet closed.
func (d *NullDevice) OpenStreams() int64 { return d.open.Load() }
