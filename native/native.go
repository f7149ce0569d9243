// Package native implements soapysdr.Device over the SoapySDR C library.
//
// Build requirements: the SoapySDR development files and pkg-config, e.g.
// libsoapysdr-dev on Debian or soapysdr from Homebrew. Device modules
// (hackrf, rtlsdr, lime, ...) are discovered by SoapySDR at runtime.
//
// # Usage
//
//	dev, err := native.Make(soapysdr.KwargsFromString("driver=hackrf"))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer dev.Close()
//
//	rx, err := soapysdr.SetupComplexRxStreamOf[int16](dev, []uint{0}, nil)
//
// # Thread Safety
//
// A Device may be shared by several streams. SoapySDR drivers are generally
// safe for concurrent calls on different streams; calls on one stream are
// serialized by soapysdr.Stream.
package native

/*
#cgo pkg-config: SoapySDR
#include <stdlib.h>
#include <SoapySDR/Device.h>
#include <SoapySDR/Errors.h>
#include <SoapySDR/Version.h>
*/
import "C"
import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/luizribeiro/SoapySDR/soapysdr"
)

// Error is a failure reported by the SoapySDR library itself, as opposed
// to a stream status code.
type Error struct {
	Op   string
	Code int
	Text string
}

func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("soapysdr: %s: %s (%d)", e.Op, e.Text, e.Code)
	}
	return fmt.Sprintf("soapysdr: %s: %s", e.Op, e.Text)
}

// lastError builds an Error from the library's thread-local last error.
func lastError(op string, code int) error {
	text := C.GoString(C.SoapySDRDevice_lastError())
	if text == "" && code != 0 {
		text = ErrorText(code)
	}
	if text == "" {
		text = "unknown error"
	}
	return &Error{Op: op, Code: code, Text: text}
}

// ErrorText returns SoapySDR's description of a status code.
func ErrorText(code int) string {
	return C.GoString(C.SoapySDR_errToStr(C.int(code)))
}

// APIVersion returns the SoapySDR library API version string.
func APIVersion() string {
	return C.GoString(C.SoapySDR_getAPIVersion())
}

// Device is an opened SoapySDR device.
type Device struct {
	mu   sync.Mutex
	dev  *C.SoapySDRDevice
	args soapysdr.Kwargs
}

var _ soapysdr.Device = (*Device)(nil)

// Make opens the first device matching args, e.g. {"driver": "rtlsdr"}.
func Make(args soapysdr.Kwargs) (*Device, error) {
	cargs := C.CString(args.String())
	defer C.free(unsafe.Pointer(cargs))

	dev := C.SoapySDRDevice_makeStrArgs(cargs)
	if dev == nil {
		return nil, lastError(fmt.Sprintf("make device %q", args.String()), 0)
	}
	return &Device{dev: dev, args: args.Clone()}, nil
}

// Args returns the arguments the device was made with.
func (d *Device) Args() soapysdr.Kwargs { return d.args.Clone() }

// Close releases the device. Streams set up on it must be closed first.
// Closing twice is a no-op.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == nil {
		return nil
	}
	ret := int(C.SoapySDRDevice_unmake(d.dev))
	d.dev = nil
	if ret != 0 {
		return lastError("unmake device", ret)
	}
	return nil
}

func (d *Device) handle() (*C.SoapySDRDevice, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dev == nil {
		return nil, fmt.Errorf("soapysdr: device is closed")
	}
	return d.dev, nil
}

func stream(h soapysdr.StreamHandle) *C.SoapySDRStream {
	return h.(*C.SoapySDRStream)
}

// toKwargs copies kw into a C kwargs struct. The caller must clear it.
func toKwargs(kw soapysdr.Kwargs) (C.SoapySDRKwargs, error) {
	var ckw C.SoapySDRKwargs
	for k, v := range kw {
		ck, cv := C.CString(k), C.CString(v)
		ret := C.SoapySDRKwargs_set(&ckw, ck, cv)
		C.free(unsafe.Pointer(ck))
		C.free(unsafe.Pointer(cv))
		if ret != 0 {
			C.SoapySDRKwargs_clear(&ckw)
			return ckw, fmt.Errorf("soapysdr: set stream argument %q: out of memory", k)
		}
	}
	return ckw, nil
}

func (d *Device) SetupStream(dir soapysdr.Direction, format string, channels []uint, args soapysdr.Kwargs) (soapysdr.StreamHandle, error) {
	dev, err := d.handle()
	if err != nil {
		return nil, err
	}

	ckw, err := toKwargs(args)
	if err != nil {
		return nil, err
	}
	defer C.SoapySDRKwargs_clear(&ckw)

	cformat := C.CString(format)
	defer C.free(unsafe.Pointer(cformat))

	chans := make([]C.size_t, len(channels))
	for i, ch := range channels {
		chans[i] = C.size_t(ch)
	}
	var chansPtr *C.size_t
	if len(chans) > 0 {
		chansPtr = &chans[0]
	}

	s := C.SoapySDRDevice_setupStream(dev, C.int(dir), cformat, chansPtr, C.size_t(len(chans)), &ckw)
	if s == nil {
		return nil, lastError("setup stream", 0)
	}
	return s, nil
}

func (d *Device) CloseStream(h soapysdr.StreamHandle) error {
	dev, err := d.handle()
	if err != nil {
		return err
	}
	if ret := int(C.SoapySDRDevice_closeStream(dev, stream(h))); ret != 0 {
		return lastError("close stream", ret)
	}
	return nil
}

func (d *Device) GetStreamMTU(h soapysdr.StreamHandle) uint {
	dev, err := d.handle()
	if err != nil {
		return 0
	}
	return uint(C.SoapySDRDevice_getStreamMTU(dev, stream(h)))
}

func (d *Device) ActivateStream(h soapysdr.StreamHandle, flags soapysdr.StreamFlags, timeNs int64, numElems uint) soapysdr.ErrorCode {
	dev, err := d.handle()
	if err != nil {
		return soapysdr.ErrorStreamError
	}
	return soapysdr.ErrorCode(C.SoapySDRDevice_activateStream(dev, stream(h), C.int(flags), C.longlong(timeNs), C.size_t(numElems)))
}

func (d *Device) DeactivateStream(h soapysdr.StreamHandle, flags soapysdr.StreamFlags, timeNs int64) soapysdr.ErrorCode {
	dev, err := d.handle()
	if err != nil {
		return soapysdr.ErrorStreamError
	}
	return soapysdr.ErrorCode(C.SoapySDRDevice_deactivateStream(dev, stream(h), C.int(flags), C.longlong(timeNs)))
}

// pointerArray copies buffer addresses into C memory so the array handed to
// the library holds no Go pointers of its own. The caller frees it.
func pointerArray(buffs []unsafe.Pointer) unsafe.Pointer {
	n := len(buffs)
	if n == 0 {
		n = 1
	}
	arr := C.malloc(C.size_t(n) * C.size_t(unsafe.Sizeof(uintptr(0))))
	copy(unsafe.Slice((*unsafe.Pointer)(arr), len(buffs)), buffs)
	return arr
}

// transferResult splits a read/write return value into a status code and a
// sample count.
func transferResult(ret C.int) (soapysdr.ErrorCode, uint) {
	if ret < 0 {
		return soapysdr.ErrorCode(ret), 0
	}
	return soapysdr.ErrorNone, uint(ret)
}

func (d *Device) ReadStream(h soapysdr.StreamHandle, buffs []unsafe.Pointer, numElems uint, flags soapysdr.StreamFlags, timeoutUs int) (soapysdr.ErrorCode, soapysdr.StreamResult) {
	dev, err := d.handle()
	if err != nil {
		return soapysdr.ErrorStreamError, soapysdr.StreamResult{}
	}
	arr := pointerArray(buffs)
	defer C.free(arr)

	cflags := C.int(flags)
	var timeNs C.longlong
	ret := C.SoapySDRDevice_readStream(dev, stream(h), (*unsafe.Pointer)(arr), C.size_t(numElems),
		&cflags, &timeNs, C.long(timeoutUs))

	code, n := transferResult(ret)
	return code, soapysdr.StreamResult{
		NumSamples: n,
		Flags:      soapysdr.StreamFlags(cflags),
		TimeNs:     int64(timeNs),
		TimeoutUs:  timeoutUs,
	}
}

func (d *Device) WriteStream(h soapysdr.StreamHandle, buffs []unsafe.Pointer, numElems uint, flags soapysdr.StreamFlags, timeNs int64, timeoutUs int) (soapysdr.ErrorCode, soapysdr.StreamResult) {
	dev, err := d.handle()
	if err != nil {
		return soapysdr.ErrorStreamError, soapysdr.StreamResult{}
	}
	arr := pointerArray(buffs)
	defer C.free(arr)

	cflags := C.int(flags)
	ret := C.SoapySDRDevice_writeStream(dev, stream(h), (*unsafe.Pointer)(arr), C.size_t(numElems),
		&cflags, C.longlong(timeNs), C.long(timeoutUs))

	code, n := transferResult(ret)
	return code, soapysdr.StreamResult{
		NumSamples: n,
		Flags:      soapysdr.StreamFlags(cflags),
		TimeNs:     timeNs,
		TimeoutUs:  timeoutUs,
	}
}

func (d *Device) ReadStreamStatus(h soapysdr.StreamHandle, timeoutUs int) (soapysdr.ErrorCode, soapysdr.StreamResult) {
	dev, err := d.handle()
	if err != nil {
		return soapysdr.ErrorStreamError, soapysdr.StreamResult{}
	}
	var (
		chanMask C.size_t
		cflags   C.int
		timeNs   C.longlong
	)
	ret := C.SoapySDRDevice_readStreamStatus(dev, stream(h), &chanMask, &cflags, &timeNs, C.long(timeoutUs))
	return soapysdr.ErrorCode(ret), soapysdr.StreamResult{
		Flags:     soapysdr.StreamFlags(cflags),
		TimeNs:    int64(timeNs),
		TimeoutUs: timeoutUs,
		ChanMask:  uint(chanMask),
	}
}
