// Package loopback provides an in-memory soapysdr.Device. Samples written to
// a transmit stream on channel N are returned by reads from a receive stream
// on channel N, much like a cable between TX and RX ports.
//
// Each channel is a ring buffer holding samples in the device's wire format.
// Streams in another format are converted on the way in and out with the
// soapysdr converter registry, scaled by the full-scale value of each format,
// so a CF32 writer and a CS16 reader see the same signal.
//
// Architecture:
//
//	Tx stream            per-channel ring (wire format)          Rx stream
//	┌─────────────┐  convert  ┌──────────┐  convert  ┌─────────────┐
//	│ WriteStream │──────────▶│ ●●●●●○○○ │──────────▶│ ReadStream  │
//	└─────────────┘           └──────────┘           └─────────────┘
package loopback

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/luizribeiro/SoapySDR/soapysdr"
	"github.com/smallnest/ringbuffer"
)

const (
	DefaultMTU        = 4096
	DefaultCapacity   = 1 << 16
	DefaultSampleRate = 1e6

	pollInterval = 100 * time.Microsecond
)

// Config configures a Device. Zero fields take defaults.
type Config struct {
	// Channels is the number of loopback channels. Default 1.
	Channels int
	// WireFormat is the format samples are buffered in. Default CF32.
	WireFormat string
	// MTU is the largest transfer per call, in elements. Default 4096.
	MTU uint
	// Capacity is the number of elements buffered per channel. Default 65536.
	Capacity int
	// SampleRate is used to timestamp received samples. Default 1 MHz.
	SampleRate float64
	// Logger receives debug events. Default discards.
	Logger *slog.Logger
}

// Device is an in-memory loopback device.
//
// Each channel accepts one transmit stream at a time, so a write never
// competes with another writer for ring space. Any number of receive
// streams may share a channel; they consume the same samples.
type Device struct {
	cfg      Config
	wireSize int
	rings    []*ringbuffer.RingBuffer
	log      *slog.Logger

	mu      sync.Mutex
	writers []bool

	written  atomic.Uint64
	read     atomic.Uint64
	timeouts atomic.Uint64
}

var _ soapysdr.Device = (*Device)(nil)

type stream struct {
	dir      soapysdr.Direction
	format   string
	channels []uint
	size     int
	scale    float64
	active   bool
	scratch  []byte
	ticks    int64
	bursts   int
}

// New creates a loopback device.
func New(cfg Config) (*Device, error) {
	if cfg.Channels <= 0 {
		cfg.Channels = 1
	}
	if cfg.WireFormat == "" {
		cfg.WireFormat = soapysdr.FormatCF32
	}
	if cfg.MTU == 0 {
		cfg.MTU = DefaultMTU
	}
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}

	wireSize := soapysdr.FormatToSize(cfg.WireFormat)
	if wireSize == 0 {
		return nil, fmt.Errorf("loopback: unknown wire format %q", cfg.WireFormat)
	}

	d := &Device{
		cfg:      cfg,
		wireSize: wireSize,
		rings:    make([]*ringbuffer.RingBuffer, cfg.Channels),
		writers:  make([]bool, cfg.Channels),
		log:      cfg.Logger.With("device", "loopback", "wire", cfg.WireFormat),
	}
	for i := range d.rings {
		d.rings[i] = ringbuffer.New(cfg.Capacity * wireSize)
	}
	return d, nil
}

// FullScale returns the value a format uses for a full-scale sample: 1 for
// floating point, the largest positive value for fixed point. 12-bit packed
// formats are converted through left-justified 16-bit values.
func FullScale(format string) float64 {
	switch strings.TrimPrefix(format, "C") {
	case soapysdr.FormatS8, soapysdr.FormatU8:
		return math.MaxInt8
	case "S12", "U12", soapysdr.FormatS16, soapysdr.FormatU16:
		return math.MaxInt16
	case soapysdr.FormatS32, soapysdr.FormatU32:
		return math.MaxInt32
	default:
		return 1
	}
}

// Buffered returns the number of elements waiting on channel ch.
func (d *Device) Buffered(ch int) int {
	return d.rings[ch].Length() / d.wireSize
}

// Reset discards everything buffered on every channel.
func (d *Device) Reset() {
	for _, r := range d.rings {
		r.Reset()
	}
}

// Transmitted returns the number of elements per channel accepted by writes.
func (d *Device) Transmitted() uint64 { return d.written.Load() }

// Received returns the number of elements per channel returned by reads.
func (d *Device) Received() uint64 { return d.read.Load() }

// Timeouts returns the number of transfers that timed out.
func (d *Device) Timeouts() uint64 { return d.timeouts.Load() }

func (d *Device) SetupStream(dir soapysdr.Direction, format string, channels []uint, _ soapysdr.Kwargs) (soapysdr.StreamHandle, error) {
	size := soapysdr.FormatToSize(format)
	if size == 0 {
		return nil, fmt.Errorf("loopback: unknown format %q", format)
	}
	for _, ch := range channels {
		if int(ch) >= len(d.rings) {
			return nil, fmt.Errorf("loopback: channel %d out of range (device has %d)", ch, len(d.rings))
		}
	}

	s := &stream{
		dir:      dir,
		format:   format,
		channels: append([]uint(nil), channels...),
		size:     size,
		scale:    1,
	}
	if format != d.cfg.WireFormat {
		src, dst := format, d.cfg.WireFormat
		if dir == soapysdr.Rx {
			src, dst = dst, src
		}
		if len(soapysdr.ListPriorities(src, dst)) == 0 {
			return nil, fmt.Errorf("loopback: cannot carry %s over %s wire: %w", format, d.cfg.WireFormat, soapysdr.ErrUnsupportedPair)
		}
		s.scale = FullScale(dst) / FullScale(src)
	}

	if dir == soapysdr.Tx {
		if err := d.claim(channels); err != nil {
			return nil, err
		}
	}
	d.log.Debug("stream set up", "direction", dir.String(), "format", format, "channels", channels)
	return s, nil
}

// claim reserves channels for a transmit stream.
func (d *Device) claim(channels []uint) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ch := range channels {
		if d.writers[ch] {
			return fmt.Errorf("loopback: channel %d already has a transmit stream", ch)
		}
	}
	for _, ch := range channels {
		d.writers[ch] = true
	}
	return nil
}

func (d *Device) release(channels []uint) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, ch := range channels {
		d.writers[ch] = false
	}
}

func (d *Device) CloseStream(h soapysdr.StreamHandle) error {
	s := h.(*stream)
	if s.dir == soapysdr.Tx {
		d.release(s.channels)
	}
	s.active = false
	s.scratch = nil
	return nil
}

func (d *Device) GetStreamMTU(soapysdr.StreamHandle) uint { return d.cfg.MTU }

// ActivateStream starts a stream. Timed activation and finite bursts are
// not supported.
func (d *Device) ActivateStream(h soapysdr.StreamHandle, flags soapysdr.StreamFlags, _ int64, numElems uint) soapysdr.ErrorCode {
	s := h.(*stream)
	s.active = true
	if flags.Has(soapysdr.FlagHasTime) || numElems != 0 {
		return soapysdr.ErrorNotSupported
	}
	return soapysdr.ErrorNone
}

func (d *Device) DeactivateStream(h soapysdr.StreamHandle, _ soapysdr.StreamFlags, _ int64) soapysdr.ErrorCode {
	h.(*stream).active = false
	return soapysdr.ErrorNone
}

// wait polls ready until it returns a positive count or timeoutUs elapses.
func wait(timeoutUs int, ready func() int) int {
	deadline := time.Now().Add(time.Duration(timeoutUs) * time.Microsecond)
	for {
		if n := ready(); n > 0 {
			return n
		}
		if !time.Now().Before(deadline) {
			return 0
		}
		time.Sleep(pollInterval)
	}
}

func (s *stream) buffer(n int) []byte {
	if cap(s.scratch) < n {
		s.scratch = make([]byte, n)
	}
	return s.scratch[:n]
}

func (d *Device) WriteStream(h soapysdr.StreamHandle, buffs []unsafe.Pointer, numElems uint, flags soapysdr.StreamFlags, timeNs int64, timeoutUs int) (soapysdr.ErrorCode, soapysdr.StreamResult) {
	s := h.(*stream)
	res := soapysdr.StreamResult{Flags: flags, TimeNs: timeNs, TimeoutUs: timeoutUs}
	if s.dir != soapysdr.Tx || !s.active {
		return soapysdr.ErrorStreamError, res
	}

	free := wait(timeoutUs, func() int {
		n := math.MaxInt
		for _, ch := range s.channels {
			n = min(n, d.rings[ch].Free()/d.wireSize)
		}
		return n
	})
	if free == 0 {
		d.timeouts.Add(1)
		d.log.Debug("tx timeout: ring full", "timeout_us", timeoutUs)
		return soapysdr.ErrorTimeout, res
	}
	n := min(int(numElems), int(d.cfg.MTU), free)

	for i, ch := range s.channels {
		src := unsafe.Slice((*byte)(buffs[i]), n*s.size)
		data := src
		if s.format != d.cfg.WireFormat {
			data = s.buffer(n * d.wireSize)
			if err := soapysdr.ConvertRaw(s.format, d.cfg.WireFormat, src, data, n, s.scale); err != nil {
				d.log.Debug("tx conversion failed", "error", err)
				return soapysdr.ErrorStreamError, res
			}
		}
		if _, err := d.rings[ch].Write(data); err != nil {
			d.log.Debug("tx ring write failed", "channel", ch, "error", err)
			return soapysdr.ErrorOverflow, res
		}
	}

	if flags.Has(soapysdr.FlagEndBurst) && uint(n) == numElems {
		s.bursts++
	}
	d.written.Add(uint64(n))
	res.NumSamples = uint(n)
	return soapysdr.ErrorNone, res
}

func (d *Device) ReadStream(h soapysdr.StreamHandle, buffs []unsafe.Pointer, numElems uint, _ soapysdr.StreamFlags, timeoutUs int) (soapysdr.ErrorCode, soapysdr.StreamResult) {
	s := h.(*stream)
	res := soapysdr.StreamResult{TimeoutUs: timeoutUs}
	if s.dir != soapysdr.Rx || !s.active {
		return soapysdr.ErrorStreamError, res
	}

	avail := wait(timeoutUs, func() int {
		n := math.MaxInt
		for _, ch := range s.channels {
			n = min(n, d.rings[ch].Length()/d.wireSize)
		}
		return n
	})
	if avail == 0 {
		d.timeouts.Add(1)
		return soapysdr.ErrorTimeout, res
	}
	n := min(int(numElems), int(d.cfg.MTU), avail)

	for i, ch := range s.channels {
		dst := unsafe.Slice((*byte)(buffs[i]), n*s.size)
		data := dst
		if s.format != d.cfg.WireFormat {
			data = s.buffer(n * d.wireSize)
		}
		if _, err := d.rings[ch].Read(data); err != nil {
			d.log.Debug("rx ring read failed", "channel", ch, "error", err)
			return soapysdr.ErrorStreamError, res
		}
		if s.format != d.cfg.WireFormat {
			if err := soapysdr.ConvertRaw(d.cfg.WireFormat, s.format, data, dst, n, s.scale); err != nil {
				d.log.Debug("rx conversion failed", "error", err)
				return soapysdr.ErrorStreamError, res
			}
		}
	}

	res.NumSamples = uint(n)
	res.Flags = soapysdr.FlagHasTime
	res.TimeNs = soapysdr.TicksToTimeNs(s.ticks, d.cfg.SampleRate)
	s.ticks += int64(n)
	d.read.Add(uint64(n))
	return soapysdr.ErrorNone, res
}

// ReadStreamStatus reports one completed transmit burst per call, that is a
// write flagged FlagEndBurst that was accepted in full.
func (d *Device) ReadStreamStatus(h soapysdr.StreamHandle, timeoutUs int) (soapysdr.ErrorCode, soapysdr.StreamResult) {
	s := h.(*stream)
	if s.dir != soapysdr.Tx {
		return soapysdr.ErrorNotSupported, soapysdr.StreamResult{}
	}
	if s.bursts == 0 {
		time.Sleep(time.Duration(timeoutUs) * time.Microsecond)
		return soapysdr.ErrorTimeout, soapysdr.StreamResult{TimeoutUs: timeoutUs}
	}
	s.bursts--
	var mask uint
	for _, ch := range s.channels {
		mask |= 1 << ch
	}
	return soapysdr.ErrorNone, soapysdr.StreamResult{Flags: soapysdr.FlagEndBurst, ChanMask: mask, TimeoutUs: timeoutUs}
}
