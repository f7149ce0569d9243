package loopback

import (
	"errors"
	"math"
	"testing"

	"github.com/luizribeiro/SoapySDR/soapysdr"
)

func newDevice(t *testing.T, cfg Config) *Device {
	t.Helper()
	dev, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return dev
}

func activate(t *testing.T, s interface {
	Activate(soapysdr.StreamFlags, int64, uint) (soapysdr.ErrorCode, error)
}) {
	t.Helper()
	code, err := s.Activate(soapysdr.FlagNone, 0, 0)
	if err != nil || code != soapysdr.ErrorNone {
		t.Fatalf("Activate = %s, %v", code, err)
	}
}

func tone(n int) []float32 {
	out := make([]float32, 2*n)
	for i := 0; i < n; i++ {
		phase := 2 * math.Pi * float64(i) / 16
		out[2*i] = float32(0.5 * math.Cos(phase))
		out[2*i+1] = float32(0.5 * math.Sin(phase))
	}
	return out
}

func TestRoundTripSameFormat(t *testing.T) {
	dev := newDevice(t, Config{})
	tx, err := soapysdr.SetupComplexTxStreamOf[float32](dev, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Close()
	rx, err := soapysdr.SetupComplexRxStreamOf[float32](dev, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer rx.Close()
	activate(t, tx)
	activate(t, rx)

	sent := tone(256)
	code, res, err := soapysdr.WriteSingle(tx, sent, soapysdr.FlagNone, 0, 1000)
	if err != nil || code != soapysdr.ErrorNone || res.NumSamples != 256 {
		t.Fatalf("WriteSingle = %s %+v %v", code, res, err)
	}
	if dev.Buffered(0) != 256 {
		t.Errorf("Buffered = %d, want 256", dev.Buffered(0))
	}

	got := make([]float32, len(sent))
	code, res, err = soapysdr.ReadSingle(rx, got, soapysdr.FlagNone, 1000)
	if err != nil || code != soapysdr.ErrorNone || res.NumSamples != 256 {
		t.Fatalf("ReadSingle = %s %+v %v", code, res, err)
	}
	for i := range sent {
		if got[i] != sent[i] {
			t.Fatalf("element %d: got %g, want %g", i, got[i], sent[i])
		}
	}
	if !res.Flags.Has(soapysdr.FlagHasTime) || res.TimeNs != 0 {
		t.Errorf("first read should be stamped at time 0: %+v", res)
	}
	if dev.Transmitted() != 256 || dev.Received() != 256 {
		t.Errorf("counters: tx %d rx %d", dev.Transmitted(), dev.Received())
	}
}

func TestFormatConversionOnTheWire(t *testing.T) {
	dev := newDevice(t, Config{WireFormat: soapysdr.FormatCF32})
	tx, err := soapysdr.SetupComplexTxStreamOf[float32](dev, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	rx, err := soapysdr.SetupComplexRxStreamOf[int16](dev, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	activate(t, tx)
	activate(t, rx)

	sent := tone(64)
	if _, _, err := soapysdr.WriteSingle(tx, sent, soapysdr.FlagNone, 0, 1000); err != nil {
		t.Fatal(err)
	}
	got := make([]int16, len(sent))
	code, res, err := soapysdr.ReadSingle(rx, got, soapysdr.FlagNone, 1000)
	if err != nil || code != soapysdr.ErrorNone || res.NumSamples != 64 {
		t.Fatalf("ReadSingle = %s %+v %v", code, res, err)
	}
	for i := range sent {
		want := math.Round(float64(sent[i]) * math.MaxInt16)
		if d := math.Abs(float64(got[i]) - want); d > 1 {
			t.Fatalf("element %d: got %d, want about %g", i, got[i], want)
		}
	}
}

func TestTimestampsAdvance(t *testing.T) {
	dev := newDevice(t, Config{SampleRate: 2e6})
	tx, _ := soapysdr.SetupComplexTxStreamOf[float32](dev, nil, nil)
	rx, _ := soapysdr.SetupComplexRxStreamOf[float32](dev, nil, nil)
	activate(t, tx)
	activate(t, rx)

	if _, _, err := soapysdr.WriteSingle(tx, tone(200), soapysdr.FlagNone, 0, 1000); err != nil {
		t.Fatal(err)
	}
	buf := make([]float32, 200)
	if _, _, err := soapysdr.ReadSingle(rx, buf, soapysdr.FlagNone, 1000); err != nil {
		t.Fatal(err)
	}
	_, res, err := soapysdr.ReadSingle(rx, buf, soapysdr.FlagNone, 1000)
	if err != nil {
		t.Fatal(err)
	}
	// 100 samples at 2 MHz.
	if res.TimeNs != 50_000 {
		t.Errorf("TimeNs = %d, want 50000", res.TimeNs)
	}
}

func TestReadTimesOutWhenEmpty(t *testing.T) {
	dev := newDevice(t, Config{})
	rx, err := soapysdr.SetupComplexRxStreamOf[float32](dev, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	activate(t, rx)

	code, res, err := soapysdr.ReadSingle(rx, make([]float32, 16), soapysdr.FlagNone, 500)
	if err != nil {
		t.Fatal(err)
	}
	if code != soapysdr.ErrorTimeout || res.NumSamples != 0 {
		t.Errorf("empty read = %s %+v, want TIMEOUT", code, res)
	}
	if dev.Timeouts() != 1 {
		t.Errorf("Timeouts = %d, want 1", dev.Timeouts())
	}
}

func TestWriteTimesOutWhenFull(t *testing.T) {
	dev := newDevice(t, Config{Capacity: 32, MTU: 64})
	tx, err := soapysdr.SetupComplexTxStreamOf[float32](dev, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	activate(t, tx)

	buf := tone(48)
	code, res, err := soapysdr.WriteSingle(tx, buf, soapysdr.FlagNone, 0, 0)
	if err != nil || code != soapysdr.ErrorNone {
		t.Fatalf("first write = %s %v", code, err)
	}
	if res.NumSamples != 32 {
		t.Errorf("partial write accepted %d, want 32", res.NumSamples)
	}
	code, _, _ = soapysdr.WriteSingle(tx, buf, soapysdr.FlagNone, 0, 200)
	if code != soapysdr.ErrorTimeout {
		t.Errorf("write to full ring = %s, want TIMEOUT", code)
	}
}

func TestMTULimitsTransfer(t *testing.T) {
	dev := newDevice(t, Config{MTU: 100})
	tx, _ := soapysdr.SetupComplexTxStreamOf[float32](dev, nil, nil)
	activate(t, tx)
	mtu, err := tx.MTU()
	if err != nil || mtu != 100 {
		t.Fatalf("MTU = %d, %v", mtu, err)
	}
	_, res, err := soapysdr.WriteSingle(tx, tone(250), soapysdr.FlagNone, 0, 1000)
	if err != nil || res.NumSamples != 100 {
		t.Errorf("write of 250 samples accepted %d, want MTU 100 (%v)", res.NumSamples, err)
	}
}

func TestMultiChannel(t *testing.T) {
	dev := newDevice(t, Config{Channels: 2, WireFormat: soapysdr.FormatCS16})
	tx, err := soapysdr.SetupComplexTxStreamOf[int16](dev, []uint{0, 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	rx1, err := soapysdr.SetupComplexRxStreamOf[int16](dev, []uint{1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	activate(t, tx)
	activate(t, rx1)

	a := []int16{1, 2, 3, 4}
	b := []int16{5, 6, 7, 8}
	if _, _, err := soapysdr.Write(tx, [][]int16{a, b}, soapysdr.FlagNone, 0, 1000); err != nil {
		t.Fatal(err)
	}
	got := make([]int16, 4)
	if _, res, err := soapysdr.ReadSingle(rx1, got, soapysdr.FlagNone, 1000); err != nil || res.NumSamples != 2 {
		t.Fatalf("read = %+v %v", res, err)
	}
	for i := range b {
		if got[i] != b[i] {
			t.Errorf("channel 1 element %d: got %d, want %d", i, got[i], b[i])
		}
	}
	if dev.Buffered(0) != 2 || dev.Buffered(1) != 0 {
		t.Errorf("buffered = %d/%d, want 2/0", dev.Buffered(0), dev.Buffered(1))
	}

	dev.Reset()
	if dev.Buffered(0) != 0 {
		t.Error("Reset left data behind")
	}
}

func TestBurstStatus(t *testing.T) {
	dev := newDevice(t, Config{})
	tx, _ := soapysdr.SetupComplexTxStreamOf[float32](dev, nil, nil)
	activate(t, tx)

	code, _, err := tx.ReadStatus(0)
	if err != nil || code != soapysdr.ErrorTimeout {
		t.Errorf("status with no burst = %s %v, want TIMEOUT", code, err)
	}

	if _, _, err := soapysdr.WriteSingle(tx, tone(32), soapysdr.FlagEndBurst, 0, 1000); err != nil {
		t.Fatal(err)
	}
	code, res, err := tx.ReadStatus(0)
	if err != nil || code != soapysdr.ErrorNone || !res.Flags.Has(soapysdr.FlagEndBurst) || res.ChanMask != 1 {
		t.Errorf("status after burst = %s %+v %v", code, res, err)
	}
}

func TestSetupErrors(t *testing.T) {
	dev := newDevice(t, Config{Channels: 1})
	if _, err := soapysdr.SetupTxStream(dev, soapysdr.FormatCF32, []uint{1}, nil); err == nil {
		t.Error("out of range channel accepted")
	}
	if _, err := soapysdr.SetupRxStream(dev, "CX99", nil, nil); err == nil {
		t.Error("unknown format accepted")
	}
	// No converter from CF32 to CU32 is registered.
	if _, err := soapysdr.SetupRxStream(dev, soapysdr.FormatCU32, nil, nil); !errors.Is(err, soapysdr.ErrUnsupportedPair) {
		t.Errorf("unconvertible format: got %v, want ErrUnsupportedPair", err)
	}
	if _, err := New(Config{WireFormat: "bogus"}); err == nil {
		t.Error("unknown wire format accepted")
	}
}

func TestTransfersNeedActiveStream(t *testing.T) {
	dev := newDevice(t, Config{})
	tx, _ := soapysdr.SetupComplexTxStreamOf[float32](dev, nil, nil)
	code, _, err := soapysdr.WriteSingle(tx, tone(4), soapysdr.FlagNone, 0, 0)
	if err != nil || code != soapysdr.ErrorStreamError {
		t.Errorf("write before activate = %s %v, want STREAM_ERROR", code, err)
	}

	code, err = tx.Activate(soapysdr.FlagHasTime, 1000, 0)
	if err != nil || code != soapysdr.ErrorNotSupported {
		t.Errorf("timed activate = %s %v, want NOT_SUPPORTED", code, err)
	}
	if code, _, _ := soapysdr.WriteSingle(tx, tone(4), soapysdr.FlagNone, 0, 0); code != soapysdr.ErrorNone {
		t.Errorf("write after activate = %s", code)
	}
}

func TestFullScale(t *testing.T) {
	tests := map[string]float64{
		soapysdr.FormatCF32: 1,
		soapysdr.FormatF64:  1,
		soapysdr.FormatCS16: 32767,
		soapysdr.FormatU16:  32767,
		soapysdr.FormatCS12: 32767,
		soapysdr.FormatCS8:  127,
		soapysdr.FormatU8:   127,
		soapysdr.FormatS32:  math.MaxInt32,
	}
	for format, want := range tests {
		if got := FullScale(format); got != want {
			t.Errorf("FullScale(%s) = %g, want %g", format, got, want)
		}
	}
}

func TestOneTransmitStreamPerChannel(t *testing.T) {
	dev := newDevice(t, Config{Channels: 2})
	tx, err := soapysdr.SetupComplexTxStreamOf[float32](dev, []uint{0, 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := soapysdr.SetupComplexTxStreamOf[float32](dev, []uint{1}, nil); err == nil {
		t.Error("second transmit stream on channel 1 accepted")
	}
	if _, err := soapysdr.SetupComplexRxStreamOf[float32](dev, []uint{1}, nil); err != nil {
		t.Errorf("receive stream on a transmitting channel rejected: %v", err)
	}

	if err := tx.Close(); err != nil {
		t.Fatal(err)
	}
	if _, err := soapysdr.SetupComplexTxStreamOf[float32](dev, []uint{1}, nil); err != nil {
		t.Errorf("channel not released by Close: %v", err)
	}
	// A failed setup must not leave its channels claimed.
	if _, err := soapysdr.SetupTxStream(dev, soapysdr.FormatCU32, []uint{0}, nil); err == nil {
		t.Fatal("unconvertible transmit format accepted")
	}
	if _, err := soapysdr.SetupComplexTxStreamOf[float32](dev, []uint{0}, nil); err != nil {
		t.Errorf("channel 0 left claimed by a failed setup: %v", err)
	}
}

func TestSubHertzSampleRate(t *testing.T) {
	dev := newDevice(t, Config{SampleRate: 0.5})
	tx, _ := soapysdr.SetupComplexTxStreamOf[float32](dev, nil, nil)
	rx, _ := soapysdr.SetupComplexRxStreamOf[float32](dev, nil, nil)
	activate(t, tx)
	activate(t, rx)

	if _, _, err := soapysdr.WriteSingle(tx, tone(4), soapysdr.FlagNone, 0, 1000); err != nil {
		t.Fatal(err)
	}
	buf := make([]float32, 4)
	if _, _, err := soapysdr.ReadSingle(rx, buf, soapysdr.FlagNone, 1000); err != nil {
		t.Fatal(err)
	}
	_, res, err := soapysdr.ReadSingle(rx, buf, soapysdr.FlagNone, 1000)
	if err != nil {
		t.Fatal(err)
	}
	// Two samples at 0.5 Hz.
	if res.TimeNs != 4_000_000_000 {
		t.Errorf("TimeNs = %d, want 4000000000", res.TimeNs)
	}
}
