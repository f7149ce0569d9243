package soapysdr

import (
	"errors"
	"testing"
	"unsafe"
)

func TestAcquireStableAddress(t *testing.T) {
	buf := make([]int16, 16)
	pb, err := AcquireStableAddress(buf)
	if err != nil {
		t.Fatalf("AcquireStableAddress failed: %v", err)
	}
	if pb.Addr() != unsafe.Pointer(&buf[0]) {
		t.Error("Addr does not point at the buffer")
	}
	if !isPinned(unsafe.Pointer(&buf[0])) {
		t.Error("buffer not registered as pinned")
	}

	// Already pinned elsewhere.
	if _, err := AcquireStableAddress(buf); !errors.Is(err, ErrAcquisitionFailed) {
		t.Errorf("second acquisition: got %v, want ErrAcquisitionFailed", err)
	}

	pb.Release()
	pb.Release()
	if pb.Addr() != nil {
		t.Error("Addr should be nil after Release")
	}
	if isPinned(unsafe.Pointer(&buf[0])) {
		t.Error("buffer still registered after Release")
	}

	pb2, err := AcquireStableAddress(buf)
	if err != nil {
		t.Fatalf("reacquisition after release failed: %v", err)
	}
	pb2.Release()
}

func TestAcquireEmptyBuffer(t *testing.T) {
	if _, err := AcquireStableAddress([]float32{}); !errors.Is(err, ErrAcquisitionFailed) {
		t.Errorf("empty buffer: got %v, want ErrAcquisitionFailed", err)
	}
	if _, err := AcquireStableAddress[uint8](nil); !errors.Is(err, ErrAcquisitionFailed) {
		t.Errorf("nil buffer: got %v, want ErrAcquisitionFailed", err)
	}
}

func TestPinBuffersRollback(t *testing.T) {
	a := make([]float32, 8)
	b := make([]float32, 8)
	c := make([]float32, 8)

	held, err := AcquireStableAddress(c)
	if err != nil {
		t.Fatal(err)
	}
	defer held.Release()

	_, err = pinBuffers([][]float32{a, b, c})
	if !errors.Is(err, ErrAcquisitionFailed) {
		t.Fatalf("got %v, want ErrAcquisitionFailed", err)
	}
	if isPinned(unsafe.Pointer(&a[0])) || isPinned(unsafe.Pointer(&b[0])) {
		t.Error("partial acquisition was not rolled back")
	}
	if !isPinned(unsafe.Pointer(&c[0])) {
		t.Error("rollback released a pin it did not own")
	}
}

func TestPinBuffersScope(t *testing.T) {
	buffs := [][]uint8{make([]uint8, 4), make([]uint8, 4)}
	scope, err := pinBuffers(buffs)
	if err != nil {
		t.Fatal(err)
	}
	if len(scope.addrs) != 2 || scope.addrs[1] != unsafe.Pointer(&buffs[1][0]) {
		t.Errorf("unexpected addresses %v", scope.addrs)
	}
	scope.release()
	scope.release()
	for i := range buffs {
		if isPinned(unsafe.Pointer(&buffs[i][0])) {
			t.Errorf("channel %d still pinned", i)
		}
	}
}

func TestPinSameBufferTwiceInOneSet(t *testing.T) {
	shared := make([]int8, 4)
	if _, err := pinBuffers([][]int8{shared, shared}); !errors.Is(err, ErrAcquisitionFailed) {
		t.Errorf("aliased channels: got %v, want ErrAcquisitionFailed", err)
	}
	if isPinned(unsafe.Pointer(&shared[0])) {
		t.Error("aliased buffer left pinned")
	}
}
