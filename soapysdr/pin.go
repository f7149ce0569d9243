package soapysdr

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"
)

// pinnedAddrs holds the base address of every buffer currently pinned for a
// native transfer. A buffer may belong to at most one transfer at a time.
var pinnedAddrs = struct {
	sync.Mutex
	m map[uintptr]struct{}
}{m: make(map[uintptr]struct{})}

// PinnedBuffer is a scoped acquisition of a stable address for a caller-owned
// buffer. The address stays valid, and the memory is neither moved nor
// collected, until Release is called. Release is idempotent.
//
// Typical use:
//
//	pb, err := soapysdr.AcquireStableAddress(buf)
//	if err != nil {
//	    return err
//	}
//	defer pb.Release()
//	native(pb.Addr())
type PinnedBuffer struct {
	mu       sync.Mutex
	addr     unsafe.Pointer
	pinner   runtime.Pinner
	released bool
}

// AcquireStableAddress pins buf and returns its scoped address. It fails with
// ErrAcquisitionFailed for an empty buffer or one already pinned by another
// transfer.
func AcquireStableAddress[T Sample](buf []T) (*PinnedBuffer, error) {
	if len(buf) == 0 {
		return nil, fmt.Errorf("%w: buffer is empty", ErrAcquisitionFailed)
	}
	data := unsafe.SliceData(buf)
	key := uintptr(unsafe.Pointer(data))

	pinnedAddrs.Lock()
	defer pinnedAddrs.Unlock()
	if _, busy := pinnedAddrs.m[key]; busy {
		return nil, fmt.Errorf("%w: buffer at %#x is already pinned", ErrAcquisitionFailed, key)
	}

	pb := &PinnedBuffer{addr: unsafe.Pointer(data)}
	pb.pinner.Pin(data)
	pinnedAddrs.m[key] = struct{}{}
	return pb, nil
}

// Addr returns the pinned address, or nil once released.
func (pb *PinnedBuffer) Addr() unsafe.Pointer {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.released {
		return nil
	}
	return pb.addr
}

// Release unpins the buffer. Calling it more than once is a no-op.
func (pb *PinnedBuffer) Release() {
	pb.mu.Lock()
	defer pb.mu.Unlock()
	if pb.released {
		return
	}
	pb.released = true
	pb.pinner.Unpin()

	pinnedAddrs.Lock()
	delete(pinnedAddrs.m, uintptr(pb.addr))
	pinnedAddrs.Unlock()
}

// pinScope pins all channel buffers of one transfer together, so the native
// call sees a consistent set of addresses, and releases them together.
type pinScope struct {
	pins  []*PinnedBuffer
	addrs []unsafe.Pointer
}

// pinBuffers acquires every buffer in buffs or none of them.
func pinBuffers[T Sample](buffs [][]T) (*pinScope, error) {
	scope := &pinScope{
		pins:  make([]*PinnedBuffer, 0, len(buffs)),
		addrs: make([]unsafe.Pointer, 0, len(buffs)),
	}
	for i, b := range buffs {
		pb, err := AcquireStableAddress(b)
		if err != nil {
			scope.release()
			return nil, fmt.Errorf("channel %d: %w", i, err)
		}
		scope.pins = append(scope.pins, pb)
		scope.addrs = append(scope.addrs, pb.addr)
	}
	return scope, nil
}

func (s *pinScope) release() {
	for _, pb := range s.pins {
		pb.Release()
	}
}

// isPinned reports whether the buffer starting at p is held by a transfer.
func isPinned(p unsafe.Pointer) bool {
	pinnedAddrs.Lock()
	defer pinnedAddrs.Unlock()
	_, ok := pinnedAddrs.m[uintptr(p)]
	return ok
}
