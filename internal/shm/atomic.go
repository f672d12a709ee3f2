package shm

import (
	"sync/atomic"
	"unsafe"
)

// Atomic access to words inside a mapping. The mapped memory is mutated
// by other processes, so ordinary loads and stores must not be used for
// the counters that publish data: the compiler is free to cache them.
// addr must be naturally aligned; mappings are page-aligned, so any
// offset that is a multiple of the word size qualifies.

// AtomicLoadUint64 loads a uint64 from shared memory atomically.
func AtomicLoadUint64(addr unsafe.Pointer) uint64 {
	return atomic.LoadUint64((*uint64)(addr))
}

// AtomicStoreUint64 stores a uint64 to shared memory atomically.
func AtomicStoreUint64(addr unsafe.Pointer, val uint64) {
	atomic.StoreUint64((*uint64)(addr), val)
}

// AtomicLoadUint32 loads a uint32 from shared memory atomically.
func AtomicLoadUint32(addr unsafe.Pointer) uint32 {
	return atomic.LoadUint32((*uint32)(addr))
}

// AtomicAddUint32 atomically adds delta to the uint32 in shared memory
// and returns the new value.
func AtomicAddUint32(addr unsafe.Pointer, delta uint32) uint32 {
	return atomic.AddUint32((*uint32)(addr), delta)
}
