/*
 * Copyright 2025 SREDiag Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package dict implements a keyed dictionary with last-write-wins
// semantics over a shared memory region.
//
// The physical layout is the log's, without the condition variable:
//
//	offset 0                 uint64 written-count
//	first aligned offset     record slots, contiguous
//
// The owner keeps at most one live slot per key: a put for a known key
// overwrites that key's original slot in place, consuming no capacity
// and never advancing the append cursor. Clients lazily build a private
// key-to-slot index by scanning records as they appear; the index is a
// cache over the shared written-count, extended incrementally and never
// invalidated. An indexed slot may have been overwritten since it was
// scanned, which is the point: lookups always read the slot's current
// value, and the index is never used to recover history.
//
// Record types follow the log's contract (fixed-size, trivially
// copyable) and additionally expose a comparable key via Keyed.
package dict

import (
	"errors"
	"unsafe"

	internalshm "github.com/srediag/shm-ipc/internal/shm"
	"github.com/srediag/shm-ipc/internal/metrics"
	"github.com/srediag/shm-ipc/pkg/shm"
)

// headerSize covers the written-count word at the region head.
const headerSize = 8

var (
	// ErrOutOfMemory reports a put into a dictionary whose slot
	// capacity is exhausted. Recoverable by the caller; never silent.
	ErrOutOfMemory = errors.New("dict: out of memory")
	// ErrNoSuchKey reports a lookup for a key no record carries. An
	// expected condition: "not yet written" and "will never exist"
	// look the same from here.
	ErrNoSuchKey = errors.New("dict: no such key")
)

// Keyed is the contract dictionary records add on top of the log's
// record contract: a comparable key derived from the value.
type Keyed[K comparable] interface {
	Key() K
}

func layout[R any](regionSize int) (recSize, slotsStart, capacity int) {
	recSize = int(unsafe.Sizeof(*new(R)))
	slotsStart = (headerSize + recSize - 1) / recSize * recSize
	capacity = regionSize/recSize - slotsStart/recSize
	if capacity < 0 {
		capacity = 0
	}
	return recSize, slotsStart, capacity
}

// Owner is the single writer of a dictionary. Its key-to-slot index is
// private; only the written-count and the slots are shared.
type Owner[K comparable, R Keyed[K]] struct {
	region     *shm.Region
	mem        []byte
	recSize    int
	slotsStart int
	next       int
	available  int
	index      map[K]int
}

// NewOwner lays a fresh dictionary over the owning region and resets
// the written-count.
func NewOwner[K comparable, R Keyed[K]](region *shm.Region) *Owner[K, R] {
	mem := region.Bytes()
	recSize, slotsStart, capacity := layout[R](len(mem))
	internalshm.AtomicStoreUint64(unsafe.Pointer(&mem[0]), 0)
	return &Owner[K, R]{
		region:     region,
		mem:        mem,
		recSize:    recSize,
		slotsStart: slotsStart,
		available:  capacity,
		index:      make(map[K]int),
	}
}

// Capacity returns the number of distinct keys the dictionary can hold.
func (o *Owner[K, R]) Capacity() int {
	return o.available + o.next
}

// Put stores a record under its key. A fresh key appends to the next
// free slot and advances the written-count; a known key overwrites the
// slot originally allocated for it, in place. Fails with ErrOutOfMemory
// when capacity is exhausted.
func (o *Owner[K, R]) Put(record R) error {
	if o.available <= 0 {
		metrics.CapacityRejections.Inc()
		return ErrOutOfMemory
	}
	key := record.Key()
	if slot, ok := o.index[key]; ok {
		off := o.slotsStart + slot*o.recSize
		*(*R)(unsafe.Pointer(&o.mem[off])) = record
		return nil
	}
	off := o.slotsStart + o.next*o.recSize
	*(*R)(unsafe.Pointer(&o.mem[off])) = record
	countPtr := unsafe.Pointer(&o.mem[0])
	internalshm.AtomicStoreUint64(countPtr, internalshm.AtomicLoadUint64(countPtr)+1)
	o.index[key] = o.next
	o.next++
	o.available--
	metrics.RecordsInserted.Inc()
	return nil
}

// Client reads a dictionary written by another process. Each client
// maintains its own index and cursor; clients never coordinate.
type Client[K comparable, R Keyed[K]] struct {
	region     *shm.Region
	mem        []byte
	recSize    int
	slotsStart int
	nextRead   int
	index      map[K]int
}

// NewClient attaches a client to a dictionary region mapped by Open.
func NewClient[K comparable, R Keyed[K]](region *shm.Region) *Client[K, R] {
	mem := region.Bytes()
	recSize, slotsStart, _ := layout[R](len(mem))
	return &Client[K, R]{
		region:     region,
		mem:        mem,
		recSize:    recSize,
		slotsStart: slotsStart,
		index:      make(map[K]int),
	}
}

// Get returns the latest value stored under key. The private index is
// first caught up with every record that appeared since the last call;
// then the key's current slot is read. Fails with ErrNoSuchKey when no
// record carries the key even after catching up.
func (c *Client[K, R]) Get(key K) (R, error) {
	count := int(internalshm.AtomicLoadUint64(unsafe.Pointer(&c.mem[0])))
	for c.nextRead < count {
		off := c.slotsStart + c.nextRead*c.recSize
		record := *(*R)(unsafe.Pointer(&c.mem[off]))
		c.index[record.Key()] = c.nextRead
		c.nextRead++
	}
	slot, ok := c.index[key]
	if !ok {
		var zero R
		return zero, ErrNoSuchKey
	}
	off := c.slotsStart + slot*c.recSize
	return *(*R)(unsafe.Pointer(&c.mem[off])), nil
}
