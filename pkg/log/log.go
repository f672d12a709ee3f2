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

// Package log implements a single-writer, multi-reader append-only
// record log over a shared memory region.
//
// Region layout:
//
//	offset 0                 condvar (8 bytes)
//	offset 8                 uint64 sequence counter
//	first aligned offset     record slots, contiguous
//
// The first slot begins at the first offset at or past the header that
// is a multiple of the record size, so records stay naturally aligned.
// The sequence counter equals the number of records written; record i
// (1-based) occupies slot i-1. Capacity is fixed at creation.
//
// Record types must be fixed-size and trivially copyable: no pointers,
// maps, slices, strings, or channels. The bytes of the value are what
// crosses the process boundary.
package log

import (
	"errors"
	"fmt"
	"unsafe"

	internalshm "github.com/srediag/shm-ipc/internal/shm"
	"github.com/srediag/shm-ipc/internal/metrics"
	"github.com/srediag/shm-ipc/pkg/condvar"
	"github.com/srediag/shm-ipc/pkg/shm"
)

const (
	seqOffset  = condvar.Size
	headerSize = condvar.Size + 8
)

var (
	// ErrNoSpaceLeft reports an insert into a full log. Nothing is
	// written; the caller may recover (e.g. size the next run larger).
	ErrNoSpaceLeft = errors.New("log: no space left in shared memory")
	// ErrNotifyFailed reports that a record was durably written and
	// counted but waking the consumers failed. A liveness problem for
	// consumers, not data loss.
	ErrNotifyFailed = errors.New("log: consumer notification failed")
)

// layout computes the record geometry for type R inside a region of the
// given size.
func layout[R any](regionSize int) (recSize, slotsStart, capacity int) {
	recSize = int(unsafe.Sizeof(*new(R)))
	slotsStart = (headerSize + recSize - 1) / recSize * recSize
	capacity = regionSize/recSize - slotsStart/recSize
	if capacity < 0 {
		capacity = 0
	}
	return recSize, slotsStart, capacity
}

// Producer is the single writer of a log. It borrows the owning region
// for its whole lifetime; its free-slot cursor lives only in process
// memory.
type Producer[R any] struct {
	region     *shm.Region
	cv         *condvar.Condvar
	mem        []byte
	recSize    int
	slotsStart int
	next       int
	available  int
}

// NewProducer lays a fresh log over the owning region. The sequence
// counter is reset to zero; any consumer must attach after this.
func NewProducer[R any](region *shm.Region) *Producer[R] {
	mem := region.Bytes()
	recSize, slotsStart, capacity := layout[R](len(mem))
	internalshm.AtomicStoreUint64(unsafe.Pointer(&mem[seqOffset]), 0)
	return &Producer[R]{
		region:     region,
		cv:         condvar.At(mem),
		mem:        mem,
		recSize:    recSize,
		slotsStart: slotsStart,
		available:  capacity,
	}
}

// Capacity returns the number of record slots the region holds.
func (p *Producer[R]) Capacity() int {
	return p.available + p.next
}

// Insert appends a record and wakes all waiting consumers.
//
// The slot is written before the sequence counter advances, so no
// consumer can observe a partial record. When the log is full, nothing
// is written and ErrNoSpaceLeft returns. When the write succeeds but
// the wake-up fails, ErrNotifyFailed returns and the record remains
// written and counted.
func (p *Producer[R]) Insert(record R) error {
	if p.available <= 0 {
		metrics.CapacityRejections.Inc()
		return ErrNoSpaceLeft
	}
	off := p.slotsStart + p.next*p.recSize
	*(*R)(unsafe.Pointer(&p.mem[off])) = record
	seqPtr := unsafe.Pointer(&p.mem[seqOffset])
	internalshm.AtomicStoreUint64(seqPtr, internalshm.AtomicLoadUint64(seqPtr)+1)
	p.next++
	p.available--
	metrics.RecordsInserted.Inc()
	if _, err := p.cv.NotifyAll(); err != nil {
		metrics.NotifyFailures.Inc()
		return fmt.Errorf("%w: %v", ErrNotifyFailed, err)
	}
	return nil
}

// Consumer reads a log in insertion order. Any number of consumers may
// run concurrently across processes; each keeps its own cursor and
// mutates nothing shared.
type Consumer[R any] struct {
	region     *shm.Region
	cv         *condvar.Condvar
	mem        []byte
	recSize    int
	slotsStart int
	next       uint64
}

// NewConsumer attaches a consumer to a log region mapped by Open. The
// cursor starts at the first record; a reattaching consumer replays the
// log from the beginning.
func NewConsumer[R any](region *shm.Region) *Consumer[R] {
	mem := region.Bytes()
	recSize, slotsStart, _ := layout[R](len(mem))
	return &Consumer[R]{
		region:     region,
		cv:         condvar.At(mem),
		mem:        mem,
		recSize:    recSize,
		slotsStart: slotsStart,
		next:       1,
	}
}

// Next returns the next record in sequence order, blocking on the log's
// condition variable until it is available. The second result is false
// when a signal interrupted the wait before the record appeared: no
// record was consumed and the caller is expected to call Next again.
//
// A wake-up only means the sequence counter moved, so Next re-samples
// the counter after every wake and keeps waiting until its own record
// is published.
func (c *Consumer[R]) Next() (R, bool) {
	seqPtr := unsafe.Pointer(&c.mem[seqOffset])
	for {
		if internalshm.AtomicLoadUint64(seqPtr) >= c.next {
			off := c.slotsStart + int(c.next-1)*c.recSize
			record := *(*R)(unsafe.Pointer(&c.mem[off]))
			c.next++
			return record, true
		}
		if err := c.cv.Wait(); err != nil {
			var zero R
			return zero, false
		}
	}
}
