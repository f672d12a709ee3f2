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

// Package stream provides a plain byte stream over a shared memory
// region, with no synchronization of its own.
//
// Layout: a uint64 written-count at the region head, data bytes from
// offset 8. The writer appends and publishes the new count; a reader
// consumes up to the published count at its own pace.
//
// There is no built-in notification: a reader that has caught up gets
// an empty read, and learning when more bytes arrive is the caller's
// business (poll, or signal out of band; pkg/log shows how to build
// that on pkg/condvar). This is the degenerate special case of the log
// protocol for callers that just want bytes.
package stream

import (
	"io"
	"unsafe"

	internalshm "github.com/srediag/shm-ipc/internal/shm"
	"github.com/srediag/shm-ipc/pkg/shm"
)

const headerSize = 8

// Writer appends bytes to a shared memory region it owns. It implements
// io.Writer. A single writer is supported.
type Writer struct {
	region    *shm.Region
	mem       []byte
	written   int
	available int
}

// NewWriter lays a fresh byte stream over the owning region.
func NewWriter(region *shm.Region) *Writer {
	mem := region.Bytes()
	internalshm.AtomicStoreUint64(unsafe.Pointer(&mem[0]), 0)
	available := len(mem) - headerSize
	if available < 0 {
		available = 0
	}
	return &Writer{region: region, mem: mem, available: available}
}

// Write appends p to the stream. The bytes land before the published
// count moves, so a reader never sees unwritten data. When the region
// cannot hold all of p, the prefix that fits is written and
// io.ErrShortWrite returns with the short count.
func (w *Writer) Write(p []byte) (int, error) {
	writable := len(p)
	if writable > w.available {
		writable = w.available
	}
	if writable > 0 {
		copy(w.mem[headerSize+w.written:], p[:writable])
		w.written += writable
		w.available -= writable
		internalshm.AtomicStoreUint64(unsafe.Pointer(&w.mem[0]), uint64(w.written))
	}
	if writable < len(p) {
		return writable, io.ErrShortWrite
	}
	return writable, nil
}

// Reader consumes bytes from a shared memory stream written by another
// process. It implements io.Reader.
type Reader struct {
	region *shm.Region
	mem    []byte
	read   int
}

// NewReader attaches a reader to a stream region mapped by Open.
func NewReader(region *shm.Region) *Reader {
	return &Reader{region: region, mem: region.Bytes()}
}

// Read copies up to len(p) published-but-unread bytes into p. A reader
// that has caught up with the writer gets (0, nil): without an
// out-of-band signal there is no way to distinguish "nothing yet" from
// "nothing ever", and blocking is not this package's job.
func (r *Reader) Read(p []byte) (int, error) {
	written := int(internalshm.AtomicLoadUint64(unsafe.Pointer(&r.mem[0])))
	readable := written - r.read
	if readable > len(p) {
		readable = len(p)
	}
	if readable <= 0 {
		return 0, nil
	}
	copy(p, r.mem[headerSize+r.read:headerSize+r.read+readable])
	r.read += readable
	return readable, nil
}
