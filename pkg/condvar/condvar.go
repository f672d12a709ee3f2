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

// Package condvar provides a condition variable that works across
// process boundaries.
//
// Ordinary condition variables block on a primitive scoped to the
// creating process and cannot be waited on by unrelated processes. This
// one is a bare generation counter embedded in a shared memory mapping,
// waited on through the kernel's shared futex facility: any process
// mapping the same physical word can block on it and be woken.
//
// The counter makes the primitive stateless with respect to who is
// waiting and closes the missed-wakeup window: a waiter samples the
// generation before blocking, and the kernel refuses to put it to sleep
// if the generation already moved. A wake only means the generation
// advanced at least once; it says nothing about the waiter's own
// predicate, which must be re-checked in a loop.
package condvar

import (
	"errors"
	"math"
	"unsafe"

	"golang.org/x/sys/unix"

	internalshm "github.com/srediag/shm-ipc/internal/shm"
	"github.com/srediag/shm-ipc/pkg/shm"
)

// Size is the number of bytes a Condvar occupies inside a region. The
// futex word itself is 4 bytes; the remainder keeps whatever follows
// the Condvar 8-byte aligned.
const Size = 8

var (
	// ErrWaitInterrupted reports that a signal interrupted the wait
	// before the generation advanced. A normal condition: the caller
	// decides whether to wait again.
	ErrWaitInterrupted = errors.New("condvar: wait interrupted by signal")
	// ErrInvalidWakeArguments reports a malformed wake request. This
	// indicates a layout or logic bug and should be treated as fatal.
	ErrInvalidWakeArguments = errors.New("condvar: invalid wake arguments")
)

// Condvar is a view over a generation counter living in shared memory.
// It holds no process-local state; every process mapping the region
// constructs its own view of the same word with At.
type Condvar struct {
	word *uint32
}

// At returns the Condvar view over the first Size bytes of b. b must be
// naturally aligned for a uint32; bytes straight off a region head are
// page-aligned and always qualify.
func At(b []byte) *Condvar {
	_ = b[Size-1]
	return &Condvar{word: (*uint32)(unsafe.Pointer(&b[0]))}
}

// Wait blocks the calling thread until the generation counter changes
// from the value observed at call time. Returns ErrWaitInterrupted when
// a signal cuts the wait short; the caller chooses whether to retry.
//
// A return is not a precise barrier: it guarantees the generation
// advanced at least once since Wait began, nothing more. Callers
// re-check their own condition and wait again if it does not hold.
func (c *Condvar) Wait() error {
	observed := internalshm.AtomicLoadUint32(unsafe.Pointer(c.word))
	for internalshm.AtomicLoadUint32(unsafe.Pointer(c.word)) == observed {
		err := c.futexWait(observed)
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *Condvar) futexWait(observed uint32) error {
	err := internalshm.FutexWait(c.word, observed)
	if err == nil {
		return nil
	}
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return err
	}
	switch errno {
	case unix.EINTR:
		return ErrWaitInterrupted
	case unix.EAGAIN:
		// The word already moved on between our load and the kernel's
		// check. The outer loop will see the new generation.
		return nil
	default:
		return &shm.UnmappedError{Op: "futex wait", Errno: errno}
	}
}

// NotifyAll advances the generation counter and wakes every thread
// currently blocked on it, in any process. Returns the number of
// waiters actually woken.
func (c *Condvar) NotifyAll() (int, error) {
	internalshm.AtomicAddUint32(unsafe.Pointer(c.word), 1)
	woken, err := internalshm.FutexWake(c.word, math.MaxInt32)
	if err == nil {
		return woken, nil
	}
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return 0, err
	}
	if errno == unix.EINVAL {
		return 0, ErrInvalidWakeArguments
	}
	return 0, &shm.UnmappedError{Op: "futex wake", Errno: errno}
}
