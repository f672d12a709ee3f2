//go:build linux

package shm

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// Futex operation codes from the Linux ABI (include/uapi/linux/futex.h);
// golang.org/x/sys/unix does not export them.
const (
	futexWait = 0 // FUTEX_WAIT
	futexWake = 1 // FUTEX_WAKE
)

// The futex word is addressed by its physical page, so any process mapping
// the same segment can wait on it. FUTEX_PRIVATE_FLAG is deliberately not
// set: the private form keys the wait queue to the calling process and is
// invisible to unrelated processes mapping the same memory.

// FutexWait blocks until the word at addr no longer holds val, or the
// calling thread is interrupted by a signal (EINTR). Returns EAGAIN
// immediately when the word already differs from val.
func FutexWait(addr *uint32, val uint32) error {
	_, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWait),
		uintptr(val),
		0, 0, 0,
	)
	if errno != 0 {
		return errno
	}
	return nil
}

// FutexWake wakes up to count waiters blocked on the word at addr and
// returns how many were actually woken.
func FutexWake(addr *uint32, count int) (int, error) {
	woken, _, errno := unix.Syscall6(
		unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		uintptr(futexWake),
		uintptr(count),
		0, 0, 0,
	)
	if errno != 0 {
		return 0, errno
	}
	return int(woken), nil
}
