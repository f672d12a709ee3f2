// Package shm contains platform helpers for named shared memory segments:
// raw open/map/unlink syscall wrappers, futex wait/wake, and atomic access
// to words living inside a mapping.
//
// Errors returned by this package are raw errnos; callers map them into
// their own taxonomy.
package shm

import "path/filepath"

// Dir is the kernel tmpfs backing the POSIX shared memory namespace.
// glibc shm_open resolves names under the same mount.
const Dir = "/dev/shm"

// PathOf returns the backing path of a named segment.
func PathOf(name string) string {
	return filepath.Join(Dir, name)
}
