//go:build linux

package shm

import (
	"golang.org/x/sys/unix"
)

// OpenExclusive creates the named segment, failing if it already exists.
func OpenExclusive(name string) (int, error) {
	return unix.Open(PathOf(name), unix.O_CREAT|unix.O_EXCL|unix.O_RDWR, 0600)
}

// OpenExisting opens the named segment for read/write mapping.
func OpenExisting(name string) (int, error) {
	return unix.Open(PathOf(name), unix.O_RDWR, 0600)
}

// Truncate sizes the segment backing the descriptor. Freshly created
// segments are zero-filled by the kernel.
func Truncate(fd int, size int64) error {
	return unix.Ftruncate(fd, size)
}

// Map maps size bytes of the segment read/write into this process.
func Map(fd int, size int) ([]byte, error) {
	return unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
}

// Unmap detaches a view previously returned by Map.
func Unmap(b []byte) error {
	return unix.Munmap(b)
}

// Close releases the segment descriptor. The mapping stays valid.
func Close(fd int) error {
	return unix.Close(fd)
}

// Unlink removes the segment name. Existing mappings stay valid until
// the last one detaches.
func Unlink(name string) error {
	return unix.Unlink(PathOf(name))
}
