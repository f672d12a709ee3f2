// Package shm manages named shared memory segments for inter-process
// communication.
//
// A segment is identified by a Definition (name plus byte size) and
// realized in the calling process by Create or Open. Create builds the
// segment exclusively and returns an owning Region that destroys the
// name on Close; Open attaches to a segment created elsewhere and only
// detaches its own view on Close. Both sides must agree on name and
// size out of band; the package does not validate size across
// processes.
//
// The mapped bytes are raw: this package knows nothing about interior
// layout. Higher-level protocols (pkg/log, pkg/dict, pkg/stream)
// interpret the bytes.
//
// Linux only: segments live under /dev/shm, the namespace shm_open
// uses.
package shm
