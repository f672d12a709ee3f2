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

package shm

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// The error taxonomy is a closed enumeration mapped from the errnos the
// kernel reports. The same errno maps to different sentinels depending
// on the operation that raised it. Errnos outside the enumeration are
// surfaced as *UnmappedError carrying the original code, never coerced.
var (
	// ErrAccessDenied reports that the process may not access the name.
	ErrAccessDenied = errors.New("shm: access denied")
	// ErrAlreadyExists reports an exclusive create on a live name.
	ErrAlreadyExists = errors.New("shm: name already exists")
	// ErrInvalidName reports a name the shm namespace cannot hold.
	ErrInvalidName = errors.New("shm: invalid name")
	// ErrNameTooLong reports a name exceeding the namespace limit.
	ErrNameTooLong = errors.New("shm: name too long")
	// ErrTooManyOpenFD reports the per-process descriptor limit.
	ErrTooManyOpenFD = errors.New("shm: process file descriptor limit exceeded")
	// ErrTooManyOpenFiles reports the system-wide open file limit.
	ErrTooManyOpenFiles = errors.New("shm: system open file limit exceeded")
	// ErrNotFound reports an open of a name with no live segment.
	ErrNotFound = errors.New("shm: no such shared memory segment")

	// ErrTruncateInterrupted reports a signal during segment sizing.
	ErrTruncateInterrupted = errors.New("shm: truncate interrupted by signal")
	// ErrInvalidSize reports a size the kernel refused to honor.
	ErrInvalidSize = errors.New("shm: invalid segment size")

	// ErrInvalidMapArguments reports a malformed mapping request.
	ErrInvalidMapArguments = errors.New("shm: invalid mmap arguments")
	// ErrOutOfMemory reports that the mapping cannot be satisfied.
	ErrOutOfMemory = errors.New("shm: out of memory")
	// ErrMissingPermission reports insufficient permission to map.
	ErrMissingPermission = errors.New("shm: missing permission")

	// ErrCloseInterrupted reports a signal during descriptor close.
	ErrCloseInterrupted = errors.New("shm: close interrupted by signal")
	// ErrCloseIO reports an i/o error during descriptor close.
	ErrCloseIO = errors.New("shm: i/o error on close")

	// ErrUnlinkNonExistent reports destruction of an already-gone name.
	ErrUnlinkNonExistent = errors.New("shm: unlink of non-existent segment")

	// ErrNoSpaceOnDevice reports that the shm filesystem cannot hold a
	// segment of the requested size.
	ErrNoSpaceOnDevice = errors.New("shm: not enough space left on shared memory device")
)

// UnmappedError carries an errno the taxonomy does not cover.
type UnmappedError struct {
	Op    string
	Errno unix.Errno
}

func (e *UnmappedError) Error() string {
	return fmt.Sprintf("shm: %s: unmapped errno %d (%s)", e.Op, int(e.Errno), e.Errno.Error())
}

// Unwrap exposes the errno for errors.Is checks against unix codes.
func (e *UnmappedError) Unwrap() error {
	return e.Errno
}

func errnoOf(err error) (unix.Errno, bool) {
	var errno unix.Errno
	if errors.As(err, &errno) {
		return errno, true
	}
	return 0, false
}

func mapOpenErrno(op string, err error) error {
	errno, ok := errnoOf(err)
	if !ok {
		return err
	}
	switch errno {
	case unix.EACCES:
		return ErrAccessDenied
	case unix.EEXIST:
		return ErrAlreadyExists
	case unix.EINVAL:
		return ErrInvalidName
	case unix.EMFILE:
		return ErrTooManyOpenFD
	case unix.ENAMETOOLONG:
		return ErrNameTooLong
	case unix.ENFILE:
		return ErrTooManyOpenFiles
	case unix.ENOENT, unix.ENOTDIR:
		return ErrNotFound
	default:
		return &UnmappedError{Op: op, Errno: errno}
	}
}

func mapTruncateErrno(err error) error {
	errno, ok := errnoOf(err)
	if !ok {
		return err
	}
	switch errno {
	case unix.EINTR:
		return ErrTruncateInterrupted
	case unix.EINVAL, unix.E2BIG, unix.EFBIG:
		return ErrInvalidSize
	default:
		return &UnmappedError{Op: "truncate", Errno: errno}
	}
}

func mapMapErrno(err error) error {
	errno, ok := errnoOf(err)
	if !ok {
		return err
	}
	switch errno {
	case unix.EINVAL:
		return ErrInvalidMapArguments
	case unix.ENOMEM:
		return ErrOutOfMemory
	case unix.EPERM:
		return ErrMissingPermission
	default:
		return &UnmappedError{Op: "mmap", Errno: errno}
	}
}

func mapCloseErrno(err error) error {
	errno, ok := errnoOf(err)
	if !ok {
		return err
	}
	switch errno {
	case unix.EINTR:
		return ErrCloseInterrupted
	case unix.EIO:
		return ErrCloseIO
	default:
		return &UnmappedError{Op: "close", Errno: errno}
	}
}

func mapUnmapErrno(err error) error {
	errno, ok := errnoOf(err)
	if !ok {
		return err
	}
	return &UnmappedError{Op: "munmap", Errno: errno}
}

func mapUnlinkErrno(err error) error {
	errno, ok := errnoOf(err)
	if !ok {
		return err
	}
	if errno == unix.ENOENT {
		return ErrUnlinkNonExistent
	}
	return &UnmappedError{Op: "unlink", Errno: errno}
}
