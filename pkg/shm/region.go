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
	"strings"
	"sync/atomic"

	cmap "github.com/orcaman/concurrent-map/v2"

	internalshm "github.com/srediag/shm-ipc/internal/shm"
	"github.com/srediag/shm-ipc/internal/logx"
	"github.com/srediag/shm-ipc/internal/metrics"
)

// Definition describes a shared memory segment through its name and its
// allocated size. Two definitions with the same name refer to the same
// physical segment; creator and openers must agree on the size to
// interpret the layout consistently.
type Definition struct {
	// Name identifies the segment in the host shm namespace. It must
	// not contain a path separator; the segment is backed by
	// /dev/shm/<Name>.
	Name string
	// Size is the number of bytes to allocate for the segment.
	Size int
}

// Region is a process-local view of a mapped shared memory segment.
//
// An owning Region (from Create) destroys the segment name on Close; a
// non-owning Region (from Open) only detaches its own view. At most one
// owning Region may be alive per name.
type Region struct {
	def      Definition
	data     []byte
	owner    bool
	released uint32
}

// live tracks the owning regions created by this process, keyed by
// segment name. It rejects duplicate creates before touching the kernel
// and feeds OwnedRegions.
var live = cmap.New[*Region]()

// Create exclusively creates the named segment, sizes it, and maps it
// read/write. The returned Region owns the name and unlinks it on
// Close.
//
// On any failure after the segment exists, the descriptor and the name
// are cleaned up before the error returns; a partial create is never
// observable. Creation races with any process that knows the name; the
// kernel arbitrates via the exclusive open.
func Create(def Definition) (*Region, error) {
	if err := checkName(def.Name); err != nil {
		return nil, err
	}
	if live.Has(def.Name) {
		return nil, ErrAlreadyExists
	}
	if !canCreateOnDevShm(uint64(def.Size)) {
		return nil, ErrNoSpaceOnDevice
	}
	fd, err := internalshm.OpenExclusive(def.Name)
	if err != nil {
		return nil, mapOpenErrno("create", err)
	}
	data, err := sizeAndMap(fd, def.Size)
	if err != nil {
		// The name exists by now; take it back out so the failed
		// create leaves nothing behind.
		_ = internalshm.Unlink(def.Name)
		return nil, err
	}
	r := &Region{def: def, data: data, owner: true}
	live.Set(def.Name, r)
	metrics.RegionsCreated.Inc()
	observeRegionOp(opCreate)
	logx.Default().Debugf("created shm segment %q (%d bytes)", def.Name, def.Size)
	return r, nil
}

// Open maps an existing named segment read/write. The returned Region
// does not own the name: Close only unmaps this process's view.
func Open(def Definition) (*Region, error) {
	if err := checkName(def.Name); err != nil {
		return nil, err
	}
	fd, err := internalshm.OpenExisting(def.Name)
	if err != nil {
		return nil, mapOpenErrno("open", err)
	}
	data, err := mapAndClose(fd, def.Size)
	if err != nil {
		return nil, err
	}
	r := &Region{def: def, data: data}
	metrics.RegionsOpened.Inc()
	observeRegionOp(opOpen)
	logx.Default().Debugf("opened shm segment %q (%d bytes)", def.Name, def.Size)
	return r, nil
}

// sizeAndMap truncates a freshly created segment to size, maps it, and
// closes the descriptor. On failure the descriptor is closed; the
// caller removes the name.
func sizeAndMap(fd, size int) ([]byte, error) {
	if err := internalshm.Truncate(fd, int64(size)); err != nil {
		_ = internalshm.Close(fd)
		return nil, mapTruncateErrno(err)
	}
	return mapAndClose(fd, size)
}

// mapAndClose maps the segment and closes the descriptor. The mapping
// stays valid after the close.
func mapAndClose(fd, size int) ([]byte, error) {
	data, err := internalshm.Map(fd, size)
	if err != nil {
		_ = internalshm.Close(fd)
		return nil, mapMapErrno(err)
	}
	if err := internalshm.Close(fd); err != nil {
		_ = internalshm.Unmap(data)
		return nil, mapCloseErrno(err)
	}
	return data, nil
}

// Bytes returns the mapped view, starting at the segment head. Layout
// and alignment inside the view are entirely the caller's contract;
// the region manager stores nothing of its own in the segment.
func (r *Region) Bytes() []byte {
	return r.data
}

// Definition returns the name and size this region was realized from.
func (r *Region) Definition() Definition {
	return r.def
}

// Owned reports whether this mapping is responsible for destroying the
// segment name.
func (r *Region) Owned() bool {
	return r.owner
}

// Close releases the mapping. An owning region unmaps its view and then
// unlinks the name; a non-owning region only unmaps. A second Close is
// a no-op: the release is single-use by construction.
//
// A destruction failure here is an environment or programming error,
// not a recoverable condition.
func (r *Region) Close() error {
	if !atomic.CompareAndSwapUint32(&r.released, 0, 1) {
		return nil
	}
	data := r.data
	r.data = nil
	if err := internalshm.Unmap(data); err != nil {
		return mapUnmapErrno(err)
	}
	if !r.owner {
		return nil
	}
	live.Remove(r.def.Name)
	if err := internalshm.Unlink(r.def.Name); err != nil {
		return mapUnlinkErrno(err)
	}
	metrics.RegionsUnlinked.Inc()
	logx.Default().Debugf("unlinked shm segment %q", r.def.Name)
	return nil
}

// OwnedRegions lists the names of the owning mappings currently alive
// in this process. Intended for debugging and operational surfaces.
func OwnedRegions() []string {
	return live.Keys()
}

// checkName rejects names the shm namespace cannot hold before any
// syscall is issued. The kernel would report most of these as EINVAL
// from a path like /dev/shm/a/b anyway; catching them here keeps the
// failure unambiguous.
func checkName(name string) error {
	if name == "" || strings.ContainsRune(name, '/') {
		return ErrInvalidName
	}
	return nil
}
