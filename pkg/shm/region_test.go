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
	"math/rand"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalshm "github.com/srediag/shm-ipc/internal/shm"
)

func testSegmentName() string {
	return "shmipc_test_" + strconv.Itoa(int(rand.Int63())) + "_" + strconv.Itoa(time.Now().Nanosecond())
}

func TestCreateSizesTheBackingSegment(t *testing.T) {
	def := Definition{Name: testSegmentName(), Size: 1024}
	region, err := Create(def)
	require.NoError(t, err)
	defer func() { _ = region.Close() }()

	info, err := os.Stat(internalshm.PathOf(def.Name))
	require.NoError(t, err)
	assert.Equal(t, int64(1024), info.Size())
	assert.Equal(t, 1024, len(region.Bytes()))
	assert.True(t, region.Owned())
}

func TestCreateThenOpenShareTheSameBytes(t *testing.T) {
	def := Definition{Name: testSegmentName(), Size: 1024}
	owner, err := Create(def)
	require.NoError(t, err)
	defer func() { _ = owner.Close() }()

	view, err := Open(def)
	require.NoError(t, err)
	defer func() { _ = view.Close() }()
	assert.False(t, view.Owned())

	owner.Bytes()[0] = 8
	owner.Bytes()[1023] = 42
	assert.Equal(t, byte(8), view.Bytes()[0])
	assert.Equal(t, byte(42), view.Bytes()[1023])

	view.Bytes()[512] = 7
	assert.Equal(t, byte(7), owner.Bytes()[512])
}

func TestCreateFailsWhenNameAlreadyExists(t *testing.T) {
	def := Definition{Name: testSegmentName(), Size: 1024}
	owner, err := Create(def)
	require.NoError(t, err)
	defer func() { _ = owner.Close() }()

	_, err = Create(def)
	assert.ErrorIs(t, err, ErrAlreadyExists)
}

func TestOpenFailsWhenNameDoesNotExist(t *testing.T) {
	_, err := Open(Definition{Name: testSegmentName(), Size: 1024})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateRejectsPathLikeNames(t *testing.T) {
	_, err := Create(Definition{Name: "/dev/shm/test", Size: 1024})
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = Create(Definition{Name: "", Size: 1024})
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestCreateFailsOnZeroSizeAndLeavesNothingBehind(t *testing.T) {
	def := Definition{Name: testSegmentName(), Size: 0}
	_, err := Create(def)
	assert.ErrorIs(t, err, ErrInvalidMapArguments)
	// The failed create must not leave a half-made segment around.
	assert.False(t, pathExists(internalshm.PathOf(def.Name)))
}

func TestOwnerCloseUnlinksTheSegment(t *testing.T) {
	def := Definition{Name: testSegmentName(), Size: 1024}
	owner, err := Create(def)
	require.NoError(t, err)
	require.NoError(t, owner.Close())

	assert.False(t, pathExists(internalshm.PathOf(def.Name)))
	_, err = Open(def)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNonOwnerCloseKeepsTheSegmentAlive(t *testing.T) {
	def := Definition{Name: testSegmentName(), Size: 1024}
	owner, err := Create(def)
	require.NoError(t, err)
	defer func() { _ = owner.Close() }()

	view, err := Open(def)
	require.NoError(t, err)
	require.NoError(t, view.Close())

	assert.True(t, pathExists(internalshm.PathOf(def.Name)))
	again, err := Open(def)
	require.NoError(t, err)
	_ = again.Close()
}

func TestCloseIsSingleUse(t *testing.T) {
	def := Definition{Name: testSegmentName(), Size: 1024}
	owner, err := Create(def)
	require.NoError(t, err)

	require.NoError(t, owner.Close())
	// The second release must not unlink anything twice or unmap a
	// stale view; it is a no-op by construction.
	assert.NoError(t, owner.Close())
}

func TestOwnedRegionsTracksLiveOwners(t *testing.T) {
	def := Definition{Name: testSegmentName(), Size: 1024}
	owner, err := Create(def)
	require.NoError(t, err)

	assert.Contains(t, OwnedRegions(), def.Name)
	require.NoError(t, owner.Close())
	assert.NotContains(t, OwnedRegions(), def.Name)
}
