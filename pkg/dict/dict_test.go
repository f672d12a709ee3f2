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

package dict

import (
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/shm-ipc/pkg/shm"
)

type pair struct {
	K uint32
	V uint32
}

func (p pair) Key() uint32 { return p.K }

const pairSize = 8

func testDictName() string {
	return "dict_test_" + strconv.Itoa(int(rand.Int63())) + "_" + strconv.Itoa(time.Now().Nanosecond())
}

func newDictPair(t *testing.T, slots int) (*Owner[uint32, pair], *Client[uint32, pair]) {
	t.Helper()
	def := shm.Definition{
		Name: testDictName(),
		Size: headerSize + slots*pairSize,
	}
	owner, err := shm.Create(def)
	require.NoError(t, err)
	t.Cleanup(func() { _ = owner.Close() })

	view, err := shm.Open(def)
	require.NoError(t, err)
	t.Cleanup(func() { _ = view.Close() })

	return NewOwner[uint32, pair](owner), NewClient[uint32, pair](view)
}

func TestClientReadsWhatTheOwnerPut(t *testing.T) {
	owner, client := newDictPair(t, 8)

	require.NoError(t, owner.Put(pair{K: 1, V: 11}))

	got, err := client.Get(1)
	require.NoError(t, err)
	assert.Equal(t, pair{K: 1, V: 11}, got)
}

func TestOverwriteKeepsTheLastWrite(t *testing.T) {
	owner, _ := newDictPair(t, 8)
	def := owner.region.Definition()

	require.NoError(t, owner.Put(pair{K: 7, V: 1}))
	require.NoError(t, owner.Put(pair{K: 7, V: 2}))

	// A client started after both writes sees only the second value.
	view, err := shm.Open(def)
	require.NoError(t, err)
	defer func() { _ = view.Close() }()
	late := NewClient[uint32, pair](view)

	got, err := late.Get(7)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), got.V)
}

func TestOverwriteTargetsTheKeysOriginalSlot(t *testing.T) {
	owner, client := newDictPair(t, 8)

	require.NoError(t, owner.Put(pair{K: 1, V: 10}))
	require.NoError(t, owner.Put(pair{K: 2, V: 20}))
	require.NoError(t, owner.Put(pair{K: 3, V: 30}))

	// Updating the middle key must not disturb its neighbours, and an
	// existing client must see the new value through its cached slot.
	_, err := client.Get(2)
	require.NoError(t, err)
	require.NoError(t, owner.Put(pair{K: 2, V: 21}))

	got, err := client.Get(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(21), got.V)
	got, err = client.Get(1)
	require.NoError(t, err)
	assert.Equal(t, uint32(10), got.V)
	got, err = client.Get(3)
	require.NoError(t, err)
	assert.Equal(t, uint32(30), got.V)

	// Overwrites consume no capacity: three distinct keys are live.
	assert.Equal(t, 8, owner.Capacity())
}

func TestNewKeysBecomeVisibleToAnExistingClient(t *testing.T) {
	owner, client := newDictPair(t, 8)

	require.NoError(t, owner.Put(pair{K: 1, V: 1}))
	_, err := client.Get(1)
	require.NoError(t, err)

	// A key written after the client's last scan is picked up by the
	// next lookup without reopening the mapping.
	require.NoError(t, owner.Put(pair{K: 2, V: 2}))
	got, err := client.Get(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), got.V)
}

func TestGetFailsForAKeyNeverWritten(t *testing.T) {
	owner, client := newDictPair(t, 8)
	require.NoError(t, owner.Put(pair{K: 1, V: 1}))

	_, err := client.Get(99)
	assert.ErrorIs(t, err, ErrNoSuchKey)
}

func TestPutFailsOnceCapacityIsExhausted(t *testing.T) {
	owner, client := newDictPair(t, 2)

	require.NoError(t, owner.Put(pair{K: 1, V: 1}))
	require.NoError(t, owner.Put(pair{K: 2, V: 2}))
	assert.ErrorIs(t, owner.Put(pair{K: 3, V: 3}), ErrOutOfMemory)

	// The rejected put left nothing behind.
	_, err := client.Get(3)
	assert.ErrorIs(t, err, ErrNoSuchKey)
}

func TestDistinctKeysLandInDistinctSlots(t *testing.T) {
	owner, client := newDictPair(t, 16)

	keys := rand.Perm(16)
	for _, k := range keys {
		require.NoError(t, owner.Put(pair{K: uint32(k), V: uint32(k * 100)}))
	}
	for _, k := range keys {
		got, err := client.Get(uint32(k))
		require.NoError(t, err)
		assert.Equal(t, uint32(k*100), got.V)
	}
}
