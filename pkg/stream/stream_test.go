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

package stream

import (
	"io"
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/srediag/shm-ipc/pkg/shm"
)

func newStreamPair(t *testing.T, size int) (*Writer, *Reader) {
	t.Helper()
	def := shm.Definition{
		Name: "stream_test_" + strconv.Itoa(int(rand.Int63())) + "_" + strconv.Itoa(time.Now().Nanosecond()),
		Size: size,
	}
	owner, err := shm.Create(def)
	require.NoError(t, err)
	t.Cleanup(func() { _ = owner.Close() })

	view, err := shm.Open(def)
	require.NoError(t, err)
	t.Cleanup(func() { _ = view.Close() })

	return NewWriter(owner), NewReader(view)
}

func TestReaderReadsWhatWriterWrote(t *testing.T) {
	writer, reader := newStreamPair(t, 64)

	n, err := writer.Write([]byte("test1"))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	buf := make([]byte, 32)
	n, err = reader.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "test1", string(buf[:n]))
}

func TestReaderConsumesAcrossMultipleWrites(t *testing.T) {
	writer, reader := newStreamPair(t, 64)

	_, err := writer.Write([]byte("hello "))
	require.NoError(t, err)
	_, err = writer.Write([]byte("world"))
	require.NoError(t, err)

	buf := make([]byte, 4)
	var got []byte
	for {
		n, err := reader.Read(buf)
		require.NoError(t, err)
		if n == 0 {
			break
		}
		got = append(got, buf[:n]...)
	}
	assert.Equal(t, "hello world", string(got))
}

func TestCaughtUpReaderGetsEmptyRead(t *testing.T) {
	_, reader := newStreamPair(t, 64)

	n, err := reader.Read(make([]byte, 8))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestFullStreamShortWrites(t *testing.T) {
	// 8 header bytes + 4 data bytes.
	writer, reader := newStreamPair(t, 12)

	n, err := writer.Write([]byte("abcdef"))
	assert.ErrorIs(t, err, io.ErrShortWrite)
	assert.Equal(t, 4, n)

	buf := make([]byte, 16)
	n, err = reader.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(buf[:n]))

	// Nothing fits any more; the writer reports it and writes nothing.
	n, err = writer.Write([]byte("x"))
	assert.ErrorIs(t, err, io.ErrShortWrite)
	assert.Zero(t, n)
}
