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
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/disk"

	internalshm "github.com/srediag/shm-ipc/internal/shm"
	"github.com/srediag/shm-ipc/internal/logx"
)

// canCreateOnDevShm reports whether the shm filesystem has room for a
// segment of the given size. The check is advisory: when the usage
// query fails the create proceeds and the kernel has the last word.
func canCreateOnDevShm(size uint64) bool {
	if runtime.GOOS != "linux" {
		return true
	}
	stat, err := disk.Usage(internalshm.Dir)
	if err != nil {
		logx.Default().Warnf("could not stat %s: %s", internalshm.Dir, err.Error())
		return true
	}
	return stat.Free >= size
}

// pathExists reports whether the segment backing file is present.
func pathExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
