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

package main

import (
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/srediag/shm-ipc/internal/logx"
	"github.com/srediag/shm-ipc/pkg/shm"
)

// benchRecord is the fixed-size payload carried through the log. The
// sequence number doubles as the replay cursor on the consumer side.
type benchRecord struct {
	Seq      uint64
	SentNano int64
}

const benchRecordSize = 16

// regionFor sizes a segment that holds the log header plus exactly
// total records.
func regionFor(name string, total int) shm.Definition {
	return shm.Definition{Name: name, Size: benchRecordSize * (total + 1)}
}

// busyWait burns the calling thread for the given duration. Sleeping
// cannot hold a beat in the microsecond range.
func busyWait(d time.Duration) {
	end := time.Now().Add(d)
	for time.Now().Before(end) {
	}
}

// serveOps exposes liveness, readiness and prometheus metrics for the
// benchmark process.
func serveOps(addr string) {
	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-count", healthcheck.GoroutineCountCheck(500))
	health.AddReadinessCheck("owned-regions", func() error { return nil })

	mux := http.NewServeMux()
	mux.HandleFunc("/live", health.LiveEndpoint)
	mux.HandleFunc("/ready", health.ReadyEndpoint)
	mux.Handle("/metrics", promhttp.Handler())

	logx.Default().Infof("ops endpoint listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logx.Default().Errorf("ops endpoint failed: %s", err.Error())
	}
}
