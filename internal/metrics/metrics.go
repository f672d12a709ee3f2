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

// Package metrics holds the process-wide prometheus instruments for the
// shm-ipc packages. Collection is passive; exposing them (promhttp or a
// custom registry walk) is the embedding application's business.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// RegionsCreated counts owning mappings successfully created.
	RegionsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shmipc_regions_created_total",
		Help: "Total number of shared memory regions created by this process.",
	})

	// RegionsOpened counts non-owning mappings successfully attached.
	RegionsOpened = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shmipc_regions_opened_total",
		Help: "Total number of existing shared memory regions opened by this process.",
	})

	// RegionsUnlinked counts owning releases that destroyed the name.
	RegionsUnlinked = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shmipc_regions_unlinked_total",
		Help: "Total number of shared memory regions unlinked by this process.",
	})

	// RecordsInserted counts log inserts and dictionary puts that stuck.
	RecordsInserted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shmipc_records_inserted_total",
		Help: "Total number of records written to shared memory logs and dictionaries.",
	})

	// NotifyFailures counts futex wake requests the kernel rejected.
	NotifyFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shmipc_notify_failures_total",
		Help: "Total number of failed consumer wake-ups after a record insert.",
	})

	// CapacityRejections counts inserts and puts refused for lack of slots.
	CapacityRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "shmipc_capacity_rejections_total",
		Help: "Total number of writes rejected because the region was full.",
	})
)

func init() {
	prometheus.MustRegister(
		RegionsCreated,
		RegionsOpened,
		RegionsUnlinked,
		RecordsInserted,
		NotifyFailures,
		CapacityRejections,
	)
}
