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
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/srediag/shm-ipc/internal/logx"
	shmlog "github.com/srediag/shm-ipc/pkg/log"
	"github.com/srediag/shm-ipc/pkg/shm"
)

var produceFlags struct {
	name     string
	warmup   int
	count    int
	beat     time.Duration
	settle   time.Duration
	httpAddr string
}

var produceCmd = &cobra.Command{
	Use:   "produce",
	Short: "Create the log segment and insert timestamped records at a fixed beat",
	Long: `Creates the shared memory log and inserts records at the given beat.
Warmup records are part of the total count. Start this side first; the
consumer retries its open until the segment exists.`,
	RunE: runProduce,
}

func init() {
	produceCmd.Flags().StringVar(&produceFlags.name, "name", "shmbench_log", "shared memory segment name")
	produceCmd.Flags().IntVarP(&produceFlags.warmup, "warmup", "w", 1000, "number of warmup records")
	produceCmd.Flags().IntVarP(&produceFlags.count, "count", "c", 100000, "total number of records, warmup included")
	produceCmd.Flags().DurationVarP(&produceFlags.beat, "beat", "b", 100*time.Microsecond, "interval between records")
	produceCmd.Flags().DurationVar(&produceFlags.settle, "settle", 5*time.Second, "pause before warmup and before the measured load")
	produceCmd.Flags().StringVar(&produceFlags.httpAddr, "http", "", "serve /live, /ready and /metrics on this address")
}

func runProduce(cmd *cobra.Command, args []string) error {
	if produceFlags.warmup >= produceFlags.count {
		return fmt.Errorf("warmup (%d) must be smaller than count (%d)", produceFlags.warmup, produceFlags.count)
	}
	if produceFlags.httpAddr != "" {
		go serveOps(produceFlags.httpAddr)
	}

	def := regionFor(produceFlags.name, produceFlags.count)
	region, err := shm.Create(def)
	if err != nil {
		return fmt.Errorf("create log segment: %w", err)
	}
	defer func() { _ = region.Close() }()

	producer := shmlog.NewProducer[benchRecord](region)
	logx.Default().Infof("log segment %q created: %d slots of %d bytes",
		def.Name, producer.Capacity(), benchRecordSize)

	// Let consumers attach before the clock starts.
	time.Sleep(produceFlags.settle)
	if err := produceRange(producer, 0, produceFlags.warmup); err != nil {
		return err
	}
	time.Sleep(produceFlags.settle)
	if err := produceRange(producer, produceFlags.warmup, produceFlags.count); err != nil {
		return err
	}
	logx.Default().Infof("produced %d records", produceFlags.count)
	return nil
}

func produceRange(producer *shmlog.Producer[benchRecord], from, to int) error {
	for i := from; i < to; i++ {
		busyWait(produceFlags.beat)
		record := benchRecord{Seq: uint64(i + 1), SentNano: time.Now().UnixNano()}
		if err := producer.Insert(record); err != nil {
			if errors.Is(err, shmlog.ErrNotifyFailed) {
				// The record is written and counted; only the wake-up
				// failed. Consumers will catch up on the next one.
				logx.Default().Warnf("insert %d: %s", i+1, err.Error())
				continue
			}
			return fmt.Errorf("insert %d: %w", i+1, err)
		}
	}
	return nil
}
