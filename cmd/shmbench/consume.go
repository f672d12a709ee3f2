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
	"sync"
	"time"

	"github.com/Workiva/go-datastructures/queue"
	"github.com/cenkalti/backoff/v4"
	"github.com/panjf2000/ants/v2"
	"github.com/spf13/cobra"

	"github.com/srediag/shm-ipc/internal/logx"
	shmlog "github.com/srediag/shm-ipc/pkg/log"
	"github.com/srediag/shm-ipc/pkg/shm"
)

var consumeFlags struct {
	name    string
	warmup  int
	count   int
	readers int
}

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Open the log segment, replay it, and report per-record latency",
	Long: `Opens the shared memory log created by the produce side and reads
records until the configured count is reached. Warmup records are
replayed but not reported. The report is one tab-separated line per
measured record.`,
	RunE: runConsume,
}

func init() {
	consumeCmd.Flags().StringVar(&consumeFlags.name, "name", "shmbench_log", "shared memory segment name")
	consumeCmd.Flags().IntVarP(&consumeFlags.warmup, "warmup", "w", 1000, "number of warmup records")
	consumeCmd.Flags().IntVarP(&consumeFlags.count, "count", "c", 100000, "total number of records, warmup included")
	consumeCmd.Flags().IntVarP(&consumeFlags.readers, "readers", "r", 1, "number of concurrent consumers")
}

// sample is one measured delivery, handed from a reader to the
// reporter through the ring buffer.
type sample struct {
	reader   int
	seq      uint64
	recvNano int64
	sentNano int64
}

func runConsume(cmd *cobra.Command, args []string) error {
	if consumeFlags.warmup >= consumeFlags.count {
		return fmt.Errorf("warmup (%d) must be smaller than count (%d)", consumeFlags.warmup, consumeFlags.count)
	}
	def := regionFor(consumeFlags.name, consumeFlags.count)

	pool, err := ants.NewPool(consumeFlags.readers)
	if err != nil {
		return err
	}
	defer pool.Release()

	ring := queue.NewRingBuffer(4096)
	samples := make([][]sample, consumeFlags.readers)
	collected := make(chan error, 1)
	go func() {
		collected <- collect(ring, samples)
	}()

	var wg sync.WaitGroup
	readErrs := make([]error, consumeFlags.readers)
	for i := 0; i < consumeFlags.readers; i++ {
		wg.Add(1)
		reader := i
		if err := pool.Submit(func() {
			defer wg.Done()
			readErrs[reader] = runReader(reader, def, ring)
		}); err != nil {
			wg.Done()
			readErrs[reader] = err
		}
	}
	wg.Wait()
	for _, err := range readErrs {
		if err != nil {
			// Unblock the collector before bailing out.
			ring.Dispose()
			<-collected
			return err
		}
	}
	if err := <-collected; err != nil {
		return err
	}
	ring.Dispose()

	for reader, recorded := range samples {
		report(reader, recorded)
	}
	return nil
}

// runReader attaches its own mapping, replays the warmup records, and
// pushes one sample per measured record.
func runReader(reader int, def shm.Definition, ring *queue.RingBuffer) error {
	region, err := openWithBackoff(def)
	if err != nil {
		return fmt.Errorf("reader %d: open log segment: %w", reader, err)
	}
	defer func() { _ = region.Close() }()
	consumer := shmlog.NewConsumer[benchRecord](region)
	logx.Default().Infof("reader %d attached to %q", reader, def.Name)

	seq := uint64(0)
	for seq < uint64(consumeFlags.warmup) {
		if record, ok := consumer.Next(); ok {
			seq = record.Seq
		}
	}
	for seq < uint64(consumeFlags.count) {
		record, ok := consumer.Next()
		if !ok {
			continue
		}
		seq = record.Seq
		s := sample{
			reader:   reader,
			seq:      record.Seq,
			recvNano: time.Now().UnixNano(),
			sentNano: record.SentNano,
		}
		if err := ring.Put(s); err != nil {
			return fmt.Errorf("reader %d: queue samples: %w", reader, err)
		}
	}
	return nil
}

// openWithBackoff retries the open while the producer has not created
// the segment yet. Any other failure aborts immediately.
func openWithBackoff(def shm.Definition) (*shm.Region, error) {
	var region *shm.Region
	operation := func() error {
		r, err := shm.Open(def)
		if err == nil {
			region = r
			return nil
		}
		if errors.Is(err, shm.ErrNotFound) {
			return err
		}
		return backoff.Permanent(err)
	}
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 10 * time.Millisecond
	policy.MaxInterval = time.Second
	policy.MaxElapsedTime = 2 * time.Minute
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return region, nil
}

// collect drains the ring buffer until every measured record of every
// reader has arrived.
func collect(ring *queue.RingBuffer, samples [][]sample) error {
	measured := consumeFlags.count - consumeFlags.warmup
	total := measured * consumeFlags.readers
	for received := 0; received < total; received++ {
		item, err := ring.Get()
		if err != nil {
			return fmt.Errorf("collect samples: %w", err)
		}
		s, ok := item.(sample)
		if !ok {
			return fmt.Errorf("collect samples: unexpected item %T", item)
		}
		samples[s.reader] = append(samples[s.reader], s)
	}
	return nil
}

func report(reader int, recorded []sample) {
	fmt.Printf("reader %d: %d records\n", reader, len(recorded))
	fmt.Println("SeqNum\t(Received-Sent nanos)\tReceived nanos\tSent nanos\t(Received - Previous Received nanos)\t(Sent - Previous Sent nanos)")
	var previous *sample
	for i := range recorded {
		s := recorded[i]
		var dRecv, dSent int64
		if previous != nil {
			dRecv = s.recvNano - previous.recvNano
			dSent = s.sentNano - previous.sentNano
		}
		fmt.Printf("%d\t%d\t%d\t%d\t%d\t%d\n",
			s.seq, s.recvNano-s.sentNano, s.recvNano, s.sentNano, dRecv, dSent)
		previous = &recorded[i]
	}
}
