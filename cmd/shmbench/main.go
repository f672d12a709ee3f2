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

// shmbench measures the end-to-end latency of the shared memory log:
// one process produces timestamped records at a fixed beat, another
// opens the same segment and reports per-record delivery latency.
//
// Start the producer first; consumers retry the open until the segment
// appears.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/srediag/shm-ipc/internal/logx"
)

var logLevel int

var rootCmd = &cobra.Command{
	Use:          "shmbench",
	Short:        "Latency benchmark harness for the shm-ipc log protocol",
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logx.SetLevel(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().IntVar(&logLevel, "log-level", logx.LevelInfo,
		"log level (0=trace .. 4=error, 5=off)")
	rootCmd.AddCommand(produceCmd, consumeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
