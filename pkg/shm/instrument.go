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
	"context"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type regionOp int

const (
	opCreate regionOp = iota
	opOpen
)

// Instrumentation carries optional OpenTelemetry hooks for region
// lifecycle operations. Both fields may be nil; instrumentation is a
// no-op until SetInstrumentation installs a meter or tracer.
type Instrumentation struct {
	Meter  metric.Meter
	Tracer trace.Tracer
}

var instr struct {
	created metric.Int64Counter
	opened  metric.Int64Counter
	tracer  trace.Tracer
}

// SetInstrumentation installs OpenTelemetry hooks for Create and Open.
// Call it once at process start, before regions are in use.
func SetInstrumentation(ins Instrumentation) error {
	if ins.Meter != nil {
		created, err := ins.Meter.Int64Counter("shmipc.regions.created")
		if err != nil {
			return err
		}
		opened, err := ins.Meter.Int64Counter("shmipc.regions.opened")
		if err != nil {
			return err
		}
		instr.created = created
		instr.opened = opened
	}
	instr.tracer = ins.Tracer
	return nil
}

func observeRegionOp(op regionOp) {
	ctx := context.Background()
	switch op {
	case opCreate:
		if instr.tracer != nil {
			_, span := instr.tracer.Start(ctx, "shm.Create")
			span.End()
		}
		if instr.created != nil {
			instr.created.Add(ctx, 1)
		}
	case opOpen:
		if instr.tracer != nil {
			_, span := instr.tracer.Start(ctx, "shm.Open")
			span.End()
		}
		if instr.opened != nil {
			instr.opened.Add(ctx, 1)
		}
	}
}
