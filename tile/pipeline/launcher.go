// Copyright 2025 go-highway Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/ajroetker/go-tilepipe/tile"
	"github.com/ajroetker/go-tilepipe/tile/contrib/workerpool"
)

// ErrRegionTooSmall is returned when an input or output region holds fewer
// elements than the schedule covers.
var ErrRegionTooSmall = errors.New("pipeline: region smaller than workload")

// Launcher runs schedules on a fixed set of lanes. It owns a persistent
// worker pool and is safe for concurrent launches.
type Launcher struct {
	device     tile.Device
	pool       *workerpool.Pool
	ownPool    bool
	logger     *slog.Logger
	tracer     Tracer
	strategy   tile.Strategy
	batchLimit int
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithDevice sets the lanes, scratch size and transfer granularity. The
// default is tile.DefaultDevice().
func WithDevice(d tile.Device) Option {
	return func(l *Launcher) { l.device = d }
}

// WithPool runs lanes on an existing pool. The launcher does not close it.
func WithPool(p *workerpool.Pool) Option {
	return func(l *Launcher) { l.pool = p }
}

// WithLogger sets the logger for launch diagnostics. By default nothing is
// logged.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Launcher) { l.logger = logger }
}

// WithTracer records stage events of every launch.
func WithTracer(t Tracer) Option {
	return func(l *Launcher) { l.tracer = t }
}

// WithStrategy sets how chunks are dealt to lanes.
func WithStrategy(s tile.Strategy) Option {
	return func(l *Launcher) { l.strategy = s }
}

// WithBatchLimit caps how many RunBatch items execute at once. The default
// is 2.
func WithBatchLimit(n int) Option {
	return func(l *Launcher) { l.batchLimit = n }
}

// NewLauncher returns a launcher with a worker per device lane.
func NewLauncher(opts ...Option) *Launcher {
	l := &Launcher{
		device:     tile.DefaultDevice(),
		strategy:   tile.Blockwise,
		batchLimit: 2,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if l.device.BlockBytes <= 0 {
		l.device.BlockBytes = tile.BlockBytes()
	}
	if l.pool == nil {
		l.pool = workerpool.New(l.device.Lanes)
		l.ownPool = true
	}
	return l
}

// Close stops the launcher's worker pool unless it was supplied by the
// caller.
func (l *Launcher) Close() {
	if l.ownPool {
		l.pool.Close()
	}
}

// Device returns the resources the launcher plans against.
func (l *Launcher) Device() tile.Device {
	return l.device
}

// planOptions derives the operator-specific planner settings of k.
func planOptions[In, Out tile.Element](l *Launcher, k Kernel[In, Out]) []tile.PlanOption {
	return []tile.PlanOption{
		tile.WithAlignment(tile.AlignElementsFor(l.device.BlockBytes, tile.SizeOf[In](), tile.SizeOf[Out]())),
		tile.WithBufferDivisor(k.divisor),
		tile.WithStrategy(l.strategy),
	}
}

func budgetElements[In, Out tile.Element](l *Launcher, k Kernel[In, Out]) int {
	return tile.BudgetElements(l.device.ScratchBytes, k.bytesPerElement(), k.reservedBytes)
}

// Plan partitions a flat workload of n elements for k on the launcher's
// device.
func Plan[In, Out tile.Element](l *Launcher, k Kernel[In, Out], n int) (tile.PartitionPlan, error) {
	p, err := tile.Plan(n, l.device.Lanes, budgetElements(l, k), planOptions(l, k)...)
	if err != nil {
		l.logger.Warn("plan rejected", "kernel", k.name, "elements", n, "err", err)
		return p, err
	}
	l.logger.Debug("plan",
		"kernel", k.name,
		"elements", n,
		"lanes", p.LaneCount,
		"chunks", p.TotalChunks,
		"capacity", p.ChunkCapacity,
		"tail", p.TailChunkSize,
		"strategy", p.Strategy)
	return p, nil
}

// PlanRows partitions a rows x cols workload for k, keeping rows whole.
func PlanRows[In, Out tile.Element](l *Launcher, k Kernel[In, Out], rows, cols int) (tile.RowPlan, error) {
	p, err := tile.PlanRows(rows, cols, l.device.Lanes, budgetElements(l, k), planOptions(l, k)...)
	if err != nil {
		l.logger.Warn("row plan rejected", "kernel", k.name, "rows", rows, "cols", cols, "err", err)
		return p, err
	}
	l.logger.Debug("row plan",
		"kernel", k.name,
		"rows", rows,
		"cols", cols,
		"stride", p.RowStride,
		"rowsPerChunk", p.RowsPerChunk,
		"lanes", p.Lanes())
	return p, nil
}

// Launch runs s with kernel k, reading src and writing dst. It returns once
// every lane has drained. Region sizes are checked before any lane starts;
// after that the launch cannot fail.
func Launch[In, Out tile.Element](l *Launcher, k Kernel[In, Out], s tile.Schedule, src Region[In], dst Region[Out]) error {
	if src.Len() < s.Elements() || dst.Len() < s.Elements() {
		err := fmt.Errorf("%w: kernel %s needs %d elements, src has %d, dst has %d",
			ErrRegionTooSmall, k.name, s.Elements(), src.Len(), dst.Len())
		l.logger.Warn("launch rejected", "kernel", k.name, "err", err)
		return err
	}

	l.pool.RunLanes(s.Lanes(), func(lane int) {
		runLane(lane, s, k, src, dst, l.tracer)
	})
	l.logger.Debug("launch done", "kernel", k.name, "lanes", s.Lanes(), "elements", s.Elements())
	return nil
}

// Run plans and launches k over a flat workload. dst must be at least as
// long as src.
func Run[In, Out tile.Element](l *Launcher, k Kernel[In, Out], src []In, dst []Out) error {
	p, err := Plan(l, k, len(src))
	if err != nil {
		return err
	}
	return Launch(l, k, p, Slice[In](src), Slice[Out](dst))
}

// RunRows plans and launches k over a rows x cols workload stored row-major
// in src and dst.
func RunRows[In, Out tile.Element](l *Launcher, k Kernel[In, Out], src []In, dst []Out, rows, cols int) error {
	p, err := PlanRows(l, k, rows, cols)
	if err != nil {
		return err
	}
	return Launch(l, k, p, Slice[In](src), Slice[Out](dst))
}
