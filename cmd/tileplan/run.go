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

package main

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/ajroetker/go-tilepipe/tile"
	"github.com/ajroetker/go-tilepipe/tile/contrib/elementwise"
	"github.com/ajroetker/go-tilepipe/tile/contrib/quant"
	"github.com/ajroetker/go-tilepipe/tile/contrib/workerpool"
	"github.com/ajroetker/go-tilepipe/tile/pipeline"
)

const quantScale, quantOffset = 1.0 / 32, 0

type runFlags struct {
	op           string
	elements     int
	lanes        int
	scratchBytes int
	iterations   int
	interleaved  bool
}

func newRunCmd(a *app) *cobra.Command {
	var f runFlags
	d := tile.DefaultDevice()
	ops := append(elementwise.Names(), "quant")
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a kernel on generated data and verify the result",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runKernel(cmd, a, f, d)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&f.op, "op", "relu", "operation: "+strings.Join(ops, ", "))
	fs.IntVarP(&f.elements, "elements", "n", 1<<20, "number of elements")
	fs.IntVar(&f.lanes, "lanes", d.Lanes, "lanes to run on")
	fs.IntVar(&f.scratchBytes, "scratch-bytes", d.ScratchBytes, "scratch bytes per lane")
	fs.IntVar(&f.iterations, "iterations", 1, "timed repetitions")
	fs.BoolVar(&f.interleaved, "interleaved", false, "deal chunks round-robin")
	return cmd
}

func runKernel(cmd *cobra.Command, a *app, f runFlags, d tile.Device) error {
	d.Lanes = f.lanes
	d.ScratchBytes = f.scratchBytes
	pool := workerpool.New(d.Lanes)
	defer pool.Close()

	strategy := tile.Blockwise
	if f.interleaved {
		strategy = tile.Interleaved
	}
	l := pipeline.NewLauncher(
		pipeline.WithDevice(d),
		pipeline.WithPool(pool),
		pipeline.WithLogger(a.logger),
		pipeline.WithStrategy(strategy),
	)
	defer l.Close()

	src := make([]float32, f.elements)
	for i := range src {
		src[i] = float32(i%2001)/250 - 4
	}

	var (
		launch func() error
		check  func(i int) bool
	)
	if f.op == "quant" {
		dst := make([]int8, len(src))
		launch = func() error { return quant.Quantize(l, src, dst, quantScale, quantOffset) }
		check = func(i int) bool { return dst[i] == quant.QuantizeInt8(src[i], quantScale, quantOffset) }
	} else {
		k, ok := elementwise.Lookup[float32](f.op)
		if !ok {
			return fmt.Errorf("unknown op %q", f.op)
		}
		dst := make([]float32, len(src))
		want := make([]float32, len(src))
		pool.ParallelFor(len(src), func(start, end int) {
			elementwise.Reference(f.op, src[start:end], want[start:end])
		})
		launch = func() error { return pipeline.Run(l, k, src, dst) }
		check = func(i int) bool { return dst[i] == want[i] }
	}

	var total time.Duration
	for range max(f.iterations, 1) {
		start := time.Now()
		if err := launch(); err != nil {
			return err
		}
		total += time.Since(start)
	}

	var mismatches atomic.Int64
	pool.ParallelFor(len(src), func(start, end int) {
		for i := start; i < end; i++ {
			if !check(i) {
				mismatches.Add(1)
			}
		}
	})
	if n := mismatches.Load(); n > 0 {
		return fmt.Errorf("%s: %d of %d elements differ from the direct evaluation", f.op, n, len(src))
	}

	per := total / time.Duration(max(f.iterations, 1))
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d elements on %d lanes verified, %v per launch\n", f.op, len(src), d.Lanes, per)
	return nil
}
