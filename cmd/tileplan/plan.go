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
	"io"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ajroetker/go-tilepipe/tile"
)

// budgetFlags are the device and operator settings shared by plan and rows.
type budgetFlags struct {
	lanes         int
	scratchBytes  int
	inBytes       int
	outBytes      int
	alignBytes    int
	divisor       int
	reservedBytes int
	interleaved   bool
}

func (b *budgetFlags) register(fs *pflag.FlagSet) {
	d := tile.DefaultDevice()
	fs.IntVar(&b.lanes, "lanes", d.Lanes, "lanes available")
	fs.IntVar(&b.scratchBytes, "scratch-bytes", d.ScratchBytes, "scratch bytes per lane")
	fs.IntVar(&b.inBytes, "in-bytes", 4, "input element width in bytes")
	fs.IntVar(&b.outBytes, "out-bytes", 0, "output element width in bytes; 0 for an in-place kernel")
	fs.IntVar(&b.alignBytes, "align-bytes", d.BlockBytes, "transfer block in bytes")
	fs.IntVar(&b.divisor, "divisor", tile.DoubleBuffer, "scratch divisor (2 for double buffering)")
	fs.IntVar(&b.reservedBytes, "reserved-bytes", 0, "scratch bytes held back for temporaries")
	fs.BoolVar(&b.interleaved, "interleaved", false, "deal chunks round-robin instead of in contiguous blocks")
}

func (b *budgetFlags) budget() int {
	return tile.BudgetElements(b.scratchBytes, b.inBytes+b.outBytes, b.reservedBytes)
}

func (b *budgetFlags) options() []tile.PlanOption {
	strategy := tile.Blockwise
	if b.interleaved {
		strategy = tile.Interleaved
	}
	return []tile.PlanOption{
		tile.WithAlignment(tile.AlignElementsFor(b.alignBytes, b.inBytes, b.outBytes)),
		tile.WithBufferDivisor(b.divisor),
		tile.WithStrategy(strategy),
	}
}

func newPlanCmd(a *app) *cobra.Command {
	var (
		flags    budgetFlags
		elements int
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Partition a flat workload across lanes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := tile.Plan(elements, flags.lanes, flags.budget(), flags.options()...)
			if err != nil {
				a.logger.Warn("plan rejected", "err", err)
				return err
			}
			a.logger.Debug("plan", "elements", elements, "budget", flags.budget(), "capacity", p.ChunkCapacity)
			printPlan(cmd.OutOrStdout(), p)
			return nil
		},
	}
	cmd.Flags().IntVarP(&elements, "elements", "n", 0, "total elements")
	flags.register(cmd.Flags())
	return cmd
}

func newRowsCmd(a *app) *cobra.Command {
	var (
		flags      budgetFlags
		rows, cols int
	)
	cmd := &cobra.Command{
		Use:   "rows",
		Short: "Partition a rows x cols workload without splitting rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := tile.PlanRows(rows, cols, flags.lanes, flags.budget(), flags.options()...)
			if err != nil {
				a.logger.Warn("row plan rejected", "err", err)
				return err
			}
			a.logger.Debug("row plan", "rows", rows, "cols", cols, "stride", p.RowStride)
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "rows %d, cols %d, stride %d, rows/chunk %d\n", p.Rows, p.Cols, p.RowStride, p.RowsPerChunk)
			printPlan(w, p.Units)
			return nil
		},
	}
	cmd.Flags().IntVar(&rows, "rows", 0, "number of rows")
	cmd.Flags().IntVar(&cols, "cols", 0, "elements per row")
	flags.register(cmd.Flags())
	return cmd
}

// printPlan writes the plan summary followed by one line per lane listing
// its global chunk indices.
func printPlan(w io.Writer, p tile.PartitionPlan) {
	fmt.Fprintf(w, "elements %d, lanes %d/%d, chunks %d x %d, tail %d, align %d, %v, imbalance %d\n",
		p.TotalElements, p.LaneCount, p.LanesAvailable, p.TotalChunks, p.ChunkCapacity,
		p.TailChunkSize, p.AlignElements, p.Strategy, p.Imbalance())
	for lane := range p.LaneCount {
		chunks := lo.Times(p.ChunksFor(lane), func(k int) string {
			return fmt.Sprint(p.GlobalChunk(lane, k))
		})
		fmt.Fprintf(w, "lane %d: %d elements, chunks [%s]\n", lane, p.LaneElements(lane), strings.Join(chunks, " "))
	}
}
