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

package quant

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajroetker/go-tilepipe/tile"
	"github.com/ajroetker/go-tilepipe/tile/pipeline"
)

func newRowLauncher(tb testing.TB) *pipeline.Launcher {
	tb.Helper()
	l := pipeline.NewLauncher(pipeline.WithDevice(tile.Device{Lanes: 3, ScratchBytes: 4096, BlockBytes: 32}))
	tb.Cleanup(l.Close)
	return l
}

// rowData gives every row a different magnitude; row 3 is all zeros.
func rowData(rows, cols int) []float32 {
	data := make([]float32, rows*cols)
	for r := range rows {
		if r == 3 {
			continue
		}
		mag := float32(r%7+1) * 0.75
		for i := range cols {
			data[r*cols+i] = mag * float32((i*13+r)%23-11) / 11
		}
	}
	return data
}

func assertRoundTrip(t *testing.T, src, back []float32, scale func(i int) float32) {
	t.Helper()
	for i, x := range src {
		s := scale(i)
		require.InDelta(t, x, back[i], float64(s)/2*1.001+1e-7, "index %d scale %v", i, s)
	}
}

func TestDynamicQuant(t *testing.T) {
	const rows, cols = 37, 40
	l := newRowLauncher(t)
	src := rowData(rows, cols)
	q := make([]int8, len(src))
	scales := make([]float32, rows)
	require.NoError(t, DynamicQuant(l, src, q, scales, rows, cols, nil))

	for r := range rows {
		row := src[r*cols : (r+1)*cols]
		require.Equal(t, absMax(row)/Int8Max, scales[r], "row %d", r)
		if r == 3 {
			assert.Zero(t, scales[r])
			assert.Equal(t, make([]int8, cols), q[r*cols:(r+1)*cols])
			continue
		}
		// The largest magnitude lands on the edge of the range.
		var peak int8
		for _, v := range q[r*cols : (r+1)*cols] {
			peak = max(peak, v, -v)
		}
		assert.Equal(t, int8(Int8Max), peak, "row %d", r)
	}

	back := make([]float32, len(src))
	DequantizeRows(q, scales, back, rows, cols)
	assertRoundTrip(t, src, back, func(i int) float32 { return scales[i/cols] })
}

func TestDynamicQuantSmooth(t *testing.T) {
	const rows, cols = 20, 40
	l := newRowLauncher(t)
	src := rowData(rows, cols)
	smooth := make([]float32, cols)
	for i := range smooth {
		smooth[i] = 0.5 + float32(i%5)*0.25
	}

	q := make([]int8, len(src))
	scales := make([]float32, rows)
	require.NoError(t, DynamicQuant(l, src, q, scales, rows, cols, smooth))

	smoothed := make([]float32, len(src))
	for i, x := range src {
		smoothed[i] = x * smooth[i%cols]
	}
	for r := range rows {
		require.Equal(t, absMax(smoothed[r*cols:(r+1)*cols])/Int8Max, scales[r], "row %d", r)
	}
	back := make([]float32, len(src))
	DequantizeRows(q, scales, back, rows, cols)
	assertRoundTrip(t, smoothed, back, func(i int) float32 { return scales[i/cols] })
}

func TestDynamicQuantScratchReservation(t *testing.T) {
	const rows, cols = 64, 40
	l := newRowLauncher(t)
	scales := make([]float32, rows)

	plain, err := pipeline.PlanRows(l, DynamicQuantKernel(nil, scales), rows, cols)
	require.NoError(t, err)
	// 4096 bytes / 5 = 819 elements, halved and split into 64-wide rows.
	assert.Equal(t, 64, plain.RowStride)
	assert.Equal(t, 6, plain.RowsPerChunk)

	smoothed, err := pipeline.PlanRows(l, DynamicQuantKernel(make([]float32, cols), scales), rows, cols)
	require.NoError(t, err)
	// 160 bytes of smoothing vector are held back and the rest is split
	// three ways: (4096-160)/5 = 787, /3 = 262, 4 rows of 64.
	assert.Equal(t, 4, smoothed.RowsPerChunk)
}

func TestDynamicBlockQuant(t *testing.T) {
	const rows, cols, blockSize = 23, 100, 32
	l := newRowLauncher(t)
	src := rowData(rows, cols)
	blocks := BlockCount(cols, blockSize)
	require.Equal(t, 4, blocks)

	q := make([]int8, len(src))
	scales := make([]float32, rows*blocks)
	require.NoError(t, DynamicBlockQuant(l, src, q, scales, rows, cols, blockSize))

	for r := range rows {
		for b := range blocks {
			start, end := r*cols+b*blockSize, r*cols+min((b+1)*blockSize, cols)
			require.Equal(t, absMax(src[start:end])/Int8Max, scales[r*blocks+b], "row %d block %d", r, b)
		}
	}

	back := make([]float32, len(src))
	DequantizeBlocks(q, scales, back, rows, cols, blockSize)
	assertRoundTrip(t, src, back, func(i int) float32 {
		return scales[(i/cols)*blocks+(i%cols)/blockSize]
	})

	// Blocks are never coarser than rows.
	rowScales := make([]float32, rows)
	require.NoError(t, DynamicQuant(l, src, make([]int8, len(src)), rowScales, rows, cols, nil))
	for r := range rows {
		for b := range blocks {
			assert.LessOrEqual(t, scales[r*blocks+b], rowScales[r])
		}
	}
}

func TestDynamicQuantErrors(t *testing.T) {
	l := newRowLauncher(t)
	src := rowData(4, 8)
	q := make([]int8, len(src))

	require.ErrorIs(t, DynamicQuant(l, src, q, make([]float32, 4), 4, 8, make([]float32, 7)), ErrSmoothLength)
	require.ErrorIs(t, DynamicQuant(l, src, q, make([]float32, 3), 4, 8, nil), ErrScaleLength)
	require.ErrorIs(t, DynamicBlockQuant(l, src, q, make([]float32, 8), 4, 8, 0), ErrBlockSize)
	require.ErrorIs(t, DynamicBlockQuant(l, src, q, make([]float32, 7), 4, 8, 4), ErrScaleLength)
	assert.Equal(t, make([]int8, len(src)), q)

	assert.Zero(t, quantizeDynamic(float32(math.Pi), 0))
}
