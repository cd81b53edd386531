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
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/ajroetker/go-tilepipe/tile"
	"github.com/ajroetker/go-tilepipe/tile/pipeline"
)

// Int8Max is the largest magnitude a dynamic quantizer maps to.
const Int8Max = 127

// SmoothDivisor is the scratch divisor of smoothed dynamic quantization:
// two buffer halves plus one float32 staging buffer of the same length.
const SmoothDivisor = 3

var (
	// ErrScaleLength is returned when the scale output cannot hold one
	// scale per row or per block.
	ErrScaleLength = errors.New("quant: scale output too short")

	// ErrSmoothLength is returned when the smoothing vector does not match
	// the row width.
	ErrSmoothLength = errors.New("quant: smooth length does not match row width")

	// ErrBlockSize is returned for a non-positive block size.
	ErrBlockSize = errors.New("quant: block size must be positive")
)

var stagePool = sync.Pool{
	New: func() any {
		buf := make([]float32, 0, 4096)
		return &buf
	},
}

// residentBytes rounds the size of a per-column vector kept in scratch up to
// the minimum transfer block.
func residentBytes(n int) int {
	return tile.AlignUp(n*tile.SizeOf[float32](), tile.MinBlockBytes)
}

// DynamicScale returns absMax/127, the scale that maps absMax to the edge of
// the int8 range. A zero absMax gives a zero scale.
func DynamicScale(absMax float32) float32 {
	return absMax / Int8Max
}

// quantizeDynamic maps x with a dynamic scale, rounding half to even.
func quantizeDynamic(x, scale float32) int8 {
	if scale == 0 {
		return 0
	}
	return QuantizeInt8(x, scale, 0)
}

func absMax(row []float32) float32 {
	var m float32
	for _, x := range row {
		m = max(m, float32(math.Abs(float64(x))))
	}
	return m
}

// DynamicQuantKernel quantizes every row of a row plan with its own scale,
// absMax(row)/127, and writes that scale to scales[row]. When smooth is
// non-nil each row is first multiplied column-wise by smooth; the smoothing
// vector stays resident in reserved scratch and the smoothed row is staged
// in a third buffer, so such a kernel plans with SmoothDivisor.
func DynamicQuantKernel(smooth, scales []float32) pipeline.Kernel[float32, int8] {
	k := pipeline.NewKernel("dynamic-quant", func(c tile.ChunkDescriptor, in []float32, out []int8) {
		first := c.Offset / c.Cols
		var stage *[]float32
		if smooth != nil {
			stage = stagePool.Get().(*[]float32)
			defer stagePool.Put(stage)
		}
		for r := range c.Rows {
			row := in[r*c.Stride : r*c.Stride+c.Cols]
			if smooth != nil {
				*stage = append((*stage)[:0], row...)
				for i := range *stage {
					(*stage)[i] *= smooth[i]
				}
				row = *stage
			}
			scale := DynamicScale(absMax(row))
			scales[first+r] = scale
			dst := out[r*c.Stride:]
			for i, x := range row {
				dst[i] = quantizeDynamic(x, scale)
			}
		}
	})
	if smooth != nil {
		k = k.WithReservedBytes(residentBytes(len(smooth))).WithScratchDivisor(SmoothDivisor)
	}
	return k
}

// BlockCount returns the number of quantization blocks in a row of cols
// elements.
func BlockCount(cols, blockSize int) int {
	return tile.CeilDiv(cols, blockSize)
}

// DynamicBlockQuantKernel splits every row into blocks of blockSize columns,
// the last one possibly short, and quantizes each block with its own
// absMax/127 scale. Scales are written row-major to
// scales[row*BlockCount(cols, blockSize)+block].
func DynamicBlockQuantKernel(blockSize int, scales []float32) pipeline.Kernel[float32, int8] {
	return pipeline.NewKernel("dynamic-block-quant", func(c tile.ChunkDescriptor, in []float32, out []int8) {
		first := c.Offset / c.Cols
		blocks := BlockCount(c.Cols, blockSize)
		for r := range c.Rows {
			row := in[r*c.Stride : r*c.Stride+c.Cols]
			dst := out[r*c.Stride:]
			for b := range blocks {
				start, end := b*blockSize, min((b+1)*blockSize, c.Cols)
				scale := DynamicScale(absMax(row[start:end]))
				scales[(first+r)*blocks+b] = scale
				for i := start; i < end; i++ {
					dst[i] = quantizeDynamic(row[i], scale)
				}
			}
		}
	})
}

// DynamicQuant quantizes a rows x cols matrix row by row. scales receives
// one scale per row; smooth is optional.
func DynamicQuant(l *pipeline.Launcher, input []float32, output []int8, scales []float32, rows, cols int, smooth []float32) error {
	if smooth != nil && len(smooth) != cols {
		return fmt.Errorf("%w: smooth has %d values, rows have %d", ErrSmoothLength, len(smooth), cols)
	}
	if len(scales) < rows {
		return fmt.Errorf("%w: %d scales for %d rows", ErrScaleLength, len(scales), rows)
	}
	return pipeline.RunRows(l, DynamicQuantKernel(smooth, scales), input, output, rows, cols)
}

// DynamicBlockQuant quantizes a rows x cols matrix in blocks of blockSize
// columns. scales receives rows*BlockCount(cols, blockSize) values.
func DynamicBlockQuant(l *pipeline.Launcher, input []float32, output []int8, scales []float32, rows, cols, blockSize int) error {
	if blockSize <= 0 {
		return fmt.Errorf("%w: got %d", ErrBlockSize, blockSize)
	}
	if n := rows * BlockCount(cols, blockSize); len(scales) < n {
		return fmt.Errorf("%w: %d scales for %d blocks", ErrScaleLength, len(scales), n)
	}
	return pipeline.RunRows(l, DynamicBlockQuantKernel(blockSize, scales), input, output, rows, cols)
}

// DequantizeRows reverses DynamicQuant: output[r*cols+i] = q[r*cols+i] *
// scales[r]. Smoothing is not undone.
func DequantizeRows(q []int8, scales []float32, output []float32, rows, cols int) {
	for r := range rows {
		for i := range cols {
			output[r*cols+i] = float32(q[r*cols+i]) * scales[r]
		}
	}
}

// DequantizeBlocks reverses DynamicBlockQuant.
func DequantizeBlocks(q []int8, scales []float32, output []float32, rows, cols, blockSize int) {
	blocks := BlockCount(cols, blockSize)
	for r := range rows {
		for i := range cols {
			output[r*cols+i] = float32(q[r*cols+i]) * scales[r*blocks+i/blockSize]
		}
	}
}
