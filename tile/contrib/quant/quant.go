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

// Package quant provides type-changing pipeline kernels: affine int8
// quantization and float16 conversion.
//
// The kernels are out of place, so their scratch budget accounts for both
// the input and the output element widths.
package quant

import (
	"math"

	"github.com/x448/float16"

	"github.com/ajroetker/go-tilepipe/tile"
	"github.com/ajroetker/go-tilepipe/tile/pipeline"
)

// QuantizeInt8 maps x to round(x/scale + offset), rounding half to even and
// saturating to [-128, 127]. NaN maps to offset.
func QuantizeInt8(x, scale, offset float32) int8 {
	v := float64(x)/float64(scale) + float64(offset)
	if math.IsNaN(v) {
		v = float64(offset)
	}
	v = math.RoundToEven(v)
	switch {
	case v < math.MinInt8:
		return math.MinInt8
	case v > math.MaxInt8:
		return math.MaxInt8
	}
	return int8(v)
}

// DequantizeInt8 is the inverse mapping, (q - offset) * scale.
func DequantizeInt8(q int8, scale, offset float32) float32 {
	return (float32(q) - offset) * scale
}

// QuantizeInt8Kernel quantizes float32 input to int8.
func QuantizeInt8Kernel(scale, offset float32) pipeline.Kernel[float32, int8] {
	return pipeline.NewKernel("quantize-int8", func(c tile.ChunkDescriptor, in []float32, out []int8) {
		for i, x := range in[:c.Count()] {
			out[i] = QuantizeInt8(x, scale, offset)
		}
	})
}

// DequantizeInt8Kernel expands int8 input back to float32.
func DequantizeInt8Kernel(scale, offset float32) pipeline.Kernel[int8, float32] {
	return pipeline.NewKernel("dequantize-int8", func(c tile.ChunkDescriptor, in []int8, out []float32) {
		for i, q := range in[:c.Count()] {
			out[i] = DequantizeInt8(q, scale, offset)
		}
	})
}

// ToFloat16Kernel narrows float32 input to IEEE half precision, rounding to
// nearest even.
func ToFloat16Kernel() pipeline.Kernel[float32, float16.Float16] {
	return pipeline.NewKernel("to-float16", func(c tile.ChunkDescriptor, in []float32, out []float16.Float16) {
		for i, x := range in[:c.Count()] {
			out[i] = float16.Fromfloat32(x)
		}
	})
}

// FromFloat16Kernel widens half precision input to float32. The conversion
// is exact.
func FromFloat16Kernel() pipeline.Kernel[float16.Float16, float32] {
	return pipeline.NewKernel("from-float16", func(c tile.ChunkDescriptor, in []float16.Float16, out []float32) {
		for i, h := range in[:c.Count()] {
			out[i] = h.Float32()
		}
	})
}

// Quantize runs QuantizeInt8Kernel over input.
func Quantize(l *pipeline.Launcher, input []float32, output []int8, scale, offset float32) error {
	return pipeline.Run(l, QuantizeInt8Kernel(scale, offset), input, output)
}

// Dequantize runs DequantizeInt8Kernel over input.
func Dequantize(l *pipeline.Launcher, input []int8, output []float32, scale, offset float32) error {
	return pipeline.Run(l, DequantizeInt8Kernel(scale, offset), input, output)
}

// ToFloat16 converts input to half precision.
func ToFloat16(l *pipeline.Launcher, input []float32, output []float16.Float16) error {
	return pipeline.Run(l, ToFloat16Kernel(), input, output)
}

// FromFloat16 converts half precision input to float32.
func FromFloat16(l *pipeline.Launcher, input []float16.Float16, output []float32) error {
	return pipeline.Run(l, FromFloat16Kernel(), input, output)
}
