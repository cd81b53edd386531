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

// Package norm provides row-wise normalization kernels for row plans.
//
// A chunk of a row plan holds whole rows at a padded pitch; the kernels
// here read Cols valid values of each row and leave the padding alone
// unless noted.
package norm

import (
	"errors"
	"fmt"
	"math"

	"github.com/ajroetker/go-tilepipe/tile"
	"github.com/ajroetker/go-tilepipe/tile/pipeline"
)

// ErrParamLength is returned when a per-column parameter does not match the
// row width.
var ErrParamLength = errors.New("norm: parameter length does not match row width")

func eachRow[T tile.Floats](c tile.ChunkDescriptor, buf []T, fn func(row []T)) {
	for r := range c.Rows {
		fn(buf[r*c.Stride : r*c.Stride+c.Stride])
	}
}

// residentBytes is the scratch held back for per-column parameters, which
// stay loaded for the whole launch.
func residentBytes[T tile.Floats](params ...[]T) int {
	n := 0
	for _, p := range params {
		n += len(p)
	}
	return tile.AlignUp(n*tile.SizeOf[T](), tile.MinBlockBytes)
}

// RMSNormKernel normalizes each row by its root mean square:
//
//	out[i] = x[i] / sqrt(mean(x^2) + eps) * gamma[i]
//
// gamma is optional; when given it is kept in reserved scratch.
func RMSNormKernel[T tile.Floats](eps T, gamma []T) pipeline.Kernel[T, T] {
	return pipeline.NewInPlaceKernel("rms-norm", func(c tile.ChunkDescriptor, buf []T) {
		eachRow(c, buf, func(row []T) {
			var ss float64
			for _, x := range row[:c.Cols] {
				ss += float64(x) * float64(x)
			}
			inv := T(1 / math.Sqrt(ss/float64(c.Cols)+float64(eps)))
			for i := range c.Cols {
				row[i] *= inv
				if gamma != nil {
					row[i] *= gamma[i]
				}
			}
		})
	}).WithReservedBytes(residentBytes(gamma))
}

// LayerNormKernel normalizes each row to zero mean and unit variance, then
// applies the optional affine gamma and beta, kept in reserved scratch.
func LayerNormKernel[T tile.Floats](eps T, gamma, beta []T) pipeline.Kernel[T, T] {
	return pipeline.NewInPlaceKernel("layer-norm", func(c tile.ChunkDescriptor, buf []T) {
		invN := 1 / float64(c.Cols)
		eachRow(c, buf, func(row []T) {
			var mean float64
			for _, x := range row[:c.Cols] {
				mean += float64(x)
			}
			mean *= invN
			var variance float64
			for _, x := range row[:c.Cols] {
				d := float64(x) - mean
				variance += d * d
			}
			invStd := 1 / math.Sqrt(variance*invN+float64(eps))
			for i := range c.Cols {
				v := (float64(row[i]) - mean) * invStd
				if gamma != nil {
					v *= float64(gamma[i])
				}
				if beta != nil {
					v += float64(beta[i])
				}
				row[i] = T(v)
			}
		})
	}).WithReservedBytes(residentBytes(gamma, beta))
}

// SoftmaxKernel computes a numerically stable softmax of each row. Rows are
// padded with -Inf, which contributes exp(-Inf) = 0, so the whole padded
// row is reduced without masking.
func SoftmaxKernel[T tile.Floats]() pipeline.Kernel[T, T] {
	return pipeline.NewInPlaceKernel("softmax", func(c tile.ChunkDescriptor, buf []T) {
		eachRow(c, buf, func(row []T) {
			m := math.Inf(-1)
			for _, x := range row {
				m = max(m, float64(x))
			}
			var sum float64
			for i, x := range row {
				e := math.Exp(float64(x) - m)
				row[i] = T(e)
				sum += e
			}
			inv := 1 / sum
			for i := range row {
				row[i] = T(float64(row[i]) * inv)
			}
		})
	}).WithPadValue(T(math.Inf(-1)))
}

func checkParam[T tile.Floats](name string, p []T, cols int) error {
	if p != nil && len(p) != cols {
		return fmt.Errorf("%w: %s has %d values, rows have %d", ErrParamLength, name, len(p), cols)
	}
	return nil
}

// RMSNorm applies RMSNormKernel to a rows x cols matrix.
func RMSNorm[T tile.Floats](l *pipeline.Launcher, input, output []T, rows, cols int, gamma []T, eps T) error {
	if err := checkParam("gamma", gamma, cols); err != nil {
		return err
	}
	return pipeline.RunRows(l, RMSNormKernel(eps, gamma), input, output, rows, cols)
}

// LayerNorm applies LayerNormKernel to a rows x cols matrix.
func LayerNorm[T tile.Floats](l *pipeline.Launcher, input, output []T, rows, cols int, gamma, beta []T, eps T) error {
	if err := errors.Join(checkParam("gamma", gamma, cols), checkParam("beta", beta, cols)); err != nil {
		return err
	}
	return pipeline.RunRows(l, LayerNormKernel(eps, gamma, beta), input, output, rows, cols)
}

// Softmax applies SoftmaxKernel to a rows x cols matrix.
func Softmax[T tile.Floats](l *pipeline.Launcher, input, output []T, rows, cols int) error {
	return pipeline.RunRows(l, SoftmaxKernel[T](), input, output, rows, cols)
}
