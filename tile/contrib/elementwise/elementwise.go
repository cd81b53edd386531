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

// Package elementwise provides in-place pipeline kernels that apply a
// scalar function to every element of a flat workload.
//
// Every kernel also runs over the padding columns of the tail chunk; the
// engine never stores those results.
package elementwise

import (
	"math"
	"slices"

	"github.com/samber/lo"

	"github.com/ajroetker/go-tilepipe/tile"
	"github.com/ajroetker/go-tilepipe/tile/pipeline"
)

// DefaultLeakyAlpha is the negative slope used by the registered
// "leaky-relu" operation.
const DefaultLeakyAlpha = 0.01

func apply[T tile.Floats](name string, f func(float64) float64) pipeline.Kernel[T, T] {
	return pipeline.NewInPlaceKernel(name, func(_ tile.ChunkDescriptor, buf []T) {
		for i, x := range buf {
			buf[i] = T(f(float64(x)))
		}
	})
}

func identity(x float64) float64 { return x }

func relu(x float64) float64 {
	if x > 0 {
		return x
	}
	return 0
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func silu(x float64) float64 {
	return x * sigmoid(x)
}

// gelu is x * 0.5 * (1 + erf(x / sqrt(2))).
func gelu(x float64) float64 {
	return x * 0.5 * (1.0 + math.Erf(x*0.7071067811865476))
}

// geluApprox is x * sigmoid(1.702 * x).
func geluApprox(x float64) float64 {
	return x * sigmoid(1.702*x)
}

func leaky(alpha float64) func(float64) float64 {
	return func(x float64) float64 {
		if x > 0 {
			return x
		}
		return alpha * x
	}
}

func scale(alpha float64) func(float64) float64 {
	return func(x float64) float64 { return alpha * x }
}

// IdentityKernel copies its input through unchanged.
func IdentityKernel[T tile.Floats]() pipeline.Kernel[T, T] {
	return apply[T]("identity", identity)
}

// ScaleKernel multiplies every element by alpha.
func ScaleKernel[T tile.Floats](alpha T) pipeline.Kernel[T, T] {
	return apply[T]("scale", scale(float64(alpha)))
}

// ReLUKernel computes max(0, x).
func ReLUKernel[T tile.Floats]() pipeline.Kernel[T, T] {
	return apply[T]("relu", relu)
}

// LeakyReLUKernel computes x for x > 0 and alpha*x otherwise.
func LeakyReLUKernel[T tile.Floats](alpha T) pipeline.Kernel[T, T] {
	return apply[T]("leaky-relu", leaky(float64(alpha)))
}

// SiLUKernel computes x * sigmoid(x), also known as Swish.
func SiLUKernel[T tile.Floats]() pipeline.Kernel[T, T] {
	return apply[T]("silu", silu)
}

// GELUKernel computes the exact GELU using the error function.
func GELUKernel[T tile.Floats]() pipeline.Kernel[T, T] {
	return apply[T]("gelu", gelu)
}

// GELUApproxKernel computes the sigmoid approximation of GELU.
func GELUApproxKernel[T tile.Floats]() pipeline.Kernel[T, T] {
	return apply[T]("gelu-approx", geluApprox)
}

// SigmoidKernel computes 1 / (1 + exp(-x)).
func SigmoidKernel[T tile.Floats]() pipeline.Kernel[T, T] {
	return apply[T]("sigmoid", sigmoid)
}

// TanhKernel computes the hyperbolic tangent.
func TanhKernel[T tile.Floats]() pipeline.Kernel[T, T] {
	return apply[T]("tanh", math.Tanh)
}

// Identity copies input into output through the pipeline.
func Identity[T tile.Floats](l *pipeline.Launcher, input, output []T) error {
	return pipeline.Run(l, IdentityKernel[T](), input, output)
}

// Scale writes alpha*input into output.
func Scale[T tile.Floats](l *pipeline.Launcher, input, output []T, alpha T) error {
	return pipeline.Run(l, ScaleKernel(alpha), input, output)
}

// ReLU applies ReLU element-wise.
func ReLU[T tile.Floats](l *pipeline.Launcher, input, output []T) error {
	return pipeline.Run(l, ReLUKernel[T](), input, output)
}

// LeakyReLU applies LeakyReLU element-wise.
func LeakyReLU[T tile.Floats](l *pipeline.Launcher, input, output []T, alpha T) error {
	return pipeline.Run(l, LeakyReLUKernel(alpha), input, output)
}

// SiLU applies SiLU element-wise.
func SiLU[T tile.Floats](l *pipeline.Launcher, input, output []T) error {
	return pipeline.Run(l, SiLUKernel[T](), input, output)
}

// GELU applies the exact GELU element-wise.
func GELU[T tile.Floats](l *pipeline.Launcher, input, output []T) error {
	return pipeline.Run(l, GELUKernel[T](), input, output)
}

// GELUApprox applies the approximate GELU element-wise.
func GELUApprox[T tile.Floats](l *pipeline.Launcher, input, output []T) error {
	return pipeline.Run(l, GELUApproxKernel[T](), input, output)
}

// Sigmoid applies the logistic function element-wise.
func Sigmoid[T tile.Floats](l *pipeline.Launcher, input, output []T) error {
	return pipeline.Run(l, SigmoidKernel[T](), input, output)
}

// Tanh applies tanh element-wise.
func Tanh[T tile.Floats](l *pipeline.Launcher, input, output []T) error {
	return pipeline.Run(l, TanhKernel[T](), input, output)
}

var registry = map[string]func(float64) float64{
	"identity":    identity,
	"relu":        relu,
	"leaky-relu":  leaky(DefaultLeakyAlpha),
	"silu":        silu,
	"gelu":        gelu,
	"gelu-approx": geluApprox,
	"sigmoid":     sigmoid,
	"tanh":        math.Tanh,
}

// Names returns the registered operation names in sorted order.
func Names() []string {
	names := lo.Keys(registry)
	slices.Sort(names)
	return names
}

// Lookup returns the kernel registered under name.
func Lookup[T tile.Floats](name string) (pipeline.Kernel[T, T], bool) {
	f, ok := registry[name]
	if !ok {
		return pipeline.Kernel[T, T]{}, false
	}
	return apply[T](name, f), true
}

// Reference evaluates the operation registered under name directly, without
// the pipeline. It reports false for an unknown name.
func Reference[T tile.Floats](name string, input, output []T) bool {
	f, ok := registry[name]
	if !ok {
		return false
	}
	for i := range min(len(input), len(output)) {
		output[i] = T(f(float64(input[i])))
	}
	return true
}
