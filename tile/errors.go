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

package tile

import (
	"errors"
	"fmt"
)

// Configuration errors reported by the planners. They are returned wrapped in
// a *ConfigError; use errors.Is to test for them.
var (
	// ErrNoLanes is returned when fewer than one compute lane is available.
	ErrNoLanes = errors.New("no compute lanes available")

	// ErrScratchTooSmall is returned when the scratch budget cannot hold a
	// single alignment block per buffer half.
	ErrScratchTooSmall = errors.New("scratch budget smaller than one alignment block")

	// ErrRowTooWide is returned by PlanRows when one padded row does not fit
	// in a buffer half.
	ErrRowTooWide = errors.New("row does not fit in one scratch half")

	// ErrNegativeWorkload is returned for negative element or row counts.
	ErrNegativeWorkload = errors.New("negative workload size")

	// ErrBadAlignment is returned for a non-positive alignment or a buffer
	// divisor below DoubleBuffer.
	ErrBadAlignment = errors.New("alignment must be positive and buffer divisor at least 2")
)

// ConfigError describes a launch configuration that was rejected before any
// lane started.
type ConfigError struct {
	Op  string // "plan" or "plan rows"
	Err error  // one of the Err* sentinels

	TotalElements  int
	LanesAvailable int
	BudgetElements int
	AlignElements  int
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("tile: %s: %v (elements=%d lanes=%d budget=%d align=%d)",
		e.Op, e.Err, e.TotalElements, e.LanesAvailable, e.BudgetElements, e.AlignElements)
}

// Unwrap allows error chain inspection.
func (e *ConfigError) Unwrap() error {
	return e.Err
}
