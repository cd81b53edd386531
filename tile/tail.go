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

// CeilDiv returns ceil(a / b) for a >= 0 and b > 0.
func CeilDiv(a, b int) int {
	return (a + b - 1) / b
}

// AlignUp rounds size up to the next multiple of unit.
// This is useful for sizing scratch regions that are moved in whole blocks.
func AlignUp(size, unit int) int {
	if unit <= 1 {
		return size
	}
	return CeilDiv(size, unit) * unit
}

// AlignDown rounds size down to a multiple of unit.
func AlignDown(size, unit int) int {
	if unit <= 1 {
		return size
	}
	return (size / unit) * unit
}

// IsAligned returns true if size is a multiple of unit.
func IsAligned(size, unit int) bool {
	if unit <= 1 {
		return true
	}
	return size%unit == 0
}
