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

import "testing"

func TestAlign(t *testing.T) {
	tests := []struct {
		size, unit int
		up, down   int
		aligned    bool
	}{
		{0, 8, 0, 0, true},
		{1, 8, 8, 0, false},
		{8, 8, 8, 8, true},
		{9, 8, 16, 8, false},
		{5, 1, 5, 5, true},
		{5, 0, 5, 5, true},
	}
	for _, tt := range tests {
		if got := AlignUp(tt.size, tt.unit); got != tt.up {
			t.Errorf("AlignUp(%d, %d) = %d, want %d", tt.size, tt.unit, got, tt.up)
		}
		if got := AlignDown(tt.size, tt.unit); got != tt.down {
			t.Errorf("AlignDown(%d, %d) = %d, want %d", tt.size, tt.unit, got, tt.down)
		}
		if got := IsAligned(tt.size, tt.unit); got != tt.aligned {
			t.Errorf("IsAligned(%d, %d) = %v, want %v", tt.size, tt.unit, got, tt.aligned)
		}
	}
}

func TestCeilDiv(t *testing.T) {
	if CeilDiv(0, 4) != 0 || CeilDiv(1, 4) != 1 || CeilDiv(4, 4) != 1 || CeilDiv(5, 4) != 2 {
		t.Error("CeilDiv returned an unexpected value")
	}
}
