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

// Package tile plans how a workload is split across parallel compute lanes
// and fixed-capacity scratch chunks.
//
// A plan is computed once per launch, off the critical path, and is then
// shared read-only by every lane:
//
//	plan, err := tile.Plan(len(data), 8, 4096)
//	if err != nil {
//	    return err // configuration error, nothing has run
//	}
//	for lane := range plan.Lanes() {
//	    for k := range plan.ChunksFor(lane) {
//	        c := plan.Chunk(lane, k)
//	        // c.Offset, c.Count(), c.Half() ...
//	    }
//	}
//
// The lane-side executor lives in package tile/pipeline.
package tile
