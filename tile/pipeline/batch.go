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

package pipeline

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/ajroetker/go-tilepipe/tile"
)

// BatchItem is one tensor of a batch: its input and output storage.
type BatchItem[In, Out tile.Element] struct {
	Src []In
	Dst []Out
}

// RunBatch applies k to every item, as the foreach operators do over a
// tensor list. All items are planned and checked first, so a configuration
// error in any of them fails the batch before a single lane starts. The
// launches then run concurrently, up to the launcher's batch limit.
func RunBatch[In, Out tile.Element](l *Launcher, k Kernel[In, Out], items []BatchItem[In, Out]) error {
	plans := make([]tile.PartitionPlan, len(items))
	for i, it := range items {
		if len(it.Dst) < len(it.Src) {
			return fmt.Errorf("batch item %d: %w: src has %d elements, dst has %d",
				i, ErrRegionTooSmall, len(it.Src), len(it.Dst))
		}
		p, err := Plan(l, k, len(it.Src))
		if err != nil {
			return fmt.Errorf("batch item %d: %w", i, err)
		}
		plans[i] = p
	}

	var g errgroup.Group
	g.SetLimit(max(l.batchLimit, 1))
	for i, it := range items {
		g.Go(func() error {
			return Launch(l, k, plans[i], Slice[In](it.Src), Slice[Out](it.Dst))
		})
	}
	return g.Wait()
}
