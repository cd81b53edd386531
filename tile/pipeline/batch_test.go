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
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajroetker/go-tilepipe/tile"
	"github.com/ajroetker/go-tilepipe/tile/contrib/workerpool"
)

func TestRunBatch(t *testing.T) {
	double := NewInPlaceKernel("double", func(c tile.ChunkDescriptor, buf []float32) {
		for i := range buf[:c.Count()] {
			buf[i] *= 2
		}
	})

	sizes := []int{0, 1, 33, 100, 1000, 65}
	items := make([]BatchItem[float32, float32], len(sizes))
	for i, n := range sizes {
		items[i] = BatchItem[float32, float32]{Src: ramp(n), Dst: make([]float32, n)}
	}

	for _, limit := range []int{0, 1, 3, 16} {
		l := newTestLauncher(t, 3, 256, WithBatchLimit(limit))
		require.NoError(t, RunBatch(l, double, items))
		for i, it := range items {
			for j, v := range it.Src {
				require.Equal(t, 2*v, it.Dst[j], "limit %d item %d index %d", limit, i, j)
			}
		}
	}
}

func TestRunBatchFailsBeforeLaunching(t *testing.T) {
	rec := &Recorder{}
	l := newTestLauncher(t, 2, 256, WithTracer(rec))

	items := []BatchItem[float32, float32]{
		{Src: ramp(64), Dst: make([]float32, 64)},
		{Src: ramp(64), Dst: make([]float32, 10)},
	}
	err := RunBatch(l, copyKernel(), items)
	require.ErrorIs(t, err, ErrRegionTooSmall)
	assert.Contains(t, err.Error(), "batch item 1")
	assert.Empty(t, rec.Events())
	assert.Equal(t, make([]float32, 64), items[0].Dst)

	small := newTestLauncher(t, 2, 16, WithTracer(rec))
	err = RunBatch(small, copyKernel(), items[:1])
	require.ErrorIs(t, err, tile.ErrScratchTooSmall)
	var cfg *tile.ConfigError
	require.ErrorAs(t, err, &cfg)
	assert.Equal(t, 64, cfg.TotalElements)
	assert.Empty(t, rec.Events())
}

func TestLauncherLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	l := newTestLauncher(t, 2, 256, WithLogger(logger))

	require.NoError(t, Run(l, copyKernel(), ramp(100), make([]float32, 100)))
	assert.Contains(t, buf.String(), "msg=plan")
	assert.Contains(t, buf.String(), "kernel=copy")
	assert.Contains(t, buf.String(), "msg=\"launch done\"")

	buf.Reset()
	require.Error(t, Run(l, copyKernel(), ramp(100), make([]float32, 99)))
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "launch rejected")
}

func TestLauncherSharedPool(t *testing.T) {
	pool := workerpool.New(2)
	defer pool.Close()

	l := NewLauncher(WithPool(pool), WithDevice(tile.Device{Lanes: 4, ScratchBytes: 256, BlockBytes: 32}))
	l.Close() // must not close a pool it does not own
	assert.Equal(t, 4, l.Device().Lanes)

	// More lanes than workers still completes.
	src := ramp(1000)
	dst := make([]float32, len(src))
	require.NoError(t, Run(l, copyKernel(), src, dst))
	assert.Equal(t, src, dst)
	assert.Equal(t, 2, pool.NumWorkers())
}

func TestLauncherDefaults(t *testing.T) {
	l := NewLauncher()
	defer l.Close()
	d := l.Device()
	assert.Positive(t, d.Lanes)
	assert.Positive(t, d.ScratchBytes)
	assert.GreaterOrEqual(t, d.BlockBytes, tile.MinBlockBytes)

	src := ramp(10_000)
	dst := make([]float32, len(src))
	require.NoError(t, Run(l, inPlaceIdentity(), src, dst))
	assert.Equal(t, src, dst)
}
