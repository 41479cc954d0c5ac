// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package burst

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mlnoga/burstlight/internal/filter"
	"github.com/mlnoga/burstlight/internal/morph"
	"github.com/mlnoga/burstlight/internal/stats"
)

// Percentile of the background above which pixels belong to the region of interest
const diskPercentile = 85

// Iterations of binary opening and closing applied to the thresholded background
const diskCleanupIterations = 2

// Quiet background and region of interest shared by all frames of a cube. Read-only once built
type Model struct {
	Width      int
	Height     int
	Frames     [][]float32   // frames after optional spatial smoothing
	Background []float32     // per-pixel temporal median of Frames
	Threshold  float32       // background level separating the region from the sky
	Mask       *morph.Mask   // region of interest, never empty
	Regions    int           // number of connected regions found before keeping the largest
	Degenerate bool          // no region found, mask covers the whole frame
}

// Builds the background and region mask for the given cube.
// Fails with ErrEmptyInput if the cube has no frames
func BuildModel(ctx context.Context, cube *Cube, p Params, logger *slog.Logger) (*Model, error) {
	if cube.Len()==0 { return nil, ErrEmptyInput }
	m:=&Model{Width:cube.Width, Height:cube.Height}

	var err error
	if m.Frames, err=smoothFrames(ctx, cube, p.SmoothSigma, p.MaxThreads); err!=nil {
		return nil, err
	}
	m.Background=stats.TemporalMedian(m.Frames, m.Width, p.MaxThreads)
	m.Threshold=stats.Percentile(m.Background, diskPercentile)

	mask:=morph.Threshold(m.Background, m.Width, m.Threshold)
	mask=mask.Open(diskCleanupIterations).Close(diskCleanupIterations)
	largest, n:=mask.Largest()
	m.Regions=n
	if n==0 {
		m.Degenerate=true
		largest=morph.NewFullMask(m.Width, m.Height)
		logger.Warn("DegenerateMask: no region above background threshold, using whole frame",
			"threshold", m.Threshold, "width", m.Width, "height", m.Height)
	}

	m.Mask=largest
	if p.ExcludeLimbPx>0 {
		eroded:=largest.Erode(p.ExcludeLimbPx)
		if eroded.Count()>0 {
			m.Mask=eroded
		} else {
			logger.Warn("limb exclusion would empty the region mask, keeping it uneroded",
				"excludeLimbPx", p.ExcludeLimbPx, "regionPixels", largest.Count())
		}
	}
	logger.Debug("background model", "threshold", m.Threshold, "regions", n, "maskPixels", m.Mask.Count())
	return m, nil
}

// Applies the spatial gauss filter to all frames in parallel. Returns the frames as is for sigma<=0
func smoothFrames(ctx context.Context, cube *Cube, sigma float64, maxThreads int) ([][]float32, error) {
	if sigma<=0 { return cube.Frames, nil }
	res:=make([][]float32, len(cube.Frames))
	err:=forEachFrame(ctx, len(cube.Frames), maxThreads, func(i int) {
		res[i]=filter.Gauss(cube.Frames[i], cube.Width, sigma)
	})
	return res, err
}

// Runs fn for each frame index on a bounded pool of workers. Each index is processed exactly once.
// Stops handing out work when the context is cancelled
func forEachFrame(ctx context.Context, n, maxThreads int, fn func(i int)) error {
	if maxThreads<1 { maxThreads=1 }
	if maxThreads>n { maxThreads=n }

	indices:=make(chan int)
	var wg sync.WaitGroup
	for w:=0; w<maxThreads; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i:=range indices { fn(i) }
		}()
	}

	var err error
	loop:
	for i:=0; i<n; i++ {
		select {
		case indices<-i:
		case <-ctx.Done():
			err=ctx.Err()
			break loop
		}
	}
	close(indices)
	wg.Wait()
	return err
}
