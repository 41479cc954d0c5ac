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

package selfcal

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mlnoga/burstlight/internal/burst"
	"github.com/mlnoga/burstlight/internal/ops"
	"github.com/mlnoga/burstlight/internal/sequence"
	"github.com/mlnoga/burstlight/internal/srclist"
)

var ErrNoIterations = errors.New("number of iterations must be positive")

// Outcome of one self-calibration iteration
type Iteration struct {
	Index     int             `json:"index"`
	Dir       string          `json:"dir"`
	Input     string          `json:"input"`     // measurement set imaged in this iteration
	Best      burst.Candidate `json:"best"`
	SkyModel  string          `json:"skyModel"`
	Solutions string          `json:"solutions"`
	Output    string          `json:"output"`    // calibrated measurement set
}

// Self-calibration loop
type Loop struct {
	Imager     *Imager
	Calibrator *Calibrator
	Params     burst.Params
	Emit       srclist.Options
	WorkDir    string
	Ctx        *ops.Context
}

// Directory of the given iteration
func (l *Loop) IterationDir(it int) string {
	return filepath.Join(l.WorkDir, fmt.Sprintf("selfcal_iter%02d", it))
}

// Name of the calibrated measurement set produced by iteration it from ms
func NextMS(ms string, it int) string {
	ms=strings.TrimRight(ms, string(os.PathSeparator))
	ext:=filepath.Ext(ms)
	return strings.TrimSuffix(ms, ext)+fmt.Sprintf("_selfcal%d", it)+ext
}

// Runs the given number of iterations starting from ms, and returns the completed iterations.
// An iteration without qualifying burst sources stops the loop with an error wrapping
// srclist.ErrNoQualifyingSources; the iterations completed so far are returned alongside
func (l *Loop) Run(ctx context.Context, ms, metafits string, iterations int) ([]Iteration, error) {
	if iterations<1 { return nil, ErrNoIterations }
	res:=make([]Iteration, 0, iterations)
	current:=ms
	for it:=1; it<=iterations; it++ {
		iter, err:=l.runIteration(ctx, current, metafits, it)
		if err!=nil {
			return res, fmt.Errorf("self-calibration iteration %d: %w", it, err)
		}
		res=append(res, *iter)
		current=iter.Output
	}
	l.Ctx.Log.Info("self-calibration complete", "iterations", iterations, "output", current)
	return res, nil
}

func (l *Loop) runIteration(ctx context.Context, ms, metafits string, it int) (*Iteration, error) {
	log:=l.Ctx.Log.With("iteration", it)
	dir:=l.IterationDir(it)
	if err:=os.MkdirAll(dir, 0o755); err!=nil { return nil, err }
	iter:=&Iteration{Index:it, Dir:dir, Input:ms}

	if err:=l.Imager.Run(ctx, ms, dir); err!=nil { return nil, err }
	if _, err:=sequence.Build(dir, l.Ctx); err!=nil { return nil, err }
	cube, err:=ops.LoadCube(ctx, l.Ctx, filepath.Join(dir, sequence.StokesIPattern))
	if err!=nil { return nil, err }
	loc, err:=burst.Localize(ctx, cube.Cube, l.Params, log)
	if err!=nil { return nil, err }
	iter.Best=loc.Best

	emit:=l.Emit
	if cube.WCS!=nil && cube.WCS.FreqHz>0 { emit.RefFreqHz=cube.WCS.FreqHz }
	sources, err:=srclist.Build(loc.Frames, emit)
	if err!=nil { return nil, err }
	iter.SkyModel=filepath.Join(dir, fmt.Sprintf("selfcal_iter%02d.yaml", it))
	if err:=srclist.WriteFile(iter.SkyModel, sources); err!=nil { return nil, err }
	log.Info("wrote sky model", "file", iter.SkyModel, "sources", len(sources), "freqHz", emit.RefFreqHz)

	iter.Solutions=filepath.Join(dir, fmt.Sprintf("selfcal_iter%02d_sols.fits", it))
	if err:=l.Calibrator.DICalibrate(ctx, ms, metafits, iter.SkyModel, iter.Solutions); err!=nil { return nil, err }

	iter.Output=NextMS(ms, it)
	if err:=os.RemoveAll(iter.Output); err!=nil { return nil, err }
	if err:=l.Calibrator.Apply(ctx, ms, metafits, iter.Solutions, iter.Output); err!=nil { return nil, err }
	log.Info("applied solutions", "output", iter.Output)
	return iter, nil
}
