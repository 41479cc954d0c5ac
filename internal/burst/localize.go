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
	"math"
)

// Outcome of localizing a burst in a cube
type Result struct {
	Frames []Candidate      // one candidate per frame, in frame order
	Best   Candidate        // globally best candidate
	Model  *Model           // shared background model
	Maps   []*Significance  // per-frame maps, only if Params.KeepMaps is set
}

// Localizes the burst in the given cube. Per-frame scoring runs on up to p.MaxThreads workers;
// results do not depend on the number of workers. Fails with ErrEmptyInput for an empty cube
func Localize(ctx context.Context, cube *Cube, p Params, logger *slog.Logger) (*Result, error) {
	if cube.Len()==0 { return nil, ErrEmptyInput }
	if err:=p.Validate(); err!=nil { return nil, err }

	model, err:=BuildModel(ctx, cube, p, logger)
	if err!=nil { return nil, err }

	n:=cube.Len()
	res:=&Result{Frames:make([]Candidate, n), Model:model}
	if p.KeepMaps { res.Maps=make([]*Significance, n) }

	err=forEachFrame(ctx, n, p.MaxThreads, func(i int) {
		sig:=Score(model.Frames[i], model, p)
		c:=Extract(sig, model, p)
		c.Frame, c.Time = i, cube.Times[i]
		if cube.Sky!=nil {
			if ra, dec, err:=cube.Sky.PixelToWorld(c.X, c.Y); err==nil {
				c.RA, c.Dec = ra, dec
			}
		}
		res.Frames[i]=c
		if p.KeepMaps { res.Maps[i]=sig }
	})
	if err!=nil { return nil, err }

	for _,c:=range res.Frames {
		level:=slog.LevelInfo
		if c.Mode!=ModeBurst { level=slog.LevelDebug }
		logger.Log(ctx, level, "frame", "frame", c.Frame, "time", c.Time, "mode", c.Mode.String(), "peaks", c.Peaks,
			"peakZ", round2(c.PeakZ), "score", round2(c.Score), "x", round2(c.X), "y", round2(c.Y))
	}

	res.Best, _=SelectBest(res.Frames)
	logger.Info("picked best frame", "frame", res.Best.Frame, "mode", res.Best.Mode.String(), "score", round2(res.Best.Score),
		"x", round2(res.Best.X), "y", round2(res.Best.Y), "time", res.Best.Time, "ra", res.Best.RA, "dec", res.Best.Dec)
	return res, nil
}

func round2(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) { return v }
	return math.Round(v*100)/100
}
