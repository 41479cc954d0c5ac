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
	"math"
	"sort"
)

// A scored peak before frame level selection
type peakCandidate struct {
	index int
	peakZ float64
	flux  float64
	score float64
	x, y  float64
}

// Computes flux weighted centroids and composite scores for all peaks of the frame,
// sorted by descending score. Peaks with too few positive pixels are rejected
func extractCandidates(sig *Significance, width, height int, p Params) []peakCandidate {
	winR:=p.WindowRadius()
	res:=make([]peakCandidate, 0, len(sig.Peaks))
	for _,idx:=range sig.Peaks {
		x0, y0:=idx%width, idx/width
		x1, x2:=max(0, x0-winR), min(width,  x0+winR+1)
		y1, y2:=max(0, y0-winR), min(height, y0+winR+1)

		positive:=0
		sum, sumX, sumY:=0.0, 0.0, 0.0
		for y:=y1; y<y2; y++ {
			for x:=x1; x<x2; x++ {
				w:=float64(sig.HighPass[y*width+x])
				if !(w>0) { continue }   // negative or NaN weights contribute nothing
				positive++
				sum+=w
				sumX+=w*float64(x-x1)
				sumY+=w*float64(y-y1)
			}
		}
		if positive<p.MinPixels || sum<=0 { continue }

		peakZ:=float64(sig.Z[idx])
		res=append(res, peakCandidate{
			index: idx,
			peakZ: peakZ,
			flux:  sum,
			score: 3*peakZ+math.Log1p(sum),
			x:     float64(x1)+sumX/sum,
			y:     float64(y1)+sumY/sum,
		})
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].score>res[j].score })
	return res
}

// Determines the representative candidate of a frame: the best scored peak if any,
// else the maximum finite high-pass pixel inside the mask, else the image centre
func Extract(sig *Significance, m *Model, p Params) Candidate {
	cands:=extractCandidates(sig, m.Width, m.Height, p)
	c:=Candidate{Peaks:len(cands), Sigma:float64(sig.Sigma), RA:math.NaN(), Dec:math.NaN()}
	if len(cands)>0 {
		best:=cands[0]
		c.Mode, c.PeakZ, c.Flux, c.Score, c.X, c.Y = ModeBurst, best.peakZ, best.flux, best.score, best.x, best.y
		return c
	}

	bestIdx, bestVal:=-1, math.Inf(-1)
	for i,in:=range m.Mask.Data {
		if !in { continue }
		v:=float64(sig.HighPass[i])
		if math.IsNaN(v) || math.IsInf(v, 0) { continue }
		if bestIdx<0 || v>bestVal { bestIdx, bestVal = i, v }
	}
	if bestIdx<0 {
		c.Mode, c.Score = ModeFallbackCenter, math.Inf(-1)
		c.X, c.Y = float64(m.Width)/2, float64(m.Height)/2
		return c
	}
	c.Mode=ModeFallback
	c.PeakZ=float64(sig.Z[bestIdx])
	c.Flux=math.Max(bestVal, 0)
	c.Score=c.PeakZ
	c.X, c.Y = float64(bestIdx%m.Width), float64(bestIdx/m.Width)
	return c
}
