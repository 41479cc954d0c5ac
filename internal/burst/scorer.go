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
	"github.com/mlnoga/burstlight/internal/filter"
	"github.com/mlnoga/burstlight/internal/stats"
)

// Per-frame residual and significance maps. Transient, owned by a single frame
type Significance struct {
	HighPass []float32 // background subtracted, high-pass filtered residual
	Z        []float32 // HighPass divided by Sigma inside the mask, 0 elsewhere
	Sigma    float32   // robust noise scale of HighPass inside the mask
	Peaks    []int     // row-major indices of local maxima above threshold, ascending
}

// Scores the given frame against the background model
func Score(frame []float32, m *Model, p Params) *Significance {
	resid:=make([]float32, len(frame))
	for i,f:=range frame {
		resid[i]=f-m.Background[i]
	}
	hp:=filter.HighPass(resid, m.Width, p.BgSigma)

	masked:=make([]float32, 0, m.Mask.Count())
	for i,in:=range m.Mask.Data {
		if in { masked=append(masked, hp[i]) }
	}
	sigma:=stats.RobustSigma(masked)

	z:=make([]float32, len(hp))
	for i,in:=range m.Mask.Data {
		if in { z[i]=hp[i]/sigma }
	}

	return &Significance{
		HighPass: hp,
		Z:        z,
		Sigma:    sigma,
		Peaks:    FindPeaks(z, m.Mask.Data, m.Width, p.PeakHalfWidth, float32(p.ZThresh)),
	}
}

// Finds local maxima of z: pixels equal to the maximum of their (2*halfWidth+1)^2 neighbourhood,
// strictly above the threshold and inside the mask. Among equal maxima within one neighbourhood
// only the one with the lowest row-major index is kept. Returns ascending indices
func FindPeaks(z []float32, mask []bool, width, halfWidth int, threshold float32) []int {
	maxf:=filter.MaxFilter2D(z, width, halfWidth)

	raw:=make([]bool, len(z))
	for i,v:=range z {
		raw[i]= mask[i] && v>threshold && v==maxf[i]
	}

	peaks:=[]int{}
	kept:=make([]bool, len(z))
	for i,isRaw:=range raw {
		if !isRaw { continue }
		x, y:=i%width, i/width
		if !hasEarlierEqualPeak(z, kept, width, x, y, halfWidth) {
			kept[i]=true
			peaks=append(peaks, i)
		}
	}
	return peaks
}

// Tells whether a kept peak with equal value and lower row-major index lies within the neighbourhood of x, y
func hasEarlierEqualPeak(z []float32, kept []bool, width, x, y, halfWidth int) bool {
	v:=z[y*width+x]
	y0, x0, x1:=y-halfWidth, x-halfWidth, x+halfWidth
	if y0<0 { y0=0 }
	if x0<0 { x0=0 }
	if x1>=width { x1=width-1 }
	for yy:=y0; yy<=y; yy++ {
		for xx:=x0; xx<=x1; xx++ {
			j:=yy*width+xx
			if j>=y*width+x { return false }
			if kept[j] && z[j]==v { return true }
		}
	}
	return false
}
