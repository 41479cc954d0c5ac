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

package stats

import (
	"math"

	"github.com/valyala/fastrand"

	"github.com/mlnoga/burstlight/internal/qsort"
)

// Calculates a fast approximate robust sigma of the (presumably large) data by subsampling
// the given number of finite values and scaling their median absolute deviation.
// Falls back to the exact value if the data has fewer values than requested samples
func FastApproxSigma(data []float32, numSamples int) (location, sigma float32) {
	if len(data)<=numSamples {
		finite:=finiteOnly(data)
		if len(finite)==0 { return float32(math.NaN()), 1 }
		location=Median(finite, nil)
		return location, RobustSigma(finite)
	}

	samples:=make([]float32, 0, numSamples)
	max:=uint32(len(data))
	rng:=fastrand.RNG{}
	for tries:=0; len(samples)<numSamples && tries<4*numSamples; tries++ {
		d:=data[rng.Uint32n(max)]
		if isFinite(d) { samples=append(samples, d) }
	}
	if len(samples)==0 { return float32(math.NaN()), 1 }

	location=qsort.QSelectMedianFloat32(samples)
	for i,s:=range samples {
		samples[i]=float32(math.Abs(float64(s-location)))
	}
	sigma=qsort.QSelectMedianFloat32(samples)*MADToSigma
	if sigma<=0 { sigma=1 }
	return location, sigma
}
