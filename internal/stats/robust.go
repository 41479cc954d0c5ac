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
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/mlnoga/burstlight/internal/qsort"
)

// Scale factor from median absolute deviation to Gaussian standard deviation
const MADToSigma = 1.4826

// Median of the given values. Uses tmp as scratchpad if large enough, else allocates.
// NaNs must be removed beforehand
func Median(values, tmp []float32) float32 {
	if len(values)==0 { return float32(math.NaN()) }
	if cap(tmp)<len(values) { tmp=make([]float32, len(values)) }
	tmp=tmp[:len(values)]
	copy(tmp, values)
	return qsort.QSelectMedianFloat32(tmp)
}

// Percentile p in [0,100] of the given values with linear interpolation between ranks.
// Non-finite values are ignored. Returns NaN if no finite values are present
func Percentile(values []float32, p float64) float32 {
	tmp:=append([]float32(nil), finiteOnly(values)...)
	if len(tmp)==0 { return float32(math.NaN()) }
	return qsort.QSelectPercentileFloat32(tmp, p)
}

// Median absolute deviation of the given values around their median, unscaled
func MAD(values []float32) (median, mad float32) {
	tmp:=make([]float32, len(values))
	median=Median(values, tmp)
	for i,v:=range values {
		tmp[i]=float32(math.Abs(float64(v-median)))
	}
	mad=qsort.QSelectMedianFloat32(tmp)
	return median, mad
}

// Population mean and standard deviation, computed in float64
func MeanStdDev(values []float32) (mean, stdDev float64) {
	if len(values)==0 { return math.NaN(), math.NaN() }
	xs:=make([]float64, len(values))
	for i,v:=range values { xs[i]=float64(v) }
	return stat.PopMeanStdDev(xs, nil)
}

// Robust noise scale of the given values: 1.4826 times the median absolute deviation.
// Falls back to the population standard deviation if the MAD is zero or not finite,
// and to 1 if that is degenerate as well. Non-finite values are skipped, and a slice
// without finite values yields 1
func RobustSigma(values []float32) float32 {
	values=finiteOnly(values)
	if len(values)==0 { return 1 }
	_, mad:=MAD(values)
	s:=float64(mad)*MADToSigma
	if isPositiveFinite(s) { return float32(s) }

	_, std:=MeanStdDev(values)
	if isPositiveFinite(std) { return float32(std) }
	return 1
}

// Returns the finite values of the given slice. Returns the slice itself if all are finite
func finiteOnly(values []float32) []float32 {
	for i,v:=range values {
		if isFinite(v) { continue }
		res:=append(make([]float32, 0, len(values)), values[:i]...)
		for _,w:=range values[i+1:] {
			if isFinite(w) { res=append(res, w) }
		}
		return res
	}
	return values
}

func isFinite(v float32) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}

func isPositiveFinite(x float64) bool {
	return x>0 && !math.IsInf(x, 0) && !math.IsNaN(x)
}

// Basic statistics of a data array
type Basic struct {
	Min    float32
	Max    float32
	Mean   float32
	StdDev float32
	Median float32
	Sigma  float32 // robust sigma from the MAD
	NaNs   int     // number of non-finite values skipped
}

// Calculates basic statistics over the finite values in data
func CalcBasic(data []float32) *Basic {
	finite:=make([]float32, 0, len(data))
	b:=&Basic{Min: float32(math.Inf(1)), Max: float32(math.Inf(-1))}
	for _,d:=range data {
		if !isFinite(d) { b.NaNs++; continue }
		if d<b.Min { b.Min=d }
		if d>b.Max { b.Max=d }
		finite=append(finite, d)
	}
	if len(finite)==0 {
		nan:=float32(math.NaN())
		b.Min, b.Max, b.Mean, b.StdDev, b.Median, b.Sigma = nan, nan, nan, nan, nan, nan
		return b
	}
	mean, std:=MeanStdDev(finite)
	b.Mean, b.StdDev=float32(mean), float32(std)
	b.Median=Median(finite, nil)
	b.Sigma=RobustSigma(finite)
	return b
}

// Pretty print basic stats to string
func (b *Basic) String() string {
	return fmt.Sprintf("Min %.6g Max %.6g Mean %.6g StdDev %.6g Median %.6g Sigma %.6g NaNs %d",
		b.Min, b.Max, b.Mean, b.StdDev, b.Median, b.Sigma, b.NaNs)
}

// Pretty print basic stats to CSV header
func (b *Basic) ToCSVHeader() string {
	return "Min,Max,Mean,StdDev,Median,Sigma,NaNs"
}

// Pretty print basic stats to CSV line item
func (b *Basic) ToCSVLine() string {
	return fmt.Sprintf("%.6g,%.6g,%.6g,%.6g,%.6g,%.6g,%d",
		b.Min, b.Max, b.Mean, b.StdDev, b.Median, b.Sigma, b.NaNs)
}
