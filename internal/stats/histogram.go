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
	"errors"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// Calculate histogram of data between min and max into given bins. Values outside
// [min, max] and non-finite values are ignored
func Histogram(data []float32, min, max float32, bins []int32) {
	for i:=range bins { bins[i]=0 }
	scale:=float32(len(bins)-1)/(max-min)
	for _,d:=range data {
		if !isFinite(d) || d<min || d>max { continue }
		bins[int((d-min)*scale)]++
	}
}

// Returns the location and the value of the histogram peak
func GetPeak(bins []int32, min, max float32) (x, y float32) {
	maxIndex, maxValue:=0, int32(math.MinInt32)
	for i,v:=range bins {
		if v>maxValue { maxIndex, maxValue=i, v }
	}
	x=min + (float32(maxIndex)+0.5)*(max-min)/float32(len(bins)-1)
	y=float32(bins[maxIndex])
	if maxIndex+1<len(bins) { y=0.5*float32(bins[maxIndex]+bins[maxIndex+1]) }
	return x, y
}

// Estimates location and noise of the given data by fitting a normal distribution
// to its histogram between the given percentiles. Used as a cross-check of the
// robust sigma on residual maps
func NoiseFromHistogram(data []float32, numBins int, lowPerc, highPerc float64) (mode, stdDev float32, err error) {
	min, max:=Percentile(data, lowPerc), Percentile(data, highPerc)
	if !isFinite(min) || !isFinite(max) || max<=min {
		return 0, 0, errors.New("degenerate value range for histogram")
	}
	bins:=make([]int32, numBins)
	Histogram(data, min, max, bins)
	return GetModeStdDevFromHistogram(bins, min, max)
}

// Calculates the mode and the standard deviation of the given histogram
func GetModeStdDevFromHistogram(bins []int32, min, max float32) (mode, stdDev float32, err error) {
	// Take an educated initial guess: the maximum value of the histogram
	peak, peakVal:=GetPeak(bins, min, max)
	binWidth:=(max-min)/float32(len(bins)-1)

	// Now minimize the distance between the histogram and a normal distribution
	sigma0:=float64(5*binWidth)
	x0:=[]float64{float64(peakVal)*sigma0*math.Sqrt(2*math.Pi), float64(peak), sigma0}
	problem:=optimize.Problem{
		Func: func(x []float64) float64 {
			alpha, mu, sigma:=x[0], x[1], x[2]
			scaler:=alpha/(sigma*math.Sqrt(2*math.Pi))
			sumSqDiff:=0.0
			for i,y:=range bins {
				x:=float64(min) + (float64(i)+0.5)*float64(binWidth)
				xmusig:=(x-mu)/sigma
				diff:=float64(y) - scaler*math.Exp(-0.5*xmusig*xmusig)
				sumSqDiff+=diff*diff
			}
			return math.Sqrt(sumSqDiff/float64(len(bins)))
		},
	}
	result, err:=optimize.Minimize(problem, x0, nil, &optimize.NelderMead{})
	if err!=nil { return -1, -1, err }
	return float32(result.X[1]), float32(math.Abs(result.X[2])), nil
}
