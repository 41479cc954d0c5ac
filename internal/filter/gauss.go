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

package filter

import (
	"math"
)

// Default truncation of Gaussian kernels, in standard deviations
const DefaultTruncate = 4.0

// Mirror out of bounds coordinates back into [0, size-1], repeating the edge pixel
// (d c b a | a b c d | d c b a). Handles offsets larger than the size
func reflect(size, x int) int {
	if size==1 { return 0 }
	period:=2*size
	x%=period
	if x<0 { x+=period }
	if x>=size { x=period-x-1 }
	return x
}

// Generates a normalized, sampled 1D gaussian kernel for the given sigma, truncated
// at truncate standard deviations. Returns the unit kernel {1} for sigma<=0
func GaussianKernel1D(sigma, truncate float64) (kernel []float32) {
	if sigma<=0 { return []float32{1} }
	radius:=int(truncate*sigma+0.5)
	kernel=make([]float32, 2*radius+1)

	weights:=make([]float64, radius+1)
	sum:=0.0
	for i:=0; i<=radius; i++ {
		x:=float64(i)
		weights[i]=math.Exp(-0.5*x*x/(sigma*sigma))
		if i==0 { sum+=weights[i] } else { sum+=2*weights[i] }
	}
	for i:=0; i<=radius; i++ {
		w:=float32(weights[i]/sum)
		kernel[radius-i], kernel[radius+i] = w, w
	}
	return kernel
}

// Convolve the given 2D image provided by data and width with the given convolution kernel
// along the x axis, and store the result in res. Borders are reflected
func Convolve1DX(res, data []float32, width int, kernel []float32) {
	height:=len(data)/width
	k:=len(kernel)/2
	for y:=0; y<height; y++ {
		row:=data[y*width:(y+1)*width]
		for x:=0; x<width; x++ {
			sum:=float64(0)
			for i:=-k; i<=k; i++ {
				sum+=float64(row[reflect(width, x+i)]*kernel[i+k])
			}
			res[y*width+x]=float32(sum)
		}
	}
}

// Convolve the given 2D image provided by data and width with the given convolution kernel
// along the y axis, and store the result in res. Borders are reflected
func Convolve1DY(res, data []float32, width int, kernel []float32) {
	height:=len(data)/width
	k:=len(kernel)/2
	for y:=0; y<height; y++ {
		for x:=0; x<width; x++ {
			sum:=float64(0)
			for i:=-k; i<=k; i++ {
				sum+=float64(data[reflect(height, y+i)*width+x]*kernel[i+k])
			}
			res[y*width+x]=float32(sum)
		}
	}
}

// Applies a separable 2D gauss filter of given standard deviation to the 2D image given by
// data and width. Overwrites tmp and returns the result in res. For sigma<=0 copies data to res
func GaussFilter2D(res, tmp, data []float32, width int, sigma float64) {
	if sigma<=0 {
		copy(res, data)
		return
	}
	kernel:=GaussianKernel1D(sigma, DefaultTruncate)
	Convolve1DX(tmp, data, width, kernel)
	Convolve1DY(res, tmp, width, kernel)
}

// Applies a 2D gauss filter and returns the result in a newly allocated array
func Gauss(data []float32, width int, sigma float64) []float32 {
	res:=make([]float32, len(data))
	if sigma<=0 {
		copy(res, data)
		return res
	}
	tmp:=make([]float32, len(data))
	GaussFilter2D(res, tmp, data, width, sigma)
	return res
}

// Subtracts the gauss filtered version of data from data, removing spatial structure larger
// than sigma. Returns a copy of data for sigma<=0
func HighPass(data []float32, width int, sigma float64) []float32 {
	if sigma<=0 { return append([]float32(nil), data...) }
	res:=Gauss(data, width, sigma)
	for i,d:=range data {
		res[i]=d-res[i]
	}
	return res
}
