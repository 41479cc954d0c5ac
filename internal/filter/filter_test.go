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
	"sort"
	"testing"

	"github.com/valyala/fastrand"
)

func TestGaussianKernel1D(t *testing.T) {
	kernel:=GaussianKernel1D(1, DefaultTruncate)
	if len(kernel)!=9 { t.Fatalf("len %d, expected 9", len(kernel)) }
	expected:=[]float64{0.398943, 0.241971, 0.053991, 0.004432, 0.000134}
	for i,e:=range expected {
		if math.Abs(float64(kernel[4+i])-e)>1e-5 || math.Abs(float64(kernel[4-i])-e)>1e-5 {
			t.Errorf("tap %d: got %f/%f expected %f", i, kernel[4-i], kernel[4+i], e)
		}
	}
	sum:=float32(0)
	for _,k:=range kernel { sum+=k }
	if math.Abs(float64(sum)-1)>1e-5 { t.Errorf("kernel sum %f", sum) }

	if k:=GaussianKernel1D(0, DefaultTruncate); len(k)!=1 || k[0]!=1 {
		t.Errorf("zero sigma kernel %v", k)
	}
}

func TestReflect(t *testing.T) {
	tests:=[]struct{ size, x, want int }{
		{4, 0, 0}, {4, 3, 3}, {4, -1, 0}, {4, -2, 1}, {4, 4, 3}, {4, 5, 2},
		{4, 8, 0}, {4, -5, 3}, {1, -3, 0}, {1, 7, 0},
	}
	for _,tt:=range tests {
		if got:=reflect(tt.size, tt.x); got!=tt.want {
			t.Errorf("reflect(%d,%d)=%d, want %d", tt.size, tt.x, got, tt.want)
		}
	}
}

func TestGaussPreservesConstant(t *testing.T) {
	width, height:=7, 5
	data:=make([]float32, width*height)
	for i:=range data { data[i]=3.5 }
	res:=Gauss(data, width, 1.5)
	for i,r:=range res {
		if math.Abs(float64(r)-3.5)>1e-5 { t.Fatalf("pixel %d: %f", i, r) }
	}
}

func TestGaussPreservesSum(t *testing.T) {
	width, height:=32, 32
	data:=make([]float32, width*height)
	data[16*width+16]=100
	res:=Gauss(data, width, 1)
	sum:=float32(0)
	for _,r:=range res { sum+=r }
	if math.Abs(float64(sum)-100)>1e-3 { t.Errorf("sum %f, expected 100", sum) }
	if res[16*width+16]<=res[16*width+17] || res[16*width+17]<=res[16*width+18] {
		t.Errorf("not peaked at impulse")
	}
}

func TestGaussZeroSigmaCopies(t *testing.T) {
	data:=[]float32{1, 2, 3, 4}
	res:=Gauss(data, 2, 0)
	res[0]=9
	if data[0]!=1 { t.Errorf("input modified") }
	if res[1]!=2 || res[3]!=4 { t.Errorf("got %v", res) }
}

func TestHighPassRemovesConstant(t *testing.T) {
	data:=make([]float32, 16*16)
	for i:=range data { data[i]=10 }
	data[8*16+8]=20
	res:=HighPass(data, 16, 3)
	if res[0]>1e-2 || res[0]< -1e-2 { t.Errorf("corner %f", res[0]) }
	if res[8*16+8]<9 { t.Errorf("peak %f", res[8*16+8]) }
}

func TestMaxFilter2D(t *testing.T) {
	width:=5
	data:=[]float32{
		0, 0, 0, 0, 0,
		0, 1, 0, 0, 0,
		0, 0, 0, 0, 0,
		0, 0, 0, 0, 7,
	}
	res:=MaxFilter2D(data, width, 1)
	expected:=[]float32{
		1, 1, 1, 0, 0,
		1, 1, 1, 0, 0,
		1, 1, 1, 7, 7,
		0, 0, 0, 7, 7,
	}
	for i:=range expected {
		if res[i]!=expected[i] { t.Errorf("pixel %d: got %f expected %f", i, res[i], expected[i]) }
	}

	nan:=float32(math.NaN())
	res=MaxFilter2D([]float32{nan, nan, nan, 2}, 2, 0)
	if !math.IsInf(float64(res[0]), -1) || res[3]!=2 { t.Errorf("NaN handling: %v", res) }
}

func TestMedian9(t *testing.T) {
	rng:=fastrand.RNG{}
	for trial:=0; trial<1000; trial++ {
		var a [9]float32
		sorted:=make([]float32, 9)
		for i:=range a {
			a[i]=float32(rng.Uint32n(20))
			sorted[i]=a[i]
		}
		sort.Slice(sorted, func(i, j int) bool { return sorted[i]<sorted[j] })
		if got:=median9(&a); got!=sorted[4] {
			t.Fatalf("trial %d: median %f, expected %f", trial, got, sorted[4])
		}
	}
}

func TestMedian3x3RemovesSpike(t *testing.T) {
	width, height:=7, 5
	data:=make([]float32, width*height)
	for i:=range data { data[i]=1 }
	data[1*width+2]=100                  // isolated spike
	data[3*width+5]=float32(math.NaN())  // non-finite pixel, outside the spike's window
	data[2*width+4]=7                    // its neighbour would be smoothed without the NaN
	data[0]=50                           // border pixel

	out:=Median3x3(data, width)
	if out[1*width+2]!=1 { t.Errorf("spike kept: %f", out[1*width+2]) }
	if out[0]!=50 { t.Errorf("border changed: %f", out[0]) }
	if out[2*width+4]!=7 { t.Errorf("pixel next to NaN changed: %f", out[2*width+4]) }
	if !math.IsNaN(float64(out[3*width+5])) { t.Errorf("NaN pixel changed: %f", out[3*width+5]) }
	if data[1*width+2]!=100 { t.Errorf("input modified") }
}
