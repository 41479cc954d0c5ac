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

import "math"

// Replaces each pixel with the maximum over the square neighbourhood of the given
// half width, clipped to the image. Separable: a row pass followed by a column pass.
// NaNs never win a comparison, and a window with only NaNs yields -Inf
func MaxFilter2D(data []float32, width, halfWidth int) []float32 {
	height:=len(data)/width
	tmp:=make([]float32, len(data))
	res:=make([]float32, len(data))
	negInf:=float32(math.Inf(-1))

	for y:=0; y<height; y++ {
		for x:=0; x<width; x++ {
			m:=negInf
			x0, x1:=x-halfWidth, x+halfWidth
			if x0<0 { x0=0 }
			if x1>=width { x1=width-1 }
			for xx:=x0; xx<=x1; xx++ {
				if v:=data[y*width+xx]; v>m { m=v }
			}
			tmp[y*width+x]=m
		}
	}
	for y:=0; y<height; y++ {
		y0, y1:=y-halfWidth, y+halfWidth
		if y0<0 { y0=0 }
		if y1>=height { y1=height-1 }
		for x:=0; x<width; x++ {
			m:=negInf
			for yy:=y0; yy<=y1; yy++ {
				if v:=tmp[yy*width+x]; v>m { m=v }
			}
			res[y*width+x]=m
		}
	}
	return res
}
