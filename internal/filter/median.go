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

// Applies a 3x3 median filter to the 2D array data with the given line width. The outermost
// rows and columns are copied unchanged, as are pixels with a non-finite neighbour
func Median3x3(data []float32, width int) []float32 {
	out:=make([]float32, len(data))
	copy(out, data)
	if width<3 || len(data)/width<3 { return out }
	height:=len(data)/width

	var gathered [9]float32
	for y:=1; y<height-1; y++ {
		for x:=1; x<width-1; x++ {
			j, finite:=0, true
			for dy:=-1; dy<=1 && finite; dy++ {
				off:=(y+dy)*width+x
				for dx:=-1; dx<=1; dx++ {
					v:=data[off+dx]
					if v!=v || v-v!=0 { finite=false; break }
					gathered[j]=v
					j++
				}
			}
			if finite { out[y*width+x]=median9(&gathered) }
		}
	}
	return out
}

// Median of nine values with a min/max network. Modifies the values in place
func median9(a *[9]float32) float32 {
	if a[0]>a[1] { a[0], a[1] = a[1], a[0] }
	if a[3]>a[4] { a[3], a[4] = a[4], a[3] }
	if a[6]>a[7] { a[6], a[7] = a[7], a[6] }
	if a[1]>a[2] { a[1], a[2] = a[2], a[1] }
	if a[4]>a[5] { a[4], a[5] = a[5], a[4] }
	if a[7]>a[8] { a[7], a[8] = a[8], a[7] }
	if a[0]>a[1] { a[0], a[1] = a[1], a[0] }
	if a[3]>a[4] { a[3], a[4] = a[4], a[3] }
	if a[6]>a[7] { a[6], a[7] = a[7], a[6] }
	if a[0]>a[3] { a[3]=a[0] }
	if a[3]>a[6] { a[6]=a[3] }
	if a[1]>a[4] { a[1], a[4] = a[4], a[1] }
	if a[4]>a[7] { a[4]=a[7] }
	if a[1]>a[4] { a[4]=a[1] }
	if a[5]>a[8] { a[5]=a[8] }
	if a[2]>a[5] { a[2]=a[5] }
	if a[2]>a[4] { a[2], a[4] = a[4], a[2] }
	if a[4]>a[6] { a[4]=a[6] }
	if a[2]>a[4] { a[4]=a[2] }
	return a[4]
}
