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

package morph

// Labels the 4-connected components of the mask. Returns a label per pixel, 0 for
// unset pixels and 1..n for components numbered in row-major order of first pixel,
// as well as the pixel count of each component indexed by label
func (m *Mask) Label4() (labels []int32, sizes []int) {
	w, h:=m.Width, m.Height
	labels=make([]int32, len(m.Data))
	sizes=[]int{0}
	queue:=make([]int, 0, 64)

	for start,set:=range m.Data {
		if !set || labels[start]!=0 { continue }
		label:=int32(len(sizes))
		size:=0
		labels[start]=label
		queue=append(queue[:0], start)
		for len(queue)>0 {
			i:=queue[len(queue)-1]
			queue=queue[:len(queue)-1]
			size++
			x, y:=i%w, i/w
			if x>0   { queue=visit(m, labels, queue, i-1, label) }
			if x<w-1 { queue=visit(m, labels, queue, i+1, label) }
			if y>0   { queue=visit(m, labels, queue, i-w, label) }
			if y<h-1 { queue=visit(m, labels, queue, i+w, label) }
		}
		sizes=append(sizes, size)
	}
	return labels, sizes
}

func visit(m *Mask, labels []int32, queue []int, i int, label int32) []int {
	if m.Data[i] && labels[i]==0 {
		labels[i]=label
		queue=append(queue, i)
	}
	return queue
}

// Returns a mask containing only the largest 4-connected component, and the number of
// components found. Ties go to the lowest label. Returns an empty mask and 0 if no pixel is set
func (m *Mask) Largest() (*Mask, int) {
	labels, sizes:=m.Label4()
	res:=NewMask(m.Width, m.Height)
	if len(sizes)<=1 { return res, 0 }

	best:=1
	for l:=2; l<len(sizes); l++ {
		if sizes[l]>sizes[best] { best=l }
	}
	for i,l:=range labels {
		res.Data[i]= int(l)==best
	}
	return res, len(sizes)-1
}
