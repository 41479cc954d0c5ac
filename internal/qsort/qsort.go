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

package qsort

import "math"

// Sort an array of float32 in ascending order.
// Array must not contain IEEE NaN
func QSortFloat32(a []float32) {
	if len(a)>1 {
		index:=QPartitionFloat32(a)
		QSortFloat32(a[:index+1])
		QSortFloat32(a[index+1:])
	}
}

// Partitions an array of float32 with the middle pivot element, and returns the pivot index.
// Values less than the pivot are moved left of the pivot, those greater are moved right.
// Array must not contain IEEE NaN
func QPartitionFloat32(a []float32) int {
	left, right:=0, len(a)-1
	mid  :=(left+right)>>1
	pivot:=a[mid]
	l, r :=left-1, right+1
	for {
		for {
			l++
			if a[l]>=pivot { break }
		}
		for {
			r--
			if a[r]<=pivot { break }
		}
		if l>=r { return r }
		a[l], a[r] = a[r], a[l]
	}
}

// Select kth lowest element from an array of float32, with k starting at 1.
// Partially reorders the array. Array must not contain IEEE NaN
func QSelectFloat32(a []float32, k int) float32 {
	left, right:=0, len(a)-1
	for left<right {
		index:=left+QPartitionFloat32(a[left:right+1])
		offset:=index-left+1
		if k<=offset {
			right=index
		} else {
			left=index+1
			k-=offset
		}
	}
	return a[left]
}

// Select median of an array of float32. For even lengths, returns the mean of the
// two middle elements. Partially reorders the array.
// Array must not contain IEEE NaN
func QSelectMedianFloat32(a []float32) float32 {
	n:=len(a)
	if n==0 { return float32(math.NaN()) }
	upper:=QSelectFloat32(a, (n>>1)+1)
	if (n&1)!=0 { return upper }
	// after selection, all elements left of the upper middle are <= it
	lower:=a[0]
	for _,v:=range a[1:n>>1] {
		if v>lower { lower=v }
	}
	return 0.5*(lower+upper)
}

// Select the given percentile p in [0,100] of an array of float32, linearly interpolating
// between the two closest ranks. Partially reorders the array.
// Array must not contain IEEE NaN
func QSelectPercentileFloat32(a []float32, p float64) float32 {
	n:=len(a)
	if n==0 { return float32(math.NaN()) }
	if p<=0 { return minFloat32(a) }
	if p>=100 { return maxFloat32(a) }

	rank :=p/100*float64(n-1)
	lo   :=int(math.Floor(rank))
	frac :=rank-float64(lo)
	lower:=QSelectFloat32(a, lo+1)
	if frac==0 || lo+1>=n { return lower }
	// after selection, the next rank is the minimum of the right partition
	upper:=minFloat32(a[lo+1:])
	return float32(float64(lower)+frac*(float64(upper)-float64(lower)))
}

func minFloat32(a []float32) float32 {
	m:=a[0]
	for _,v:=range a[1:] {
		if v<m { m=v }
	}
	return m
}

func maxFloat32(a []float32) float32 {
	m:=a[0]
	for _,v:=range a[1:] {
		if v>m { m=v }
	}
	return m
}
