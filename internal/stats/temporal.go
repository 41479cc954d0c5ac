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
	"sync"

	"github.com/mlnoga/burstlight/internal/qsort"
)

// Calculates the per-pixel median across a stack of equally sized frames.
// Pixel rows are distributed across at most maxThreads goroutines; the result
// does not depend on the number of threads
func TemporalMedian(frames [][]float32, width, maxThreads int) []float32 {
	if len(frames)==0 { return nil }
	numPixels:=len(frames[0])
	res:=make([]float32, numPixels)
	height:=numPixels/width
	if maxThreads<1 { maxThreads=1 }

	rows:=make(chan int, height)
	for y:=0; y<height; y++ { rows <- y }
	close(rows)

	var wg sync.WaitGroup
	for t:=0; t<maxThreads && t<height; t++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			column:=make([]float32, len(frames))
			for y:=range rows {
				for x:=0; x<width; x++ {
					i:=y*width+x
					for f,frame:=range frames { column[f]=frame[i] }
					res[i]=medianFinite(column)
				}
			}
		}()
	}
	wg.Wait()
	return res
}

// Median of the finite values in column, NaN if there are none. Reorders column
func medianFinite(column []float32) float32 {
	n:=0
	for _,v:=range column {
		if isFinite(v) { column[n]=v; n++ }
	}
	return qsort.QSelectMedianFloat32(column[:n])
}
