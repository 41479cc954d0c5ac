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

// A binary mask over a 2D image, stored row-major
type Mask struct {
	Data   []bool
	Width  int
	Height int
}

// Creates a new empty mask of the given size
func NewMask(width, height int) *Mask {
	return &Mask{Data:make([]bool, width*height), Width:width, Height:height}
}

// Creates a new mask of the given size with all pixels set
func NewFullMask(width, height int) *Mask {
	m:=NewMask(width, height)
	for i:=range m.Data { m.Data[i]=true }
	return m
}

// Creates a mask from the pixels of data strictly above the threshold. NaNs are unset
func Threshold(data []float32, width int, threshold float32) *Mask {
	m:=NewMask(width, len(data)/width)
	for i,d:=range data {
		m.Data[i]= d>threshold
	}
	return m
}

// Returns a deep copy of the mask
func (m *Mask) Copy() *Mask {
	return &Mask{Data:append([]bool(nil), m.Data...), Width:m.Width, Height:m.Height}
}

// Number of set pixels
func (m *Mask) Count() int {
	n:=0
	for _,b:=range m.Data {
		if b { n++ }
	}
	return n
}

// Is the pixel at x, y set? Out of bounds pixels are unset
func (m *Mask) At(x, y int) bool {
	if x<0 || x>=m.Width || y<0 || y>=m.Height { return false }
	return m.Data[y*m.Width+x]
}

// Erodes the mask once with the 4-connected cross structuring element.
// Pixels beyond the border count as unset, so set pixels on the border are removed
func (m *Mask) erodeOnce(res *Mask) {
	w, h:=m.Width, m.Height
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			i:=y*w+x
			res.Data[i]= m.Data[i] && m.At(x-1,y) && m.At(x+1,y) && m.At(x,y-1) && m.At(x,y+1)
		}
	}
}

// Dilates the mask once with the 4-connected cross structuring element
func (m *Mask) dilateOnce(res *Mask) {
	w, h:=m.Width, m.Height
	for y:=0; y<h; y++ {
		for x:=0; x<w; x++ {
			i:=y*w+x
			res.Data[i]= m.Data[i] || m.At(x-1,y) || m.At(x+1,y) || m.At(x,y-1) || m.At(x,y+1)
		}
	}
}

// Returns the mask eroded the given number of times
func (m *Mask) Erode(iterations int) *Mask {
	cur, next:=m.Copy(), NewMask(m.Width, m.Height)
	for i:=0; i<iterations; i++ {
		cur.erodeOnce(next)
		cur, next = next, cur
	}
	return cur
}

// Returns the mask dilated the given number of times
func (m *Mask) Dilate(iterations int) *Mask {
	cur, next:=m.Copy(), NewMask(m.Width, m.Height)
	for i:=0; i<iterations; i++ {
		cur.dilateOnce(next)
		cur, next = next, cur
	}
	return cur
}

// Morphological opening: erosion followed by dilation, each repeated iterations times
func (m *Mask) Open(iterations int) *Mask {
	return m.Erode(iterations).Dilate(iterations)
}

// Morphological closing: dilation followed by erosion, each repeated iterations times.
// Erosion treats the border as unset, so regions touching the border shrink there
func (m *Mask) Close(iterations int) *Mask {
	return m.Dilate(iterations).Erode(iterations)
}
