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

package burst

import "fmt"

// Maps 0-based pixel coordinates to sky coordinates in degrees
type SkyMapper interface {
	PixelToWorld(x, y float64) (ra, dec float64, err error)
}

// A time ordered sequence of equally sized 2D frames sharing one pixel to sky mapping.
// Frames are row-major with Width columns and must not be modified once wrapped
type Cube struct {
	Width  int
	Height int
	Frames [][]float32
	Times  []string    // per frame observation time labels
	Sky    SkyMapper   // may be nil, in which case sky coordinates are NaN
}

// Wraps the given frames into a cube, checking that there is at least one frame and
// that all frames have the given size. Missing time labels are filled with "n/a"
func NewCube(width, height int, frames [][]float32, times []string, sky SkyMapper) (*Cube, error) {
	if len(frames)==0 { return nil, ErrEmptyInput }
	if width<1 || height<1 {
		return nil, fmt.Errorf("%w: invalid size %dx%d", ErrShapeMismatch, width, height)
	}
	for i,f:=range frames {
		if len(f)!=width*height {
			return nil, fmt.Errorf("%w: frame %d has %d pixels, expected %dx%d", ErrShapeMismatch, i, len(f), width, height)
		}
	}
	ts:=make([]string, len(frames))
	for i:=range ts {
		ts[i]="n/a"
		if i<len(times) && times[i]!="" { ts[i]=times[i] }
	}
	return &Cube{Width:width, Height:height, Frames:frames, Times:ts, Sky:sky}, nil
}

// Number of frames in the cube
func (c *Cube) Len() int {
	if c==nil { return 0 }
	return len(c.Frames)
}
