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

package fits

import (
	"fmt"
	"strings"

	"github.com/mlnoga/burstlight/internal/stats"
)

// A FITS image.
// Spec here:   https://fits.gsfc.nasa.gov/standard40/fits_standard40aa-le.pdf
// Primer here: https://fits.gsfc.nasa.gov/fits_primer.html
type Image struct {
	ID       int         // Sequential ID number, for log output. Frame index within a cube
	FileName string      // Original file name, if any, for log output.

	Header Header        // The header with all keys, values, comments, history entries etc.
	Bitpix int32         // Bits per pixel value from the header. Positive values are integral, negative floating.
	Bzero  float32       // Zero offset. True pixel value is Bzero + Bscale * Data[i].
	Bscale float32       // Value scaler. True pixel value is Bzero + Bscale * Data[i].
	Naxisn []int32       // Axis dimensions as stored in the file. Most quickly varying dimension first (i.e. X,Y)
	Pixels int32         // Number of pixels in the first 2D plane, which is all that is held in Data

	Data   []float32     // The image data of the first 2D plane
}

// Creates a FITS image initialized with empty header
func NewImage() *Image {
	return &Image{
		Header:  NewHeader(),
		Bscale:  1,
	}
}

// Creates a 2D FITS image of given size. Data is not copied, allocated if nil
func NewImageFromSize(width, height int, data []float32) *Image {
	if data==nil {
		data=make([]float32, width*height)
	}
	return &Image{
		Header:   NewHeader(),
		Bitpix:   -32,
		Bscale:   1,
		Naxisn:   []int32{int32(width), int32(height)},
		Pixels:   int32(width*height),
		Data:     data,
	}
}

// Creates a 2D FITS image with the header of the given image, and the given data.
// Data is not copied, allocated if nil. The header is deep copied
func NewImageFromImage(img *Image, data []float32) *Image {
	res:=NewImageFromSize(img.Width(), img.Height(), data)
	res.ID, res.FileName=img.ID, img.FileName
	res.Header=img.Header.Copy()
	return res
}

// Width of the image in pixels
func (f *Image) Width() int {
	if len(f.Naxisn)<1 { return 0 }
	return int(f.Naxisn[0])
}

// Height of the image in pixels. One-dimensional images have height 1
func (f *Image) Height() int {
	if len(f.Naxisn)<1 { return 0 }
	if len(f.Naxisn)<2 { return 1 }
	return int(f.Naxisn[1])
}

// Calculates basic statistics of the image data
func (f *Image) Stats() *stats.Basic {
	return stats.CalcBasic(f.Data)
}

// FITS header data
type Header struct {
	Bools    map[string]bool
	Ints     map[string]int32
	Floats   map[string]float64
	Strings  map[string]string
	Dates    map[string]string
	Comments []string
	History  []string
	End      bool
	Length   int32
}

// Creates a FITS header initialized with empty maps and arrays
func NewHeader() Header {
	return Header{
		Bools:   make(map[string]bool),
		Ints:    make(map[string]int32),
		Floats:  make(map[string]float64),
		Strings: make(map[string]string),
		Dates:   make(map[string]string),
		Comments:make([]string,0),
		History: make([]string,0),
		End:     false,
	}
}

// Returns a deep copy of the header
func (h *Header) Copy() Header {
	c:=NewHeader()
	for k,v:=range h.Bools   { c.Bools[k]=v }
	for k,v:=range h.Ints    { c.Ints[k]=v }
	for k,v:=range h.Floats  { c.Floats[k]=v }
	for k,v:=range h.Strings { c.Strings[k]=v }
	for k,v:=range h.Dates   { c.Dates[k]=v }
	c.Comments=append(c.Comments, h.Comments...)
	c.History =append(c.History,  h.History...)
	c.End, c.Length = h.End, h.Length
	return c
}

// Returns the numerical value for the given key, accepting both ints and floats
func (h *Header) Float(key string) (float64, bool) {
	if v, ok:=h.Floats[key]; ok { return v, true }
	if v, ok:=h.Ints[key];   ok { return float64(v), true }
	return 0, false
}

// Returns the textual value for the given key, accepting both strings and unquoted dates
func (h *Header) String(key string) (string, bool) {
	if v, ok:=h.Strings[key]; ok { return strings.TrimSpace(v), true }
	if v, ok:=h.Dates[key];   ok { return strings.TrimSpace(v), true }
	return "", false
}

// Removes the given key from all value maps
func (h *Header) Delete(key string) {
	delete(h.Bools, key)
	delete(h.Ints, key)
	delete(h.Floats, key)
	delete(h.Strings, key)
	delete(h.Dates, key)
}

const fitsBlockSize int  = 2880       // Block size of FITS header and data units
const HeaderLineSize int =   80       // Line size of a FITS header


func (f *Image) DimensionsToString() string {
	b:=strings.Builder{}
	for i,naxis:=range(f.Naxisn) {
		if i>0 {
			fmt.Fprintf(&b, "x%d", naxis)
		} else {
			fmt.Fprintf(&b, "%d", naxis)
		}
	}
	return b.String()
}

// Tells whether the two images have equal 2D plane dimensions
func SameSize(a, b *Image) bool {
	return a.Width()==b.Width() && a.Height()==b.Height()
}
