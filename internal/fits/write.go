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
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strings"
)

// Writes an in-memory FITS image to a file with given filename.
// Creates/overwrites the file if necessary
func (fits *Image) WriteFile(fileName string) error {
	f, err:=os.OpenFile(fileName, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err!=nil { return err }
	defer f.Close()

	w:=bufio.NewWriter(f)
	if err:=fits.Write(w); err!=nil { return err }
	return w.Flush()
}

// Header keys which are derived from the image geometry and written separately
var structuralKeys=map[string]bool{
	"SIMPLE":true, "BITPIX":true, "NAXIS":true, "BZERO":true, "BSCALE":true, "EXTEND":true,
}

func isStructural(key string) bool {
	return structuralKeys[key] || (strings.HasPrefix(key, "NAXIS") && len(key)>5)
}

// Writes an in-memory FITS image to an io.Writer as 2D 32-bit float data.
// All header cards other than the structural ones are written as well, in sorted key order
func (fits *Image) Write(f io.Writer) error {
	// Build header in string buffer
	sb:=strings.Builder{}
	writeBool(&sb, "SIMPLE", true, "FITS standard 4.0")
	writeInt(&sb, "BITPIX", -32, "32-bit floating point")
	writeInt(&sb, "NAXIS",  2, "Number of axis")
	writeInt(&sb, "NAXIS1", fits.Width(),  "Axis size")
	writeInt(&sb, "NAXIS2", fits.Height(), "Axis size")
	writeFloat(&sb, "BZERO",  0, "Zero offset")
	writeFloat(&sb, "BSCALE", 1, "Value scaler")
	fits.Header.writeCards(&sb)
	writeEnd(&sb)

	// Pad current header block with spaces if necessary
	if bytesInHeaderBlock:=sb.Len()%fitsBlockSize; bytesInHeaderBlock>0 {
		sb.WriteString(strings.Repeat(" ", fitsBlockSize-bytesInHeaderBlock))
	}

	// Write header block(s)
	if _, err:=io.WriteString(f, sb.String()); err!=nil { return err }

	// Write payload data, keeping NaNs which are legal in floating point FITS
	if err:=writeFloat32Array(f, fits.Data, false); err!=nil { return err }

	// Pad data block with zeros
	if bytesInDataBlock:=(len(fits.Data)*4)%fitsBlockSize; bytesInDataBlock>0 {
		_, err:=f.Write(make([]byte, fitsBlockSize-bytesInDataBlock))
		return err
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys:=make([]string, 0, len(m))
	for k:=range m {
		if !isStructural(k) { keys=append(keys, k) }
	}
	sort.Strings(keys)
	return keys
}

// Writes all non-structural header cards
func (h *Header) writeCards(w io.Writer) {
	for _,k:=range sortedKeys(h.Bools)   { writeBool(w, k, h.Bools[k], "") }
	for _,k:=range sortedKeys(h.Ints)    { writeInt(w, k, int(h.Ints[k]), "") }
	for _,k:=range sortedKeys(h.Floats)  { writeFloat(w, k, h.Floats[k], "") }
	for _,k:=range sortedKeys(h.Strings) { writeString(w, k, h.Strings[k], "") }
	for _,k:=range sortedKeys(h.Dates)   { writeString(w, k, h.Dates[k], "") }
	for _,c:=range h.Comments { writeText(w, "COMMENT", c) }
	for _,c:=range h.History  { writeText(w, "HISTORY", c) }
}

// Writes a FITS header boolean value
func writeBool(w io.Writer, key string, value bool, comment string) {
	if len(key)>8 { key=key[0:8] }
	if len(comment)>47 { comment=comment[0:47] }
	v:="F"
	if value { v="T" }
	fmt.Fprintf(w, "%-8s= %20s / %-47s", key, v, comment)
}

// Writes a FITS header integer value
func writeInt(w io.Writer, key string, value int, comment string) {
	if len(key)>8 { key=key[0:8] }
	if len(comment)>47 { comment=comment[0:47] }
	fmt.Fprintf(w, "%-8s= %20d / %-47s", key, value, comment)
}

// Writes a FITS header float64 value. Always carries a decimal point or exponent so it reads back as float
func writeFloat(w io.Writer, key string, value float64, comment string) {
	if len(key)>8 { key=key[0:8] }
	if len(comment)>47 { comment=comment[0:47] }
	s:=strings.ToUpper(fmt.Sprintf("%.15G", value))
	if !strings.ContainsAny(s, ".EN") { s+=".0" }
	fmt.Fprintf(w, "%-8s= %20s / %-47s", key, s, comment)
}

// Writes a FITS header string value. Values are escaped and truncated to fit a single card
func writeString(w io.Writer, key, value, comment string) {
	if len(key)>8 { key=key[0:8] }
	value=strings.ReplaceAll(value, "'", "''")
	if len(value)>68 { value=value[:68] }
	card:=fmt.Sprintf("%-8s= '%-8s'", key, value)
	if len(card)<30 { card+=strings.Repeat(" ", 30-len(card)) }
	if comment!="" && len(card)+3+len(comment)<=HeaderLineSize { card+=" / "+comment }
	fmt.Fprintf(w, "%-80s", card)
}

// Writes a FITS COMMENT or HISTORY card
func writeText(w io.Writer, key, text string) {
	if len(text)>72 { text=text[:72] }
	fmt.Fprintf(w, "%-8s%-72s", key, text)
}

// Writes a FITS header end record
func writeEnd(w io.Writer) {
	fmt.Fprintf(w, "END%s", strings.Repeat(" ", 80-3))
}

// Writes FITS binary body data in network byte order.
// Optionally replaces NaNs with zeros for compatibility with other software
func writeFloat32Array(w io.Writer, data []float32, replaceNaNs bool) error {
	buf:=make([]byte,bufLen)

	for block:=0; block<len(data); block+=(bufLen>>2) {
		size:=len(data)-block
		if size>(bufLen>>2) { size=(bufLen>>2) }

		for offset:=0; offset<size; offset++ {
			d:=data[block+offset]
			if replaceNaNs && math.IsNaN(float64(d)) { d=0 }
			val:=math.Float32bits(d)
			buf[(offset<<2)+0]=byte(val>>24)
			buf[(offset<<2)+1]=byte(val>>16)
			buf[(offset<<2)+2]=byte(val>> 8)
			buf[(offset<<2)+3]=byte(val    )
		}
		_, err:=w.Write(buf[:(size<<2)])
		if err!=nil { return err }
	}
	return nil
}
