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

package flares

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

var ErrFlareNotFound = errors.New("flare not found")

// A flare from the STIX flare list
type Flare struct {
	ID        string    `json:"id"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Peak      time.Time `json:"peak"`      // zero if not listed
	Tx        float64   `json:"tx"`        // Earth-view helioprojective longitude in arcsec, NaN if not listed
	Ty        float64   `json:"ty"`        // Earth-view helioprojective latitude in arcsec, NaN if not listed
	GOESClass string    `json:"goesClass"`
	Visible   bool      `json:"visible"`   // visible from Earth
}

// Midpoint between start and end
func (f *Flare) Midpoint() time.Time {
	return f.Start.Add(f.End.Sub(f.Start)/2)
}

func (f *Flare) Duration() time.Duration {
	return f.End.Sub(f.Start)
}

// True if the flare list carries an Earth-view position for the flare
func (f *Flare) HasPosition() bool {
	return !math.IsNaN(f.Tx) && !math.IsNaN(f.Ty)
}

// Reads a STIX flare list. Requires flare_id, start_UTC and end_UTC; peak time,
// position, GOES class and visibility are optional. Without a visible_from_earth
// column all flares count as visible
func ReadFlares(r io.Reader) ([]Flare, error) {
	t, err:=readTable(r, "flare_id", "start_UTC", "end_UTC")
	if err!=nil { return nil, fmt.Errorf("flare list: %w", err) }
	_, hasVisible:=t.cols["visible_from_earth"]

	res:=make([]Flare, 0, len(t.rows))
	for i,row:=range t.rows {
		f:=Flare{
			ID:        t.get(row, "flare_id"),
			GOESClass: t.get(row, "GOES_class_time_of_flare"),
			Tx:        parseFloatOrNaN(t.get(row, "hpc_x_earth")),
			Ty:        parseFloatOrNaN(t.get(row, "hpc_y_earth")),
			Visible:   !hasVisible || parseBool(t.get(row, "visible_from_earth")),
		}
		if f.Start, err=ParseTime(t.get(row, "start_UTC")); err!=nil { return nil, fmt.Errorf("flare list row %d: %w", i+2, err) }
		if f.End,   err=ParseTime(t.get(row, "end_UTC"));   err!=nil { return nil, fmt.Errorf("flare list row %d: %w", i+2, err) }
		if s:=t.get(row, "peak_UTC"); s!="" {
			if f.Peak, err=ParseTime(s); err!=nil { return nil, fmt.Errorf("flare list row %d: %w", i+2, err) }
		}
		res=append(res, f)
	}
	return res, nil
}

// Reads a STIX flare list from the named file
func ReadFlaresFile(fileName string) ([]Flare, error) {
	f, err:=os.Open(fileName)
	if err!=nil { return nil, err }
	defer f.Close()
	return ReadFlares(f)
}

// Returns the flare with the given ID
func FindFlare(flares []Flare, id string) (*Flare, error) {
	id=strings.TrimSpace(id)
	for i:=range flares {
		if flares[i].ID==id { return &flares[i], nil }
	}
	return nil, fmt.Errorf("%w: %s", ErrFlareNotFound, id)
}

// Keeps only flares visible from Earth
func VisibleFromEarth(flares []Flare) []Flare {
	res:=make([]Flare, 0, len(flares))
	for _,f:=range flares {
		if f.Visible { res=append(res, f) }
	}
	return res
}

func parseFloatOrNaN(s string) float64 {
	v, err:=strconv.ParseFloat(s, 64)
	if err!=nil { return math.NaN() }
	return v
}

var goesScale=map[byte]float64{'A':1e-8, 'B':1e-7, 'C':1e-6, 'M':1e-5, 'X':1e-4}

// Converts a GOES class like "M5.6" to peak flux in W/m^2. A bare letter
// has magnitude 1. Returns -1 for empty or unknown classes
func GoesClassToNumeric(class string) float64 {
	class=strings.TrimSpace(class)
	if class=="" { return -1 }
	scale, ok:=goesScale[strings.ToUpper(class[:1])[0]]
	if !ok { return -1 }
	if len(class)==1 { return scale }
	mag, err:=strconv.ParseFloat(class[1:], 64)
	if err!=nil { return -1 }
	return scale*mag
}
