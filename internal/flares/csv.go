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

// Package flares reads STIX flare lists and MWA observation lists, finds
// flares observed during local daylight, and compares burst and flare positions.
package flares

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var (
	ErrMissingColumn = errors.New("missing required column")
	ErrBadTime       = errors.New("unparseable time")
)

// Time layouts found in flare and observation lists. Fractional seconds are accepted by all of them
var timeLayouts=[]string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05",
}

// Parses a UTC timestamp in any of the usual list layouts
func ParseTime(s string) (time.Time, error) {
	s=strings.TrimSpace(s)
	for _,l:=range timeLayouts {
		if t, err:=time.Parse(l, s); err==nil { return t.UTC(), nil }
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadTime, s)
}

// A CSV table with named columns
type table struct {
	cols map[string]int
	rows [][]string
}

func readTable(r io.Reader, required ...string) (*table, error) {
	cr:=csv.NewReader(r)
	cr.FieldsPerRecord=-1
	cr.TrimLeadingSpace=true
	records, err:=cr.ReadAll()
	if err!=nil { return nil, err }
	if len(records)==0 { return nil, fmt.Errorf("%w: empty file", ErrMissingColumn) }

	t:=&table{cols:map[string]int{}, rows:records[1:]}
	for i,name:=range records[0] {
		t.cols[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))]=i
	}
	for _,c:=range required {
		if _, ok:=t.cols[c]; !ok { return nil, fmt.Errorf("%w: %s", ErrMissingColumn, c) }
	}
	return t, nil
}

// Value of the named column in row, or "" if absent
func (t *table) get(row []string, col string) string {
	i, ok:=t.cols[col]
	if !ok || i>=len(row) { return "" }
	return strings.TrimSpace(row[i])
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "t", "y": return true
	}
	return false
}
