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
	"fmt"
	"io"
	"os"
	"sort"
	"time"
)

// An MWA observation
type Observation struct {
	ID          string    `json:"obsId"`
	Start       time.Time `json:"start"`
	Stop        time.Time `json:"stop"`
	ProjectID   string    `json:"projectId"`
	Name        string    `json:"name"`
	Calibration bool      `json:"calibration"`
}

// True if the observation intersects [start, end], boundaries included
func (o *Observation) Overlaps(start, end time.Time) bool {
	return !o.Start.After(end) && !o.Stop.Before(start)
}

// Reads an observation list sorted by start time. Requires obs_id, starttime_utc and
// stoptime_utc; project, name and calibration flag are optional
func ReadObservations(r io.Reader) ([]Observation, error) {
	t, err:=readTable(r, "obs_id", "starttime_utc", "stoptime_utc")
	if err!=nil { return nil, fmt.Errorf("observation list: %w", err) }

	res:=make([]Observation, 0, len(t.rows))
	for i,row:=range t.rows {
		o:=Observation{
			ID:          t.get(row, "obs_id"),
			ProjectID:   t.get(row, "projectid"),
			Name:        t.get(row, "obsname"),
			Calibration: parseBool(t.get(row, "calibration")),
		}
		if o.Start, err=ParseTime(t.get(row, "starttime_utc")); err!=nil { return nil, fmt.Errorf("observation list row %d: %w", i+2, err) }
		if o.Stop,  err=ParseTime(t.get(row, "stoptime_utc"));  err!=nil { return nil, fmt.Errorf("observation list row %d: %w", i+2, err) }
		res=append(res, o)
	}
	sort.SliceStable(res, func(i, j int) bool { return res[i].Start.Before(res[j].Start) })
	return res, nil
}

// Reads an observation list from the named file
func ReadObservationsFile(fileName string) ([]Observation, error) {
	f, err:=os.Open(fileName)
	if err!=nil { return nil, err }
	defer f.Close()
	return ReadObservations(f)
}
