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
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Parameters for matching flares with observations
type OverlapOptions struct {
	Latitude         float64       `mapstructure:"latitude"         json:"latitude"`
	Longitude        float64       `mapstructure:"longitude"        json:"longitude"`
	MinPercent       int           `mapstructure:"minpercent"       json:"minPercent"`
	CalibratorWindow time.Duration `mapstructure:"calibratorwindow" json:"calibratorWindow"`
	DaylightOnly     bool          `mapstructure:"daylightonly"     json:"daylightOnly"`
}

func DefaultOverlapOptions() OverlapOptions {
	return OverlapOptions{
		Latitude:         MWALatitude,
		Longitude:        MWALongitude,
		MinPercent:       1,
		CalibratorWindow: 12*time.Hour,
		DaylightOnly:     true,
	}
}

// A flare observed by the telescope
type Match struct {
	Flare           Flare         `json:"flare"`
	Duration        time.Duration `json:"duration"`
	Overlap         time.Duration `json:"overlap"`
	OverlapPercent  int           `json:"overlapPercent"`
	GoesNumeric     float64       `json:"goesNumeric"`
	Observations    []Observation `json:"observations"`
	Calibrators     []Observation `json:"calibrators"`
	CalibratorHours []float64     `json:"calibratorHours"` // distance from the first observation, rounded to 0.01 h
}

// Overlap statistics over all flares
type Summary struct {
	Flares   int     `json:"flares"`
	Matching int     `json:"matching"` // flares with positive overlap
	Deciles  [10]int `json:"deciles"`  // Deciles[i] counts overlaps in (10i, 10(i+1)] percent
}

func (s Summary) String() string {
	res:=""
	for i,n:=range s.Deciles {
		res+=fmt.Sprintf("matching %d-%d%%: %d\n", i*10, (i+1)*10, n)
	}
	return res+fmt.Sprintf("num_of_matching_observations: %d", s.Matching)
}

// Matches flares with observations. Overlap is the time a flare was observed, optionally
// only during daylight at the site. Returns matches with at least MinPercent overlap, ordered
// by overlap percentage and GOES class, both descending
func Overlap(flares []Flare, obs []Observation, o OverlapOptions) ([]Match, Summary, error) {
	day:=NewDaylight(o.Latitude, o.Longitude)
	sum:=Summary{Flares:len(flares)}
	var res []Match

	for _,f:=range flares {
		m:=Match{Flare:f, Duration:f.Duration(), GoesNumeric:GoesClassToNumeric(f.GOESClass)}
		var ivs []Interval
		for _,ob:=range obs {
			if !ob.Overlaps(f.Start, f.End) { continue }
			m.Observations=append(m.Observations, ob)
			ivs=append(ivs, Interval{later(f.Start, ob.Start), earlier(f.End, ob.Stop)})
		}
		ivs=merge(ivs)
		if o.DaylightOnly {
			var err error
			if ivs, err=day.Clip(ivs); err!=nil { return nil, sum, fmt.Errorf("flare %s: %w", f.ID, err) }
		}
		m.Overlap=total(ivs)
		if m.Duration>0 {
			m.OverlapPercent=int(100*m.Overlap.Seconds()/m.Duration.Seconds())
		}

		if m.OverlapPercent>0 { sum.Matching++ }
		for i:=0; i<10; i++ {
			if i*10<m.OverlapPercent && m.OverlapPercent<=(i+1)*10 { sum.Deciles[i]++ }
		}
		if m.OverlapPercent<o.MinPercent { continue }
		attachCalibrators(&m, obs, o.CalibratorWindow)
		res=append(res, m)
	}

	sort.SliceStable(res, func(i, j int) bool {
		if res[i].OverlapPercent!=res[j].OverlapPercent { return res[i].OverlapPercent>res[j].OverlapPercent }
		return res[i].GoesNumeric>res[j].GoesNumeric
	})
	return res, sum, nil
}

// Attaches calibrator observations starting within window of the first observation of the match
func attachCalibrators(m *Match, obs []Observation, window time.Duration) {
	if len(m.Observations)==0 { return }
	ref:=m.Observations[0].Start
	for _,ob:=range obs {
		if !ob.Calibration { continue }
		d:=ob.Start.Sub(ref)
		if d<0 { d=-d }
		if d>window { continue }
		m.Calibrators=append(m.Calibrators, ob)
		m.CalibratorHours=append(m.CalibratorHours, math.Round(d.Hours()*100)/100)
	}
}

// Writes matches as CSV, one row per flare. Multi-valued columns are separated by ';'
func WriteCSV(w io.Writer, matches []Match) error {
	cw:=csv.NewWriter(w)
	cw.Write([]string{"flare_id", "GOES_class", "start_UTC", "end_UTC", "flare_duration_sec", "overlap_duration_sec",
		"overlap_percentage", "projectids", "obs_ids", "obs_names", "calibrator_obs_ids", "calibrator_obs_names",
		"calibrator_time_diff_hr"})
	for _,m:=range matches {
		var projects, ids, names, calIDs, calNames, calHours []string
		for _,o:=range m.Observations {
			projects, ids, names = append(projects, o.ProjectID), append(ids, o.ID), append(names, o.Name)
		}
		for i,o:=range m.Calibrators {
			calIDs, calNames = append(calIDs, o.ID), append(calNames, o.Name)
			calHours=append(calHours, strconv.FormatFloat(m.CalibratorHours[i], 'f', 2, 64))
		}
		cw.Write([]string{
			m.Flare.ID, m.Flare.GOESClass,
			m.Flare.Start.Format(time.RFC3339), m.Flare.End.Format(time.RFC3339),
			strconv.Itoa(int(m.Duration.Seconds())), strconv.Itoa(int(m.Overlap.Seconds())),
			strconv.Itoa(m.OverlapPercent),
			strings.Join(projects, ";"), strings.Join(ids, ";"), strings.Join(names, ";"),
			strings.Join(calIDs, ";"), strings.Join(calNames, ";"), strings.Join(calHours, ";"),
		})
	}
	cw.Flush()
	return cw.Error()
}
