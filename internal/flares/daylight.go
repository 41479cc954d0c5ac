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
	"sort"
	"time"

	"github.com/sj14/astral/pkg/astral"
)

// MWA site
const (
	MWALatitude  = -26.7033
	MWALongitude = 116.6708
)

// A time interval [Start, End)
type Interval struct {
	Start, End time.Time
}

func (iv Interval) Duration() time.Duration {
	if !iv.End.After(iv.Start) { return 0 }
	return iv.End.Sub(iv.Start)
}

// Sunrise to sunset intervals at an observing site, cached per UTC date
type Daylight struct {
	observer astral.Observer
	cache    map[string]Interval
}

func NewDaylight(latitude, longitude float64) *Daylight {
	return &Daylight{
		observer: astral.Observer{Latitude:latitude, Longitude:longitude},
		cache:    map[string]Interval{},
	}
}

// Daylight interval for the UTC date of t. At sites far from Greenwich the
// interval may start on the previous or end on the next UTC date
func (d *Daylight) ForDate(t time.Time) (Interval, error) {
	t=t.UTC()
	date:=time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	key:=date.Format("2006-01-02")
	if iv, ok:=d.cache[key]; ok { return iv, nil }

	rise, err:=astral.Sunrise(d.observer, date)
	if err!=nil { return Interval{}, fmt.Errorf("sunrise on %s: %w", key, err) }
	set, err:=astral.Sunset(d.observer, date)
	if err!=nil { return Interval{}, fmt.Errorf("sunset on %s: %w", key, err) }
	rise, set = rise.UTC(), set.UTC()
	if set.Before(rise) { set=set.Add(24*time.Hour) }

	iv:=Interval{rise, set}
	d.cache[key]=iv
	return iv, nil
}

// Daylight intervals covering [start, end], merged and in time order
func (d *Daylight) Windows(start, end time.Time) ([]Interval, error) {
	var res []Interval
	for t:=start.Add(-24*time.Hour); !t.After(end.Add(24*time.Hour)); t=t.Add(24*time.Hour) {
		iv, err:=d.ForDate(t)
		if err!=nil { return nil, err }
		res=append(res, iv)
	}
	return merge(res), nil
}

// Clips the intervals to daylight
func (d *Daylight) Clip(ivs []Interval) ([]Interval, error) {
	if len(ivs)==0 { return nil, nil }
	win, err:=d.Windows(ivs[0].Start, ivs[len(ivs)-1].End)
	if err!=nil { return nil, err }
	return intersect(ivs, win), nil
}

// Union of intervals, sorted by start, empty ones dropped
func merge(ivs []Interval) []Interval {
	sorted:=make([]Interval, 0, len(ivs))
	for _,iv:=range ivs {
		if iv.End.After(iv.Start) { sorted=append(sorted, iv) }
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start.Before(sorted[j].Start) })

	res:=make([]Interval, 0, len(sorted))
	for _,iv:=range sorted {
		if n:=len(res); n>0 && !iv.Start.After(res[n-1].End) {
			if iv.End.After(res[n-1].End) { res[n-1].End=iv.End }
			continue
		}
		res=append(res, iv)
	}
	return res
}

// Intersection of two merged, sorted interval lists
func intersect(a, b []Interval) []Interval {
	var res []Interval
	i, j:=0, 0
	for i<len(a) && j<len(b) {
		s, e:=later(a[i].Start, b[j].Start), earlier(a[i].End, b[j].End)
		if e.After(s) { res=append(res, Interval{s, e}) }
		if a[i].End.Before(b[j].End) { i++ } else { j++ }
	}
	return res
}

func later(a, b time.Time) time.Time {
	if a.After(b) { return a }
	return b
}

func earlier(a, b time.Time) time.Time {
	if a.Before(b) { return a }
	return b
}

func total(ivs []Interval) time.Duration {
	var sum time.Duration
	for _,iv:=range ivs { sum+=iv.Duration() }
	return sum
}
