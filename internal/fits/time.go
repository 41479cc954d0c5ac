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
	"math"
	"strings"
	"time"
)

// Label used for frames without any observation time in their header
const UnknownTime = "n/a"

// ISO 8601 layout with millisecond precision, as used for derived time labels
const ISOTimeLayout = "2006-01-02T15:04:05.000"

// Modified Julian Date zero point
var mjdEpoch = time.Date(1858, time.November, 17, 0, 0, 0, 0, time.UTC)

var dateLayouts = []string{
	"2006-01-02T15:04:05.999999999Z07:00",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

// Parses a FITS DATE-OBS style timestamp as UTC
func ParseDate(s string) (time.Time, bool) {
	s=strings.TrimSpace(s)
	for _,layout:=range dateLayouts {
		if t, err:=time.ParseInLocation(layout, s, time.UTC); err==nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Converts a Modified Julian Date into UTC, rounded to the microsecond
func MJDToTime(mjd float64) time.Time {
	days:=math.Floor(mjd)
	frac:=(mjd-days)*86400e6
	return mjdEpoch.AddDate(0, 0, int(days)).Add(time.Duration(math.Round(frac))*time.Microsecond)
}

// Returns the observation time label of the image: DATE-OBS verbatim if present,
// else MJD-OBS converted to ISO 8601, else "n/a". The parsed time is valid iff ok is set
func (h *Header) ObsTime() (label string, t time.Time, ok bool) {
	if s, found:=h.String("DATE-OBS"); found && s!="" {
		t, ok=ParseDate(s)
		return s, t, ok
	}
	if mjd, found:=h.Float("MJD-OBS"); found {
		t=MJDToTime(mjd)
		return t.Format(ISOTimeLayout), t, true
	}
	return UnknownTime, time.Time{}, false
}
