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

import (
	"encoding/json"
	"math"
)

// The representative candidate of one frame. Fallbacks are regular values distinguished by Mode
type Candidate struct {
	Frame int     // index of the frame in the cube
	Time  string  // observation time label of the frame
	Mode  Mode
	Peaks int     // number of accepted candidates in the frame
	PeakZ float64 // significance at the peak pixel
	Flux  float64 // sum of positive high-pass weights in the centroid window
	Score float64 // 3*PeakZ + log1p(Flux) for bursts, PeakZ for fallbacks, -Inf at the centre fallback
	X     float64 // sub-pixel position, 0-based
	Y     float64
	Sigma float64 // robust noise scale of the frame
	RA    float64 // sky position in degrees, NaN if unmapped
	Dec   float64
}

// JSON form of a candidate. Non-finite numbers become null
type candidateJSON struct {
	Frame int      `json:"frame"`
	Time  string   `json:"time"`
	Mode  Mode     `json:"mode"`
	Peaks int      `json:"peaks"`
	PeakZ *float64 `json:"peakZ"`
	Flux  *float64 `json:"flux"`
	Score *float64 `json:"score"`
	X     *float64 `json:"x"`
	Y     *float64 `json:"y"`
	Sigma *float64 `json:"sigma"`
	RA    *float64 `json:"ra"`
	Dec   *float64 `json:"dec"`
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) { return nil }
	return &v
}

func orValue(p *float64, def float64) float64 {
	if p==nil { return def }
	return *p
}

func (c Candidate) MarshalJSON() ([]byte, error) {
	return json.Marshal(candidateJSON{
		Frame: c.Frame, Time: c.Time, Mode: c.Mode, Peaks: c.Peaks,
		PeakZ: finiteOrNil(c.PeakZ), Flux: finiteOrNil(c.Flux), Score: finiteOrNil(c.Score),
		X: finiteOrNil(c.X), Y: finiteOrNil(c.Y), Sigma: finiteOrNil(c.Sigma),
		RA: finiteOrNil(c.RA), Dec: finiteOrNil(c.Dec),
	})
}

// Decodes a candidate. A null score decodes as -Inf, other null numbers as NaN
func (c *Candidate) UnmarshalJSON(data []byte) error {
	var j candidateJSON
	if err:=json.Unmarshal(data, &j); err!=nil { return err }
	nan:=math.NaN()
	*c=Candidate{
		Frame: j.Frame, Time: j.Time, Mode: j.Mode, Peaks: j.Peaks,
		PeakZ: orValue(j.PeakZ, nan), Flux: orValue(j.Flux, nan), Score: orValue(j.Score, math.Inf(-1)),
		X: orValue(j.X, nan), Y: orValue(j.Y, nan), Sigma: orValue(j.Sigma, nan),
		RA: orValue(j.RA, nan), Dec: orValue(j.Dec, nan),
	}
	return nil
}
