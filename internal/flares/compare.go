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
	"math"
)

// Positional uncertainties for comparing a radio burst with a flare centroid
type CompareOptions struct {
	MWAErrArcsec  float64 `mapstructure:"mwaerr"  json:"mwaErr"`  // 1 sigma radio position error
	StixErrArcsec float64 `mapstructure:"stixerr" json:"stixErr"` // 1 sigma flare centroid error
	Factor        float64 `mapstructure:"factor"  json:"factor"`  // co-spatial if separation <= Factor*sigma_tot
}

func DefaultCompareOptions() CompareOptions {
	return CompareOptions{MWAErrArcsec:60, StixErrArcsec:30, Factor:2}
}

// Outcome of comparing two helioprojective positions
type Comparison struct {
	MWATx, MWATy   float64 `json:"-"`
	StixTx, StixTy float64 `json:"-"`
	Separation     float64 `json:"separation"` // arcsec
	SigmaTot       float64 `json:"sigmaTot"`   // combined 1 sigma error in arcsec
	CoSpatial      bool    `json:"coSpatial"`
}

// Compares the radio burst position with the flare centroid, both in Earth-view helioprojective arcsec
func Compare(mwaTx, mwaTy, stixTx, stixTy float64, o CompareOptions) Comparison {
	sep:=math.Hypot(mwaTx-stixTx, mwaTy-stixTy)
	sigma:=math.Hypot(o.MWAErrArcsec, o.StixErrArcsec)
	return Comparison{
		MWATx:mwaTx, MWATy:mwaTy, StixTx:stixTx, StixTy:stixTy,
		Separation: sep,
		SigmaTot:   sigma,
		CoSpatial:  sep<=o.Factor*sigma,
	}
}

// "co-spatial" or "offset"
func (c Comparison) Verdict() string {
	if c.CoSpatial { return "co-spatial" }
	return "offset"
}

func (c Comparison) String() string {
	return fmt.Sprintf("mwa (%.1f\", %.1f\") stix (%.1f\", %.1f\") sep=%.1f\" sigma_tot=%.1f\" %s",
		c.MWATx, c.MWATy, c.StixTx, c.StixTy, c.Separation, c.SigmaTot, c.Verdict())
}
