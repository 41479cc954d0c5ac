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

// Package helio converts equatorial sky positions to helioprojective
// coordinates as seen from the Earth.
package helio

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/base"
	"github.com/soniakeys/meeus/v3/coord"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/nutation"
	"github.com/soniakeys/meeus/v3/precess"
	"github.com/soniakeys/meeus/v3/solar"
	"github.com/soniakeys/unit"

	"github.com/mlnoga/burstlight/internal/fits"
)

const radToArcsec=180*3600/math.Pi

// Pixel scale used when an image carries no usable celestial mapping
const DefaultArcsecPerPixel=10.0

// Apparent geocentric position of the Sun at one instant
type Sun struct {
	Time       time.Time
	JDE        float64
	RA, Dec    float64 // apparent equatorial position of date, radians
	DistanceAU float64
	P          float64 // position angle of the northern rotation axis, radians east of north
}

// Computes the apparent position of the Sun at t
func SunAt(t time.Time) *Sun {
	jde:=julian.TimeToJD(t.UTC())
	T:=base.J2000Century(jde)
	α, δ:=solar.ApparentEquatorial(jde)
	return &Sun{
		Time:       t,
		JDE:        jde,
		RA:         α.Rad(),
		Dec:        δ.Rad(),
		DistanceAU: solar.Radius(T),
		P:          positionAngle(jde),
	}
}

// Position angle P of the solar rotation axis, after Meeus chapter 29
func positionAngle(jde float64) float64 {
	T:=base.J2000Century(jde)
	s, _:=solar.True(T)
	Ω:=(125.04-1934.136*T)*math.Pi/180
	λ:=s.Rad()-(0.00569+0.00478*math.Sin(Ω))*math.Pi/180 // apparent longitude
	Δψ, Δε:=nutation.Nutation(jde)
	ε:=nutation.MeanObliquity(jde).Rad()+Δε.Rad()
	λp:=λ+Δψ.Rad()

	I:=7.25*math.Pi/180
	K:=(73.6667+1.3958333*(jde-2396758)/36525)*math.Pi/180
	x:=math.Atan(-math.Cos(λp)*math.Tan(ε))
	y:=math.Atan(-math.Cos(λ-K)*math.Tan(I))
	return x+y
}

// Precesses a J2000 position in degrees to the equinox of date, result in radians
func (s *Sun) fromJ2000(raDeg, decDeg float64) (float64, float64) {
	from:=&coord.Equatorial{RA:unit.RAFromDeg(raDeg), Dec:unit.AngleFromDeg(decDeg)}
	to:=precess.Position(from, &coord.Equatorial{}, 2000, base.JDEToJulianYear(s.JDE), 0, 0)
	return to.RA.Rad(), to.Dec.Rad()
}

// Precesses a position of date in radians back to J2000, result in degrees
func (s *Sun) toJ2000(ra, dec float64) (float64, float64) {
	from:=&coord.Equatorial{RA:unit.RAFromRad(ra), Dec:unit.Angle(dec)}
	to:=precess.Position(from, &coord.Equatorial{}, base.JDEToJulianYear(s.JDE), 2000, 0, 0)
	raDeg:=math.Mod(to.RA.Rad()*180/math.Pi+360, 360)
	return raDeg, to.Dec.Rad()*180/math.Pi
}

// Converts a J2000 position in degrees to helioprojective Tx, Ty in arcsec. Tx grows
// towards solar west, Ty towards solar north
func (s *Sun) ToHelioprojective(raDeg, decDeg float64) (tx, ty float64) {
	α, δ:=s.fromJ2000(raDeg, decDeg)
	sinD0, cosD0:=math.Sincos(s.Dec)
	sinD, cosD:=math.Sincos(δ)
	sinDA, cosDA:=math.Sincos(α-s.RA)

	cosc:=sinD0*sinD+cosD0*cosD*cosDA
	ξ:=cosD*sinDA/cosc                  // towards celestial east
	η:=(cosD0*sinD-sinD0*cosD*cosDA)/cosc // towards celestial north

	sinP, cosP:=math.Sincos(s.P)
	tx=(-ξ*cosP+η*sinP)*radToArcsec
	ty=( ξ*sinP+η*cosP)*radToArcsec
	return tx, ty
}

// Converts helioprojective Tx, Ty in arcsec to a J2000 position in degrees
func (s *Sun) FromHelioprojective(tx, ty float64) (raDeg, decDeg float64) {
	tx, ty = tx/radToArcsec, ty/radToArcsec
	sinP, cosP:=math.Sincos(s.P)
	ξ:=-tx*cosP+ty*sinP
	η:= tx*sinP+ty*cosP

	ρ:=math.Hypot(ξ, η)
	if ρ==0 { return s.toJ2000(s.RA, s.Dec) }
	c:=math.Atan(ρ)
	sinC, cosC:=math.Sincos(c)
	sinD0, cosD0:=math.Sincos(s.Dec)
	δ:=math.Asin(cosC*sinD0+η*sinC*cosD0/ρ)
	α:=s.RA+math.Atan2(ξ*sinC, ρ*cosD0*cosC-η*sinD0*sinC)
	return s.toJ2000(α, δ)
}

// Helioprojective position of a J2000 position observed at t
func ToHelioprojective(raDeg, decDeg float64, t time.Time) (tx, ty float64) {
	return SunAt(t).ToHelioprojective(raDeg, decDeg)
}

// Angular pixel scale of the image, or DefaultArcsecPerPixel if it has no usable mapping
func ArcsecPerPixel(w *fits.WCS) float64 {
	if w==nil { return DefaultArcsecPerPixel }
	a:=w.ArcsecPerPixel()
	if math.IsNaN(a) || math.IsInf(a, 0) || a<=0 { return DefaultArcsecPerPixel }
	return a
}
