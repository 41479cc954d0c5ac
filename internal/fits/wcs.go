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
	"errors"
	"fmt"
	"math"
	"strings"
)

var (
	ErrNoWCS             = errors.New("no celestial WCS in header")
	ErrUnknownProjection = errors.New("unsupported WCS projection")
	ErrOutsideProjection = errors.New("coordinate outside of projection")
)

// Celestial projections supported by WCS
type Projection int

const (
	ProjSIN Projection = iota // slant orthographic, the native radio interferometer projection
	ProjTAN                   // gnomonic
	ProjCAR                   // plate carree
)

func (p Projection) String() string {
	switch p {
	case ProjSIN: return "SIN"
	case ProjTAN: return "TAN"
	case ProjCAR: return "CAR"
	}
	return fmt.Sprintf("Projection(%d)", int(p))
}

// Linear world coordinate system for the two celestial axes of an image, after
// Calabretta & Greisen, "Representations of celestial coordinates in FITS", A&A 395, 1077 (2002).
// Pixel coordinates are 0-based, world coordinates in degrees
type WCS struct {
	Proj     Projection
	CRPix    [2]float64    // reference pixel, 1-based as in the header
	CRVal    [2]float64    // reference RA and Dec in degrees
	M        [2][2]float64 // pixel to intermediate world coordinates in degrees
	Mi       [2][2]float64 // inverse of M
	FreqHz   float64       // reference frequency, 0 if unknown
}

// Parses the celestial WCS from the given header
func NewWCSFromHeader(h *Header) (*WCS, error) {
	ctype1, ok1:=h.String("CTYPE1")
	ctype2, ok2:=h.String("CTYPE2")
	if !ok1 || !ok2 || !strings.HasPrefix(ctype1, "RA") || !strings.HasPrefix(ctype2, "DEC") {
		return nil, ErrNoWCS
	}
	w:=&WCS{}
	switch proj:=projCode(ctype1); proj {
	case "SIN": w.Proj=ProjSIN
	case "TAN": w.Proj=ProjTAN
	case "CAR": w.Proj=ProjCAR
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProjection, proj)
	}
	if projCode(ctype2)!=projCode(ctype1) {
		return nil, fmt.Errorf("%w: mismatched axes %q and %q", ErrUnknownProjection, ctype1, ctype2)
	}

	for i:=0; i<2; i++ {
		w.CRPix[i], _=h.Float(fmt.Sprintf("CRPIX%d", i+1))
		w.CRVal[i], _=h.Float(fmt.Sprintf("CRVAL%d", i+1))
	}

	if _, hasCD:=h.Float("CD1_1"); hasCD {
		for i:=0; i<2; i++ {
			for j:=0; j<2; j++ {
				w.M[i][j], _=h.Float(fmt.Sprintf("CD%d_%d", i+1, j+1))
			}
		}
	} else {
		cdelt:=[2]float64{1, 1}
		for i:=0; i<2; i++ {
			if v, ok:=h.Float(fmt.Sprintf("CDELT%d", i+1)); ok { cdelt[i]=v }
		}
		pc:=[2][2]float64{{1, 0}, {0, 1}}
		if rot, ok:=h.Float("CROTA2"); ok {
			s, c:=math.Sincos(rot*math.Pi/180)
			pc=[2][2]float64{{c, -s*cdelt[1]/cdelt[0]}, {s*cdelt[0]/cdelt[1], c}}
		}
		for i:=0; i<2; i++ {
			for j:=0; j<2; j++ {
				if v, ok:=h.Float(fmt.Sprintf("PC%d_%d", i+1, j+1)); ok { pc[i][j]=v }
				w.M[i][j]=cdelt[i]*pc[i][j]
			}
		}
	}
	det:=w.M[0][0]*w.M[1][1]-w.M[0][1]*w.M[1][0]
	if det==0 {
		return nil, fmt.Errorf("%w: singular pixel scale matrix", ErrNoWCS)
	}
	w.Mi=[2][2]float64{
		{ w.M[1][1]/det, -w.M[0][1]/det},
		{-w.M[1][0]/det,  w.M[0][0]/det},
	}

	w.FreqHz=frequencyFromHeader(h)
	return w, nil
}

// Returns the projection code of a CTYPE value such as RA---SIN
func projCode(ctype string) string {
	if i:=strings.LastIndex(ctype, "-"); i>=0 { return ctype[i+1:] }
	return ""
}

// Reference frequency in Hz: CRVAL3 if the third axis is frequency, else FREQ or RESTFRQ keys
func frequencyFromHeader(h *Header) float64 {
	if ctype3, ok:=h.String("CTYPE3"); ok && strings.HasPrefix(ctype3, "FREQ") {
		if v, ok:=h.Float("CRVAL3"); ok { return v }
	}
	for _,key:=range []string{"FREQ", "RESTFRQ", "RESTFREQ"} {
		if v, ok:=h.Float(key); ok { return v }
	}
	return 0
}

// Angular size of a pixel in arc seconds, as the square root of the pixel area
func (w *WCS) ArcsecPerPixel() float64 {
	det:=w.M[0][0]*w.M[1][1]-w.M[0][1]*w.M[1][0]
	return math.Sqrt(math.Abs(det))*3600
}

// Converts 0-based pixel coordinates into RA and Dec in degrees
func (w *WCS) PixelToWorld(x, y float64) (ra, dec float64, err error) {
	dx, dy:=x+1-w.CRPix[0], y+1-w.CRPix[1]
	ix:=(w.M[0][0]*dx+w.M[0][1]*dy)*math.Pi/180
	iy:=(w.M[1][0]*dx+w.M[1][1]*dy)*math.Pi/180

	// direction in the tangent frame: l east, m north, n towards the reference point
	var l, m, n float64
	switch w.Proj {
	case ProjSIN:
		rho2:=ix*ix+iy*iy
		if rho2>1 { return math.NaN(), math.NaN(), ErrOutsideProjection }
		l, m, n = ix, iy, math.Sqrt(1-rho2)
	case ProjTAN:
		l, m, n = ix, iy, 1
	case ProjCAR:
		sinPhi, cosPhi:=math.Sincos(ix)
		sinTheta, cosTheta:=math.Sincos(iy)
		l, m, n = cosTheta*sinPhi, sinTheta, cosTheta*cosPhi
	}

	el, em, en:=w.basis()
	vx:=l*el[0]+m*em[0]+n*en[0]
	vy:=l*el[1]+m*em[1]+n*en[1]
	vz:=l*el[2]+m*em[2]+n*en[2]
	norm:=math.Sqrt(vx*vx+vy*vy+vz*vz)

	ra=math.Atan2(vy, vx)*180/math.Pi
	if ra<0 { ra+=360 }
	dec=math.Asin(vz/norm)*180/math.Pi
	return ra, dec, nil
}

// Converts RA and Dec in degrees into 0-based pixel coordinates
func (w *WCS) WorldToPixel(ra, dec float64) (x, y float64, err error) {
	sinA, cosA:=math.Sincos(ra*math.Pi/180)
	sinD, cosD:=math.Sincos(dec*math.Pi/180)
	v:=[3]float64{cosD*cosA, cosD*sinA, sinD}
	el, em, en:=w.basis()
	l:=v[0]*el[0]+v[1]*el[1]+v[2]*el[2]
	m:=v[0]*em[0]+v[1]*em[1]+v[2]*em[2]
	n:=v[0]*en[0]+v[1]*en[1]+v[2]*en[2]

	var ix, iy float64
	switch w.Proj {
	case ProjSIN:
		if n<0 { return math.NaN(), math.NaN(), ErrOutsideProjection }
		ix, iy = l, m
	case ProjTAN:
		if n<=0 { return math.NaN(), math.NaN(), ErrOutsideProjection }
		ix, iy = l/n, m/n
	case ProjCAR:
		ix, iy = math.Atan2(l, n), math.Asin(m)
	}
	ix*=180/math.Pi
	iy*=180/math.Pi

	x=w.Mi[0][0]*ix+w.Mi[0][1]*iy+w.CRPix[0]-1
	y=w.Mi[1][0]*ix+w.Mi[1][1]*iy+w.CRPix[1]-1
	return x, y, nil
}

// Unit vectors east, north and towards the reference point, in equatorial cartesian coordinates
func (w *WCS) basis() (el, em, en [3]float64) {
	sinA, cosA:=math.Sincos(w.CRVal[0]*math.Pi/180)
	sinD, cosD:=math.Sincos(w.CRVal[1]*math.Pi/180)
	el=[3]float64{-sinA, cosA, 0}
	em=[3]float64{-sinD*cosA, -sinD*sinA, cosD}
	en=[3]float64{cosD*cosA, cosD*sinA, sinD}
	return el, em, en
}
