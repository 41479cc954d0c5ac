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
	"fmt"
	"math"
)

// Parameters of burst localization
type Params struct {
	ZThresh       float64 `mapstructure:"zthresh"       json:"zThresh"`       // significance threshold for local maxima
	MinPixels     int     `mapstructure:"minpixels"     json:"minPixels"`     // minimum positive pixels in the centroid window
	SmoothSigma   float64 `mapstructure:"smoothsigma"   json:"smoothSigma"`   // spatial pre-smoothing of each frame in pixels, 0 disables
	BgSigma       float64 `mapstructure:"bgsigma"       json:"bgSigma"`       // high-pass filter scale in pixels, 0 disables
	PeakHalfWidth int     `mapstructure:"peakhalfwidth" json:"peakHalfWidth"` // half width of the local maximum neighbourhood
	ExcludeLimbPx int     `mapstructure:"excludelimbpx" json:"excludeLimbPx"` // erosion of the region mask in pixels
	MaxThreads    int     `mapstructure:"-"             json:"-"`             // worker pool size for per-frame scoring, <=1 runs sequentially
	KeepMaps      bool    `mapstructure:"-"             json:"-"`             // retain per-frame significance maps in the result
}

// Default localization parameters
func DefaultParams() Params {
	return Params{
		ZThresh:       5,
		MinPixels:     9,
		SmoothSigma:   1,
		BgSigma:       8,
		PeakHalfWidth: 4,
		ExcludeLimbPx: 8,
		MaxThreads:    1,
	}
}

// Checks parameters for consistency
func (p Params) Validate() error {
	switch {
	case math.IsNaN(p.ZThresh) || math.IsInf(p.ZThresh, 0):
		return fmt.Errorf("%w: z threshold %g is not finite", ErrInvalidParams, p.ZThresh)
	case p.MinPixels<1:
		return fmt.Errorf("%w: min pixels %d must be at least 1", ErrInvalidParams, p.MinPixels)
	case !(p.SmoothSigma>=0):
		return fmt.Errorf("%w: smoothing sigma %g must not be negative", ErrInvalidParams, p.SmoothSigma)
	case !(p.BgSigma>=0):
		return fmt.Errorf("%w: high-pass sigma %g must not be negative", ErrInvalidParams, p.BgSigma)
	case p.PeakHalfWidth<1:
		return fmt.Errorf("%w: peak half width %d must be at least 1", ErrInvalidParams, p.PeakHalfWidth)
	case p.ExcludeLimbPx<0:
		return fmt.Errorf("%w: limb exclusion %d must not be negative", ErrInvalidParams, p.ExcludeLimbPx)
	}
	return nil
}

// Radius of the centroid window around a peak
func (p Params) WindowRadius() int {
	if r:=2*p.PeakHalfWidth; r>2 { return r }
	return 2
}
