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

package main

import (
	"github.com/spf13/cobra"

	"github.com/mlnoga/burstlight/internal/burst"
	"github.com/mlnoga/burstlight/internal/flares"
	"github.com/mlnoga/burstlight/internal/srclist"
)

// Adds flags for the localization parameters to cmd
func (a *app) localizeFlags(cmd *cobra.Command) {
	p:=burst.DefaultParams()
	f:=cmd.Flags()
	f.Float64("zthresh", p.ZThresh, "significance threshold for local maxima in robust sigmas")
	f.Int("minPixels", p.MinPixels, "minimum number of positive pixels in the centroid window")
	f.Float64("smooth", p.SmoothSigma, "spatial pre-smoothing sigma in pixels, 0=off")
	f.Float64("bgSigma", p.BgSigma, "high-pass filter sigma in pixels, 0=off")
	f.Int("halfWidth", p.PeakHalfWidth, "half width of the local maximum neighbourhood in pixels")
	f.Int("limb", p.ExcludeLimbPx, "erode the solar disk mask by this many pixels")
	a.bind(cmd, "zthresh", "localize.zthresh")
	a.bind(cmd, "minPixels", "localize.minpixels")
	a.bind(cmd, "smooth", "localize.smoothsigma")
	a.bind(cmd, "bgSigma", "localize.bgsigma")
	a.bind(cmd, "halfWidth", "localize.peakhalfwidth")
	a.bind(cmd, "limb", "localize.excludelimbpx")
}

// Adds flags for sky model emission to cmd
func (a *app) srclistFlags(cmd *cobra.Command) {
	o:=srclist.DefaultOptions()
	f:=cmd.Flags()
	f.Float64("threshold", o.Threshold, "minimum composite score of a sky model component")
	f.Int("maxSources", o.MaxSources, "maximum number of sky model components")
	f.Float64("fluxNorm", o.FluxNorm, "flux density of the strongest component in Jy")
	f.Float64("refFreq", o.RefFreqHz, "reference frequency in Hz if the images carry none")
	a.bind(cmd, "threshold", "srclist.threshold")
	a.bind(cmd, "maxSources", "srclist.maxsources")
	a.bind(cmd, "fluxNorm", "srclist.fluxnorm")
	a.bind(cmd, "refFreq", "srclist.reffreq")
}

// Adds flags for the co-spatial test to cmd
func (a *app) compareFlags(cmd *cobra.Command) {
	o:=flares.DefaultCompareOptions()
	f:=cmd.Flags()
	f.Float64("mwaErr", o.MWAErrArcsec, "1 sigma radio position error in arcsec")
	f.Float64("stixErr", o.StixErrArcsec, "1 sigma flare centroid error in arcsec")
	f.Float64("factor", o.Factor, "co-spatial if the separation is at most factor times the combined error")
	a.bind(cmd, "mwaErr", "compare.mwaerr")
	a.bind(cmd, "stixErr", "compare.stixerr")
	a.bind(cmd, "factor", "compare.factor")
}
