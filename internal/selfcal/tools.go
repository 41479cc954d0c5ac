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

package selfcal

import (
	"context"
	"path/filepath"
	"strconv"
)

// Imaging parameters for the per-interval snapshot images
type ImagingOptions struct {
	DataColumn    string  `mapstructure:"datacolumn"    json:"dataColumn"`
	Intervals     int     `mapstructure:"intervals"     json:"intervals"`
	Size          int     `mapstructure:"size"          json:"size"`          // pixels per side
	Scale         string  `mapstructure:"scale"         json:"scale"`         // pixel scale, e.g. "1amin"
	Niter         int     `mapstructure:"niter"         json:"niter"`
	AutoThreshold float64 `mapstructure:"autothreshold" json:"autoThreshold"`
}

func DefaultImagingOptions() ImagingOptions {
	return ImagingOptions{DataColumn:"DATA", Intervals:1, Size:512, Scale:"1amin", Niter:10, AutoThreshold:5}
}

// Runs the imager
type Imager struct {
	Exec    Executor
	Path    string // imager executable
	Options ImagingOptions
}

// Arguments for imaging ms into per-interval XX and YY images named <dir>/wsclean-t<nnnn>-<pol>-image.fits
func (im *Imager) Args(ms, dir string) []string {
	o:=im.Options
	size:=strconv.Itoa(o.Size)
	return []string{
		"-name", filepath.Join(dir, "wsclean"),
		"-data-column", o.DataColumn,
		"-intervals-out", strconv.Itoa(o.Intervals),
		"-size", size, size,
		"-scale", o.Scale,
		"-pol", "xx,yy", "-join-polarizations",
		"-niter", strconv.Itoa(o.Niter),
		"-auto-mask", "3",
		"-auto-threshold", strconv.FormatFloat(o.AutoThreshold, 'g', -1, 64),
		"-multiscale", "-mgain", "0.8",
		"-weight", "briggs", "0",
		ms,
	}
}

// Images ms into dir
func (im *Imager) Run(ctx context.Context, ms, dir string) error {
	return im.Exec.Run(ctx, dir, []string{"OPENBLAS_NUM_THREADS=1"}, im.Path, im.Args(ms, dir)...)
}

// Runs the direction independent calibrator
type Calibrator struct {
	Exec Executor
	Path string // calibrator executable
}

// Solves for gains of ms against the sky model in srclist, writing solutions to sols
func (ca *Calibrator) DICalibrate(ctx context.Context, ms, metafits, srclist, sols string) error {
	return ca.Exec.Run(ctx, "", nil, ca.Path, "di-calibrate",
		"-d", ms, metafits,
		"-s", srclist,
		"-o", sols,
		"--min-uv-lambda", "0")
}

// Applies solutions sols to ms, writing the calibrated visibilities to out
func (ca *Calibrator) Apply(ctx context.Context, ms, metafits, sols, out string) error {
	return ca.Exec.Run(ctx, "", nil, ca.Path, "solutions-apply",
		"-d", ms, metafits,
		"-s", sols,
		"-o", out)
}
