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

// Package sequence combines per-interval polarisation images from the imager
// into a Stokes I image sequence ready for burst localization.
package sequence

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/mlnoga/burstlight/internal/burst"
	"github.com/mlnoga/burstlight/internal/fits"
	"github.com/mlnoga/burstlight/internal/ops"
)

// Pattern of the Stokes I frames written by Build, relative to the work directory
const StokesIPattern = "wsclean-t*-I-image.fits"

var ErrMissingPolarization = errors.New("missing polarization image")

var reInterval=regexp.MustCompile(`wsclean-t(\d+)(?:-(XX|YY))?-image\.fits$`)

// Images of one imaging interval
type interval struct {
	index  int
	xx, yy string // polarization images
	single string // single polarization image
}

// Groups imager outputs in dir by interval, in ascending interval order
func scan(dir string) ([]*interval, error) {
	matches, err:=filepath.Glob(filepath.Join(dir, "wsclean-t*-image.fits"))
	if err!=nil { return nil, err }
	byIndex:=map[int]*interval{}
	for _,m:=range matches {
		sub:=reInterval.FindStringSubmatch(filepath.Base(m))
		if sub==nil { continue }
		idx, _:=strconv.Atoi(sub[1])
		iv:=byIndex[idx]
		if iv==nil { iv=&interval{index:idx}; byIndex[idx]=iv }
		switch sub[2] {
		case "XX": iv.xx=m
		case "YY": iv.yy=m
		default:   iv.single=m
		}
	}
	res:=make([]*interval, 0, len(byIndex))
	for _,iv:=range byIndex { res=append(res, iv) }
	sort.Slice(res, func(i, j int) bool { return res[i].index<res[j].index })
	return res, nil
}

// Output file name of the Stokes I image for the given interval
func OutputName(dir string, index int) string {
	return filepath.Join(dir, fmt.Sprintf("wsclean-t%04d-I-image.fits", index))
}

// Builds Stokes I images I=(XX+YY)/2 for all intervals imaged into dir, and returns their
// file names in interval order. Intervals with a single polarization-less image are copied.
// Fails with burst.ErrEmptyInput if dir holds no imager output
func Build(dir string, c *ops.Context) ([]string, error) {
	intervals, err:=scan(dir)
	if err!=nil { return nil, err }
	if len(intervals)==0 {
		return nil, fmt.Errorf("%w: no imager output in %s", burst.ErrEmptyInput, dir)
	}

	promises:=make([]ops.Promise, len(intervals))
	names:=make([]string, len(intervals))
	for i,iv:=range intervals {
		names[i]=OutputName(dir, iv.index)
		promises[i]=stokesIPromise(iv, names[i], c)
	}
	if _, err:=ops.MaterializeAll(promises, c.MaxThreads); err!=nil { return nil, err }
	c.Log.Info("built Stokes I sequence", "frames", len(names), "dir", dir)
	return names, nil
}

func stokesIPromise(iv *interval, outName string, c *ops.Context) ops.Promise {
	return func() (*fits.Image, error) {
		var res *fits.Image
		switch {
		case iv.xx!="" && iv.yy!="":
			xx, err:=fits.NewImageFromFile(iv.xx, iv.index, c.Log)
			if err!=nil { return nil, err }
			yy, err:=fits.NewImageFromFile(iv.yy, iv.index, c.Log)
			if err!=nil { return nil, err }
			if res, err=StokesI(xx, yy); err!=nil { return nil, err }
		case iv.single!="":
			img, err:=fits.NewImageFromFile(iv.single, iv.index, c.Log)
			if err!=nil { return nil, err }
			res=fits.NewImageFromImage(img, img.Data)
		default:
			return nil, fmt.Errorf("%w: interval %d has only one of XX and YY", ErrMissingPolarization, iv.index)
		}
		res.Header.History=append(res.Header.History, "Stokes I")
		if err:=res.WriteFile(outName); err!=nil { return nil, err }
		return res, nil
	}
}

// Combines linear polarization images into total intensity I=(XX+YY)/2.
// The result carries the header of xx
func StokesI(xx, yy *fits.Image) (*fits.Image, error) {
	if !fits.SameSize(xx, yy) {
		return nil, fmt.Errorf("%w: XX is %s, YY is %s", burst.ErrShapeMismatch, xx.DimensionsToString(), yy.DimensionsToString())
	}
	data:=make([]float32, len(xx.Data))
	for i:=range data {
		data[i]=0.5*(xx.Data[i]+yy.Data[i])
	}
	res:=fits.NewImageFromImage(xx, data)
	res.Header.Strings["POL"]="I"
	return res, nil
}
