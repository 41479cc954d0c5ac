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

package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/mlnoga/burstlight/internal/burst"
	"github.com/mlnoga/burstlight/internal/fits"
)

// Writes diagnostic images for a localization run into dir: background and region mask,
// and z maps of the best frame plus the maxFrames highest scoring frames. Per-frame maps
// are only available if the run kept them. Each image goes out as FITS, 16-bit TIFF and colour PNG
func WriteDiagnostics(dir string, cube *Cube, res *burst.Result, maxFrames int, c *Context) error {
	if err:=os.MkdirAll(dir, 0755); err!=nil { return err }
	m:=res.Model

	bg:=fits.NewImageFromSize(m.Width, m.Height, m.Background)
	bg.Header=diagnosticHeader(cube)
	bg.Header.Floats["THRESH"]=float64(m.Threshold)
	bg.Header.History=append(bg.Header.History, "temporal median background")
	if err:=saveAll(bg, filepath.Join(dir, "background"), c); err!=nil { return err }

	maskData:=make([]float32, len(m.Mask.Data))
	for i,in:=range m.Mask.Data {
		if in { maskData[i]=1 }
	}
	mask:=fits.NewImageFromSize(m.Width, m.Height, maskData)
	mask.Header=diagnosticHeader(cube)
	mask.Header.Bools["DEGENER"]=m.Degenerate
	mask.Header.Ints["REGIONS"]=int32(m.Regions)
	if err:=saveAll(mask, filepath.Join(dir, "mask"), c); err!=nil { return err }

	if res.Maps==nil { return nil }
	for _,i:=range framesToShow(res, maxFrames) {
		sig:=res.Maps[i]
		if sig==nil { continue }
		z:=fits.NewImageFromSize(m.Width, m.Height, sig.Z)
		z.ID=i
		z.Header=diagnosticHeader(cube)
		cand:=res.Frames[i]
		z.Header.Strings["DATE-OBS"]=cand.Time
		z.Header.Strings["MODE"]=cand.Mode.String()
		z.Header.Floats["SIGMA"]=float64(sig.Sigma)
		z.Header.Floats["PEAKZ"]=cand.PeakZ
		z.Header.Floats["CENTX"]=cand.X
		z.Header.Floats["CENTY"]=cand.Y
		z.Header.Ints["NPEAKS"]=int32(len(sig.Peaks))
		if err:=saveAll(z, filepath.Join(dir, fmt.Sprintf("frame_%02d_z", i)), c); err!=nil { return err }
	}
	c.Log.Info("wrote diagnostics", "dir", dir)
	return nil
}

// Best frame plus up to maxFrames frames by descending score, in ascending frame order
func framesToShow(res *burst.Result, maxFrames int) []int {
	order:=make([]int, len(res.Frames))
	for i:=range order { order[i]=i }
	sort.SliceStable(order, func(a, b int) bool { return res.Frames[order[a]].Score>res.Frames[order[b]].Score })
	if len(order)>maxFrames { order=order[:maxFrames] }

	seen:=map[int]bool{res.Best.Frame:true}
	show:=[]int{res.Best.Frame}
	for _,i:=range order {
		if !seen[i] { seen[i]=true; show=append(show, i) }
	}
	sort.Ints(show)
	return show
}

// Header carrying the celestial WCS cards of the cube, if any
func diagnosticHeader(cube *Cube) fits.Header {
	h:=fits.NewHeader()
	if cube==nil { return h }
	for _,key:=range []string{"CTYPE1", "CTYPE2", "CUNIT1", "CUNIT2", "RADESYS"} {
		if v, ok:=cube.Header.String(key); ok { h.Strings[key]=v }
	}
	for _,key:=range []string{"CRPIX1", "CRPIX2", "CRVAL1", "CRVAL2", "CDELT1", "CDELT2",
	                          "PC1_1", "PC1_2", "PC2_1", "PC2_2", "CD1_1", "CD1_2", "CD2_1", "CD2_2", "EQUINOX"} {
		if v, ok:=cube.Header.Float(key); ok { h.Floats[key]=v }
	}
	if cube.WCS!=nil && cube.WCS.FreqHz>0 { h.Floats["FREQ"]=cube.WCS.FreqHz }
	return h
}

func saveAll(f *fits.Image, base string, c *Context) error {
	for _,suffix:=range []string{".fits", ".tif", ".png"} {
		if err:=Save(f, base+suffix, c); err!=nil { return err }
	}
	return nil
}
