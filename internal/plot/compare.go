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

// Package plot renders comparison panels and per-frame timelines.
package plot

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/draw"

	"github.com/mlnoga/burstlight/internal/filter"
	"github.com/mlnoga/burstlight/internal/fits"
	"github.com/mlnoga/burstlight/internal/flares"
	"github.com/mlnoga/burstlight/internal/helio"
)

const (
	marginLeft   = 80
	marginRight  = 20
	marginTop    = 40
	marginBottom = 60
	targetSize   = 640 // longest image side on the canvas
	numTicks     = 5
)

// Comparison of a radio burst with a flare centroid on top of the radio frame
type Panel struct {
	Frame       *fits.Image
	WCS         *fits.WCS  // optional
	Sun         *helio.Sun // optional, needed for helioprojective tick labels and flare placement
	BurstX      float64    // burst position in 0-based pixels
	BurstY      float64
	StixTx      float64 // flare centroid in helioprojective arcsec
	StixTy      float64
	Comparison  flares.Comparison
	MWATime     string
	StixTime    string
	SmoothSigma float64 // display smoothing in pixels
	Despike     bool    // 3x3 median filter before smoothing
	LowPercentile  float64 // display range, 0 for the default stretch
	HighPercentile float64
}

// Pixel position of the flare centroid. Uses the celestial mapping if available, otherwise
// a linear scale around the frame centre
func (p *Panel) StixPixel() (x, y float64) {
	if p.WCS!=nil && p.Sun!=nil {
		ra, dec:=p.Sun.FromHelioprojective(p.StixTx, p.StixTy)
		if x, y, err:=p.WCS.WorldToPixel(ra, dec); err==nil { return x, y }
	}
	scale:=helio.ArcsecPerPixel(p.WCS)
	return float64(p.Frame.Width())/2+p.StixTx/scale, float64(p.Frame.Height())/2+p.StixTy/scale
}

// Renders the panel
func (p *Panel) Render() image.Image {
	w, h:=p.Frame.Width(), p.Frame.Height()
	s:=float64(targetSize)/float64(max(w, h))
	if s<1 { s=1 }
	iw, ih:=int(math.Round(float64(w)*s)), int(math.Round(float64(h)*s))

	data:=p.Frame.Data
	if p.Despike { data=filter.Median3x3(data, w) }
	display:=fits.NewImageFromImage(p.Frame, filter.Gauss(data, w, p.SmoothSigma))
	lo, hi:=fits.StretchRange(display.Data)
	if p.LowPercentile>0 && p.HighPercentile>p.LowPercentile {
		lo, hi=fits.StretchRangePercentiles(display.Data, p.LowPercentile, p.HighPercentile)
	}
	src:=display.ColorImage(lo, hi)
	scaled:=image.NewRGBA(image.Rect(0, 0, iw, ih))
	draw.NearestNeighbor.Scale(scaled, scaled.Bounds(), src, src.Bounds(), draw.Src, nil)

	dc:=gg.NewContext(marginLeft+iw+marginRight, marginTop+ih+marginBottom)
	dc.SetColor(color.White)
	dc.Clear()
	dc.DrawImage(scaled, marginLeft, marginTop)

	// image pixel to canvas, row 0 at the bottom
	toCanvas:=func(x, y float64) (float64, float64) {
		return marginLeft+(x+0.5)*s, marginTop+float64(ih)-(y+0.5)*s
	}

	bx, by:=toCanvas(p.BurstX, p.BurstY)
	dc.SetLineWidth(2)
	dc.SetRGB(0, 0, 0)
	cross(dc, bx, by, 8)
	sx, sy:=toCanvas(p.StixPixel())
	dc.SetRGB(1, 0, 0)
	plus(dc, sx, sy, 10)

	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored(p.title(), float64(marginLeft+iw/2), marginTop/2, 0.5, 0.5)
	p.drawTicks(dc, toCanvas, iw, ih)
	p.drawLegend(dc, marginLeft, marginTop)
	p.drawSummary(dc, float64(marginLeft+iw), float64(marginTop+ih))
	return dc.Image()
}

// Renders the panel and writes it as PNG
func (p *Panel) WritePNG(fileName string) error {
	if err:=gg.SavePNG(fileName, p.Render()); err!=nil { return fmt.Errorf("writing %s: %w", fileName, err) }
	return nil
}

func (p *Panel) title() string {
	freq:="frequency n/a"
	if p.WCS!=nil && p.WCS.FreqHz>0 { freq=fmt.Sprintf("%.1f MHz", p.WCS.FreqHz/1e6) }
	return fmt.Sprintf("MWA %s | STIX %s | %s", p.MWATime, p.StixTime, freq)
}

func cross(dc *gg.Context, x, y, r float64) {
	dc.DrawLine(x-r, y-r, x+r, y+r)
	dc.DrawLine(x-r, y+r, x+r, y-r)
	dc.Stroke()
}

func plus(dc *gg.Context, x, y, r float64) {
	dc.DrawLine(x-r, y, x+r, y)
	dc.DrawLine(x, y-r, x, y+r)
	dc.Stroke()
}

// Helioprojective tick labels sampled along the middle row and column
func (p *Panel) drawTicks(dc *gg.Context, toCanvas func(x, y float64) (float64, float64), iw, ih int) {
	w, h:=float64(p.Frame.Width()), float64(p.Frame.Height())
	dc.SetRGB(0, 0, 0)
	dc.DrawStringAnchored("helioprojective longitude (solar-x) [arcsec]", float64(marginLeft+iw/2), float64(marginTop+ih+45), 0.5, 0.5)
	dc.Push()
	dc.RotateAbout(-math.Pi/2, 15, float64(marginTop+ih/2))
	dc.DrawStringAnchored("helioprojective latitude (solar-y) [arcsec]", 15, float64(marginTop+ih/2), 0.5, 0.5)
	dc.Pop()
	if p.WCS==nil || p.Sun==nil { return }

	for i:=0; i<numTicks; i++ {
		f:=(float64(i)+0.5)/numTicks
		if ra, dec, err:=p.WCS.PixelToWorld(f*w, h/2); err==nil {
			tx, _:=p.Sun.ToHelioprojective(ra, dec)
			cx, _:=toCanvas(f*w, 0)
			dc.DrawLine(cx, float64(marginTop+ih), cx, float64(marginTop+ih+5))
			dc.Stroke()
			dc.DrawStringAnchored(fmt.Sprintf("%.0f\"", tx), cx, float64(marginTop+ih+18), 0.5, 0.5)
		}
		if ra, dec, err:=p.WCS.PixelToWorld(w/2, f*h); err==nil {
			_, ty:=p.Sun.ToHelioprojective(ra, dec)
			_, cy:=toCanvas(0, f*h)
			dc.DrawLine(marginLeft-5, cy, marginLeft, cy)
			dc.Stroke()
			dc.DrawStringAnchored(fmt.Sprintf("%.0f\"", ty), marginLeft-8, cy, 1, 0.5)
		}
	}
}

// Marker legend in the upper left corner of the image
func (p *Panel) drawLegend(dc *gg.Context, x, y float64) {
	dc.SetRGBA(1, 1, 1, 0.8)
	dc.DrawRectangle(x+6, y+6, 120, 44)
	dc.Fill()
	dc.SetLineWidth(2)
	dc.SetRGB(0, 0, 0)
	cross(dc, x+18, y+18, 5)
	dc.DrawString("radio burst", x+30, y+22)
	dc.SetRGB(1, 0, 0)
	plus(dc, x+18, y+38, 6)
	dc.SetRGB(0, 0, 0)
	dc.DrawString("hxr flare", x+30, y+42)
}

// Key numbers in the lower right corner of the image
func (p *Panel) drawSummary(dc *gg.Context, right, bottom float64) {
	c:=p.Comparison
	lines:=[]string{
		fmt.Sprintf("mwa: tx=%.1f\", ty=%.1f\"", c.MWATx, c.MWATy),
		fmt.Sprintf("stix: tx=%.1f\", ty=%.1f\"", c.StixTx, c.StixTy),
		fmt.Sprintf("sep=%.1f\" (sigma_tot=%.1f\") -> %s", c.Separation, c.SigmaTot, c.Verdict()),
	}
	width:=0.0
	for _,l:=range lines {
		if lw, _:=dc.MeasureString(l); lw>width { width=lw }
	}
	lh:=dc.FontHeight()*1.4
	bw, bh:=width+12, lh*float64(len(lines))+8
	dc.SetRGBA(0, 0, 0, 0.6)
	dc.DrawRectangle(right-bw-6, bottom-bh-6, bw, bh)
	dc.Fill()
	dc.SetRGB(1, 1, 1)
	for i,l:=range lines {
		dc.DrawString(l, right-bw, bottom-bh-2+lh*float64(i+1))
	}
}
