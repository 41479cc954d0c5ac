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
	"bufio"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"

	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/tiff"

	"github.com/mlnoga/burstlight/internal/stats"
)

// Display range from the 1st to the 99.5th percentile, falling back to the 2nd to 98th
// if that range is empty or not finite. A flat image yields [v, v+1]
func StretchRange(data []float32) (lo, hi float32) {
	return StretchRangePercentiles(data, 1, 99.5)
}

// Display range from the given low and high percentiles, falling back to the 2nd and 98th
// percentiles and finally to [lo, lo+1] if the range is empty or not finite
func StretchRangePercentiles(data []float32, pLow, pHigh float64) (lo, hi float32) {
	lo, hi=stats.Percentile(data, pLow), stats.Percentile(data, pHigh)
	if !validRange(lo, hi) {
		lo, hi=stats.Percentile(data, 2), stats.Percentile(data, 98)
	}
	if !validRange(lo, hi) {
		if math.IsNaN(float64(lo)) || math.IsInf(float64(lo), 0) { lo=0 }
		hi=lo+1
	}
	return lo, hi
}

func validRange(lo, hi float32) bool {
	return !math.IsNaN(float64(lo)) && !math.IsNaN(float64(hi)) &&
	       !math.IsInf(float64(lo), 0) && !math.IsInf(float64(hi), 0) && hi>lo
}

// Normalizes value to [0,1] given min and max, mapping NaNs to 0
func normalize(v, min, scale float32) float32 {
	v=(v-min)*scale
	if math.IsNaN(float64(v)) || v<0 { return 0 }
	if v>1 { return 1 }
	return v
}

// Anchor colours of a perceptually uniform blue-green-yellow ramp
var rampHex=[]string{"#440154", "#3b528b", "#21918c", "#5ec962", "#fde725"}

// 256-entry colour map, interpolating the anchors in HCL space
var ColorMap=buildColorMap(rampHex, 256)

func buildColorMap(hexes []string, n int) []color.RGBA {
	anchors:=make([]colorful.Color, len(hexes))
	for i,h:=range hexes {
		c, err:=colorful.Hex(h)
		if err!=nil { panic(err) }
		anchors[i]=c
	}
	res:=make([]color.RGBA, n)
	for i:=range res {
		pos:=float64(i)/float64(n-1)*float64(len(anchors)-1)
		seg:=int(pos)
		if seg>=len(anchors)-1 { seg=len(anchors)-2 }
		c:=anchors[seg].BlendHcl(anchors[seg+1], pos-float64(seg)).Clamped()
		r, g, b:=c.RGB255()
		res[i]=color.RGBA{r, g, b, 255}
	}
	return res
}

// Renders the image with the given display range into the colour map. Row 0 is at the bottom
func (f *Image) ColorImage(min, max float32) *image.RGBA {
	width, height:=f.Width(), f.Height()
	img:=image.NewRGBA(image.Rect(0, 0, width, height))
	scale:=1/(max-min)
	for y:=0; y<height; y++ {
		yoffset:=y*width
		for x:=0; x<width; x++ {
			v:=normalize(f.Data[yoffset+x], min, scale)
			img.SetRGBA(x, height-1-y, ColorMap[int(v*float32(len(ColorMap)-1)+0.5)])
		}
	}
	return img
}

// Write the image to a colour mapped PNG file, stretched to the percentile display range
func (f *Image) WriteColorPNGToFile(fileName string) error {
	return writeToFile(fileName, func(w io.Writer) error {
		min, max:=StretchRange(f.Data)
		return png.Encode(w, f.ColorImage(min, max))
	})
}

// Write a grayscale FITS image to JPG, using the given min, max and gamma. Row 0 is at the bottom
func (f *Image) WriteMonoJPG(writer io.Writer, min, max, gamma float32, quality int) error {
	width, height:=f.Width(), f.Height()
	img:=image.NewGray(image.Rect(0, 0, width, height))
	scale:=1/(max-min)
	gammaInv:=float64(1/gamma)
	for y:=0; y<height; y++ {
		yoffset:=y*width
		for x:=0; x<width; x++ {
			gray:=normalize(f.Data[yoffset+x], min, scale)
			if gammaInv!=1.0 {
				gray=float32(math.Pow(float64(gray), gammaInv))
			}
			img.SetGray(x, height-1-y, color.Gray{uint8(gray*255)})
		}
	}
	return jpeg.Encode(writer, img, &jpeg.Options{Quality: quality})
}

// Write a grayscale FITS image to JPG, stretched to the percentile display range
func (f *Image) WriteMonoJPGToFile(fileName string, gamma float32, quality int) error {
	return writeToFile(fileName, func(w io.Writer) error {
		min, max:=StretchRange(f.Data)
		return f.WriteMonoJPG(w, min, max, gamma, quality)
	})
}

// Write a grayscale FITS image to 16-bit TIFF, using the given min and max. Row 0 is at the bottom
func (f *Image) WriteMonoTIFF16(writer io.Writer, min, max float32) error {
	width, height:=f.Width(), f.Height()
	img:=image.NewGray16(image.Rect(0, 0, width, height))
	scale:=1/(max-min)
	for y:=0; y<height; y++ {
		yoffset:=y*width
		for x:=0; x<width; x++ {
			gray:=normalize(f.Data[yoffset+x], min, scale)
			img.SetGray16(x, height-1-y, color.Gray16{uint16(gray*65535)})
		}
	}
	return tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// Write a grayscale FITS image to 16-bit TIFF, stretched to the percentile display range
func (f *Image) WriteMonoTIFF16ToFile(fileName string) error {
	return writeToFile(fileName, func(w io.Writer) error {
		min, max:=StretchRange(f.Data)
		return f.WriteMonoTIFF16(w, min, max)
	})
}

func writeToFile(fileName string, write func(w io.Writer) error) error {
	file, err:=os.Create(fileName)
	if err!=nil { return err }
	defer file.Close()

	writer:=bufio.NewWriter(file)
	if err:=write(writer); err!=nil { return err }
	return writer.Flush()
}
