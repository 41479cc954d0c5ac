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
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"
	"time"
)

var discard=slog.New(slog.NewTextHandler(io.Discard, nil))

// Builds a raw FITS header block from the given cards
func headerBlock(cards ...string) []byte {
	sb:=strings.Builder{}
	for _,c:=range cards { fmt.Fprintf(&sb, "%-80s", c) }
	fmt.Fprintf(&sb, "%-80s", "END")
	for sb.Len()%fitsBlockSize!=0 { sb.WriteByte(' ') }
	return []byte(sb.String())
}

func TestReadHeaderValues(t *testing.T) {
	raw:=headerBlock(
		"SIMPLE  =                    T / conforms",
		"BITPIX  =                   16",
		"NAXIS   =                    2",
		"NAXIS1  =                    2",
		"NAXIS2  =                    1",
		"BZERO   =                32768",
		"CRVAL3  =   1.6000000000D+08 / frequency",
		"CDELT1  =   -0.001388888888889",
		"FREQ    =                1E-05",
		"BIG     =          10000000000",
		"CTYPE1  = 'RA---SIN'           / right ascension",
		"DATE-OBS= '2024-03-10T02:30:00.5'",
		"DATE    = 2024-03-10T02:30:00",
		"DATE-END= 2024-03-10T02:31:00 / end of observation",
		"HISTORY made by hand",
		"COMMENT   a comment",
	)
	raw=append(raw, 0x80, 0x01, 0x00, 0x02)

	img:=NewImage()
	if err:=img.Read(bytes.NewReader(raw), true, discard); err!=nil { t.Fatal(err) }
	if img.Width()!=2 || img.Height()!=1 { t.Errorf("got %s", img.DimensionsToString()) }
	if img.Data[0]!=1 || img.Data[1]!=32770 { t.Errorf("data %v", img.Data) }

	floatTests:=[]struct{ key string; want float64 }{
		{"CRVAL3", 1.6e8}, {"CDELT1", -0.001388888888889}, {"FREQ", 1e-5}, {"BIG", 1e10},
	}
	for _,ft:=range floatTests {
		if v, ok:=img.Header.Float(ft.key); !ok || math.Abs(v-ft.want)>1e-12*math.Abs(ft.want) {
			t.Errorf("%s: got %g ok=%v, want %g", ft.key, v, ok, ft.want)
		}
	}
	if s, _:=img.Header.String("CTYPE1"); s!="RA---SIN" { t.Errorf("CTYPE1 %q", s) }
	if s, _:=img.Header.String("DATE"); s!="2024-03-10T02:30:00" { t.Errorf("DATE %q", s) }
	if d:=img.Header.Dates["DATE-END"]; d!="2024-03-10T02:31:00" { t.Errorf("DATE-END %q", d) }
	if len(img.Header.History)!=1 || img.Header.History[0]!="made by hand" { t.Errorf("history %v", img.Header.History) }
	if len(img.Header.Comments)!=1 || img.Header.Comments[0]!="a comment" { t.Errorf("comments %v", img.Header.Comments) }
}

func TestReadFirstPlaneOnly(t *testing.T) {
	raw:=headerBlock(
		"SIMPLE  =                    T",
		"BITPIX  =                  -32",
		"NAXIS   =                    4",
		"NAXIS1  =                    2",
		"NAXIS2  =                    2",
		"NAXIS3  =                    1",
		"NAXIS4  =                    2",
	)
	buf:=bytes.NewBuffer(raw)
	writeFloat32Array(buf, []float32{1, 2, 3, 4, 5, 6, 7, 8}, false)
	img:=NewImage()
	if err:=img.Read(buf, true, discard); err!=nil { t.Fatal(err) }
	if len(img.Data)!=4 || img.Data[3]!=4 { t.Errorf("data %v", img.Data) }
	if len(img.Naxisn)!=4 { t.Errorf("naxisn %v", img.Naxisn) }
}

func TestWriteRead(t *testing.T) {
	img:=NewImageFromSize(3, 2, []float32{1, -2.5, 3, float32(math.NaN()), 5, 6})
	img.Header.Strings["DATE-OBS"]="2024-03-10T02:30:00.0"
	img.Header.Floats["CRVAL1"]=350.25
	img.Header.Floats["CDELT2"]=1.0/720
	img.Header.Ints["WSCNITER"]=1000
	img.Header.Bools["LOCKED"]=true
	img.Header.History=append(img.Header.History, "Stokes I")

	buf:=&bytes.Buffer{}
	if err:=img.Write(buf); err!=nil { t.Fatal(err) }
	if buf.Len()%fitsBlockSize!=0 { t.Errorf("output not block aligned: %d", buf.Len()) }

	back:=NewImage()
	if err:=back.Read(buf, true, discard); err!=nil { t.Fatal(err) }
	if !SameSize(img, back) { t.Fatalf("size %s", back.DimensionsToString()) }
	for i,d:=range img.Data {
		if d!=back.Data[i] && !(math.IsNaN(float64(d)) && math.IsNaN(float64(back.Data[i]))) {
			t.Errorf("pixel %d: %f vs %f", i, d, back.Data[i])
		}
	}
	if v, _:=back.Header.Float("CRVAL1"); v!=350.25 { t.Errorf("CRVAL1 %g", v) }
	if v, _:=back.Header.Float("CDELT2"); math.Abs(v-1.0/720)>1e-15 { t.Errorf("CDELT2 %g", v) }
	if v:=back.Header.Ints["WSCNITER"]; v!=1000 { t.Errorf("WSCNITER %d", v) }
	if !back.Header.Bools["LOCKED"] { t.Errorf("LOCKED lost") }
	if s, _:=back.Header.String("DATE-OBS"); s!="2024-03-10T02:30:00.0" { t.Errorf("DATE-OBS %q", s) }
	if len(back.Header.History)!=1 || back.Header.History[0]!="Stokes I" { t.Errorf("history %v", back.Header.History) }
}

func TestObsTime(t *testing.T) {
	h:=NewHeader()
	if label, _, ok:=h.ObsTime(); label!=UnknownTime || ok { t.Errorf("empty header: %q %v", label, ok) }

	h.Floats["MJD-OBS"]=60379.5
	label, tm, ok:=h.ObsTime()
	if !ok || label!="2024-03-10T12:00:00.000" || !tm.Equal(time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("MJD: %q %v %v", label, tm, ok)
	}

	h.Strings["DATE-OBS"]="2024-03-10T02:30:00.25"
	label, tm, ok=h.ObsTime()
	if !ok || label!="2024-03-10T02:30:00.25" || tm.Nanosecond()!=250000000 || tm.Hour()!=2 {
		t.Errorf("DATE-OBS: %q %v %v", label, tm, ok)
	}
}

func sinHeader() *Header {
	h:=NewHeader()
	h.Strings["CTYPE1"]="RA---SIN"
	h.Strings["CTYPE2"]="DEC--SIN"
	h.Strings["CTYPE3"]="FREQ"
	h.Floats["CRPIX1"]=51
	h.Floats["CRPIX2"]=51
	h.Floats["CRVAL1"]=350
	h.Floats["CRVAL2"]=-5
	h.Floats["CDELT1"]=-1.0/720
	h.Floats["CDELT2"]=1.0/720
	h.Floats["CRVAL3"]=1.6e8
	return &h
}

func TestWCSReferencePixel(t *testing.T) {
	w, err:=NewWCSFromHeader(sinHeader())
	if err!=nil { t.Fatal(err) }
	ra, dec, err:=w.PixelToWorld(50, 50)
	if err!=nil || math.Abs(ra-350)>1e-9 || math.Abs(dec+5)>1e-9 { t.Errorf("got %f %f %v", ra, dec, err) }
	if w.FreqHz!=1.6e8 { t.Errorf("freq %g", w.FreqHz) }
	if math.Abs(w.ArcsecPerPixel()-5)>1e-9 { t.Errorf("scale %f", w.ArcsecPerPixel()) }

	// one pixel to the right is west, towards lower RA
	ra, dec, _=w.PixelToWorld(51, 50)
	if ra>=350 { t.Errorf("RA should decrease along x, got %f", ra) }
	ra, dec, _=w.PixelToWorld(50, 51)
	if dec<=-5 { t.Errorf("Dec should increase along y, got %f", dec) }
}

func TestWCSRoundTrip(t *testing.T) {
	for _,proj:=range []string{"SIN", "TAN", "CAR"} {
		h:=sinHeader()
		h.Strings["CTYPE1"]="RA---"+proj
		h.Strings["CTYPE2"]="DEC--"+proj
		h.Floats["PC1_2"]=0.1
		w, err:=NewWCSFromHeader(h)
		if err!=nil { t.Fatalf("%s: %v", proj, err) }
		for _,p:=range [][2]float64{{0, 0}, {12.5, 80}, {99, 3}} {
			ra, dec, err:=w.PixelToWorld(p[0], p[1])
			if err!=nil { t.Fatalf("%s: %v", proj, err) }
			x, y, err:=w.WorldToPixel(ra, dec)
			if err!=nil || math.Abs(x-p[0])>1e-6 || math.Abs(y-p[1])>1e-6 {
				t.Errorf("%s: %v -> (%f,%f) -> (%f,%f) %v", proj, p, ra, dec, x, y, err)
			}
		}
	}
}

func TestWCSErrors(t *testing.T) {
	h:=NewHeader()
	if _, err:=NewWCSFromHeader(&h); err!=ErrNoWCS { t.Errorf("got %v", err) }
	hp:=sinHeader()
	hp.Strings["CTYPE1"]="RA---AIT"
	hp.Strings["CTYPE2"]="DEC--AIT"
	if _, err:=NewWCSFromHeader(hp); err==nil { t.Errorf("AIT accepted") }

	w, _:=NewWCSFromHeader(sinHeader())
	if _, _, err:=w.PixelToWorld(1e6, 0); err!=ErrOutsideProjection { t.Errorf("got %v", err) }
}

func TestStretchRange(t *testing.T) {
	data:=make([]float32, 201)
	for i:=range data { data[i]=float32(i) }
	lo, hi:=StretchRange(data)
	if math.Abs(float64(lo)-2)>1e-4 || math.Abs(float64(hi)-199)>1e-4 { t.Errorf("got %f %f", lo, hi) }

	for i:=range data { data[i]=7 }
	lo, hi=StretchRange(data)
	if lo!=7 || hi!=8 { t.Errorf("flat: got %f %f", lo, hi) }
}

func TestColorMap(t *testing.T) {
	if len(ColorMap)!=256 { t.Fatalf("len %d", len(ColorMap)) }
	near:=func(a uint8, b int) bool { return int(a)-b<=1 && b-int(a)<=1 }
	first, last:=ColorMap[0], ColorMap[255]
	if !near(first.R, 0x44) || !near(first.G, 0x01) || !near(first.B, 0x54) { t.Errorf("first %v", first) }
	if !near(last.R, 0xfd) || !near(last.G, 0xe7) || !near(last.B, 0x25) { t.Errorf("last %v", last) }
}
