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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/mlnoga/burstlight/internal/burst"
	"github.com/mlnoga/burstlight/internal/fits"
)

func testContext() *Context {
	c:=NewContext(slog.New(slog.NewTextHandler(io.Discard, nil)), 2)
	return c
}

func writeFrame(t *testing.T, fileName string, width, height int, value float32, date string) {
	t.Helper()
	data:=make([]float32, width*height)
	for i:=range data { data[i]=value+float32(i%7) }
	img:=fits.NewImageFromSize(width, height, data)
	img.Header.Strings["CTYPE1"]="RA---SIN"
	img.Header.Strings["CTYPE2"]="DEC--SIN"
	img.Header.Floats["CRPIX1"]=float64(width/2+1)
	img.Header.Floats["CRPIX2"]=float64(height/2+1)
	img.Header.Floats["CRVAL1"]=350
	img.Header.Floats["CRVAL2"]=-5
	img.Header.Floats["CDELT1"]=-1.0/720
	img.Header.Floats["CDELT2"]=1.0/720
	if date!="" { img.Header.Strings["DATE-OBS"]=date }
	if err:=img.WriteFile(fileName); err!=nil { t.Fatal(err) }
}

func TestLoadCube(t *testing.T) {
	dir:=t.TempDir()
	for i:=3; i>=0; i-- {
		writeFrame(t, filepath.Join(dir, fmt.Sprintf("wsclean-t%04d-image.fits", i)), 8, 6, float32(10*i),
			fmt.Sprintf("2024-03-10T02:30:%02d.0", i))
	}
	writeFrame(t, filepath.Join(dir, "other.fits"), 8, 6, 0, "")

	cube, err:=LoadCube(context.Background(), testContext(), filepath.Join(dir, DefaultPattern))
	if err!=nil { t.Fatal(err) }
	if cube.Len()!=4 || cube.Width!=8 || cube.Height!=6 { t.Fatalf("got %d frames of %dx%d", cube.Len(), cube.Width, cube.Height) }
	for i:=0; i<4; i++ {
		if cube.Frames[i][0]!=float32(10*i) { t.Errorf("frame %d out of order: %f", i, cube.Frames[i][0]) }
		if want:=fmt.Sprintf("2024-03-10T02:30:%02d.0", i); cube.Times[i]!=want { t.Errorf("time %d: %q", i, cube.Times[i]) }
		if cube.ObsTimes[i].Second()!=i { t.Errorf("parsed time %d: %v", i, cube.ObsTimes[i]) }
	}
	if cube.WCS==nil || cube.Sky==nil { t.Fatalf("no sky mapping") }
	ra, dec, err:=cube.Sky.PixelToWorld(4, 3)
	if err!=nil || math.Abs(ra-350)>1e-9 || math.Abs(dec+5)>1e-9 { t.Errorf("reference pixel maps to %f %f %v", ra, dec, err) }
}

func TestLoadCubeEmptyPattern(t *testing.T) {
	_, err:=LoadCube(context.Background(), testContext(), filepath.Join(t.TempDir(), DefaultPattern))
	if !errors.Is(err, burst.ErrEmptyInput) { t.Errorf("got %v", err) }
}

func TestLoadCubeShapeMismatch(t *testing.T) {
	dir:=t.TempDir()
	writeFrame(t, filepath.Join(dir, "wsclean-t0000-image.fits"), 8, 6, 0, "")
	writeFrame(t, filepath.Join(dir, "wsclean-t0001-image.fits"), 6, 8, 0, "")
	_, err:=LoadCube(context.Background(), testContext(), filepath.Join(dir, DefaultPattern))
	if !errors.Is(err, burst.ErrShapeMismatch) { t.Errorf("got %v", err) }
}

func TestLoadCubeBudget(t *testing.T) {
	dir:=t.TempDir()
	writeFrame(t, filepath.Join(dir, "wsclean-t0000-image.fits"), 8, 6, 0, "")
	c:=testContext()
	c.CubeMemoryMB=1
	if err:=c.checkCubeBudget(10, 1024, 1024); !errors.Is(err, ErrCubeTooLarge) { t.Errorf("got %v", err) }
	if _, err:=LoadCube(context.Background(), c, filepath.Join(dir, DefaultPattern)); err!=nil { t.Errorf("small cube rejected: %v", err) }
}

func TestMaterializeAll(t *testing.T) {
	errA, errB:=errors.New("a"), errors.New("b")
	ins:=[]Promise{
		func() (*fits.Image, error) { return fits.NewImageFromSize(1, 1, []float32{0}), nil },
		func() (*fits.Image, error) { return nil, errA },
		func() (*fits.Image, error) { return fits.NewImageFromSize(1, 1, []float32{2}), nil },
		func() (*fits.Image, error) { return nil, errB },
	}
	outs, err:=MaterializeAll(ins, 3)
	if len(outs)!=2 || outs[0].Data[0]!=0 || outs[1].Data[0]!=2 { t.Errorf("got %v", outs) }
	if !errors.Is(err, errA) || !errors.Is(err, errB) { t.Errorf("got %v", err) }

	outs, err=MaterializeAll(nil, 3)
	if outs!=nil || err!=nil { t.Errorf("empty: %v %v", outs, err) }
}

func TestIsPathAllowed(t *testing.T) {
	tests:=[]struct{ path string; want bool }{
		{"frames/wsclean-*.fits", true}, {"/etc/passwd", false}, {"../x.fits", false}, {"a/../../b", false},
	}
	for _,tt:=range tests {
		if got:=IsPathAllowed(tt.path); got!=tt.want { t.Errorf("%s: got %v", tt.path, got) }
	}
}

func TestSaveBySuffix(t *testing.T) {
	dir:=t.TempDir()
	img:=fits.NewImageFromSize(4, 4, nil)
	for i:=range img.Data { img.Data[i]=float32(i) }
	img.ID=7
	c:=testContext()
	for _,name:=range []string{"a.fits", "b.jpg", "c.png", "d.tif", "e_%d.fits"} {
		if err:=Save(img, filepath.Join(dir, name), c); err!=nil { t.Errorf("%s: %v", name, err) }
	}
	if _, err:=os.Stat(filepath.Join(dir, "e_7.fits")); err!=nil { t.Errorf("pattern not expanded: %v", err) }
	if err:=Save(img, filepath.Join(dir, "f.bmp"), c); err==nil { t.Errorf("unknown suffix accepted") }
}

func TestWriteDiagnostics(t *testing.T) {
	size:=24
	frames:=make([][]float32, 3)
	for f:=range frames {
		frames[f]=make([]float32, size*size)
		for i:=range frames[f] { frames[f][i]=float32((i*31+f*17)%13) }
	}
	bc, err:=burst.NewCube(size, size, frames, nil, nil)
	if err!=nil { t.Fatal(err) }
	p:=burst.DefaultParams()
	p.KeepMaps, p.ExcludeLimbPx = true, 1
	c:=testContext()
	res, err:=burst.Localize(context.Background(), bc, p, c.Log)
	if err!=nil { t.Fatal(err) }

	dir:=filepath.Join(t.TempDir(), "diag")
	if err:=WriteDiagnostics(dir, &Cube{Cube:bc, Header:fits.NewHeader()}, res, 1, c); err!=nil { t.Fatal(err) }
	for _,name:=range []string{"background.fits", "background.png", "mask.tif", fmt.Sprintf("frame_%02d_z.fits", res.Best.Frame)} {
		if _, err:=os.Stat(filepath.Join(dir, name)); err!=nil { t.Errorf("missing %s", name) }
	}
}
