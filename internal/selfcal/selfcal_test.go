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
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlnoga/burstlight/internal/burst"
	"github.com/mlnoga/burstlight/internal/fits"
	"github.com/mlnoga/burstlight/internal/ops"
	"github.com/mlnoga/burstlight/internal/srclist"
)

type call struct {
	dir  string
	env  []string
	name string
	args []string
}

// Executor which records calls and fakes the outputs of the imager and calibrator
type fakeExecutor struct {
	mu       sync.Mutex
	calls    []call
	size     int
	frames   int
	burst    bool
}

func (f *fakeExecutor) Run(ctx context.Context, dir string, env []string, name string, args ...string) error {
	f.mu.Lock()
	f.calls=append(f.calls, call{dir, env, name, args})
	f.mu.Unlock()
	switch {
	case name=="wsclean":
		return f.image(args[1])
	case len(args)>0 && args[0]=="di-calibrate":
		return os.WriteFile(argAfter(args, "-o"), []byte("solutions"), 0o644)
	case len(args)>0 && args[0]=="solutions-apply":
		return os.MkdirAll(argAfter(args, "-o"), 0o755)
	}
	return fmt.Errorf("unexpected tool %s", name)
}

func argAfter(args []string, flag string) string {
	for i:=0; i+1<len(args); i++ {
		if args[i]==flag { return args[i+1] }
	}
	return ""
}

// Writes XX and YY images of a noisy disk, with a bright bump in frame 2 if burst is set
func (f *fakeExecutor) image(prefix string) error {
	rng:=rand.New(rand.NewSource(7))
	c:=float64(f.size)/2
	for t:=0; t<f.frames; t++ {
		data:=make([]float32, f.size*f.size)
		for y:=0; y<f.size; y++ {
			for x:=0; x<f.size; x++ {
				v:=rng.NormFloat64()
				if math.Hypot(float64(x)-c, float64(y)-c)<=16 { v+=100 }
				if f.burst && t==2 {
					d2:=(float64(x)-50)*(float64(x)-50)+(float64(y)-45)*(float64(y)-45)
					v+=30*math.Exp(-0.5*d2/4)
				}
				data[y*f.size+x]=float32(v)
			}
		}
		for _,pol:=range []string{"XX", "YY"} {
			img:=fits.NewImageFromSize(f.size, f.size, data)
			addSkyCards(&img.Header, f.size)
			if err:=img.WriteFile(fmt.Sprintf("%s-t%04d-%s-image.fits", prefix, t, pol)); err!=nil { return err }
		}
	}
	return nil
}

// Slant orthographic WCS centred on the image at RA 350, Dec -5 with 5 arcsec pixels
func addSkyCards(h *fits.Header, size int) {
	h.Strings["CTYPE1"]="RA---SIN"
	h.Strings["CTYPE2"]="DEC--SIN"
	h.Floats["CRPIX1"]=float64(size/2+1)
	h.Floats["CRPIX2"]=float64(size/2+1)
	h.Floats["CRVAL1"]=350
	h.Floats["CRVAL2"]=-5
	h.Floats["CDELT1"]=-5.0/3600
	h.Floats["CDELT2"]=5.0/3600
}

func (f *fakeExecutor) tools() []string {
	res:=[]string{}
	for _,c:=range f.calls {
		n:=c.name
		if n=="hyperdrive" { n+=" "+c.args[0] }
		res=append(res, n)
	}
	return res
}

func newLoop(t *testing.T, exec *fakeExecutor) *Loop {
	t.Helper()
	c:=ops.NewContext(slog.New(slog.NewTextHandler(io.Discard, nil)), 2)
	opts:=DefaultImagingOptions()
	opts.Intervals=exec.frames
	return &Loop{
		Imager:     &Imager{Exec:exec, Path:"wsclean", Options:opts},
		Calibrator: &Calibrator{Exec:exec, Path:"hyperdrive"},
		Params:     burst.DefaultParams(),
		Emit:       srclist.DefaultOptions(),
		WorkDir:    t.TempDir(),
		Ctx:        c,
	}
}

func TestLoopRunsIterations(t *testing.T) {
	exec:=&fakeExecutor{size:96, frames:5, burst:true}
	l:=newLoop(t, exec)
	ms:=filepath.Join(l.WorkDir, "1234567890_cal.ms")
	require.NoError(t, os.MkdirAll(ms, 0o755))

	iters, err:=l.Run(context.Background(), ms, "1234567890.metafits", 2)
	require.NoError(t, err)
	require.Len(t, iters, 2)

	assert.Equal(t, []string{
		"wsclean", "hyperdrive di-calibrate", "hyperdrive solutions-apply",
		"wsclean", "hyperdrive di-calibrate", "hyperdrive solutions-apply",
	}, exec.tools())

	first, second:=iters[0], iters[1]
	assert.Equal(t, l.IterationDir(1), first.Dir)
	assert.Equal(t, burst.ModeBurst, first.Best.Mode)
	assert.Equal(t, 2, first.Best.Frame)
	assert.InDelta(t, 50, first.Best.X, 1)
	assert.InDelta(t, 45, first.Best.Y, 1)
	assert.FileExists(t, first.SkyModel)
	assert.Equal(t, filepath.Join(first.Dir, "selfcal_iter01_sols.fits"), first.Solutions)
	assert.Equal(t, filepath.Join(l.WorkDir, "1234567890_cal_selfcal1.ms"), first.Output)
	assert.Equal(t, first.Output, second.Input)
	assert.Equal(t, filepath.Join(l.WorkDir, "1234567890_cal_selfcal1_selfcal2.ms"), second.Output)

	// imager gets the thread limit, the calibrator reads the sky model of its iteration
	assert.Equal(t, []string{"OPENBLAS_NUM_THREADS=1"}, exec.calls[0].env)
	assert.Equal(t, first.SkyModel, argAfter(exec.calls[1].args, "-s"))
	assert.Contains(t, exec.calls[1].args, "--min-uv-lambda")

	f, err:=os.Open(first.SkyModel)
	require.NoError(t, err)
	defer f.Close()
	sources, err:=srclist.Read(f)
	require.NoError(t, err)
	require.Len(t, sources, 1)
	assert.InDelta(t, 500, sources[0].FluxJy, 1e-9)
	assert.InDelta(t, first.Best.RA, sources[0].RA, 1e-5)
	assert.InDelta(t, first.Best.Dec, sources[0].Dec, 1e-5)
	assert.InDelta(t, -5, sources[0].Dec, 0.1)
}

func TestLoopStopsWithoutSources(t *testing.T) {
	exec:=&fakeExecutor{size:96, frames:4}
	l:=newLoop(t, exec)

	iters, err:=l.Run(context.Background(), filepath.Join(l.WorkDir, "obs.ms"), "obs.metafits", 3)
	require.ErrorIs(t, err, srclist.ErrNoQualifyingSources)
	assert.Empty(t, iters)
	assert.Equal(t, []string{"wsclean"}, exec.tools())
}

func TestLoopRejectsZeroIterations(t *testing.T) {
	l:=newLoop(t, &fakeExecutor{size:32, frames:1})
	_, err:=l.Run(context.Background(), "a.ms", "a.metafits", 0)
	assert.ErrorIs(t, err, ErrNoIterations)
}

func TestImagerArgs(t *testing.T) {
	im:=&Imager{Options:ImagingOptions{DataColumn:"CORRECTED_DATA", Intervals:12, Size:1024, Scale:"30asec", Niter:100, AutoThreshold:3.5}}
	got:=strings.Join(im.Args("x.ms", "out"), " ")
	assert.Equal(t, "-name out/wsclean -data-column CORRECTED_DATA -intervals-out 12 -size 1024 1024 -scale 30asec "+
		"-pol xx,yy -join-polarizations -niter 100 -auto-mask 3 -auto-threshold 3.5 -multiscale -mgain 0.8 "+
		"-weight briggs 0 x.ms", got)
}

func TestNextMS(t *testing.T) {
	assert.Equal(t, "/data/123_cal_selfcal1.ms", NextMS("/data/123_cal.ms/", 1))
	assert.Equal(t, "vis_selfcal3", NextMS("vis", 3))
}

func TestLineLogger(t *testing.T) {
	var buf bytes.Buffer
	l:=&lineLogger{log:slog.New(slog.NewTextHandler(&buf, nil)), level:slog.LevelInfo}
	l.Write([]byte("first li"))
	l.Write([]byte("ne\nsecond\n\nthi"))
	assert.Equal(t, 2, strings.Count(buf.String(), "\n"))
	l.flush()
	out:=buf.String()
	assert.Contains(t, out, `msg="first line"`)
	assert.Contains(t, out, "msg=second")
	assert.Contains(t, out, "msg=thi")
}

func TestExecRunnerReportsFailure(t *testing.T) {
	r:=NewExecRunner(slog.New(slog.NewTextHandler(io.Discard, nil)))
	err:=r.Run(context.Background(), "", nil, "burstlight-no-such-tool")
	assert.ErrorIs(t, err, ErrToolFailed)
}
