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

package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlnoga/burstlight/internal/burst"
	"github.com/mlnoga/burstlight/internal/fits"
	"github.com/mlnoga/burstlight/internal/ops"
)

func init() { gin.SetMode(gin.TestMode) }

// Writes a sequence of noisy disk images with a burst in frame 3, with a celestial WCS if withSky is set
func writeSequence(t *testing.T, dir string, withSky bool) {
	t.Helper()
	size:=96
	rng:=rand.New(rand.NewSource(3))
	for f:=0; f<6; f++ {
		data:=make([]float32, size*size)
		for y:=0; y<size; y++ {
			for x:=0; x<size; x++ {
				v:=rng.NormFloat64()
				if math.Hypot(float64(x)-48, float64(y)-48)<=16 { v+=100 }
				if f==3 { v+=30*math.Exp(-0.125*(math.Pow(float64(x)-44, 2)+math.Pow(float64(y)-50, 2))) }
				data[y*size+x]=float32(v)
			}
		}
		img:=fits.NewImageFromSize(size, size, data)
		img.Header.Strings["DATE-OBS"]=fmt.Sprintf("2024-03-10T02:30:%02d.0", f*5)
		if withSky {
			img.Header.Strings["CTYPE1"], img.Header.Strings["CTYPE2"] = "RA---SIN", "DEC--SIN"
			img.Header.Floats["CRPIX1"], img.Header.Floats["CRPIX2"] = 49, 49
			img.Header.Floats["CRVAL1"], img.Header.Floats["CRVAL2"] = 350, -5
			img.Header.Floats["CDELT1"], img.Header.Floats["CDELT2"] = -5.0/3600, 5.0/3600
		}
		require.NoError(t, img.WriteFile(filepath.Join(dir, fmt.Sprintf("wsclean-t%04d-I-image.fits", f))))
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	return newTestServerSky(t, true)
}

func newTestServerSky(t *testing.T, withSky bool) *Server {
	t.Helper()
	dir:=t.TempDir()
	writeSequence(t, dir, withSky)
	o:=DefaultOptions()
	o.DataDir=dir
	o.Version="v1.2.3"
	return NewServer(ops.NewContext(slog.New(slog.NewTextHandler(io.Discard, nil)), 2), o)
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body!="" { r=strings.NewReader(body) }
	req:=httptest.NewRequest(method, path, r)
	if body!="" { req.Header.Set("Content-Type", "application/json") }
	w:=httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestPingAndVersion(t *testing.T) {
	s:=newTestServer(t)
	w:=do(s, http.MethodGet, "/api/v1/ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"pong"}`, w.Body.String())

	w=do(s, http.MethodGet, "/api/v1/version", "")
	assert.JSONEq(t, `{"version":"v1.2.3"}`, w.Body.String())

	w=do(s, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<html")
}

func TestLocalizeRunAndSrclist(t *testing.T) {
	s:=newTestServer(t)
	w:=do(s, http.MethodPost, "/api/v1/localize", `{"pattern":"wsclean-t*-I-image.fits","params":{"zThresh":6}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var run Run
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.NotEmpty(t, run.ID)
	assert.Len(t, run.Frames, 6)
	assert.Equal(t, 6.0, run.Params.ZThresh)
	assert.Equal(t, burst.DefaultParams().MinPixels, run.Params.MinPixels)
	assert.Equal(t, 3, run.Best.Frame)
	assert.Equal(t, burst.ModeBurst, run.Best.Mode)
	assert.Equal(t, "2024-03-10T02:30:15.0", run.Best.Time)
	assert.InDelta(t, 44, run.Best.X, 1)
	assert.InDelta(t, 50, run.Best.Y, 1)

	w=do(s, http.MethodGet, "/api/v1/runs/"+run.ID, "")
	assert.Equal(t, http.StatusOK, w.Code)

	w=do(s, http.MethodGet, "/api/v1/runs", "")
	var list []runSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, 6, list[0].Frames)

	w=do(s, http.MethodPost, "/api/v1/runs/"+run.ID+"/srclist", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.HasPrefix(w.Body.String(), "calibrator:\n"))
	assert.Contains(t, w.Body.String(), "i: 500.00")
	assert.NotContains(t, w.Body.String(), "NaN")

	w=do(s, http.MethodPost, "/api/v1/runs/"+run.ID+"/srclist", `{"threshold":1e6}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w=do(s, http.MethodGet, "/metrics", "")
	assert.Contains(t, w.Body.String(), `burstlight_localize_requests_total{result="ok"} 1`)
	assert.Contains(t, w.Body.String(), "burstlight_srclists_total 1")
}

func TestSrclistNeedsSkyPositions(t *testing.T) {
	s:=newTestServerSky(t, false)
	w:=do(s, http.MethodPost, "/api/v1/localize", `{"pattern":"wsclean-t*-I-image.fits","params":{"zThresh":6}}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var run Run
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, burst.ModeBurst, run.Best.Mode)

	w=do(s, http.MethodPost, "/api/v1/runs/"+run.ID+"/srclist", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
}

func TestLocalizeErrors(t *testing.T) {
	s:=newTestServer(t)
	tests:=[]struct {
		body string
		code int
	}{
		{`{}`, http.StatusBadRequest},
		{`{"pattern":"../*.fits"}`, http.StatusForbidden},
		{`{"pattern":"/etc/*.fits"}`, http.StatusForbidden},
		{`{"pattern":"nothing-*.fits"}`, http.StatusNotFound},
		{`{"pattern":"wsclean-*.fits","params":{"minPixels":0}}`, http.StatusBadRequest},
	}
	for _,tt:=range tests {
		w:=do(s, http.MethodPost, "/api/v1/localize", tt.body)
		assert.Equal(t, tt.code, w.Code, tt.body)
	}
	w:=do(s, http.MethodGet, "/api/v1/runs/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	w=do(s, http.MethodPost, "/api/v1/runs/nope/srclist", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusRequestEntityTooLarge, statusFor(fmt.Errorf("x: %w", ops.ErrCubeTooLarge)))
	assert.Equal(t, http.StatusInternalServerError, statusFor(bytes.ErrTooLarge))
}
