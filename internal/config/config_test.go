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

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlnoga/burstlight/internal/burst"
)

func TestDefaultsValidate(t *testing.T) {
	chdir(t, t.TempDir())
	v, err:=New("")
	require.NoError(t, err)
	s, err:=Load(v)
	require.NoError(t, err)

	assert.Equal(t, burst.DefaultParams().ZThresh, s.Localize.ZThresh)
	assert.Equal(t, 4, s.Srclist.MaxSources)
	assert.Equal(t, 500.0, s.Srclist.FluxNorm)
	assert.Equal(t, 154e6, s.Srclist.RefFreqHz)
	assert.Equal(t, 12*time.Hour, s.Flares.CalibratorWindow)
	assert.Equal(t, "wsclean", s.Selfcal.Imager)
	assert.Equal(t, 512, s.Selfcal.Imaging.Size)
	assert.Equal(t, ":8080", s.Server.Addr)
	assert.Equal(t, "asvo.mwatelescope.org", s.Archive.Host)
	assert.Equal(t, 99.5, s.Display.HighPercentile)
}

func TestConfigFileAndEnvironment(t *testing.T) {
	dir:=t.TempDir()
	name:=filepath.Join(dir, "custom.yaml")
	yaml:=`
localize:
  zthresh: 7.5
  minpixels: 3
srclist:
  maxsources: 2
flares:
  calibratorwindow: 6h
server:
  addr: ":9000"
`
	require.NoError(t, os.WriteFile(name, []byte(yaml), 0o644))
	t.Setenv("BURSTLIGHT_SRCLIST_FLUXNORM", "250")
	t.Setenv("MWA_ASVO_API_KEY", "secret")

	v, err:=New(name)
	require.NoError(t, err)
	s, err:=Load(v)
	require.NoError(t, err)

	assert.Equal(t, 7.5, s.Localize.ZThresh)
	assert.Equal(t, 3, s.Localize.MinPixels)
	assert.Equal(t, burst.DefaultParams().PeakHalfWidth, s.Localize.PeakHalfWidth)
	assert.Equal(t, 2, s.Srclist.MaxSources)
	assert.Equal(t, 250.0, s.Srclist.FluxNorm)
	assert.Equal(t, 6*time.Hour, s.Flares.CalibratorWindow)
	assert.Equal(t, ":9000", s.Server.Addr)
	assert.Equal(t, "secret", s.Archive.APIKey)
}

func TestMissingExplicitFile(t *testing.T) {
	_, err:=New(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid:=func() *Settings {
		v, err:=New("")
		require.NoError(t, err)
		s:=&Settings{}
		require.NoError(t, v.Unmarshal(s))
		return s
	}
	chdir(t, t.TempDir())

	tests:=[]struct {
		name   string
		mutate func(s *Settings)
	}{
		{"negative smoothing", func(s *Settings) { s.Localize.SmoothSigma=-1 }},
		{"negative high-pass", func(s *Settings) { s.Localize.BgSigma=-0.5 }},
		{"zero min pixels", func(s *Settings) { s.Localize.MinPixels=0 }},
		{"zero half width", func(s *Settings) { s.Localize.PeakHalfWidth=0 }},
		{"zero max sources", func(s *Settings) { s.Srclist.MaxSources=0 }},
		{"zero flux norm", func(s *Settings) { s.Srclist.FluxNorm=0 }},
		{"low percentile zero", func(s *Settings) { s.Display.LowPercentile=0 }},
		{"high percentile 100", func(s *Settings) { s.Display.HighPercentile=100 }},
		{"percentiles swapped", func(s *Settings) { s.Display.LowPercentile, s.Display.HighPercentile=90, 10 }},
		{"negative threads", func(s *Settings) { s.Threads=-2 }},
	}
	for _, tt:=range tests {
		t.Run(tt.name, func(t *testing.T) {
			s:=valid()
			require.NoError(t, s.Validate())
			tt.mutate(s)
			err:=s.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidSettings))
		})
	}
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err:=os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _=os.Chdir(old) })
}
