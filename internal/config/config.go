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

// Package config loads burstlight settings from defaults, an optional YAML
// file, BURSTLIGHT_ environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/mlnoga/burstlight/internal/asvo"
	"github.com/mlnoga/burstlight/internal/burst"
	"github.com/mlnoga/burstlight/internal/flares"
	"github.com/mlnoga/burstlight/internal/logging"
	"github.com/mlnoga/burstlight/internal/rest"
	"github.com/mlnoga/burstlight/internal/selfcal"
	"github.com/mlnoga/burstlight/internal/srclist"
)

const (
	EnvPrefix = "BURSTLIGHT"
	FileName  = "burstlight" // config file name without extension
)

var ErrInvalidSettings = errors.New("invalid settings")

// Preview and comparison plot rendering
type DisplaySettings struct {
	LowPercentile  float64 `mapstructure:"lowpercentile"`
	HighPercentile float64 `mapstructure:"highpercentile"`
	SmoothSigma    float64 `mapstructure:"smoothsigma"`
	Despike        bool    `mapstructure:"despike"`    // 3x3 median before smoothing
	DiagFrames     int     `mapstructure:"diagframes"` // frames written as diagnostics, 0 for none
}

// Self-calibration tools and imaging
type SelfcalSettings struct {
	Imager     string                 `mapstructure:"imager"`
	Calibrator string                 `mapstructure:"calibrator"`
	Iterations int                    `mapstructure:"iterations"`
	WorkDir    string                 `mapstructure:"workdir"`
	Imaging    selfcal.ImagingOptions `mapstructure:"imaging"`
}

// All settings, passed explicitly into every entry point
type Settings struct {
	Threads   int                   `mapstructure:"threads"` // 0 for all logical cores
	MemoryMB  int                   `mapstructure:"memorymb"` // cube budget, 0 for 70% of physical memory
	Pattern   string                `mapstructure:"pattern"`
	Localize  burst.Params          `mapstructure:"localize"`
	Srclist   srclist.Options       `mapstructure:"srclist"`
	Compare   flares.CompareOptions `mapstructure:"compare"`
	Flares    flares.OverlapOptions `mapstructure:"flares"`
	Selfcal   SelfcalSettings       `mapstructure:"selfcal"`
	Server    rest.Options          `mapstructure:"server"`
	Archive   asvo.Config           `mapstructure:"asvo"`
	Display   DisplaySettings       `mapstructure:"display"`
	Log       logging.Options       `mapstructure:"log"`
}

// Registers defaults for all keys. Environment overrides only apply to keys with defaults
func SetDefaults(v *viper.Viper) {
	v.SetDefault("threads", 0)
	v.SetDefault("memorymb", 0)
	v.SetDefault("pattern", "wsclean-*image.fits")

	p:=burst.DefaultParams()
	v.SetDefault("localize.zthresh", p.ZThresh)
	v.SetDefault("localize.minpixels", p.MinPixels)
	v.SetDefault("localize.smoothsigma", p.SmoothSigma)
	v.SetDefault("localize.bgsigma", p.BgSigma)
	v.SetDefault("localize.peakhalfwidth", p.PeakHalfWidth)
	v.SetDefault("localize.excludelimbpx", p.ExcludeLimbPx)

	e:=srclist.DefaultOptions()
	v.SetDefault("srclist.threshold", e.Threshold)
	v.SetDefault("srclist.maxsources", e.MaxSources)
	v.SetDefault("srclist.fluxnorm", e.FluxNorm)
	v.SetDefault("srclist.reffreq", e.RefFreqHz)

	c:=flares.DefaultCompareOptions()
	v.SetDefault("compare.mwaerr", c.MWAErrArcsec)
	v.SetDefault("compare.stixerr", c.StixErrArcsec)
	v.SetDefault("compare.factor", c.Factor)

	o:=flares.DefaultOverlapOptions()
	v.SetDefault("flares.latitude", o.Latitude)
	v.SetDefault("flares.longitude", o.Longitude)
	v.SetDefault("flares.minpercent", o.MinPercent)
	v.SetDefault("flares.calibratorwindow", o.CalibratorWindow)
	v.SetDefault("flares.daylightonly", o.DaylightOnly)

	im:=selfcal.DefaultImagingOptions()
	v.SetDefault("selfcal.imager", "wsclean")
	v.SetDefault("selfcal.calibrator", "hyperdrive")
	v.SetDefault("selfcal.iterations", 2)
	v.SetDefault("selfcal.workdir", ".")
	v.SetDefault("selfcal.imaging.datacolumn", im.DataColumn)
	v.SetDefault("selfcal.imaging.intervals", im.Intervals)
	v.SetDefault("selfcal.imaging.size", im.Size)
	v.SetDefault("selfcal.imaging.scale", im.Scale)
	v.SetDefault("selfcal.imaging.niter", im.Niter)
	v.SetDefault("selfcal.imaging.autothreshold", im.AutoThreshold)

	so:=rest.DefaultOptions()
	v.SetDefault("server.addr", so.Addr)
	v.SetDefault("server.datadir", so.DataDir)
	v.SetDefault("server.chroot", so.Chroot)
	v.SetDefault("server.setuid", so.Setuid)
	v.SetDefault("server.runttl", so.RunTTL)

	a:=asvo.DefaultConfig()
	v.SetDefault("asvo.https", a.HTTPS)
	v.SetDefault("asvo.host", a.Host)
	v.SetDefault("asvo.port", a.Port)
	v.SetDefault("asvo.apikey", "")
	v.SetDefault("asvo.clientversion", a.ClientVersion)
	v.SetDefault("asvo.insecure", a.Insecure)
	v.SetDefault("asvo.timeout", a.Timeout)

	v.SetDefault("display.lowpercentile", 1.0)
	v.SetDefault("display.highpercentile", 99.5)
	v.SetDefault("display.smoothsigma", 1.0)
	v.SetDefault("display.despike", false)
	v.SetDefault("display.diagframes", 6)

	lo:=logging.DefaultOptions()
	v.SetDefault("log.file", logging.Auto)
	v.SetDefault("log.debug", lo.Debug)
	v.SetDefault("log.json", lo.JSON)
	v.SetDefault("log.maxsizemb", lo.MaxSizeMB)
	v.SetDefault("log.maxbackups", lo.MaxBackups)
	v.SetDefault("log.maxagedays", lo.MaxAgeDays)
	v.SetDefault("log.compress", lo.Compress)
}

// Creates a viper instance with defaults and environment overrides. Reads configFile if
// given, else burstlight.yaml from the working directory or the user config directory
// if present
func New(configFile string) (*viper.Viper, error) {
	v:=viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_=v.BindEnv("asvo.apikey", EnvPrefix+"_ASVO_APIKEY", "MWA_ASVO_API_KEY")

	if configFile!="" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(FileName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err:=os.UserHomeDir(); err==nil {
			v.AddConfigPath(filepath.Join(home, ".config", "burstlight"))
		}
	}
	if err:=v.ReadInConfig(); err!=nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile!="" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return v, nil
}

// Unmarshals and validates the settings
func Load(v *viper.Viper) (*Settings, error) {
	s:=&Settings{}
	if err:=v.Unmarshal(s); err!=nil { return nil, fmt.Errorf("decoding config: %w", err) }
	if err:=s.Validate(); err!=nil { return nil, err }
	return s, nil
}

// Checks value ranges of all settings
func (s *Settings) Validate() error {
	var errs []error
	if err:=s.Localize.Validate(); err!=nil { errs=append(errs, err) }
	if s.Srclist.MaxSources<1 { errs=append(errs, fmt.Errorf("srclist.maxsources must be at least 1, got %d", s.Srclist.MaxSources)) }
	if s.Srclist.FluxNorm<=0 { errs=append(errs, fmt.Errorf("srclist.fluxnorm must be positive, got %g", s.Srclist.FluxNorm)) }
	if s.Srclist.RefFreqHz<=0 { errs=append(errs, fmt.Errorf("srclist.reffreq must be positive, got %g", s.Srclist.RefFreqHz)) }
	d:=s.Display
	if !(d.LowPercentile>0 && d.LowPercentile<100) || !(d.HighPercentile>0 && d.HighPercentile<100) || d.LowPercentile>=d.HighPercentile {
		errs=append(errs, fmt.Errorf("display percentiles must satisfy 0 < low < high < 100, got %g and %g", d.LowPercentile, d.HighPercentile))
	}
	if d.SmoothSigma<0 { errs=append(errs, fmt.Errorf("display.smoothsigma must not be negative, got %g", d.SmoothSigma)) }
	if s.Compare.MWAErrArcsec<0 || s.Compare.StixErrArcsec<0 || s.Compare.Factor<=0 {
		errs=append(errs, fmt.Errorf("compare errors must not be negative and factor must be positive"))
	}
	if s.Threads<0 { errs=append(errs, fmt.Errorf("threads must not be negative, got %d", s.Threads)) }
	if len(errs)==0 { return nil }
	return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
}
