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

// Package asvo is a client for the MWA All-Sky Virtual Observatory job API:
// login, job submission and listing, product download, and job notifications.
package asvo

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Name of the session cookie set on login
const CookieName = "MWA_JOB_COOKIE"

var (
	ErrLogin        = errors.New("archive login failed")
	ErrNoCookie     = errors.New("archive login returned no job cookie")
	ErrRequest      = errors.New("archive request failed")
	ErrNotConnected = errors.New("not connected to job notifications")
	ErrClosed       = errors.New("notifier closed")
)

// Connection parameters
type Config struct {
	HTTPS         bool          `mapstructure:"https"         json:"https"`
	Host          string        `mapstructure:"host"          json:"host"`
	Port          int           `mapstructure:"port"          json:"port"`
	APIKey        string        `mapstructure:"apikey"        json:"-"`
	ClientVersion string        `mapstructure:"clientversion" json:"clientVersion"` // major.minor[.patch]
	Insecure      bool          `mapstructure:"insecure"      json:"insecure"`      // skip TLS certificate checks
	Timeout       time.Duration `mapstructure:"timeout"       json:"timeout"`
}

func DefaultConfig() Config {
	return Config{HTTPS:true, Host:"asvo.mwatelescope.org", Port:443, ClientVersion:"1.2", Timeout:30*time.Second}
}

// User name sent on login, derived from the client version
func (c Config) APIUser() string {
	parts:=strings.SplitN(c.ClientVersion, ".", 3)
	minor:="0"
	if len(parts)>1 { minor=parts[1] }
	return fmt.Sprintf("mantaray-clientv%s.%s", parts[0], minor)
}

func (c Config) baseURL(websocket bool) string {
	scheme:="http"
	if c.HTTPS { scheme="https" }
	if websocket {
		scheme="ws"
		if c.HTTPS { scheme="wss" }
	}
	return scheme+"://"+c.Host+":"+strconv.Itoa(c.Port)
}

func (c Config) tlsConfig() *tls.Config {
	return &tls.Config{InsecureSkipVerify:c.Insecure} //nolint:gosec // configurable like the archive's own client
}

// An authenticated archive session
type Session struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger
}

// Logs in with the API key and keeps the job cookie for subsequent requests
func Login(ctx context.Context, cfg Config, log *slog.Logger) (*Session, error) {
	jar, _:=cookiejar.New(nil)
	tr:=http.DefaultTransport.(*http.Transport).Clone()
	tr.TLSClientConfig=cfg.tlsConfig()
	s:=&Session{cfg:cfg, client:&http.Client{Jar:jar, Transport:tr, Timeout:cfg.Timeout}, log:log}

	req, err:=http.NewRequestWithContext(ctx, http.MethodPost, cfg.baseURL(false)+"/api/api_login", nil)
	if err!=nil { return nil, err }
	req.SetBasicAuth(cfg.APIUser(), cfg.APIKey)
	res, err:=s.client.Do(req)
	if err!=nil { return nil, fmt.Errorf("%w: %v", ErrLogin, err) }
	io.Copy(io.Discard, res.Body)
	res.Body.Close()
	if res.StatusCode/100!=2 {
		s.Close()
		return nil, fmt.Errorf("%w: %s", ErrLogin, res.Status)
	}
	if s.Cookie()=="" {
		s.Close()
		return nil, ErrNoCookie
	}
	log.Debug("logged in to archive", "host", cfg.Host, "user", cfg.APIUser())
	return s, nil
}

// Cookie header value for the archive host, empty if the job cookie is missing
func (s *Session) Cookie() string {
	u, _:=url.Parse(s.cfg.baseURL(false))
	var parts []string
	found:=false
	for _,c:=range s.client.Jar.Cookies(u) {
		parts=append(parts, c.Name+"="+c.Value)
		if c.Name==CookieName { found=true }
	}
	if !found { return "" }
	return strings.Join(parts, "; ")
}

// Releases idle connections
func (s *Session) Close() {
	s.client.CloseIdleConnections()
}

// Parameters of a visibility conversion job
type ConversionJob struct {
	ObsID      string
	TimeRes    float64 // seconds
	FreqRes    float64 // kHz
	EdgeWidth  float64 // kHz
	Conversion string  // e.g. "ms" or "uvfits"
	Calibrate  bool
	Flags      []string // extra boolean options
}

func (j ConversionJob) form() url.Values {
	v:=url.Values{}
	v.Set("obs_id", j.ObsID)
	v.Set("timeres", strconv.FormatFloat(j.TimeRes, 'g', -1, 64))
	v.Set("freqres", strconv.FormatFloat(j.FreqRes, 'g', -1, 64))
	v.Set("edgewidth", strconv.FormatFloat(j.EdgeWidth, 'g', -1, 64))
	v.Set("conversion", j.Conversion)
	calibrate:="false"
	if j.Calibrate { calibrate="true" }
	v.Set("calibrate", calibrate)
	for _,f:=range j.Flags { v.Set(f, "1") }
	return v
}

// Submits a conversion job and returns the server response
func (s *Session) SubmitConversionJob(ctx context.Context, j ConversionJob) (json.RawMessage, error) {
	return s.SubmitJob(ctx, "conversion_job", j.form())
}

// Submits a raw visibility download job
func (s *Session) SubmitDownloadJob(ctx context.Context, obsID, downloadType string) (json.RawMessage, error) {
	return s.SubmitJob(ctx, "download_vis_job", url.Values{"obs_id":{obsID}, "download_type":{downloadType}})
}

// Submits a voltage job with the given parameters
func (s *Session) SubmitVoltageJob(ctx context.Context, params url.Values) (json.RawMessage, error) {
	return s.SubmitJob(ctx, "voltage_job", params)
}

// Posts form parameters to the named job endpoint
func (s *Session) SubmitJob(ctx context.Context, endpoint string, params url.Values) (json.RawMessage, error) {
	req, err:=http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.baseURL(false)+"/api/"+endpoint, strings.NewReader(params.Encode()))
	if err!=nil { return nil, err }
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	var res json.RawMessage
	if err:=s.do(req, &res); err!=nil { return nil, err }
	s.log.Info("submitted job", "endpoint", endpoint, "obsId", params.Get("obs_id"))
	return res, nil
}

// Lists the jobs of this account
func (s *Session) Jobs(ctx context.Context) (json.RawMessage, error) {
	req, err:=http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.baseURL(false)+"/api/get_jobs", nil)
	if err!=nil { return nil, err }
	var res json.RawMessage
	if err:=s.do(req, &res); err!=nil { return nil, err }
	return res, nil
}

// Cancels the job with the given ID
func (s *Session) CancelJob(ctx context.Context, jobID string) error {
	req, err:=http.NewRequestWithContext(ctx, http.MethodGet,
		s.cfg.baseURL(false)+"/api/cancel_job?"+url.Values{"job_id":{jobID}}.Encode(), nil)
	if err!=nil { return err }
	return s.do(req, nil)
}

// Downloads a job product from url to the named file
func (s *Session) Download(ctx context.Context, productURL, fileName string) error {
	req, err:=http.NewRequestWithContext(ctx, http.MethodGet, productURL, nil)
	if err!=nil { return err }
	res, err:=s.client.Do(req)
	if err!=nil { return fmt.Errorf("%w: %v", ErrRequest, err) }
	defer res.Body.Close()
	if res.StatusCode/100!=2 { return fmt.Errorf("%w: %s %s", ErrRequest, productURL, res.Status) }

	f, err:=os.Create(fileName)
	if err!=nil { return err }
	n, err:=io.Copy(f, res.Body)
	if cerr:=f.Close(); err==nil { err=cerr }
	if err!=nil { return fmt.Errorf("downloading %s: %w", productURL, err) }
	s.log.Info("downloaded product", "file", fileName, "bytes", n)
	return nil
}

func (s *Session) do(req *http.Request, out any) error {
	res, err:=s.client.Do(req)
	if err!=nil { return fmt.Errorf("%w: %v", ErrRequest, err) }
	defer res.Body.Close()
	if res.StatusCode/100!=2 {
		body, _:=io.ReadAll(io.LimitReader(res.Body, 512))
		return fmt.Errorf("%w: %s %s: %s", ErrRequest, req.URL.Path, res.Status, strings.TrimSpace(string(body)))
	}
	if out==nil {
		io.Copy(io.Discard, res.Body)
		return nil
	}
	if err:=json.NewDecoder(res.Body).Decode(out); err!=nil {
		return fmt.Errorf("%w: decoding %s: %v", ErrRequest, req.URL.Path, err)
	}
	return nil
}
