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
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	"github.com/mlnoga/burstlight/internal/burst"
	"github.com/mlnoga/burstlight/internal/ops"
	"github.com/mlnoga/burstlight/internal/srclist"
	"github.com/mlnoga/burstlight/web"
)

// Server settings
type Options struct {
	Addr    string        `mapstructure:"addr"    json:"addr"`
	DataDir string        `mapstructure:"datadir" json:"dataDir"` // file patterns are relative to this directory
	Chroot  string        `mapstructure:"chroot"  json:"chroot"`
	Setuid  int           `mapstructure:"setuid"  json:"setuid"`  // negative to keep the user id
	RunTTL  time.Duration `mapstructure:"runttl"  json:"runTTL"`  // how long results stay available
	Version string        `mapstructure:"-"       json:"-"`
	Params  burst.Params    `mapstructure:"-" json:"-"` // defaults for localization requests
	Emit    srclist.Options `mapstructure:"-" json:"-"` // defaults for sky model requests
}

func DefaultOptions() Options {
	return Options{Addr:":8080", DataDir:".", Setuid:-1, RunTTL:time.Hour,
		Params:burst.DefaultParams(), Emit:srclist.DefaultOptions()}
}

// A completed localization
type Run struct {
	ID       string            `json:"id"`
	Pattern  string            `json:"pattern"`
	Created  time.Time         `json:"created"`
	Duration float64           `json:"durationSec"`
	Params   burst.Params      `json:"params"`
	Width    int               `json:"width"`
	Height   int               `json:"height"`
	Frames   []burst.Candidate `json:"frames"`
	Best     burst.Candidate   `json:"best"`
}

// HTTP API for localizing bursts in image sequences on the server
type Server struct {
	opts    Options
	ctx     *ops.Context
	runs    *cache.Cache
	metrics *metrics
	engine  *gin.Engine
}

func NewServer(c *ops.Context, o Options) *Server {
	s:=&Server{
		opts:    o,
		ctx:     c,
		runs:    cache.New(o.RunTTL, 2*o.RunTTL),
		metrics: newMetrics(),
	}
	s.engine=s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r:=gin.New()
	r.Use(gin.Recovery(), s.logRequests())
	r.GET("/", func(c *gin.Context) { c.Data(http.StatusOK, "text/html; charset=utf-8", web.IndexHTML) })
	r.StaticFS("/js", web.JavascriptFS())
	r.GET("/metrics", gin.WrapH(s.metrics.handler()))
	api:=r.Group("/api")
	{
		v1:=api.Group("/v1")
		{
			v1.GET ("/ping",             getPing)
			v1.GET ("/version",          s.getVersion)
			v1.POST("/localize",         s.postLocalize)
			v1.GET ("/runs",             s.getRuns)
			v1.GET ("/runs/:id",         s.getRun)
			v1.POST("/runs/:id/srclist", s.postSrclist)
		}
	}
	return r
}

func (s *Server) Handler() http.Handler { return s.engine }

// Serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	if err:=MakeSandbox(s.opts.Chroot, s.opts.Setuid, s.ctx.Log); err!=nil { return err }
	srv:=&http.Server{Addr:s.opts.Addr, Handler:s.engine, ReadHeaderTimeout:10*time.Second}
	errs:=make(chan error, 1)
	go func() { errs<-srv.ListenAndServe() }()
	s.ctx.Log.Info("serving", "addr", s.opts.Addr, "dataDir", s.opts.DataDir)

	select {
	case err:=<-errs:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel:=context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start:=time.Now()
		c.Next()
		s.ctx.Log.Debug("request", "method", c.Request.Method, "path", c.Request.URL.Path,
			"status", c.Writer.Status(), "duration", time.Since(start))
	}
}

func getPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message":"pong"})
}

func (s *Server) getVersion(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"version":s.opts.Version})
}

type localizeRequest struct {
	Pattern string        `json:"pattern" binding:"required"`
	Params  *burst.Params `json:"params"`
}

func (s *Server) postLocalize(c *gin.Context) {
	params:=s.opts.Params
	req:=localizeRequest{Params:&params}
	if err:=c.ShouldBindJSON(&req); err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error":err.Error()})
		return
	}
	if !ops.IsPathAllowed(req.Pattern) {
		c.JSON(http.StatusForbidden, gin.H{"error":ops.ErrPathNotAllowed.Error()})
		return
	}
	params.MaxThreads=s.ctx.MaxThreads
	if err:=params.Validate(); err!=nil {
		c.JSON(http.StatusBadRequest, gin.H{"error":err.Error()})
		return
	}

	start:=time.Now()
	run, err:=s.localize(c.Request.Context(), req.Pattern, params)
	s.metrics.observeLocalize(time.Since(start), err)
	if err!=nil {
		c.JSON(statusFor(err), gin.H{"error":err.Error()})
		return
	}
	s.runs.SetDefault(run.ID, run)
	s.metrics.runsCached.Set(float64(s.runs.ItemCount()))
	c.JSON(http.StatusOK, run)
}

func (s *Server) localize(ctx context.Context, pattern string, p burst.Params) (*Run, error) {
	start:=time.Now()
	cube, err:=ops.LoadCube(ctx, s.ctx, filepath.Join(s.opts.DataDir, pattern))
	if err!=nil { return nil, err }
	res, err:=burst.Localize(ctx, cube.Cube, p, s.ctx.Log)
	if err!=nil { return nil, err }
	return &Run{
		ID:       uuid.NewString(),
		Pattern:  pattern,
		Created:  start.UTC(),
		Duration: time.Since(start).Seconds(),
		Params:   p,
		Width:    cube.Width,
		Height:   cube.Height,
		Frames:   res.Frames,
		Best:     res.Best,
	}, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, burst.ErrEmptyInput):           return http.StatusNotFound
	case errors.Is(err, burst.ErrShapeMismatch),
	     errors.Is(err, srclist.ErrNoQualifyingSources): return http.StatusUnprocessableEntity
	case errors.Is(err, ops.ErrCubeTooLarge):           return http.StatusRequestEntityTooLarge
	case errors.Is(err, burst.ErrInvalidParams):        return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// Run without per-frame results
type runSummary struct {
	ID      string          `json:"id"`
	Pattern string          `json:"pattern"`
	Created time.Time       `json:"created"`
	Frames  int             `json:"frames"`
	Best    burst.Candidate `json:"best"`
}

func (s *Server) getRuns(c *gin.Context) {
	items:=s.runs.Items()
	res:=make([]runSummary, 0, len(items))
	for _,it:=range items {
		r:=it.Object.(*Run)
		res=append(res, runSummary{ID:r.ID, Pattern:r.Pattern, Created:r.Created, Frames:len(r.Frames), Best:r.Best})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Created.Before(res[j].Created) })
	c.JSON(http.StatusOK, res)
}

func (s *Server) lookup(c *gin.Context) (*Run, bool) {
	v, ok:=s.runs.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error":fmt.Sprintf("run %s not found", c.Param("id"))})
		return nil, false
	}
	return v.(*Run), true
}

func (s *Server) getRun(c *gin.Context) {
	if r, ok:=s.lookup(c); ok { c.JSON(http.StatusOK, r) }
}

// Returns the sky model of a run as YAML. Emission options in the body override the defaults
func (s *Server) postSrclist(c *gin.Context) {
	r, ok:=s.lookup(c)
	if !ok { return }
	o:=s.opts.Emit
	if c.Request.ContentLength!=0 {
		if err:=c.ShouldBindJSON(&o); err!=nil {
			c.JSON(http.StatusBadRequest, gin.H{"error":err.Error()})
			return
		}
	}
	sources, err:=srclist.Build(r.Frames, o)
	if err!=nil {
		c.JSON(statusFor(err), gin.H{"error":err.Error()})
		return
	}
	var buf bytes.Buffer
	if err:=srclist.Write(&buf, sources); err!=nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error":err.Error()})
		return
	}
	s.metrics.srclists.Inc()
	c.Data(http.StatusOK, "application/x-yaml", buf.Bytes())
}
