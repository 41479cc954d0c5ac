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

// Package logging sets up slog loggers writing human readable text to the
// terminal and, optionally, a rotated log file.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

// Placeholder for a log file name derived from the main output file
const Auto = "%auto"

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelFatal: "FATAL",
}

// Log sink settings
type Options struct {
	File       string `mapstructure:"file"`     // "" for terminal only, Auto to derive from the output file
	Debug      bool   `mapstructure:"debug"`
	JSON       bool   `mapstructure:"json"`     // JSON lines in the log file
	MaxSizeMB  int    `mapstructure:"maxsizemb"`
	MaxBackups int    `mapstructure:"maxbackups"`
	MaxAgeDays int    `mapstructure:"maxagedays"`
	Compress   bool   `mapstructure:"compress"`
}

func DefaultOptions() Options {
	return Options{MaxSizeMB:100, MaxBackups:3, MaxAgeDays:28}
}

// Resolves the Auto placeholder by replacing the suffix of the output file with .log.
// Without an output file, Auto disables file logging
func FileName(file, output string) string {
	if file!=Auto { return file }
	if output=="" { return "" }
	return strings.TrimSuffix(output, filepath.Ext(output))+".log"
}

func replaceLevel(groups []string, a slog.Attr) slog.Attr {
	if a.Key==slog.LevelKey {
		level:=a.Value.Any().(slog.Level)
		label, exists:=levelNames[level]
		if !exists { label=level.String() }
		a.Value=slog.StringValue(label)
	}
	return a
}

func (o Options) level() slog.Level {
	if o.Debug { return slog.LevelDebug }
	return slog.LevelInfo
}

// Creates a logger writing text to term and, if o.File is set, also to a rotated log file.
// The returned function closes the file sink
func New(term io.Writer, o Options) (*slog.Logger, func() error, error) {
	hopts:=&slog.HandlerOptions{Level:o.level(), ReplaceAttr:replaceLevel}
	termHandler:=slog.NewTextHandler(term, hopts)
	if o.File=="" || o.File==Auto {
		return slog.New(termHandler), func() error { return nil }, nil
	}

	// lumberjack does not create directories
	if dir:=filepath.Dir(o.File); dir!="." {
		if err:=os.MkdirAll(dir, 0o755); err!=nil {
			return nil, nil, fmt.Errorf("failed to create log directory %s: %w", dir, err)
		}
	}
	writer:=&lumberjack.Logger{
		Filename:   o.File,
		MaxSize:    o.MaxSizeMB,
		MaxBackups: o.MaxBackups,
		MaxAge:     o.MaxAgeDays,
		Compress:   o.Compress,
	}
	var fileHandler slog.Handler
	if o.JSON {
		fileHandler=slog.NewJSONHandler(writer, hopts)
	} else {
		fileHandler=slog.NewTextHandler(writer, hopts)
	}
	return slog.New(teeHandler{termHandler, fileHandler}), writer.Close, nil
}

// Fans records out to several handlers
type teeHandler []slog.Handler

func (t teeHandler) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h:=range t {
		if h.Enabled(ctx, l) { return true }
	}
	return false
}

func (t teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h:=range t {
		if h.Enabled(ctx, r.Level) {
			if err:=h.Handle(ctx, r.Clone()); err!=nil { errs=append(errs, err) }
		}
	}
	return errors.Join(errs...)
}

func (t teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	res:=make(teeHandler, len(t))
	for i, h:=range t { res[i]=h.WithAttrs(attrs) }
	return res
}

func (t teeHandler) WithGroup(name string) slog.Handler {
	res:=make(teeHandler, len(t))
	for i, h:=range t { res[i]=h.WithGroup(name) }
	return res
}

// Logs at trace level
func Trace(l *slog.Logger, msg string, args ...any) {
	l.Log(context.Background(), LevelTrace, msg, args...)
}

// Logs at fatal level. Exiting is left to the caller
func Fatal(l *slog.Logger, msg string, args ...any) {
	l.Log(context.Background(), LevelFatal, msg, args...)
}

// Discards all output
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level:LevelFatal+1}))
}
