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

// Package selfcal drives the external imager and calibrator in a loop that
// images, localizes the burst and calibrates against it.
package selfcal

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
)

var ErrToolFailed = errors.New("external tool failed")

// Runs external programs
type Executor interface {
	// Runs name with args in dir, with env added to the process environment.
	// Cancelling ctx kills the process
	Run(ctx context.Context, dir string, env []string, name string, args ...string) error
}

// Executor based on os/exec which streams program output to a logger line by line
type ExecRunner struct {
	Log *slog.Logger
}

func NewExecRunner(log *slog.Logger) *ExecRunner {
	return &ExecRunner{Log:log}
}

func (e *ExecRunner) Run(ctx context.Context, dir string, env []string, name string, args ...string) error {
	e.Log.Info("running", "cmd", name+" "+strings.Join(args, " "), "dir", dir)
	cmd:=exec.CommandContext(ctx, name, args...) //nolint:gosec // tool paths come from configuration
	cmd.Dir=dir
	cmd.Env=append(os.Environ(), env...)
	stdout:=&lineLogger{log:e.Log.With("tool", name), level:slog.LevelDebug}
	stderr:=&lineLogger{log:e.Log.With("tool", name), level:slog.LevelWarn}
	cmd.Stdout, cmd.Stderr = stdout, stderr

	err:=cmd.Run()
	stdout.flush()
	stderr.flush()
	if err!=nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s exited with code %d", ErrToolFailed, name, exitErr.ExitCode())
		}
		return fmt.Errorf("%w: %s: %v", ErrToolFailed, name, err)
	}
	return nil
}

// io.Writer which logs each complete line
type lineLogger struct {
	mu    sync.Mutex
	log   *slog.Logger
	level slog.Level
	buf   bytes.Buffer
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf.Write(p)
	for {
		line, err:=l.buf.ReadString('\n')
		if err!=nil {
			// incomplete line stays buffered
			l.buf.Reset()
			l.buf.WriteString(line)
			break
		}
		l.emit(line)
	}
	return len(p), nil
}

func (l *lineLogger) flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.buf.Len()>0 { l.emit(l.buf.String()) }
	l.buf.Reset()
}

func (l *lineLogger) emit(line string) {
	line=strings.TrimRight(line, "\r\n")
	if line=="" { return }
	l.log.Log(context.Background(), l.level, line)
}
