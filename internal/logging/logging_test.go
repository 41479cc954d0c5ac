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

package logging

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileName(t *testing.T) {
	tests:=[]struct{ file, output, want string }{
		{"", "out.yaml", ""},
		{"run.log", "out.yaml", "run.log"},
		{Auto, "dir/out.yaml", "dir/out.log"},
		{Auto, "noext", "noext.log"},
		{Auto, "", ""},
	}
	for _, tt:=range tests {
		assert.Equal(t, tt.want, FileName(tt.file, tt.output), "file %q output %q", tt.file, tt.output)
	}
}

func TestTerminalOnly(t *testing.T) {
	var buf bytes.Buffer
	log, closer, err:=New(&buf, DefaultOptions())
	require.NoError(t, err)
	defer closer()

	log.Debug("hidden")
	log.Info("shown", "frame", 3)
	Fatal(log, "stopping")
	out:=buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "frame=3")
	assert.Contains(t, out, "level=FATAL")
}

func TestTraceNeedsLowerLevel(t *testing.T) {
	var buf bytes.Buffer
	o:=DefaultOptions()
	o.Debug=true
	log, _, err:=New(&buf, o)
	require.NoError(t, err)
	log.Debug("dbg")
	Trace(log, "trc")
	assert.Contains(t, buf.String(), "dbg")
	assert.NotContains(t, buf.String(), "trc")
}

func TestFileSink(t *testing.T) {
	var buf bytes.Buffer
	o:=DefaultOptions()
	o.File=filepath.Join(t.TempDir(), "logs", "burst.log")
	o.JSON=true
	log, closer, err:=New(&buf, o)
	require.NoError(t, err)

	log.With("run", "abc").Info("best frame", "index", 2)
	require.NoError(t, closer())

	data, err:=os.ReadFile(o.File)
	require.NoError(t, err)
	line:=strings.TrimSpace(string(data))
	assert.Contains(t, line, `"msg":"best frame"`)
	assert.Contains(t, line, `"run":"abc"`)
	assert.Contains(t, buf.String(), "index=2")
}

func TestDiscard(t *testing.T) {
	log:=Discard()
	assert.False(t, log.Enabled(context.Background(), LevelFatal))
}
