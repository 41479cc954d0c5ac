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

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlnoga/burstlight/internal/burst"
	"github.com/mlnoga/burstlight/internal/srclist"
)

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	a:=newApp(&out, &errOut)
	a.root.SetArgs(args)
	err=a.root.ExecuteContext(context.Background())
	a.finish(err)
	return out.String(), errOut.String(), err
}

func TestVersionSkipsSetup(t *testing.T) {
	stdout, stderr, err:=run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "Version "+version+"\n", stdout)
	assert.Empty(t, stderr)
}

func TestLegalListsLibraries(t *testing.T) {
	stdout, _, err:=run(t, "legal")
	require.NoError(t, err)
	assert.Contains(t, stdout, "github.com/spf13/cobra")
}

func TestSrclistFromReport(t *testing.T) {
	dir:=t.TempDir()
	frames:=[]burst.Candidate{
		{Frame:0, Mode:burst.ModeBurst, Score:40, RA:10, Dec:-5},
		{Frame:1, Mode:burst.ModeFallback, Score:90, RA:11, Dec:-5},
		{Frame:2, Mode:burst.ModeBurst, Score:80, RA:12, Dec:-5},
		{Frame:3, Mode:burst.ModeBurst, Score:10, RA:13, Dec:-5},
	}
	rep:=report{Pattern:"x", FreqHz:120e6, Frames:frames, Best:frames[2]}
	rep.Best.Sigma=math.NaN()
	name:=filepath.Join(dir, "burst.json")
	require.NoError(t, writeJSON(name, &rep))
	out:=filepath.Join(dir, "model.yaml")

	stdout, stderr, err:=run(t, "srclist", "--log", "", "--out", out, "--maxSources", "3", name)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Done after")
	assert.Contains(t, stdout, "0: frame 2")
	assert.Contains(t, stdout, "1: frame 0")

	f, err:=os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	sources, err:=srclist.Read(f)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.InDelta(t, 500.0, sources[0].FluxJy, 1e-9)
	assert.InDelta(t, 250.0, sources[1].FluxJy, 1e-9)
	assert.InDelta(t, 120e6, sources[0].FreqHz, 1)
}

func TestInvalidFlagValueRejected(t *testing.T) {
	dir:=t.TempDir()
	name:=filepath.Join(dir, "burst.json")
	data, err:=json.Marshal(report{})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(name, data, 0o644))

	_, _, err=run(t, "srclist", "--log", "", "--maxSources", "0", name)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maxsources")
}

func TestMissingInputFails(t *testing.T) {
	_, _, err:=run(t, "localize", "--log", "", filepath.Join(t.TempDir(), "none-*.fits"))
	require.ErrorIs(t, err, burst.ErrEmptyInput)
}
