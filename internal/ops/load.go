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

package ops

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mlnoga/burstlight/internal/burst"
	"github.com/mlnoga/burstlight/internal/fits"
)

// Default discovery pattern for imager output
const DefaultPattern = "wsclean-*image.fits"

var (
	ErrCubeTooLarge   = errors.New("cube exceeds memory budget")
	ErrPathNotAllowed = errors.New("path outside current directory tree")
)

// A loaded cube with the metadata of its source files
type Cube struct {
	*burst.Cube
	Files    []string
	Header   fits.Header   // header of the first frame
	WCS      *fits.WCS     // celestial mapping of the first frame, nil if absent
	ObsTimes []time.Time   // parsed observation times, zero if unknown
}

// Creates a promise to load the first 2D plane of the given file
func NewLoadPromise(id int, fileName string, c *Context) Promise {
	return func() (*fits.Image, error) {
		f, err:=fits.NewImageFromFile(fileName, id, c.Log)
		if err!=nil { return nil, err }
		st:=f.Stats()
		if st.Max-st.Min<1e-8 {
			c.Log.Warn("low dynamic range", "id", f.ID, "file", f.FileName)
		}
		c.Log.Debug("loaded image", "id", f.ID, "size", f.DimensionsToString(), "stats", st.String(), "file", f.FileName)
		return f, nil
	}
}

// Returns the files matching the pattern in lexicographical order, which is time order for
// imager interval outputs. Fails with burst.ErrEmptyInput if nothing matches
func Discover(pattern string) ([]string, error) {
	matches, err:=filepath.Glob(pattern)
	if err!=nil { return nil, fmt.Errorf("pattern %q: %w", pattern, err) }
	if len(matches)==0 {
		return nil, fmt.Errorf("%w: no files match %q", burst.ErrEmptyInput, pattern)
	}
	sort.Strings(matches)
	return matches, nil
}

// Loads all files matching the pattern into a cube. Frames must have equal dimensions.
// The pixel to sky mapping is taken from the first frame
func LoadCube(ctx context.Context, c *Context, pattern string) (*Cube, error) {
	files, err:=Discover(pattern)
	if err!=nil { return nil, err }
	c.Log.Info("found files", "count", len(files), "pattern", pattern)

	// check memory budget from the first header before reading pixel data
	first, err:=fits.NewImageHeaderFromFile(files[0], 0, c.Log)
	if err!=nil { return nil, err }
	if err:=c.checkCubeBudget(len(files), first.Width(), first.Height()); err!=nil { return nil, err }

	promises:=make([]Promise, len(files))
	for i,f:=range files {
		promises[i]=NewLoadPromise(i, f, c)
	}
	if err:=ctx.Err(); err!=nil { return nil, err }
	images, err:=MaterializeAll(promises, c.MaxThreads)
	if err!=nil { return nil, err }
	return NewCubeFromImages(images, files, c)
}

// Wraps loaded images into a cube, checking dimensions and extracting times and WCS
func NewCubeFromImages(images []*fits.Image, files []string, c *Context) (*Cube, error) {
	if len(images)==0 { return nil, burst.ErrEmptyInput }
	ref:=images[0]
	frames:=make([][]float32, len(images))
	labels:=make([]string, len(images))
	times :=make([]time.Time, len(images))
	for i,img:=range images {
		if !fits.SameSize(ref, img) {
			return nil, fmt.Errorf("%w: %s is %s, %s is %s", burst.ErrShapeMismatch,
				img.FileName, img.DimensionsToString(), ref.FileName, ref.DimensionsToString())
		}
		frames[i]=img.Data
		labels[i], times[i], _ = img.Header.ObsTime()
	}

	res:=&Cube{Files:files, Header:ref.Header, ObsTimes:times}
	var sky burst.SkyMapper
	if w, err:=fits.NewWCSFromHeader(&ref.Header); err==nil {
		res.WCS, sky = w, w
	} else {
		c.Log.Warn("no usable sky mapping, sky coordinates unavailable", "file", ref.FileName, "error", err)
	}

	bc, err:=burst.NewCube(ref.Width(), ref.Height(), frames, labels, sky)
	if err!=nil { return nil, err }
	res.Cube=bc
	return res, nil
}

// Checks whether the cube plus working copies for smoothing and scoring fit the memory budget
func (c *Context) checkCubeBudget(numFrames, width, height int) error {
	if c.CubeMemoryMB<=0 { return nil }
	neededMB:=int64(numFrames)*int64(width)*int64(height)*4*3/1024/1024
	if neededMB>int64(c.CubeMemoryMB) {
		return fmt.Errorf("%w: %d frames of %dx%d need %d MB, budget is %d MB",
			ErrCubeTooLarge, numFrames, width, height, neededMB, c.CubeMemoryMB)
	}
	return nil
}

// Returns true if a path is considered safe, i.e. not an absolute path,
// and doesn't contain the ".." characters to change to a parent directory
func IsPathAllowed(p string) bool {
	if filepath.IsAbs(p) { return false }          // relative paths only
	if strings.Contains(p, "..") { return false }  // no going outside the tree
	return true
}
