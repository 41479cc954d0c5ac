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
	"fmt"
	"strings"

	"github.com/mlnoga/burstlight/internal/fits"
)

var fitsSuffixes=[]string{".fits", ".fit", ".fts"}

// Saves the image under the given file name, with pattern expansion for %d based on the image id.
// The format follows the suffix: FITS, mono JPEG, colour mapped PNG or 16-bit TIFF
func Save(f *fits.Image, filePattern string, c *Context) (err error) {
	fileName:=filePattern
	if strings.Contains(fileName, "%d") {
		fileName=fmt.Sprintf(filePattern, f.ID)
	}
	fnLower:=strings.ToLower(fileName)

	switch {
	case hasAnySuffix(fnLower, fitsSuffixes):
		c.Log.Debug("writing FITS", "id", f.ID, "size", f.DimensionsToString(), "file", fileName)
		err=f.WriteFile(fileName)
	case strings.HasSuffix(fnLower, ".jpeg") || strings.HasSuffix(fnLower, ".jpg"):
		c.Log.Debug("writing mono JPEG", "id", f.ID, "size", f.DimensionsToString(), "file", fileName)
		err=f.WriteMonoJPGToFile(fileName, 1, 95)
	case strings.HasSuffix(fnLower, ".png"):
		c.Log.Debug("writing colour PNG", "id", f.ID, "size", f.DimensionsToString(), "file", fileName)
		err=f.WriteColorPNGToFile(fileName)
	case strings.HasSuffix(fnLower, ".tif") || strings.HasSuffix(fnLower, ".tiff"):
		c.Log.Debug("writing 16-bit TIFF", "id", f.ID, "size", f.DimensionsToString(), "file", fileName)
		err=f.WriteMonoTIFF16ToFile(fileName)
	default:
		err=fmt.Errorf("unknown suffix")
	}
	if err!=nil { return fmt.Errorf("%d: error writing to file %s: %w", f.ID, fileName, err) }
	return nil
}

func hasAnySuffix(s string, suffixes []string) bool {
	for _,suf:=range suffixes {
		if strings.HasSuffix(s, suf) { return true }
	}
	return false
}
