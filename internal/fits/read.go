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

package fits

import (
	"compress/gzip"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"
)

var reParser *regexp.Regexp = compileRE() // Regexp parser for FITS header lines

// Reads the FITS image with the given file name, keeping only the first 2D plane
func NewImageFromFile(fileName string, id int, logger *slog.Logger) (i *Image, err error) {
	i = NewImage()
	i.ID = id
	return i, i.ReadFile(fileName, true, logger)
}

// Reads only the header of the FITS image with the given file name
func NewImageHeaderFromFile(fileName string, id int, logger *slog.Logger) (i *Image, err error) {
	i = NewImage()
	i.ID = id
	return i, i.ReadFile(fileName, false, logger)
}

// Read FITS data from the file with the given name. Decompresses gzip if .gz or gzip suffix is present.
// Reads metadata only (fast) if readData is false.
func (fits *Image) ReadFile(fileName string, readData bool, logger *slog.Logger) error {
	f, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f

	fits.FileName = fileName
	lExt := strings.ToLower(path.Ext(fileName))
	if lExt == ".gz" || lExt == ".gzip" {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return fmt.Errorf("%s: %w", fileName, err)
		}
		defer gz.Close()
		r = gz
	}

	if err := fits.Read(r, readData, logger); err != nil {
		return fmt.Errorf("%s: %w", fileName, err)
	}
	return nil
}

func (fits *Image) popHeaderInt32(key string) (res int32, err error) {
	if val, ok := fits.Header.Ints[key]; ok {
		delete(fits.Header.Ints, key)
		return val, nil
	}
	return 0, fmt.Errorf("%d: FITS header does not contain key %s", fits.ID, key)
}

func (fits *Image) popHeaderFloat(key string) (res float32, ok bool) {
	v, ok := fits.Header.Float(key)
	if ok {
		delete(fits.Header.Ints, key)
		delete(fits.Header.Floats, key)
	}
	return float32(v), ok
}

// Reads a FITS header and, if readData is set, the first 2D plane of the primary data unit
func (fits *Image) Read(f io.Reader, readData bool, logger *slog.Logger) (err error) {
	err = fits.Header.read(f, fits.ID, logger)
	if err != nil {
		return err
	}

	// check mandatory fields as per standard
	if !fits.Header.Bools["SIMPLE"] {
		return fmt.Errorf("%d: Not a valid FITS file; SIMPLE=T missing in header", fits.ID)
	}
	delete(fits.Header.Bools, "SIMPLE")

	if fits.Bitpix, err = fits.popHeaderInt32("BITPIX"); err != nil {
		return err
	}
	var naxis int32
	if naxis, err = fits.popHeaderInt32("NAXIS"); err != nil {
		return err
	}
	if naxis < 1 {
		return fmt.Errorf("%d: FITS file has no image data, NAXIS=%d", fits.ID, naxis)
	}
	fits.Naxisn = make([]int32, naxis)
	for i := int32(1); i <= naxis; i++ {
		name := "NAXIS" + strconv.FormatInt(int64(i), 10)
		if fits.Naxisn[i-1], err = fits.popHeaderInt32(name); err != nil {
			return err
		}
	}
	fits.Pixels = int32(fits.Width() * fits.Height())

	var ok bool
	if fits.Bzero, ok = fits.popHeaderFloat("BZERO"); !ok {
		fits.Bzero = 0
	}
	if fits.Bscale, ok = fits.popHeaderFloat("BSCALE"); !ok {
		fits.Bscale = 1
	}

	if !readData {
		return nil
	}
	return fits.readData(f, logger)
}

// Decodes a single big-endian value of the given FITS type into a float64
type decoder func(b []byte) float64

func decoderFor(bitpix int32) (d decoder, bytesPerValue int, err error) {
	switch bitpix {
	case 8:
		return func(b []byte) float64 { return float64(b[0]) }, 1, nil
	case 16:
		return func(b []byte) float64 {
			return float64(int16(uint16(b[0])<<8 | uint16(b[1])))
		}, 2, nil
	case 32:
		return func(b []byte) float64 {
			return float64(int32(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])))
		}, 4, nil
	case 64:
		return func(b []byte) float64 {
			return float64(int64(beUint64(b)))
		}, 8, nil
	case -32:
		return func(b []byte) float64 {
			return float64(math.Float32frombits(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])))
		}, 4, nil
	case -64:
		return func(b []byte) float64 {
			return math.Float64frombits(beUint64(b))
		}, 8, nil
	}
	return nil, 0, fmt.Errorf("unknown BITPIX value %d", bitpix)
}

func beUint64(b []byte) uint64 {
	return uint64(b[0])<<56 | uint64(b[1])<<48 | uint64(b[2])<<40 | uint64(b[3])<<32 |
		uint64(b[4])<<24 | uint64(b[5])<<16 | uint64(b[6])<<8 | uint64(b[7])
}

const bufLen int = 16 * 1024 // input buffer length for reading from file

// Batched read of the first 2D plane from the file, converting from network byte order to float32
// and applying Bzero and Bscale. Sets Bzero to 0 and Bscale to 1 afterwards.
func (fits *Image) readData(r io.Reader, logger *slog.Logger) error {
	decode, bytesPerValue, err := decoderFor(fits.Bitpix)
	if err != nil {
		return fmt.Errorf("%d: %w", fits.ID, err)
	}
	if fits.Bitpix == 32 || fits.Bitpix == 64 || fits.Bitpix == -64 {
		logger.Debug("loss of precision converting to float32", "id", fits.ID, "bitpix", fits.Bitpix)
	}

	fits.Data = make([]float32, int(fits.Pixels))
	buf := make([]byte, bufLen-bufLen%bytesPerValue)
	bscale, bzero := float64(fits.Bscale), float64(fits.Bzero)

	for dataIndex := 0; dataIndex < len(fits.Data); {
		bytesToRead := (len(fits.Data) - dataIndex) * bytesPerValue
		if bytesToRead > len(buf) {
			bytesToRead = len(buf)
		}
		if _, err := io.ReadFull(r, buf[:bytesToRead]); err != nil {
			return fmt.Errorf("%d: reading data: %w", fits.ID, err)
		}
		for i := 0; i < bytesToRead; i += bytesPerValue {
			fits.Data[dataIndex] = float32(decode(buf[i:i+bytesPerValue])*bscale + bzero)
			dataIndex++
		}
	}
	fits.Bzero, fits.Bscale = 0, 1 // reflect that data values incorporate these now
	return nil
}

func (h *Header) read(r io.Reader, id int, logger *slog.Logger) error {
	buf := make([]byte, fitsBlockSize)

	for h.Length = 0; !h.End; {
		// read next header unit
		if _, err := io.ReadFull(r, buf); err != nil {
			return fmt.Errorf("%d: reading header: %w", id, err)
		}
		h.Length += int32(fitsBlockSize)

		// parse all lines in this header unit
		for lineNo := 0; lineNo < fitsBlockSize/HeaderLineSize && !h.End; lineNo++ {
			line := buf[lineNo*HeaderLineSize : (lineNo+1)*HeaderLineSize]
			subValues := reParser.FindSubmatch(line)
			if subValues == nil {
				logger.Debug("cannot parse FITS header line, ignoring", "id", id, "line", strings.TrimSpace(string(line)))
			} else {
				h.readLine(reParser.SubexpNames(), subValues)
			}
		}
	}
	return nil
}

func (h *Header) readLine(subNames []string, subValues [][]byte) {
	key := ""
	// ignore index 0 which is the whole line
	for i := 1; i < len(subNames); i++ {
		if subValues[i] == nil || len(subNames[i]) != 1 {
			continue
		}
		switch c := subNames[i][0]; c {
		case 'E': // end line
			h.End = true
		case 'H': // history line
			h.History = append(h.History, strings.TrimSpace(string(subValues[i])))
		case 'C': // comment line
			h.Comments = append(h.Comments, strings.TrimSpace(string(subValues[i])))
		case 'k': // key
			key = string(subValues[i])
		case 'b': // boolean
			if len(subValues[i]) > 0 {
				v := subValues[i][0]
				h.Bools[key] = v == 't' || v == 'T'
			}
		case 'i': // int, promoted to float if out of range
			val, err := strconv.ParseInt(string(subValues[i]), 10, 64)
			if err == nil && val >= math.MinInt32 && val <= math.MaxInt32 {
				h.Ints[key] = int32(val)
			} else if f, err := strconv.ParseFloat(string(subValues[i]), 64); err == nil {
				h.Floats[key] = f
			}
		case 'f': // float, with Fortran style D exponents
			s := strings.Replace(string(subValues[i]), "D", "E", 1)
			if val, err := strconv.ParseFloat(s, 64); err == nil {
				h.Floats[key] = val
			}
		case 's': // string
			h.Strings[key] = strings.TrimRight(string(subValues[i]), " ")
		case 'd': // date
			h.Dates[key] = strings.TrimRight(string(subValues[i]), " ")
		}
	}
}

// Build regexp parser for FITS header lines
func compileRE() *regexp.Regexp {
	white := "\\s+"
	whiteOpt := "\\s*"
	whiteLine := white

	hist := "HISTORY"
	rest := ".*"
	histLine := hist + "(?:" + white + "(?P<H>" + rest + "))?"

	commKey := "COMMENT"
	commLine := commKey + "(?:" + white + "(?P<C>" + rest + "))?"

	end := "(?P<E>END)"
	endLine := end + whiteOpt

	key := "(?P<k>[A-Z0-9_-]+)"
	equals := "="

	boo := "(?P<b>[TF])"
	inte := "(?P<i>[+-]?[0-9]+)"
	floa := "(?P<f>[+-]?(?:[0-9]+\\.?[0-9]*|\\.[0-9]+)(?:[ED][-+]?[0-9]+)?)"
	stri := "'(?P<s>[^']*)'"
	date := "(?P<d>[0-9]{1,4}-?[012][0-9]-?[0123][0-9]T[012][0-9]:?[0-5][0-9]:?[0-5][0-9](?:\\.[0-9]*)?)"
	val := "(?:" + boo + "|" + date + "|" + inte + "|" + floa + "|" + stri + ")"

	commOpt := "(?:/(?P<c>.*))?"
	keyLine := key + whiteOpt + equals + whiteOpt + val + whiteOpt + commOpt

	lineRe := "^(?:" + whiteLine + "|" + histLine + "|" + commLine + "|" + keyLine + "|" + endLine + ")$"
	return regexp.MustCompile(lineRe)
}
