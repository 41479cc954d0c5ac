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
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mlnoga/burstlight/internal/burst"
	"github.com/mlnoga/burstlight/internal/helio"
	"github.com/mlnoga/burstlight/internal/ops"
	"github.com/mlnoga/burstlight/internal/plot"
	"github.com/mlnoga/burstlight/internal/srclist"
)

// Localization report written as JSON
type report struct {
	Pattern  string            `json:"pattern"`
	Files    []string          `json:"files"`
	Width    int               `json:"width"`
	Height   int               `json:"height"`
	FreqHz   float64           `json:"freqHz,omitempty"`
	Params   burst.Params      `json:"params"`
	Best     burst.Candidate   `json:"best"`
	Tx       *float64          `json:"tx,omitempty"` // helioprojective position of the best candidate in arcsec
	Ty       *float64          `json:"ty,omitempty"`
	Frames   []burst.Candidate `json:"frames"`
}

func (a *app) localizeCommand() *cobra.Command {
	var out, sky, diag, timeline string
	cmd:=&cobra.Command{
		Use:   "localize [flags] [pattern]",
		Short: "Localize a radio burst in a time sequence of images",
		Long:  "Localizes the radio burst in the FITS images matching pattern, which defaults to the\nconfigured pattern. Writes a JSON report and optionally a sky model, diagnostics and a timeline.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern:=a.settings.Pattern
			if len(args)>0 { pattern=args[0] }

			cube, res, err:=a.localize(cmd, pattern, diag!="")
			if err!=nil { return err }
			rep:=newReport(pattern, cube, res, a.params())
			a.printBest(rep)

			if err:=writeJSON(out, rep); err!=nil { return err }
			a.log.Info("wrote report", "file", out)

			if sky!="" {
				sources, err:=srclist.Build(res.Frames, a.emitOptions(cube))
				if err!=nil { return err }
				if err:=srclist.WriteFile(sky, sources); err!=nil { return err }
				a.log.Info("wrote sky model", "file", sky, "sources", len(sources))
			}
			if diag!="" {
				if err:=ops.WriteDiagnostics(diag, cube, res, a.settings.Display.DiagFrames, a.ctx); err!=nil { return err }
			}
			if timeline!="" {
				if err:=plot.WriteTimelineFile(timeline, res.Frames, res.Best); err!=nil { return err }
				a.log.Info("wrote timeline", "file", timeline)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "burst.json", "save localization report to `file`")
	cmd.Flags().StringVar(&sky, "srclist", "", "also emit a hyperdrive sky model to `file`")
	cmd.Flags().StringVar(&diag, "diag", "", "write background, mask and significance maps to `dir`")
	cmd.Flags().StringVar(&timeline, "timeline", "", "write an HTML timeline of frame scores to `file`")
	a.localizeFlags(cmd)
	a.srclistFlags(cmd)
	return cmd
}

// Loads the cube for pattern and localizes the burst
func (a *app) localize(cmd *cobra.Command, pattern string, keepMaps bool) (*ops.Cube, *burst.Result, error) {
	cube, err:=ops.LoadCube(cmd.Context(), a.ctx, pattern)
	if err!=nil { return nil, nil, err }
	p:=a.params()
	p.KeepMaps=keepMaps
	res, err:=burst.Localize(cmd.Context(), cube.Cube, p, a.log)
	if err!=nil { return nil, nil, err }
	return cube, res, nil
}

// Emission options with the reference frequency of the cube, if known
func (a *app) emitOptions(cube *ops.Cube) srclist.Options {
	o:=a.settings.Srclist
	if cube.WCS!=nil && cube.WCS.FreqHz>0 { o.RefFreqHz=cube.WCS.FreqHz }
	return o
}

func newReport(pattern string, cube *ops.Cube, res *burst.Result, p burst.Params) *report {
	rep:=&report{
		Pattern: pattern,
		Files:   cube.Files,
		Width:   cube.Width,
		Height:  cube.Height,
		Params:  p,
		Best:    res.Best,
		Frames:  res.Frames,
	}
	if cube.WCS!=nil { rep.FreqHz=cube.WCS.FreqHz }
	if t:=frameTime(cube, res.Best.Frame); !t.IsZero() && !math.IsNaN(res.Best.RA) && !math.IsNaN(res.Best.Dec) {
		tx, ty:=helio.ToHelioprojective(res.Best.RA, res.Best.Dec, t)
		rep.Tx, rep.Ty = &tx, &ty
	}
	return rep
}

// Observation time of the given frame, zero if unknown
func frameTime(cube *ops.Cube, frame int) time.Time {
	if frame<0 || frame>=len(cube.ObsTimes) { return time.Time{} }
	return cube.ObsTimes[frame]
}

func (a *app) printBest(rep *report) {
	b:=rep.Best
	fmt.Fprintf(a.stdout, "Best frame %d at %s: mode %s, x=%.2f y=%.2f, peak z=%.2f, score=%.3f, %d peaks\n",
		b.Frame, b.Time, b.Mode, b.X, b.Y, b.PeakZ, b.Score, b.Peaks)
	if !math.IsNaN(b.RA) {
		fmt.Fprintf(a.stdout, "Sky position RA=%.5f Dec=%.5f deg\n", b.RA, b.Dec)
	}
	if rep.Tx!=nil {
		fmt.Fprintf(a.stdout, "Helioprojective Tx=%.1f Ty=%.1f arcsec\n", *rep.Tx, *rep.Ty)
	}
}

func writeJSON(fileName string, v any) error {
	data, err:=json.MarshalIndent(v, "", "  ")
	if err!=nil { return err }
	return os.WriteFile(fileName, append(data, '\n'), 0o644)
}
