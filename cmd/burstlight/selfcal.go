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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mlnoga/burstlight/internal/selfcal"
)

func (a *app) selfcalCommand() *cobra.Command {
	var out string
	cmd:=&cobra.Command{
		Use:   "selfcal [flags] data.ms obs.metafits",
		Short: "Self-calibrate a measurement set on the localized burst",
		Long:  "Repeatedly images the measurement set, localizes the burst, emits a sky model from it,\n" +
			"calibrates against that model and applies the solutions. Each iteration works on the\n" +
			"output of the previous one.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s:=a.settings.Selfcal
			runner:=selfcal.NewExecRunner(a.log)
			loop:=&selfcal.Loop{
				Imager:     &selfcal.Imager{Exec:runner, Path:s.Imager, Options:s.Imaging},
				Calibrator: &selfcal.Calibrator{Exec:runner, Path:s.Calibrator},
				Params:     a.params(),
				Emit:       a.settings.Srclist,
				WorkDir:    s.WorkDir,
				Ctx:        a.ctx,
			}
			iters, err:=loop.Run(cmd.Context(), args[0], args[1], s.Iterations)
			for _, it:=range iters {
				fmt.Fprintf(a.stdout, "Iteration %d: best frame %d (%s) score %.3f, sky model %s, output %s\n",
					it.Index, it.Best.Frame, it.Best.Mode, it.Best.Score, it.SkyModel, it.Output)
			}
			if werr:=writeJSON(out, iters); werr!=nil && err==nil { err=werr }
			return err
		},
	}
	f:=cmd.Flags()
	f.StringVar(&out, "out", "selfcal.json", "save iteration summaries to `file`")
	f.Int("iterations", 2, "number of self-calibration iterations")
	f.String("workdir", ".", "create iteration directories in `dir`")
	f.String("imager", "wsclean", "imager executable")
	f.String("calibrator", "hyperdrive", "calibration executable")
	f.Int("size", selfcal.DefaultImagingOptions().Size, "image size in pixels")
	f.Int("intervals", selfcal.DefaultImagingOptions().Intervals, "number of imaging intervals")
	a.bind(cmd, "iterations", "selfcal.iterations")
	a.bind(cmd, "workdir", "selfcal.workdir")
	a.bind(cmd, "imager", "selfcal.imager")
	a.bind(cmd, "calibrator", "selfcal.calibrator")
	a.bind(cmd, "size", "selfcal.imaging.size")
	a.bind(cmd, "intervals", "selfcal.imaging.intervals")
	a.localizeFlags(cmd)
	a.srclistFlags(cmd)
	return cmd
}
