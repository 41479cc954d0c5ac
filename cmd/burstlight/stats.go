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

	"github.com/mlnoga/burstlight/internal/ops"
	"github.com/mlnoga/burstlight/internal/stats"
)

const noiseBins=1024

func (a *app) statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats pattern",
		Short: "Show input image statistics",
		Long:  "Prints per-frame statistics of the FITS images matching pattern as CSV, including the\n" +
			"histogram based noise estimate.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err:=ops.Discover(args[0])
			if err!=nil { return err }
			promises:=make([]ops.Promise, len(files))
			for i, f:=range files { promises[i]=ops.NewLoadPromise(i, f, a.ctx) }
			images, err:=ops.MaterializeAll(promises, a.ctx.MaxThreads)
			if err!=nil { return err }

			fmt.Fprintf(a.stdout, "ID,File,Size,Time,%s,HistMode,HistSigma\n", (&stats.Basic{}).ToCSVHeader())
			for _, img:=range images {
				label, _, _:=img.Header.ObsTime()
				mode, sigma, err:=stats.NoiseFromHistogram(img.Data, noiseBins, 1, 99)
				if err!=nil {
					a.log.Debug("histogram noise fit failed", "id", img.ID, "error", err)
					mode, sigma = stats.FastApproxSigma(img.Data, 4096)
				}
				fmt.Fprintf(a.stdout, "%d,%s,%s,%s,%s,%.6g,%.6g\n", img.ID, img.FileName, img.DimensionsToString(),
					label, img.Stats().ToCSVLine(), mode, sigma)
			}
			return nil
		},
	}
}
