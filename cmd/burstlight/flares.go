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
	"bufio"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mlnoga/burstlight/internal/flares"
)

func (a *app) flaresCommand() *cobra.Command {
	var out string
	var all bool
	cmd:=&cobra.Command{
		Use:   "flares [flags] flares.csv observations.csv",
		Short: "Find flares observed by the telescope",
		Long:  "Matches a STIX flare list against a list of telescope observations, computes the\n" +
			"fraction of each flare covered by observations during daylight at the site and lists\n" +
			"nearby calibrator observations.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err:=flares.ReadFlaresFile(args[0])
			if err!=nil { return err }
			if !all {
				visible:=flares.VisibleFromEarth(list)
				a.log.Info("selected flares visible from Earth", "total", len(list), "visible", len(visible))
				list=visible
			}
			obs, err:=flares.ReadObservationsFile(args[1])
			if err!=nil { return err }

			matches, sum, err:=flares.Overlap(list, obs, a.settings.Flares)
			if err!=nil { return err }
			fmt.Fprintln(a.stdout, sum.String())

			f, err:=os.Create(out)
			if err!=nil { return err }
			w:=bufio.NewWriter(f)
			if err:=flares.WriteCSV(w, matches); err!=nil { f.Close(); return err }
			if err:=w.Flush(); err!=nil { f.Close(); return err }
			if err:=f.Close(); err!=nil { return err }
			a.log.Info("wrote flare overlap", "file", out, "flares", len(matches))
			return nil
		},
	}
	f:=cmd.Flags()
	f.StringVar(&out, "out", "flare_overlap.csv", "save matching flares to `file`")
	f.BoolVar(&all, "all", false, "include flares not visible from Earth")
	f.Int("minPercent", flares.DefaultOverlapOptions().MinPercent, "minimum overlap percentage")
	f.Bool("daylightOnly", true, "count only overlap during daylight at the site")
	f.Duration("calWindow", flares.DefaultOverlapOptions().CalibratorWindow, "list calibrators starting within this time of the first observation")
	a.bind(cmd, "minPercent", "flares.minpercent")
	a.bind(cmd, "daylightOnly", "flares.daylightonly")
	a.bind(cmd, "calWindow", "flares.calibratorwindow")
	return cmd
}
