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
	"errors"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/mlnoga/burstlight/internal/fits"
	"github.com/mlnoga/burstlight/internal/flares"
	"github.com/mlnoga/burstlight/internal/helio"
	"github.com/mlnoga/burstlight/internal/plot"
)

var ErrNoSkyPosition = errors.New("best candidate has no sky position")

func (a *app) compareCommand() *cobra.Command {
	var flareList, flareID, out, timeline string
	cmd:=&cobra.Command{
		Use:   "compare [flags] pattern",
		Short: "Compare the radio burst position with a STIX flare",
		Long:  "Localizes the burst in the images matching pattern, converts its position to\n" +
			"helioprojective coordinates and tests whether it is co-spatial with the centroid of the\n" +
			"given flare. Writes a comparison plot.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err:=flares.ReadFlaresFile(flareList)
			if err!=nil { return err }
			flare, err:=flares.FindFlare(list, flareID)
			if err!=nil { return err }
			if !flare.HasPosition() { return fmt.Errorf("flare %s has no centroid position", flare.ID) }

			cube, res, err:=a.localize(cmd, args[0], false)
			if err!=nil { return err }
			best:=res.Best
			if math.IsNaN(best.RA) || math.IsNaN(best.Dec) { return ErrNoSkyPosition }

			t:=frameTime(cube, best.Frame)
			if t.IsZero() {
				t=flare.Midpoint()
				a.log.Warn("frame has no observation time, using flare midpoint", "frame", best.Frame, "time", t)
			}
			sun:=helio.SunAt(t)
			tx, ty:=sun.ToHelioprojective(best.RA, best.Dec)
			cmp:=flares.Compare(tx, ty, flare.Tx, flare.Ty, a.settings.Compare)
			fmt.Fprintf(a.stdout, "Flare %s (%s) vs burst in frame %d at %s\n", flare.ID, flare.GOESClass, best.Frame, best.Time)
			fmt.Fprintln(a.stdout, cmp.String())
			a.log.Info("compared positions", "flare", flare.ID, "separation", cmp.Separation, "verdict", cmp.Verdict())

			stixTime:=flare.Peak
			if stixTime.IsZero() { stixTime=flare.Midpoint() }
			d:=a.settings.Display
			panel:=&plot.Panel{
				Frame:          fits.NewImageFromSize(cube.Width, cube.Height, cube.Frames[best.Frame]),
				WCS:            cube.WCS,
				Sun:            sun,
				BurstX:         best.X,
				BurstY:         best.Y,
				StixTx:         flare.Tx,
				StixTy:         flare.Ty,
				Comparison:     cmp,
				MWATime:        best.Time,
				StixTime:       stixTime.Format("2006-01-02 15:04:05"),
				SmoothSigma:    d.SmoothSigma,
				Despike:        d.Despike,
				LowPercentile:  d.LowPercentile,
				HighPercentile: d.HighPercentile,
			}
			if err:=panel.WritePNG(out); err!=nil { return err }
			a.log.Info("wrote comparison plot", "file", out)

			if timeline!="" {
				if err:=plot.WriteTimelineFile(timeline, res.Frames, res.Best); err!=nil { return err }
				a.log.Info("wrote timeline", "file", timeline)
			}
			return nil
		},
	}
	f:=cmd.Flags()
	f.StringVar(&flareList, "flares", "", "STIX flare list CSV `file`")
	f.StringVar(&flareID, "flare", "", "ID of the flare to compare with")
	f.StringVar(&out, "out", "compare.png", "save comparison plot to `file`")
	f.StringVar(&timeline, "timeline", "", "write an HTML timeline of frame scores to `file`")
	f.Bool("despike", false, "apply a 3x3 median filter to the plotted frame")
	a.bind(cmd, "despike", "display.despike")
	_=cmd.MarkFlagRequired("flares")
	_=cmd.MarkFlagRequired("flare")
	a.localizeFlags(cmd)
	a.compareFlags(cmd)
	return cmd
}
