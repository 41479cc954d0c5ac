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
	"os"

	"github.com/spf13/cobra"

	"github.com/mlnoga/burstlight/internal/srclist"
)

func (a *app) srclistCommand() *cobra.Command {
	var out string
	cmd:=&cobra.Command{
		Use:   "srclist [flags] report.json",
		Short: "Emit a calibration sky model from a localization report",
		Long:  "Ranks the burst candidates of a localization report and writes the strongest as point\nsources in the hyperdrive sky model format.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err:=os.ReadFile(args[0])
			if err!=nil { return err }
			var rep report
			if err:=json.Unmarshal(data, &rep); err!=nil {
				return fmt.Errorf("reading report %s: %w", args[0], err)
			}

			o:=a.settings.Srclist
			if rep.FreqHz>0 && !cmd.Flags().Changed("refFreq") { o.RefFreqHz=rep.FreqHz }
			sources, err:=srclist.Build(rep.Frames, o)
			if err!=nil { return err }
			if err:=srclist.WriteFile(out, sources); err!=nil { return err }
			for i, s:=range sources {
				fmt.Fprintf(a.stdout, "%d: frame %d RA=%.5f Dec=%.5f flux=%.2f Jy score=%.3f\n", i, s.Frame, s.RA, s.Dec, s.FluxJy, s.Score)
			}
			a.log.Info("wrote sky model", "file", out, "sources", len(sources), "freqHz", o.RefFreqHz)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "srclist.yaml", "save sky model to `file`")
	a.srclistFlags(cmd)
	return cmd
}
