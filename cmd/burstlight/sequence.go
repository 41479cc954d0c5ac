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

	"github.com/mlnoga/burstlight/internal/sequence"
)

func (a *app) sequenceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sequence dir",
		Short: "Combine XX and YY images into a Stokes I image sequence",
		Long:  "Pairs the XX and YY polarization images of each imaging interval in dir and writes\n" +
			"their mean as " + sequence.StokesIPattern + ".",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files, err:=sequence.Build(args[0], a.ctx)
			if err!=nil { return err }
			for _, f:=range files { fmt.Fprintln(a.stdout, f) }
			a.log.Info("wrote Stokes I sequence", "dir", args[0], "frames", len(files))
			return nil
		},
	}
}
