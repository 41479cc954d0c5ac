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
	"github.com/spf13/cobra"

	"github.com/mlnoga/burstlight/internal/rest"
)

func (a *app) serveCommand() *cobra.Command {
	cmd:=&cobra.Command{
		Use:   "serve",
		Short: "Serve the localization API and web interface",
		Long:  "Starts an HTTP server for localizing bursts in image sequences below the data directory.\n" +
			"Optionally changes root and drops privileges before serving.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			o:=a.settings.Server
			o.Version=version
			o.Params=a.params()
			o.Emit=a.settings.Srclist
			return rest.NewServer(a.ctx, o).Run(cmd.Context())
		},
	}
	d:=rest.DefaultOptions()
	f:=cmd.Flags()
	f.String("addr", d.Addr, "listen on `address`")
	f.String("datadir", d.DataDir, "resolve file patterns relative to `dir`")
	f.String("chroot", d.Chroot, "change root to `dir` before serving")
	f.Int("setuid", d.Setuid, "switch to user `id` before serving, negative to keep")
	a.bind(cmd, "addr", "server.addr")
	a.bind(cmd, "datadir", "server.datadir")
	a.bind(cmd, "chroot", "server.chroot")
	a.bind(cmd, "setuid", "server.setuid")
	return cmd
}
