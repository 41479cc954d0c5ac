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
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mlnoga/burstlight/internal/asvo"
)

func (a *app) asvoCommand() *cobra.Command {
	cmd:=&cobra.Command{
		Use:   "asvo",
		Short: "Submit and follow jobs on the MWA archive",
		Long:  "Talks to the MWA All-Sky Virtual Observatory. The API key is read from the asvo.apikey\n" +
			"setting or the MWA_ASVO_API_KEY environment variable.",
	}
	f:=cmd.PersistentFlags()
	f.String("host", asvo.DefaultConfig().Host, "archive host name")
	f.Int("port", asvo.DefaultConfig().Port, "archive port")
	f.Bool("https", asvo.DefaultConfig().HTTPS, "use HTTPS")
	a.bind(cmd, "host", "asvo.host")
	a.bind(cmd, "port", "asvo.port")
	a.bind(cmd, "https", "asvo.https")

	cmd.AddCommand(a.asvoJobsCommand(cmd), a.asvoSubmitCommand(cmd), a.asvoCancelCommand(cmd),
		a.asvoDownloadCommand(cmd), a.asvoWatchCommand(cmd))
	return cmd
}

// Runs fn with a logged in archive session
func (a *app) withSession(cmd *cobra.Command, fn func(s *asvo.Session) error) error {
	s, err:=asvo.Login(cmd.Context(), a.settings.Archive, a.log)
	if err!=nil { return err }
	defer s.Close()
	return fn(s)
}

func (a *app) printJSON(raw json.RawMessage) error {
	var v any
	if err:=json.Unmarshal(raw, &v); err!=nil {
		_, err=fmt.Fprintln(a.stdout, string(raw))
		return err
	}
	data, err:=json.MarshalIndent(v, "", "  ")
	if err!=nil { return err }
	_, err=fmt.Fprintln(a.stdout, string(data))
	return err
}

func (a *app) asvoJobsCommand(parent *cobra.Command) *cobra.Command {
	cmd:=&cobra.Command{
		Use:   "jobs",
		Short: "List jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(s *asvo.Session) error {
				raw, err:=s.Jobs(cmd.Context())
				if err!=nil { return err }
				return a.printJSON(raw)
			})
		},
	}
	a.inheritBindings(parent, cmd)
	return cmd
}

func (a *app) asvoSubmitCommand(parent *cobra.Command) *cobra.Command {
	var job asvo.ConversionJob
	var download string
	cmd:=&cobra.Command{
		Use:   "submit [flags] obsid...",
		Short: "Submit conversion or download jobs for observations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(s *asvo.Session) error {
				for _, id:=range args {
					var raw json.RawMessage
					var err error
					if download!="" {
						raw, err=s.SubmitDownloadJob(cmd.Context(), id, download)
					} else {
						j:=job
						j.ObsID=id
						raw, err=s.SubmitConversionJob(cmd.Context(), j)
					}
					if err!=nil { return fmt.Errorf("observation %s: %w", id, err) }
					if err:=a.printJSON(raw); err!=nil { return err }
				}
				return nil
			})
		},
	}
	f:=cmd.Flags()
	f.Float64Var(&job.TimeRes, "timeres", 0.5, "time resolution in seconds")
	f.Float64Var(&job.FreqRes, "freqres", 40, "frequency resolution in kHz")
	f.Float64Var(&job.EdgeWidth, "edgewidth", 80, "flagged coarse channel edge width in kHz")
	f.StringVar(&job.Conversion, "conversion", "ms", "output format, ms or uvfits")
	f.BoolVar(&job.Calibrate, "calibrate", false, "apply archive calibration solutions")
	f.StringSliceVar(&job.Flags, "flag", nil, "extra boolean conversion options")
	f.StringVar(&download, "download", "", "submit a raw download job of the given type instead of a conversion")
	a.inheritBindings(parent, cmd)
	return cmd
}

func (a *app) asvoCancelCommand(parent *cobra.Command) *cobra.Command {
	cmd:=&cobra.Command{
		Use:   "cancel jobid...",
		Short: "Cancel jobs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(s *asvo.Session) error {
				for _, id:=range args {
					if err:=s.CancelJob(cmd.Context(), id); err!=nil { return fmt.Errorf("job %s: %w", id, err) }
					fmt.Fprintf(a.stdout, "Cancelled job %s\n", id)
				}
				return nil
			})
		},
	}
	a.inheritBindings(parent, cmd)
	return cmd
}

func (a *app) asvoDownloadCommand(parent *cobra.Command) *cobra.Command {
	cmd:=&cobra.Command{
		Use:   "download url file",
		Short: "Download a job product",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withSession(cmd, func(s *asvo.Session) error {
				return s.Download(cmd.Context(), args[0], args[1])
			})
		},
	}
	a.inheritBindings(parent, cmd)
	return cmd
}

func (a *app) asvoWatchCommand(parent *cobra.Command) *cobra.Command {
	var count int
	cmd:=&cobra.Command{
		Use:   "watch",
		Short: "Print job results as they are announced",
		Long:  "Follows the job result notifications of the archive, reconnecting with backoff when\nthe connection drops. Stops after count messages, or on interrupt.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err:=asvo.NewNotifier(cmd.Context(), a.settings.Archive, asvo.DefaultNotifierOptions(), a.log)
			if err!=nil { return err }
			defer n.Close()
			for i:=0; count<=0 || i<count; i++ {
				msg, err:=n.Recv(cmd.Context())
				if errors.Is(err, asvo.ErrClosed) { return nil }
				if err!=nil { return err }
				if err:=a.printJSON(msg); err!=nil { return err }
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "stop after this many messages, 0 for no limit")
	a.inheritBindings(parent, cmd)
	return cmd
}

// Applies the flag bindings of parent when child runs
func (a *app) inheritBindings(parent, child *cobra.Command) {
	for _, b:=range a.bindings {
		if b.cmd==parent { a.bindings=append(a.bindings, binding{cmd:child, flag:b.flag, key:b.key}) }
	}
}
