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
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime/debug"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/klauspost/cpuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mlnoga/burstlight/internal/burst"
	"github.com/mlnoga/burstlight/internal/config"
	"github.com/mlnoga/burstlight/internal/logging"
	"github.com/mlnoga/burstlight/internal/ops"
)

const version = "0.3.0"

const banner = `Burstlight Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.
`

// A command line flag bound to a configuration key
type binding struct {
	cmd  *cobra.Command
	flag string
	key  string
}

// Shared state of a command line invocation
type app struct {
	stdout     io.Writer
	stderr     io.Writer
	start      time.Time
	root       *cobra.Command
	bindings   []binding

	configFile string
	cpuprofile string
	output     string  // main output file of the running command, names the log file for %auto

	settings   *config.Settings
	log        *slog.Logger
	ctx        *ops.Context
	closers    []func() error
	ready      bool
}

func main() {
	debug.SetGCPercent(10)
	ctx, stop:=signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a:=newApp(os.Stdout, os.Stderr)
	err:=a.root.ExecuteContext(ctx)
	a.finish(err)
	stop()
	if err!=nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err.Error())
		if errors.Is(err, context.Canceled) { os.Exit(130) }
		os.Exit(1)
	}
}

func newApp(stdout, stderr io.Writer) *app {
	a:=&app{stdout:stdout, stderr:stderr, start:time.Now()}
	root:=&cobra.Command{
		Use:           "burstlight",
		Short:         "Solar radio burst localization",
		Long:          "Localizes solar radio bursts in imaged interferometer data, emits calibration sky models\nand compares burst positions with hard X-ray flares.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	a.root=root

	pf:=root.PersistentFlags()
	pf.StringVar(&a.configFile, "config", "", "read settings from `file` instead of burstlight.yaml")
	pf.String("log", logging.Auto, "save log output to `file`. `%auto` replaces suffix of output file with .log")
	pf.Bool("debug", false, "enable debug output")
	pf.Int("threads", 0, "number of worker threads, 0 for all logical cores")
	pf.StringVar(&a.cpuprofile, "cpuprofile", "", "write cpu profile to `file`")
	a.bind(root, "log", "log.file")
	a.bind(root, "debug", "log.debug")
	a.bind(root, "threads", "threads")

	root.AddCommand(
		a.localizeCommand(),
		a.srclistCommand(),
		a.selfcalCommand(),
		a.sequenceCommand(),
		a.compareCommand(),
		a.flaresCommand(),
		a.statsCommand(),
		a.asvoCommand(),
		a.serveCommand(),
		legalCommand(stdout),
		versionCommand(stdout),
	)
	return a
}

// Registers a flag of cmd as the command line source of a configuration key
func (a *app) bind(cmd *cobra.Command, flag, key string) {
	a.bindings=append(a.bindings, binding{cmd:cmd, flag:flag, key:key})
}

// Loads settings, sets up logging and the execution context, and starts profiling
func (a *app) setup(cmd *cobra.Command) error {
	v, err:=config.New(a.configFile)
	if err!=nil { return err }
	if err:=a.bindFlags(v, cmd); err!=nil { return err }
	s, err:=config.Load(v)
	if err!=nil { return err }
	a.settings=s

	if f:=cmd.Flags().Lookup("out"); f!=nil { a.output=f.Value.String() }
	lo:=s.Log
	lo.File=logging.FileName(lo.File, a.output)
	log, closeLog, err:=logging.New(a.stderr, lo)
	if err!=nil { return err }
	a.log=log
	a.closers=append(a.closers, closeLog)

	a.ctx=ops.NewContext(log, s.Threads)
	if s.MemoryMB>0 { a.ctx.CubeMemoryMB=s.MemoryMB }
	a.ready=true

	fmt.Fprint(a.stderr, banner)
	log.Info("system", "cpu", cpuid.CPU.BrandName, "physicalCores", cpuid.CPU.PhysicalCores,
		"logicalCores", cpuid.CPU.LogicalCores, "threads", a.ctx.MaxThreads,
		"memoryMB", a.ctx.MemoryMB, "cubeBudgetMB", a.ctx.CubeMemoryMB)
	if v.ConfigFileUsed()!="" { log.Info("read settings", "file", v.ConfigFileUsed()) }
	if lo.File!="" { log.Debug("logging to file", "file", lo.File) }

	if a.cpuprofile!="" {
		f, err:=os.Create(a.cpuprofile)
		if err!=nil { return fmt.Errorf("could not create CPU profile: %w", err) }
		if err:=pprof.StartCPUProfile(f); err!=nil {
			f.Close()
			return fmt.Errorf("could not start CPU profile: %w", err)
		}
		a.closers=append(a.closers, func() error { pprof.StopCPUProfile(); return f.Close() })
	}
	return nil
}

// Binds the persistent flags and the flags of the running command to their configuration keys.
// Flags left at their defaults do not override the configuration file or environment
func (a *app) bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for _, b:=range a.bindings {
		var flags=b.cmd.Flags()
		switch {
		case b.cmd==a.root:
			flags=a.root.PersistentFlags()
		case b.cmd!=cmd:
			continue
		}
		if err:=v.BindPFlag(b.key, flags.Lookup(b.flag)); err!=nil {
			return fmt.Errorf("binding flag %s: %w", b.flag, err)
		}
	}
	return nil
}

// Localization parameters with the worker count of the execution context
func (a *app) params() burst.Params {
	p:=a.settings.Localize
	p.MaxThreads=a.ctx.MaxThreads
	return p
}

// Prints the elapsed time and releases profiling and log resources
func (a *app) finish(err error) {
	if a.ready {
		if err!=nil {
			logging.Fatal(a.log, "command failed", "error", err)
		}
		fmt.Fprintf(a.stderr, "\nDone after %v\n", time.Since(a.start))
	}
	for i:=len(a.closers)-1; i>=0; i-- {
		if cerr:=a.closers[i](); cerr!=nil { fmt.Fprintf(a.stderr, "Error: %s\n", cerr.Error()) }
	}
	a.closers=nil
}

func versionCommand(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(w, "Version %s\n", version)
		},
	}
}
