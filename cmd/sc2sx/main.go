package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"sc2sx/batch"
	"sc2sx/config"
	"sc2sx/misc"
	"sc2sx/state"
)

// before runs once command line is parsed: it loads configuration, opens
// debug report and logs for the selected command.
func before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	var err error

	if cmd.NArg() == 0 {
		return ctx, nil
	}

	env := state.EnvFromContext(ctx)

	configFile := cmd.String("config")
	if env.Cfg, err = config.LoadConfiguration(configFile); err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if cmd.Bool("debug") {
		if env.Rpt, err = env.Cfg.Reporting.Prepare(env.Run.String()); err != nil {
			return ctx, fmt.Errorf("unable to prepare debug reporter: %w", err)
		}
		// effective configuration goes into report when it differs from defaults
		if len(configFile) > 0 {
			if data, err := config.Dump(env.Cfg); err == nil {
				env.Rpt.StoreData(fmt.Sprintf("config/%s", filepath.Base(configFile)), data)
			}
		}
	}
	if env.Log, err = env.Cfg.Logging.Prepare(env.Rpt); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.RedirectStdLog()

	env.Log.Debug("Program started",
		zap.Strings("args", os.Args),
		zap.Stringer("run", env.Run),
		zap.String("ver", misc.GetVersion()),
		zap.String("runtime", runtime.Version()),
		zap.String("hash", misc.GetGitHash()))

	if env.Rpt != nil {
		env.Log.Info("Creating debug report", zap.String("location", env.Rpt.Name()))
	}
	if len(configFile) == 0 && env.Log != nil {
		env.Log.Info("Using defaults (no configuration file)")
	}
	return ctx, nil
}

func after(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)

	if env.Log != nil {
		env.Log.Debug("Program ended", zap.Duration("elapsed", env.Uptime()), zap.Strings("parsed args", cmd.Args().Slice()))
	}

	env.RestoreStdLog()

	// logs are flushed, from here on errors go to stderr
	if env.Rpt != nil {
		if er := env.Rpt.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close debug report: %w", er))
		}
	}
	// drop panic log nobody wrote to
	if env.Cfg != nil && len(env.Cfg.Logging.FileLogger.Destination) > 0 {
		debug.SetCrashOutput(nil, debug.CrashOptions{})
		fname := filepath.Join(filepath.Dir(env.Cfg.Logging.FileLogger.Destination), misc.GetAppName()+"-panic.log")
		if fi, er := os.Stat(fname); er == nil && fi.Size() == 0 {
			if er := os.Remove(fname); er != nil {
				err = multierr.Append(err, fmt.Errorf("unable to remove empty panic log file '%s': %w", fname, er))
			}
		}
	}
	return
}

// Commands return plain errors, cli.Exit is not used. loggedErr is set when
// the error already reached the log.
var loggedErr bool

// onExitErr is called before after(), while logs are still open.
func onExitErr(ctx context.Context, _ *cli.Command, err error) {
	if log := state.EnvFromContext(ctx).Log; log != nil {
		log.Error("Program ended with error", zap.Error(err))
		loggedErr = true
	}
}

func onUsageErr(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return err
}

func onUnknownCommand(ctx context.Context, _ *cli.Command, name string) {
	state.EnvFromContext(ctx).Log.Warn("Unknown command, nothing to do", zap.String("command", name))
}

func main() {
	// lowering checks context between files, interrupt stops the batch
	ctx, stop := signal.NotifyContext(state.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            misc.GetAppName(),
		Usage:           "lowers styled component templates into static atomic style objects",
		Version:         misc.GetVersion() + " (" + runtime.Version() + ") : " + misc.GetGitHash(),
		HideHelpCommand: true,
		Before:          before,
		After:           after,
		OnUsageError:    onUsageErr,
		ExitErrHandler:  onExitErr,
		CommandNotFound: onUnknownCommand,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, DefaultText: "", Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "changes program behavior to help troubleshooting, produces report archive"},
		},
		Commands: []*cli.Command{
			{
				Name:         "lower",
				Usage:        "Lowers components described by fixture file(s) and reports the outcome",
				OnUsageError: onUsageErr,
				Action:       batch.Run,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "format", Aliases: []string{"f"},
						Usage: "output `TYPE` overriding configuration (supported types: " + strings.Join(config.OutputFormatNames(), ", ") + ")"},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "write output to `FILE` instead of STDOUT"},
					&cli.StringFlag{Name: "history", Usage: "record run outcome in SQLite database `FILE`"},
					&cli.StringFlag{Name: "encoding", Usage: "decode fixtures from `CHARSET` instead of UTF-8"},
					&cli.StringFlag{Name: "force-zip-cp", Usage: "force `ENCODING` for zip file names (when not UTF-8)"},
				},
				ArgsUsage: "SOURCE...",
				CustomHelpTemplate: fmt.Sprintf(`%s
SOURCE:
    path to fixture(s) to process, following forms are supported:
        path to a file: "[path_to_file]Button.yaml"
        path to a directory: "[path_to_directory]directory" - recursively process all *.yaml and *.yml files under directory (symbolic links are not followed)
        path to zip archive: "[path_to_archive]fixtures.zip" - process all *.yaml and *.yml files in the archive (archives are also recognized by content)

	Fixtures are processed sequentially in natural order of their names.
	Program fails when diagnostics match configured "lowering.fail_on" policy.
`, cli.CommandHelpTemplate),
			},
			{
				Name:         "history",
				Usage:        "Lists runs recorded with \"lower --history\"",
				OnUsageError: onUsageErr,
				Action:       batch.History,
				Flags: []cli.Flag{
					&cli.IntFlag{Name: "limit", Aliases: []string{"n"}, Usage: "show at most `N` most recent runs"},
					&cli.IntFlag{Name: "prune", Usage: "keep only `N` most recent runs in the database"},
					&cli.StringFlag{Name: "left", Usage: "list components left untransformed by run `ID`"},
				},
				ArgsUsage: "DATABASE",
			},
			{
				Name:  "dumpconfig",
				Usage: "Dumps either default or actual configuration (YAML)",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "default", Usage: "output default embedded configuration"},
				},
				OnUsageError: onUsageErr,
				Action:       dumpConfig,
				ArgsUsage:    "DESTINATION",
				CustomHelpTemplate: fmt.Sprintf(`%s

DESTINATION:
    file name to write configuration to, if absent - STDOUT

Writes effective configuration: embedded defaults merged with the file given
by --config. With --default only the embedded defaults are written.
`, cli.CommandHelpTemplate),
			},
		},
	}

	var err error
	// os.Exit skips deferred calls, this one must stay last
	defer func() {
		stop()
		if err != nil {
			if !loggedErr {
				fmt.Fprintf(os.Stderr, "Program ended with error: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}

func dumpConfig(ctx context.Context, cmd *cli.Command) (err error) {
	env := state.EnvFromContext(ctx)
	if cmd.Args().Len() > 1 {
		env.Log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}

	var (
		data []byte
		kind = "actual"
	)
	if cmd.Bool("default") {
		kind = "default"
		data, err = config.Prepare()
	} else {
		data, err = config.Dump(env.Cfg)
	}
	if err != nil {
		return fmt.Errorf("unable to get configuration: %w", err)
	}

	fname := cmd.Args().Get(0)
	if len(fname) == 0 {
		env.Log.Info("Writing configuration", zap.String("state", kind), zap.String("file", "STDOUT"))
		_, err = os.Stdout.Write(data)
		return err
	}
	env.Log.Info("Writing configuration", zap.String("state", kind), zap.String("file", fname))
	if err := os.WriteFile(fname, data, 0644); err != nil {
		return fmt.Errorf("unable to write configuration to '%s': %w", fname, err)
	}
	return nil
}
