// Package batch implements the lower command: fixtures from every source
// are lowered sequentially and the outcome is rendered once at the end.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/gosimple/slug"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/ianaindex"

	"sc2sx/config"
	"sc2sx/fixture"
	"sc2sx/history"
	"sc2sx/lower"
	"sc2sx/patterns"
	"sc2sx/report"
	"sc2sx/source"
	"sc2sx/state"
)

// ErrPolicy is returned when diagnostics fail the run.
var ErrPolicy = errors.New("diagnostics fail the run")

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("lower")

	sources := cmd.Args().Slice()
	if len(sources) == 0 {
		return errors.New("no input source has been specified")
	}

	format := env.Cfg.Output.Format
	if name := cmd.String("format"); len(name) > 0 {
		if format, err = config.ParseOutputFormat(name); err != nil {
			log.Warn("Unknown output format requested, using configured one", zap.Error(err), zap.Stringer("format", env.Cfg.Output.Format))
			format = env.Cfg.Output.Format
		}
	}

	opts := sourceOptions(cmd, log)

	log.Info("Processing starting", zap.Strings("sources", sources), zap.Stringer("format", format))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	run := report.NewRun(env.Run.String(), env.Started())
	if err := process(ctx, sources, run, log, opts...); err != nil {
		return err
	}

	out := io.Writer(os.Stdout)
	if dst := cmd.String("out"); len(dst) > 0 {
		f, err := os.Create(dst)
		if err != nil {
			return fmt.Errorf("unable to create destination file '%s': %w", dst, err)
		}
		defer func() {
			if er := f.Close(); er != nil {
				err = multierr.Append(err, fmt.Errorf("unable to close destination file '%s': %w", dst, er))
			}
		}()
		out = f
	}
	if err := report.Write(out, run, format, env.Cfg.Output.SummaryTemplate); err != nil {
		return err
	}

	if db := cmd.String("history"); len(db) > 0 {
		if err := record(db, run, log); err != nil {
			return err
		}
	}

	errs, warnings := run.Counts()
	log.Info("Diagnostics", zap.Int("errors", errs), zap.Int("warnings", warnings), zap.Int("files", len(run.Files)))
	if env.Cfg.Lowering.FailOn.Fails(errs, warnings) {
		return fmt.Errorf("%w: %d error(s), %d warning(s) with fail_on %s", ErrPolicy, errs, warnings, env.Cfg.Lowering.FailOn)
	}
	return nil
}

// process lowers every fixture of every source. Fixtures that cannot be
// read or decoded are logged and skipped, their count is reported as an
// error at the end.
func process(ctx context.Context, sources []string, run *report.Run, log *zap.Logger, opts ...source.Option) error {
	env := state.EnvFromContext(ctx)

	engine := lower.NewEngine(nil, log, lower.WithPolicy(patterns.Policy{
		TransientPrefix: env.Cfg.Lowering.TransientPrefix,
		KeepProps:       env.Cfg.Lowering.KeepSet(),
	}))

	failed := 0
	for _, src := range sources {
		inputs, err := source.Collect(ctx, src, opts...)
		if err != nil {
			return fmt.Errorf("unable to process source '%s': %w", src, err)
		}
		if len(inputs) == 0 {
			log.Warn("Source has no fixtures", zap.String("source", src))
		}
		for _, in := range inputs {
			// files are independent, cancellation is checked between them
			if err := ctx.Err(); err != nil {
				return err
			}
			seq := failed + len(run.Files) + 1
			data, err := in.Read()
			if err != nil {
				log.Error("Unable to read fixture", zap.String("fixture", in.Name), zap.Error(err))
				failed++
				continue
			}
			env.Rpt.StoreData(reportName("inputs", in.Name, seq, ".yaml"), data)

			f, err := lowerInput(engine, in.Name, data, log)
			if err != nil {
				log.Error("Unable to process fixture", zap.String("fixture", in.Name), zap.Error(err))
				failed++
				continue
			}
			run.Add(f)
			env.Rpt.StoreData(reportName("dumps", in.Name, seq, ".txt"), []byte(f.String()))
		}
	}
	if failed > 0 {
		return fmt.Errorf("unable to process %d fixture(s)", failed)
	}
	return nil
}

// sourceOptions interprets encoding flags. Unknown encodings are reported
// and ignored.
func sourceOptions(cmd *cli.Command, log *zap.Logger) []source.Option {
	var opts []source.Option
	if label := cmd.String("encoding"); len(label) > 0 {
		if enc, name := charset.Lookup(label); enc == nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", label))
		} else {
			log.Debug("Decoding fixtures", zap.String("charset", name))
			opts = append(opts, source.WithEncoding(enc))
		}
	}
	// zip does not define file name encoding, old archives may need a code page
	if cp := cmd.String("force-zip-cp"); len(cp) > 0 {
		enc, err := ianaindex.IANA.Encoding(cp)
		if err != nil || enc == nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
		} else {
			n, _ := ianaindex.IANA.Name(enc)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
			opts = append(opts, source.WithCodePage(enc))
		}
	}
	return opts
}

func record(db string, run *report.Run, log *zap.Logger) (err error) {
	store, err := history.Open(db, log)
	if err != nil {
		return err
	}
	defer func() {
		if er := store.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close history database '%s': %w", db, er))
		}
	}()
	if err := store.Save(run); err != nil {
		return err
	}
	log.Info("Run recorded", zap.String("history", db), zap.String("run", run.ID))
	return nil
}

func lowerInput(engine *lower.Engine, name string, data []byte, log *zap.Logger) (*lower.File, error) {
	fx, err := fixture.Parse(name, data)
	if err != nil {
		return nil, err
	}
	f, resolver, err := fx.Build(log)
	if err != nil {
		return nil, err
	}
	engine.WithResolver(resolver).Lower(f)
	return f, nil
}

// reportName builds unique, archive friendly name of a report entry, seq
// is the position of the fixture in the run.
func reportName(dir, name string, seq int, ext string) string {
	return fmt.Sprintf("%s/%03d-%s%s", dir, seq, slug.Make(path.Base(name)), ext)
}
