package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"sc2sx/history"
	"sc2sx/state"
)

// History lists runs recorded by "lower --history" or components left
// untransformed by one of them.
func History(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("history")

	db := cmd.Args().First()
	if len(db) == 0 {
		return errors.New("no history database has been specified")
	}
	if cmd.Args().Len() > 1 {
		log.Warn("Malformed command line, too many databases", zap.Strings("ignoring", cmd.Args().Slice()[1:]))
	}
	if _, err := os.Stat(db); err != nil {
		return fmt.Errorf("history database was not found: %w", err)
	}

	store, err := history.Open(db, log)
	if err != nil {
		return err
	}
	defer func() {
		if er := store.Close(); er != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close history database '%s': %w", db, er))
		}
	}()

	out := io.Writer(os.Stdout)
	if w := cmd.Root().Writer; w != nil {
		out = w
	}

	if keep := cmd.Int("prune"); keep > 0 {
		removed, err := store.Prune(keep)
		if err != nil {
			return err
		}
		log.Info("History pruned", zap.Int("removed", removed), zap.Int("kept", keep))
	}

	if run := cmd.String("left"); len(run) > 0 {
		entries, err := store.Left(run)
		if err != nil {
			return err
		}
		for _, e := range entries {
			if _, err := fmt.Fprintf(out, "%s: %s\n", e.File, e.Component); err != nil {
				return err
			}
		}
		return nil
	}

	runs, err := store.Runs(cmd.Int("limit"))
	if err != nil {
		return err
	}
	for _, r := range runs {
		if _, err := fmt.Fprintf(out, "%s  %s  files %d  lowered %d  left %d  errors %d  warnings %d\n",
			r.ID, r.Started.Local().Format("2006-01-02 15:04:05"), r.Files, r.Lowered, r.Bailed, r.Errors, r.Warnings); err != nil {
			return err
		}
	}
	return nil
}
