// Package history keeps outcomes of lowering runs in a SQLite database so
// migration progress can be followed across runs.
package history

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"

	"sc2sx/report"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id       TEXT PRIMARY KEY,
	started  INTEGER NOT NULL,
	files    INTEGER NOT NULL,
	errors   INTEGER NOT NULL,
	warnings INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS components (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	file   TEXT NOT NULL,
	name   TEXT NOT NULL,
	bailed INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS components_run ON components(run_id);
CREATE TABLE IF NOT EXISTS diagnostics (
	run_id    TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	file      TEXT NOT NULL,
	component TEXT NOT NULL,
	kind      TEXT NOT NULL,
	severity  TEXT NOT NULL,
	line      INTEGER NOT NULL,
	col       INTEGER NOT NULL,
	message   TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS diagnostics_run ON diagnostics(run_id);
`

// Store is a history database. It holds a single connection and must not be
// used from several goroutines at once.
type Store struct {
	conn *sqlite.Conn
	log  *zap.Logger
}

// Summary describes one recorded run.
type Summary struct {
	ID       string
	Started  time.Time
	Files    int
	Lowered  int
	Bailed   int
	Errors   int
	Warnings int
}

// Entry is a component left untransformed by a run.
type Entry struct {
	File      string
	Component string
}

// Open opens or creates the database at path.
func Open(path string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	conn, err := sqlite.OpenConn(path, sqlite.OpenReadWrite, sqlite.OpenCreate)
	if err != nil {
		return nil, fmt.Errorf("unable to open history database '%s': %w", path, err)
	}
	if err := sqlitex.ExecuteTransient(conn, "PRAGMA foreign_keys = ON;", nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to prepare history database '%s': %w", path, err)
	}
	if err := sqlitex.ExecuteScript(conn, schema, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to prepare history database '%s': %w", path, err)
	}
	return &Store{conn: conn, log: log.Named("history")}, nil
}

func (s *Store) Close() error {
	return s.conn.Close()
}

// Save records the run in a single transaction.
func (s *Store) Save(r *report.Run) (err error) {
	if r.ID == "" {
		return errors.New("run without id cannot be recorded")
	}
	defer sqlitex.Save(s.conn)(&err)

	errs, warnings := r.Counts()
	if err := sqlitex.Execute(s.conn, `INSERT INTO runs (id, started, files, errors, warnings) VALUES (?, ?, ?, ?, ?)`,
		&sqlitex.ExecOptions{Args: []any{r.ID, r.Started.UnixNano(), len(r.Files), errs, warnings}}); err != nil {
		return fmt.Errorf("unable to record run %s: %w", r.ID, err)
	}

	for _, f := range r.Files {
		for _, c := range f.Components {
			bailed := 0
			if c.Bailed() {
				bailed = 1
			}
			if err := sqlitex.Execute(s.conn, `INSERT INTO components (run_id, file, name, bailed) VALUES (?, ?, ?, ?)`,
				&sqlitex.ExecOptions{Args: []any{r.ID, f.Path, c.Name, bailed}}); err != nil {
				return fmt.Errorf("unable to record component %s of %s: %w", c.Name, f.Path, err)
			}
		}
		for _, d := range f.Diagnostics().All() {
			if err := sqlitex.Execute(s.conn, `INSERT INTO diagnostics (run_id, file, component, kind, severity, line, col, message) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				&sqlitex.ExecOptions{Args: []any{r.ID, f.Path, d.Component, d.Kind.String(), d.Severity.String(), d.Loc.Line, d.Loc.Column, d.String()}}); err != nil {
				return fmt.Errorf("unable to record diagnostic of %s: %w", f.Path, err)
			}
		}
	}
	s.log.Debug("Run recorded", zap.String("run", r.ID), zap.Int("files", len(r.Files)))
	return nil
}

// Runs returns the most recent runs first. limit <= 0 returns all of them.
func (s *Store) Runs(limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = -1
	}
	var runs []Summary
	err := sqlitex.Execute(s.conn, `
SELECT r.id, r.started, r.files, r.errors, r.warnings,
	(SELECT COUNT(*) FROM components c WHERE c.run_id = r.id AND c.bailed = 0),
	(SELECT COUNT(*) FROM components c WHERE c.run_id = r.id AND c.bailed = 1)
FROM runs r ORDER BY r.started DESC, r.id DESC LIMIT ?`,
		&sqlitex.ExecOptions{
			Args: []any{limit},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				runs = append(runs, Summary{
					ID:       stmt.ColumnText(0),
					Started:  time.Unix(0, stmt.ColumnInt64(1)),
					Files:    int(stmt.ColumnInt64(2)),
					Errors:   int(stmt.ColumnInt64(3)),
					Warnings: int(stmt.ColumnInt64(4)),
					Lowered:  int(stmt.ColumnInt64(5)),
					Bailed:   int(stmt.ColumnInt64(6)),
				})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("unable to list runs: %w", err)
	}
	return runs, nil
}

// Left returns components the run left untransformed ordered by file and
// name.
func (s *Store) Left(run string) ([]Entry, error) {
	var entries []Entry
	err := sqlitex.Execute(s.conn, `SELECT file, name FROM components WHERE run_id = ? AND bailed = 1 ORDER BY file, name`,
		&sqlitex.ExecOptions{
			Args: []any{run},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				entries = append(entries, Entry{File: stmt.ColumnText(0), Component: stmt.ColumnText(1)})
				return nil
			},
		})
	if err != nil {
		return nil, fmt.Errorf("unable to list components of run %s: %w", run, err)
	}
	return entries, nil
}

// Prune removes all but the keep most recent runs and returns how many were
// removed.
func (s *Store) Prune(keep int) (removed int, err error) {
	defer sqlitex.Save(s.conn)(&err)

	err = sqlitex.Execute(s.conn, `DELETE FROM runs WHERE id NOT IN (SELECT id FROM runs ORDER BY started DESC, id DESC LIMIT ?)`,
		&sqlitex.ExecOptions{Args: []any{keep}})
	if err != nil {
		return 0, fmt.Errorf("unable to prune runs: %w", err)
	}
	return s.conn.Changes(), nil
}
