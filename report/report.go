// Package report renders the outcome of a lowering run: readable style
// dumps, checkstyle XML for CI tooling and a templated summary.
package report

import (
	"fmt"
	"io"
	"time"

	"sc2sx/config"
	"sc2sx/diag"
	"sc2sx/lower"
)

// Run is the outcome of one invocation, files in processing order.
type Run struct {
	ID      string
	Started time.Time
	Files   []*lower.File
}

func NewRun(id string, started time.Time) *Run {
	return &Run{ID: id, Started: started}
}

func (r *Run) Add(f *lower.File) {
	r.Files = append(r.Files, f)
}

// Counts returns number of error and warning diagnostics over all files.
func (r *Run) Counts() (errs, warnings int) {
	for _, f := range r.Files {
		errs += f.Diagnostics().Count(diag.SeverityError)
		warnings += f.Diagnostics().Count(diag.SeverityWarning)
	}
	return errs, warnings
}

// Write renders run in requested format.
func Write(w io.Writer, r *Run, format config.OutputFormat, summaryTmpl string) error {
	switch format {
	case config.OutputFormatText:
		return Text(w, r)
	case config.OutputFormatCheckstyle:
		return Checkstyle(w, r)
	case config.OutputFormatSummary:
		return Summary(w, r, summaryTmpl)
	}
	return fmt.Errorf("unsupported output format %s", format)
}

// Text writes the style dump of every file.
func Text(w io.Writer, r *Run) error {
	for i, f := range r.Files {
		if i > 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return err
			}
		}
		if _, err := io.WriteString(w, f.String()); err != nil {
			return fmt.Errorf("unable to write dump of %s: %w", f.Path, err)
		}
	}
	return nil
}
