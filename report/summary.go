package report

import (
	"bytes"
	"fmt"
	"io"
	"text/template"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"

	"sc2sx/config"
)

type fileValues struct {
	Path        string
	Lowered     []string
	Bailed      []string
	Diagnostics []string
}

type summaryValues struct {
	ID       string
	Started  time.Time
	Files    []fileValues
	Errors   int
	Warnings int
}

func (r *Run) summaryValues() *summaryValues {
	v := &summaryValues{ID: r.ID, Started: r.Started}
	v.Errors, v.Warnings = r.Counts()
	for _, f := range r.Files {
		fv := fileValues{Path: f.Path}
		for _, c := range f.Components {
			if c.Bailed() {
				fv.Bailed = append(fv.Bailed, c.Name)
			} else {
				fv.Lowered = append(fv.Lowered, c.Name)
			}
		}
		for _, d := range f.Diagnostics().All() {
			fv.Diagnostics = append(fv.Diagnostics, d.String())
		}
		v.Files = append(v.Files, fv)
	}
	return v
}

// Summary expands tmpl over the run. Template has slim-sprig functions
// available.
func Summary(w io.Writer, r *Run, tmpl string) error {
	name := string(config.SummaryTemplateFieldName)
	t, err := template.New(name).Funcs(sprig.FuncMap()).Parse(tmpl)
	if err != nil {
		return fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	buf := new(bytes.Buffer)
	if err := t.Execute(buf, r.summaryValues()); err != nil {
		return fmt.Errorf("unable to expand template field %s: %w", name, err)
	}
	if buf.Len() > 0 && buf.Bytes()[buf.Len()-1] != '\n' {
		buf.WriteByte('\n')
	}
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("unable to write summary: %w", err)
	}
	return nil
}
