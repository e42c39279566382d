package config

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/maruel/natural"

	"sc2sx/misc"
)

type ReporterConfig struct {
	Destination string `yaml:"destination" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
}

// Prepare creates empty debug report for the run. When destination cannot
// be created the report goes to a temporary file.
func (conf *ReporterConfig) Prepare(run string) (*Report, error) {
	r := &Report{run: run, entries: make(map[string]entry)}

	if f, err := os.Create(conf.Destination); err == nil {
		r.file = f
	} else if f, err = os.CreateTemp("", misc.GetAppName()+"-report.*.zip"); err == nil {
		r.file = f
	} else {
		return nil, fmt.Errorf("unable to create report: %w", err)
	}
	return r, nil
}

// entry is either a file to be read when the report is finalized (logs are
// still written to during the run) or data captured at the time of a call.
type entry struct {
	path  string
	data  []byte
	stamp time.Time
}

// Report collects configuration, fixtures, dumps and logs of one run into a
// zip archive. All methods are no-ops on nil report so callers do not have to
// check whether debugging was requested.
// NOTE: not to be used concurrently.
type Report struct {
	run     string
	entries map[string]entry
	file    *os.File
}

// Run returns id of the run this report belongs to.
func (r *Report) Run() string {
	if r == nil {
		return ""
	}
	return r.run
}

// Name returns absolute name of the archive.
func (r *Report) Name() string {
	if r == nil || r.file == nil {
		return ""
	}
	if n, err := filepath.Abs(r.file.Name()); err == nil {
		return n
	}
	return r.file.Name()
}

// Store registers file to be archived under name when the report is closed.
// Storing a different file under the same name panics.
func (r *Report) Store(name, path string) {
	if r == nil {
		return
	}
	if p, err := filepath.Abs(path); err == nil {
		path = p
	}
	if old, exists := r.entries[name]; exists && old.path != path {
		panic(fmt.Sprintf("Attempt to overwrite file in the report for [%s]: was %s, now %s", name, old.path, path))
	}
	r.entries[name] = entry{path: path}
}

// StoreData archives data under name. Names are never reused.
func (r *Report) StoreData(name string, data []byte) {
	if r == nil {
		return
	}
	if _, exists := r.entries[name]; exists {
		panic(fmt.Sprintf("Attempt to overwrite data in the report for [%s]", name))
	}
	r.entries[name] = entry{data: data, stamp: time.Now()}
}

// Close writes the archive.
func (r *Report) Close() error {
	if r == nil || r.file == nil {
		return nil
	}
	defer r.file.Close()

	arc := zip.NewWriter(r.file)
	if err := r.finalize(arc); err != nil {
		arc.Close()
		return fmt.Errorf("unable to write report: %w", err)
	}
	if err := arc.Close(); err != nil {
		return fmt.Errorf("unable to write report: %w", err)
	}
	return nil
}

// finalize writes MANIFEST followed by entries in natural order of their
// names. Stored files which disappeared are listed but skipped.
func (r *Report) finalize(arc *zip.Writer) error {
	now := time.Now()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		switch {
		case natural.Less(a, b):
			return -1
		case natural.Less(b, a):
			return 1
		}
		return 0
	})

	manifest := new(bytes.Buffer)
	if len(r.run) > 0 {
		fmt.Fprintf(manifest, "run\t%s\n", r.run)
	}
	fmt.Fprintf(manifest, "version\t%s (%s)\n", misc.GetVersion(), misc.GetGitHash())
	for _, name := range names {
		e := r.entries[name]
		source := "data"
		if e.data == nil {
			source = e.path
		}
		stamp := e.stamp
		if stamp.IsZero() {
			stamp = now
		}
		fmt.Fprintf(manifest, "%s\t%s\t%s\n", stamp.UTC().Format(time.UnixDate), name, source)
	}
	if err := saveFile(arc, "MANIFEST", now, manifest); err != nil {
		return err
	}

	for _, name := range names {
		e := r.entries[name]
		if e.data != nil {
			if err := saveFile(arc, name, e.stamp, bytes.NewReader(e.data)); err != nil {
				return err
			}
			continue
		}
		if err := storeFile(arc, name, e.path); err != nil {
			return err
		}
	}
	return nil
}

func storeFile(arc *zip.Writer, name, path string) error {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		// absent files and anything but regular files are ignored
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return saveFile(arc, name, info.ModTime(), f)
}

func saveFile(dst *zip.Writer, name string, t time.Time, src io.Reader) error {
	w, err := dst.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: t})
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}
