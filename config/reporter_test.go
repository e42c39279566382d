package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readArchive(t *testing.T, name string) ([]string, map[string]string) {
	t.Helper()
	zr, err := zip.OpenReader(name)
	if err != nil {
		t.Fatalf("failed to open report: %v", err)
	}
	defer zr.Close()

	var order []string
	out := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("failed to read %s: %v", f.Name, err)
		}
		order = append(order, f.Name)
		out[f.Name] = string(data)
	}
	return order, out
}

func TestReport_Archive(t *testing.T) {
	dir := t.TempDir()
	conf := ReporterConfig{Destination: filepath.Join(dir, "report.zip")}

	r, err := conf.Prepare("0190b6a4-run")
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}
	if r.Run() != "0190b6a4-run" {
		t.Errorf("Run() = %q", r.Run())
	}

	log := filepath.Join(dir, "sc2sx.log")
	if err := os.WriteFile(log, []byte("started\n"), 0644); err != nil {
		t.Fatalf("failed to write log: %v", err)
	}
	r.Store("final.log", log)
	r.Store("final.log", log)
	r.Store("gone.log", filepath.Join(dir, "missing.log"))
	r.StoreData("dumps/010-button.txt", []byte("component Button"))
	r.StoreData("dumps/002-card.txt", []byte("component Card"))

	// files are read when the report is closed
	if err := os.WriteFile(log, []byte("started\nended\n"), 0644); err != nil {
		t.Fatalf("failed to write log: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	order, files := readArchive(t, conf.Destination)
	want := []string{"MANIFEST", "dumps/002-card.txt", "dumps/010-button.txt", "final.log"}
	if strings.Join(order, ",") != strings.Join(want, ",") {
		t.Errorf("entries = %v, want %v", order, want)
	}
	if !strings.HasPrefix(files["MANIFEST"], "run\t0190b6a4-run\nversion\t") {
		t.Errorf("MANIFEST = %q", files["MANIFEST"])
	}
	if !strings.Contains(files["MANIFEST"], "\tgone.log\t") {
		t.Errorf("MANIFEST misses absent file: %q", files["MANIFEST"])
	}
	if files["final.log"] != "started\nended\n" {
		t.Errorf("final.log = %q", files["final.log"])
	}
}

func TestReport_OverwritePanics(t *testing.T) {
	tests := []struct {
		name  string
		store func(r *Report)
	}{
		{"data", func(r *Report) {
			r.StoreData("a", []byte("1"))
			r.StoreData("a", []byte("2"))
		}},
		{"file", func(r *Report) {
			r.Store("a", "/tmp/one")
			r.Store("a", "/tmp/two")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if recover() == nil {
					t.Error("overwriting report entry should panic")
				}
			}()
			tt.store(&Report{entries: make(map[string]entry)})
		})
	}
}

func TestReportClose_NilReport(t *testing.T) {
	var r *Report
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil report should not error, got: %v", err)
	}
	r.Store("x", "y")
	r.StoreData("x", nil)
	if r.Name() != "" || r.Run() != "" {
		t.Error("nil report has a name")
	}
}

func TestReportClose_NilFile(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	if err := r.Close(); err != nil {
		t.Errorf("Close with nil file should not error, got: %v", err)
	}
}
