package batch

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap/zaptest"

	"sc2sx/config"
	"sc2sx/report"
	"sc2sx/state"
)

const buttonFixture = "../fixture/testdata/button.yaml"

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx := state.ContextWithEnv(context.Background())
	env := state.EnvFromContext(ctx)
	cfg, err := config.LoadConfiguration("")
	if err != nil {
		t.Fatalf("LoadConfiguration() error = %v", err)
	}
	env.Cfg = cfg
	env.Log = zaptest.NewLogger(t)
	return ctx
}

func TestProcess(t *testing.T) {
	ctx := testContext(t)
	env := state.EnvFromContext(ctx)

	run := report.NewRun(env.Run.String(), env.Started())
	if err := process(ctx, []string{buttonFixture}, run, env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if len(run.Files) != 1 || run.Files[0].Path != "Button.tsx" {
		t.Fatalf("files = %v", run.Files)
	}
	if errs, _ := run.Counts(); errs != 2 {
		t.Errorf("errors = %d, want 2", errs)
	}
}

func TestProcessSkipsBrokenFixtures(t *testing.T) {
	ctx := testContext(t)
	env := state.EnvFromContext(ctx)

	dir := t.TempDir()
	good, err := os.ReadFile(buttonFixture)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a-bad.yaml"), []byte("components: ["), 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b-good.yaml"), good, 0644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	run := report.NewRun("", env.Started())
	err = process(ctx, []string{dir}, run, env.Log)
	if err == nil || !strings.Contains(err.Error(), "1 fixture(s)") {
		t.Fatalf("process() error = %v", err)
	}
	if len(run.Files) != 1 {
		t.Errorf("good fixture was not lowered, files = %d", len(run.Files))
	}
}

func TestProcessFillsDebugReport(t *testing.T) {
	ctx := testContext(t)
	env := state.EnvFromContext(ctx)

	dst := filepath.Join(t.TempDir(), "report.zip")
	rpt, err := (&config.ReporterConfig{Destination: dst}).Prepare(env.Run.String())
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	env.Rpt = rpt

	if err := process(ctx, []string{buttonFixture}, report.NewRun("", env.Started()), env.Log); err != nil {
		t.Fatalf("process() error = %v", err)
	}
	if err := rpt.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	zr, err := zip.OpenReader(dst)
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer zr.Close()
	have := make(map[string]bool)
	for _, f := range zr.File {
		have[f.Name] = true
	}
	for _, name := range []string{"MANIFEST", "inputs/001-button-yaml.yaml", "dumps/001-button-yaml.txt"} {
		if !have[name] {
			t.Errorf("report misses %s, has %v", name, have)
		}
	}
}

func TestRunCommand(t *testing.T) {
	ctx := testContext(t)
	out := filepath.Join(t.TempDir(), "summary.txt")

	cmd := &cli.Command{
		Name:   "lower",
		Action: Run,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format"},
			&cli.StringFlag{Name: "out"},
		},
	}
	err := cmd.Run(ctx, []string{"lower", "--format", "summary", "--out", out, buttonFixture})
	if !errors.Is(err, ErrPolicy) {
		t.Fatalf("Run() error = %v, want policy failure", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "Button.tsx: 2 lowered, 2 left (Card, Spacer)") {
		t.Errorf("summary = %s", data)
	}
}

func TestRunNoSources(t *testing.T) {
	ctx := testContext(t)
	cmd := &cli.Command{Name: "lower", Action: Run}
	if err := cmd.Run(ctx, []string{"lower"}); err == nil {
		t.Error("Run() without sources succeeded")
	}
}

func TestRunRecordsHistory(t *testing.T) {
	ctx := testContext(t)
	env := state.EnvFromContext(ctx)
	db := filepath.Join(t.TempDir(), "history.db")

	lowerCmd := &cli.Command{
		Name:   "lower",
		Action: Run,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format"},
			&cli.StringFlag{Name: "out"},
			&cli.StringFlag{Name: "history"},
			&cli.StringFlag{Name: "encoding"},
			&cli.StringFlag{Name: "force-zip-cp"},
		},
	}
	args := []string{"lower", "--out", filepath.Join(t.TempDir(), "out.txt"), "--history", db,
		"--encoding", "utf-8", "--force-zip-cp", "no-such-charset", buttonFixture}
	if err := lowerCmd.Run(ctx, args); !errors.Is(err, ErrPolicy) {
		t.Fatalf("Run() error = %v, want policy failure", err)
	}

	historyCmd := func(args ...string) string {
		var buf bytes.Buffer
		cmd := &cli.Command{
			Name:   "history",
			Action: History,
			Writer: &buf,
			Flags: []cli.Flag{
				&cli.IntFlag{Name: "limit"},
				&cli.IntFlag{Name: "prune"},
				&cli.StringFlag{Name: "left"},
			},
		}
		if err := cmd.Run(ctx, append([]string{"history"}, args...)); err != nil {
			t.Fatalf("History() error = %v", err)
		}
		return buf.String()
	}

	out := historyCmd(db)
	if !strings.HasPrefix(out, env.Run.String()+"  ") || !strings.Contains(out, "files 1  lowered 2  left 2  errors 2") {
		t.Errorf("history = %q", out)
	}
	if got := historyCmd("--left", env.Run.String(), db); got != "Button.tsx: Card\nButton.tsx: Spacer\n" {
		t.Errorf("left = %q", got)
	}
}

func TestHistoryMissingDatabase(t *testing.T) {
	ctx := testContext(t)
	cmd := &cli.Command{Name: "history", Action: History}
	if err := cmd.Run(ctx, []string{"history", filepath.Join(t.TempDir(), "nope.db")}); err == nil {
		t.Error("History() with missing database succeeded")
	}
	cmd = &cli.Command{Name: "history", Action: History}
	if err := cmd.Run(ctx, []string{"history"}); err == nil {
		t.Error("History() without database succeeded")
	}
}
