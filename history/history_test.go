package history

import (
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"sc2sx/lower"
	"sc2sx/model"
	"sc2sx/report"
)

func testRun(t *testing.T, id string, started time.Time) *report.Run {
	t.Helper()
	log := zaptest.NewLogger(t)

	f := lower.NewFile("Button.tsx", log)
	if _, err := f.AddComponent("Button", model.IntrinsicTarget("button"), []model.Rule{{
		Selector:     "&",
		Declarations: []model.Declaration{{Property: "color", Value: model.StaticValue("red")}},
	}}, nil); err != nil {
		t.Fatalf("AddComponent() error = %v", err)
	}
	if _, err := f.AddComponent("Card", model.IntrinsicTarget("div"), []model.Rule{{
		Selector:     "& > p",
		Declarations: []model.Declaration{{Property: "margin", Value: model.StaticValue("0")}},
	}}, nil); err != nil {
		t.Fatalf("AddComponent() error = %v", err)
	}
	lower.NewEngine(nil, log).Lower(f)

	r := report.NewRun(id, started)
	r.Add(f)
	return r
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "history.db"), zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return s
}

func TestSaveAndList(t *testing.T) {
	s := openStore(t)
	base := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"run-a", "run-b"} {
		if err := s.Save(testRun(t, id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}

	runs, err := s.Runs(0)
	if err != nil {
		t.Fatalf("Runs() error = %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "run-b" {
		t.Fatalf("Runs() = %+v", runs)
	}
	got := runs[1]
	if !got.Started.Equal(base) || got.Files != 1 || got.Lowered != 1 || got.Bailed != 1 || got.Errors != 1 || got.Warnings != 0 {
		t.Errorf("run-a = %+v", got)
	}

	limited, err := s.Runs(1)
	if err != nil || len(limited) != 1 {
		t.Errorf("Runs(1) = %v, %v", limited, err)
	}

	left, err := s.Left("run-a")
	if err != nil {
		t.Fatalf("Left() error = %v", err)
	}
	if want := []Entry{{File: "Button.tsx", Component: "Card"}}; !reflect.DeepEqual(left, want) {
		t.Errorf("Left() = %v, want %v", left, want)
	}
}

func TestSaveRejects(t *testing.T) {
	s := openStore(t)
	started := time.Now()

	if err := s.Save(testRun(t, "", started)); err == nil {
		t.Error("Save() accepted run without id")
	}
	if err := s.Save(testRun(t, "dup", started)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := s.Save(testRun(t, "dup", started)); err == nil {
		t.Error("Save() accepted duplicate run")
	}

	// failed save must not leave partial rows behind
	runs, err := s.Runs(0)
	if err != nil || len(runs) != 1 || runs[0].Lowered != 1 {
		t.Errorf("Runs() = %+v, %v", runs, err)
	}
}

func TestPrune(t *testing.T) {
	s := openStore(t)
	base := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"r1", "r2", "r3"} {
		if err := s.Save(testRun(t, id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("Save(%s) error = %v", id, err)
		}
	}

	removed, err := s.Prune(1)
	if err != nil || removed != 2 {
		t.Fatalf("Prune() = %d, %v", removed, err)
	}
	runs, err := s.Runs(0)
	if err != nil || len(runs) != 1 || runs[0].ID != "r3" {
		t.Fatalf("Runs() = %+v, %v", runs, err)
	}
	left, err := s.Left("r1")
	if err != nil || len(left) != 0 {
		t.Errorf("Left() after prune = %v, %v", left, err)
	}
}
