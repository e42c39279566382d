package state

import (
	"context"
	"log"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestContextWithEnv(t *testing.T) {
	env := EnvFromContext(ContextWithEnv(context.Background()))
	if env.Started().IsZero() {
		t.Error("start time is not set")
	}
	if env.Run.Version() != 7 {
		t.Errorf("run id version = %d, want 7", env.Run.Version())
	}
	if other := EnvFromContext(ContextWithEnv(context.Background())); other.Run == env.Run {
		t.Error("two environments share a run id")
	}
	if env.Uptime() < 0 || env.Uptime() > time.Minute {
		t.Errorf("Uptime() = %v", env.Uptime())
	}
}

func TestEnvFromContextPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("EnvFromContext() without env did not panic")
		}
	}()
	EnvFromContext(context.Background())
}

func TestStdLogRedirect(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	env := &LocalEnv{Log: zap.New(core), start: time.Now()}

	for range 2 {
		env.RedirectStdLog()
		log.Print("lowering Button.tsx")
		env.RestoreStdLog()
	}
	if n := logs.FilterMessage("lowering Button.tsx").Len(); n != 2 {
		t.Errorf("redirected entries = %d, want 2", n)
	}
}

func TestStdLogWithoutLogger(t *testing.T) {
	env := &LocalEnv{}
	env.RedirectStdLog()
	if env.restoreStdLog != nil {
		t.Error("redirect installed without logger")
	}
	env.RestoreStdLog()
}
