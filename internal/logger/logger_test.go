package logger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]string{"": "info", "debug": "debug", "warn": "warn"} {
		lvl, err := ParseLevel(in)
		if err != nil || lvl.String() != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %s", in, lvl, err, want)
		}
	}
	if _, err := ParseLevel("chatty"); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNew_WritesDailyFile(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	root := t.TempDir()
	log, err := New(root, false, "info")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.Infow("hello", "k", "v")
	_ = log.Sync()

	name := filepath.Join(root, "logs", time.Now().Format("2006-01-02")+".log")
	b, err := os.ReadFile(name)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if len(b) == 0 {
		t.Fatal("log file is empty")
	}
}
