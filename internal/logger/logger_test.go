package logger

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewDebugModeWritesToStdout(t *testing.T) {
	l := New("debug", Options{})
	if l == nil {
		t.Fatalf("expected logger instance")
	}
	l.Sugar().Infow("logger_debug_probe", "key", "value")
}

func TestNewReleaseModeCreatesLogFile(t *testing.T) {
	dir := t.TempDir()
	l := New("release", Options{Dir: dir, Filename: "test.log"})
	if l == nil {
		t.Fatalf("expected logger instance")
	}
	l.Sugar().Infow("logger_release_probe")
	if err := l.Sync(); err != nil {
		t.Logf("sync: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "test.log")); err != nil {
		t.Fatalf("expected log file: %v", err)
	}
}

func TestZFallsBackWhenUninitialized(t *testing.T) {
	saved := L
	L = nil
	defer func() { L = saved }()
	if Z() == nil {
		t.Fatalf("expected fallback logger")
	}
}
