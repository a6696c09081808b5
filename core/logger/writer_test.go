package logger

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestAsyncWriterReopenAfterRotate(t *testing.T) {
	dir := t.TempDir()
	f := openSink(dir, "bot.log")
	if f == nil {
		t.Fatalf("openSink returned nil")
	}
	path := filepath.Join(dir, "bot.log")
	aw := newAsyncWriter([]io.Writer{f}, 1024)

	if err := aw.Write([]byte("before\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.Rename(path, path+".1"); err != nil {
		t.Fatalf("rename: %v", err)
	}
	if err := aw.Reopen(); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if err := aw.Write([]byte("after\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	rotated, _ := os.ReadFile(path + ".1")
	if string(rotated) != "before\n" {
		t.Fatalf("rotated file = %q", rotated)
	}
	current, _ := os.ReadFile(path)
	if string(current) != "after\n" {
		t.Fatalf("current file = %q", current)
	}
}

func TestAsyncWriterReopenAfterClose(t *testing.T) {
	aw := newAsyncWriter(nil, 0)
	if err := aw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := aw.Reopen(); err == nil {
		t.Fatalf("reopen after close should fail")
	}
}
