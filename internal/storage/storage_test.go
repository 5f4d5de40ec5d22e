package storage

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".claude", "hook-logs")
	path := filepath.Join(dir, "report.md")

	if err := WriteFile(path, []byte("# Report\n"), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if string(data) != "# Report\n" {
		t.Errorf("content = %q", data)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o644 {
		t.Errorf("mode = %v, want 0644", info.Mode().Perm())
	}

	// Overwrite replaces the whole file.
	if err := WriteFile(path, []byte("new"), 0o644); err != nil {
		t.Fatalf("overwrite error = %v", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "new" {
		t.Errorf("after overwrite = %q", data)
	}

	if files, _ := filepath.Glob(filepath.Join(dir, tempPrefix+"*")); len(files) > 0 {
		t.Errorf("temp files left behind: %v", files)
	}
}

func TestWriteAtomic_WriterError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	if err := os.WriteFile(path, []byte("original"), 0o644); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := WriteAtomic(path, 0o644, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped boom", err)
	}

	if data, _ := os.ReadFile(path); string(data) != "original" {
		t.Errorf("failed write changed the target: %q", data)
	}
	if files, _ := filepath.Glob(filepath.Join(dir, tempPrefix+"*")); len(files) > 0 {
		t.Errorf("temp files left behind: %v", files)
	}
}

func TestWriteFile_NoPath(t *testing.T) {
	if err := WriteFile("", nil, 0o644); !errors.Is(err, ErrNoPath) {
		t.Errorf("error = %v, want ErrNoPath", err)
	}
}
