package reminder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDirSourceReadLines(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "daily"), 0o755); err != nil {
		t.Fatal(err)
	}
	body := "first |- 09:00\r\nsecond\r\n\r\nthird |- tue 10:00"
	if err := os.WriteFile(filepath.Join(root, "daily", "plans.md"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	src := DirSource{Root: root}
	lines, err := src.ReadLines(context.Background(), "daily/plans.md")
	if err != nil {
		t.Fatalf("ReadLines: %v", err)
	}
	want := []string{"first |- 09:00", "second", "", "third |- tue 10:00"}
	if len(lines) != len(want) {
		t.Fatalf("lines = %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}

	abs := filepath.Join(root, "daily", "plans.md")
	if got := (DirSource{Root: "/elsewhere"}).Path(abs); got != abs {
		t.Fatalf("absolute path rewritten to %q", got)
	}
}

func TestDirSourceMissing(t *testing.T) {
	t.Parallel()
	src := DirSource{Root: t.TempDir()}
	_, err := src.ReadLines(context.Background(), "nope.md")
	if !errors.Is(err, ErrFileAccess) {
		t.Fatalf("err = %v, want ErrFileAccess", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("err = %v, want wrapped os.ErrNotExist", err)
	}
}
