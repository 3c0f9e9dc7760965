package reminder

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const maxLineBytes = 1 << 20

// Source provides the lines of a named note file.
type Source interface {
	ReadLines(ctx context.Context, name string) ([]string, error)
}

// DirSource reads files relative to a vault root directory.
// Absolute names bypass the root.
type DirSource struct {
	Root string
}

func (d DirSource) Path(name string) string {
	name = strings.TrimSpace(name)
	if filepath.IsAbs(name) || strings.TrimSpace(d.Root) == "" {
		return filepath.Clean(name)
	}
	return filepath.Join(d.Root, name)
}

func (d DirSource) ReadLines(ctx context.Context, name string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := d.Path(name)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFileAccess, path, err)
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for sc.Scan() {
		lines = append(lines, strings.TrimRight(sc.Text(), "\r"))
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFileAccess, path, err)
	}
	return lines, nil
}
