package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Dir is a RoleCatalog backed by a local mirror of the catalog documents.
type Dir struct {
	root  string
	index string
}

// NewDir serves documents from root.
func NewDir(root, index string) *Dir {
	index = strings.TrimSpace(index)
	if index == "" {
		index = DefaultIndex
	}
	return &Dir{root: filepath.Clean(root), index: index}
}

func (d *Dir) Fetch(ctx context.Context, role string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	role, err := documentName(role)
	if err != nil {
		return nil, err
	}
	return d.read(role)
}

func (d *Dir) Index(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lines, err := d.read(d.index)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if name := strings.TrimSpace(line); name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

func (d *Dir) read(name string) ([]string, error) {
	path := filepath.Join(d.root, name)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &StatusError{URL: "file://" + path, StatusCode: 404, Status: "404 Not Found"}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, path, err)
	}
	defer f.Close()
	lines, err := readDocument(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, path, err)
	}
	return lines, nil
}
