package store

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/danmuck/rolectl/internal/roles"
	"github.com/rs/zerolog/log"
)

var (
	ErrLoad = errors.New("store: load role set")
	ErrSave = errors.New("store: save role set")
)

// File is a RoleStore backed by a plain-text file.
type File struct {
	path string
}

// NewFile stores the role set at path.
func NewFile(path string) *File {
	return &File{path: path}
}

// Path returns the state file location.
func (f *File) Path() string { return f.path }

// Load reads the role set. A missing file is the empty set.
func (f *File) Load() (roles.Set, error) {
	file, err := os.Open(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return roles.NewSet(), nil
	}
	if err != nil {
		return roles.Set{}, fmt.Errorf("%w: %s: %w", ErrLoad, f.path, err)
	}
	defer file.Close()

	set, err := Decode(file)
	if err != nil {
		return roles.Set{}, fmt.Errorf("%w: %s: %w", ErrLoad, f.path, err)
	}
	return set, nil
}

// Save replaces the state file with set. The write goes to a temporary file
// in the same directory and is renamed into place.
func (f *File) Save(set roles.Set) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSave, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if err := Encode(tmp, set); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: %s: %w", ErrSave, f.path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("%w: %s: %w", ErrSave, f.path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("%w: %s: %w", ErrSave, f.path, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		cleanup()
		return fmt.Errorf("%w: %s: %w", ErrSave, f.path, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		cleanup()
		return fmt.Errorf("%w: %s: %w", ErrSave, f.path, err)
	}
	log.Info().Str("path", f.path).Strs("roles", set.Slice()).Msg("role set saved")
	return nil
}

// Decode reads one role per line. Blank lines are ignored and lines with
// embedded whitespace are skipped with a warning.
func Decode(r io.Reader) (roles.Set, error) {
	var names []string
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		role, err := roles.ValidateRole(raw)
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("state file entry skipped")
			continue
		}
		names = append(names, role)
	}
	if err := scanner.Err(); err != nil {
		return roles.Set{}, err
	}
	return roles.NewSet(names...), nil
}

// Encode writes set sorted, one role per line.
func Encode(w io.Writer, set roles.Set) error {
	bw := bufio.NewWriter(w)
	for _, role := range set.Slice() {
		if _, err := bw.WriteString(role + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
