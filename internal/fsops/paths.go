// Package fsops implements the file-system effects behind the file tools.
//
// Paths may be absolute or relative; relative paths resolve against the
// process working directory. There is no sandbox.
package fsops

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	// ErrNotAFile is returned when a file operation targets a directory.
	ErrNotAFile = errors.New("path is a directory")
	// ErrBadPattern is returned for invalid glob or regular expression patterns.
	ErrBadPattern = errors.New("invalid pattern")
	// ErrEmptyPath is returned when no path was supplied.
	ErrEmptyPath = errors.New("path is empty")
)

// Resolve returns p as a cleaned absolute path.
func Resolve(p string) (string, error) {
	if p == "" {
		return "", ErrEmptyPath
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	return abs, nil
}

// resolveDir resolves dir, defaulting to the working directory when empty.
func resolveDir(dir string) (string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getwd: %w", err)
		}
		return cwd, nil
	}
	return Resolve(dir)
}
