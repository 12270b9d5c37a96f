package fsops

import (
	"context"
	"fmt"
	"os"
)

// ReadFile returns the full text of the file at path.
func ReadFile(ctx context.Context, path string) (string, error) {
	abs, err := Resolve(path)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	fi, err := os.Stat(abs)
	if err != nil {
		return "", err
	}
	if fi.IsDir() {
		return "", fmt.Errorf("%s: %w", abs, ErrNotAFile)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	b, err := os.ReadFile(abs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
