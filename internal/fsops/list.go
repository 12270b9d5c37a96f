package fsops

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// errLimitReached stops a walk once enough results were collected.
var errLimitReached = errors.New("limit reached")

// ListResult is the outcome of ListFiles.
type ListResult struct {
	Paths     []string // absolute, sorted
	Truncated bool     // more matches existed than the limit allowed
}

// ListFiles walks root recursively and returns regular files matching pattern.
//
// Pattern uses doublestar syntax. A pattern without a slash matches file
// names at any depth ("*.go" behaves like "**/*.go"); a pattern with a slash
// matches paths relative to root. An absolute pattern supplies its own root.
// Empty root means the working directory. limit <= 0 means unlimited.
func ListFiles(ctx context.Context, root, pattern string, limit int) (ListResult, error) {
	pattern = filepath.ToSlash(pattern)
	if strings.HasPrefix(pattern, "/") {
		base, rest := doublestar.SplitPattern(pattern)
		root, pattern = filepath.FromSlash(base), rest
	}
	if pattern == "" {
		return ListResult{}, fmt.Errorf("%w: empty glob", ErrBadPattern)
	}
	if !strings.Contains(pattern, "/") {
		pattern = "**/" + pattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return ListResult{}, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
	}

	absRoot, err := resolveDir(root)
	if err != nil {
		return ListResult{}, err
	}
	fi, err := os.Stat(absRoot)
	if err != nil {
		return ListResult{}, err
	}
	if !fi.IsDir() {
		return ListResult{}, fmt.Errorf("%s: not a directory", absRoot)
	}

	var res ListResult
	walkErr := doublestar.GlobWalk(os.DirFS(absRoot), pattern, func(p string, d fs.DirEntry) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if limit > 0 && len(res.Paths) >= limit {
			res.Truncated = true
			return errLimitReached
		}
		res.Paths = append(res.Paths, filepath.Join(absRoot, filepath.FromSlash(p)))
		return nil
	}, doublestar.WithFilesOnly())
	if walkErr != nil && !errors.Is(walkErr, errLimitReached) {
		return ListResult{}, walkErr
	}

	sort.Strings(res.Paths)
	return res, nil
}
