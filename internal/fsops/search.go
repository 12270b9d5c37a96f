package fsops

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	binarySniffLen = 8000
	maxLineRunes   = 500
	maxScanToken   = 1 << 20
)

// SearchOptions configures SearchFiles.
type SearchOptions struct {
	Pattern    string // regular expression (RE2 syntax)
	Path       string // file or directory; empty means "."
	Glob       string // optional file filter, doublestar syntax
	MaxMatches int    // <= 0 means unlimited
}

// Match is a single matching line.
type Match struct {
	Path string
	Line int
	Text string
}

func (m Match) String() string {
	return fmt.Sprintf("%s:%d:%s", m.Path, m.Line, m.Text)
}

// SearchResult is the outcome of SearchFiles.
type SearchResult struct {
	Matches   []Match
	Truncated bool
}

// SearchFiles scans files under opts.Path for lines matching opts.Pattern.
// Hidden directories, .git and binary files are skipped when walking a
// directory; an explicit file target is always searched. Paths in results
// are reported relative to the way the target was given.
func SearchFiles(ctx context.Context, opts SearchOptions) (SearchResult, error) {
	re, err := regexp.Compile(opts.Pattern)
	if err != nil {
		return SearchResult{}, fmt.Errorf("%w: %v", ErrBadPattern, err)
	}
	filter := filepath.ToSlash(opts.Glob)
	if filter != "" && !doublestar.ValidatePattern(filter) {
		return SearchResult{}, fmt.Errorf("%w: glob %q", ErrBadPattern, opts.Glob)
	}

	target := opts.Path
	if target == "" {
		target = "."
	}
	fi, err := os.Stat(target)
	if err != nil {
		return SearchResult{}, err
	}

	s := &searcher{ctx: ctx, re: re, filter: filter, limit: opts.MaxMatches}
	if !fi.IsDir() {
		err = s.scanFile(target, target)
	} else {
		err = filepath.WalkDir(target, func(p string, d fs.DirEntry, werr error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if werr != nil {
				// Unreadable entries are skipped, like rg does.
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				if p != target && skipDir(d.Name()) {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || strings.HasPrefix(d.Name(), ".") {
				return nil
			}
			rel, err := filepath.Rel(target, p)
			if err != nil {
				return nil
			}
			if !s.accept(filepath.ToSlash(rel), d.Name()) {
				return nil
			}
			return s.scanFile(p, p)
		})
	}
	if err != nil && !errors.Is(err, errLimitReached) {
		return SearchResult{}, err
	}
	return s.res, nil
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || name == "node_modules"
}

type searcher struct {
	ctx    context.Context
	re     *regexp.Regexp
	filter string
	limit  int
	res    SearchResult
}

// accept applies the glob filter. A filter without a slash matches the base
// name; otherwise it matches the path relative to the search root.
func (s *searcher) accept(rel, base string) bool {
	if s.filter == "" {
		return true
	}
	if !strings.Contains(s.filter, "/") {
		ok, _ := doublestar.Match(s.filter, base)
		return ok
	}
	ok, _ := doublestar.Match(s.filter, rel)
	return ok
}

func (s *searcher) scanFile(path, display string) error {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	br := bufio.NewReader(f)
	head, _ := br.Peek(binarySniffLen)
	if bytes.IndexByte(head, 0) >= 0 {
		return nil
	}

	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, 64*1024), maxScanToken)
	line := 0
	for sc.Scan() {
		line++
		if line%1024 == 0 {
			if err := s.ctx.Err(); err != nil {
				return err
			}
		}
		text := sc.Text()
		if !s.re.MatchString(text) {
			continue
		}
		if s.limit > 0 && len(s.res.Matches) >= s.limit {
			s.res.Truncated = true
			return errLimitReached
		}
		s.res.Matches = append(s.res.Matches, Match{Path: display, Line: line, Text: clampLine(text)})
	}
	// sc.Err() is ignored: an over-long line ends the scan of this file only.
	return nil
}

func clampLine(s string) string {
	r := []rune(s)
	if len(r) <= maxLineRunes {
		return s
	}
	return string(r[:maxLineRunes]) + "…"
}
