package tools

import "fmt"

const (
	noOutput  = "(no output)"
	noMatches = "(no matches)"

	// DefaultMaxResultRunes caps every tool result fed back to the model.
	DefaultMaxResultRunes = 100_000
)

// Helper: clamp a string to at most n runes
func clampRunes(s string, n int) (string, bool) {
	if n <= 0 {
		return "", len(s) > 0
	}
	r := []rune(s)
	if len(r) <= n {
		return s, false
	}
	return string(r[:n]), true
}

// bound clamps s to n runes and appends a sentinel when anything was cut.
func bound(s string, n int) string {
	if n <= 0 {
		return s
	}
	out, cut := clampRunes(s, n)
	if !cut {
		return s
	}
	return out + fmt.Sprintf("\n-- truncated: result exceeded %d characters --", n)
}
