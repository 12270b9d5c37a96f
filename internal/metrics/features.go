// Package metrics counts what a run did: text sizes for telemetry and a
// per-run tally of transport and tool activity.
package metrics

import "unicode"

// Features holds size measures of a text payload.
type Features struct {
	Bytes int
	Runes int
	Words int
	Lines int
}

// CountFeatures measures s in a single pass. Lines is 0 for the empty
// string and otherwise 1 plus the number of newlines.
func CountFeatures(s string) Features {
	f := Features{Bytes: len(s)}
	if s == "" {
		return f
	}
	f.Lines = 1
	inWord := false
	for _, r := range s {
		f.Runes++
		if r == '\n' {
			f.Lines++
		}
		if unicode.IsSpace(r) {
			inWord = false
			continue
		}
		if !inWord {
			f.Words++
			inWord = true
		}
	}
	return f
}
