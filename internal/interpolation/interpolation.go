package interpolation

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Mapping stores an escape sequence and the placeholder standing in for it.
type Mapping struct {
	Original    string
	Placeholder string
	Index       int
}

type codeMatch struct {
	start, end int
	value      string
}

// patterns detect RPG Maker message control codes that must survive a
// remote translation untouched.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`\\[A-Za-z]+\[[^\]\n]*\]`), // \C[2], \N[1], \V[10], \I[64], \FS[24]
	regexp.MustCompile(`\\[A-Za-z]+<[^>\n]*>`),    // \P<name> style plugin codes
	regexp.MustCompile(`\\[{}.|!<>^$G\\]`),        // \{ \} \. \| \! \< \> \^ \$ \G \\
	regexp.MustCompile(`%[0-9]+`),                 // %1, %2 in system terms
}

// Protect replaces control codes with {{code_N}} placeholders.
// Returns the safe string and the mappings needed by Restore.
func Protect(text string) (string, []Mapping) {
	var all []codeMatch
	for _, p := range patterns {
		for _, loc := range p.FindAllStringIndex(text, -1) {
			all = append(all, codeMatch{start: loc[0], end: loc[1], value: text[loc[0]:loc[1]]})
		}
	}

	if len(all) == 0 {
		return text, nil
	}

	// Earlier first; for equal starts the longer match wins.
	slices.SortFunc(all, func(a, b codeMatch) int {
		if c := cmp.Compare(a.start, b.start); c != 0 {
			return c
		}
		return cmp.Compare(b.end-b.start, a.end-a.start)
	})

	var kept []codeMatch
	lastEnd := -1
	for _, m := range all {
		if m.start >= lastEnd {
			kept = append(kept, m)
			lastEnd = m.end
		}
	}

	var sb strings.Builder
	mappings := make([]Mapping, 0, len(kept))
	prev := 0
	for i, m := range kept {
		placeholder := fmt.Sprintf("{{code_%d}}", i+1)
		sb.WriteString(text[prev:m.start])
		sb.WriteString(placeholder)
		prev = m.end
		mappings = append(mappings, Mapping{Original: m.value, Placeholder: placeholder, Index: i + 1})
	}
	sb.WriteString(text[prev:])

	return sb.String(), mappings
}

// Restore puts the original control codes back in place of their placeholders.
func Restore(translated string, mappings []Mapping) string {
	result := translated
	for _, m := range mappings {
		result = strings.Replace(result, m.Placeholder, m.Original, 1)
	}
	return result
}
