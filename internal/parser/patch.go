package parser

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"turansuraetu/internal/patch"
)

// maxLineSize bounds a single line of a patch file.
const maxLineSize = 4 * 1024 * 1024

// byteOrderMark is the UTF-8 encoding of U+FEFF.
const byteOrderMark = "\ufeff"

// ReadLines splits r into lines. Line terminators, including a trailing \r, are
// dropped, as is a byte order mark at the start of the input.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		if len(lines) == 0 {
			line = strings.TrimPrefix(line, byteOrderMark)
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan patch file: %w", err)
	}
	return lines, nil
}

// IsPatchFile reports whether lines start with the patch file header.
func IsPatchFile(lines []string) bool {
	return len(lines) > 0 && strings.HasPrefix(lines[0], FileHeader)
}

// Parse converts the lines of one patch file into its header and records.
// It returns false when the first line is not a patch file header.
// Malformed records never fail the parse; records with a blank original are dropped.
func Parse(lines []string) (*Result, bool) {
	if !IsPatchFile(lines) {
		return nil, false
	}

	result := &Result{Header: lines[0]}

	var (
		original    strings.Builder
		translation strings.Builder
		context     []string
		current     = targetOriginal
		open        bool
	)

	for _, line := range lines[1:] {
		if strings.HasPrefix(line, markerPrefix) {
			switch {
			case strings.HasPrefix(line, BeginString):
				original.Reset()
				translation.Reset()
				current = targetOriginal
				open = true
			case strings.HasPrefix(line, ContextLabel):
				if !open {
					continue
				}
				context = append(context, line)
				current = targetTranslation
			case strings.HasPrefix(line, EndString):
				if open && strings.TrimSpace(original.String()) != "" {
					result.Pairs = append(result.Pairs,
						patch.NewTranslationPair(original.String(), translation.String(), context))
				}
				original.Reset()
				translation.Reset()
				context = nil
				current = targetOriginal
				open = false
			}
			// Other markers have no effect.
			continue
		}

		if !open {
			continue
		}

		buf := &original
		if current == targetTranslation {
			buf = &translation
		}
		if buf.Len() > 0 {
			buf.WriteByte('\n')
		}
		buf.WriteString(line)
	}

	return result, true
}
