package parser

import (
	"bufio"
	"fmt"
	"io"

	"turansuraetu/internal/patch"
)

// Serialize converts a header and records back into patch file lines.
//
// Records without context are written without the blank separator line and,
// when their translation is empty, without a translation line, since neither
// could be told apart from original text when read back.
func Serialize(header string, pairs []*patch.TranslationPair) []string {
	lines := []string{header}
	for _, pair := range pairs {
		lines = append(lines, BeginString, pair.Original())
		context := pair.Context()
		lines = append(lines, context...)
		if len(context) > 0 {
			lines = append(lines, "", pair.Translation)
		} else if pair.Translation != "" {
			lines = append(lines, pair.Translation)
		}
		lines = append(lines, EndString)
	}
	return lines
}

// Write serializes a patch file to w, terminating every line with \n.
func Write(w io.Writer, pf *patch.PatchFile) error {
	bw := bufio.NewWriter(w)
	for _, line := range Serialize(pf.Header, pf.Pairs) {
		if _, err := bw.WriteString(line); err != nil {
			return fmt.Errorf("write %s: %w", pf.Name, err)
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("write %s: %w", pf.Name, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", pf.Name, err)
	}
	return nil
}
