package filewalker

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// PatchDir is the directory holding patch files, next to the project root file.
const PatchDir = "patch"

// FileEntry represents a discovered file ready for parsing.
type FileEntry struct {
	Name string
	Path string
}

// Walker lists the files of a patch directory.
type Walker struct{}

// NewWalker creates a Walker.
func NewWalker() *Walker {
	return &Walker{}
}

// Walk lists the regular files directly under dir, in directory listing order.
// Subdirectories are not descended into.
func (w *Walker) Walk(dir string) ([]FileEntry, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve patch path: %w", err)
	}

	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list patch directory: %w", err)
	}

	var entries []FileEntry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		if !de.Type().IsRegular() {
			info, err := os.Stat(filepath.Join(dir, de.Name()))
			if err != nil || !info.Mode().IsRegular() {
				log.Debug().Str("name", de.Name()).Msg("Skipping non-regular entry")
				continue
			}
		}
		entries = append(entries, FileEntry{
			Name: de.Name(),
			Path: filepath.Join(dir, de.Name()),
		})
	}

	log.Debug().Int("count", len(entries)).Str("dir", dir).Msg("Discovered patch files")
	return entries, nil
}
