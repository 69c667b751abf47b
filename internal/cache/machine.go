package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"turansuraetu/internal/patch"
)

// FileName is the machine translation side file stored next to the project root file.
const FileName = "TransuraetuMachine.json"

// FileEntries maps original text to its machine translations within one patch file.
type FileEntries map[string]patch.MachineTranslations

// Machine maps patch file names to their machine translation entries.
type Machine map[string]FileEntries

// Path returns the side file location for a project directory.
func Path(projectDir string) string {
	return filepath.Join(projectDir, FileName)
}

// Load reads the side file. A missing or unreadable file yields an empty cache.
func Load(path string) Machine {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Warn().Err(err).Str("path", path).Msg("Cannot read machine translations, starting empty")
		}
		return Machine{}
	}

	var m Machine
	if err := json.Unmarshal(data, &m); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Corrupt machine translations, starting empty")
		return Machine{}
	}
	if m == nil {
		m = Machine{}
	}

	log.Debug().Int("files", len(m)).Str("path", path).Msg("Loaded machine translations")
	return m
}

// Lookup returns the cached translations for an original in a file, or an empty record.
func (m Machine) Lookup(file, original string) patch.MachineTranslations {
	entries, ok := m[file]
	if !ok {
		return patch.MachineTranslations{}
	}
	return entries[original]
}

// Merge fills blank machine fields of pair from the cache. Nothing else is touched.
func (m Machine) Merge(file string, pair *patch.TranslationPair) {
	pair.Machine.Fill(m.Lookup(file, pair.Original()))
}

// Rebuild derives the entries of one patch file from its current pairs.
// Pairs without any machine translation are left out. For duplicate
// originals the later pair wins. Originals that are not valid UTF-8 cannot
// survive a JSON round trip and are skipped with a warning.
func Rebuild(pf *patch.PatchFile) FileEntries {
	entries := make(FileEntries)
	for _, pair := range pf.Pairs {
		if pair.Machine.IsEmpty() {
			continue
		}
		if !utf8.ValidString(pair.Original()) {
			log.Warn().
				Str("file", pf.Name).
				Str("original", strconv.Quote(pair.Original())).
				Msg("Original is not valid UTF-8, machine translations not cached")
			continue
		}
		entries[pair.Original()] = pair.Machine
	}
	return entries
}

// RebuildProject derives a fresh cache from every file of a project.
// Files contributing no entries are omitted.
func RebuildProject(p *patch.Project) Machine {
	m := make(Machine)
	for _, pf := range p.Files() {
		if !utf8.ValidString(pf.Name) {
			log.Warn().Str("file", strconv.Quote(pf.Name)).Msg("File name is not valid UTF-8, machine translations not cached")
			continue
		}
		if entries := Rebuild(pf); len(entries) > 0 {
			m[pf.Name] = entries
		}
	}
	return m
}

// Save writes the cache to path. An empty cache is not written and Save reports false.
func (m Machine) Save(path string) (bool, error) {
	if len(m) == 0 {
		return false, nil
	}

	data, err := json.Marshal(m)
	if err != nil {
		return false, fmt.Errorf("marshal machine translations: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return false, fmt.Errorf("write machine translations: %w", err)
	}

	return true, nil
}

// Count returns the total number of cached originals.
func (m Machine) Count() int {
	n := 0
	for _, entries := range m {
		n += len(entries)
	}
	return n
}
