package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"turansuraetu/internal/cache"
	"turansuraetu/internal/filewalker"
	"turansuraetu/internal/parser"
	"turansuraetu/internal/patch"
)

// RootHeader is the only line of a valid project root file.
const RootHeader = "> RPGMAKER TRANS PATCH V3"

// StaleSuffix is appended to a machine translation file that a save left without entries.
const StaleSuffix = ".stale"

// ErrInvalidRoot is returned when the project root file is not a patch root marker.
var ErrInvalidRoot = errors.New("cannot open project, header file is invalid")

// Store opens and saves projects on disk.
type Store struct {
	walker *filewalker.Walker
}

// NewStore creates a Store.
func NewStore() *Store {
	return &Store{walker: filewalker.NewWalker()}
}

// ValidateRoot checks that path holds exactly one line equal to RootHeader,
// ignoring surrounding whitespace. A mismatch wraps ErrInvalidRoot.
func ValidateRoot(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open root file: %w", err)
	}
	defer f.Close()

	lines, err := parser.ReadLines(f)
	if err != nil {
		return fmt.Errorf("read root file: %w", err)
	}

	if len(lines) != 1 || strings.TrimSpace(lines[0]) != RootHeader {
		return fmt.Errorf("%s: %w", path, ErrInvalidRoot)
	}
	return nil
}

// Open validates the root file at path and loads every patch file next to it.
// Files that are not patch files or hold no records are left out.
func (s *Store) Open(path string, progress Progress) (*patch.Project, error) {
	if progress == nil {
		progress = Discard
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve project path: %w", err)
	}

	if err := ValidateRoot(path); err != nil {
		return nil, err
	}

	projectDir := filepath.Dir(path)

	progress.Report("Loading machine translations...", 0)
	machine := cache.Load(cache.Path(projectDir))

	progress.Report("Listing files...", 0)
	entries, err := s.walker.Walk(filepath.Join(projectDir, filewalker.PatchDir))
	if err != nil {
		return nil, err
	}

	project := patch.NewProject(path)
	total := len(entries)

	for i, entry := range entries {
		progress.Report(fmt.Sprintf("Reading file %s (%d/%d)", entry.Name, i+1, total), float64(i+1)/float64(total))

		pf, err := readPatchFile(entry)
		if err != nil {
			return nil, err
		}
		if pf == nil {
			log.Debug().Str("file", entry.Name).Msg("Skipping non-patch file")
			continue
		}
		if len(pf.Pairs) == 0 {
			log.Debug().Str("file", entry.Name).Msg("Skipping patch file without records")
			continue
		}

		for _, pair := range pf.Pairs {
			machine.Merge(pf.Name, pair)
		}
		project.Add(pf)
	}

	log.Info().
		Str("project", path).
		Int("listed", total).
		Int("files", project.Len()).
		Int("pairs", len(project.Pairs())).
		Msg("Project opened")

	return project, nil
}

func readPatchFile(entry filewalker.FileEntry) (*patch.PatchFile, error) {
	f, err := os.Open(entry.Path)
	if err != nil {
		return nil, fmt.Errorf("open patch file: %w", err)
	}
	defer f.Close()

	lines, err := parser.ReadLines(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", entry.Name, err)
	}

	result, ok := parser.Parse(lines)
	if !ok {
		return nil, nil
	}

	return &patch.PatchFile{
		Name:   entry.Name,
		Header: result.Header,
		Pairs:  result.Pairs,
	}, nil
}

// Save writes every patch file of the project and rebuilds the machine
// translation file from the current pairs. Files written before a failure
// stay on disk.
func (s *Store) Save(project *patch.Project, progress Progress) error {
	if progress == nil {
		progress = Discard
	}

	projectDir := filepath.Dir(project.Path)
	patchDir := filepath.Join(projectDir, filewalker.PatchDir)

	if err := os.MkdirAll(patchDir, 0755); err != nil {
		return fmt.Errorf("create patch directory: %w", err)
	}

	files := project.Files()
	total := len(files)

	for i, pf := range files {
		progress.Report(fmt.Sprintf("Saving file %s (%d/%d)", pf.Name, i+1, total), float64(i+1)/float64(total))

		if err := writePatchFile(filepath.Join(patchDir, pf.Name), pf); err != nil {
			return err
		}
	}

	machinePath := cache.Path(projectDir)
	machine := cache.RebuildProject(project)
	written, err := machine.Save(machinePath)
	if err != nil {
		return err
	}
	if !written {
		if err := retireMachineFile(machinePath); err != nil {
			return err
		}
	}

	log.Info().
		Str("project", project.Path).
		Int("files", total).
		Int("machine_entries", machine.Count()).
		Msg("Project saved")

	return nil
}

func writePatchFile(path string, pf *patch.PatchFile) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create patch file: %w", err)
	}

	if err := parser.Write(f, pf); err != nil {
		f.Close()
		return err
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", pf.Name, err)
	}
	return nil
}

// retireMachineFile moves an existing machine translation file aside so the
// next Open does not merge entries the last save no longer holds.
func retireMachineFile(path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat machine translations: %w", err)
	}

	if err := os.Rename(path, path+StaleSuffix); err != nil {
		return fmt.Errorf("retire machine translations: %w", err)
	}

	log.Debug().Str("path", path+StaleSuffix).Msg("Machine translations retired")
	return nil
}
