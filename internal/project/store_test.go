package project_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turansuraetu/internal/cache"
	"turansuraetu/internal/parser"
	"turansuraetu/internal/patch"
	"turansuraetu/internal/project"
)

const rootName = "RPGMKTRANSPATCH"

type recorder struct {
	labels    []string
	fractions []float64
}

func (r *recorder) Report(label string, fraction float64) {
	r.labels = append(r.labels, label)
	r.fractions = append(r.fractions, fraction)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func patchText(records ...string) string {
	return parser.FileHeader + "\n" + strings.Join(records, "")
}

func record(original, context, translation string) string {
	return "> BEGIN STRING\n" + original + "\n> CONTEXT: " + context + "\n\n" + translation + "\n> END STRING\n"
}

// newProject lays out a project directory and returns the root file path.
func newProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, rootName)
	writeFile(t, root, project.RootHeader+"\n")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "patch"), 0755))
	for name, content := range files {
		writeFile(t, filepath.Join(dir, "patch", name), content)
	}
	return root
}

func TestValidateRoot(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		valid   bool
	}{
		{"exact", "> RPGMAKER TRANS PATCH V3", true},
		{"trailing newline", "> RPGMAKER TRANS PATCH V3\n", true},
		{"surrounding whitespace", "  > RPGMAKER TRANS PATCH V3 \t\r\n", true},
		{"empty", "", false},
		{"two lines", "> RPGMAKER TRANS PATCH V3\n> RPGMAKER TRANS PATCH V3\n", false},
		{"blank second line", "> RPGMAKER TRANS PATCH V3\n\n", false},
		{"lower case", "> rpgmaker trans patch v3", false},
		{"trailing punctuation", "> RPGMAKER TRANS PATCH V3.", false},
		{"patch file header", parser.FileHeader, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), rootName)
			writeFile(t, path, tt.content)

			err := project.ValidateRoot(path)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, project.ErrInvalidRoot)
			}
		})
	}
}

func TestOpenAcceptsByteOrderMarks(t *testing.T) {
	t.Parallel()

	root := newProject(t, map[string]string{
		"System.txt": "\xef\xbb\xbf" + patchText(record("はい", "System/terms/0", "Yes")),
	})
	writeFile(t, root, "\xef\xbb\xbf"+project.RootHeader+"\n")

	p, err := project.NewStore().Open(root, nil)
	require.NoError(t, err)
	pf, ok := p.File("System.txt")
	require.True(t, ok)
	assert.Equal(t, parser.FileHeader, pf.Header)
	require.Len(t, pf.Pairs, 1)
	assert.Equal(t, "Yes", pf.Pairs[0].Translation)
}

func TestValidateRootMissingFile(t *testing.T) {
	t.Parallel()

	err := project.ValidateRoot(filepath.Join(t.TempDir(), rootName))
	require.Error(t, err)
	assert.NotErrorIs(t, err, project.ErrInvalidRoot)
}

func TestOpenRejectsInvalidRoot(t *testing.T) {
	t.Parallel()

	root := newProject(t, map[string]string{"Map001.txt": patchText(record("a", "x", ""))})
	writeFile(t, root, "> RPGMAKER TRANS PATCH V2\n")

	p, err := project.NewStore().Open(root, nil)
	require.ErrorIs(t, err, project.ErrInvalidRoot)
	assert.Nil(t, p)
}

func TestOpenLoadsPatchFiles(t *testing.T) {
	t.Parallel()

	root := newProject(t, map[string]string{
		"Map001.txt": patchText(
			record("こんにちは", "Map001/events/1/pages/0/0", "Hello"),
			record("さようなら", "Map001/events/2/pages/0/0", ""),
		),
		"Actors.txt":  patchText(record("勇者", "Actors/1/name", "Hero")),
		"notes.txt":   "just some notes\n",
		"Empty.txt":   patchText("> BEGIN STRING\n  \n> CONTEXT: Map009\n\nx\n> END STRING\n"),
		"Headers.txt": parser.FileHeader + "\n",
	})
	rec := &recorder{}

	p, err := project.NewStore().Open(root, rec)
	require.NoError(t, err)

	assert.Equal(t, 2, p.Len())
	_, ok := p.File("notes.txt")
	assert.False(t, ok)
	_, ok = p.File("Empty.txt")
	assert.False(t, ok)
	_, ok = p.File("Headers.txt")
	assert.False(t, ok)

	pf, ok := p.File("Map001.txt")
	require.True(t, ok)
	assert.Equal(t, parser.FileHeader, pf.Header)
	require.Len(t, pf.Pairs, 2)
	assert.Equal(t, "こんにちは", pf.Pairs[0].Original())
	assert.Equal(t, "Hello", pf.Pairs[0].Translation)
	assert.Equal(t, "さようなら", pf.Pairs[1].Original())
	assert.Equal(t, "Map001/events/1/pages/0/0", pf.Pairs[0].ContextPreview())

	// One progress report per listed entry after the two preamble reports.
	require.Len(t, rec.fractions, 2+5)
	for i := 1; i < len(rec.fractions); i++ {
		assert.GreaterOrEqual(t, rec.fractions[i], rec.fractions[i-1])
	}
	assert.InDelta(t, 1.0, rec.fractions[len(rec.fractions)-1], 1e-9)
	for _, f := range rec.fractions {
		assert.GreaterOrEqual(t, f, 0.0)
		assert.LessOrEqual(t, f, 1.0)
	}
	assert.Contains(t, rec.labels[2], "(1/5)")
}

func TestOpenMergesMachineTranslations(t *testing.T) {
	t.Parallel()

	root := newProject(t, map[string]string{
		"Map001.txt": patchText(record("はい", "Map001/events/1", "")),
		"Map002.txt": patchText(record("はい", "Map002/events/1", "")),
	})
	doc := `{"Map001.txt":{"はい":{"Google":"Yes","Transliteration":"hai"}},"Gone.txt":{"x":{"Bing":"y"}}}`
	writeFile(t, filepath.Join(filepath.Dir(root), cache.FileName), doc)

	p, err := project.NewStore().Open(root, nil)
	require.NoError(t, err)

	m1, _ := p.File("Map001.txt")
	assert.Equal(t, patch.MachineTranslations{Google: "Yes", Transliteration: "hai"}, m1.Pairs[0].Machine)
	assert.Equal(t, "", m1.Pairs[0].Translation)

	// Cache entries are scoped to their file.
	m2, _ := p.File("Map002.txt")
	assert.True(t, m2.Pairs[0].Machine.IsEmpty())
}

func TestOpenWithCorruptCache(t *testing.T) {
	t.Parallel()

	root := newProject(t, map[string]string{"Map001.txt": patchText(record("はい", "Map001/events/1", "Yes"))})
	writeFile(t, filepath.Join(filepath.Dir(root), cache.FileName), "[1, 2")

	p, err := project.NewStore().Open(root, nil)
	require.NoError(t, err)
	pf, _ := p.File("Map001.txt")
	assert.True(t, pf.Pairs[0].Machine.IsEmpty())
	assert.Equal(t, "Yes", pf.Pairs[0].Translation)
}

func TestOpenMissingPatchDirectory(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), rootName)
	writeFile(t, root, project.RootHeader)

	_, err := project.NewStore().Open(root, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, project.ErrInvalidRoot)
}

func TestSaveRoundTrip(t *testing.T) {
	t.Parallel()

	original := patchText(
		record("こんにちは", "Map001/events/1/pages/0/0", "Hello"),
		record("一行目\n二行目", "Map001/events/2/pages/0/0", ""),
	)
	root := newProject(t, map[string]string{"Map001.txt": original})
	store := project.NewStore()

	p, err := store.Open(root, nil)
	require.NoError(t, err)

	pf, _ := p.File("Map001.txt")
	pf.Pairs[1].Translation = "Line one\nLine two"
	pf.Pairs[1].Machine.Google = "First line\nSecond line"

	rec := &recorder{}
	require.NoError(t, store.Save(p, rec))
	require.Len(t, rec.fractions, 1)
	assert.InDelta(t, 1.0, rec.fractions[0], 1e-9)

	reopened, err := store.Open(root, nil)
	require.NoError(t, err)
	again, _ := reopened.File("Map001.txt")
	require.Len(t, again.Pairs, 2)
	assert.Equal(t, pf.Header, again.Header)
	for i := range pf.Pairs {
		assert.Equal(t, pf.Pairs[i].Original(), again.Pairs[i].Original())
		assert.Equal(t, pf.Pairs[i].Translation, again.Pairs[i].Translation)
		assert.Equal(t, pf.Pairs[i].Context(), again.Pairs[i].Context())
		assert.Equal(t, pf.Pairs[i].Machine, again.Pairs[i].Machine)
	}

	machine := cache.Load(filepath.Join(filepath.Dir(root), cache.FileName))
	assert.Equal(t, cache.Machine{
		"Map001.txt": {"一行目\n二行目": {Google: "First line\nSecond line"}},
	}, machine)
}

func TestSaveWithoutMachineTranslationsWritesNoCache(t *testing.T) {
	t.Parallel()

	root := newProject(t, map[string]string{"Map001.txt": patchText(record("はい", "Map001/events/1", "Yes"))})
	store := project.NewStore()

	p, err := store.Open(root, nil)
	require.NoError(t, err)
	require.NoError(t, store.Save(p, nil))

	assert.NoFileExists(t, filepath.Join(filepath.Dir(root), cache.FileName))
	assert.NoFileExists(t, filepath.Join(filepath.Dir(root), cache.FileName+project.StaleSuffix))
}

func TestSaveRetiresStaleCache(t *testing.T) {
	t.Parallel()

	root := newProject(t, map[string]string{"Map001.txt": patchText(record("はい", "Map001/events/1", ""))})
	machinePath := filepath.Join(filepath.Dir(root), cache.FileName)
	writeFile(t, machinePath, `{"Map001.txt":{"はい":{"Google":"Yes"}}}`)
	store := project.NewStore()

	p, err := store.Open(root, nil)
	require.NoError(t, err)
	pf, _ := p.File("Map001.txt")
	require.Equal(t, "Yes", pf.Pairs[0].Machine.Google)

	pf.Pairs[0].Machine = patch.MachineTranslations{}
	require.NoError(t, store.Save(p, nil))

	assert.NoFileExists(t, machinePath)
	assert.FileExists(t, machinePath+project.StaleSuffix)

	reopened, err := store.Open(root, nil)
	require.NoError(t, err)
	again, _ := reopened.File("Map001.txt")
	assert.True(t, again.Pairs[0].Machine.IsEmpty())
}

func TestSaveSurfacesWriteFailure(t *testing.T) {
	t.Parallel()

	root := newProject(t, nil)
	patchDir := filepath.Join(filepath.Dir(root), "patch")
	require.NoError(t, os.Mkdir(filepath.Join(patchDir, "Blocked.txt"), 0755))

	p := patch.NewProject(root)
	p.Add(&patch.PatchFile{Name: "A.txt", Header: parser.FileHeader, Pairs: []*patch.TranslationPair{
		patch.NewTranslationPair("a", "", []string{"> CONTEXT: a"}),
	}})
	p.Add(&patch.PatchFile{Name: "Blocked.txt", Header: parser.FileHeader, Pairs: []*patch.TranslationPair{
		patch.NewTranslationPair("b", "", []string{"> CONTEXT: b"}),
	}})

	err := project.NewStore().Save(p, nil)
	require.Error(t, err)

	// Files written before the failure stay on disk.
	assert.FileExists(t, filepath.Join(patchDir, "A.txt"))
}

func TestSaveKeepsHeaderVerbatim(t *testing.T) {
	t.Parallel()

	header := parser.FileHeader + " (generated by RPGMaker Trans)  "
	root := newProject(t, map[string]string{"System.txt": header + "\n" + record("はい", "System/terms/0", "Yes")})
	store := project.NewStore()

	p, err := store.Open(root, nil)
	require.NoError(t, err)
	require.NoError(t, store.Save(p, nil))

	data, err := os.ReadFile(filepath.Join(filepath.Dir(root), "patch", "System.txt"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), header+"\n"))
}
