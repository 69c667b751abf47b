package cli_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"turansuraetu/internal/cache"
	"turansuraetu/internal/cli"
	"turansuraetu/internal/config"
	"turansuraetu/internal/parser"
	"turansuraetu/internal/project"
)

const sample = parser.FileHeader + `
> BEGIN STRING
はい
> CONTEXT: System/terms/0

Yes
> END STRING
> BEGIN STRING
ちょっと
> CONTEXT: Map001/events/1/pages/0/0


> END STRING
`

func newProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "RPGMKTRANSPATCH")
	require.NoError(t, os.WriteFile(root, []byte(project.RootHeader+"\n"), 0644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "patch"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "patch", "System.txt"), []byte(sample), 0644))
	return root
}

func testConfig() *config.Config {
	return &config.Config{SourceLanguage: "ja", TargetLanguage: "en", BreakerFailures: 5}
}

func run(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCommand(cfg)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	root := newProject(t)

	out, err := run(t, testConfig(), "validate", root)
	require.NoError(t, err)
	assert.Contains(t, out, "valid project root")

	require.NoError(t, os.WriteFile(root, []byte("nope\n"), 0644))
	_, err = run(t, testConfig(), "validate", root)
	assert.ErrorIs(t, err, project.ErrInvalidRoot)
}

func TestProjectFromConfig(t *testing.T) {
	root := newProject(t)
	cfg := testConfig()
	cfg.ProjectPath = root

	out, err := run(t, cfg, "info")
	require.NoError(t, err)
	assert.Contains(t, out, "System.txt")
	assert.Contains(t, out, "2 pairs")

	_, err = run(t, testConfig(), "info")
	assert.Error(t, err)
}

func TestTranslateCommandFillsAndSaves(t *testing.T) {
	root := newProject(t)

	_, err := run(t, testConfig(), "translate", root, "--engine", "transliterate")
	require.NoError(t, err)

	machine := cache.Load(filepath.Join(filepath.Dir(root), cache.FileName))
	require.Contains(t, machine, "System.txt")
	assert.Equal(t, "hai", machine["System.txt"]["はい"].Transliteration)
	assert.Equal(t, "chotto", machine["System.txt"]["ちょっと"].Transliteration)

	out, err := run(t, testConfig(), "list", root, "--untranslated")
	require.NoError(t, err)
	assert.Contains(t, out, `"ちょっと"`)
	assert.Contains(t, out, `"chotto"`)
	assert.NotContains(t, out, `"はい"`)
}

func TestTranslateDryRunDoesNotSave(t *testing.T) {
	root := newProject(t)

	_, err := run(t, testConfig(), "translate", root, "--engine", "transliterate", "--dry-run")
	require.NoError(t, err)
	assert.NoFileExists(t, filepath.Join(filepath.Dir(root), cache.FileName))
}

func TestTranslateUnknownEngine(t *testing.T) {
	root := newProject(t)

	_, err := run(t, testConfig(), "translate", root, "--engine", "bing")
	assert.Error(t, err)
}

func TestNormalizeAndExport(t *testing.T) {
	root := newProject(t)
	machinePath := filepath.Join(filepath.Dir(root), cache.FileName)
	require.NoError(t, os.WriteFile(machinePath, []byte(`{"System.txt":{"はい":{"Bing":"Yes"}}}`), 0644))

	_, err := run(t, testConfig(), "normalize", root)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(filepath.Dir(root), "patch", "System.txt"))
	require.NoError(t, err)
	assert.Equal(t, sample, string(data))

	out, err := run(t, testConfig(), "export", root)
	require.NoError(t, err)
	var doc map[string]map[string]map[string]string
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "Yes", doc["System.txt"]["はい"]["Bing"])
}

func addPatchFile(t *testing.T, root, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(root), "patch", name), []byte(content), 0644))
}

func TestClearCommandDropsFileFromCache(t *testing.T) {
	root := newProject(t)
	addPatchFile(t, root, "Map001.txt", parser.FileHeader+"\n> BEGIN STRING\nいいえ\n> CONTEXT: Map001/events/2\n\n\n> END STRING\n")
	machinePath := filepath.Join(filepath.Dir(root), cache.FileName)

	_, err := run(t, testConfig(), "translate", root, "--engine", "transliterate")
	require.NoError(t, err)
	machine := cache.Load(machinePath)
	require.Contains(t, machine, "System.txt")
	require.Contains(t, machine, "Map001.txt")

	_, err = run(t, testConfig(), "clear", root, "--file", "System.txt")
	require.NoError(t, err)

	machine = cache.Load(machinePath)
	assert.NotContains(t, machine, "System.txt")
	assert.Equal(t, "iie", machine["Map001.txt"]["いいえ"].Transliteration)

	_, err = run(t, testConfig(), "clear", root)
	require.NoError(t, err)
	assert.NoFileExists(t, machinePath)
	assert.FileExists(t, machinePath+project.StaleSuffix)
}

func TestClearCommandByEngine(t *testing.T) {
	root := newProject(t)
	machinePath := filepath.Join(filepath.Dir(root), cache.FileName)
	require.NoError(t, os.WriteFile(machinePath, []byte(`{"System.txt":{"はい":{"Bing":"Yes","Transliteration":"hai"}}}`), 0644))

	_, err := run(t, testConfig(), "clear", root, "--engine", "transliterate")
	require.NoError(t, err)

	machine := cache.Load(machinePath)
	assert.Equal(t, "Yes", machine["System.txt"]["はい"].Bing)
	assert.Empty(t, machine["System.txt"]["はい"].Transliteration)

	_, err = run(t, testConfig(), "clear", root, "--engine", "bing")
	require.NoError(t, err)
	assert.NoFileExists(t, machinePath)

	_, err = run(t, testConfig(), "clear", root, "--engine", "deepl")
	assert.Error(t, err)
}

func TestTranslateSinglePairOverwrites(t *testing.T) {
	root := newProject(t)
	machinePath := filepath.Join(filepath.Dir(root), cache.FileName)
	require.NoError(t, os.WriteFile(machinePath, []byte(`{"System.txt":{"はい":{"Transliteration":"old"}}}`), 0644))

	_, err := run(t, testConfig(), "translate", root, "--engine", "transliterate", "--file", "System.txt", "--pair", "1")
	require.NoError(t, err)

	machine := cache.Load(machinePath)
	assert.Equal(t, "hai", machine["System.txt"]["はい"].Transliteration)
	assert.NotContains(t, machine["System.txt"], "ちょっと")

	_, err = run(t, testConfig(), "translate", root, "--engine", "transliterate", "--pair", "1")
	assert.Error(t, err)

	_, err = run(t, testConfig(), "translate", root, "--engine", "transliterate", "--file", "System.txt", "--pair", "3")
	assert.Error(t, err)
}
