package patch

import (
	"strings"
)

// Field names one engine slot of MachineTranslations. The values double as
// the JSON property names used in the machine translation side file.
type Field string

const (
	FieldGoogle          Field = "Google"
	FieldBing            Field = "Bing"
	FieldTransliteration Field = "Transliteration"
)

// Fields lists every engine slot in a fixed order.
var Fields = []Field{FieldGoogle, FieldBing, FieldTransliteration}

// ParseField resolves a field name case-insensitively.
func ParseField(name string) (Field, bool) {
	for _, f := range Fields {
		if strings.EqualFold(string(f), name) {
			return f, true
		}
	}
	return "", false
}

// MachineTranslations holds the non-authoritative per-engine suggestions for one pair.
type MachineTranslations struct {
	Google          string `json:"Google,omitempty"`
	Bing            string `json:"Bing,omitempty"`
	Transliteration string `json:"Transliteration,omitempty"`
}

// Get returns the value stored for the given engine field.
func (m MachineTranslations) Get(f Field) string {
	switch f {
	case FieldGoogle:
		return m.Google
	case FieldBing:
		return m.Bing
	case FieldTransliteration:
		return m.Transliteration
	}
	return ""
}

// Set stores a value for the given engine field. Unknown fields are ignored.
func (m *MachineTranslations) Set(f Field, value string) {
	switch f {
	case FieldGoogle:
		m.Google = value
	case FieldBing:
		m.Bing = value
	case FieldTransliteration:
		m.Transliteration = value
	}
}

// Has reports whether the given field holds a non-blank value.
func (m MachineTranslations) Has(f Field) bool {
	return strings.TrimSpace(m.Get(f)) != ""
}

// IsEmpty reports whether every engine field is blank.
func (m MachineTranslations) IsEmpty() bool {
	for _, f := range Fields {
		if m.Has(f) {
			return false
		}
	}
	return true
}

// Fill copies fields from other into m where m is still blank.
func (m *MachineTranslations) Fill(other MachineTranslations) {
	for _, f := range Fields {
		if !m.Has(f) && other.Has(f) {
			m.Set(f, other.Get(f))
		}
	}
}

// TranslationPair is one original string with its translation and context lines.
type TranslationPair struct {
	original string
	context  []string

	// Translation is the authoritative, user-editable translation.
	Translation string
	// Machine holds cached engine suggestions.
	Machine MachineTranslations
}

// NewTranslationPair creates a pair. The context slice is copied.
func NewTranslationPair(original, translation string, context []string) *TranslationPair {
	ctx := make([]string, len(context))
	copy(ctx, context)
	return &TranslationPair{
		original:    original,
		context:     ctx,
		Translation: translation,
	}
}

// Original returns the source text. It is the cache lookup key.
func (p *TranslationPair) Original() string { return p.original }

// Context returns a copy of the raw context marker lines.
func (p *TranslationPair) Context() []string {
	out := make([]string, len(p.context))
	copy(out, p.context)
	return out
}

// ContextPreview renders the context lines with their "label: " prefix removed.
func (p *TranslationPair) ContextPreview() string {
	lines := make([]string, len(p.context))
	for i, c := range p.context {
		lines[i] = stripLabel(c)
	}
	return strings.Join(lines, "\n")
}

func stripLabel(line string) string {
	idx := strings.Index(line, ": ")
	if idx < 0 {
		return line
	}
	return line[idx+2:]
}

// PatchFile is the in-memory form of one file under patch/.
type PatchFile struct {
	// Name is the file name, unique within a project.
	Name string
	// Header is the verbatim first line of the file.
	Header string
	// Pairs are the records in file order.
	Pairs []*TranslationPair
}

// Project maps patch file names to their contents, keeping insertion order.
type Project struct {
	// Path is the absolute path of the root marker file.
	Path  string
	files map[string]*PatchFile
	order []string
}

// NewProject creates an empty project rooted at path.
func NewProject(path string) *Project {
	return &Project{
		Path:  path,
		files: make(map[string]*PatchFile),
	}
}

// Add inserts or replaces a patch file. A replaced file keeps its position.
func (p *Project) Add(pf *PatchFile) {
	if _, exists := p.files[pf.Name]; !exists {
		p.order = append(p.order, pf.Name)
	}
	p.files[pf.Name] = pf
}

// Remove deletes a patch file from the project. It does not touch the disk.
func (p *Project) Remove(name string) {
	if _, exists := p.files[name]; !exists {
		return
	}
	delete(p.files, name)
	for i, n := range p.order {
		if n == name {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// File returns the patch file with the given name.
func (p *Project) File(name string) (*PatchFile, bool) {
	pf, ok := p.files[name]
	return pf, ok
}

// Files returns the patch files in insertion order.
func (p *Project) Files() []*PatchFile {
	out := make([]*PatchFile, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, p.files[name])
	}
	return out
}

// Len returns the number of patch files.
func (p *Project) Len() int { return len(p.order) }

// Pairs returns every pair of every file, in file then record order.
func (p *Project) Pairs() []*TranslationPair {
	var out []*TranslationPair
	for _, pf := range p.Files() {
		out = append(out, pf.Pairs...)
	}
	return out
}
