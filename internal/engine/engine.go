// Package engine defines the machine translation engines that fill the
// per-engine fields of a translation pair.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"turansuraetu/internal/patch"
)

// Language is a source or target language of a translation request.
type Language string

const (
	English  Language = "en"
	Japanese Language = "ja"
)

// ErrUnsupportedLanguage is returned for languages an engine cannot handle.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// ParseLanguage accepts a language code or its English name.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "en", "english":
		return English, nil
	case "ja", "jp", "japanese":
		return Japanese, nil
	}
	return "", fmt.Errorf("%q: %w", s, ErrUnsupportedLanguage)
}

// Engine translates text and names the machine translation field it fills.
type Engine interface {
	// Name identifies the engine on the command line and in logs.
	Name() string
	// Field is the slot of patch.MachineTranslations this engine writes.
	Field() patch.Field
	// Translate returns the translation of text. An empty result means the
	// engine had nothing to offer for this input.
	Translate(ctx context.Context, from, to Language, text string) (string, error)
}

// Registry is an explicit, ordered set of engines.
type Registry struct {
	engines []Engine
}

// NewRegistry creates a registry. Two engines may not share a field, since
// engines run in parallel and each owns its field.
func NewRegistry(engines ...Engine) (*Registry, error) {
	seenName := make(map[string]bool)
	seenField := make(map[patch.Field]string)
	for _, e := range engines {
		if seenName[e.Name()] {
			return nil, fmt.Errorf("duplicate engine %q", e.Name())
		}
		if other, ok := seenField[e.Field()]; ok {
			return nil, fmt.Errorf("engines %q and %q both write %s", other, e.Name(), e.Field())
		}
		seenName[e.Name()] = true
		seenField[e.Field()] = e.Name()
	}
	return &Registry{engines: engines}, nil
}

// Engines returns the registered engines in registration order.
func (r *Registry) Engines() []Engine {
	out := make([]Engine, len(r.engines))
	copy(out, r.engines)
	return out
}

// Lookup finds an engine by name.
func (r *Registry) Lookup(name string) (Engine, bool) {
	for _, e := range r.engines {
		if strings.EqualFold(e.Name(), name) {
			return e, true
		}
	}
	return nil, false
}

// Select returns the named engines, or all engines when names is empty.
func (r *Registry) Select(names []string) ([]Engine, error) {
	if len(names) == 0 {
		return r.Engines(), nil
	}
	out := make([]Engine, 0, len(names))
	for _, name := range names {
		e, ok := r.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown engine %q", name)
		}
		out = append(out, e)
	}
	return out, nil
}

// Names lists the registered engine names.
func (r *Registry) Names() []string {
	names := make([]string, len(r.engines))
	for i, e := range r.engines {
		names[i] = e.Name()
	}
	return names
}
