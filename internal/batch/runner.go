// Package batch runs translation engines over a set of pairs and reports
// each result as an event, leaving all mutation of the pairs to the consumer.
package batch

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"turansuraetu/internal/cache"
	"turansuraetu/internal/engine"
	"turansuraetu/internal/patch"
	"turansuraetu/internal/textutil"
	"turansuraetu/internal/worker"
)

// Event reports the outcome of one engine for one pair.
type Event struct {
	// Index is the position of the pair in the slice given to Run.
	Index  int
	Engine string
	Field  patch.Field
	Value  string
	// Skipped is set when the field was already populated and overwrite was off.
	Skipped bool
	// Remembered is set when Value came from the translation memory.
	Remembered bool
	Err        error
}

// Apply writes the event's value into its pair. It reports whether the pair changed.
func (e Event) Apply(pairs []*patch.TranslationPair) bool {
	if e.Err != nil || e.Skipped || e.Value == "" {
		return false
	}
	if e.Index < 0 || e.Index >= len(pairs) {
		return false
	}
	pairs[e.Index].Machine.Set(e.Field, e.Value)
	return true
}

// Summary counts the events of one batch.
type Summary struct {
	Translated int
	Remembered int
	Skipped    int
	Failed     int
	Empty      int
}

// Runner drives a set of engines over pairs.
type Runner struct {
	engines []engine.Engine
	from    engine.Language
	to      engine.Language
	memory  *cache.TranslationMemory
}

// Option configures a Runner.
type Option func(*Runner)

// WithMemory consults and feeds mem around every engine call.
func WithMemory(mem *cache.TranslationMemory) Option {
	return func(r *Runner) { r.memory = mem }
}

// NewRunner creates a runner translating from one language to another.
func NewRunner(engines []engine.Engine, from, to engine.Language, opts ...Option) *Runner {
	r := &Runner{engines: engines, from: from, to: to}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type job struct {
	engine   engine.Engine
	original []string
	filled   []bool
}

// Run starts one goroutine per engine. Each engine walks the pairs in order
// and sends one event per pair. The channel is closed once every engine is
// done; only then is it safe to read Machine fields of the pairs again.
//
// Run reads the pairs before returning and never touches them afterwards.
func (r *Runner) Run(ctx context.Context, pairs []*patch.TranslationPair, overwrite bool) <-chan Event {
	original := make([]string, len(pairs))
	for i, p := range pairs {
		original[i] = p.Original()
	}

	jobs := make([]job, len(r.engines))
	for i, e := range r.engines {
		filled := make([]bool, len(pairs))
		if !overwrite {
			for j, p := range pairs {
				filled[j] = p.Machine.Has(e.Field())
			}
		}
		jobs[i] = job{engine: e, original: original, filled: filled}
	}

	events := make(chan Event)
	pool := worker.NewPool[job, struct{}](len(jobs), func(ctx context.Context, j job) (struct{}, error) {
		return struct{}{}, r.runEngine(ctx, j, events)
	})

	go func() {
		defer close(events)
		pool.Execute(ctx, jobs)
	}()

	return events
}

func (r *Runner) runEngine(ctx context.Context, j job, events chan<- Event) error {
	e := j.engine
	for i, text := range j.original {
		ev := Event{Index: i, Engine: e.Name(), Field: e.Field()}

		if j.filled[i] {
			ev.Skipped = true
		} else {
			ev.Value, ev.Remembered, ev.Err = r.translate(ctx, e, text)
			if ev.Err != nil {
				log.Warn().Err(ev.Err).
					Str("engine", e.Name()).
					Str("text", textutil.Truncate(textutil.FirstLine(text), 30)).
					Msg("Engine failed, continuing")
			}
		}

		select {
		case events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (r *Runner) translate(ctx context.Context, e engine.Engine, text string) (string, bool, error) {
	var key string
	if r.memory != nil {
		key = cache.Key(e.Field(), string(r.from), string(r.to), text)
		if v, ok := r.memory.Get(ctx, key); ok {
			return v, true, nil
		}
	}

	out, err := e.Translate(ctx, r.from, r.to, text)
	if err != nil {
		return "", false, err
	}

	if r.memory != nil && strings.TrimSpace(out) != "" {
		if err := r.memory.Set(ctx, key, text, out); err != nil {
			log.Warn().Err(err).Str("engine", e.Name()).Msg("Failed to remember translation")
		}
	}
	return out, false, nil
}

// Translate runs the engines and applies every event to pairs. onEvent, when
// non-nil, is called after each event has been applied.
func (r *Runner) Translate(ctx context.Context, pairs []*patch.TranslationPair, overwrite bool, onEvent func(Event)) Summary {
	var s Summary
	for ev := range r.Run(ctx, pairs, overwrite) {
		switch {
		case ev.Err != nil:
			s.Failed++
		case ev.Skipped:
			s.Skipped++
		case ev.Apply(pairs):
			if ev.Remembered {
				s.Remembered++
			} else {
				s.Translated++
			}
		default:
			s.Empty++
		}
		if onEvent != nil {
			onEvent(ev)
		}
	}
	return s
}

// Untranslated returns the pairs whose translation is blank.
func Untranslated(pairs []*patch.TranslationPair) []*patch.TranslationPair {
	var out []*patch.TranslationPair
	for _, p := range pairs {
		if textutil.IsBlank(p.Translation) {
			out = append(out, p)
		}
	}
	return out
}
