package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"turansuraetu/internal/patch"
	"turansuraetu/internal/textutil"
)

// Store persists engine output across projects.
type Store interface {
	Get(ctx context.Context, hash string) (string, bool, error)
	Put(ctx context.Context, hash, source, translated string) error
}

// TranslationMemory provides in-memory + persistent caching of engine output,
// keyed by engine field, language pair and source text.
type TranslationMemory struct {
	store  Store
	mu     sync.RWMutex
	memory map[string]string // hash → translated text
}

// NewTranslationMemory creates a memory backed by store. A nil store keeps entries in memory only.
func NewTranslationMemory(store Store) *TranslationMemory {
	return &TranslationMemory{
		store:  store,
		memory: make(map[string]string),
	}
}

// Key computes the memory key for one engine request.
func Key(field patch.Field, from, to, text string) string {
	return textutil.Hash(string(field) + "\x00" + from + "\x00" + to + "\x00" + text)
}

// Get retrieves a remembered translation. Store errors are treated as a miss.
func (m *TranslationMemory) Get(ctx context.Context, key string) (string, bool) {
	m.mu.RLock()
	if v, ok := m.memory[key]; ok {
		m.mu.RUnlock()
		return v, true
	}
	m.mu.RUnlock()

	if m.store == nil {
		return "", false
	}

	translated, ok, err := m.store.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Msg("Translation memory lookup failed")
		return "", false
	}
	if !ok {
		return "", false
	}

	m.mu.Lock()
	m.memory[key] = translated
	m.mu.Unlock()

	return translated, true
}

// Set stores a translation in memory and in the backing store.
func (m *TranslationMemory) Set(ctx context.Context, key, source, translated string) error {
	m.mu.Lock()
	m.memory[key] = translated
	m.mu.Unlock()

	if m.store == nil {
		return nil
	}

	if err := m.store.Put(ctx, key, source, translated); err != nil {
		return fmt.Errorf("memory set: %w", err)
	}
	return nil
}

// Len returns the number of entries held in process.
func (m *TranslationMemory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.memory)
}

// PostgresStore is a Store on a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a store on pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const createMemoryTable = `CREATE TABLE IF NOT EXISTS translation_memory (
	hash       TEXT PRIMARY KEY,
	source     TEXT NOT NULL,
	translated TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureSchema creates the memory table if needed.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createMemoryTable); err != nil {
		return fmt.Errorf("create translation_memory: %w", err)
	}
	return nil
}

// Get looks up a remembered translation by request hash.
func (s *PostgresStore) Get(ctx context.Context, hash string) (string, bool, error) {
	var translated string
	err := s.pool.QueryRow(ctx, `SELECT translated FROM translation_memory WHERE hash = $1`, hash).Scan(&translated)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("select translation_memory: %w", err)
	}
	return translated, true, nil
}

// Put stores a translation, replacing any earlier one for the same hash.
func (s *PostgresStore) Put(ctx context.Context, hash, source, translated string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO translation_memory (hash, source, translated)
VALUES ($1, $2, $3)
ON CONFLICT (hash) DO UPDATE SET translated = EXCLUDED.translated, updated_at = now()`,
		hash, source, translated)
	if err != nil {
		return fmt.Errorf("upsert translation_memory: %w", err)
	}
	return nil
}

// Connect opens a pool on databaseURL, verifies it and prepares the schema.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, *PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("connect PostgreSQL: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping PostgreSQL: %w", err)
	}

	store := NewPostgresStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	log.Info().Msg("Connected to translation memory")
	return pool, store, nil
}
