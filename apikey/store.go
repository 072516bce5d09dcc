package apikey

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MemoryStore is the in-memory Store for the demo deployment and tests.
type MemoryStore struct {
	mu       sync.RWMutex
	keys     map[string]Key
	byPrefix map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]Key), byPrefix: make(map[string]string)}
}

// Reset discards all keys.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = make(map[string]Key)
	s.byPrefix = make(map[string]string)
}

func (s *MemoryStore) Create(ctx context.Context, k Key) (Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k.CreatedAt = time.Now()
	s.keys[k.ID] = k
	s.byPrefix[k.Prefix] = k.ID
	return k, nil
}

func (s *MemoryStore) GetByPrefix(ctx context.Context, prefix string) (Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byPrefix[prefix]
	if !ok {
		return Key{}, ErrNotFound
	}
	return s.keys[id], nil
}

func (s *MemoryStore) List(ctx context.Context, ownerID string) ([]Key, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Key
	for _, k := range s.keys {
		if k.OwnerID == ownerID {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) Deactivate(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[id]
	if !ok {
		return ErrNotFound
	}
	k.Active = false
	s.keys[id] = k
	return nil
}

func (s *MemoryStore) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.keys[id]
	if !ok {
		return ErrNotFound
	}
	k.LastUsedAt = &at
	s.keys[id] = k
	return nil
}

// PGStore is the Postgres-backed Store.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const keyCols = `id, name, owner_id, prefix, hash, active, created_at, last_used_at`

func (s *PGStore) Create(ctx context.Context, k Key) (Key, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO api_keys (id, name, owner_id, prefix, hash, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+keyCols,
		k.ID, k.Name, k.OwnerID, k.Prefix, k.Hash, k.Active)
	return scanKey(row)
}

func (s *PGStore) GetByPrefix(ctx context.Context, prefix string) (Key, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+keyCols+` FROM api_keys WHERE prefix = $1`, prefix)
	k, err := scanKey(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Key{}, ErrNotFound
	}
	return k, err
}

func (s *PGStore) List(ctx context.Context, ownerID string) ([]Key, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+keyCols+` FROM api_keys WHERE owner_id = $1 ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("apikey: query keys: %w", err)
	}
	defer rows.Close()

	var out []Key
	for rows.Next() {
		k, err := scanKey(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

func (s *PGStore) Deactivate(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE api_keys SET active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("apikey: deactivate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGStore) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `UPDATE api_keys SET last_used_at = $2 WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("apikey: touch last used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanKey(row rowScanner) (Key, error) {
	var k Key
	err := row.Scan(&k.ID, &k.Name, &k.OwnerID, &k.Prefix, &k.Hash, &k.Active, &k.CreatedAt, &k.LastUsedAt)
	if err != nil {
		return Key{}, err
	}
	return k, nil
}
