package contract

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("contract: not found")

// Repository persists contracts.
type Repository interface {
	Create(ctx context.Context, c Contract) (Contract, error)
	Get(ctx context.Context, id string) (Contract, error)
	UpdateStatus(ctx context.Context, id string, status Status) (Contract, error)
	ListForContext(ctx context.Context, userID, companyID string) ([]Contract, error)
}

// PGRepository is the Postgres-backed Repository.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) Create(ctx context.Context, c Contract) (Contract, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO contracts (id, title, kind, status, created_by, company_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		RETURNING id, title, kind, status, created_by, COALESCE(company_id, ''), created_at, updated_at`,
		c.ID, c.Title, c.Kind, c.Status, c.CreatedBy, c.CompanyID)
	return scanContract(row)
}

func (r *PGRepository) Get(ctx context.Context, id string) (Contract, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, title, kind, status, created_by, COALESCE(company_id, ''), created_at, updated_at
		FROM contracts WHERE id = $1`, id)
	c, err := scanContract(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contract{}, ErrNotFound
	}
	return c, err
}

func (r *PGRepository) UpdateStatus(ctx context.Context, id string, status Status) (Contract, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE contracts SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, title, kind, status, created_by, COALESCE(company_id, ''), created_at, updated_at`,
		id, status)
	c, err := scanContract(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Contract{}, ErrNotFound
	}
	return c, err
}

func (r *PGRepository) ListForContext(ctx context.Context, userID, companyID string) ([]Contract, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if companyID != "" {
		rows, err = r.pool.Query(ctx, `
			SELECT id, title, kind, status, created_by, COALESCE(company_id, ''), created_at, updated_at
			FROM contracts WHERE company_id = $1 ORDER BY created_at DESC`, companyID)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT id, title, kind, status, created_by, COALESCE(company_id, ''), created_at, updated_at
			FROM contracts WHERE created_by = $1 AND company_id IS NULL ORDER BY created_at DESC`, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("contract: query: %w", err)
	}
	defer rows.Close()

	var out []Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContract(row rowScanner) (Contract, error) {
	var c Contract
	err := row.Scan(&c.ID, &c.Title, &c.Kind, &c.Status, &c.CreatedBy, &c.CompanyID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Contract{}, err
	}
	return c, nil
}

// MemoryRepository is an in-memory Repository for the demo deployment and
// tests.
type MemoryRepository struct {
	mu        sync.RWMutex
	contracts map[string]Contract
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{contracts: make(map[string]Contract)}
}

// Reset discards all contracts.
func (r *MemoryRepository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contracts = make(map[string]Contract)
}

func (r *MemoryRepository) Create(ctx context.Context, c Contract) (Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	r.contracts[c.ID] = c
	return c, nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contracts[id]
	if !ok {
		return Contract{}, ErrNotFound
	}
	return c, nil
}

func (r *MemoryRepository) UpdateStatus(ctx context.Context, id string, status Status) (Contract, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.contracts[id]
	if !ok {
		return Contract{}, ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	r.contracts[id] = c
	return c, nil
}

func (r *MemoryRepository) ListForContext(ctx context.Context, userID, companyID string) ([]Contract, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Contract
	for _, c := range r.contracts {
		if companyID != "" {
			if c.CompanyID == companyID {
				out = append(out, c)
			}
		} else if c.CreatedBy == userID && c.CompanyID == "" {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
