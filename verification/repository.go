package verification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound        = errors.New("verification: transaction not found")
	ErrAlreadyResolved = errors.New("verification: transaction already resolved")
)

// Store persists verification transactions. Resolve is a compare-and-set:
// only the first terminal write on a pending transaction wins.
type Store interface {
	Create(ctx context.Context, tx Transaction) (Transaction, error)
	Get(ctx context.Context, id string) (Transaction, error)
	Resolve(ctx context.Context, id string, status Status, result *Result) (Transaction, error)
}

// MemoryStore is the in-memory Store for the demo deployment and tests.
type MemoryStore struct {
	mu  sync.Mutex
	txs map[string]Transaction
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{txs: make(map[string]Transaction)}
}

// Reset discards all transactions.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txs = make(map[string]Transaction)
}

func (s *MemoryStore) Create(ctx context.Context, tx Transaction) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	tx.CreatedAt = now
	tx.UpdatedAt = now
	s.txs[tx.ID] = tx
	return tx, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	return tx, nil
}

func (s *MemoryStore) Resolve(ctx context.Context, id string, status Status, result *Result) (Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, ok := s.txs[id]
	if !ok {
		return Transaction{}, ErrNotFound
	}
	if tx.Status != StatusPending {
		return Transaction{}, ErrAlreadyResolved
	}
	tx.Status = status
	tx.Result = result
	tx.UpdatedAt = time.Now()
	s.txs[id] = tx
	return tx, nil
}

// PGStore is the Postgres-backed Store. The WHERE status = 'pending' clause
// in Resolve is the compare-and-set.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Create(ctx context.Context, tx Transaction) (Transaction, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO verification_transactions (id, company_code, nonce, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id, company_code, nonce, status, result, created_at, updated_at`,
		tx.ID, tx.CompanyCode, tx.Nonce, tx.Status)
	return scanTransaction(row)
}

func (s *PGStore) Get(ctx context.Context, id string) (Transaction, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, company_code, nonce, status, result, created_at, updated_at
		FROM verification_transactions WHERE id = $1`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transaction{}, ErrNotFound
	}
	return tx, err
}

func (s *PGStore) Resolve(ctx context.Context, id string, status Status, result *Result) (Transaction, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return Transaction{}, fmt.Errorf("verification: encode result: %w", err)
	}
	row := s.pool.QueryRow(ctx, `
		UPDATE verification_transactions
		SET status = $2, result = $3, updated_at = now()
		WHERE id = $1 AND status = 'pending'
		RETURNING id, company_code, nonce, status, result, created_at, updated_at`,
		id, status, payload)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// Either unknown or already terminal; distinguish for the caller.
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return Transaction{}, getErr
		}
		return Transaction{}, ErrAlreadyResolved
	}
	return tx, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var (
		tx      Transaction
		payload []byte
	)
	err := row.Scan(&tx.ID, &tx.CompanyCode, &tx.Nonce, &tx.Status, &payload, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return Transaction{}, err
	}
	if len(payload) > 0 {
		var r Result
		if err := json.Unmarshal(payload, &r); err != nil {
			return Transaction{}, fmt.Errorf("verification: decode result: %w", err)
		}
		tx.Result = &r
	}
	return tx, nil
}
