package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implements Store backed by PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

func (s *PGStore) Append(ctx context.Context, e Event) error {
	const insertSQL = `
		INSERT INTO audit_events (id, kind, details, user_id, company_id, at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
	`
	if _, err := s.pool.Exec(ctx, insertSQL, e.ID, string(e.Kind), e.Details, e.UserID, e.CompanyID, e.At); err != nil {
		return fmt.Errorf("audit: append: %w", err)
	}
	return nil
}

func (s *PGStore) ByCompany(ctx context.Context, companyID string, limit int) ([]Event, error) {
	const selectSQL = `
		SELECT id, kind, details, user_id, COALESCE(company_id, ''), at
		FROM audit_events
		WHERE company_id = $1
		ORDER BY at DESC
		LIMIT $2
	`
	return s.query(ctx, selectSQL, companyID, limit)
}

func (s *PGStore) ByUser(ctx context.Context, userID string, limit int) ([]Event, error) {
	const selectSQL = `
		SELECT id, kind, details, user_id, COALESCE(company_id, ''), at
		FROM audit_events
		WHERE user_id = $1
		ORDER BY at DESC
		LIMIT $2
	`
	return s.query(ctx, selectSQL, userID, limit)
}

func (s *PGStore) query(ctx context.Context, sql string, key string, limit int) ([]Event, error) {
	rows, err := s.pool.Query(ctx, sql, key, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var e Event
		var kind string
		if err := rows.Scan(&e.ID, &kind, &e.Details, &e.UserID, &e.CompanyID, &e.At); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		e.Kind = Kind(kind)
		events = append(events, e)
	}
	return events, rows.Err()
}
