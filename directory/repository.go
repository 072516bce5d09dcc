package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrCompanyNotFound = errors.New("directory: company not found")
	ErrMandateNotFound = errors.New("directory: mandate not found")
)

// Repository persists companies and mandates.
type Repository interface {
	CreateCompany(ctx context.Context, c Company) (Company, error)
	GetCompany(ctx context.Context, id string) (Company, error)
	GetCompanyByRegistryCode(ctx context.Context, code string) (Company, error)

	CreateMandate(ctx context.Context, m Mandate) (Mandate, error)
	GetMandate(ctx context.Context, id string) (Mandate, error)
	UpdateMandateStatus(ctx context.Context, id string, status MandateStatus) (Mandate, error)
	MandatesForUser(ctx context.Context, userID string) ([]MandateWithCompany, error)
	MandatesForCompany(ctx context.Context, companyID string) ([]Mandate, error)
}

// PGRepository is the Postgres-backed Repository.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewPGRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) CreateCompany(ctx context.Context, c Company) (Company, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO companies (id, registry_code, name, country, status, last_verified_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (registry_code) DO UPDATE
			SET name = EXCLUDED.name, status = EXCLUDED.status,
			    last_verified_at = EXCLUDED.last_verified_at, updated_at = now()
		RETURNING id, registry_code, name, country, status, last_verified_at, created_at, updated_at`,
		c.ID, c.RegistryCode, c.Name, c.Country, c.Status, c.LastVerifiedAt)
	return scanCompany(row)
}

func (r *PGRepository) GetCompany(ctx context.Context, id string) (Company, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, registry_code, name, country, status, last_verified_at, created_at, updated_at
		FROM companies WHERE id = $1`, id)
	c, err := scanCompany(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Company{}, ErrCompanyNotFound
	}
	return c, err
}

func (r *PGRepository) GetCompanyByRegistryCode(ctx context.Context, code string) (Company, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, registry_code, name, country, status, last_verified_at, created_at, updated_at
		FROM companies WHERE registry_code = $1`, code)
	c, err := scanCompany(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Company{}, ErrCompanyNotFound
	}
	return c, err
}

func (r *PGRepository) CreateMandate(ctx context.Context, m Mandate) (Mandate, error) {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO mandates (id, user_id, company_id, role, scope, valid_from, valid_to, source, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, user_id, company_id, role, scope, valid_from, valid_to, source, status, created_at, updated_at`,
		m.ID, m.UserID, m.CompanyID, m.Role, m.Scope, m.ValidFrom, m.ValidTo, m.Source, m.Status)
	return scanMandate(row)
}

func (r *PGRepository) GetMandate(ctx context.Context, id string) (Mandate, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, user_id, company_id, role, scope, valid_from, valid_to, source, status, created_at, updated_at
		FROM mandates WHERE id = $1`, id)
	m, err := scanMandate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Mandate{}, ErrMandateNotFound
	}
	return m, err
}

func (r *PGRepository) UpdateMandateStatus(ctx context.Context, id string, status MandateStatus) (Mandate, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE mandates SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, user_id, company_id, role, scope, valid_from, valid_to, source, status, created_at, updated_at`,
		id, status)
	m, err := scanMandate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Mandate{}, ErrMandateNotFound
	}
	return m, err
}

func (r *PGRepository) MandatesForUser(ctx context.Context, userID string) ([]MandateWithCompany, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT m.id, m.user_id, m.company_id, m.role, m.scope, m.valid_from, m.valid_to,
		       m.source, m.status, m.created_at, m.updated_at,
		       c.id, c.registry_code, c.name, c.country, c.status, c.last_verified_at, c.created_at, c.updated_at
		FROM mandates m
		JOIN companies c ON c.id = m.company_id
		WHERE m.user_id = $1
		ORDER BY m.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("directory: query mandates: %w", err)
	}
	defer rows.Close()

	var out []MandateWithCompany
	for rows.Next() {
		var mc MandateWithCompany
		if err := rows.Scan(
			&mc.ID, &mc.UserID, &mc.CompanyID, &mc.Role, &mc.Scope, &mc.ValidFrom, &mc.ValidTo,
			&mc.Source, &mc.Status, &mc.CreatedAt, &mc.UpdatedAt,
			&mc.Company.ID, &mc.Company.RegistryCode, &mc.Company.Name, &mc.Company.Country,
			&mc.Company.Status, &mc.Company.LastVerifiedAt, &mc.Company.CreatedAt, &mc.Company.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("directory: scan mandate row: %w", err)
		}
		out = append(out, mc)
	}
	return out, rows.Err()
}

func (r *PGRepository) MandatesForCompany(ctx context.Context, companyID string) ([]Mandate, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, company_id, role, scope, valid_from, valid_to, source, status, created_at, updated_at
		FROM mandates WHERE company_id = $1
		ORDER BY created_at DESC`, companyID)
	if err != nil {
		return nil, fmt.Errorf("directory: query company mandates: %w", err)
	}
	defer rows.Close()

	var out []Mandate
	for rows.Next() {
		m, err := scanMandate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompany(row rowScanner) (Company, error) {
	var c Company
	err := row.Scan(&c.ID, &c.RegistryCode, &c.Name, &c.Country, &c.Status,
		&c.LastVerifiedAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Company{}, err
	}
	return c, nil
}

func scanMandate(row rowScanner) (Mandate, error) {
	var m Mandate
	err := row.Scan(&m.ID, &m.UserID, &m.CompanyID, &m.Role, &m.Scope, &m.ValidFrom,
		&m.ValidTo, &m.Source, &m.Status, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return Mandate{}, err
	}
	return m, nil
}
