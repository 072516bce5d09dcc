package directory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryRepository is an in-memory Repository for the demo deployment and
// tests.
type MemoryRepository struct {
	mu        sync.RWMutex
	companies map[string]Company
	byCode    map[string]string
	mandates  map[string]Mandate
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		companies: make(map[string]Company),
		byCode:    make(map[string]string),
		mandates:  make(map[string]Mandate),
	}
}

// Reset discards all companies and mandates.
func (r *MemoryRepository) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.companies = make(map[string]Company)
	r.byCode = make(map[string]string)
	r.mandates = make(map[string]Mandate)
}

func (r *MemoryRepository) CreateCompany(ctx context.Context, c Company) (Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if existingID, ok := r.byCode[c.RegistryCode]; ok {
		existing := r.companies[existingID]
		existing.Name = c.Name
		existing.Status = c.Status
		existing.LastVerifiedAt = c.LastVerifiedAt
		existing.UpdatedAt = now
		r.companies[existingID] = existing
		return existing, nil
	}

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	r.companies[c.ID] = c
	r.byCode[c.RegistryCode] = c.ID
	return c, nil
}

func (r *MemoryRepository) GetCompany(ctx context.Context, id string) (Company, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.companies[id]
	if !ok {
		return Company{}, ErrCompanyNotFound
	}
	return c, nil
}

func (r *MemoryRepository) GetCompanyByRegistryCode(ctx context.Context, code string) (Company, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byCode[code]
	if !ok {
		return Company{}, ErrCompanyNotFound
	}
	return r.companies[id], nil
}

func (r *MemoryRepository) CreateMandate(ctx context.Context, m Mandate) (Mandate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now()
	m.CreatedAt = now
	m.UpdatedAt = now
	r.mandates[m.ID] = m
	return m, nil
}

func (r *MemoryRepository) GetMandate(ctx context.Context, id string) (Mandate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.mandates[id]
	if !ok {
		return Mandate{}, ErrMandateNotFound
	}
	return m, nil
}

func (r *MemoryRepository) UpdateMandateStatus(ctx context.Context, id string, status MandateStatus) (Mandate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.mandates[id]
	if !ok {
		return Mandate{}, ErrMandateNotFound
	}
	m.Status = status
	m.UpdatedAt = time.Now()
	r.mandates[id] = m
	return m, nil
}

func (r *MemoryRepository) MandatesForUser(ctx context.Context, userID string) ([]MandateWithCompany, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []MandateWithCompany
	for _, m := range r.mandates {
		if m.UserID != userID {
			continue
		}
		out = append(out, MandateWithCompany{Mandate: m, Company: r.companies[m.CompanyID]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) MandatesForCompany(ctx context.Context, companyID string) ([]Mandate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Mandate
	for _, m := range r.mandates {
		if m.CompanyID == companyID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
