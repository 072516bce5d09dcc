package contract

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var ErrTitleRequired = errors.New("contract: title is required")

// Service owns contract records. Completion is driven by the workspace
// engine once every workspace under a contract has completed.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create opens a new contract in the caller's acting context. companyID is
// empty for personal contracts.
func (s *Service) Create(ctx context.Context, userID, companyID, title, kind string) (Contract, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Contract{}, ErrTitleRequired
	}
	if kind == "" {
		kind = "general"
	}
	c, err := s.repo.Create(ctx, Contract{
		Title:     title,
		Kind:      kind,
		Status:    StatusActive,
		CreatedBy: userID,
		CompanyID: companyID,
	})
	if err != nil {
		return Contract{}, fmt.Errorf("contract: create: %w", err)
	}
	return c, nil
}

// Get returns a contract by id.
func (s *Service) Get(ctx context.Context, id string) (Contract, error) {
	return s.repo.Get(ctx, id)
}

// ListForContext lists contracts visible in the caller's acting context.
func (s *Service) ListForContext(ctx context.Context, userID, companyID string) ([]Contract, error) {
	return s.repo.ListForContext(ctx, userID, companyID)
}

// MarkCompleted transitions a contract to completed. Idempotent.
func (s *Service) MarkCompleted(ctx context.Context, id string) (Contract, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Contract{}, err
	}
	if c.Status == StatusCompleted {
		return c, nil
	}
	return s.repo.UpdateStatus(ctx, id, StatusCompleted)
}
