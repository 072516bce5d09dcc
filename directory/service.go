package directory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Brano80/eGarant/audit"
)

var (
	ErrNotAnOfficer     = errors.New("directory: user is not a registered officer of the company")
	ErrNotAuthorized    = errors.New("directory: user holds no mandate authorizing this action")
	ErrNotMandateHolder = errors.New("directory: mandate belongs to a different user")
	ErrMandateNotOpen   = errors.New("directory: mandate is not awaiting confirmation")
	ErrHolderNotFound   = errors.New("directory: mandate holder account not found")
)

// grantingRoles lists the registry roles whose holders may grant mandates to
// others at the same company.
var grantingRoles = []string{"Konateľ", "Prokurista", "Jednatel", "Gerente General"}

// UserDirectory resolves user accounts for mandate holders. Implemented by
// the auth service.
type UserDirectory interface {
	UserNameByID(ctx context.Context, id string) (name string, email string, err error)
	UserIDByEmail(ctx context.Context, email string) (string, error)
}

// Service owns companies and the mandate lifecycle.
type Service struct {
	repo     Repository
	registry Registry
	users    UserDirectory
	audit    *audit.Service
}

func NewService(repo Repository, registry Registry, users UserDirectory, aud *audit.Service) *Service {
	return &Service{repo: repo, registry: registry, users: users, audit: aud}
}

// RegistrySearch returns the registry extract for a company code.
func (s *Service) RegistrySearch(ctx context.Context, registryCode string) (RegistryExtract, error) {
	return s.registry.Lookup(ctx, registryCode)
}

// ConnectCompany links a company to the calling user. The user must appear as
// an officer in the registry extract; the officer's role becomes an active
// mandate sourced from the registry.
func (s *Service) ConnectCompany(ctx context.Context, userID, registryCode string) (MandateWithCompany, error) {
	extract, err := s.registry.Lookup(ctx, registryCode)
	if err != nil {
		return MandateWithCompany{}, err
	}

	userName, _, err := s.users.UserNameByID(ctx, userID)
	if err != nil {
		return MandateWithCompany{}, fmt.Errorf("directory: resolve user: %w", err)
	}

	var officer *RegistryOfficer
	for i := range extract.Officers {
		full := extract.Officers[i].GivenName + " " + extract.Officers[i].FamilyName
		if strings.EqualFold(full, strings.TrimSpace(userName)) {
			officer = &extract.Officers[i]
			break
		}
	}
	if officer == nil {
		return MandateWithCompany{}, ErrNotAnOfficer
	}

	now := time.Now()
	company, err := s.repo.CreateCompany(ctx, Company{
		RegistryCode:   extract.RegistryCode,
		Name:           extract.Name,
		Country:        extract.Country,
		Status:         CompanyActive,
		LastVerifiedAt: &now,
	})
	if err != nil {
		return MandateWithCompany{}, fmt.Errorf("directory: create company: %w", err)
	}

	// Reconnecting must not duplicate the registry mandate.
	existing, err := s.repo.MandatesForUser(ctx, userID)
	if err != nil {
		return MandateWithCompany{}, fmt.Errorf("directory: list mandates: %w", err)
	}
	for _, mc := range existing {
		if mc.CompanyID == company.ID && mc.Source == "registry" && mc.Status == MandateActive {
			mc.Company = company
			return mc, nil
		}
	}

	scope := ScopeSole
	if officer.Scope != "" && !strings.EqualFold(officer.Scope, "samostatne") {
		scope = ScopeJoint
	}
	mandate, err := s.repo.CreateMandate(ctx, Mandate{
		UserID:    userID,
		CompanyID: company.ID,
		Role:      officer.Role,
		Scope:     scope,
		ValidFrom: now,
		Source:    "registry",
		Status:    MandateActive,
	})
	if err != nil {
		return MandateWithCompany{}, fmt.Errorf("directory: create mandate: %w", err)
	}

	s.audit.Write(ctx, audit.KindCompanyConnected, map[string]any{
		"registryCode": company.RegistryCode,
		"companyName":  company.Name,
		"role":         mandate.Role,
	}, userID, company.ID)

	return MandateWithCompany{Mandate: mandate, Company: company}, nil
}

// GrantMandate lets a user with a granting role at a company delegate a role
// to another registered user. The new mandate waits for the holder's
// confirmation.
func (s *Service) GrantMandate(ctx context.Context, grantorID, companyID, holderEmail, role string, scope MandateScope, validTo *time.Time) (Mandate, error) {
	if err := s.requireGrantingMandate(ctx, grantorID, companyID); err != nil {
		return Mandate{}, err
	}

	holderID, err := s.users.UserIDByEmail(ctx, holderEmail)
	if err != nil {
		return Mandate{}, ErrHolderNotFound
	}

	if scope == "" {
		scope = ScopeLimited
	}
	mandate, err := s.repo.CreateMandate(ctx, Mandate{
		UserID:    holderID,
		CompanyID: companyID,
		Role:      role,
		Scope:     scope,
		ValidFrom: time.Now(),
		ValidTo:   validTo,
		Source:    "delegated",
		Status:    MandatePending,
	})
	if err != nil {
		return Mandate{}, fmt.Errorf("directory: create mandate: %w", err)
	}

	s.audit.Write(ctx, audit.KindMandateCreated, map[string]any{
		"mandateId":   mandate.ID,
		"holderEmail": holderEmail,
		"role":        role,
	}, grantorID, companyID)

	return mandate, nil
}

// RespondToMandate records the holder's acceptance or rejection of a pending
// mandate.
func (s *Service) RespondToMandate(ctx context.Context, userID, mandateID string, accept bool) (Mandate, error) {
	m, err := s.repo.GetMandate(ctx, mandateID)
	if err != nil {
		return Mandate{}, err
	}
	if m.UserID != userID {
		return Mandate{}, ErrNotMandateHolder
	}
	if m.Status != MandatePending {
		return Mandate{}, ErrMandateNotOpen
	}

	status := MandateRejected
	kind := audit.KindMandateRejected
	if accept {
		status = MandateActive
		kind = audit.KindMandateAccepted
	}
	updated, err := s.repo.UpdateMandateStatus(ctx, mandateID, status)
	if err != nil {
		return Mandate{}, err
	}

	s.audit.Write(ctx, kind, map[string]any{"mandateId": mandateID}, userID, m.CompanyID)
	return updated, nil
}

// RevokeMandate withdraws a mandate. Only a user with a granting role at the
// company may revoke; registry-sourced mandates cannot be revoked here.
func (s *Service) RevokeMandate(ctx context.Context, actorID, mandateID string) (Mandate, error) {
	m, err := s.repo.GetMandate(ctx, mandateID)
	if err != nil {
		return Mandate{}, err
	}
	if m.Source == "registry" {
		return Mandate{}, ErrNotAuthorized
	}
	if err := s.requireGrantingMandate(ctx, actorID, m.CompanyID); err != nil {
		return Mandate{}, err
	}

	updated, err := s.repo.UpdateMandateStatus(ctx, mandateID, MandateRevoked)
	if err != nil {
		return Mandate{}, err
	}
	s.audit.Write(ctx, audit.KindMandateRevoked, map[string]any{"mandateId": mandateID}, actorID, m.CompanyID)
	return updated, nil
}

// MandatesForUser returns all mandates of a user, newest first.
func (s *Service) MandatesForUser(ctx context.Context, userID string) ([]MandateWithCompany, error) {
	return s.repo.MandatesForUser(ctx, userID)
}

// ActiveMandatesForUser returns the user's mandates that currently prove
// authority. Expired mandates are lazily marked.
func (s *Service) ActiveMandatesForUser(ctx context.Context, userID string) ([]MandateWithCompany, error) {
	all, err := s.repo.MandatesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	var out []MandateWithCompany
	for _, mc := range all {
		if mc.Status != MandateActive {
			continue
		}
		if mc.ValidTo != nil && mc.ValidTo.Before(now) {
			if _, err := s.repo.UpdateMandateStatus(ctx, mc.ID, MandateExpired); err != nil {
				return nil, err
			}
			continue
		}
		out = append(out, mc)
	}
	return out, nil
}

// MandateByID returns a single mandate.
func (s *Service) MandateByID(ctx context.Context, id string) (Mandate, error) {
	return s.repo.GetMandate(ctx, id)
}

// CompanyProfile returns a company by id.
func (s *Service) CompanyProfile(ctx context.Context, companyID string) (Company, error) {
	return s.repo.GetCompany(ctx, companyID)
}

// CompanyByRegistryCode returns a connected company by its registry code.
func (s *Service) CompanyByRegistryCode(ctx context.Context, code string) (Company, error) {
	return s.repo.GetCompanyByRegistryCode(ctx, code)
}

// CompanyMandates lists all mandates at a company with holder identities.
// The caller must hold an active mandate at the company.
func (s *Service) CompanyMandates(ctx context.Context, actorID, companyID string) ([]MandateHolder, error) {
	if err := s.requireActiveMandate(ctx, actorID, companyID); err != nil {
		return nil, err
	}
	return s.holders(ctx, companyID)
}

// MandateHoldersByCompanyCode resolves the active mandate holders of the
// company with the given registry code. Used by the identity verification
// protocol to match wallet names against authorized persons.
func (s *Service) MandateHoldersByCompanyCode(ctx context.Context, registryCode string) (Company, []MandateHolder, error) {
	company, err := s.repo.GetCompanyByRegistryCode(ctx, registryCode)
	if err != nil {
		return Company{}, nil, err
	}
	holders, err := s.holders(ctx, company.ID)
	if err != nil {
		return Company{}, nil, err
	}
	var active []MandateHolder
	for _, h := range holders {
		if h.Status == MandateActive {
			active = append(active, h)
		}
	}
	return company, active, nil
}

func (s *Service) holders(ctx context.Context, companyID string) ([]MandateHolder, error) {
	mandates, err := s.repo.MandatesForCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	out := make([]MandateHolder, 0, len(mandates))
	for _, m := range mandates {
		name, email, err := s.users.UserNameByID(ctx, m.UserID)
		if err != nil {
			return nil, fmt.Errorf("directory: resolve holder %s: %w", m.UserID, err)
		}
		out = append(out, MandateHolder{Mandate: m, UserName: name, UserEmail: email})
	}
	return out, nil
}

func (s *Service) requireActiveMandate(ctx context.Context, userID, companyID string) error {
	active, err := s.ActiveMandatesForUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, mc := range active {
		if mc.CompanyID == companyID {
			return nil
		}
	}
	return ErrNotAuthorized
}

func (s *Service) requireGrantingMandate(ctx context.Context, userID, companyID string) error {
	active, err := s.ActiveMandatesForUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, mc := range active {
		if mc.CompanyID != companyID {
			continue
		}
		for _, role := range grantingRoles {
			if strings.EqualFold(mc.Role, role) {
				return nil
			}
		}
	}
	return ErrNotAuthorized
}
