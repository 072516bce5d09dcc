package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Kind enumerates the recorded action types.
type Kind string

const (
	KindMandateCreated      Kind = "MANDATE_CREATED"
	KindMandateAccepted     Kind = "MANDATE_ACCEPTED"
	KindMandateRejected     Kind = "MANDATE_REJECTED"
	KindMandateRevoked      Kind = "MANDATE_REVOKED"
	KindUserLogin           Kind = "USER_LOGIN"
	KindUserLogout          Kind = "USER_LOGOUT"
	KindCompanyConnected    Kind = "COMPANY_CONNECTED"
	KindDocumentUploaded    Kind = "DOCUMENT_UPLOADED"
	KindDocumentSigned      Kind = "DOCUMENT_SIGNED"
	KindVerificationAttempt Kind = "MANDATE_VERIFICATION_ATTEMPT"
)

// Event is an append-only audit record.
type Event struct {
	ID        string
	Kind      Kind
	Details   string
	UserID    string
	CompanyID string
	At        time.Time
}

// Store persists audit events.
type Store interface {
	Append(ctx context.Context, e Event) error
	ByCompany(ctx context.Context, companyID string, limit int) ([]Event, error)
	ByUser(ctx context.Context, userID string, limit int) ([]Event, error)
}

// Service writes audit events. Writes are fire-and-forget: a storage failure
// is logged and swallowed so it never aborts the triggering operation.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Write records an audit event. details is JSON-encoded; companyID may be
// empty for personal actions.
func (s *Service) Write(ctx context.Context, kind Kind, details any, userID, companyID string) {
	encoded, err := json.Marshal(details)
	if err != nil {
		slog.Warn("audit: encode details failed", "kind", kind, "error", err)
		encoded = []byte("{}")
	}
	e := Event{
		ID:        uuid.New().String(),
		Kind:      kind,
		Details:   string(encoded),
		UserID:    userID,
		CompanyID: companyID,
		At:        time.Now().UTC(),
	}
	if err := s.store.Append(ctx, e); err != nil {
		slog.Warn("audit: append failed", "kind", kind, "user_id", userID, "error", err)
	}
}

// CompanyLog returns the most recent events for a company, newest first.
func (s *Service) CompanyLog(ctx context.Context, companyID string, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ByCompany(ctx, companyID, limit)
}

// UserLog returns the most recent events for a user, newest first.
func (s *Service) UserLog(ctx context.Context, userID string, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ByUser(ctx, userID, limit)
}
