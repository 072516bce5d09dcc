package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Brano80/eGarant/audit"
	"github.com/Brano80/eGarant/directory"
)

// ErrNonceMismatch marks a claim whose nonce does not belong to the
// transaction it was sent for.
var ErrNonceMismatch = errors.New("verification: claim nonce does not match transaction")

// MandateDirectory resolves a company and its active mandate holders by
// registry code. Implemented by the directory service.
type MandateDirectory interface {
	MandateHoldersByCompanyCode(ctx context.Context, registryCode string) (directory.Company, []directory.MandateHolder, error)
}

// SessionIssuer mints an authenticated session for a verified user.
// Implemented by the auth service.
type SessionIssuer interface {
	EstablishSession(ctx context.Context, userID string) (string, error)
}

// Service runs the asynchronous identity verification protocol: initiate a
// transaction, hand the wallet holder a request reference, resolve exactly
// once on callback, answer polls statelessly.
type Service struct {
	store       Store
	dir         MandateDirectory
	sessions    SessionIssuer
	exchange    ExchangeClient
	audit       *audit.Service
	callbackURL string
}

func NewService(store Store, dir MandateDirectory, sessions SessionIssuer, exchange ExchangeClient, aud *audit.Service, callbackBaseURL string) *Service {
	return &Service{
		store:       store,
		dir:         dir,
		sessions:    sessions,
		exchange:    exchange,
		audit:       aud,
		callbackURL: strings.TrimRight(callbackBaseURL, "/"),
	}
}

// Initiate opens a pending transaction for the subject company and returns
// the transaction id plus the request reference for the wallet holder.
func (s *Service) Initiate(ctx context.Context, companyCode string) (InitiateResponse, error) {
	if strings.TrimSpace(companyCode) == "" {
		return InitiateResponse{}, fmt.Errorf("verification: company code is required")
	}

	tx, err := s.store.Create(ctx, Transaction{
		ID:          "txn_" + uuid.NewString(),
		CompanyCode: companyCode,
		Nonce:       uuid.NewString(),
		Status:      StatusPending,
	})
	if err != nil {
		return InitiateResponse{}, fmt.Errorf("verification: create transaction: %w", err)
	}

	ref, err := s.exchange.CreateRequest(ctx, tx, s.callbackURL+"/api/v1/verify-callback/"+tx.ID)
	if err != nil {
		return InitiateResponse{}, err
	}
	return InitiateResponse{TransactionID: tx.ID, RequestRef: ref}, nil
}

// RequestObject is the payload a wallet fetches for a pending transaction
// when the local exchange is in use.
func (s *Service) RequestObject(ctx context.Context, transactionID string) (map[string]any, error) {
	tx, err := s.store.Get(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"transactionId": tx.ID,
		"nonce":         tx.Nonce,
		"scope":         "given_name family_name",
		"purpose":       "mandate-verification",
		"subject":       tx.CompanyCode,
		"callbackUrl":   s.callbackURL + "/api/v1/verify-callback/" + tx.ID,
	}, nil
}

// Callback resolves a pending transaction from a wallet token. Exactly one
// callback is authoritative per transaction; a later one gets
// ErrAlreadyResolved. A malformed token resolves the transaction to error
// before any mandate lookup and additionally reports ErrMalformedClaim so
// the transport can reject the sender.
func (s *Service) Callback(ctx context.Context, transactionID, rawToken string) (Transaction, error) {
	tx, err := s.store.Get(ctx, transactionID)
	if err != nil {
		return Transaction{}, err
	}
	if tx.Status.Terminal() {
		return Transaction{}, ErrAlreadyResolved
	}

	claim, err := ParseClaim(rawToken)
	if err != nil {
		resolved, resolveErr := s.store.Resolve(ctx, transactionID, StatusError, &Result{Error: "malformed claim"})
		if resolveErr != nil {
			return Transaction{}, resolveErr
		}
		s.writeAttempt(ctx, resolved, "", "malformed claim")
		return resolved, ErrMalformedClaim
	}
	if claim.Nonce != tx.Nonce {
		resolved, resolveErr := s.store.Resolve(ctx, transactionID, StatusError, &Result{Error: "nonce mismatch"})
		if resolveErr != nil {
			return Transaction{}, resolveErr
		}
		s.writeAttempt(ctx, resolved, claim.GivenName+" "+claim.FamilyName, "nonce mismatch")
		return resolved, ErrNonceMismatch
	}

	company, holders, err := s.dir.MandateHoldersByCompanyCode(ctx, tx.CompanyCode)
	if errors.Is(err, directory.ErrCompanyNotFound) {
		resolved, resolveErr := s.store.Resolve(ctx, transactionID, StatusError, &Result{
			CompanyCode: tx.CompanyCode,
			Error:       "company not found",
		})
		if resolveErr != nil {
			return Transaction{}, resolveErr
		}
		s.writeAttempt(ctx, resolved, claim.GivenName+" "+claim.FamilyName, "company not found")
		return resolved, nil
	}
	if err != nil {
		// The directory gates a security decision; do not resolve on an
		// infrastructure failure, surface it instead.
		return Transaction{}, fmt.Errorf("verification: mandate lookup: %w", err)
	}

	claimed := NormalizeName(claim.GivenName + " " + claim.FamilyName)
	var matched *directory.MandateHolder
	for i := range holders {
		if NormalizeName(holders[i].UserName) == claimed {
			matched = &holders[i]
			break
		}
	}

	if matched == nil {
		resolved, resolveErr := s.store.Resolve(ctx, transactionID, StatusNotVerified, &Result{
			PersonName:  claim.GivenName + " " + claim.FamilyName,
			CompanyCode: company.RegistryCode,
			CompanyName: company.Name,
			Error:       "no matching active mandate holder",
		})
		if resolveErr != nil {
			return Transaction{}, resolveErr
		}
		s.writeAttempt(ctx, resolved, claim.GivenName+" "+claim.FamilyName, "not_verified")
		return resolved, nil
	}

	// A verified identity becomes an authenticated session for the matched
	// user. The token travels inside the result so the poller can adopt it.
	// The verification verdict stands even when the session cannot be minted;
	// the poller just does not get a token.
	sessionToken, err := s.sessions.EstablishSession(ctx, matched.UserID)
	if err != nil {
		slog.Warn("verification: establish session failed", "transactionId", transactionID, "userId", matched.UserID, "error", err)
		sessionToken = ""
	}

	resolved, err := s.store.Resolve(ctx, transactionID, StatusVerified, &Result{
		PersonName:   matched.UserName,
		CompanyCode:  company.RegistryCode,
		CompanyName:  company.Name,
		Role:         matched.Role,
		SessionToken: sessionToken,
	})
	if err != nil {
		return Transaction{}, err
	}

	s.writeAttempt(ctx, resolved, matched.UserName, "verified")
	s.audit.Write(ctx, audit.KindUserLogin, map[string]any{
		"via":           "wallet-verification",
		"transactionId": resolved.ID,
	}, matched.UserID, matched.CompanyID)

	return resolved, nil
}

// Status answers a poll. No side effects; a terminal transaction returns the
// same status and result on every call.
func (s *Service) Status(ctx context.Context, transactionID string) (Transaction, error) {
	return s.store.Get(ctx, transactionID)
}

func (s *Service) writeAttempt(ctx context.Context, tx Transaction, claimedName, outcome string) {
	s.audit.Write(ctx, audit.KindVerificationAttempt, map[string]any{
		"transactionId": tx.ID,
		"companyCode":   tx.CompanyCode,
		"claimedName":   claimedName,
		"outcome":       outcome,
	}, "", "")
}
