package workspace

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Brano80/eGarant/audit"
	"github.com/Brano80/eGarant/contract"
	"github.com/Brano80/eGarant/directory"
)

// MandateSource resolves the acting user's current authority. Implemented by
// the directory service.
type MandateSource interface {
	ActiveMandatesForUser(ctx context.Context, userID string) ([]directory.MandateWithCompany, error)
	MandateByID(ctx context.Context, id string) (directory.Mandate, error)
}

// UserResolver maps invitee emails to user ids and ids back to display
// identity. Implemented by the auth service.
type UserResolver interface {
	UserIDByEmail(ctx context.Context, email string) (string, error)
	UserNameByID(ctx context.Context, userID string) (name, email string, err error)
}

// ContractCompleter closes a contract once all its documents complete.
// Implemented by the contract service.
type ContractCompleter interface {
	MarkCompleted(ctx context.Context, id string) (contract.Contract, error)
}

// Service is the signing workflow engine. It orchestrates the participant,
// document and signature lifecycles and the cascading completion rule.
type Service struct {
	store     Store
	mandates  MandateSource
	users     UserResolver
	contracts ContractCompleter
	audit     *audit.Service
	locks     *keyedMutex
}

func NewService(store Store, mandates MandateSource, users UserResolver, contracts ContractCompleter, aud *audit.Service) *Service {
	return &Service{
		store:     store,
		mandates:  mandates,
		users:     users,
		contracts: contracts,
		audit:     aud,
		locks:     newKeyedMutex(),
	}
}

// Create opens a workspace. companyID is empty for a personal workspace;
// contractID links the workspace to its umbrella contract.
func (s *Service) Create(ctx context.Context, userID, companyID, contractID, name string) (Workspace, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Workspace{}, ErrNameRequired
	}
	w, err := s.store.CreateWorkspace(ctx, Workspace{
		Name:       name,
		CreatedBy:  userID,
		CompanyID:  companyID,
		ContractID: contractID,
		Status:     WorkspaceActive,
	})
	if err != nil {
		return Workspace{}, fmt.Errorf("workspace: create: %w", err)
	}

	// The creator is a participant of their own workspace, accepted from the
	// start and never gated.
	now := time.Now()
	if _, err := s.store.CreateParticipant(ctx, Participant{
		WorkspaceID: w.ID,
		UserID:      userID,
		Status:      ParticipantAccepted,
		RespondedAt: &now,
	}); err != nil {
		return Workspace{}, fmt.Errorf("workspace: create creator participant: %w", err)
	}
	return w, nil
}

// Invite adds a participant by email. Only the creator may invite. A
// non-empty requiredRole or requiredCompanyCode gates the acceptance on a
// matching active mandate.
func (s *Service) Invite(ctx context.Context, actorID, workspaceID, email, requiredRole, requiredCompanyCode string) (Participant, error) {
	unlock := s.locks.lock(workspaceID)
	defer unlock()

	w, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return Participant{}, err
	}
	if w.CreatedBy != actorID {
		return Participant{}, ErrNotCreator
	}

	inviteeID, err := s.users.UserIDByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return Participant{}, fmt.Errorf("workspace: resolve invitee: %w", err)
	}

	existing, err := s.store.ParticipantsByWorkspace(ctx, workspaceID)
	if err != nil {
		return Participant{}, fmt.Errorf("workspace: list participants: %w", err)
	}
	for _, p := range existing {
		if p.UserID == inviteeID && p.Status != ParticipantRejected {
			return Participant{}, ErrAlreadyParticipant
		}
	}

	p, err := s.store.CreateParticipant(ctx, Participant{
		WorkspaceID:         workspaceID,
		UserID:              inviteeID,
		RequiredRole:        requiredRole,
		RequiredCompanyCode: requiredCompanyCode,
		Status:              ParticipantInvited,
	})
	if err != nil {
		return Participant{}, fmt.Errorf("workspace: create participant: %w", err)
	}
	return p, nil
}

// Respond answers an invitation. Acceptance of a gated participant runs the
// mandate gate against the invitee's active mandates; a denial leaves the
// participant INVITED and surfaces the unmet constraint. Entering ACCEPTED
// creates one pending signature per existing document.
func (s *Service) Respond(ctx context.Context, actorID, participantID string, accept bool) (Participant, error) {
	p, err := s.store.GetParticipant(ctx, participantID)
	if err != nil {
		return Participant{}, err
	}

	unlock := s.locks.lock(p.WorkspaceID)
	defer unlock()

	// Re-read under the lock.
	p, err = s.store.GetParticipant(ctx, participantID)
	if err != nil {
		return Participant{}, err
	}
	if p.UserID != actorID {
		return Participant{}, ErrNotInvitee
	}
	if p.Status != ParticipantInvited {
		return Participant{}, ErrAlreadyResponded
	}

	now := time.Now()
	if !accept {
		p.Status = ParticipantRejected
		p.RespondedAt = &now
		return s.store.UpdateParticipant(ctx, p)
	}

	// The mandate check gates a security decision; a registry failure must
	// surface, not fail open.
	mandates, err := s.mandates.ActiveMandatesForUser(ctx, actorID)
	if err != nil {
		return Participant{}, fmt.Errorf("workspace: mandate lookup: %w", err)
	}
	boundID, err := CanAccept(p, mandates)
	if err != nil {
		return Participant{}, err
	}

	p.Status = ParticipantAccepted
	p.BoundMandateID = boundID
	p.RespondedAt = &now
	p, err = s.store.UpdateParticipant(ctx, p)
	if err != nil {
		return Participant{}, err
	}

	if err := s.ensureSignaturesForParticipant(ctx, p); err != nil {
		return Participant{}, err
	}
	return p, nil
}

// AttachDocument adds a document to a workspace. The uploader must be the
// creator or an accepted participant. Every accepted participant gets a
// pending signature on the new document.
func (s *Service) AttachDocument(ctx context.Context, actorID, workspaceID, contractID, title, kind string) (Document, error) {
	unlock := s.locks.lock(workspaceID)
	defer unlock()

	w, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return Document{}, err
	}
	participants, err := s.store.ParticipantsByWorkspace(ctx, workspaceID)
	if err != nil {
		return Document{}, fmt.Errorf("workspace: list participants: %w", err)
	}
	if !canUpload(w, participants, actorID) {
		return Document{}, ErrNotParticipant
	}

	title = strings.TrimSpace(title)
	if title == "" {
		return Document{}, ErrNameRequired
	}
	if kind == "" {
		kind = "document"
	}

	d, err := s.store.CreateDocument(ctx, Document{
		WorkspaceID: workspaceID,
		ContractID:  contractID,
		Title:       title,
		Kind:        kind,
		UploadedBy:  actorID,
		Status:      DocumentPending,
	})
	if err != nil {
		return Document{}, fmt.Errorf("workspace: create document: %w", err)
	}

	for _, p := range participants {
		if p.Status != ParticipantAccepted {
			continue
		}
		if _, err := s.store.CreateSignature(ctx, Signature{
			DocumentID:    d.ID,
			ParticipantID: p.ID,
			Status:        SignaturePending,
			MandateID:     p.BoundMandateID,
		}); err != nil {
			return Document{}, fmt.Errorf("workspace: create signature: %w", err)
		}
	}

	// A completed workspace gains a pending document and is active again.
	if w.Status == WorkspaceCompleted {
		if err := s.store.UpdateWorkspaceStatus(ctx, workspaceID, WorkspaceActive); err != nil {
			return Document{}, err
		}
	}

	s.audit.Write(ctx, audit.KindDocumentUploaded, map[string]any{
		"workspaceId": workspaceID,
		"documentId":  d.ID,
		"title":       d.Title,
	}, actorID, w.CompanyID)

	return d, nil
}

// Sign flips the actor's pending signature on a document to SIGNED and runs
// the completion cascade. Signing an already signed signature is an error.
// Attestation and contract completion writes are best-effort; their failure
// never rolls back the signature.
func (s *Service) Sign(ctx context.Context, actorID, documentID, payload string) (SignOutcome, error) {
	d, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return SignOutcome{}, err
	}

	unlock := s.locks.lock(d.WorkspaceID)
	defer unlock()

	d, err = s.store.GetDocument(ctx, documentID)
	if err != nil {
		return SignOutcome{}, err
	}
	w, err := s.store.GetWorkspace(ctx, d.WorkspaceID)
	if err != nil {
		return SignOutcome{}, err
	}

	participants, err := s.store.ParticipantsByWorkspace(ctx, d.WorkspaceID)
	if err != nil {
		return SignOutcome{}, fmt.Errorf("workspace: list participants: %w", err)
	}
	// A re-invited user can hold an older rejected row next to the live one;
	// only an ACCEPTED row makes them a signer.
	var actor *Participant
	seen := false
	for i := range participants {
		if participants[i].UserID != actorID {
			continue
		}
		seen = true
		if participants[i].Status == ParticipantAccepted {
			actor = &participants[i]
			break
		}
	}
	if actor == nil {
		if seen {
			return SignOutcome{}, ErrNotAccepted
		}
		return SignOutcome{}, ErrNotParticipant
	}

	sigs, err := s.store.SignaturesByDocument(ctx, documentID)
	if err != nil {
		return SignOutcome{}, fmt.Errorf("workspace: list signatures: %w", err)
	}
	var own *Signature
	for i := range sigs {
		if sigs[i].ParticipantID == actor.ID {
			own = &sigs[i]
			break
		}
	}
	if own == nil {
		return SignOutcome{}, ErrSignatureNotFound
	}
	if own.Status == SignatureSigned {
		return SignOutcome{}, ErrAlreadySigned
	}

	now := time.Now()
	own.Status = SignatureSigned
	own.SignedAt = &now
	own.Payload = payload
	own.MandateID = actor.BoundMandateID
	signed, err := s.store.UpdateSignature(ctx, *own)
	if err != nil {
		return SignOutcome{}, err
	}

	s.audit.Write(ctx, audit.KindDocumentSigned, map[string]any{
		"workspaceId": w.ID,
		"documentId":  documentID,
		"title":       d.Title,
	}, actorID, w.CompanyID)

	outcome := SignOutcome{Signature: signed}
	s.cascade(ctx, w, d, &outcome, participants)
	return outcome, nil
}

// cascade re-derives document, workspace and contract completion after a
// successful sign. Failures past the signature write are logged and
// swallowed; the signature stands regardless.
func (s *Service) cascade(ctx context.Context, w Workspace, d Document, outcome *SignOutcome, participants []Participant) {
	sigs, err := s.store.SignaturesByDocument(ctx, d.ID)
	if err != nil {
		slog.Warn("workspace: cascade read signatures failed", "document_id", d.ID, "error", err)
		return
	}
	if !documentComplete(sigs) {
		return
	}
	if err := s.store.UpdateDocumentStatus(ctx, d.ID, DocumentCompleted); err != nil {
		slog.Warn("workspace: mark document completed failed", "document_id", d.ID, "error", err)
		return
	}
	outcome.DocumentCompleted = true

	s.writeAttestations(ctx, d, sigs, participants)

	docs, err := s.store.DocumentsByWorkspace(ctx, w.ID)
	if err != nil {
		slog.Warn("workspace: cascade read documents failed", "workspace_id", w.ID, "error", err)
		return
	}
	if workspaceComplete(docs) {
		if err := s.store.UpdateWorkspaceStatus(ctx, w.ID, WorkspaceCompleted); err != nil {
			slog.Warn("workspace: mark workspace completed failed", "workspace_id", w.ID, "error", err)
		} else {
			outcome.WorkspaceCompleted = true
		}
	}

	if d.ContractID == "" || s.contracts == nil {
		return
	}
	contractDocs, err := s.store.DocumentsByContract(ctx, d.ContractID)
	if err != nil {
		slog.Warn("workspace: cascade read contract documents failed", "contract_id", d.ContractID, "error", err)
		return
	}
	if contractComplete(contractDocs) {
		if _, err := s.contracts.MarkCompleted(ctx, d.ContractID); err != nil {
			slog.Warn("workspace: mark contract completed failed", "contract_id", d.ContractID, "error", err)
		} else {
			outcome.ContractCompleted = true
		}
	}
}

// writeAttestations records one attestation per distinct signer of a freshly
// completed document. Best-effort per signer: one failure is logged and must
// not block the others.
func (s *Service) writeAttestations(ctx context.Context, d Document, sigs []Signature, participants []Participant) {
	byID := make(map[string]Participant, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
	}
	for _, pid := range signedParticipantIDs(sigs) {
		p, ok := byID[pid]
		if !ok {
			slog.Warn("workspace: attestation signer not found", "participant_id", pid, "document_id", d.ID)
			continue
		}
		exists, err := s.store.HasAttestation(ctx, p.UserID, d.ID)
		if err != nil {
			slog.Warn("workspace: attestation lookup failed", "user_id", p.UserID, "document_id", d.ID, "error", err)
			continue
		}
		if exists {
			continue
		}
		if _, err := s.store.CreateAttestation(ctx, Attestation{
			ID:            "attest_" + uuid.NewString(),
			UserID:        p.UserID,
			DocumentID:    d.ID,
			DocumentTitle: d.Title,
		}); err != nil {
			slog.Warn("workspace: attestation write failed", "user_id", p.UserID, "document_id", d.ID, "error", err)
		}
	}
}

// Get returns the full read model of a workspace. Read access requires being
// the creator, a participant, or holding an active mandate at the owning
// company.
func (s *Service) Get(ctx context.Context, actorID, workspaceID string) (Detail, error) {
	w, err := s.store.GetWorkspace(ctx, workspaceID)
	if err != nil {
		return Detail{}, err
	}
	participants, err := s.store.ParticipantsByWorkspace(ctx, workspaceID)
	if err != nil {
		return Detail{}, fmt.Errorf("workspace: list participants: %w", err)
	}

	if !s.canRead(ctx, w, participants, actorID) {
		return Detail{}, ErrReadForbidden
	}

	docs, err := s.store.DocumentsByWorkspace(ctx, workspaceID)
	if err != nil {
		return Detail{}, fmt.Errorf("workspace: list documents: %w", err)
	}
	detail := Detail{Workspace: w, Participants: participants}
	for _, d := range docs {
		sigs, err := s.store.SignaturesByDocument(ctx, d.ID)
		if err != nil {
			return Detail{}, fmt.Errorf("workspace: list signatures: %w", err)
		}
		detail.Documents = append(detail.Documents, DocumentDetail{Document: d, Signatures: sigs})
	}
	return detail, nil
}

// AttestationReport builds the signer report for a document: who signed, in
// what capacity, and when the document reached full consensus.
func (s *Service) AttestationReport(ctx context.Context, actorID, documentID string) (AttestationReport, error) {
	d, err := s.store.GetDocument(ctx, documentID)
	if err != nil {
		return AttestationReport{}, err
	}
	w, err := s.store.GetWorkspace(ctx, d.WorkspaceID)
	if err != nil {
		return AttestationReport{}, err
	}
	participants, err := s.store.ParticipantsByWorkspace(ctx, w.ID)
	if err != nil {
		return AttestationReport{}, fmt.Errorf("workspace: list participants: %w", err)
	}
	if !s.canRead(ctx, w, participants, actorID) {
		return AttestationReport{}, ErrReadForbidden
	}

	byID := make(map[string]Participant, len(participants))
	for _, p := range participants {
		byID[p.ID] = p
	}

	sigs, err := s.store.SignaturesByDocument(ctx, documentID)
	if err != nil {
		return AttestationReport{}, fmt.Errorf("workspace: list signatures: %w", err)
	}

	report := AttestationReport{Document: d}
	allSigned := len(sigs) > 0
	for _, sig := range sigs {
		if sig.Status != SignatureSigned {
			allSigned = false
			continue
		}
		p, ok := byID[sig.ParticipantID]
		if !ok {
			continue
		}
		entry := SignerEntry{
			UserID:   p.UserID,
			Capacity: "personal",
			SignedAt: sig.SignedAt,
		}
		if name, email, err := s.users.UserNameByID(ctx, p.UserID); err == nil {
			entry.Name = name
			entry.Email = email
		} else {
			slog.Warn("workspace: report signer lookup failed", "user_id", p.UserID, "error", err)
		}
		if sig.MandateID != "" {
			entry.Capacity = "company"
			entry.MandateID = sig.MandateID
			if m, err := s.mandates.MandateByID(ctx, sig.MandateID); err == nil {
				entry.MandateSource = m.Source
				entry.Role = m.Role
				entry.CompanyID = m.CompanyID
			} else {
				slog.Warn("workspace: report mandate lookup failed", "mandate_id", sig.MandateID, "error", err)
			}
		}
		report.Signers = append(report.Signers, entry)
		if report.CompletedAt == nil || (sig.SignedAt != nil && sig.SignedAt.After(*report.CompletedAt)) {
			report.CompletedAt = sig.SignedAt
		}
	}
	if !allSigned {
		report.CompletedAt = nil
	}
	return report, nil
}

// ListForContext lists workspaces visible in the caller's acting context.
func (s *Service) ListForContext(ctx context.Context, userID, companyID string) ([]Workspace, error) {
	if companyID != "" {
		return s.store.WorkspacesForCompany(ctx, companyID)
	}
	return s.store.WorkspacesForUser(ctx, userID)
}

// ListAttestations returns a user's attestations, newest first.
func (s *Service) ListAttestations(ctx context.Context, userID string) ([]Attestation, error) {
	return s.store.AttestationsByUser(ctx, userID)
}

// SummaryForUser aggregates the user's signing activity.
func (s *Service) SummaryForUser(ctx context.Context, userID string) (Summary, error) {
	workspaces, err := s.store.WorkspacesForUser(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Workspaces: len(workspaces)}
	for _, w := range workspaces {
		if w.Status == WorkspaceActive {
			sum.ActiveWorkspaces++
		}
		participants, err := s.store.ParticipantsByWorkspace(ctx, w.ID)
		if err != nil {
			return Summary{}, err
		}
		for _, p := range participants {
			if p.UserID != userID || p.Status != ParticipantAccepted {
				continue
			}
			sigs, err := s.store.SignaturesByParticipant(ctx, p.ID)
			if err != nil {
				return Summary{}, err
			}
			for _, sig := range sigs {
				if sig.Status == SignaturePending {
					sum.PendingSignatures++
				}
			}
		}
	}
	attestations, err := s.store.AttestationsByUser(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	sum.Attestations = len(attestations)
	return sum, nil
}

// ensureSignaturesForParticipant backfills pending signatures for every
// document the participant does not have one on yet.
func (s *Service) ensureSignaturesForParticipant(ctx context.Context, p Participant) error {
	docs, err := s.store.DocumentsByWorkspace(ctx, p.WorkspaceID)
	if err != nil {
		return fmt.Errorf("workspace: list documents: %w", err)
	}
	for _, d := range docs {
		sigs, err := s.store.SignaturesByDocument(ctx, d.ID)
		if err != nil {
			return fmt.Errorf("workspace: list signatures: %w", err)
		}
		has := false
		for _, sig := range sigs {
			if sig.ParticipantID == p.ID {
				has = true
				break
			}
		}
		if has {
			continue
		}
		if _, err := s.store.CreateSignature(ctx, Signature{
			DocumentID:    d.ID,
			ParticipantID: p.ID,
			Status:        SignaturePending,
			MandateID:     p.BoundMandateID,
		}); err != nil {
			return fmt.Errorf("workspace: create signature: %w", err)
		}
	}
	return nil
}

func (s *Service) canRead(ctx context.Context, w Workspace, participants []Participant, actorID string) bool {
	if w.CreatedBy == actorID {
		return true
	}
	for _, p := range participants {
		if p.UserID == actorID {
			return true
		}
	}
	if w.CompanyID == "" {
		return false
	}
	mandates, err := s.mandates.ActiveMandatesForUser(ctx, actorID)
	if err != nil {
		slog.Warn("workspace: read access mandate lookup failed", "user_id", actorID, "error", err)
		return false
	}
	for _, mc := range mandates {
		if mc.CompanyID == w.CompanyID {
			return true
		}
	}
	return false
}

func canUpload(w Workspace, participants []Participant, actorID string) bool {
	if w.CreatedBy == actorID {
		return true
	}
	for _, p := range participants {
		if p.UserID == actorID && p.Status == ParticipantAccepted {
			return true
		}
	}
	return false
}
