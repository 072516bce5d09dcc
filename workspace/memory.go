package workspace

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is the in-memory Store for the demo deployment and tests.
type MemoryStore struct {
	mu           sync.RWMutex
	workspaces   map[string]Workspace
	participants map[string]Participant
	documents    map[string]Document
	signatures   map[string]Signature
	attestations map[string]Attestation
}

func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.reset()
	return s
}

func (s *MemoryStore) reset() {
	s.workspaces = make(map[string]Workspace)
	s.participants = make(map[string]Participant)
	s.documents = make(map[string]Document)
	s.signatures = make(map[string]Signature)
	s.attestations = make(map[string]Attestation)
}

// Reset discards all records.
func (s *MemoryStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()
}

func (s *MemoryStore) CreateWorkspace(ctx context.Context, w Workspace) (Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	now := time.Now()
	w.CreatedAt = now
	w.UpdatedAt = now
	s.workspaces[w.ID] = w
	return w, nil
}

func (s *MemoryStore) GetWorkspace(ctx context.Context, id string) (Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	w, ok := s.workspaces[id]
	if !ok {
		return Workspace{}, ErrWorkspaceNotFound
	}
	return w, nil
}

func (s *MemoryStore) UpdateWorkspaceStatus(ctx context.Context, id string, status WorkspaceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.workspaces[id]
	if !ok {
		return ErrWorkspaceNotFound
	}
	w.Status = status
	w.UpdatedAt = time.Now()
	s.workspaces[id] = w
	return nil
}

func (s *MemoryStore) WorkspacesForUser(ctx context.Context, userID string) ([]Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	member := make(map[string]bool)
	for _, p := range s.participants {
		if p.UserID == userID {
			member[p.WorkspaceID] = true
		}
	}
	var out []Workspace
	for _, w := range s.workspaces {
		if w.CreatedBy == userID || member[w.ID] {
			out = append(out, w)
		}
	}
	sortWorkspaces(out)
	return out, nil
}

func (s *MemoryStore) WorkspacesForCompany(ctx context.Context, companyID string) ([]Workspace, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Workspace
	for _, w := range s.workspaces {
		if w.CompanyID == companyID {
			out = append(out, w)
		}
	}
	sortWorkspaces(out)
	return out, nil
}

func (s *MemoryStore) CreateParticipant(ctx context.Context, p Participant) (Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.InvitedAt = time.Now()
	s.participants[p.ID] = p
	return p, nil
}

func (s *MemoryStore) GetParticipant(ctx context.Context, id string) (Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return Participant{}, ErrParticipantNotFound
	}
	return p, nil
}

func (s *MemoryStore) UpdateParticipant(ctx context.Context, p Participant) (Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[p.ID]; !ok {
		return Participant{}, ErrParticipantNotFound
	}
	s.participants[p.ID] = p
	return p, nil
}

func (s *MemoryStore) ParticipantsByWorkspace(ctx context.Context, workspaceID string) ([]Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Participant
	for _, p := range s.participants {
		if p.WorkspaceID == workspaceID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InvitedAt.Before(out[j].InvitedAt) })
	return out, nil
}

func (s *MemoryStore) CreateDocument(ctx context.Context, d Document) (Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.UploadedAt = time.Now()
	s.documents[d.ID] = d
	return d, nil
}

func (s *MemoryStore) GetDocument(ctx context.Context, id string) (Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.documents[id]
	if !ok {
		return Document{}, ErrDocumentNotFound
	}
	return d, nil
}

func (s *MemoryStore) UpdateDocumentStatus(ctx context.Context, id string, status DocumentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.documents[id]
	if !ok {
		return ErrDocumentNotFound
	}
	d.Status = status
	s.documents[id] = d
	return nil
}

func (s *MemoryStore) DocumentsByWorkspace(ctx context.Context, workspaceID string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Document
	for _, d := range s.documents {
		if d.WorkspaceID == workspaceID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out, nil
}

func (s *MemoryStore) DocumentsByContract(ctx context.Context, contractID string) ([]Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Document
	for _, d := range s.documents {
		if d.ContractID == contractID {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out, nil
}

func (s *MemoryStore) CreateSignature(ctx context.Context, sig Signature) (Signature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	s.signatures[sig.ID] = sig
	return sig, nil
}

func (s *MemoryStore) GetSignature(ctx context.Context, id string) (Signature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sig, ok := s.signatures[id]
	if !ok {
		return Signature{}, ErrSignatureNotFound
	}
	return sig, nil
}

func (s *MemoryStore) UpdateSignature(ctx context.Context, sig Signature) (Signature, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.signatures[sig.ID]; !ok {
		return Signature{}, ErrSignatureNotFound
	}
	s.signatures[sig.ID] = sig
	return sig, nil
}

func (s *MemoryStore) SignaturesByDocument(ctx context.Context, documentID string) ([]Signature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Signature
	for _, sig := range s.signatures {
		if sig.DocumentID == documentID {
			out = append(out, sig)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) SignaturesByParticipant(ctx context.Context, participantID string) ([]Signature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Signature
	for _, sig := range s.signatures {
		if sig.ParticipantID == participantID {
			out = append(out, sig)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CreateAttestation(ctx context.Context, a Attestation) (Attestation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.CreatedAt = time.Now()
	s.attestations[a.ID] = a
	return a, nil
}

func (s *MemoryStore) AttestationsByUser(ctx context.Context, userID string) ([]Attestation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Attestation
	for _, a := range s.attestations {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) HasAttestation(ctx context.Context, userID, documentID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.attestations {
		if a.UserID == userID && a.DocumentID == documentID {
			return true, nil
		}
	}
	return false, nil
}

func sortWorkspaces(ws []Workspace) {
	sort.Slice(ws, func(i, j int) bool { return ws[i].CreatedAt.After(ws[j].CreatedAt) })
}
