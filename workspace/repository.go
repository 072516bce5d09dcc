package workspace

import "context"

// Store holds workspaces with their participants, documents, signatures and
// attestations. CRUD primitives only; all policy lives in the Service.
type Store interface {
	CreateWorkspace(ctx context.Context, w Workspace) (Workspace, error)
	GetWorkspace(ctx context.Context, id string) (Workspace, error)
	UpdateWorkspaceStatus(ctx context.Context, id string, status WorkspaceStatus) error
	WorkspacesForUser(ctx context.Context, userID string) ([]Workspace, error)
	WorkspacesForCompany(ctx context.Context, companyID string) ([]Workspace, error)

	CreateParticipant(ctx context.Context, p Participant) (Participant, error)
	GetParticipant(ctx context.Context, id string) (Participant, error)
	UpdateParticipant(ctx context.Context, p Participant) (Participant, error)
	ParticipantsByWorkspace(ctx context.Context, workspaceID string) ([]Participant, error)

	CreateDocument(ctx context.Context, d Document) (Document, error)
	GetDocument(ctx context.Context, id string) (Document, error)
	UpdateDocumentStatus(ctx context.Context, id string, status DocumentStatus) error
	DocumentsByWorkspace(ctx context.Context, workspaceID string) ([]Document, error)
	DocumentsByContract(ctx context.Context, contractID string) ([]Document, error)

	CreateSignature(ctx context.Context, s Signature) (Signature, error)
	GetSignature(ctx context.Context, id string) (Signature, error)
	UpdateSignature(ctx context.Context, s Signature) (Signature, error)
	SignaturesByDocument(ctx context.Context, documentID string) ([]Signature, error)
	SignaturesByParticipant(ctx context.Context, participantID string) ([]Signature, error)

	CreateAttestation(ctx context.Context, a Attestation) (Attestation, error)
	AttestationsByUser(ctx context.Context, userID string) ([]Attestation, error)
	HasAttestation(ctx context.Context, userID, documentID string) (bool, error)
}
