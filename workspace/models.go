package workspace

import "time"

// WorkspaceStatus of a workspace lifecycle.
type WorkspaceStatus string

const (
	WorkspaceActive    WorkspaceStatus = "active"
	WorkspaceCompleted WorkspaceStatus = "completed"
)

// ParticipantStatus is monotonic. INVITED transitions at most once, to
// ACCEPTED or REJECTED.
type ParticipantStatus string

const (
	ParticipantInvited  ParticipantStatus = "INVITED"
	ParticipantAccepted ParticipantStatus = "ACCEPTED"
	ParticipantRejected ParticipantStatus = "REJECTED"
)

// DocumentStatus of a document.
type DocumentStatus string

const (
	DocumentPending   DocumentStatus = "pending"
	DocumentCompleted DocumentStatus = "completed"
)

// SignatureStatus of a signature. SIGNED is immutable.
type SignatureStatus string

const (
	SignaturePending  SignatureStatus = "PENDING"
	SignatureSigned   SignatureStatus = "SIGNED"
	SignatureRejected SignatureStatus = "REJECTED"
)

// Workspace is a shared room where parties execute a set of documents.
// CompanyID is empty for personal workspaces. ContractID links the workspace
// to its umbrella contract, if any.
type Workspace struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	CreatedBy  string          `json:"createdBy"`
	CompanyID  string          `json:"companyId,omitempty"`
	ContractID string          `json:"contractId,omitempty"`
	Status     WorkspaceStatus `json:"status"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Participant is an invited party. RequiredRole and RequiredCompanyCode gate
// acceptance: if either is set, the invitee must hold a matching active
// mandate. BoundMandateID records the mandate that satisfied the gate.
type Participant struct {
	ID                  string            `json:"id"`
	WorkspaceID         string            `json:"workspaceId"`
	UserID              string            `json:"userId"`
	RequiredRole        string            `json:"requiredRole,omitempty"`
	RequiredCompanyCode string            `json:"requiredCompanyCode,omitempty"`
	BoundMandateID      string            `json:"boundMandateId,omitempty"`
	Status              ParticipantStatus `json:"status"`
	InvitedAt           time.Time         `json:"invitedAt"`
	RespondedAt         *time.Time        `json:"respondedAt,omitempty"`
}

// Gated reports whether acceptance requires a mandate check.
func (p Participant) Gated() bool {
	return p.RequiredRole != "" || p.RequiredCompanyCode != ""
}

// Document is a signable artifact inside a workspace. Content is opaque;
// only title and kind are tracked. ContractID references the source contract
// the document executes, if any.
type Document struct {
	ID          string         `json:"id"`
	WorkspaceID string         `json:"workspaceId"`
	ContractID  string         `json:"contractId,omitempty"`
	Title       string         `json:"title"`
	Kind        string         `json:"kind"`
	UploadedBy  string         `json:"uploadedBy"`
	Status      DocumentStatus `json:"status"`
	UploadedAt  time.Time      `json:"uploadedAt"`
}

// Signature is one participant's consent on one document. Exactly one exists
// per (document, accepted participant) pair.
type Signature struct {
	ID            string          `json:"id"`
	DocumentID    string          `json:"documentId"`
	ParticipantID string          `json:"participantId"`
	Status        SignatureStatus `json:"status"`
	SignedAt      *time.Time      `json:"signedAt,omitempty"`
	Payload       string          `json:"payload,omitempty"`
	MandateID     string          `json:"mandateId,omitempty"`
}

// Attestation is an immutable per-signer record created when a document
// reaches full consensus.
type Attestation struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	DocumentID    string    `json:"documentId"`
	DocumentTitle string    `json:"documentTitle"`
	CreatedAt     time.Time `json:"createdAt"`
}

// DocumentDetail is a document with its signatures.
type DocumentDetail struct {
	Document
	Signatures []Signature `json:"signatures"`
}

// Detail is the full read model of a workspace.
type Detail struct {
	Workspace
	Participants []Participant    `json:"participants"`
	Documents    []DocumentDetail `json:"documents"`
}

// SignOutcome reports the result of a sign call and how far the completion
// cascade reached.
type SignOutcome struct {
	Signature          Signature
	DocumentCompleted  bool
	WorkspaceCompleted bool
	ContractCompleted  bool
}

// SignerEntry is one signer on a document's attestation report, including
// the capacity (personal or mandated) the signature was given in.
type SignerEntry struct {
	UserID        string     `json:"userId"`
	Name          string     `json:"name"`
	Email         string     `json:"email"`
	Capacity      string     `json:"capacity"`
	MandateID     string     `json:"mandateId,omitempty"`
	MandateSource string     `json:"mandateSource,omitempty"`
	Role          string     `json:"role,omitempty"`
	CompanyID     string     `json:"companyId,omitempty"`
	SignedAt      *time.Time `json:"signedAt,omitempty"`
}

// AttestationReport is the per-document signer report. CompletedAt is the
// latest signature time once every signer has signed.
type AttestationReport struct {
	Document    Document      `json:"document"`
	Signers     []SignerEntry `json:"signers"`
	CompletedAt *time.Time    `json:"completedAt,omitempty"`
}

// Summary aggregates a user's signing activity for the dashboard.
type Summary struct {
	Workspaces        int `json:"workspaces"`
	ActiveWorkspaces  int `json:"activeWorkspaces"`
	PendingSignatures int `json:"pendingSignatures"`
	Attestations      int `json:"attestations"`
}
