package workspace

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore is the Postgres-backed Store.
type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const workspaceCols = `id, name, created_by, COALESCE(company_id, ''), COALESCE(contract_id, ''), status, created_at, updated_at`

func (s *PGStore) CreateWorkspace(ctx context.Context, w Workspace) (Workspace, error) {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO workspaces (id, name, created_by, company_id, contract_id, status)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6)
		RETURNING `+workspaceCols,
		w.ID, w.Name, w.CreatedBy, w.CompanyID, w.ContractID, w.Status)
	return scanWorkspace(row)
}

func (s *PGStore) GetWorkspace(ctx context.Context, id string) (Workspace, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+workspaceCols+` FROM workspaces WHERE id = $1`, id)
	w, err := scanWorkspace(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Workspace{}, ErrWorkspaceNotFound
	}
	return w, err
}

func (s *PGStore) UpdateWorkspaceStatus(ctx context.Context, id string, status WorkspaceStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE workspaces SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("workspace: update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWorkspaceNotFound
	}
	return nil
}

func (s *PGStore) WorkspacesForUser(ctx context.Context, userID string) ([]Workspace, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT w.id, w.name, w.created_by, COALESCE(w.company_id, ''), COALESCE(w.contract_id, ''),
		       w.status, w.created_at, w.updated_at
		FROM workspaces w
		LEFT JOIN participants p ON p.workspace_id = w.id
		WHERE w.created_by = $1 OR p.user_id = $1
		ORDER BY w.created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("workspace: query workspaces: %w", err)
	}
	return collectWorkspaces(rows)
}

func (s *PGStore) WorkspacesForCompany(ctx context.Context, companyID string) ([]Workspace, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+workspaceCols+` FROM workspaces
		WHERE company_id = $1 ORDER BY created_at DESC`, companyID)
	if err != nil {
		return nil, fmt.Errorf("workspace: query company workspaces: %w", err)
	}
	return collectWorkspaces(rows)
}

const participantCols = `id, workspace_id, user_id, COALESCE(required_role, ''), COALESCE(required_company_code, ''), COALESCE(bound_mandate_id, ''), status, invited_at, responded_at`

func (s *PGStore) CreateParticipant(ctx context.Context, p Participant) (Participant, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO participants (id, workspace_id, user_id, required_role, required_company_code, bound_mandate_id, status, responded_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, $8)
		RETURNING `+participantCols,
		p.ID, p.WorkspaceID, p.UserID, p.RequiredRole, p.RequiredCompanyCode, p.BoundMandateID, p.Status, p.RespondedAt)
	return scanParticipant(row)
}

func (s *PGStore) GetParticipant(ctx context.Context, id string) (Participant, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+participantCols+` FROM participants WHERE id = $1`, id)
	p, err := scanParticipant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Participant{}, ErrParticipantNotFound
	}
	return p, err
}

func (s *PGStore) UpdateParticipant(ctx context.Context, p Participant) (Participant, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE participants
		SET status = $2, bound_mandate_id = NULLIF($3, ''), responded_at = $4
		WHERE id = $1
		RETURNING `+participantCols,
		p.ID, p.Status, p.BoundMandateID, p.RespondedAt)
	updated, err := scanParticipant(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Participant{}, ErrParticipantNotFound
	}
	return updated, err
}

func (s *PGStore) ParticipantsByWorkspace(ctx context.Context, workspaceID string) ([]Participant, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+participantCols+` FROM participants
		WHERE workspace_id = $1 ORDER BY invited_at`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("workspace: query participants: %w", err)
	}
	defer rows.Close()

	var out []Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const documentCols = `id, workspace_id, COALESCE(contract_id, ''), title, kind, uploaded_by, status, uploaded_at`

func (s *PGStore) CreateDocument(ctx context.Context, d Document) (Document, error) {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO workspace_documents (id, workspace_id, contract_id, title, kind, uploaded_by, status)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7)
		RETURNING `+documentCols,
		d.ID, d.WorkspaceID, d.ContractID, d.Title, d.Kind, d.UploadedBy, d.Status)
	return scanDocument(row)
}

func (s *PGStore) GetDocument(ctx context.Context, id string) (Document, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+documentCols+` FROM workspace_documents WHERE id = $1`, id)
	d, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Document{}, ErrDocumentNotFound
	}
	return d, err
}

func (s *PGStore) UpdateDocumentStatus(ctx context.Context, id string, status DocumentStatus) error {
	tag, err := s.pool.Exec(ctx, `UPDATE workspace_documents SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("workspace: update document status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func (s *PGStore) DocumentsByWorkspace(ctx context.Context, workspaceID string) ([]Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+documentCols+` FROM workspace_documents
		WHERE workspace_id = $1 ORDER BY uploaded_at`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("workspace: query documents: %w", err)
	}
	return collectDocuments(rows)
}

func (s *PGStore) DocumentsByContract(ctx context.Context, contractID string) ([]Document, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+documentCols+` FROM workspace_documents
		WHERE contract_id = $1 ORDER BY uploaded_at`, contractID)
	if err != nil {
		return nil, fmt.Errorf("workspace: query contract documents: %w", err)
	}
	return collectDocuments(rows)
}

const signatureCols = `id, document_id, participant_id, status, signed_at, COALESCE(payload, ''), COALESCE(mandate_id, '')`

func (s *PGStore) CreateSignature(ctx context.Context, sig Signature) (Signature, error) {
	if sig.ID == "" {
		sig.ID = uuid.NewString()
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO signatures (id, document_id, participant_id, status, signed_at, payload, mandate_id)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''))
		RETURNING `+signatureCols,
		sig.ID, sig.DocumentID, sig.ParticipantID, sig.Status, sig.SignedAt, sig.Payload, sig.MandateID)
	return scanSignature(row)
}

func (s *PGStore) GetSignature(ctx context.Context, id string) (Signature, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+signatureCols+` FROM signatures WHERE id = $1`, id)
	sig, err := scanSignature(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Signature{}, ErrSignatureNotFound
	}
	return sig, err
}

func (s *PGStore) UpdateSignature(ctx context.Context, sig Signature) (Signature, error) {
	row := s.pool.QueryRow(ctx, `
		UPDATE signatures
		SET status = $2, signed_at = $3, payload = NULLIF($4, ''), mandate_id = NULLIF($5, '')
		WHERE id = $1
		RETURNING `+signatureCols,
		sig.ID, sig.Status, sig.SignedAt, sig.Payload, sig.MandateID)
	updated, err := scanSignature(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Signature{}, ErrSignatureNotFound
	}
	return updated, err
}

func (s *PGStore) SignaturesByDocument(ctx context.Context, documentID string) ([]Signature, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+signatureCols+` FROM signatures WHERE document_id = $1 ORDER BY id`, documentID)
	if err != nil {
		return nil, fmt.Errorf("workspace: query signatures: %w", err)
	}
	return collectSignatures(rows)
}

func (s *PGStore) SignaturesByParticipant(ctx context.Context, participantID string) ([]Signature, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+signatureCols+` FROM signatures WHERE participant_id = $1 ORDER BY id`, participantID)
	if err != nil {
		return nil, fmt.Errorf("workspace: query participant signatures: %w", err)
	}
	return collectSignatures(rows)
}

func (s *PGStore) CreateAttestation(ctx context.Context, a Attestation) (Attestation, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	row := s.pool.QueryRow(ctx, `
		INSERT INTO attestations (id, user_id, document_id, document_title)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, document_id, document_title, created_at`,
		a.ID, a.UserID, a.DocumentID, a.DocumentTitle)
	var out Attestation
	err := row.Scan(&out.ID, &out.UserID, &out.DocumentID, &out.DocumentTitle, &out.CreatedAt)
	if err != nil {
		return Attestation{}, fmt.Errorf("workspace: create attestation: %w", err)
	}
	return out, nil
}

func (s *PGStore) AttestationsByUser(ctx context.Context, userID string) ([]Attestation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_id, document_id, document_title, created_at
		FROM attestations WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("workspace: query attestations: %w", err)
	}
	defer rows.Close()

	var out []Attestation
	for rows.Next() {
		var a Attestation
		if err := rows.Scan(&a.ID, &a.UserID, &a.DocumentID, &a.DocumentTitle, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("workspace: scan attestation: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *PGStore) HasAttestation(ctx context.Context, userID, documentID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM attestations WHERE user_id = $1 AND document_id = $2)`,
		userID, documentID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("workspace: attestation exists: %w", err)
	}
	return exists, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkspace(row rowScanner) (Workspace, error) {
	var w Workspace
	err := row.Scan(&w.ID, &w.Name, &w.CreatedBy, &w.CompanyID, &w.ContractID, &w.Status, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return Workspace{}, err
	}
	return w, nil
}

func scanParticipant(row rowScanner) (Participant, error) {
	var p Participant
	err := row.Scan(&p.ID, &p.WorkspaceID, &p.UserID, &p.RequiredRole, &p.RequiredCompanyCode,
		&p.BoundMandateID, &p.Status, &p.InvitedAt, &p.RespondedAt)
	if err != nil {
		return Participant{}, err
	}
	return p, nil
}

func scanDocument(row rowScanner) (Document, error) {
	var d Document
	err := row.Scan(&d.ID, &d.WorkspaceID, &d.ContractID, &d.Title, &d.Kind, &d.UploadedBy, &d.Status, &d.UploadedAt)
	if err != nil {
		return Document{}, err
	}
	return d, nil
}

func scanSignature(row rowScanner) (Signature, error) {
	var sig Signature
	err := row.Scan(&sig.ID, &sig.DocumentID, &sig.ParticipantID, &sig.Status, &sig.SignedAt, &sig.Payload, &sig.MandateID)
	if err != nil {
		return Signature{}, err
	}
	return sig, nil
}

func collectWorkspaces(rows pgx.Rows) ([]Workspace, error) {
	defer rows.Close()
	var out []Workspace
	for rows.Next() {
		w, err := scanWorkspace(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func collectDocuments(rows pgx.Rows) ([]Document, error) {
	defer rows.Close()
	var out []Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func collectSignatures(rows pgx.Rows) ([]Signature, error) {
	defer rows.Close()
	var out []Signature
	for rows.Next() {
		sig, err := scanSignature(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, rows.Err()
}
