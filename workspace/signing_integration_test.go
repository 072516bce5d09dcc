package workspace

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Brano80/eGarant/audit"
	"github.com/Brano80/eGarant/auth"
	"github.com/Brano80/eGarant/contract"
	"github.com/Brano80/eGarant/directory"
)

func TestSigningCascadePostgres(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pool: %v", err)
	}
	defer pool.Close()

	requiredTables := []string{
		"users",
		"contracts",
		"workspaces",
		"participants",
		"workspace_documents",
		"signatures",
		"attestations",
		"audit_events",
	}
	for _, tbl := range requiredTables {
		if !tableExists(ctx, pool, tbl) {
			t.Skipf("table %s does not exist; ensure migrations are applied", tbl)
		}
	}

	audits := audit.NewService(audit.NewPGStore(pool))
	authSvc := auth.NewService(auth.NewPGRepository(pool), "integration-secret", time.Hour)
	dirSvc := directory.NewService(directory.NewPGRepository(pool), directory.NewMockRegistry(), authSvc, audits)
	contracts := contract.NewService(contract.NewPGRepository(pool))
	svc := NewService(NewPGStore(pool), dirSvc, authSvc, contracts, audits)

	suffix := time.Now().UnixNano()
	creator, err := authSvc.Register(ctx, auth.RegisterRequest{
		Email:    fmt.Sprintf("creator+%d@example.com", suffix),
		Name:     "Creator Person",
		Password: "integration-pass",
	})
	if err != nil {
		t.Fatalf("register creator: %v", err)
	}
	invitee, err := authSvc.Register(ctx, auth.RegisterRequest{
		Email:    fmt.Sprintf("invitee+%d@example.com", suffix),
		Name:     "Invitee Person",
		Password: "integration-pass",
	})
	if err != nil {
		t.Fatalf("register invitee: %v", err)
	}

	frame, err := contracts.Create(ctx, creator.ID, "", "Integration frame", "general")
	if err != nil {
		t.Fatalf("create contract: %v", err)
	}
	ws, err := svc.Create(ctx, creator.ID, "", frame.ID, "Integration workspace")
	if err != nil {
		t.Fatalf("create workspace: %v", err)
	}

	t.Cleanup(func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel2()
		pool.Exec(ctx2, `DELETE FROM signatures WHERE participant_id IN (SELECT id FROM participants WHERE workspace_id = $1)`, ws.ID)
		pool.Exec(ctx2, `DELETE FROM attestations WHERE user_id IN ($1, $2)`, creator.ID, invitee.ID)
		pool.Exec(ctx2, `DELETE FROM workspace_documents WHERE workspace_id = $1`, ws.ID)
		pool.Exec(ctx2, `DELETE FROM participants WHERE workspace_id = $1`, ws.ID)
		pool.Exec(ctx2, `DELETE FROM workspaces WHERE id = $1`, ws.ID)
		pool.Exec(ctx2, `DELETE FROM contracts WHERE id = $1`, frame.ID)
		pool.Exec(ctx2, `DELETE FROM audit_events WHERE user_id IN ($1, $2)`, creator.ID, invitee.ID)
		pool.Exec(ctx2, `DELETE FROM users WHERE id IN ($1, $2)`, creator.ID, invitee.ID)
	})

	p, err := svc.Invite(ctx, creator.ID, ws.ID, invitee.Email, "", "")
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if _, err := svc.Respond(ctx, invitee.ID, p.ID, true); err != nil {
		t.Fatalf("respond: %v", err)
	}

	doc, err := svc.AttachDocument(ctx, creator.ID, ws.ID, frame.ID, "Main agreement", "contract")
	if err != nil {
		t.Fatalf("attach document: %v", err)
	}

	if _, err := svc.Sign(ctx, creator.ID, doc.ID, "creator-signature"); err != nil {
		t.Fatalf("creator sign: %v", err)
	}
	outcome, err := svc.Sign(ctx, invitee.ID, doc.ID, "invitee-signature")
	if err != nil {
		t.Fatalf("invitee sign: %v", err)
	}
	if !outcome.DocumentCompleted || !outcome.WorkspaceCompleted || !outcome.ContractCompleted {
		t.Fatalf("expected full cascade, got %+v", outcome)
	}

	var docStatus, wsStatus, contractStatus string
	if err := pool.QueryRow(ctx, `SELECT status FROM workspace_documents WHERE id = $1`, doc.ID).Scan(&docStatus); err != nil {
		t.Fatalf("inspect document: %v", err)
	}
	if err := pool.QueryRow(ctx, `SELECT status FROM workspaces WHERE id = $1`, ws.ID).Scan(&wsStatus); err != nil {
		t.Fatalf("inspect workspace: %v", err)
	}
	if err := pool.QueryRow(ctx, `SELECT status FROM contracts WHERE id = $1`, frame.ID).Scan(&contractStatus); err != nil {
		t.Fatalf("inspect contract: %v", err)
	}
	if docStatus != string(DocumentCompleted) || wsStatus != string(WorkspaceCompleted) || contractStatus != string(contract.StatusCompleted) {
		t.Fatalf("unexpected statuses: doc=%s ws=%s contract=%s", docStatus, wsStatus, contractStatus)
	}

	var attCount int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM attestations WHERE document_id = $1`, doc.ID).Scan(&attCount); err != nil {
		t.Fatalf("count attestations: %v", err)
	}
	if attCount != 2 {
		t.Fatalf("expected 2 attestations, got %d", attCount)
	}

	// replay must not double-sign
	if _, err := svc.Sign(ctx, invitee.ID, doc.ID, "again"); err == nil {
		t.Fatalf("expected duplicate sign to fail")
	}
}

func tableExists(ctx context.Context, pool *pgxpool.Pool, name string) bool {
	var exists bool
	if err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)`, name).Scan(&exists); err != nil {
		return false
	}
	return exists
}
