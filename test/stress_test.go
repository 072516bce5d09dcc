package test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/Brano80/eGarant/apikey"
	"github.com/Brano80/eGarant/audit"
	"github.com/Brano80/eGarant/auth"
	"github.com/Brano80/eGarant/contract"
	"github.com/Brano80/eGarant/directory"
	"github.com/Brano80/eGarant/test/actors"
	"github.com/Brano80/eGarant/test/chaos"
	"github.com/Brano80/eGarant/test/infra"
	"github.com/Brano80/eGarant/test/oracles"
	"github.com/Brano80/eGarant/verification"
	"github.com/Brano80/eGarant/workspace"
)

var (
	flDuration    = flag.Duration("duration", 90*time.Second, "how long to run stress")
	flConcurrency = flag.Int("concurrency", 8, "number of concurrent actors")
	flSeed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flDSN         = flag.String("dsn", "", "existing Postgres DSN to reuse (avoids Docker)")
)

func TestSigningConcurrency(t *testing.T) {
	flag.Parse()
	seed := *flSeed
	rand.Seed(seed)

	var (
		pgC        *infra.PGContainer
		dsn        string
		err        error
		usedShared bool
	)
	ctx, cancel := context.WithTimeout(context.Background(), *flDuration+60*time.Second)
	defer cancel()

	switch {
	case *flDSN != "":
		dsn = *flDSN
		usedShared = true
		pgC = &infra.PGContainer{}
	case os.Getenv("STRESS_TEST_PG_DSN") != "":
		dsn = os.Getenv("STRESS_TEST_PG_DSN")
		usedShared = true
		pgC = &infra.PGContainer{}
	default:
		if dockerAvailable(ctx) {
			pgC, dsn, err = infra.StartPostgres16(ctx, "")
			if err != nil {
				t.Fatalf("start postgres: %v", err)
			}
		} else {
			dsn, err = infra.InitLocalDatabase(ctx)
			if err != nil {
				t.Fatalf("init local database: %v", err)
			}
			pgC = &infra.PGContainer{}
		}
	}
	defer pgC.Terminate(context.Background())

	pool, teardown, err := infra.ApplyMigrations(ctx, dsn, usedShared)
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	defer pool.Close()
	defer func() {
		if err := teardown(context.Background()); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	}()

	svcs := buildServices(pool)
	seedData := mustSeed(t, ctx, svcs)

	g, ctx2 := errgroup.WithContext(ctx)
	stop := make(chan struct{})

	// signers battling over the same documents, an uploader extending the set
	for i := 0; i < *flConcurrency; i++ {
		g.Go(func() error {
			return actors.Signer(ctx2, svcs.workspaces, seedData.creatorID, seedData.workspaceID, stop)
		})
		g.Go(func() error {
			return actors.Signer(ctx2, svcs.workspaces, seedData.inviteeID, seedData.workspaceID, stop)
		})
	}
	g.Go(func() error {
		return actors.Uploader(ctx2, svcs.workspaces, seedData.creatorID, seedData.workspaceID, seedData.contractID, stop)
	})
	g.Go(func() error {
		return actors.Reader(ctx2, svcs.workspaces, seedData.inviteeID, seedData.workspaceID, stop)
	})

	// wallet rounds with replayed callbacks against the connected company
	g.Go(func() error {
		return actors.WalletVerifier(ctx2, svcs.verifier, seedData.companyCode, "Jan", "Novacek", stop)
	})

	go chaos.TerminateRandomBackend(ctx2, pool, "", stop)

	deadline := time.Now().Add(*flDuration)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var failed bool
loop:
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			name, row, err := oracles.Run(ctx2, pool)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					break loop
				}
				t.Fatalf("oracle error: %v", err)
			}
			if name != "" {
				failed = true
				dumpRecent(t, ctx2, pool)
				t.Fatalf("Oracle %s failed. First row: %s (seed=%d)", name, row, seed)
			}
		}
	}

	close(stop)
	if err := g.Wait(); err != nil && !failed {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("actors errored: %v", err)
		}
	}
}

func dockerAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}
	c := exec.CommandContext(ctx, "docker", "info")
	c.Stdout = io.Discard
	c.Stderr = io.Discard
	return c.Run() == nil
}

type services struct {
	auth       *auth.Service
	dir        *directory.Service
	contracts  *contract.Service
	workspaces *workspace.Service
	verifier   *verification.Service
	keys       *apikey.Service
}

func buildServices(pool *pgxpool.Pool) services {
	audits := audit.NewService(audit.NewPGStore(pool))
	authSvc := auth.NewService(auth.NewPGRepository(pool), "stress-secret", time.Hour)
	dirSvc := directory.NewService(directory.NewPGRepository(pool), directory.NewMockRegistry(), authSvc, audits)
	contracts := contract.NewService(contract.NewPGRepository(pool))
	workspaces := workspace.NewService(workspace.NewPGStore(pool), dirSvc, authSvc, contracts, audits)
	verifier := verification.NewService(verification.NewPGStore(pool), dirSvc, authSvc,
		verification.NewLocalExchange("http://stress.local"), audits, "http://stress.local")
	return services{
		auth:       authSvc,
		dir:        dirSvc,
		contracts:  contracts,
		workspaces: workspaces,
		verifier:   verifier,
		keys:       apikey.NewService(apikey.NewPGStore(pool)),
	}
}

type seedIDs struct {
	creatorID   string
	inviteeID   string
	companyCode string
	contractID  string
	workspaceID string
}

func mustSeed(t *testing.T, ctx context.Context, svcs services) seedIDs {
	t.Helper()
	suffix := rand.Int63()

	creator, err := svcs.auth.Register(ctx, auth.RegisterRequest{
		Email:    fmt.Sprintf("jan%d@example.sk", suffix),
		Name:     "Ján Nováček",
		Password: "stress-password",
	})
	if err != nil {
		t.Fatalf("seed creator: %v", err)
	}
	invitee, err := svcs.auth.Register(ctx, auth.RegisterRequest{
		Email:    fmt.Sprintf("petra%d@example.sk", suffix),
		Name:     "Petra Ambroz",
		Password: "stress-password",
	})
	if err != nil {
		t.Fatalf("seed invitee: %v", err)
	}

	// officer match in the seeded registry extract for this code
	const companyCode = "36723246"
	if _, err := svcs.dir.ConnectCompany(ctx, creator.ID, companyCode); err != nil {
		t.Fatalf("connect company: %v", err)
	}

	frame, err := svcs.contracts.Create(ctx, creator.ID, "", "Stress frame agreement", "general")
	if err != nil {
		t.Fatalf("seed contract: %v", err)
	}
	ws, err := svcs.workspaces.Create(ctx, creator.ID, "", frame.ID, "Stress workspace")
	if err != nil {
		t.Fatalf("seed workspace: %v", err)
	}

	p, err := svcs.workspaces.Invite(ctx, creator.ID, ws.ID, invitee.Email, "", "")
	if err != nil {
		t.Fatalf("seed invite: %v", err)
	}
	if _, err := svcs.workspaces.Respond(ctx, invitee.ID, p.ID, true); err != nil {
		t.Fatalf("seed respond: %v", err)
	}

	if _, err := svcs.workspaces.AttachDocument(ctx, creator.ID, ws.ID, frame.ID, "Main agreement", "contract"); err != nil {
		t.Fatalf("seed document: %v", err)
	}

	return seedIDs{
		creatorID:   creator.ID,
		inviteeID:   invitee.ID,
		companyCode: companyCode,
		contractID:  frame.ID,
		workspaceID: ws.ID,
	}
}

func dumpRecent(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	type dump struct {
		name string
		sql  string
	}
	dumps := []dump{
		{"workspace_documents", `SELECT id, workspace_id, status, uploaded_at FROM workspace_documents ORDER BY uploaded_at DESC LIMIT 50`},
		{"signatures", `SELECT id, document_id, participant_id, status, signed_at FROM signatures ORDER BY id DESC LIMIT 50`},
		{"attestations", `SELECT id, user_id, document_id, created_at FROM attestations ORDER BY created_at DESC LIMIT 50`},
		{"verification_transactions", `SELECT id, company_code, status, updated_at FROM verification_transactions ORDER BY updated_at DESC LIMIT 50`},
		{"audit_events", `SELECT id, kind, user_id, at FROM audit_events ORDER BY at DESC LIMIT 50`},
	}
	for _, d := range dumps {
		rows, err := pool.Query(ctx, d.sql)
		if err != nil {
			t.Logf("dump %s error: %v", d.name, err)
			continue
		}
		cols := rows.FieldDescriptions()
		t.Logf("-- %s --", d.name)
		for rows.Next() {
			vals, _ := rows.Values()
			buf := make([]any, 0, len(vals))
			for i := range vals {
				buf = append(buf, fmt.Sprintf("%s=%v", string(cols[i].Name), vals[i]))
			}
			t.Logf("%s", buf)
		}
		rows.Close()
	}
}
