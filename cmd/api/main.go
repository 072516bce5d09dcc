package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Brano80/eGarant/apikey"
	"github.com/Brano80/eGarant/audit"
	"github.com/Brano80/eGarant/auth"
	"github.com/Brano80/eGarant/config"
	"github.com/Brano80/eGarant/contract"
	"github.com/Brano80/eGarant/db"
	"github.com/Brano80/eGarant/directory"
	"github.com/Brano80/eGarant/httpapi"
	"github.com/Brano80/eGarant/pkg/logger"
	"github.com/Brano80/eGarant/verification"
	"github.com/Brano80/eGarant/workspace"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("config.yaml")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(&logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := buildDeps(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: httpapi.NewServer(deps).Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// buildDeps assembles the service graph. With a database URL the server runs
// on Postgres; without one it runs on seeded in-memory stores with the demo
// reset endpoint enabled.
func buildDeps(ctx context.Context, cfg *config.Config) (httpapi.Deps, func(), error) {
	ttl := time.Duration(cfg.Auth.TokenExpireHours) * time.Hour

	if cfg.Database.URL != "" {
		pool, err := db.NewPool(ctx, cfg.Database.URL)
		if err != nil {
			return httpapi.Deps{}, nil, fmt.Errorf("connect database: %w", err)
		}

		audits := audit.NewService(audit.NewPGStore(pool))
		authSvc := auth.NewService(auth.NewPGRepository(pool), cfg.Auth.JWTSecret, ttl)
		dirSvc := directory.NewService(directory.NewPGRepository(pool), directory.NewMockRegistry(), authSvc, audits)
		contracts := contract.NewService(contract.NewPGRepository(pool))
		workspaces := workspace.NewService(workspace.NewPGStore(pool), dirSvc, authSvc, contracts, audits)
		keys := apikey.NewService(apikey.NewPGStore(pool))
		verifier := verification.NewService(verification.NewPGStore(pool), dirSvc, authSvc, newExchange(cfg), audits, cfg.Verifier.CallbackBaseURL)

		deps := httpapi.Deps{
			Auth:       authSvc,
			Directory:  dirSvc,
			Contracts:  contracts,
			Workspaces: workspaces,
			Verifier:   verifier,
			Keys:       keys,
			Audits:     audits,
		}
		return deps, pool.Close, nil
	}

	users := auth.NewMemoryRepository()
	dirRepo := directory.NewMemoryRepository()
	contractRepo := contract.NewMemoryRepository()
	wsStore := workspace.NewMemoryStore()
	txStore := verification.NewMemoryStore()
	keyStore := apikey.NewMemoryStore()
	auditStore := audit.NewMemoryStore()

	if _, err := auth.SeedDemoUsers(ctx, users); err != nil {
		return httpapi.Deps{}, nil, fmt.Errorf("seed demo users: %w", err)
	}

	audits := audit.NewService(auditStore)
	authSvc := auth.NewService(users, cfg.Auth.JWTSecret, ttl)
	dirSvc := directory.NewService(dirRepo, directory.NewMockRegistry(), authSvc, audits)
	contracts := contract.NewService(contractRepo)
	workspaces := workspace.NewService(wsStore, dirSvc, authSvc, contracts, audits)
	keys := apikey.NewService(keyStore)
	verifier := verification.NewService(txStore, dirSvc, authSvc, newExchange(cfg), audits, cfg.Verifier.CallbackBaseURL)

	reset := func(ctx context.Context) error {
		users.Reset()
		dirRepo.Reset()
		contractRepo.Reset()
		wsStore.Reset()
		txStore.Reset()
		keyStore.Reset()
		auditStore.Reset()
		_, err := auth.SeedDemoUsers(ctx, users)
		return err
	}

	deps := httpapi.Deps{
		Auth:       authSvc,
		Directory:  dirSvc,
		Contracts:  contracts,
		Workspaces: workspaces,
		Verifier:   verifier,
		Keys:       keys,
		Audits:     audits,
		ResetData:  reset,
	}
	return deps, func() {}, nil
}

func newExchange(cfg *config.Config) verification.ExchangeClient {
	if cfg.Verifier.ExchangeURL != "" {
		return verification.NewHTTPExchange(cfg.Verifier.ExchangeURL)
	}
	return verification.NewLocalExchange(cfg.Verifier.CallbackBaseURL)
}
