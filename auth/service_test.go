package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestService_RegisterAndLogin(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, "test-secret", time.Hour)

	req := RegisterRequest{
		Email:    "alice@example.com",
		Password: "supersafe",
		Name:     "Alice Example",
	}

	ctx := context.Background()
	user, err := svc.Register(ctx, req)
	if err != nil {
		t.Fatalf("register: unexpected error: %v", err)
	}

	if user.Email != req.Email {
		t.Fatalf("expected email %q got %q", req.Email, user.Email)
	}

	resp, err := svc.Login(ctx, LoginRequest{Email: req.Email, Password: req.Password})
	if err != nil {
		t.Fatalf("login: unexpected error: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("login: expected token, got empty string")
	}
	if resp.User.ID != user.ID {
		t.Fatalf("login: expected user id %q got %q", user.ID, resp.User.ID)
	}

	session, err := svc.VerifyToken(resp.Token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if session.UserID != user.ID {
		t.Fatalf("verify token: expected %q got %q", user.ID, session.UserID)
	}
	if session.ActiveContext != ContextPersonal {
		t.Fatalf("verify token: expected personal context, got %q", session.ActiveContext)
	}
}

func TestService_RegisterValidation(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, "test-secret", time.Hour)

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "alice@example.com",
		Password: "short",
		Name:     "Alice Example",
	})
	if !errors.Is(err, ErrWeakPassword) {
		t.Fatalf("expected ErrWeakPassword, got %v", err)
	}

	if _, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "",
		Password: "strongpassword",
		Name:     "",
	}); err == nil {
		t.Fatal("expected validation error for missing fields")
	}
}

func TestService_DuplicateEmail(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, "test-secret", time.Hour)

	req := RegisterRequest{
		Email:    "alice@example.com",
		Password: "strongpassword",
		Name:     "Alice Example",
	}
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("first register failed: %v", err)
	}

	if _, err := svc.Register(context.Background(), req); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestService_LoginInvalidCredentials(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, "test-secret", time.Hour)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "unknown@example.com",
		Password: "irrelevant",
	})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestService_EstablishSession(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, "test-secret", time.Hour)

	ctx := context.Background()
	user, err := svc.Register(ctx, RegisterRequest{
		Email:    "petra@example.com",
		Password: "strongpassword",
		Name:     "Petra Example",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	token, err := svc.EstablishSession(ctx, user.ID)
	if err != nil {
		t.Fatalf("establish session: %v", err)
	}
	session, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if session.UserID != user.ID {
		t.Fatalf("expected user %q got %q", user.ID, session.UserID)
	}

	if _, err := svc.EstablishSession(ctx, "no-such-user"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestService_ContextSwitchToken(t *testing.T) {
	repo := NewMemoryRepository()
	svc := NewService(repo, "test-secret", time.Hour)

	token, err := svc.IssueToken("user-1", "mandate-42")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	session, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if session.ActiveContext != "mandate-42" {
		t.Fatalf("expected context mandate-42, got %q", session.ActiveContext)
	}
}

func TestService_VerifyTokenRejectsGarbage(t *testing.T) {
	svc := NewService(NewMemoryRepository(), "test-secret", time.Hour)

	if _, err := svc.VerifyToken("not-a-token"); err == nil {
		t.Fatal("expected error for malformed token")
	}

	other := NewService(NewMemoryRepository(), "other-secret", time.Hour)
	token, err := other.IssueToken("user-1", ContextPersonal)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := svc.VerifyToken(token); err == nil {
		t.Fatal("expected error for token signed with another secret")
	}
}
