package apikey

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestCreateAndVerify(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	k, secret, err := svc.Create(ctx, "u-1", "integration")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.HasPrefix(secret, "egk_") {
		t.Errorf("secret prefix = %q", secret[:4])
	}
	if k.Hash == "" || strings.Contains(k.Hash, secret) {
		t.Error("stored hash must not contain the secret")
	}

	got, err := svc.Verify(ctx, secret)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.ID != k.ID {
		t.Errorf("verified key id = %s, want %s", got.ID, k.ID)
	}

	keys, err := svc.List(ctx, "u-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(keys) != 1 || keys[0].LastUsedAt == nil {
		t.Errorf("list = %+v, want one key with last_used_at set", keys)
	}
}

func TestVerifyRejectsBadKeys(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	_, secret, err := svc.Create(ctx, "u-1", "integration")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	cases := []string{
		"",
		"short",
		"egk_deadbeefdeadbeefdeadbeefdeadbeefdeadbeefdeadbeef",
		secret[:len(secret)-1] + "x",
	}
	for _, presented := range cases {
		if _, err := svc.Verify(ctx, presented); !errors.Is(err, ErrInvalidKey) {
			t.Errorf("Verify(%q) err = %v, want ErrInvalidKey", presented, err)
		}
	}
}

func TestDeactivatedKeyRejected(t *testing.T) {
	svc := NewService(NewMemoryStore())
	ctx := context.Background()

	k, secret, err := svc.Create(ctx, "u-1", "old key")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Deactivate(ctx, k.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if _, err := svc.Verify(ctx, secret); !errors.Is(err, ErrDeactivated) {
		t.Errorf("err = %v, want ErrDeactivated", err)
	}
}
