package apikey

import (
	"context"
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/pbkdf2"
)

var (
	ErrNotFound    = errors.New("apikey: key not found")
	ErrInvalidKey  = errors.New("apikey: invalid key")
	ErrDeactivated = errors.New("apikey: key deactivated")
)

const (
	keyPrefix    = "egk_"
	prefixLen    = 12
	pbkdf2Iters  = 210000
	pbkdf2KeyLen = 64
)

// Key is a stored API key. The secret itself is never persisted; only its
// salted PBKDF2-SHA512 digest.
type Key struct {
	ID         string
	Name       string
	OwnerID    string
	Prefix     string
	Hash       string
	Active     bool
	CreatedAt  time.Time
	LastUsedAt *time.Time
}

// Store persists API keys.
type Store interface {
	Create(ctx context.Context, k Key) (Key, error)
	GetByPrefix(ctx context.Context, prefix string) (Key, error)
	List(ctx context.Context, ownerID string) ([]Key, error)
	Deactivate(ctx context.Context, id string) error
	TouchLastUsed(ctx context.Context, id string, at time.Time) error
}

// Service issues and verifies API keys for the machine endpoints.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// Create mints a new key and returns the record together with the plaintext
// secret. The secret is shown exactly once.
func (s *Service) Create(ctx context.Context, ownerID, name string) (Key, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Key{}, "", fmt.Errorf("apikey: name is required")
	}

	secretBytes := make([]byte, 24)
	if _, err := rand.Read(secretBytes); err != nil {
		return Key{}, "", fmt.Errorf("apikey: generate secret: %w", err)
	}
	secret := keyPrefix + hex.EncodeToString(secretBytes)

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return Key{}, "", fmt.Errorf("apikey: generate salt: %w", err)
	}

	k, err := s.store.Create(ctx, Key{
		ID:      uuid.NewString(),
		Name:    name,
		OwnerID: ownerID,
		Prefix:  secret[:prefixLen],
		Hash:    encodeHash(salt, deriveHash(secret, salt)),
		Active:  true,
	})
	if err != nil {
		return Key{}, "", fmt.Errorf("apikey: store key: %w", err)
	}
	return k, secret, nil
}

// Verify checks a presented key and records its use. Returns the matching
// record on success.
func (s *Service) Verify(ctx context.Context, presented string) (Key, error) {
	if len(presented) < prefixLen || !strings.HasPrefix(presented, keyPrefix) {
		return Key{}, ErrInvalidKey
	}
	k, err := s.store.GetByPrefix(ctx, presented[:prefixLen])
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Key{}, ErrInvalidKey
		}
		return Key{}, err
	}
	if !k.Active {
		return Key{}, ErrDeactivated
	}

	salt, want, err := decodeHash(k.Hash)
	if err != nil {
		return Key{}, fmt.Errorf("apikey: stored hash corrupt: %w", err)
	}
	got := deriveHash(presented, salt)
	if subtle.ConstantTimeCompare(want, got) != 1 {
		return Key{}, ErrInvalidKey
	}

	if err := s.store.TouchLastUsed(ctx, k.ID, time.Now()); err != nil {
		return Key{}, fmt.Errorf("apikey: record use: %w", err)
	}
	return k, nil
}

// List returns a user's keys. Hashes stay internal.
func (s *Service) List(ctx context.Context, ownerID string) ([]Key, error) {
	return s.store.List(ctx, ownerID)
}

// Deactivate permanently disables a key.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	return s.store.Deactivate(ctx, id)
}

func deriveHash(secret string, salt []byte) []byte {
	return pbkdf2.Key([]byte(secret), salt, pbkdf2Iters, pbkdf2KeyLen, sha512.New)
}

func encodeHash(salt, hash []byte) string {
	return hex.EncodeToString(salt) + ":" + hex.EncodeToString(hash)
}

func decodeHash(stored string) (salt, hash []byte, err error) {
	parts := strings.SplitN(stored, ":", 2)
	if len(parts) != 2 {
		return nil, nil, fmt.Errorf("apikey: malformed hash")
	}
	salt, err = hex.DecodeString(parts[0])
	if err != nil {
		return nil, nil, err
	}
	hash, err = hex.DecodeString(parts[1])
	if err != nil {
		return nil, nil, err
	}
	return salt, hash, nil
}
