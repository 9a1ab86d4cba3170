// Package share issues and resolves the opaque tokens that grant read-only
// access to a single preset. Tokens carry 256 bits of randomness and are
// never reissued, even after revocation.
package share

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"wanderplan/internal/models"
	"wanderplan/internal/store"
)

// tokenBytes is the amount of randomness in one token.
const tokenBytes = 32

// maxAttempts bounds retries after a token collision.
const maxAttempts = 5

var (
	// ErrNotFound is returned for unknown, revoked and expired tokens alike.
	ErrNotFound = errors.New("share token not found")

	// ErrPresetGone is returned by Issue when the preset no longer exists.
	ErrPresetGone = errors.New("preset not found")
)

// Store is the persistence the service needs. store.ShareTokenStore and
// store.Memory both satisfy it.
type Store interface {
	Insert(ctx context.Context, t *models.ShareToken) error
	FindByToken(ctx context.Context, token string) (*models.ShareToken, error)
	ListForPreset(ctx context.Context, presetID uuid.UUID) ([]models.ShareToken, error)
	Revoke(ctx context.Context, token string) error
	RevokeAllForPreset(ctx context.Context, presetID uuid.UUID) error
}

// Service generates, validates and revokes share tokens.
type Service struct {
	store Store
	now   func() time.Time
	rand  func([]byte) (int, error)
}

// NewService creates a share token service backed by the given store.
func NewService(s Store) *Service {
	return &Service{store: s, now: time.Now, rand: rand.Read}
}

// WithClock returns a copy of the service that reads time from now.
func (s *Service) WithClock(now func() time.Time) *Service {
	c := *s
	c.now = now
	return &c
}

func (s *Service) newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := s.rand(b); err != nil {
		return "", fmt.Errorf("generate share token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Issue creates a fresh token bound to presetID. A collision with any
// previously issued token, live or revoked, is retried with new randomness.
func (s *Service) Issue(ctx context.Context, presetID uuid.UUID, expiresAt *time.Time) (*models.ShareToken, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		tok, err := s.newToken()
		if err != nil {
			return nil, err
		}

		t := &models.ShareToken{Token: tok, PresetID: presetID, ExpiresAt: expiresAt}
		err = s.store.Insert(ctx, t)
		switch {
		case err == nil:
			return t, nil
		case errors.Is(err, store.ErrDuplicateToken):
			continue
		case errors.Is(err, store.ErrNotFound):
			return nil, ErrPresetGone
		default:
			return nil, fmt.Errorf("issue share token: %w", err)
		}
	}
	return nil, fmt.Errorf("issue share token: %d collisions in a row", maxAttempts)
}

// Resolve returns the preset a token grants access to. Expiry is checked
// against the current time on every call.
func (s *Service) Resolve(ctx context.Context, token string) (uuid.UUID, error) {
	t, err := s.store.FindByToken(ctx, token)
	if err != nil {
		return uuid.Nil, fmt.Errorf("resolve share token: %w", err)
	}
	if t == nil || !t.Usable(s.now()) {
		return uuid.Nil, ErrNotFound
	}
	return t.PresetID, nil
}

// Lookup returns the token record in whatever state it is in.
func (s *Service) Lookup(ctx context.Context, token string) (*models.ShareToken, error) {
	t, err := s.store.FindByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("lookup share token: %w", err)
	}
	if t == nil {
		return nil, ErrNotFound
	}
	return t, nil
}

// List returns every token issued for a preset, newest first.
func (s *Service) List(ctx context.Context, presetID uuid.UUID) ([]models.ShareToken, error) {
	tokens, err := s.store.ListForPreset(ctx, presetID)
	if err != nil {
		return nil, fmt.Errorf("list share tokens: %w", err)
	}
	return tokens, nil
}

// Revoke revokes one token. Revoking an already revoked token succeeds.
func (s *Service) Revoke(ctx context.Context, token string) error {
	err := s.store.Revoke(ctx, token)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("revoke share token: %w", err)
	}
	return nil
}

// RevokeAllForPreset revokes every live token bound to presetID.
func (s *Service) RevokeAllForPreset(ctx context.Context, presetID uuid.UUID) error {
	if err := s.store.RevokeAllForPreset(ctx, presetID); err != nil {
		return fmt.Errorf("revoke share tokens: %w", err)
	}
	return nil
}
