// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"wanderplan/internal/models"
)

const shareTokenColumns = `token, preset_id, created_at, expires_at, revoked, revoked_at`

// ShareTokenStore persists share tokens. Rows are never deleted: revoked
// tokens stay behind so the UNIQUE constraint keeps every issued token
// string distinct forever.
type ShareTokenStore struct {
	db *sql.DB
}

// NewShareTokenStore creates a new ShareTokenStore with the given database connection.
func NewShareTokenStore(db *sql.DB) *ShareTokenStore {
	return &ShareTokenStore{db: db}
}

func scanShareToken(row rowScanner) (*models.ShareToken, error) {
	t := &models.ShareToken{}
	if err := row.Scan(
		&t.Token, &t.PresetID, &t.CreatedAt, &t.ExpiresAt, &t.Revoked, &t.RevokedAt,
	); err != nil {
		return nil, err
	}
	return t, nil
}

// Insert stores a new token for an existing preset and fills in CreatedAt.
// The preset row is locked FOR SHARE inside the transaction so issuance
// cannot interleave with a concurrent delete. Returns ErrNotFound if the
// preset is gone and ErrDuplicateToken on a token collision.
func (s *ShareTokenStore) Insert(ctx context.Context, t *models.ShareToken) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("insert share token begin: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM presets WHERE id = $1 FOR SHARE`, t.PresetID,
	).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("insert share token lock preset: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO share_tokens (token, preset_id, expires_at)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`, t.Token, t.PresetID, t.ExpiresAt).Scan(&t.CreatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateToken
	}
	if err != nil {
		return fmt.Errorf("insert share token: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("insert share token commit: %w", err)
	}
	return nil
}

// FindByToken retrieves a token record regardless of its state. Returns nil
// if the token was never issued.
func (s *ShareTokenStore) FindByToken(ctx context.Context, token string) (*models.ShareToken, error) {
	t, err := scanShareToken(s.db.QueryRowContext(ctx, `
		SELECT `+shareTokenColumns+` FROM share_tokens WHERE token = $1
	`, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find share token: %w", err)
	}
	return t, nil
}

// ListForPreset returns every token issued for a preset, newest first.
func (s *ShareTokenStore) ListForPreset(ctx context.Context, presetID uuid.UUID) ([]models.ShareToken, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+shareTokenColumns+`
		FROM share_tokens
		WHERE preset_id = $1
		ORDER BY created_at DESC
	`, presetID)
	if err != nil {
		return nil, fmt.Errorf("list share tokens: %w", err)
	}
	defer rows.Close()

	var tokens []models.ShareToken
	for rows.Next() {
		t, err := scanShareToken(rows)
		if err != nil {
			return nil, fmt.Errorf("scan share token: %w", err)
		}
		tokens = append(tokens, *t)
	}
	return tokens, rows.Err()
}

// Revoke marks a token as revoked. Revoking an already revoked token is a
// no-op; an unknown token returns ErrNotFound.
func (s *ShareTokenStore) Revoke(ctx context.Context, token string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE share_tokens
		SET revoked = TRUE, revoked_at = COALESCE(revoked_at, NOW())
		WHERE token = $1
	`, token)
	if err != nil {
		return fmt.Errorf("revoke share token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("revoke share token rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RevokeAllForPreset revokes every live token bound to a preset.
func (s *ShareTokenStore) RevokeAllForPreset(ctx context.Context, presetID uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE share_tokens SET revoked = TRUE, revoked_at = NOW()
		WHERE preset_id = $1 AND NOT revoked
	`, presetID)
	if err != nil {
		return fmt.Errorf("revoke share tokens for preset: %w", err)
	}
	return nil
}
