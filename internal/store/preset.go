// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"wanderplan/internal/models"
)

// presetColumns is the column list shared by every preset query.
const presetColumns = `id, owner_id, name, payload, is_public, created_at, updated_at`

// PresetStore handles all preset-related database operations. Ownership is
// checked again here on every mutation, independently of the service layer.
type PresetStore struct {
	db *sql.DB
}

// NewPresetStore creates a new PresetStore with the given database connection.
func NewPresetStore(db *sql.DB) *PresetStore {
	return &PresetStore{db: db}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPreset(row rowScanner) (*models.Preset, error) {
	p := &models.Preset{}
	var payload []byte
	if err := row.Scan(
		&p.ID, &p.OwnerID, &p.Name, &payload, &p.IsPublic, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.Payload = json.RawMessage(payload)
	return p, nil
}

// Create inserts a new preset and returns it with the generated ID and timestamps.
func (s *PresetStore) Create(ctx context.Context, p *models.Preset) (*models.Preset, error) {
	created, err := scanPreset(s.db.QueryRowContext(ctx, `
		INSERT INTO presets (owner_id, name, payload, is_public)
		VALUES ($1, $2, $3, $4)
		RETURNING `+presetColumns,
		p.OwnerID, p.Name, []byte(p.Payload), p.IsPublic,
	))
	if err != nil {
		return nil, fmt.Errorf("create preset: %w", err)
	}
	return created, nil
}

// Update overwrites the mutable fields of a preset in a single statement, so
// concurrent writers never interleave field by field. Returns ErrNotFound if
// the preset does not exist and ErrForbidden if ownerID does not own it.
func (s *PresetStore) Update(ctx context.Context, id, ownerID uuid.UUID, f models.PresetFields) (*models.Preset, error) {
	updated, err := scanPreset(s.db.QueryRowContext(ctx, `
		UPDATE presets SET
			name = $1, payload = $2, is_public = $3, updated_at = NOW()
		WHERE id = $4 AND owner_id = $5
		RETURNING `+presetColumns,
		f.Name, []byte(f.Payload), f.IsPublic, id, ownerID,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, s.missReason(ctx, id)
	}
	if err != nil {
		return nil, fmt.Errorf("update preset: %w", err)
	}
	return updated, nil
}

// missReason tells apart a missing preset from one owned by someone else
// after an ownership-scoped statement matched no row.
func (s *PresetStore) missReason(ctx context.Context, id uuid.UUID) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM presets WHERE id = $1)`, id,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check preset existence: %w", err)
	}
	if exists {
		return ErrForbidden
	}
	return ErrNotFound
}

// FindByID retrieves a preset by its UUID. Returns nil if not found.
func (s *PresetStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Preset, error) {
	p, err := scanPreset(s.db.QueryRowContext(ctx, `
		SELECT `+presetColumns+` FROM presets WHERE id = $1
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find preset by id: %w", err)
	}
	return p, nil
}

// FindByOwner returns all presets owned by the user, most recently updated first.
func (s *PresetStore) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Preset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+presetColumns+`
		FROM presets
		WHERE owner_id = $1
		ORDER BY updated_at DESC, id
	`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list presets by owner: %w", err)
	}
	defer rows.Close()

	var items []models.Preset
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan preset: %w", err)
		}
		items = append(items, *p)
	}
	return items, rows.Err()
}

// Delete removes a preset and revokes every share token bound to it in one
// transaction. The preset row is locked FOR UPDATE first, which blocks any
// concurrent token issuance (it holds FOR SHARE on the same row) until the
// delete has committed.
func (s *PresetStore) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete preset begin: %w", err)
	}
	defer tx.Rollback()

	var owner uuid.UUID
	err = tx.QueryRowContext(ctx,
		`SELECT owner_id FROM presets WHERE id = $1 FOR UPDATE`, id,
	).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("delete preset lock: %w", err)
	}
	if owner != ownerID {
		return ErrForbidden
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE share_tokens SET revoked = TRUE, revoked_at = NOW()
		WHERE preset_id = $1 AND NOT revoked
	`, id); err != nil {
		return fmt.Errorf("delete preset revoke tokens: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM presets WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("delete preset commit: %w", err)
	}
	return nil
}
