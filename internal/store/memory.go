// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"wanderplan/internal/models"
)

// Memory is an in-process preset and share-token store with the same
// semantics as the PostgreSQL stores. A single mutex guards both maps,
// which makes delete-with-revoke and token issuance mutually atomic.
type Memory struct {
	mu      sync.Mutex
	presets map[uuid.UUID]*models.Preset
	tokens  map[string]*models.ShareToken
	now     func() time.Time
	last    time.Time
}

// NewMemory creates an empty in-memory store using the wall clock.
func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock creates an empty in-memory store with an injected clock.
func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{
		presets: make(map[uuid.UUID]*models.Preset),
		tokens:  make(map[string]*models.ShareToken),
		now:     now,
	}
}

// tick returns a strictly increasing timestamp so updated_at ordering is
// total even when the clock does not advance between calls. Callers hold mu.
func (m *Memory) tick() time.Time {
	now := m.now()
	if !now.After(m.last) {
		now = m.last.Add(time.Microsecond)
	}
	m.last = now
	return now
}

func clonePreset(p *models.Preset) *models.Preset {
	c := *p
	c.Payload = bytes.Clone(p.Payload)
	return &c
}

// Create stores a new preset with a fresh ID and timestamps.
func (m *Memory) Create(_ context.Context, p *models.Preset) (*models.Preset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.tick()
	stored := clonePreset(p)
	stored.ID = uuid.New()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	m.presets[stored.ID] = stored
	return clonePreset(stored), nil
}

// Update replaces the mutable fields of a preset as one record write.
func (m *Memory) Update(_ context.Context, id, ownerID uuid.UUID, f models.PresetFields) (*models.Preset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, ok := m.presets[id]
	if !ok {
		return nil, ErrNotFound
	}
	if current.OwnerID != ownerID {
		return nil, ErrForbidden
	}

	next := clonePreset(current)
	next.Name = f.Name
	next.Payload = bytes.Clone(f.Payload)
	next.IsPublic = f.IsPublic
	next.UpdatedAt = m.tick()
	m.presets[id] = next
	return clonePreset(next), nil
}

// FindByID returns a copy of the preset, or nil if not found.
func (m *Memory) FindByID(_ context.Context, id uuid.UUID) (*models.Preset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.presets[id]
	if !ok {
		return nil, nil
	}
	return clonePreset(p), nil
}

// FindByOwner returns the user's presets, most recently updated first.
func (m *Memory) FindByOwner(_ context.Context, ownerID uuid.UUID) ([]models.Preset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var items []models.Preset
	for _, p := range m.presets {
		if p.OwnerID == ownerID {
			items = append(items, *clonePreset(p))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].UpdatedAt.Equal(items[j].UpdatedAt) {
			return items[i].ID.String() < items[j].ID.String()
		}
		return items[i].UpdatedAt.After(items[j].UpdatedAt)
	})
	return items, nil
}

// Delete removes the preset and revokes all of its tokens atomically.
func (m *Memory) Delete(_ context.Context, id, ownerID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.presets[id]
	if !ok {
		return ErrNotFound
	}
	if p.OwnerID != ownerID {
		return ErrForbidden
	}

	m.revokeAllLocked(id)
	delete(m.presets, id)
	return nil
}

// Insert stores a new share token for an existing preset.
func (m *Memory) Insert(_ context.Context, t *models.ShareToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.presets[t.PresetID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.tokens[t.Token]; ok {
		return ErrDuplicateToken
	}

	t.CreatedAt = m.tick()
	stored := *t
	m.tokens[t.Token] = &stored
	return nil
}

// FindByToken returns a copy of the token record, or nil if never issued.
func (m *Memory) FindByToken(_ context.Context, token string) (*models.ShareToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tokens[token]
	if !ok {
		return nil, nil
	}
	c := *t
	return &c, nil
}

// ListForPreset returns every token issued for the preset, newest first.
func (m *Memory) ListForPreset(_ context.Context, presetID uuid.UUID) ([]models.ShareToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.ShareToken
	for _, t := range m.tokens {
		if t.PresetID == presetID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Revoke marks a token as revoked; already revoked tokens are left as they are.
func (m *Memory) Revoke(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	t, ok := m.tokens[token]
	if !ok {
		return ErrNotFound
	}
	if !t.Revoked {
		now := m.tick()
		t.Revoked = true
		t.RevokedAt = &now
	}
	return nil
}

// RevokeAllForPreset revokes every live token bound to the preset.
func (m *Memory) RevokeAllForPreset(_ context.Context, presetID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.revokeAllLocked(presetID)
	return nil
}

func (m *Memory) revokeAllLocked(presetID uuid.UUID) {
	var now time.Time
	for _, t := range m.tokens {
		if t.PresetID == presetID && !t.Revoked {
			if now.IsZero() {
				now = m.tick()
			}
			t.Revoked = true
			t.RevokedAt = &now
		}
	}
}
