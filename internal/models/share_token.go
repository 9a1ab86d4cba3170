// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// ShareToken grants read-only access to one preset, independent of the
// preset's visibility flag. Revoked tokens are kept so that a token string
// is never handed out twice.
type ShareToken struct {
	Token     string     `json:"token"`
	PresetID  uuid.UUID  `json:"preset_id"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Revoked   bool       `json:"revoked"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Expired reports whether the token's expiry has passed at the given instant.
// Tokens without an expiry never expire.
func (t *ShareToken) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && !now.Before(*t.ExpiresAt)
}

// Usable reports whether the token may resolve to its preset at the given
// instant: it must be neither revoked nor expired.
func (t *ShareToken) Usable(now time.Time) bool {
	return !t.Revoked && !t.Expired(now)
}
