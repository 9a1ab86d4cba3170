// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package models defines the data structures that map to database tables
// and provides the core types used throughout the application.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Preset is a saved, named itinerary configuration owned by a single user.
// The payload is opaque to the storage layer; only validation, the export
// renderer and the UI interpret it (see ParseItinerary).
type Preset struct {
	ID        uuid.UUID       `json:"id"`
	OwnerID   uuid.UUID       `json:"owner_id"`
	Name      string          `json:"name"`
	Payload   json.RawMessage `json:"payload"`
	IsPublic  bool            `json:"is_public"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// OwnedBy reports whether the given user owns the preset. The nil UUID
// (anonymous caller) never owns anything.
func (p *Preset) OwnedBy(userID uuid.UUID) bool {
	return userID != uuid.Nil && p.OwnerID == userID
}

// PresetFields holds the owner-mutable fields of a preset. Updates always
// write all of them together.
type PresetFields struct {
	Name     string
	Payload  json.RawMessage
	IsPublic bool
}
