// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"wanderplan/internal/middleware"
	"wanderplan/internal/planner"
)

// Presets groups the preset CRUD and itinerary generation handlers.
type Presets struct {
	svc *planner.Service
}

// NewPresets creates the preset handler group.
func NewPresets(svc *planner.Service) *Presets {
	return &Presets{svc: svc}
}

type saveRequest struct {
	ID       *uuid.UUID      `json:"id,omitempty"`
	Name     string          `json:"name"`
	Payload  json.RawMessage `json:"payload"`
	IsPublic bool            `json:"is_public"`
}

// Save creates a preset, or overwrites one when the body carries an id.
// Answers 201 for a new preset and 200 for an update.
func (h *Presets) Save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.svc.Save(r.Context(), middleware.CallerID(r.Context()), planner.SaveInput{
		ID:       req.ID,
		Name:     req.Name,
		Payload:  req.Payload,
		IsPublic: req.IsPublic,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	status := http.StatusOK
	if req.ID == nil {
		status = http.StatusCreated
	}
	writeJSON(w, status, p)
}

// List returns the caller's presets, most recently updated first.
func (h *Presets) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.List(r.Context(), middleware.CallerID(r.Context()))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// Get returns one preset the caller may read. Anonymous callers are allowed.
func (h *Presets) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	p, err := h.svc.Get(r.Context(), middleware.CallerID(r.Context()), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// Delete removes a preset and revokes its share links.
func (h *Presets) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), middleware.CallerID(r.Context()), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type generateRequest struct {
	Destinations []string       `json:"destinations"`
	Days         int            `json:"days"`
	Preferences  map[string]any `json:"preferences"`
}

// Generate proxies an itinerary request to the AI collaborator and returns
// the validated payload without saving it.
func (h *Presets) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	payload, err := h.svc.Generate(r.Context(), middleware.CallerID(r.Context()), planner.GenerateInput{
		Destinations: req.Destinations,
		Days:         req.Days,
		Preferences:  req.Preferences,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]json.RawMessage{"payload": payload})
}
