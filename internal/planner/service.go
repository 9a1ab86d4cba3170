// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package planner implements the preset lifecycle: saving, listing,
// reading, deleting, sharing and exporting itinerary presets. Every
// operation takes the caller's identity explicitly; uuid.Nil stands for an
// anonymous caller. Failures are reported as *Error values whose kind is
// one of ErrValidation, ErrPermission, ErrNotFound, ErrRender, ErrUpstream
// or ErrInternal.
package planner

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"wanderplan/internal/ai"
	"wanderplan/internal/metrics"
	"wanderplan/internal/models"
	"wanderplan/internal/share"
	"wanderplan/internal/slug"
	"wanderplan/internal/store"
)

const (
	// MaxNameLength is the longest preset name accepted, in characters.
	MaxNameLength = 200

	// MaxGenerateDays caps the trip length accepted by Generate.
	MaxGenerateDays = 30
)

// PublicReadPolicy decides whether a public preset can be read by id alone.
type PublicReadPolicy string

const (
	// PublicReadDirect lets anyone read a public preset by its id.
	PublicReadDirect PublicReadPolicy = "direct"
	// PublicReadToken requires a share token even for public presets.
	PublicReadToken PublicReadPolicy = "token"
)

// ParsePublicReadPolicy validates a policy name. Empty means PublicReadDirect.
func ParsePublicReadPolicy(s string) (PublicReadPolicy, error) {
	switch PublicReadPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PublicReadDirect:
		return PublicReadDirect, nil
	case PublicReadToken:
		return PublicReadToken, nil
	}
	return "", fmt.Errorf("unknown public read policy %q (want direct or token)", s)
}

// PresetStore is the persistence the service needs. store.PresetStore and
// store.Memory both satisfy it.
type PresetStore interface {
	Create(ctx context.Context, p *models.Preset) (*models.Preset, error)
	Update(ctx context.Context, id, ownerID uuid.UUID, f models.PresetFields) (*models.Preset, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Preset, error)
	FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Preset, error)
	Delete(ctx context.Context, id, ownerID uuid.UUID) error
}

// Renderer turns a preset into PDF bytes.
type Renderer interface {
	Render(ctx context.Context, p *models.Preset) ([]byte, error)
}

// ExportCache holds rendered PDFs keyed by preset id and revision.
type ExportCache interface {
	Get(ctx context.Context, presetID uuid.UUID, revision time.Time) ([]byte, bool)
	Set(ctx context.Context, presetID uuid.UUID, revision time.Time, pdf []byte)
	Invalidate(ctx context.Context, presetID uuid.UUID)
}

// ExportArchive stores rendered PDFs durably and hands out download links.
type ExportArchive interface {
	Put(ctx context.Context, presetID uuid.UUID, filename string, pdf []byte) error
	Delete(ctx context.Context, presetID uuid.UUID) error
	PresignedURL(ctx context.Context, presetID uuid.UUID, expires time.Duration) (string, error)
}

// Options tunes the service.
type Options struct {
	// PublicRead is the public-read policy. Empty means PublicReadDirect.
	PublicRead PublicReadPolicy
	// ShareTTL is applied to shares requested without an expiry. Zero
	// means such shares never expire.
	ShareTTL time.Duration
	// ExportTimeout bounds a single PDF render. Zero means no limit.
	ExportTimeout time.Duration
	// LinkTTL is the validity of presigned export links.
	LinkTTL time.Duration
}

// Service is the preset orchestrator.
type Service struct {
	presets   PresetStore
	shares    *share.Service
	renderer  Renderer
	cache     ExportCache
	archive   ExportArchive
	generator ai.ItineraryGenerator
	opts      Options
	now       func() time.Time
}

// New creates a planner service. Cache, archive and generator are optional
// and attached with the With* methods.
func New(presets PresetStore, shares *share.Service, renderer Renderer, opts Options) *Service {
	if opts.PublicRead == "" {
		opts.PublicRead = PublicReadDirect
	}
	if opts.LinkTTL == 0 {
		opts.LinkTTL = 15 * time.Minute
	}
	return &Service{
		presets:  presets,
		shares:   shares,
		renderer: renderer,
		opts:     opts,
		now:      time.Now,
	}
}

// WithExportCache attaches a rendered-PDF cache.
func (s *Service) WithExportCache(c ExportCache) *Service {
	s.cache = c
	return s
}

// WithArchive attaches the export archive used by ExportLink.
func (s *Service) WithArchive(a ExportArchive) *Service {
	s.archive = a
	return s
}

// WithGenerator attaches the itinerary generator used by Generate.
func (s *Service) WithGenerator(g ai.ItineraryGenerator) *Service {
	s.generator = g
	return s
}

// WithClock replaces the time source used for share expiry checks.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// PublicRead returns the active public-read policy.
func (s *Service) PublicRead() PublicReadPolicy {
	return s.opts.PublicRead
}

// SaveInput carries the fields of a save request. A nil ID creates a new
// preset; otherwise the identified preset is overwritten.
type SaveInput struct {
	ID       *uuid.UUID
	Name     string
	Payload  json.RawMessage
	IsPublic bool
}

// Save creates or updates a preset owned by owner.
func (s *Service) Save(ctx context.Context, owner uuid.UUID, in SaveInput) (p *models.Preset, err error) {
	defer func() { metrics.RecordOperation("save", outcome(err)) }()

	if owner == uuid.Nil {
		return nil, permissionError("sign in to save presets")
	}

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, validationError("name is required", nil)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return nil, validationError(fmt.Sprintf("name must be at most %d characters", MaxNameLength), nil)
	}

	if _, err := models.ParseItinerary(in.Payload); err != nil {
		return nil, validationError(err.Error(), nil)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, in.Payload); err != nil {
		return nil, validationError("payload is not valid JSON", err)
	}
	payload := json.RawMessage(compact.Bytes())

	if in.ID == nil {
		p, err = s.presets.Create(ctx, &models.Preset{
			OwnerID:  owner,
			Name:     name,
			Payload:  payload,
			IsPublic: in.IsPublic,
		})
		if err != nil {
			return nil, internalError("could not save preset", err)
		}
		return p, nil
	}

	p, err = s.presets.Update(ctx, *in.ID, owner, models.PresetFields{
		Name:     name,
		Payload:  payload,
		IsPublic: in.IsPublic,
	})
	switch {
	case errors.Is(err, store.ErrForbidden):
		return nil, permissionError("only the owner can change this preset")
	case errors.Is(err, store.ErrNotFound):
		return nil, notFoundError("preset not found", nil)
	case err != nil:
		return nil, internalError("could not save preset", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, p.ID)
	}
	return p, nil
}

// List returns the owner's presets, most recently updated first.
func (s *Service) List(ctx context.Context, owner uuid.UUID) (items []models.Preset, err error) {
	defer func() { metrics.RecordOperation("list", outcome(err)) }()

	if owner == uuid.Nil {
		return nil, permissionError("sign in to list presets")
	}
	items, err = s.presets.FindByOwner(ctx, owner)
	if err != nil {
		return nil, internalError("could not list presets", err)
	}
	if items == nil {
		items = []models.Preset{}
	}
	return items, nil
}

// Get returns a preset the caller may read: their own, or a public one
// under the direct public-read policy. Absence and denial both yield
// ErrNotFound so ids cannot be probed.
func (s *Service) Get(ctx context.Context, caller, id uuid.UUID) (p *models.Preset, err error) {
	defer func() { metrics.RecordOperation("get", outcome(err)) }()
	return s.get(ctx, caller, id)
}

func (s *Service) get(ctx context.Context, caller, id uuid.UUID) (*models.Preset, error) {
	p, err := s.presets.FindByID(ctx, id)
	if err != nil {
		return nil, internalError("could not load preset", err)
	}
	if p == nil {
		return nil, notFoundError("preset not found", nil)
	}
	if p.OwnedBy(caller) {
		return p, nil
	}
	if p.IsPublic && s.opts.PublicRead == PublicReadDirect {
		return p, nil
	}
	return nil, notFoundError("preset not found", nil)
}

// owned loads a preset for an owner-only operation.
func (s *Service) owned(ctx context.Context, owner, id uuid.UUID, action string) (*models.Preset, error) {
	if owner == uuid.Nil {
		return nil, permissionError("sign in to " + action)
	}
	p, err := s.presets.FindByID(ctx, id)
	if err != nil {
		return nil, internalError("could not load preset", err)
	}
	if p == nil {
		return nil, notFoundError("preset not found", nil)
	}
	if !p.OwnedBy(owner) {
		return nil, permissionError("only the owner can " + action)
	}
	return p, nil
}

// Delete removes a preset and revokes every share token bound to it in one
// atomic step. Cached and archived exports are dropped afterwards on a best
// effort basis.
func (s *Service) Delete(ctx context.Context, owner, id uuid.UUID) (err error) {
	defer func() { metrics.RecordOperation("delete", outcome(err)) }()

	if owner == uuid.Nil {
		return permissionError("sign in to delete presets")
	}

	err = s.presets.Delete(ctx, id, owner)
	switch {
	case errors.Is(err, store.ErrForbidden):
		return permissionError("only the owner can delete this preset")
	case errors.Is(err, store.ErrNotFound):
		return notFoundError("preset not found", nil)
	case err != nil:
		return internalError("could not delete preset", err)
	}

	if s.cache != nil {
		s.cache.Invalidate(ctx, id)
	}
	if s.archive != nil {
		if err := s.archive.Delete(ctx, id); err != nil {
			slog.Warn("failed to delete archived export", "preset_id", id, "error", err)
		}
	}

	slog.Info("preset deleted", "preset_id", id, "owner_id", owner)
	return nil
}

// ShareOptions carries the optional parameters of a share request.
type ShareOptions struct {
	ExpiresAt *time.Time
}

// Share issues a fresh read-only token for a preset the caller owns.
func (s *Service) Share(ctx context.Context, owner, id uuid.UUID, opts ShareOptions) (t *models.ShareToken, err error) {
	defer func() { metrics.RecordOperation("share", outcome(err)) }()

	if _, err := s.owned(ctx, owner, id, "share this preset"); err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := opts.ExpiresAt
	switch {
	case expiresAt != nil && !expiresAt.After(now):
		return nil, validationError("expires_at must be in the future", nil)
	case expiresAt == nil && s.opts.ShareTTL > 0:
		exp := now.Add(s.opts.ShareTTL)
		expiresAt = &exp
	}

	t, err = s.shares.Issue(ctx, id, expiresAt)
	if errors.Is(err, share.ErrPresetGone) {
		return nil, notFoundError("preset not found", nil)
	}
	if err != nil {
		return nil, internalError("could not create share link", err)
	}
	return t, nil
}

// ListShares returns every token issued for a preset the caller owns.
func (s *Service) ListShares(ctx context.Context, owner, id uuid.UUID) (tokens []models.ShareToken, err error) {
	defer func() { metrics.RecordOperation("list_shares", outcome(err)) }()

	if _, err := s.owned(ctx, owner, id, "see this preset's share links"); err != nil {
		return nil, err
	}
	tokens, err = s.shares.List(ctx, id)
	if err != nil {
		return nil, internalError("could not list share links", err)
	}
	if tokens == nil {
		tokens = []models.ShareToken{}
	}
	return tokens, nil
}

// RevokeShare revokes a token of a preset the caller owns. Revoking an
// already revoked token succeeds.
func (s *Service) RevokeShare(ctx context.Context, owner uuid.UUID, token string) (err error) {
	defer func() { metrics.RecordOperation("revoke_share", outcome(err)) }()

	if owner == uuid.Nil {
		return permissionError("sign in to revoke share links")
	}

	t, err := s.shares.Lookup(ctx, token)
	if errors.Is(err, share.ErrNotFound) {
		return notFoundError("share link not found", nil)
	}
	if err != nil {
		return internalError("could not revoke share link", err)
	}

	// The preset is gone once its tokens were revoked by a delete; ownership
	// can no longer be checked, so the token is reported as missing.
	if _, err := s.owned(ctx, owner, t.PresetID, "revoke this share link"); err != nil {
		if errors.Is(err, ErrNotFound) {
			return notFoundError("share link not found", nil)
		}
		return err
	}

	if err := s.shares.Revoke(ctx, token); err != nil {
		if errors.Is(err, share.ErrNotFound) {
			return notFoundError("share link not found", nil)
		}
		return internalError("could not revoke share link", err)
	}
	return nil
}

// ResolveShared returns the preset a share token grants access to,
// regardless of the preset's visibility.
func (s *Service) ResolveShared(ctx context.Context, token string) (p *models.Preset, err error) {
	defer func() { metrics.RecordOperation("resolve_shared", outcome(err)) }()
	return s.resolveShared(ctx, token)
}

func (s *Service) resolveShared(ctx context.Context, token string) (*models.Preset, error) {
	presetID, err := s.shares.WithClock(s.now).Resolve(ctx, token)
	if errors.Is(err, share.ErrNotFound) {
		return nil, notFoundError("share link not found", nil)
	}
	if err != nil {
		return nil, internalError("could not resolve share link", err)
	}

	p, err := s.presets.FindByID(ctx, presetID)
	if err != nil {
		return nil, internalError("could not load preset", err)
	}
	if p == nil {
		return nil, notFoundError("share link not found", nil)
	}
	return p, nil
}

// resolveRef reads a preset by id (UUID-shaped ref) or share token.
func (s *Service) resolveRef(ctx context.Context, caller uuid.UUID, ref string) (*models.Preset, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return s.get(ctx, caller, id)
	}
	return s.resolveShared(ctx, ref)
}

// Export is a rendered PDF ready for download.
type Export struct {
	PresetID uuid.UUID
	Filename string
	Data     []byte
}

// ExportPDF renders the preset identified by ref, which is either a preset
// id (read with the caller's rights) or a share token. Nothing is returned
// unless the render completed.
func (s *Service) ExportPDF(ctx context.Context, caller uuid.UUID, ref string) (out *Export, err error) {
	defer func() { metrics.RecordOperation("export_pdf", outcome(err)) }()

	p, err := s.resolveRef(ctx, caller, ref)
	if err != nil {
		return nil, err
	}
	return s.export(ctx, p)
}

// ExportShared renders the preset behind a share token. Unlike ExportPDF
// the ref is never read as a preset id.
func (s *Service) ExportShared(ctx context.Context, token string) (out *Export, err error) {
	defer func() { metrics.RecordOperation("export_shared", outcome(err)) }()

	p, err := s.resolveShared(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.export(ctx, p)
}

func (s *Service) export(ctx context.Context, p *models.Preset) (*Export, error) {
	out := &Export{PresetID: p.ID, Filename: slug.Filename(p.Name, "itinerary", ".pdf")}

	if s.cache != nil {
		if data, ok := s.cache.Get(ctx, p.ID, p.UpdatedAt); ok {
			metrics.ExportCache.WithLabelValues("hit").Inc()
			out.Data = data
			return out, nil
		}
		metrics.ExportCache.WithLabelValues("miss").Inc()
	}

	renderCtx := ctx
	if s.opts.ExportTimeout > 0 {
		var cancel context.CancelFunc
		renderCtx, cancel = context.WithTimeout(ctx, s.opts.ExportTimeout)
		defer cancel()
	}

	start := time.Now()
	data, err := s.renderer.Render(renderCtx, p)
	metrics.ExportDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		slog.Warn("export render failed", "preset_id", p.ID, "error", err)
		return nil, renderError("could not render export", err)
	}

	if s.cache != nil {
		s.cache.Set(ctx, p.ID, p.UpdatedAt, data)
	}
	out.Data = data
	return out, nil
}

// ExportLink is a time-limited download link for an archived export.
type ExportLink struct {
	URL       string    `json:"url"`
	Filename  string    `json:"filename"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ExportLink renders the preset identified by ref, archives the finished
// PDF and returns a presigned download link for it.
func (s *Service) ExportLink(ctx context.Context, caller uuid.UUID, ref string) (link *ExportLink, err error) {
	defer func() { metrics.RecordOperation("export_link", outcome(err)) }()

	if s.archive == nil {
		return nil, renderError("export links are not available", nil)
	}

	p, err := s.resolveRef(ctx, caller, ref)
	if err != nil {
		return nil, err
	}
	exp, err := s.export(ctx, p)
	if err != nil {
		return nil, err
	}

	if err := s.archive.Put(ctx, p.ID, exp.Filename, exp.Data); err != nil {
		return nil, renderError("could not archive export", err)
	}
	url, err := s.archive.PresignedURL(ctx, p.ID, s.opts.LinkTTL)
	if err != nil {
		return nil, renderError("could not create export link", err)
	}

	return &ExportLink{URL: url, Filename: exp.Filename, ExpiresAt: s.now().Add(s.opts.LinkTTL)}, nil
}

// GenerateInput is an itinerary generation request.
type GenerateInput struct {
	Destinations []string
	Days         int
	Preferences  map[string]any
}

// Generate asks the itinerary collaborator for a new payload. The result
// is structurally validated before it is returned; it is not saved.
func (s *Service) Generate(ctx context.Context, caller uuid.UUID, in GenerateInput) (payload json.RawMessage, err error) {
	defer func() { metrics.RecordOperation("generate", outcome(err)) }()

	if caller == uuid.Nil {
		return nil, permissionError("sign in to generate itineraries")
	}

	destinations := make([]string, 0, len(in.Destinations))
	for _, d := range in.Destinations {
		if d = strings.TrimSpace(d); d != "" {
			destinations = append(destinations, d)
		}
	}
	if len(destinations) == 0 {
		return nil, validationError("at least one destination is required", nil)
	}
	if in.Days < 1 || in.Days > MaxGenerateDays {
		return nil, validationError(fmt.Sprintf("days must be between 1 and %d", MaxGenerateDays), nil)
	}
	if s.generator == nil {
		return nil, &Error{Kind: ErrUpstream, Msg: "itinerary generation is not configured"}
	}

	out, err := s.generator.GenerateItinerary(ctx, ai.ItineraryRequest{
		Destinations: destinations,
		Days:         in.Days,
		Preferences:  in.Preferences,
	})
	var flagged *ai.FlaggedError
	if errors.As(err, &flagged) {
		return nil, validationError("request was flagged for: "+strings.Join(flagged.Categories, ", ")+"; please rephrase it", nil)
	}
	if err != nil {
		slog.Warn("itinerary generation failed", "error", err)
		upstream := &Error{Kind: ErrUpstream, Msg: "itinerary service failed", Err: err}
		var apiErr *ai.APIError
		if errors.As(err, &apiErr) {
			upstream.UpstreamStatus = apiErr.StatusCode
			upstream.UpstreamBody = apiErr.Body
		}
		return nil, upstream
	}

	if _, err := models.ParseItinerary(out); err != nil {
		return nil, &Error{Kind: ErrUpstream, Msg: "itinerary service returned an invalid itinerary", Err: err}
	}
	return out, nil
}
