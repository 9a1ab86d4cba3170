// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router tests verify the HTTP routing configuration, middleware
// chains and the end-to-end share flow through the full stack.
package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wanderplan/internal/export"
	"wanderplan/internal/handlers"
	"wanderplan/internal/middleware"
	"wanderplan/internal/planner"
	"wanderplan/internal/session"
	"wanderplan/internal/share"
	"wanderplan/internal/store"
)

const csrfToken = "test-csrf-token"

// client drives the router as one browser: a fixed CSRF cookie and an
// optional signed-in session injected into the request context.
type client struct {
	t       *testing.T
	handler http.Handler
	sess    *session.Data
}

func newRouter(t *testing.T) http.Handler {
	t.Helper()
	return newRouterWith(t, planner.Options{})
}

func newRouterWith(t *testing.T, opts planner.Options) http.Handler {
	t.Helper()
	mem := store.NewMemory()
	svc := planner.New(mem, share.NewService(mem), export.NewRenderer(), opts)
	shareLimiter := middleware.NewRateLimiter(100, time.Minute)
	t.Cleanup(shareLimiter.Stop)

	return New(Deps{
		Auth:         handlers.NewAuth(nil, nil),
		Presets:      handlers.NewPresets(svc),
		Shares:       handlers.NewShares(svc, "https://wanderplan.test"),
		Exports:      handlers.NewExports(svc),
		ShareLimiter: shareLimiter,
	})
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(method, path, &buf)
	r.AddCookie(&http.Cookie{Name: middleware.CSRFCookieName, Value: csrfToken})
	r.Header.Set(middleware.CSRFHeaderName, csrfToken)
	if c.sess != nil {
		r = r.WithContext(middleware.WithSession(r.Context(), c.sess))
	}
	rec := httptest.NewRecorder()
	c.handler.ServeHTTP(rec, r)
	return rec
}

func signedIn(t *testing.T, h http.Handler) *client {
	return &client{t: t, handler: h, sess: &session.Data{UserID: uuid.New(), Email: "owner@wanderplan.test"}}
}

func TestHealthRoute(t *testing.T) {
	h := newRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestMetricsRoute(t *testing.T) {
	h := newRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestPlannerRequiresCSRFAndAuth(t *testing.T) {
	h := newRouter(t)

	// No CSRF header at all.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/planner/presets", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// CSRF passes, but nobody is signed in.
	anon := &client{t: t, handler: h}
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodPost, "/api/planner/presets", map[string]any{}).Code)
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodGet, "/api/planner/presets", nil).Code)

	// A session still waiting for its second factor is not signed in.
	pending := &client{t: t, handler: h, sess: &session.Data{UserID: uuid.New(), PendingTOTP: true}}
	assert.Equal(t, http.StatusUnauthorized, pending.do(http.MethodGet, "/api/planner/presets", nil).Code)
}

// TestKandyScenario walks the share lifecycle through the full router:
// save a private preset, share it, resolve the token anonymously, export
// the PDF through the token, delete, and watch the token die.
func TestKandyScenario(t *testing.T) {
	h := newRouter(t)
	owner := signedIn(t, h)
	anon := &client{t: t, handler: h}

	rec := owner.do(http.MethodPost, "/api/planner/presets", map[string]any{
		"name": "Kandy Weekend",
		"payload": map[string]any{
			"destinations": []string{"Kandy"},
			"days":         3,
			"plan": []map[string]any{{
				"day": 1,
				"activities": []map[string]any{{
					"title":       "Temple of the Tooth",
					"description": "Dress modestly\n\n- shoulders covered\n- no hats",
				}},
			}},
		},
		"is_public": false,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var preset struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&preset))
	presetPath := "/api/planner/presets/" + preset.ID.String()

	// Private: a stranger cannot read it directly.
	stranger := signedIn(t, h)
	assert.Equal(t, http.StatusNotFound, stranger.do(http.MethodGet, presetPath, nil).Code)

	rec = owner.do(http.MethodPost, presetPath+"/share", nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var link struct {
		Token string `json:"token"`
		URL   string `json:"url"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&link))
	assert.Equal(t, "https://wanderplan.test/share/"+link.Token, link.URL)

	rec = anon.do(http.MethodGet, "/share/"+link.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Temple of the Tooth")

	rec = anon.do(http.MethodGet, "/share/"+link.Token+"/pdf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF-")))

	rec = anon.do(http.MethodPost, "/api/planner/"+link.Token+"/pdf", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = anon.do(http.MethodGet, "/share/"+link.Token+"/qr.png", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	assert.Equal(t, http.StatusForbidden, stranger.do(http.MethodDelete, presetPath, nil).Code)
	assert.Equal(t, http.StatusNoContent, owner.do(http.MethodDelete, presetPath, nil).Code)

	assert.Equal(t, http.StatusNotFound, anon.do(http.MethodGet, "/share/"+link.Token, nil).Code)
	assert.Equal(t, http.StatusNotFound, anon.do(http.MethodGet, "/share/"+link.Token+"/pdf", nil).Code)
	assert.Equal(t, http.StatusNotFound, owner.do(http.MethodGet, presetPath, nil).Code)
}

func TestShareRouteIsRateLimited(t *testing.T) {
	mem := store.NewMemory()
	svc := planner.New(mem, share.NewService(mem), export.NewRenderer(), planner.Options{})
	limiter := middleware.NewRateLimiter(2, time.Minute)
	t.Cleanup(limiter.Stop)
	h := New(Deps{
		Auth:         handlers.NewAuth(nil, nil),
		Presets:      handlers.NewPresets(svc),
		Shares:       handlers.NewShares(svc, "https://wanderplan.test"),
		Exports:      handlers.NewExports(svc),
		ShareLimiter: limiter,
	})

	var codes []int
	for range 3 {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/share/guess", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusNotFound, http.StatusNotFound, http.StatusTooManyRequests}, codes)
}

func savePreset(t *testing.T, c *client, name string, public bool) string {
	t.Helper()
	rec := c.do(http.MethodPost, "/api/planner/presets", map[string]any{
		"name":      name,
		"payload":   map[string]any{"destinations": []string{"Galle"}, "days": 2},
		"is_public": public,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var preset struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&preset))
	return "/api/planner/presets/" + preset.ID.String()
}

func TestAnonymousPresetRead(t *testing.T) {
	h := newRouter(t)
	owner := signedIn(t, h)
	anon := &client{t: t, handler: h}

	publicPath := savePreset(t, owner, "Galle Fort", true)
	privatePath := savePreset(t, owner, "Galle Private", false)

	rec := anon.do(http.MethodGet, publicPath, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), "Galle Fort")

	assert.Equal(t, http.StatusNotFound, anon.do(http.MethodGet, privatePath, nil).Code)

	// The rest of the preset surface still needs a session.
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodDelete, publicPath, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodPost, publicPath+"/share", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, anon.do(http.MethodGet, publicPath+"/shares", nil).Code)
}

func TestAnonymousPresetReadUnderTokenPolicy(t *testing.T) {
	h := newRouterWith(t, planner.Options{PublicRead: planner.PublicReadToken})
	owner := signedIn(t, h)
	anon := &client{t: t, handler: h}

	publicPath := savePreset(t, owner, "Galle Fort", true)

	assert.Equal(t, http.StatusNotFound, anon.do(http.MethodGet, publicPath, nil).Code)
	assert.Equal(t, http.StatusOK, owner.do(http.MethodGet, publicPath, nil).Code)
}
