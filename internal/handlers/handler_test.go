// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// handler_test.go provides shared test infrastructure for handler tests.
// The planner runs on the in-memory store and the real PDF renderer, so
// none of these tests need PostgreSQL or Valkey.
package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"wanderplan/internal/export"
	"wanderplan/internal/middleware"
	"wanderplan/internal/planner"
	"wanderplan/internal/session"
	"wanderplan/internal/share"
	"wanderplan/internal/store"
)

const testBaseURL = "https://wanderplan.test"

// testEnv holds the handler groups wired to one in-memory planner.
type testEnv struct {
	Mem     *store.Memory
	Svc     *planner.Service
	Presets *Presets
	Shares  *Shares
	Exports *Exports
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, planner.Options{})
}

func newTestEnvWith(t *testing.T, opts planner.Options) *testEnv {
	t.Helper()
	mem := store.NewMemory()
	svc := planner.New(mem, share.NewService(mem), export.NewRenderer(), opts)
	return &testEnv{
		Mem:     mem,
		Svc:     svc,
		Presets: NewPresets(svc),
		Shares:  NewShares(svc, testBaseURL),
		Exports: NewExports(svc),
	}
}

// testSession creates a fully signed-in session for a fresh user.
func testSession() *session.Data {
	return &session.Data{
		UserID:      uuid.New(),
		Email:       "traveller@wanderplan.test",
		DisplayName: "Traveller",
	}
}

// newRequest builds a request with an optional JSON body, session and chi
// URL parameters given as key/value pairs.
func newRequest(t *testing.T, method, target string, body any, sess *session.Data, params ...string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	r := httptest.NewRequest(method, target, &buf)
	if body != nil {
		r.Header.Set("Content-Type", "application/json")
	}

	ctx := r.Context()
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for i := 0; i+1 < len(params); i += 2 {
			rctx.URLParams.Add(params[i], params[i+1])
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	if sess != nil {
		ctx = middleware.WithSession(ctx, sess)
	}
	return r.WithContext(ctx)
}

// decodeBody decodes a JSON response body into v.
func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// savePreset stores a preset through the service for the given owner.
func (env *testEnv) savePreset(t *testing.T, owner uuid.UUID, name, payload string, public bool) uuid.UUID {
	t.Helper()
	p, err := env.Svc.Save(context.Background(), owner, planner.SaveInput{
		Name:     name,
		Payload:  json.RawMessage(payload),
		IsPublic: public,
	})
	if err != nil {
		t.Fatalf("save preset: %v", err)
	}
	return p.ID
}
