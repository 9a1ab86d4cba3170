// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"wanderplan/internal/models"
)

var presetRowColumns = []string{"id", "owner_id", "name", "payload", "is_public", "created_at", "updated_at"}

func TestPresetStoreCreate_Mock(t *testing.T) {
	db, mock := newMockDB(t)
	s := NewPresetStore(db)

	id, owner := uuid.New(), uuid.New()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	payload := `{"destinations":["Kandy"],"days":1}`

	mock.ExpectQuery(`(?s)INSERT INTO presets \(owner_id, name, payload, is_public\).*RETURNING id, owner_id`).
		WithArgs(owner.String(), "Hill country", []byte(payload), false).
		WillReturnRows(sqlmock.NewRows(presetRowColumns).
			AddRow(id.String(), owner.String(), "Hill country", []byte(payload), false, now, now))

	got, err := s.Create(context.Background(), &models.Preset{
		OwnerID: owner, Name: "Hill country", Payload: json.RawMessage(payload),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.ID != id || got.OwnerID != owner {
		t.Errorf("ids: got %s/%s", got.ID, got.OwnerID)
	}
	if string(got.Payload) != payload {
		t.Errorf("payload: got %s", got.Payload)
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("created_at: got %v", got.CreatedAt)
	}
}

func TestPresetStoreUpdate_Mock(t *testing.T) {
	id, owner := uuid.New(), uuid.New()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	fields := models.PresetFields{Name: "B", Payload: json.RawMessage(`{}`), IsPublic: true}
	const updateQ = `(?s)UPDATE presets SET.*WHERE id = \$4 AND owner_id = \$5`
	const existsQ = `SELECT EXISTS \(SELECT 1 FROM presets WHERE id = \$1\)`

	t.Run("success", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(updateQ).
			WithArgs("B", []byte(`{}`), true, id.String(), owner.String()).
			WillReturnRows(sqlmock.NewRows(presetRowColumns).
				AddRow(id.String(), owner.String(), "B", []byte(`{}`), true, now, now))

		got, err := NewPresetStore(db).Update(context.Background(), id, owner, fields)
		if err != nil {
			t.Fatalf("Update: %v", err)
		}
		if got.Name != "B" || !got.IsPublic {
			t.Errorf("unexpected preset: %+v", got)
		}
	})

	t.Run("other owner", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(updateQ).WillReturnRows(sqlmock.NewRows(presetRowColumns))
		mock.ExpectQuery(existsQ).WithArgs(id.String()).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := NewPresetStore(db).Update(context.Background(), id, owner, fields)
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectQuery(updateQ).WillReturnRows(sqlmock.NewRows(presetRowColumns))
		mock.ExpectQuery(existsQ).WithArgs(id.String()).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := NewPresetStore(db).Update(context.Background(), id, owner, fields)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestPresetStoreFindByID_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT .* FROM presets WHERE id = \$1`).
		WithArgs(id.String()).
		WillReturnRows(sqlmock.NewRows(presetRowColumns))

	got, err := NewPresetStore(db).FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestPresetStoreDelete_Mock(t *testing.T) {
	id, owner := uuid.New(), uuid.New()
	const lockQ = `SELECT owner_id FROM presets WHERE id = \$1 FOR UPDATE`
	const revokeQ = `(?s)UPDATE share_tokens SET revoked = TRUE.*WHERE preset_id = \$1 AND NOT revoked`
	const deleteQ = `DELETE FROM presets WHERE id = \$1`

	t.Run("revokes tokens then deletes", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lockQ).WithArgs(id.String()).
			WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow(owner.String()))
		mock.ExpectExec(revokeQ).WithArgs(id.String()).WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectExec(deleteQ).WithArgs(id.String()).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		if err := NewPresetStore(db).Delete(context.Background(), id, owner); err != nil {
			t.Fatalf("Delete: %v", err)
		}
	})

	t.Run("other owner", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lockQ).WithArgs(id.String()).
			WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow(uuid.New().String()))
		mock.ExpectRollback()

		err := NewPresetStore(db).Delete(context.Background(), id, owner)
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("expected ErrForbidden, got %v", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lockQ).WithArgs(id.String()).
			WillReturnRows(sqlmock.NewRows([]string{"owner_id"}))
		mock.ExpectRollback()

		err := NewPresetStore(db).Delete(context.Background(), id, owner)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("revoke failure rolls back", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectQuery(lockQ).WithArgs(id.String()).
			WillReturnRows(sqlmock.NewRows([]string{"owner_id"}).AddRow(owner.String()))
		mock.ExpectExec(revokeQ).WithArgs(id.String()).WillReturnError(errors.New("db down"))
		mock.ExpectRollback()

		if err := NewPresetStore(db).Delete(context.Background(), id, owner); err == nil {
			t.Error("expected error")
		}
	})
}

func TestPresetStoreLifecycle(t *testing.T) {
	db := testDB(t)
	users := NewUserStore(db)
	presets := NewPresetStore(db)
	tokens := NewShareTokenStore(db)
	ctx := context.Background()

	email := "test-preset-lifecycle@store-test.local"
	t.Cleanup(func() { cleanUsers(t, db, email) })

	owner, err := users.Create(ctx, email, "pass", "Planner")
	if err != nil {
		t.Fatalf("Create user: %v", err)
	}

	p, err := presets.Create(ctx, &models.Preset{
		OwnerID: owner.ID,
		Name:    "Kandy",
		Payload: json.RawMessage(`{"destinations":["Kandy"],"days":2}`),
	})
	if err != nil {
		t.Fatalf("Create preset: %v", err)
	}
	t.Cleanup(func() { cleanShareTokens(t, db, p.ID.String()) })

	updated, err := presets.Update(ctx, p.ID, owner.ID, models.PresetFields{
		Name: "Kandy v2", Payload: p.Payload, IsPublic: true,
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.UpdatedAt.Before(p.UpdatedAt) {
		t.Error("updated_at went backwards")
	}

	if _, err := presets.Update(ctx, p.ID, uuid.New(), models.PresetFields{Name: "x", Payload: p.Payload}); !errors.Is(err, ErrForbidden) {
		t.Errorf("Update by stranger: expected ErrForbidden, got %v", err)
	}

	list, err := presets.FindByOwner(ctx, owner.ID)
	if err != nil {
		t.Fatalf("FindByOwner: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Kandy v2" {
		t.Errorf("FindByOwner: got %+v", list)
	}

	tok := &models.ShareToken{Token: "lifecycle-" + p.ID.String(), PresetID: p.ID}
	if err := tokens.Insert(ctx, tok); err != nil {
		t.Fatalf("Insert token: %v", err)
	}

	if err := presets.Delete(ctx, p.ID, owner.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	gone, _ := presets.FindByID(ctx, p.ID)
	if gone != nil {
		t.Error("expected preset to be gone")
	}

	stored, _ := tokens.FindByToken(ctx, tok.Token)
	if stored == nil || !stored.Revoked {
		t.Errorf("expected token revoked on delete, got %+v", stored)
	}

	if err := tokens.Insert(ctx, &models.ShareToken{Token: "late-" + p.ID.String(), PresetID: p.ID}); !errors.Is(err, ErrNotFound) {
		t.Errorf("Insert after delete: expected ErrNotFound, got %v", err)
	}
}
