package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Inventory reports aggregate record counts for the metrics collector.
type Inventory struct {
	db *sql.DB
}

// NewInventory creates a new Inventory with the given database connection.
func NewInventory(db *sql.DB) *Inventory {
	return &Inventory{db: db}
}

// CountPresets returns the number of stored presets.
func (s *Inventory) CountPresets(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM presets`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count presets: %w", err)
	}
	return n, nil
}

// CountShareTokens returns the number of live and revoked tokens. Expired
// tokens that were never revoked count as live.
func (s *Inventory) CountShareTokens(ctx context.Context) (live, revoked int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE NOT revoked), COUNT(*) FILTER (WHERE revoked)
		FROM share_tokens
	`).Scan(&live, &revoked)
	if err != nil {
		return 0, 0, fmt.Errorf("count share tokens: %w", err)
	}
	return live, revoked, nil
}

// CountPresets returns the number of stored presets.
func (m *Memory) CountPresets(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.presets), nil
}

// CountShareTokens returns the number of live and revoked tokens.
func (m *Memory) CountShareTokens(_ context.Context) (live, revoked int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.Revoked {
			revoked++
		} else {
			live++
		}
	}
	return live, revoked, nil
}
