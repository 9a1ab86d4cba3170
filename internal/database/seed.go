package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// Seed populates the database with initial development data.
// It creates a default planner account and one sample preset if no users
// exist. The account will be prompted to set up 2FA on first login.
func Seed(db *sql.DB) error {
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("planner"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	var userID string
	err = db.QueryRow(`
		INSERT INTO users (email, password_hash, display_name, totp_enabled)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, "planner@wanderplan.local", string(hash), "Planner", false).Scan(&userID)
	if err != nil {
		return fmt.Errorf("seed insert user: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO presets (owner_id, name, payload, is_public)
		VALUES ($1, $2, $3, $4)
	`, userID, "Kandy weekend", []byte(samplePayload), true)
	if err != nil {
		return fmt.Errorf("seed insert preset: %w", err)
	}

	slog.Info("database seeded with default planner user",
		"email", "planner@wanderplan.local",
		"password", "planner",
	)

	return nil
}

const samplePayload = `{
  "destinations": ["Kandy"],
  "days": 2,
  "preferences": {"pace": "relaxed"},
  "plan": [
    {
      "day": 1,
      "title": "Arrival",
      "notes": "Check in early.\n\n- Bring a light jacket\n- Cash for tuk-tuks",
      "activities": [
        {"time": "09:00", "title": "Temple of the Tooth", "location": "Kandy", "description": "Morning puja"}
      ]
    },
    {
      "day": 2,
      "title": "Gardens",
      "activities": [
        {"time": "10:00", "title": "Peradeniya Botanical Gardens", "location": "Peradeniya"}
      ]
    }
  ],
  "notes": "Trains to Ella book out fast."
}`
