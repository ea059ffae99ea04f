package database

import (
	"database/sql"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

// Seed populates the database with initial development data.
// It creates a default admin user if none exists. The admin will be
// prompted to set up 2FA on first login (totp_enabled = false).
func Seed(db *sql.DB) error {
	// Check if any users exist already.
	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}

	if count > 0 {
		slog.Info("database already seeded, skipping")
		return nil
	}

	// Hash the default admin password.
	hash, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("seed bcrypt: %w", err)
	}

	// Insert default admin user. 2FA is not enabled — they must set it up
	// on first login.
	var adminID string
	err = db.QueryRow(`
		INSERT INTO users (email, password_hash, display_name, role, totp_enabled)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, "admin@fahndung.local", string(hash), "Admin", "admin", false).Scan(&adminID)
	if err != nil {
		return fmt.Errorf("seed insert admin: %w", err)
	}

	// One draft notice so the admin UI has something to show in development.
	_, err = db.Exec(`
		INSERT INTO notices (title, slug, case_number, category, status, priority, summary, station, location, contact_info, author_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		"Vermisste Person aus Stuttgart-Mitte",
		"vermisste-person-aus-stuttgart-mitte",
		"VP-2024-0001",
		"missing_person",
		"draft",
		"normal",
		"Seit dem Wochenende vermisst; Hinweise bitte an die angegebene Dienststelle.",
		"Polizeipräsidium Stuttgart",
		"Stuttgart-Mitte",
		"Hinweistelefon 0711 8990-0",
		adminID,
	)
	if err != nil {
		return fmt.Errorf("seed insert notice: %w", err)
	}

	slog.Info("database seeded with default admin user",
		"email", "admin@fahndung.local",
		"password", "admin",
	)

	return nil
}
