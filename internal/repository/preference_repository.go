package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/quakepredictec/riesgo-dashboard/internal/models"
)

// ErrNotFound is returned when a key has no stored value
var ErrNotFound = errors.New("not found")

// PreferenceRepository handles the client_state key/value table
type PreferenceRepository struct {
	db *sql.DB
}

// NewPreferenceRepository creates a new preference repository
func NewPreferenceRepository(db *sql.DB) *PreferenceRepository {
	return &PreferenceRepository{db: db}
}

// Get retrieves a preference by key
func (r *PreferenceRepository) Get(key string) (*models.Preference, error) {
	var (
		pref    models.Preference
		updated int64
	)
	err := r.db.QueryRow("SELECT key, value, updated_at FROM client_state WHERE key = ?", key).
		Scan(&pref.Key, &pref.Value, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get preference %s: %w", key, err)
	}
	pref.UpdatedAt = time.Unix(updated, 0).UTC()
	return &pref, nil
}

// Set stores a preference, replacing any previous value
func (r *PreferenceRepository) Set(key, value string) error {
	_, err := r.db.Exec(`INSERT INTO client_state (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to set preference %s: %w", key, err)
	}
	return nil
}
