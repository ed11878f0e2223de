package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/quakepredictec/riesgo-dashboard/internal/database"
	"github.com/quakepredictec/riesgo-dashboard/internal/models"
)

// SubscriptionRepository handles subscribed locations and subscriber contacts
type SubscriptionRepository struct {
	db *sql.DB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *sql.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// ListByUser returns the user's subscriptions ordered by location
func (r *SubscriptionRepository) ListByUser(user string) ([]models.Subscription, error) {
	rows, err := r.db.Query(`SELECT user, location, created_at FROM subscriptions
		WHERE user = ? ORDER BY location`, user)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscriptions: %w", err)
	}
	defer rows.Close()

	subs := []models.Subscription{}
	for rows.Next() {
		var (
			s       models.Subscription
			created int64
		)
		if err := rows.Scan(&s.User, &s.Location, &created); err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		s.CreatedAt = time.Unix(created, 0).UTC()
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// Replace swaps the user's subscriptions for locations and records the
// user's contact address
func (r *SubscriptionRepository) Replace(ctx context.Context, user models.User, locations []string) error {
	now := time.Now().Unix()
	return database.Transaction(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO users (usuario, correo) VALUES (?, ?)
			ON CONFLICT(usuario) DO UPDATE SET correo = excluded.correo`, user.Usuario, user.Correo); err != nil {
			return fmt.Errorf("failed to upsert user: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM subscriptions WHERE user = ?", user.Usuario); err != nil {
			return fmt.Errorf("failed to clear subscriptions: %w", err)
		}
		for _, loc := range locations {
			if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO subscriptions (user, location, created_at)
				VALUES (?, ?, ?)`, user.Usuario, loc, now); err != nil {
				return fmt.Errorf("failed to insert subscription %s: %w", loc, err)
			}
		}
		return nil
	})
}

// SubscribersOf returns the users subscribed to location, compared
// case-insensitively
func (r *SubscriptionRepository) SubscribersOf(location string) ([]models.User, error) {
	rows, err := r.db.Query(`SELECT s.user, COALESCE(u.correo, '') FROM subscriptions s
		LEFT JOIN users u ON u.usuario = s.user
		WHERE s.location = ? COLLATE NOCASE ORDER BY s.user`, location)
	if err != nil {
		return nil, fmt.Errorf("failed to query subscribers: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.Usuario, &u.Correo); err != nil {
			return nil, fmt.Errorf("failed to scan subscriber: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}
