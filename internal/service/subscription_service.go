package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"

	"github.com/quakepredictec/riesgo-dashboard/internal/models"
	"github.com/quakepredictec/riesgo-dashboard/internal/notify"
	"github.com/quakepredictec/riesgo-dashboard/internal/repository"
)

// SubscriptionService manages alert subscriptions and notifies subscribers
// of new alerts
type SubscriptionService struct {
	repo     *repository.SubscriptionRepository
	notifier notify.Notifier
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(repo *repository.SubscriptionRepository, notifier notify.Notifier) *SubscriptionService {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &SubscriptionService{repo: repo, notifier: notifier}
}

// List returns the locations the user is subscribed to
func (s *SubscriptionService) List(user string) ([]models.Subscription, error) {
	return s.repo.ListByUser(user)
}

// Replace sets the user's subscribed locations. At least one is required.
func (s *SubscriptionService) Replace(ctx context.Context, user models.User, locations []string) ([]models.Subscription, error) {
	seen := make(map[string]struct{}, len(locations))
	var cleaned []string
	for _, loc := range locations {
		loc = notify.BaseLocation(loc)
		key := strings.ToLower(loc)
		if loc == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, loc)
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("%w: select at least one location", ErrValidation)
	}

	if err := s.repo.Replace(ctx, user, cleaned); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"user": user.Usuario, "locations": len(cleaned)}).Info("subscriptions updated")
	return s.repo.ListByUser(user.Usuario)
}

// NotifyNewAlerts sends one notification per subscriber of each new alert.
// It returns how many were sent.
func (s *SubscriptionService) NotifyNewAlerts(ctx context.Context, alerts []models.AlertEntry) (int, error) {
	sent := 0
	for _, a := range alerts {
		users, err := s.repo.SubscribersOf(notify.BaseLocation(a.LocationKey))
		if err != nil {
			return sent, err
		}
		for _, u := range users {
			n := models.Notification{
				ID:          uuid.NewString(),
				To:          u.Correo,
				User:        u.Usuario,
				Location:    a.LocationKey,
				RiskLevel:   a.RiskLevel,
				Probability: a.Probability,
				CreatedAt:   time.Now().UTC(),
			}
			if err := s.notifier.Notify(ctx, n); err != nil {
				log.WithError(err).WithField("user", u.Usuario).Warn("alert notification failed")
				continue
			}
			sent++
		}
	}
	return sent, nil
}
