// Package notify delivers alert notifications to subscribed users.
package notify

import (
	"context"
	"strings"
	"sync"

	"github.com/apex/log"

	"github.com/quakepredictec/riesgo-dashboard/internal/models"
)

// Notifier sends one notification
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// LogNotifier simulates the alert e-mail by logging it
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, n models.Notification) error {
	log.WithFields(log.Fields{
		"id":          n.ID,
		"to":          n.To,
		"user":        n.User,
		"location":    n.Location,
		"risk_level":  n.RiskLevel,
		"probability": n.Probability,
	}).Info("simulated alert e-mail sent")
	return nil
}

// Outbox keeps notifications in memory, newest last. A positive limit
// keeps only the most recent limit entries.
type Outbox struct {
	mu    sync.Mutex
	limit int
	sent  []models.Notification
}

// NewOutbox returns an Outbox holding at most limit notifications
func NewOutbox(limit int) *Outbox {
	return &Outbox{limit: limit}
}

func (o *Outbox) Notify(ctx context.Context, n models.Notification) error {
	o.mu.Lock()
	o.sent = append(o.sent, n)
	if o.limit > 0 && len(o.sent) > o.limit {
		o.sent = append(o.sent[:0:0], o.sent[len(o.sent)-o.limit:]...)
	}
	o.mu.Unlock()
	return nil
}

// Sent returns a copy of the delivered notifications
func (o *Outbox) Sent() []models.Notification {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]models.Notification(nil), o.sent...)
}

// ForUser returns the notifications delivered to user, newest last
func (o *Outbox) ForUser(user string) []models.Notification {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := []models.Notification{}
	for _, n := range o.sent {
		if n.User == user {
			out = append(out, n)
		}
	}
	return out
}

// Multi fans a notification out to several notifiers, returning the first error
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n models.Notification) error {
	var first error
	for _, nt := range m {
		if err := nt.Notify(ctx, n); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// BaseLocation strips a trailing "(...)" qualifier, so "Quito (Pichincha)"
// matches a subscription to "Quito".
func BaseLocation(name string) string {
	name = strings.TrimSpace(name)
	if strings.HasSuffix(name, ")") {
		if i := strings.LastIndex(name, "("); i > 0 {
			name = strings.TrimSpace(name[:i])
		}
	}
	return name
}
