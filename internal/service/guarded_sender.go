package service

import (
	"context"

	"github.com/kosha-finance/internal/circuitbreaker"
	"github.com/kosha-finance/internal/models"
)

// GuardedSender wraps a NotificationSender with one circuit breaker per
// delivery channel, so a failing push gateway cannot drag down email
// delivery. Breaker rejections surface as send errors and the
// notification is marked FAILED like any other delivery failure.
type GuardedSender struct {
	inner    NotificationSender
	breakers *circuitbreaker.Manager
}

// NewGuardedSender wraps sender with per-channel circuit breakers.
func NewGuardedSender(sender NotificationSender) *GuardedSender {
	return &GuardedSender{
		inner:    sender,
		breakers: circuitbreaker.NewManager(),
	}
}

func (g *GuardedSender) Send(ctx context.Context, n *models.Notification) error {
	cb := g.breakers.GetOrCreate(n.Channel, nil)
	return cb.Execute(ctx, func() error {
		return g.inner.Send(ctx, n)
	})
}

// Stats exposes per-channel breaker state
func (g *GuardedSender) Stats() map[string]*circuitbreaker.Stats {
	return g.breakers.GetAllStats()
}
