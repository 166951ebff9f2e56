package service

import (
	"context"

	"github.com/kosha-finance/internal/logging"
	"github.com/kosha-finance/internal/models"
)

// LogSender writes deliveries to the log. It stands in for a real
// email or push gateway until one is wired up.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, n *models.Notification) error {
	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"notification_id": n.ID,
		"user_id":         n.UserID,
		"channel":         n.Channel,
		"title":           n.Title,
	}).Info("delivering notification")
	return nil
}
