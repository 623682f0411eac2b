package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ENSWatch/domain"
)

type NotifierService struct {
	Notifier Notifier
	Location *time.Location
	Logger   *zap.Logger
}

// Notify sends one expiry notice per label. Delivery failures are logged and
// counted; the labels that were sent are returned.
func (n *NotifierService) Notify(ctx context.Context, w *domain.Watchlist, labels []string) ([]string, error) {
	if n.Notifier == nil {
		return nil, ErrMissingDependencies
	}
	logger := n.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var sent []string
	for _, label := range labels {
		rec, ok := w.Get(label)
		if !ok {
			continue
		}
		msg := NotificationTextIn(label, rec.ExpirationDate, n.Location)
		if err := n.Notifier.Notify(ctx, msg); err != nil {
			logger.Warn("notify failed", zap.String("label", label), zap.Error(err))
			notificationsTotal.WithLabelValues("error").Inc()
			continue
		}
		notificationsTotal.WithLabelValues("sent").Inc()
		sent = append(sent, label)
	}
	return sent, nil
}
