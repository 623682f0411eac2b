package telegram

import (
	"context"

	"go.uber.org/zap"
)

var defaultSender Sender = NoopSender{}

type Button struct {
	Text         string
	CallbackData string
}

func SetDefaultSender(sender Sender) {
	if sender != nil {
		defaultSender = sender
	}
}

func DefaultSender() Sender {
	return defaultSender
}

// SendAlert sends msg through the default sender and logs a failure.
func SendAlert(ctx context.Context, msg string) {
	if err := defaultSender.Send(ctx, msg); err != nil {
		zap.L().Warn("telegram alert failed", zap.Error(err))
	}
}
