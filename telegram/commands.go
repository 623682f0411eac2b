package telegram

import (
	"context"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"ENSWatch/internal/app"
)

// CommandHandler answers chat commands in the configured chat.
type CommandHandler struct {
	Service *app.Service
	Sender  Sender
	ChatID  int64
	Logger  *zap.Logger
	// Timeout bounds one command, including a pending confirmation.
	Timeout time.Duration
}

func NewCommandHandler(service *app.Service, sender Sender, chatID int64, logger *zap.Logger) *CommandHandler {
	if sender == nil {
		sender = DefaultSender()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommandHandler{
		Service: service,
		Sender:  sender,
		ChatID:  chatID,
		Logger:  logger.Named("commands"),
		Timeout: 10 * time.Minute,
	}
}

func (h *CommandHandler) HandleMessage(msg *tgbotapi.Message) {
	if msg == nil {
		return
	}
	if h.ChatID != 0 && msg.Chat != nil && msg.Chat.ID != h.ChatID {
		return
	}
	if !msg.IsCommand() {
		return
	}
	args := strings.Fields(msg.CommandArguments())
	operator := formatOperator(msg.From)

	var run func(ctx context.Context)
	switch strings.ToLower(msg.Command()) {
	case "watch":
		run = func(ctx context.Context) { h.handleWatchCommand(ctx, operator, args) }
	case "list":
		run = h.handleListCommand
	case "check":
		run = h.handleCheckCommand
	case "refresh":
		run = h.handleRefreshCommand
	case "lookup":
		run = func(ctx context.Context) { h.handleLookupCommand(ctx, args) }
	case "start", "help":
		run = func(ctx context.Context) { h.sendText(ctx, helpText) }
	default:
		return
	}
	h.Logger.Info("command received", zap.String("command", msg.Command()), zap.String("operator", operator))

	// confirmations arrive on the same update loop, so commands never run inline
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.Timeout)
		defer cancel()
		run(ctx)
	}()
}
