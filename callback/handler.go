package callback

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"ENSWatch/telegram"
)

// Resolver hands a confirmation answer to whoever is waiting on token.
type Resolver interface {
	Resolve(token string, approved bool) bool
}

// Handler routes inline-button callbacks.
// callbackData format: action|token|answer
type Handler struct {
	Prompts Resolver
	Sender  telegram.Sender
	Logger  *zap.Logger
}

func NewHandler(prompts Resolver, sender telegram.Sender, logger *zap.Logger) *Handler {
	if sender == nil {
		sender = telegram.DefaultSender()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Prompts: prompts, Sender: sender, Logger: logger.Named("callback")}
}

// HandleCallback matches the listener's callback signature.
func (h *Handler) HandleCallback(data string, user *tgbotapi.User) {
	action, _, _ := strings.Cut(data, "|")
	switch action {
	case "noop", "":
		return
	case telegram.ConfirmAction:
		h.handleConfirm(data, user)
	default:
		h.Logger.Warn("unknown callback", zap.String("data", data))
	}
}

func (h *Handler) handleConfirm(data string, user *tgbotapi.User) {
	token, approved, ok := telegram.ParseConfirmCallback(data)
	if !ok {
		h.Logger.Warn("invalid confirm callback", zap.String("data", data))
		return
	}
	userName := ""
	if user != nil {
		userName = user.UserName
	}
	if !h.Prompts.Resolve(token, approved) {
		h.Logger.Info("confirmation no longer pending", zap.String("token", token), zap.String("user", userName))
		go h.reply("this confirmation has expired")
		return
	}
	h.Logger.Info("confirmation answered",
		zap.String("token", token),
		zap.Bool("approved", approved),
		zap.String("user", userName))
}

func (h *Handler) reply(msg string) {
	if err := h.Sender.Send(context.Background(), msg); err != nil {
		h.Logger.Warn("callback reply failed", zap.Error(err))
	}
}
