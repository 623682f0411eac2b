package telegram

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// Sender is the Telegram transport used by the prompter, notifier and commands.
type Sender interface {
	Send(ctx context.Context, msg string) error
	SendWithButtons(ctx context.Context, msg string, buttons [][]Button) error
	StartListener(ctx context.Context, handleCallback func(data string, user *tgbotapi.User), handleMessage func(msg *tgbotapi.Message)) error
}

type NoopSender struct{}

func (NoopSender) Send(ctx context.Context, msg string) error { return nil }
func (NoopSender) SendWithButtons(ctx context.Context, msg string, buttons [][]Button) error {
	return nil
}
func (NoopSender) StartListener(ctx context.Context, handleCallback func(data string, user *tgbotapi.User), handleMessage func(msg *tgbotapi.Message)) error {
	<-ctx.Done()
	return nil
}

// BotSender sends to one chat. Each attempt waits for the rate ticker, runs
// under the per-send timeout and is retried up to retryTimes with a growing pause.
type BotSender struct {
	bot        *tgbotapi.BotAPI
	chatID     int64
	retryTimes int
	rate       *time.Ticker
	timeout    time.Duration
	logger     *zap.Logger
	// send performs one API call; bot.Send in production.
	send func(c tgbotapi.Chattable) error
}

func NewBotSender(token string, chatID int64, retryTimes int, rateInterval time.Duration, timeout time.Duration, logger *zap.Logger) (*BotSender, error) {
	if token == "" {
		return nil, errors.New("telegram token is empty")
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	sender := newBotSender(chatID, retryTimes, rateInterval, timeout, logger, func(c tgbotapi.Chattable) error {
		_, err := bot.Send(c)
		return err
	})
	sender.bot = bot
	SetDefaultSender(sender)
	return sender, nil
}

func newBotSender(chatID int64, retryTimes int, rateInterval, timeout time.Duration, logger *zap.Logger, send func(tgbotapi.Chattable) error) *BotSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BotSender{
		chatID:     chatID,
		retryTimes: retryTimes,
		rate:       time.NewTicker(rateInterval),
		timeout:    timeout,
		logger:     logger.Named("telegram"),
		send:       send,
	}
}

// messageLimit stays below Telegram's 4096 character cap to leave room for the part prefix.
const messageLimit = 3800

func (s *BotSender) Send(ctx context.Context, msg string) error {
	parts := splitMessage(msg, messageLimit)
	for i, p := range parts {
		if len(parts) > 1 {
			p = fmt.Sprintf("(%d/%d)\n%s", i+1, len(parts), p)
		}
		if err := s.deliver(ctx, tgbotapi.NewMessage(s.chatID, p)); err != nil {
			return err
		}
	}
	return nil
}

func (s *BotSender) SendWithButtons(ctx context.Context, msg string, buttons [][]Button) error {
	message := tgbotapi.NewMessage(s.chatID, msg)
	message.ReplyMarkup = inlineKeyboard(buttons)
	return s.deliver(ctx, message)
}

func inlineKeyboard(buttons [][]Button) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(buttons))
	for _, r := range buttons {
		row := make([]tgbotapi.InlineKeyboardButton, 0, len(r))
		for _, b := range r {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.CallbackData))
		}
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// splitMessage cuts msg into parts of at most limit bytes, preferring a line
// break, then a space. A hard cut never splits a UTF-8 sequence.
func splitMessage(msg string, limit int) []string {
	msg = strings.TrimSpace(msg)
	if len(msg) <= limit {
		return []string{msg}
	}

	var out []string
	for len(msg) > limit {
		cut := strings.LastIndex(msg[:limit], "\n")
		if cut < limit/3 {
			cut = strings.LastIndex(msg[:limit], " ")
		}
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8.RuneStart(msg[cut]) {
				cut--
			}
		}
		if part := strings.TrimSpace(msg[:cut]); part != "" {
			out = append(out, part)
		}
		msg = strings.TrimSpace(msg[cut:])
	}
	if msg != "" {
		out = append(out, msg)
	}
	return out
}

func (s *BotSender) deliver(ctx context.Context, c tgbotapi.Chattable) error {
	var lastErr error
	for attempt := 0; attempt <= s.retryTimes; attempt++ {
		if attempt > 0 {
			pause := time.NewTimer(time.Duration(attempt) * 200 * time.Millisecond)
			select {
			case <-ctx.Done():
				pause.Stop()
				return ctx.Err()
			case <-pause.C:
			}
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.rate.C:
		}

		lastErr = s.attempt(ctx, c)
		if lastErr == nil {
			sendsTotal.WithLabelValues("ok").Inc()
			return nil
		}
		if ctx.Err() != nil {
			break
		}
		if attempt < s.retryTimes {
			sendsTotal.WithLabelValues("retry").Inc()
			s.logger.Warn("telegram send failed, retrying",
				zap.Int("attempt", attempt+1),
				zap.Int("retries", s.retryTimes),
				zap.Error(lastErr))
		}
	}
	sendsTotal.WithLabelValues("failed").Inc()
	s.logger.Error("telegram send gave up", zap.Int64("chatID", s.chatID), zap.Error(lastErr))
	return fmt.Errorf("telegram send failed: %w", lastErr)
}

func (s *BotSender) attempt(ctx context.Context, c tgbotapi.Chattable) error {
	sendCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	result := make(chan error, 1)
	go func() { result <- s.send(c) }()

	select {
	case <-sendCtx.Done():
		return sendCtx.Err()
	case err := <-result:
		return err
	}
}

func (s *BotSender) StartListener(ctx context.Context, handleCallback func(data string, user *tgbotapi.User), handleMessage func(msg *tgbotapi.Message)) error {
	if s.bot == nil {
		return errors.New("telegram bot is not connected")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := s.bot.GetUpdatesChan(u)
	s.logger.Info("listening for telegram updates", zap.Int64("chatID", s.chatID))
	for {
		select {
		case <-ctx.Done():
			s.bot.StopReceivingUpdates()
			return ctx.Err()
		case up, ok := <-updates:
			if !ok {
				return errors.New("telegram update channel closed")
			}
			if up.CallbackQuery != nil && handleCallback != nil {
				handleCallback(up.CallbackQuery.Data, up.CallbackQuery.From)
				if _, err := s.bot.Request(tgbotapi.NewCallback(up.CallbackQuery.ID, "received")); err != nil {
					s.logger.Debug("callback ack failed", zap.Error(err))
				}
			}
			if up.Message != nil && handleMessage != nil {
				handleMessage(up.Message)
			}
		}
	}
}
