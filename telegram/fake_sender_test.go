package telegram

import (
	"context"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type fakeSender struct {
	mu       sync.Mutex
	messages []string
	buttons  []string
	// onButtons runs after a button message is recorded.
	onButtons func(callbacks []string)
}

func (f *fakeSender) Send(ctx context.Context, msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeSender) SendWithButtons(ctx context.Context, msg string, buttons [][]Button) error {
	f.mu.Lock()
	f.messages = append(f.messages, msg)
	var callbacks []string
	for _, row := range buttons {
		for _, b := range row {
			callbacks = append(callbacks, b.CallbackData)
		}
	}
	f.buttons = append(f.buttons, callbacks...)
	hook := f.onButtons
	f.mu.Unlock()

	if hook != nil {
		hook(callbacks)
	}
	return nil
}

func (f *fakeSender) StartListener(ctx context.Context, handleCallback func(data string, user *tgbotapi.User), handleMessage func(msg *tgbotapi.Message)) error {
	<-ctx.Done()
	return nil
}

func (f *fakeSender) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}
