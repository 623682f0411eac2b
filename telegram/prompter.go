package telegram

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"ENSWatch/internal/app"
)

const (
	ConfirmAction = "confirm"
	answerYes     = "yes"
	answerNo      = "no"
)

// Prompter asks for confirmation with inline Yes/No buttons and waits for
// the matching callback. An unanswered prompt counts as declined once
// Timeout passes.
type Prompter struct {
	Sender  Sender
	Timeout time.Duration
	Logger  *zap.Logger

	mu      sync.Mutex
	pending map[string]chan bool
}

func NewPrompter(sender Sender, timeout time.Duration, logger *zap.Logger) *Prompter {
	if sender == nil {
		sender = DefaultSender()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Prompter{
		Sender:  sender,
		Timeout: timeout,
		Logger:  logger.Named("prompter"),
		pending: make(map[string]chan bool),
	}
}

func (p *Prompter) Confirm(ctx context.Context, msg app.PromptMessage) (bool, error) {
	token := newToken()
	answer := make(chan bool, 1)
	p.mu.Lock()
	p.pending[token] = answer
	p.mu.Unlock()
	defer p.forget(token)

	text := fmt.Sprintf("%s\n%s\n\n%s", msg.Prompt, msg.Description, msg.TextAreaContent)
	buttons := [][]Button{{
		{Text: "Yes", CallbackData: callbackData(token, answerYes)},
		{Text: "No", CallbackData: callbackData(token, answerNo)},
	}}
	if err := p.Sender.SendWithButtons(ctx, text, buttons); err != nil {
		return false, err
	}

	var timeout <-chan time.Time
	if p.Timeout > 0 {
		timer := time.NewTimer(p.Timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case ok := <-answer:
		return ok, nil
	case <-timeout:
		p.Logger.Info("confirmation timed out", zap.String("prompt", msg.Prompt), zap.String("description", msg.Description))
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// Resolve delivers the answer for token. It reports false for unknown or
// already answered tokens.
func (p *Prompter) Resolve(token string, approved bool) bool {
	p.mu.Lock()
	answer, ok := p.pending[token]
	if ok {
		delete(p.pending, token)
	}
	p.mu.Unlock()
	if !ok {
		return false
	}
	answer <- approved
	return true
}

// Pending returns the number of prompts still waiting for an answer.
func (p *Prompter) Pending() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pending)
}

func (p *Prompter) forget(token string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.pending, token)
}

func callbackData(token, answer string) string {
	return strings.Join([]string{ConfirmAction, token, answer}, "|")
}

// ParseConfirmCallback splits "confirm|<token>|yes|no" callback data.
func ParseConfirmCallback(data string) (token string, approved bool, ok bool) {
	parts := strings.Split(data, "|")
	if len(parts) != 3 || parts[0] != ConfirmAction || parts[1] == "" {
		return "", false, false
	}
	switch parts[2] {
	case answerYes:
		return parts[1], true, true
	case answerNo:
		return parts[1], false, true
	}
	return "", false, false
}

func newToken() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%x", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

// Notifier sends notifications as plain chat messages.
type Notifier struct {
	Sender Sender
}

func (n Notifier) Notify(ctx context.Context, message string) error {
	sender := n.Sender
	if sender == nil {
		sender = DefaultSender()
	}
	return sender.Send(ctx, message)
}
