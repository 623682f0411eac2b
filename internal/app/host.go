package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"go.uber.org/zap"

	"ENSWatch/domain"
)

// LabelResolver returns the current registrar record of a normalised label.
type LabelResolver interface {
	ResolveLabel(ctx context.Context, label string) (domain.Record, error)
}

// PromptMessage is a yes/no question put to the user.
type PromptMessage struct {
	Prompt          string `json:"prompt"`
	Description     string `json:"description"`
	TextAreaContent string `json:"textAreaContent"`
}

// Prompter asks the user to approve an action. A decline is (false, nil).
type Prompter interface {
	Confirm(ctx context.Context, msg PromptMessage) (bool, error)
}

// Notifier delivers a message to the user; no acknowledgement is expected.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Host bundles the capabilities the handlers need from their environment.
type Host struct {
	Resolver LabelResolver
	Storage  domain.Storage
	Prompter Prompter
	Notifier Notifier
}

func (h Host) validate() error {
	if h.Resolver == nil || h.Storage == nil || h.Prompter == nil || h.Notifier == nil {
		return ErrMissingDependencies
	}
	return nil
}

// AutoPrompter answers every prompt with Approve.
type AutoPrompter struct {
	Approve bool
}

func (p AutoPrompter) Confirm(ctx context.Context, msg PromptMessage) (bool, error) {
	return p.Approve, nil
}

// TerminalPrompter asks on Out and reads a y/n answer from In. A single
// reader goroutine owns In; prompts are answered one at a time, and a prompt
// abandoned by its context leaves the next line for the next prompt.
type TerminalPrompter struct {
	In  io.Reader
	Out io.Writer

	once  sync.Once
	mu    sync.Mutex
	lines chan terminalLine
}

type terminalLine struct {
	text string
	err  error
}

func (p *TerminalPrompter) Confirm(ctx context.Context, msg PromptMessage) (bool, error) {
	p.once.Do(p.startReader)

	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.Out, "%s\n%s\n%s [y/N]: ", msg.Prompt, msg.Description, msg.TextAreaContent)

	select {
	case <-ctx.Done():
		return false, ctx.Err()
	case line, ok := <-p.lines:
		if !ok {
			// input closed
			return false, nil
		}
		if line.err != nil && line.err != io.EOF {
			return false, fmt.Errorf("read answer: %w", line.err)
		}
		switch strings.ToLower(strings.TrimSpace(line.text)) {
		case "y", "yes":
			return true, nil
		}
		return false, nil
	}
}

func (p *TerminalPrompter) startReader() {
	p.lines = make(chan terminalLine)
	go func() {
		defer close(p.lines)
		reader := bufio.NewReader(p.In)
		for {
			text, err := reader.ReadString('\n')
			if err != nil {
				if text != "" || err != io.EOF {
					p.lines <- terminalLine{text: text, err: err}
				}
				return
			}
			p.lines <- terminalLine{text: text}
		}
	}()
}

// LogNotifier writes notifications to the log.
type LogNotifier struct {
	Logger *zap.Logger
}

func (n LogNotifier) Notify(ctx context.Context, message string) error {
	logger := n.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("notification", zap.String("message", message))
	return nil
}
