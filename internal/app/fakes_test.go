package app

import (
	"context"
	"errors"
	"sync"

	"ENSWatch/domain"
)

type fakeResolver struct {
	mu      sync.Mutex
	records map[string]domain.Record
	errs    map[string]error
	calls   []string
	// hook runs after a label is resolved, before the result is returned.
	hook func(label string)
}

func (f *fakeResolver) ResolveLabel(ctx context.Context, label string) (domain.Record, error) {
	f.mu.Lock()
	f.calls = append(f.calls, label)
	rec, ok := f.records[label]
	err := f.errs[label]
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook(label)
	}
	if err != nil {
		return domain.Record{}, err
	}
	if !ok {
		return domain.Record{}, errors.New("unknown label")
	}
	return rec, nil
}

type fakePrompter struct {
	mu      sync.Mutex
	answer  bool
	err     error
	prompts []PromptMessage
}

func (f *fakePrompter) Confirm(ctx context.Context, msg PromptMessage) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prompts = append(f.prompts, msg)
	return f.answer, f.err
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
	fail     map[string]bool
}

func (f *fakeNotifier) Notify(ctx context.Context, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[message] {
		return errors.New("delivery failed")
	}
	f.messages = append(f.messages, message)
	return nil
}
