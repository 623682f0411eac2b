package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"ENSWatch/domain"
	"ENSWatch/ens"
)

const (
	ActionAdded    = "added"
	ActionRemoved  = "removed"
	ActionDeclined = "declined"
)

// ToggleResult is returned for addOrRemoveENSDomain.
type ToggleResult struct {
	Label  string        `json:"label"`
	Action string        `json:"action"`
	Record domain.Record `json:"record,omitempty"`
}

// CheckResult lists the labels a notification was sent for.
type CheckResult struct {
	Expiring []string `json:"expiring"`
	Notified []string `json:"notified"`
}

// UpdateResult lists the labels whose expiry was refreshed and the ones that failed.
type UpdateResult struct {
	Updated  []string         `json:"updated"`
	Failures []RefreshFailure `json:"failures"`
}

// Service runs the three request handlers against a Host.
//
// Every read-modify-write of the watchlist holds mu and reloads the list
// first. Oracle calls and user prompts run without it.
type Service struct {
	Host     Host
	Store    *domain.Store
	Location *time.Location
	Now      func() time.Time
	Logger   *zap.Logger

	mu sync.Mutex
}

func NewService(host Host, logger *zap.Logger) (*Service, error) {
	if err := host.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("service")
	return &Service{
		Host:     host,
		Store:    domain.NewStore(host.Storage, logger),
		Location: time.UTC,
		Now:      time.Now,
		Logger:   logger,
	}, nil
}

// Handle dispatches a parsed request.
func (s *Service) Handle(ctx context.Context, req Request) (any, error) {
	var (
		res any
		err error
	)
	switch r := req.(type) {
	case AddOrRemoveENSDomain:
		res, err = s.toggle(ctx, r.ENSDomain)
	case *AddOrRemoveENSDomain:
		res, err = s.toggle(ctx, r.ENSDomain)
	case CheckExpirationDate, *CheckExpirationDate:
		res, err = s.check(ctx)
	case UpdateExpirationDates, *UpdateExpirationDates:
		res, err = s.update(ctx)
	default:
		method := "<nil>"
		if req != nil {
			method = req.Method()
		}
		err = &MethodNotFoundError{Method: method}
	}

	method := "unknown"
	if req != nil {
		method = req.Method()
	}
	if err != nil {
		handledRequests.WithLabelValues(method, "error").Inc()
		s.Logger.Warn("request failed", zap.String("method", method), zap.Error(err))
		return nil, err
	}
	handledRequests.WithLabelValues(method, "ok").Inc()
	return res, nil
}

func (s *Service) toggle(ctx context.Context, label string) (*ToggleResult, error) {
	if label == "" {
		return nil, fmt.Errorf("%w: ensDomain is required", ErrInvalidParams)
	}
	w, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	stored := w.Has(label)

	var rec domain.Record
	if !stored {
		rec, err = s.Host.Resolver.ResolveLabel(ctx, label)
		if err != nil {
			return nil, err
		}
	}

	ok, err := s.Host.Prompter.Confirm(ctx, AddOrRemoveMessage(label, stored))
	if err != nil {
		return nil, fmt.Errorf("confirm %s.eth: %w", label, err)
	}
	if !ok {
		s.Logger.Info("toggle declined", zap.String("label", label), zap.Bool("stored", stored))
		return &ToggleResult{Label: label, Action: ActionDeclined}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	w, err = s.Store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if stored {
		if _, err := s.Store.Remove(ctx, w, label); err != nil {
			return nil, err
		}
		return &ToggleResult{Label: label, Action: ActionRemoved}, nil
	}
	if _, err := s.Store.Upsert(ctx, w, label, rec); err != nil {
		return nil, err
	}
	return &ToggleResult{Label: label, Action: ActionAdded, Record: rec}, nil
}

func (s *Service) check(ctx context.Context) (*CheckResult, error) {
	w, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	expiring := FindExpiringSoon(w, s.now())
	n := NotifierService{Notifier: s.Host.Notifier, Location: s.Location, Logger: s.Logger}
	notified, err := n.Notify(ctx, w, expiring)
	if err != nil {
		return nil, err
	}
	return &CheckResult{Expiring: nonNil(expiring), Notified: nonNil(notified)}, nil
}

func (s *Service) update(ctx context.Context) (*UpdateResult, error) {
	w, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	stale, failures := FindStale(ctx, w, s.Host.Resolver, s.Logger)

	res := &UpdateResult{Updated: []string{}, Failures: failures}
	if res.Failures == nil {
		res.Failures = []RefreshFailure{}
	}
	if len(stale) == 0 {
		return res, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.Store.Load(ctx)
	if err != nil {
		return nil, err
	}
	for _, entry := range stale {
		if !current.Has(entry.Label) {
			s.Logger.Info("skipping removed label", zap.String("label", entry.Label))
			continue
		}
		current, err = s.Store.Upsert(ctx, current, entry.Label, entry.Fresh)
		if err != nil {
			return res, err
		}
		res.Updated = append(res.Updated, entry.Label)
	}
	return res, nil
}

// List returns the persisted watchlist.
func (s *Service) List(ctx context.Context) (*domain.Watchlist, error) {
	return s.load(ctx)
}

// Lookup resolves a name without touching the watchlist.
func (s *Service) Lookup(ctx context.Context, input string) (string, domain.Record, error) {
	label, err := ens.NormalizeLabel(input)
	if err != nil {
		return "", domain.Record{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	rec, err := s.Host.Resolver.ResolveLabel(ctx, label)
	return label, rec, err
}

func (s *Service) load(ctx context.Context) (*domain.Watchlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Store.Load(ctx)
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func nonNil(labels []string) []string {
	if labels == nil {
		return []string{}
	}
	return labels
}

// IsNotFound reports whether err is a MethodNotFoundError.
func IsNotFound(err error) bool {
	var nf *MethodNotFoundError
	return errors.As(err, &nf)
}
