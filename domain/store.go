package domain

import (
	"bytes"
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// Store loads and rewrites the whole watchlist through a Storage.
// Upsert and Remove never touch their input: they persist a modified copy
// and return it, or return the input unchanged with the error.
type Store struct {
	storage Storage
	logger  *zap.Logger
}

func NewStore(storage Storage, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{storage: storage, logger: logger.Named("store")}
}

// Load returns the persisted watchlist, or an empty one if nothing was stored yet.
func (s *Store) Load(ctx context.Context) (*Watchlist, error) {
	data, err := s.storage.Get(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	w := NewWatchlist()
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return w, nil
	}
	if err := json.Unmarshal(data, w); err != nil {
		return nil, &PersistenceError{Op: "decode", Err: err}
	}
	s.logger.Debug("watchlist loaded", zap.Int("size", w.Len()))
	return w, nil
}

func (s *Store) Upsert(ctx context.Context, w *Watchlist, label string, rec Record) (*Watchlist, error) {
	next := s.base(w)
	next.Set(label, rec)
	if err := s.save(ctx, next); err != nil {
		return w, err
	}
	s.logger.Info("watchlist entry saved",
		zap.String("label", label),
		zap.String("owner", rec.Owner),
		zap.Int64("expirationDate", rec.ExpirationDate))
	return next, nil
}

// Remove deletes label. An absent label is not an error; the list is still persisted.
func (s *Store) Remove(ctx context.Context, w *Watchlist, label string) (*Watchlist, error) {
	next := s.base(w)
	removed := next.Delete(label)
	if err := s.save(ctx, next); err != nil {
		return w, err
	}
	s.logger.Info("watchlist entry removed", zap.String("label", label), zap.Bool("present", removed))
	return next, nil
}

func (s *Store) base(w *Watchlist) *Watchlist {
	if w == nil {
		return NewWatchlist()
	}
	return w.Clone()
}

func (s *Store) save(ctx context.Context, w *Watchlist) error {
	data, err := json.Marshal(w)
	if err != nil {
		return &PersistenceError{Op: "encode", Err: err}
	}
	if err := s.storage.Set(ctx, data); err != nil {
		return &PersistenceError{Op: "save", Err: err}
	}
	watchlistSize.Set(float64(w.Len()))
	return nil
}
