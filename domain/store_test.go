package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type failingStorage struct {
	MemoryStorage
	failGet bool
	failSet bool
}

func (f *failingStorage) Get(ctx context.Context) ([]byte, error) {
	if f.failGet {
		return nil, errors.New("disk on fire")
	}
	return f.MemoryStorage.Get(ctx)
}

func (f *failingStorage) Set(ctx context.Context, data []byte) error {
	if f.failSet {
		return errors.New("quota exceeded")
	}
	return f.MemoryStorage.Set(ctx, data)
}

func TestStoreLoadEmpty(t *testing.T) {
	store := NewStore(NewMemoryStorage(), nil)
	w, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, w.Len())
}

func TestStoreUpsertRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryStorage(), nil)

	w, err := store.Load(ctx)
	require.NoError(t, err)
	w, err = store.Upsert(ctx, w, "marc", Record{Owner: "0x2", ExpirationDate: 2000})
	require.NoError(t, err)

	before := w
	w, err = store.Upsert(ctx, w, "vitalik", Record{Owner: "0x1", ExpirationDate: 1000})
	require.NoError(t, err)
	require.False(t, before.Has("vitalik"), "input watchlist must not be mutated")

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"marc", "vitalik"}, loaded.Labels())
	rec, _ := loaded.Get("vitalik")
	require.Equal(t, Record{Owner: "0x1", ExpirationDate: 1000}, rec)
	rec, _ = loaded.Get("marc")
	require.Equal(t, Record{Owner: "0x2", ExpirationDate: 2000}, rec)
}

func TestStoreRemoveAbsentIsNoop(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryStorage(), nil)
	w, err := store.Upsert(ctx, NewWatchlist(), "vitalik", Record{Owner: "0x1", ExpirationDate: 1})
	require.NoError(t, err)

	out, err := store.Remove(ctx, w, "nobody")
	require.NoError(t, err)
	require.True(t, out.Equal(w))
}

func TestStoreRemove(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryStorage(), nil)
	w, err := store.Upsert(ctx, nil, "vitalik", Record{Owner: "0x1", ExpirationDate: 1})
	require.NoError(t, err)

	_, err = store.Remove(ctx, w, "vitalik")
	require.NoError(t, err)

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.False(t, loaded.Has("vitalik"))
}

func TestStoreUpsertFailureKeepsInput(t *testing.T) {
	ctx := context.Background()
	storage := &failingStorage{}
	store := NewStore(storage, nil)
	w, err := store.Upsert(ctx, nil, "vitalik", Record{Owner: "0x1", ExpirationDate: 1})
	require.NoError(t, err)
	persisted, _ := storage.MemoryStorage.Get(ctx)

	storage.failSet = true
	out, err := store.Upsert(ctx, w, "marc", Record{Owner: "0x2", ExpirationDate: 2})
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "save", perr.Op)
	require.Contains(t, err.Error(), "quota exceeded")
	require.Same(t, w, out)
	require.False(t, w.Has("marc"))

	after, _ := storage.MemoryStorage.Get(ctx)
	require.Equal(t, persisted, after)
}

func TestStoreLoadErrors(t *testing.T) {
	ctx := context.Background()

	storage := &failingStorage{failGet: true}
	_, err := NewStore(storage, nil).Load(ctx)
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "load", perr.Op)

	broken := NewMemoryStorage()
	require.NoError(t, broken.Set(ctx, []byte("not json")))
	_, err = NewStore(broken, nil).Load(ctx)
	require.ErrorAs(t, err, &perr)
	require.Equal(t, "decode", perr.Op)
}
