package domain

import (
	"context"
	"errors"
	"os"
	"path"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	boltName        = "enswatch.db"
	watchlistBucket = "watchlist"
	watchlistKey    = "state"
)

// BoltStorage keeps the watchlist document under a single key of a bbolt file.
type BoltStorage struct {
	Db *bolt.DB
}

func NewBoltStorage(boltDirPath string) (*BoltStorage, error) {
	if len(boltDirPath) == 0 {
		return nil, errors.New("boltDb dir path can not null")
	}
	if err := os.MkdirAll(boltDirPath, os.ModePerm); err != nil {
		return nil, err
	}

	db, err := bolt.Open(path.Join(boltDirPath, boltName), 0660, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		if err == bolt.ErrTimeout {
			return nil, errors.New("cannot obtain database lock, database may be in use by another process")
		}
		return nil, err
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(watchlistBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &BoltStorage{Db: db}, nil
}

func (s *BoltStorage) Get(ctx context.Context) (data []byte, err error) {
	err = s.Db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(watchlistBucket)).Get([]byte(watchlistKey))
		if v != nil {
			// v is only valid inside the transaction
			data = append([]byte(nil), v...)
		}
		return nil
	})
	return
}

func (s *BoltStorage) Set(ctx context.Context, data []byte) error {
	return s.Db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(watchlistBucket)).Put([]byte(watchlistKey), data)
	})
}

func (s *BoltStorage) Close() error {
	return s.Db.Close()
}
