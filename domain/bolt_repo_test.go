package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoltStorage(t *testing.T) {
	boltDb, err := NewBoltStorage(t.TempDir())
	assert.NoError(t, err)
	defer boltDb.Close()
	ctx := context.Background()

	data, err := boltDb.Get(ctx)
	assert.NoError(t, err)
	assert.Nil(t, data)

	doc := []byte(`{"vitalik":{"owner":"0xd8dA6BF26964aF9D7eEd9e03E53415D37aA96045","expirationDate":2325794576000}}`)
	assert.NoError(t, boltDb.Set(ctx, doc))

	data, err = boltDb.Get(ctx)
	assert.NoError(t, err)
	assert.Equal(t, doc, data)

	assert.NoError(t, boltDb.Set(ctx, []byte(`{}`)))
	data, err = boltDb.Get(ctx)
	assert.NoError(t, err)
	assert.Equal(t, []byte(`{}`), data)
}

func TestBoltStorageRequiresDir(t *testing.T) {
	_, err := NewBoltStorage("")
	assert.Error(t, err)
}
