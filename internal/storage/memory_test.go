package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propstack/server/internal/models"
)

func TestMemoryStore_CRUD(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	listing := &models.Listing{ID: "l1", Price: 5000000}
	require.NoError(t, store.Add(ctx, CollectionListings, listing))

	// Duplicate add fails validation.
	err := store.Add(ctx, CollectionListings, listing)
	assert.ErrorIs(t, err, models.ErrValidation)

	record, err := store.Get(ctx, CollectionListings, "l1")
	require.NoError(t, err)
	assert.Equal(t, 5000000.0, record.(*models.Listing).Price)

	listing.Price = 5100000
	require.NoError(t, store.Update(ctx, CollectionListings, listing))

	all, err := store.GetAll(ctx, CollectionListings)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 5100000.0, all[0].(*models.Listing).Price)

	require.NoError(t, store.Delete(ctx, CollectionListings, "l1"))
	_, err = store.Get(ctx, CollectionListings, "l1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMemoryStore_NotFound(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Get(ctx, CollectionObjects, "ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, store.Update(ctx, CollectionObjects, &models.RealEstateObject{ID: "ghost"}), models.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, CollectionObjects, "ghost"), models.ErrNotFound)
}

func TestMemoryStore_GetAllOrdered(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, store.Add(ctx, CollectionListings, &models.Listing{ID: id}))
	}

	all, err := store.GetAll(ctx, CollectionListings)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].RecordID())
	assert.Equal(t, "b", all[1].RecordID())
	assert.Equal(t, "c", all[2].RecordID())
}
