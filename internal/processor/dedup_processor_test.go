package processor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"propstack/server/config"
	"propstack/server/internal/dedup"
	"propstack/server/internal/models"
	"propstack/server/internal/queue"
	"propstack/server/internal/storage"
)

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Dedup.TimeoutSeconds = 5
	cfg.Dedup.MaxRetries = 1
	cfg.Dedup.RetryDelay = 0
	return cfg
}

func queuedListing(id string) *models.Listing {
	addr := "addr-a"
	return &models.Listing{
		ID:               id,
		AddressID:        &addr,
		Price:            5000000,
		AreaTotal:        50,
		PropertyType:     "apartment",
		Status:           models.ListingActive,
		ProcessingStatus: models.StatusDuplicateCheckNeeded,
		UpdatedAt:        time.Now(),
	}
}

func TestDedupProcessor_PersistsDetectedDuplicates(t *testing.T) {
	logger := logrus.New()
	store := storage.NewMemoryStore()
	ctx := context.Background()

	l1 := queuedListing("l1")
	l2 := queuedListing("l2")
	require.NoError(t, store.Add(ctx, storage.CollectionListings, l1))
	require.NoError(t, store.Add(ctx, storage.CollectionListings, l2))

	q := queue.NewListingQueue(10, logger)
	processor := NewDedupProcessor(store, dedup.NewBasicDetector(logger), q, testConfig(), logger)
	processor.Start()
	defer processor.Stop()

	require.NoError(t, q.Push([]*models.Listing{l1, l2}))

	// The queue drains asynchronously.
	require.Eventually(t, func() bool {
		objects, err := store.GetAll(ctx, storage.CollectionObjects)
		return err == nil && len(objects) == 1
	}, time.Second, 10*time.Millisecond)

	record, err := store.Get(ctx, storage.CollectionListings, "l1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessed, record.(*models.Listing).ProcessingStatus)
}

// flakyStore fails a configured number of listing updates before behaving
// normally, simulating transient persistence errors mid-batch.
type flakyStore struct {
	storage.Store
	mu             sync.Mutex
	updateFailures int
}

func (s *flakyStore) Update(ctx context.Context, collection string, record storage.Record) error {
	if collection == storage.CollectionListings {
		s.mu.Lock()
		if s.updateFailures > 0 {
			s.updateFailures--
			s.mu.Unlock()
			return models.PersistenceError("update "+collection, errors.New("transient failure"))
		}
		s.mu.Unlock()
	}
	return s.Store.Update(ctx, collection, record)
}

func TestDedupProcessor_RetryRecoversAfterPartialPersist(t *testing.T) {
	logger := logrus.New()
	inner := storage.NewMemoryStore()
	store := &flakyStore{Store: inner, updateFailures: 1}
	ctx := context.Background()

	l1 := queuedListing("l1")
	l2 := queuedListing("l2")
	require.NoError(t, inner.Add(ctx, storage.CollectionListings, l1))
	require.NoError(t, inner.Add(ctx, storage.CollectionListings, l2))

	q := queue.NewListingQueue(10, logger)
	processor := NewDedupProcessor(store, dedup.NewBasicDetector(logger), q, testConfig(), logger)
	processor.Start()
	defer processor.Stop()

	require.NoError(t, q.Push([]*models.Listing{l1, l2}))

	// The first attempt adds the object and then trips on the listing
	// update; the retry must not choke on the already-persisted object.
	require.Eventually(t, func() bool {
		record, err := inner.Get(ctx, storage.CollectionListings, "l2")
		return err == nil && record.(*models.Listing).ProcessingStatus == models.StatusProcessed
	}, time.Second, 10*time.Millisecond)

	objects, err := inner.GetAll(ctx, storage.CollectionObjects)
	require.NoError(t, err)
	assert.Len(t, objects, 1)

	record, err := inner.Get(ctx, storage.CollectionListings, "l1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusProcessed, record.(*models.Listing).ProcessingStatus)
}

func TestDedupProcessor_NoDuplicatesNoWrites(t *testing.T) {
	logger := logrus.New()
	store := storage.NewMemoryStore()
	ctx := context.Background()

	l1 := queuedListing("l1")
	require.NoError(t, store.Add(ctx, storage.CollectionListings, l1))

	q := queue.NewListingQueue(10, logger)
	processor := NewDedupProcessor(store, dedup.NewBasicDetector(logger), q, testConfig(), logger)
	processor.Start()
	defer processor.Stop()

	require.NoError(t, q.Push([]*models.Listing{l1}))

	time.Sleep(100 * time.Millisecond)
	objects, err := store.GetAll(ctx, storage.CollectionObjects)
	require.NoError(t, err)
	assert.Empty(t, objects)
}
