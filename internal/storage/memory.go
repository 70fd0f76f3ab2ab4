package storage

import (
	"context"
	"sort"
	"sync"

	"propstack/server/internal/models"
)

// MemoryStore keeps records in process memory. Used by unit tests and as a
// session-local store; safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]Record),
	}
}

// GetAll returns every record in a collection, ordered by id for
// deterministic iteration.
func (s *MemoryStore) GetAll(ctx context.Context, collection string) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]Record, 0, len(s.collections[collection]))
	for _, record := range s.collections[collection] {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].RecordID() < records[j].RecordID()
	})
	return records, nil
}

// Get returns the record with the given id or a NotFoundError.
func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.collections[collection][id]
	if !ok {
		return nil, models.NotFoundError(collection, id)
	}
	return record, nil
}

// Add inserts a record. Adding an id that already exists fails validation.
func (s *MemoryStore) Add(ctx context.Context, collection string, record Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]Record)
	}
	if _, exists := s.collections[collection][record.RecordID()]; exists {
		return models.ValidationError("record %q already exists in %s", record.RecordID(), collection)
	}
	s.collections[collection][record.RecordID()] = record
	return nil
}

// Update replaces an existing record.
func (s *MemoryStore) Update(ctx context.Context, collection string, record Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.collections[collection][record.RecordID()]; !exists {
		return models.NotFoundError(collection, record.RecordID())
	}
	s.collections[collection][record.RecordID()] = record
	return nil
}

// Delete removes a record by id.
func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.collections[collection][id]; !exists {
		return models.NotFoundError(collection, id)
	}
	delete(s.collections[collection], id)
	return nil
}
