package storage

import "context"

// Collection names owned by the engine.
const (
	CollectionListings    = "listings"
	CollectionObjects     = "objects"
	CollectionAddresses   = "addresses"
	CollectionEvaluations = "evaluations"
)

// Record is anything the store can persist under a collection.
type Record interface {
	RecordID() string
}

// Store is the abstract record store the engine writes through. It offers
// single-record atomicity only; there are no cross-record transaction
// semantics, and the engine never retries failed writes.
type Store interface {
	GetAll(ctx context.Context, collection string) ([]Record, error)
	Get(ctx context.Context, collection, id string) (Record, error)
	Add(ctx context.Context, collection string, record Record) error
	Update(ctx context.Context, collection string, record Record) error
	Delete(ctx context.Context, collection, id string) error
}
