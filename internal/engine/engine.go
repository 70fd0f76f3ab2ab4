// Package engine is the facade the presentation and ingestion collaborators
// call: spatial filtering, duplicate detection, merge/split, time-sliced
// prices and the evaluation session.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"propstack/server/internal/consolidation"
	"propstack/server/internal/dedup"
	"propstack/server/internal/evaluation"
	"propstack/server/internal/geometry"
	"propstack/server/internal/models"
	"propstack/server/internal/pricing"
	"propstack/server/internal/storage"
)

// ListingIndex is the logical name of the spatial index over listings.
const ListingIndex = "listings"

// Engine wires the store, spatial index, detector strategies, consolidator
// and price resolver behind one surface. One evaluation session is active
// at a time; starting a new one replaces it.
type Engine struct {
	store        storage.Store
	indexes      *geometry.IndexManager
	consolidator *consolidation.Consolidator
	resolver     *pricing.Resolver
	detectors    map[string]dedup.Detector
	recomputer   *evaluation.Recomputer
	logger       *logrus.Logger

	mu       sync.Mutex
	session  *evaluation.Session
	listener func(models.Corridors)
}

// New creates an engine over the given store.
func New(store storage.Store, detectors []dedup.Detector, recomputeDelay time.Duration, logger *logrus.Logger) *Engine {
	byName := make(map[string]dedup.Detector, len(detectors))
	for _, detector := range detectors {
		byName[detector.Name()] = detector
	}
	return &Engine{
		store:        store,
		indexes:      geometry.NewIndexManager(logger),
		consolidator: consolidation.NewConsolidator(store, logger),
		resolver:     pricing.NewResolver(),
		detectors:    byName,
		recomputer:   evaluation.NewRecomputer(recomputeDelay, logger),
		logger:       logger,
	}
}

// RefreshListingIndex rebuilds the spatial index over all stored listings.
// The rebuild replaces the index wholesale; callers must await it before
// querying, the index is never patched incrementally.
func (e *Engine) RefreshListingIndex(ctx context.Context) error {
	records, err := e.store.GetAll(ctx, storage.CollectionListings)
	if err != nil {
		return err
	}

	items := make([]interface{}, len(records))
	for i, record := range records {
		items[i] = record
	}

	e.indexes.Build(ListingIndex, items, func(item interface{}) (orb.Point, bool) {
		listing, ok := item.(*models.Listing)
		if !ok || !listing.HasCoordinates() {
			return orb.Point{}, false
		}
		return orb.Point{*listing.Longitude, *listing.Latitude}, true
	})
	return nil
}

// FindListingsInPolygon returns every indexed listing inside the polygon.
func (e *Engine) FindListingsInPolygon(polygon orb.Ring) ([]*models.Listing, error) {
	matches, err := e.indexes.FindInArea(ListingIndex, polygon)
	if err != nil {
		return nil, err
	}

	listings := make([]*models.Listing, 0, len(matches))
	for _, match := range matches {
		listings = append(listings, match.(*models.Listing))
	}
	return listings, nil
}

// DetectDuplicates runs the named strategy over the listings and persists
// whatever the detector produced, partial or not.
func (e *Engine) DetectDuplicates(ctx context.Context, listings []*models.Listing, areaID, strategy string) (*dedup.Result, error) {
	detector, ok := e.detectors[strategy]
	if !ok {
		return nil, models.InvalidArgumentError("unknown detector strategy %q", strategy)
	}

	result, err := detector.Process(ctx, listings, areaID)
	if err != nil {
		return nil, err
	}

	for _, object := range result.NewObjects {
		if err := e.store.Add(ctx, storage.CollectionObjects, object); err != nil {
			return result, err
		}
	}
	for _, listing := range result.UpdatedListings {
		if err := e.store.Update(ctx, storage.CollectionListings, listing); err != nil {
			return result, err
		}
	}
	return result, nil
}

// AddListings stores newly ingested listings. Failures are per-listing;
// the first failure stops the batch and reports how far it got.
func (e *Engine) AddListings(ctx context.Context, listings []*models.Listing) error {
	for _, listing := range listings {
		if err := e.store.Add(ctx, storage.CollectionListings, listing); err != nil {
			return err
		}
	}
	return nil
}

// Listing fetches one listing by id.
func (e *Engine) Listing(ctx context.Context, id string) (*models.Listing, error) {
	record, err := e.store.Get(ctx, storage.CollectionListings, id)
	if err != nil {
		return nil, err
	}
	return record.(*models.Listing), nil
}

// Object fetches one consolidated object by id.
func (e *Engine) Object(ctx context.Context, id string) (*models.RealEstateObject, error) {
	record, err := e.store.Get(ctx, storage.CollectionObjects, id)
	if err != nil {
		return nil, err
	}
	return record.(*models.RealEstateObject), nil
}

// MergeIntoObject consolidates the selection into one object.
func (e *Engine) MergeIntoObject(ctx context.Context, items []consolidation.MergeItem, addressID string) (*models.RealEstateObject, error) {
	return e.consolidator.MergeIntoObject(ctx, items, addressID)
}

// SplitObjectsToListings splits each object back into loose listings.
func (e *Engine) SplitObjectsToListings(ctx context.Context, objectIDs []string) (*consolidation.SplitResult, error) {
	return e.consolidator.SplitObjectsToListings(ctx, objectIDs)
}

// PriceAtDate returns the object's reconstructed price as of a date.
func (e *Engine) PriceAtDate(ctx context.Context, objectID string, date time.Time) (float64, error) {
	record, err := e.store.Get(ctx, storage.CollectionObjects, objectID)
	if err != nil {
		return 0, err
	}
	return e.resolver.PriceAtDate(record.(*models.RealEstateObject), date), nil
}

// PricePerMeterAtDate returns the object's per-meter price as of a date.
func (e *Engine) PricePerMeterAtDate(ctx context.Context, objectID string, date time.Time) (float64, error) {
	record, err := e.store.Get(ctx, storage.CollectionObjects, objectID)
	if err != nil {
		return 0, err
	}
	return e.resolver.PricePerMeterAtDate(record.(*models.RealEstateObject), date), nil
}

// StartSession begins a fresh evaluation session over the current object
// catalog, replacing any previous session.
func (e *Engine) StartSession(ctx context.Context) error {
	records, err := e.store.GetAll(ctx, storage.CollectionObjects)
	if err != nil {
		return err
	}

	objects := make([]*models.RealEstateObject, 0, len(records))
	for _, record := range records {
		objects = append(objects, record.(*models.RealEstateObject))
	}

	e.mu.Lock()
	e.session = evaluation.NewSession(objects, e.logger)
	e.mu.Unlock()
	return nil
}

func (e *Engine) currentSession() (*evaluation.Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, models.InvalidArgumentError("no evaluation session started")
	}
	return e.session, nil
}

// SetCorridorListener registers the callback receiving debounced corridor
// updates after evaluation edits. Only the most recent edit's result is
// delivered.
func (e *Engine) SetCorridorListener(listener func(models.Corridors)) {
	e.mu.Lock()
	e.listener = listener
	e.mu.Unlock()
}

// Evaluate records a judgment in the active session and schedules a
// debounced corridor recompute.
func (e *Engine) Evaluate(objectID string, kind models.EvaluationKind) error {
	session, err := e.currentSession()
	if err != nil {
		return err
	}
	if err := session.Evaluate(objectID, kind); err != nil {
		return err
	}

	e.recomputer.Schedule(func() {
		corridors := session.Corridors()
		e.mu.Lock()
		listener := e.listener
		e.mu.Unlock()
		if listener != nil {
			listener(corridors)
		}
	})
	return nil
}

// Corridors returns the active, archive and optimal corridors of the
// current session.
func (e *Engine) Corridors() (models.Corridors, error) {
	session, err := e.currentSession()
	if err != nil {
		return models.Corridors{}, err
	}
	return session.Corridors(), nil
}

// Confidence returns the session's corridor confidence score.
func (e *Engine) Confidence() (models.Confidence, error) {
	session, err := e.currentSession()
	if err != nil {
		return models.Confidence{}, err
	}
	return session.Confidence(), nil
}

// AutoDetectOverpriced reclassifies contradictory evaluations and reports
// whether anything changed.
func (e *Engine) AutoDetectOverpriced() (bool, error) {
	session, err := e.currentSession()
	if err != nil {
		return false, err
	}
	return session.AutoDetectOverpriced(), nil
}

// Evaluations returns the session's evaluations in their persisted form.
func (e *Engine) Evaluations() ([]models.EvaluationEntry, error) {
	session, err := e.currentSession()
	if err != nil {
		return nil, err
	}
	return session.Entries(), nil
}

// RestoreEvaluations replaces the session's evaluations with persisted
// entries.
func (e *Engine) RestoreEvaluations(entries []models.EvaluationEntry) error {
	session, err := e.currentSession()
	if err != nil {
		return err
	}
	session.Restore(entries)
	return nil
}

// Stop cancels any pending recompute.
func (e *Engine) Stop() {
	e.recomputer.Stop()
}
