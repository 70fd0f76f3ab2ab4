// Package consolidation merges listings into canonical real-estate objects
// and splits objects back into independent listings.
package consolidation

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"propstack/server/internal/models"
	"propstack/server/internal/storage"
)

// MergeItemKind tags a merge selection entry.
type MergeItemKind string

const (
	ItemListing MergeItemKind = "listing"
	ItemObject  MergeItemKind = "object"
)

// MergeItem names one row of a merge selection: either a loose listing or
// an already-consolidated object whose listings get absorbed.
type MergeItem struct {
	Kind MergeItemKind `json:"type"`
	ID   string        `json:"id"`
}

// SplitResult summarizes a split batch. Failures are per-id; one unknown
// object does not abort the rest of the batch.
type SplitResult struct {
	DeletedObjectsCount  int      `json:"deleted_objects_count"`
	UpdatedListingsCount int      `json:"updated_listings_count"`
	FailedObjectIDs      []string `json:"failed_object_ids,omitempty"`
}

// Consolidator owns the merge/split operations and the listing
// processing-status state machine they drive.
type Consolidator struct {
	store  storage.Store
	logger *logrus.Logger
}

// NewConsolidator creates a consolidator writing through the given store.
func NewConsolidator(store storage.Store, logger *logrus.Logger) *Consolidator {
	return &Consolidator{store: store, logger: logger}
}

// BuildObjectFromListings aggregates constituent listings into a new object
// record. Price and price-per-meter come from the most recently updated
// constituent; the initial price history is rebuilt chronologically from
// every constituent's last observation.
func BuildObjectFromListings(listings []*models.Listing, addressID string) *models.RealEstateObject {
	now := time.Now()

	latest := listings[0]
	activeCount := 0
	for _, listing := range listings {
		if listing.Status == models.ListingActive {
			activeCount++
		}
		if listing.UpdatedAt.After(latest.UpdatedAt) {
			latest = listing
		}
	}

	history := make(models.PriceHistory, 0, len(listings))
	for _, listing := range listings {
		if listing.Price > 0 {
			history = append(history, models.PricePoint{Date: listing.UpdatedAt, Price: listing.Price})
		}
	}
	sort.Slice(history, func(i, j int) bool { return history[i].Date.Before(history[j].Date) })

	status := models.ObjectArchive
	if activeCount > 0 {
		status = models.ObjectActive
	}

	pricePerMeter := 0.0
	if latest.AreaTotal > 0 {
		pricePerMeter = latest.Price / latest.AreaTotal
	}

	return &models.RealEstateObject{
		ID:                  uuid.NewString(),
		AddressID:           addressID,
		PropertyType:        latest.PropertyType,
		Status:              status,
		CurrentPrice:        latest.Price,
		PricePerMeter:       pricePerMeter,
		AreaTotal:           latest.AreaTotal,
		PriceHistory:        history,
		ListingsCount:       len(listings),
		ActiveListingsCount: activeCount,
		CreatedAt:           now,
		UpdatedAt:           now,
	}
}

// resolveItems loads every selected listing, expanding object items into
// their constituent listings. Absorbed objects are returned separately so
// the merge can delete them once the new object exists.
func (c *Consolidator) resolveItems(ctx context.Context, items []MergeItem) ([]*models.Listing, []*models.RealEstateObject, error) {
	var listings []*models.Listing
	var absorbed []*models.RealEstateObject

	for _, item := range items {
		switch item.Kind {
		case ItemListing:
			record, err := c.store.Get(ctx, storage.CollectionListings, item.ID)
			if err != nil {
				return nil, nil, err
			}
			listings = append(listings, record.(*models.Listing))

		case ItemObject:
			record, err := c.store.Get(ctx, storage.CollectionObjects, item.ID)
			if err != nil {
				return nil, nil, err
			}
			object := record.(*models.RealEstateObject)
			absorbed = append(absorbed, object)

			members, err := c.listingsOfObject(ctx, object.ID)
			if err != nil {
				return nil, nil, err
			}
			listings = append(listings, members...)

		default:
			return nil, nil, models.InvalidArgumentError("unsupported merge item type %q", item.Kind)
		}
	}
	return listings, absorbed, nil
}

func (c *Consolidator) listingsOfObject(ctx context.Context, objectID string) ([]*models.Listing, error) {
	records, err := c.store.GetAll(ctx, storage.CollectionListings)
	if err != nil {
		return nil, err
	}

	var members []*models.Listing
	for _, record := range records {
		listing := record.(*models.Listing)
		if listing.ObjectID != nil && *listing.ObjectID == objectID {
			members = append(members, listing)
		}
	}
	return members, nil
}

// validateMergeByAddress confirms every constituent resolves to addressID.
// Listings without a resolved address fall back to the target address; a
// concrete mismatch fails validation before anything mutates. When
// addressID is empty the first resolved address becomes the target.
func validateMergeByAddress(listings []*models.Listing, absorbed []*models.RealEstateObject, addressID string) (string, error) {
	target := addressID
	if target == "" {
		for _, listing := range listings {
			if listing.AddressID != nil && *listing.AddressID != "" {
				target = *listing.AddressID
				break
			}
		}
	}
	if target == "" {
		return "", models.ValidationError("no address resolved for merge selection")
	}

	for _, listing := range listings {
		if listing.AddressID != nil && *listing.AddressID != "" && *listing.AddressID != target {
			return "", models.ValidationError("addresses differ: listing %s resolves to %s, expected %s",
				listing.ID, *listing.AddressID, target)
		}
	}
	for _, object := range absorbed {
		if object.AddressID != "" && object.AddressID != target {
			return "", models.ValidationError("addresses differ: object %s resolves to %s, expected %s",
				object.ID, object.AddressID, target)
		}
	}
	return target, nil
}

// MergeIntoObject consolidates the selected listings and objects into one
// new object. Validation runs before any write, so an address mismatch or
// unknown id mutates nothing. Every constituent listing ends up with the
// new object id and processing status "processed".
func (c *Consolidator) MergeIntoObject(ctx context.Context, items []MergeItem, addressID string) (*models.RealEstateObject, error) {
	if len(items) == 0 {
		return nil, models.InvalidArgumentError("nothing selected for merge")
	}

	listings, absorbed, err := c.resolveItems(ctx, items)
	if err != nil {
		return nil, err
	}
	if len(listings) == 0 {
		return nil, models.InvalidArgumentError("merge selection contains no listings")
	}

	target, err := validateMergeByAddress(listings, absorbed, addressID)
	if err != nil {
		return nil, err
	}

	object := BuildObjectFromListings(listings, target)

	if err := c.store.Add(ctx, storage.CollectionObjects, object); err != nil {
		return nil, err
	}

	now := time.Now()
	for _, listing := range listings {
		listing.ObjectID = &object.ID
		listing.ProcessingStatus = models.StatusProcessed
		listing.AddressID = &target
		listing.UpdatedAt = now
		if err := c.store.Update(ctx, storage.CollectionListings, listing); err != nil {
			return nil, err
		}
	}

	for _, old := range absorbed {
		if err := c.store.Delete(ctx, storage.CollectionObjects, old.ID); err != nil {
			return nil, err
		}
	}

	c.logger.WithFields(logrus.Fields{
		"object_id": object.ID,
		"listings":  object.ListingsCount,
		"address":   target,
	}).Info("Merged listings into object")

	return object, nil
}

// SplitObjectsToListings deletes each object and releases its listings back
// into the dedup pipeline: object_id cleared, processing status reset to
// duplicate_check_needed regardless of prior state. Unknown ids are
// recorded per-item and the batch continues.
func (c *Consolidator) SplitObjectsToListings(ctx context.Context, objectIDs []string) (*SplitResult, error) {
	if len(objectIDs) == 0 {
		return nil, models.InvalidArgumentError("nothing selected for split")
	}

	result := &SplitResult{}
	now := time.Now()

	for _, objectID := range objectIDs {
		if _, err := c.store.Get(ctx, storage.CollectionObjects, objectID); err != nil {
			c.logger.WithError(err).WithField("object_id", objectID).Warn("Skipping split of unknown object")
			result.FailedObjectIDs = append(result.FailedObjectIDs, objectID)
			continue
		}

		members, err := c.listingsOfObject(ctx, objectID)
		if err != nil {
			result.FailedObjectIDs = append(result.FailedObjectIDs, objectID)
			continue
		}

		failed := false
		for _, listing := range members {
			listing.ObjectID = nil
			listing.ProcessingStatus = models.StatusDuplicateCheckNeeded
			listing.UpdatedAt = now
			if err := c.store.Update(ctx, storage.CollectionListings, listing); err != nil {
				c.logger.WithError(err).WithField("listing_id", listing.ID).Error("Failed to release listing during split")
				failed = true
				break
			}
			result.UpdatedListingsCount++
		}
		if failed {
			result.FailedObjectIDs = append(result.FailedObjectIDs, objectID)
			continue
		}

		if err := c.store.Delete(ctx, storage.CollectionObjects, objectID); err != nil {
			result.FailedObjectIDs = append(result.FailedObjectIDs, objectID)
			continue
		}
		result.DeletedObjectsCount++
	}

	return result, nil
}
