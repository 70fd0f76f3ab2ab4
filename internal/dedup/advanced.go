package dedup

import (
	"context"
	"fmt"
	"math"

	"github.com/mmcloughlin/geohash"
	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"

	"propstack/server/internal/consolidation"
	"propstack/server/internal/geometry"
	"propstack/server/internal/models"
	"propstack/server/internal/storage"
)

// Distance thresholds (meters) for address-assignment confidence tiers.
const (
	highConfidenceRadius    = 15.0
	lowConfidenceRadius     = 75.0
	veryLowConfidenceRadius = 150.0
)

const areaBucketSize = 2.0 // square meters per dedup bucket

// AdvancedDetector resolves addresses for unassigned listings from the
// nearest known address, then groups by geohash cell, bucketed area and
// floor so listings without a clean address can still collapse into one
// object.
type AdvancedDetector struct {
	store            storage.Store
	logger           *logrus.Logger
	geohashPrecision uint
}

// NewAdvancedDetector creates the advanced strategy. precision is the
// geohash cell length used as the primary grouping key.
func NewAdvancedDetector(store storage.Store, logger *logrus.Logger, precision uint) *AdvancedDetector {
	if precision == 0 {
		precision = 7
	}
	return &AdvancedDetector{store: store, logger: logger, geohashPrecision: precision}
}

// Name returns the strategy identifier callers select by.
func (d *AdvancedDetector) Name() string { return StrategyAdvanced }

// suggestAddress finds the closest known address and maps its distance to a
// confidence tier. Returns nil when nothing lies within the very-low
// radius.
func (d *AdvancedDetector) suggestAddress(addresses []*models.Address, listing *models.Listing) (*models.Address, models.AddressConfidence) {
	point := orb.Point{*listing.Longitude, *listing.Latitude}

	var best *models.Address
	bestDistance := math.MaxFloat64
	for _, address := range addresses {
		distance := geometry.DistanceMeters(point, orb.Point{address.Longitude, address.Latitude})
		if distance < bestDistance {
			bestDistance = distance
			best = address
		}
	}

	switch {
	case best == nil || bestDistance > veryLowConfidenceRadius:
		return nil, models.ConfidenceNone
	case bestDistance <= highConfidenceRadius:
		return best, models.ConfidenceHigh
	case bestDistance <= lowConfidenceRadius:
		return best, models.ConfidenceLow
	default:
		return best, models.ConfidenceVeryLow
	}
}

func (d *AdvancedDetector) groupKey(listing *models.Listing) string {
	cell := geohash.EncodeWithPrecision(*listing.Latitude, *listing.Longitude, d.geohashPrecision)
	areaBucket := int(listing.AreaTotal / areaBucketSize)
	floor := -1
	if listing.Floor != nil {
		floor = *listing.Floor
	}
	return fmt.Sprintf("%s|%s|%d|%d", cell, listing.PropertyType, areaBucket, floor)
}

// Process resolves addresses and groups duplicates. Failures on individual
// listings are counted and skipped; a context deadline returns the partial
// result accumulated so far.
func (d *AdvancedDetector) Process(ctx context.Context, listings []*models.Listing, areaID string) (*Result, error) {
	addressRecords, err := d.store.GetAll(ctx, storage.CollectionAddresses)
	if err != nil {
		return nil, err
	}
	addresses := make([]*models.Address, 0, len(addressRecords))
	for _, record := range addressRecords {
		addresses = append(addresses, record.(*models.Address))
	}

	result := &Result{}
	groups := make(map[string][]*models.Listing)

	for _, listing := range listings {
		if ctx.Err() != nil {
			d.logger.WithField("area_id", areaID).Warn("Advanced detection stopped early, returning partial result")
			break
		}

		if listing.ProcessingStatus == models.StatusProcessed {
			continue
		}
		result.Processed++

		if !listing.HasCoordinates() {
			result.Failed++
			continue
		}

		if d.resolveAddress(addresses, listing) {
			result.UpdatedListings = append(result.UpdatedListings, listing)
		}

		if listing.ProcessingStatus == models.StatusDuplicateCheckNeeded {
			key := d.groupKey(listing)
			groups[key] = append(groups[key], listing)
		}
	}

	for _, group := range groups {
		if len(group) < 2 {
			continue
		}

		addressID := ""
		for _, listing := range group {
			if listing.AddressID != nil && *listing.AddressID != "" {
				addressID = *listing.AddressID
				break
			}
		}
		if addressID == "" {
			// A proposed object still needs a concrete address.
			continue
		}

		object := consolidation.BuildObjectFromListings(group, addressID)
		result.NewObjects = append(result.NewObjects, object)
		for _, listing := range group {
			if listing.AddressID == nil || *listing.AddressID == "" {
				// Address-less members inherit the group's address.
				resolved := addressID
				listing.AddressID = &resolved
			}
			listing.ObjectID = &object.ID
			listing.ProcessingStatus = models.StatusProcessed
			if !containsListing(result.UpdatedListings, listing) {
				result.UpdatedListings = append(result.UpdatedListings, listing)
			}
			result.Merged++
		}
	}

	return result, nil
}

// resolveAddress assigns the nearest address to a listing that lacks one.
// Manual confirmations are never overridden, and a very_low/low suggestion
// keeps the listing flagged for review. Reports whether the listing
// changed.
func (d *AdvancedDetector) resolveAddress(addresses []*models.Address, listing *models.Listing) bool {
	if listing.AddressMatchConfidence == models.ConfidenceManual {
		return false
	}
	if listing.AddressID != nil && *listing.AddressID != "" {
		if listing.ProcessingStatus == models.StatusAddressNeeded && !listing.AddressMatchConfidence.NeedsReview() {
			listing.ProcessingStatus = models.StatusDuplicateCheckNeeded
			return true
		}
		return false
	}

	address, confidence := d.suggestAddress(addresses, listing)
	if address == nil {
		return false
	}

	listing.AddressID = &address.ID
	listing.AddressMatchConfidence = confidence
	if confidence.NeedsReview() {
		listing.ProcessingStatus = models.StatusAddressNeeded
	} else {
		listing.ProcessingStatus = models.StatusDuplicateCheckNeeded
	}
	return true
}

func containsListing(listings []*models.Listing, target *models.Listing) bool {
	for _, listing := range listings {
		if listing == target {
			return true
		}
	}
	return false
}
