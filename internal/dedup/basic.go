package dedup

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"propstack/server/internal/consolidation"
	"propstack/server/internal/models"
)

// BasicDetector groups listings that already resolve to the same address
// and property type. Listings without a resolved address are left for the
// advanced strategy or manual review.
type BasicDetector struct {
	logger *logrus.Logger
}

// NewBasicDetector creates the basic strategy.
func NewBasicDetector(logger *logrus.Logger) *BasicDetector {
	return &BasicDetector{logger: logger}
}

// Name returns the strategy identifier callers select by.
func (d *BasicDetector) Name() string { return StrategyBasic }

// Process groups the given listings by (address, property type) and builds
// one proposed object per group of two or more. A context deadline stops
// the scan and returns whatever was accumulated.
func (d *BasicDetector) Process(ctx context.Context, listings []*models.Listing, areaID string) (*Result, error) {
	result := &Result{}
	groups := make(map[string][]*models.Listing)

	for _, listing := range listings {
		if ctx.Err() != nil {
			d.logger.WithField("area_id", areaID).Warn("Basic detection stopped early, returning partial result")
			break
		}
		if listing.ProcessingStatus != models.StatusDuplicateCheckNeeded {
			continue
		}
		result.Processed++

		if listing.AddressID == nil || *listing.AddressID == "" {
			// Nothing to group on; leave it in the pipeline.
			continue
		}
		key := fmt.Sprintf("%s|%s", *listing.AddressID, listing.PropertyType)
		groups[key] = append(groups[key], listing)
	}

	for _, group := range groups {
		if len(group) < 2 {
			continue
		}
		object := consolidation.BuildObjectFromListings(group, *group[0].AddressID)
		result.NewObjects = append(result.NewObjects, object)

		for _, listing := range group {
			listing.ObjectID = &object.ID
			listing.ProcessingStatus = models.StatusProcessed
			result.UpdatedListings = append(result.UpdatedListings, listing)
			result.Merged++
		}
	}

	return result, nil
}
