// Package dedup groups listings that likely describe the same physical unit
// and proposes address assignments for unresolved listings.
package dedup

import (
	"context"

	"propstack/server/internal/models"
)

// Strategy names accepted by the engine's detect-duplicates operation.
const (
	StrategyBasic    = "basic"
	StrategyAdvanced = "advanced"
)

// Result is the common output contract both strategies honor, so the
// consolidation step stays strategy-agnostic. A detector never persists
// anything; the caller decides what survives.
type Result struct {
	Processed       int                        `json:"processed"`
	Merged          int                        `json:"merged"`
	Failed          int                        `json:"failed"`
	UpdatedListings []*models.Listing          `json:"updated_listings"`
	NewObjects      []*models.RealEstateObject `json:"new_real_estate_objects"`
}

// Detector is one interchangeable duplicate-detection strategy. A failure
// on one listing must not abort the batch: implementations record it and
// continue, and a context deadline yields the partial result accumulated so
// far rather than an error.
type Detector interface {
	Name() string
	Process(ctx context.Context, listings []*models.Listing, areaID string) (*Result, error)
}
