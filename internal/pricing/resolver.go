// Package pricing answers "what did this object cost at date D" from its
// reconstructed price history.
package pricing

import (
	"sort"
	"time"

	"propstack/server/internal/models"
)

// Resolver reconstructs time-sliced prices from an object's history. It is
// pure: identical (object, date) inputs always produce the same answer.
type Resolver struct{}

// NewResolver creates a price resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

// PriceAtDate returns the object's price as of the given date: the latest
// observation at or before the date, the earliest observation when the date
// precedes all history, and current_price when history is empty. Exact
// observed values only, no interpolation. The history is re-sorted
// defensively; a violated ordering invariant must not crash the resolver.
func (r *Resolver) PriceAtDate(object *models.RealEstateObject, date time.Time) float64 {
	if len(object.PriceHistory) == 0 {
		return object.CurrentPrice
	}

	history := make(models.PriceHistory, len(object.PriceHistory))
	copy(history, object.PriceHistory)
	sort.Slice(history, func(i, j int) bool { return history[i].Date.Before(history[j].Date) })

	price := history[0].Price
	found := false
	for _, point := range history {
		if point.Date.After(date) {
			break
		}
		price = point.Price
		found = true
	}
	if !found {
		return history[0].Price
	}
	return price
}

// PricePerMeterAtDate derives the per-meter price at a date from the total
// price and area. Falls back to the stored price_per_meter when the area is
// unknown, and to zero when nothing is known.
func (r *Resolver) PricePerMeterAtDate(object *models.RealEstateObject, date time.Time) float64 {
	if object.AreaTotal > 0 {
		return r.PriceAtDate(object, date) / object.AreaTotal
	}
	if object.PricePerMeter > 0 {
		return object.PricePerMeter
	}
	return 0
}
