package models

import "time"

// ListingStatus tracks whether an advertisement is still on the market.
type ListingStatus string

const (
	ListingActive   ListingStatus = "active"
	ListingArchived ListingStatus = "archived"
)

// ProcessingStatus is a listing's position in the address-resolution and
// deduplication pipeline. Transitions only move forward
// (address_needed -> duplicate_check_needed -> processed), except that
// splitting an object resets its listings to duplicate_check_needed.
type ProcessingStatus string

const (
	StatusAddressNeeded        ProcessingStatus = "address_needed"
	StatusDuplicateCheckNeeded ProcessingStatus = "duplicate_check_needed"
	StatusProcessed            ProcessingStatus = "processed"
)

// AddressConfidence is the trust tier for a listing's inferred address.
// "manual" is a human confirmation and must never be overridden
// automatically.
type AddressConfidence string

const (
	ConfidenceNone    AddressConfidence = "none"
	ConfidenceVeryLow AddressConfidence = "very_low"
	ConfidenceLow     AddressConfidence = "low"
	ConfidenceManual  AddressConfidence = "manual"
	ConfidenceHigh    AddressConfidence = "high"
)

// NeedsReview reports whether the address assignment behind this confidence
// tier still requires a human decision.
func (c AddressConfidence) NeedsReview() bool {
	return c == ConfidenceVeryLow || c == ConfidenceLow
}

// Address is immutable reference data resolved upstream of this engine.
type Address struct {
	ID           string  `json:"id" gorm:"primaryKey"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	BuildingType string  `json:"building_type"`
	Floors       *int    `json:"floors"`
}

// Listing is a single scraped advertisement. ObjectID is a back-reference
// only: it is set exactly when the listing has been merged into one object,
// and ownership of price data moves to that object.
type Listing struct {
	ID                     string            `json:"id" gorm:"primaryKey"`
	AddressID              *string           `json:"address_id"`
	Latitude               *float64          `json:"latitude"`
	Longitude              *float64          `json:"longitude"`
	Price                  float64           `json:"price"`
	AreaTotal              float64           `json:"area_total"`
	Floor                  *int              `json:"floor"`
	FloorsTotal            *int              `json:"floors_total"`
	PropertyType           string            `json:"property_type"`
	Seller                 string            `json:"seller"`
	Status                 ListingStatus     `json:"status"`
	ProcessingStatus       ProcessingStatus  `json:"processing_status"`
	AddressMatchConfidence AddressConfidence `json:"address_match_confidence"`
	ObjectID               *string           `json:"object_id"`
	CreatedAt              time.Time         `json:"created_at"`
	UpdatedAt              time.Time         `json:"updated_at"`
}

// HasCoordinates reports whether the listing can be spatially indexed.
func (l *Listing) HasCoordinates() bool {
	return l.Latitude != nil && l.Longitude != nil
}

// RecordID implements the store record contract.
func (l *Listing) RecordID() string { return l.ID }

// RecordID implements the store record contract.
func (a *Address) RecordID() string { return a.ID }
