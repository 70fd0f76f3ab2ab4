package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ObjectStatus tracks whether a consolidated object still has active
// listings behind it.
type ObjectStatus string

const (
	ObjectActive  ObjectStatus = "active"
	ObjectArchive ObjectStatus = "archive"
)

// PricePoint is a single observed price for an object at a given date.
type PricePoint struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// PriceHistory is a chronological, append-only sequence of price
// observations. Stored as a JSON column.
type PriceHistory []PricePoint

// Value implements driver.Valuer for the sqlite store.
func (h PriceHistory) Value() (driver.Value, error) {
	if h == nil {
		return "[]", nil
	}
	data, err := json.Marshal(h)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// Scan implements sql.Scanner for the sqlite store.
func (h *PriceHistory) Scan(value interface{}) error {
	if value == nil {
		*h = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, h)
	case string:
		return json.Unmarshal([]byte(v), h)
	default:
		return fmt.Errorf("unsupported price history column type %T", value)
	}
}

// RealEstateObject is a consolidated physical unit formed by merging one or
// more listings. It is the authoritative unit for price corridor
// computation; its price history is only ever appended to.
type RealEstateObject struct {
	ID                  string       `json:"id" gorm:"primaryKey"`
	AddressID           string       `json:"address_id"`
	PropertyType        string       `json:"property_type"`
	Status              ObjectStatus `json:"status"`
	CurrentPrice        float64      `json:"current_price"`
	PricePerMeter       float64      `json:"price_per_meter"`
	AreaTotal           float64      `json:"area_total"`
	PriceHistory        PriceHistory `json:"price_history" gorm:"type:text"`
	ListingsCount       int          `json:"listings_count"`
	ActiveListingsCount int          `json:"active_listings_count"`
	CreatedAt           time.Time    `json:"created_at"`
	UpdatedAt           time.Time    `json:"updated_at"`
}

// RecordID implements the store record contract.
func (o *RealEstateObject) RecordID() string { return o.ID }
