package catalog

import "time"

const (
	ProductStatusActive   = "active"
	ProductStatusDisabled = "disabled"
)

// Product is the authoritative catalog record. Price is an integer amount in
// the store's display unit; DiscountPercent is 0 when no discount applies.
type Product struct {
	ID              string
	StoreID         string
	Name            string
	Price           int64
	DiscountPercent float64
	Status          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
