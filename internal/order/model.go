package order

import (
	"time"

	"vitrin-be/internal/pricing"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
	// StatusPaid is the terminal state of the payment workflow; fulfillment
	// transitions start from here.
	StatusPaid   Status = "paid"
	StatusFailed Status = "failed"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

type ShippingAddress struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
}

// Valid reports whether every required address field is present.
func (a ShippingAddress) Valid() bool {
	return a.Street != "" && a.City != "" && a.State != "" && a.PostalCode != ""
}

// Order is the committed record of one settled (or failed) payment attempt.
// Once PaymentStatus is completed, Items and TotalAmount never change.
type Order struct {
	ID      uuid.UUID
	UserID  uint
	StoreID string

	Items           []pricing.ValidatedLineItem
	TotalAmount     int64
	ShippingAddress ShippingAddress

	Status        Status
	PaymentStatus PaymentStatus

	// PaymentAuthority is the gateway's authorization handle; at most one
	// order ever exists per authority.
	PaymentAuthority string
	PaymentRefID     string
	PaymentCardPAN   string

	CreatedAt time.Time
	PaidAt    *time.Time
}
