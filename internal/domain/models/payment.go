package models

import "time"

type EntityType string

const (
	EntityCustomer EntityType = "customer"
	EntityDriver   EntityType = "driver"
)

func (e EntityType) Valid() bool {
	return e == EntityCustomer || e == EntityDriver
}

type PaymentType string

const (
	PaymentReceived PaymentType = "received"
	PaymentPaid     PaymentType = "paid"
)

func (p PaymentType) Valid() bool {
	return p == PaymentReceived || p == PaymentPaid
}

type DriverPaymentMode string

const (
	ModePerTrip   DriverPaymentMode = "per-trip"
	ModeDaily     DriverPaymentMode = "daily"
	ModeFuelBasis DriverPaymentMode = "fuel-basis"
)

func (m DriverPaymentMode) Valid() bool {
	switch m {
	case ModePerTrip, ModeDaily, ModeFuelBasis:
		return true
	}
	return false
}

// Payment is one ledger entry.
type Payment struct {
	ID               int64              `json:"id"`
	EntityType       EntityType         `json:"entityType"`
	EntityID         int64              `json:"entityId"`
	Amount           float64            `json:"amount"`
	Type             PaymentType        `json:"type"`
	Date             time.Time          `json:"date"`
	Description      string             `json:"description,omitempty"`
	RelatedAdvanceID *int64             `json:"relatedAdvanceId,omitempty"`
	BookingID        *int64             `json:"bookingId,omitempty"`
	Mode             *DriverPaymentMode `json:"driverPaymentMode,omitempty"`
	FuelQuantity     *float64           `json:"fuelQuantity,omitempty"`
	FuelRate         *float64           `json:"fuelRate,omitempty"`
	ComputedAmount   *float64           `json:"computedAmount,omitempty"`
	DistanceKm       *float64           `json:"distanceKm,omitempty"`
	Mileage          *float64           `json:"mileage,omitempty"`
	Settled          bool               `json:"settled"`
	SettledAt        *time.Time         `json:"settledAt,omitempty"`
	CreatedAt        time.Time          `json:"createdAt"`
}

// PaymentInput is a validated general ledger posting.
type PaymentInput struct {
	EntityType       EntityType
	EntityID         int64
	Amount           float64
	Type             PaymentType
	Date             time.Time
	Description      string
	RelatedAdvanceID *int64
	BookingID        *int64
}

// DriverPaymentInput is a driver payment scoped to one booking.
type DriverPaymentInput struct {
	DriverID     *int64
	Mode         DriverPaymentMode
	Amount       *float64
	FuelQuantity *float64
	FuelRate     *float64
	DistanceKm   *float64
	Mileage      *float64
	Description  string
}

// DriverPaymentUpdate patches a driver booking payment. Settle is a command,
// not a stored field.
type DriverPaymentUpdate struct {
	Mode         *DriverPaymentMode
	Amount       *float64
	FuelQuantity *float64
	FuelRate     *float64
	DistanceKm   *float64
	Mileage      *float64
	Description  *string
	Settle       bool
}
