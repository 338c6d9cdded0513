package models

import "time"

type Driver struct {
	ID       int64     `json:"id"`
	Name     string    `json:"name"`
	Phone    string    `json:"phone"`
	Advances []Advance `json:"advances"`
}

// Advance is cash handed to a driver ahead of settlement. Once settled it
// stays settled.
type Advance struct {
	ID          int64     `json:"id"`
	DriverID    int64     `json:"driverId"`
	Amount      float64   `json:"amount"`
	Date        time.Time `json:"date"`
	Settled     bool      `json:"settled"`
	Description string    `json:"description"`
}
