package models

type Company struct {
	ID                int64   `json:"id"`
	Name              string  `json:"name"`
	OutstandingAmount float64 `json:"outstandingAmount"`
}
