package models

type StatusSummary struct {
	Status          BookingStatus `json:"status"`
	Count           int           `json:"count"`
	TotalAmount     float64       `json:"totalAmount"`
	AdvanceReceived float64       `json:"advanceReceived"`
	Balance         float64       `json:"balance"`
}

type ExpenseSummary struct {
	Type   ExpenseType `json:"type"`
	Count  int         `json:"count"`
	Amount float64     `json:"amount"`
}

type FinanceSummary struct {
	From                  string           `json:"from,omitempty"`
	To                    string           `json:"to,omitempty"`
	BookingCount          int              `json:"bookingCount"`
	Revenue               float64          `json:"revenue"`
	AdvanceReceived       float64          `json:"advanceReceived"`
	OutstandingBalance    float64          `json:"outstandingBalance"`
	Expenses              []ExpenseSummary `json:"expenses"`
	ExpenseTotal          float64          `json:"expenseTotal"`
	FieldCollections      float64          `json:"fieldCollections"`
	DriverPayments        float64          `json:"driverPayments"`
	DriverPaymentsSettled float64          `json:"driverPaymentsSettled"`
	CustomerReceipts      float64          `json:"customerReceipts"`
	NetIncome             float64          `json:"netIncome"`
}
