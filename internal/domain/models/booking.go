package models

import "time"

type BookingStatus string

const (
	StatusBooked     BookingStatus = "booked"
	StatusOngoing    BookingStatus = "ongoing"
	StatusCompleted  BookingStatus = "completed"
	StatusYetToStart BookingStatus = "yet-to-start"
	StatusCanceled   BookingStatus = "canceled"
)

// Valid reports whether s is a known status. Any known status may follow any
// other; transitions are not restricted.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusBooked, StatusOngoing, StatusCompleted, StatusYetToStart, StatusCanceled:
		return true
	}
	return false
}

type JourneyType string

const (
	JourneyOneWay     JourneyType = "one-way"
	JourneyRoundTrip  JourneyType = "round-trip"
	JourneyLocal      JourneyType = "local"
	JourneyOutstation JourneyType = "outstation"
	JourneyAirport    JourneyType = "airport"
)

func (j JourneyType) Valid() bool {
	switch j {
	case JourneyOneWay, JourneyRoundTrip, JourneyLocal, JourneyOutstation, JourneyAirport:
		return true
	}
	return false
}

type ExpenseType string

const (
	ExpenseFuel            ExpenseType = "fuel"
	ExpenseToll            ExpenseType = "toll"
	ExpenseParking         ExpenseType = "parking"
	ExpenseDriverAllowance ExpenseType = "driver-allowance"
	ExpenseMaintenance     ExpenseType = "maintenance"
	ExpenseOther           ExpenseType = "other"
)

func (e ExpenseType) Valid() bool {
	switch e {
	case ExpenseFuel, ExpenseToll, ExpenseParking, ExpenseDriverAllowance, ExpenseMaintenance, ExpenseOther:
		return true
	}
	return false
}

// Booking is one customer trip engagement together with everything it owns.
type Booking struct {
	ID int64 `json:"id"`

	CustomerName  string `json:"customerName"`
	CustomerPhone string `json:"customerPhone"`
	CustomerID    *int64 `json:"customerId,omitempty"`
	CompanyID     *int64 `json:"companyId,omitempty"`
	VehicleID     *int64 `json:"vehicleId,omitempty"`
	DriverID      *int64 `json:"driverId,omitempty"`

	Customer *CustomerRef `json:"customer,omitempty"`
	Company  *CompanyRef  `json:"company,omitempty"`
	Vehicle  *VehicleRef  `json:"vehicle,omitempty"`
	Driver   *DriverRef   `json:"driver,omitempty"`

	Source         string      `json:"source"`
	PickupLocation string      `json:"pickupLocation"`
	DropLocation   string      `json:"dropLocation"`
	JourneyType    JourneyType `json:"journeyType"`
	StartDate      time.Time   `json:"startDate"`
	EndDate        time.Time   `json:"endDate"`

	TariffRate      float64 `json:"tariffRate"`
	TotalAmount     float64 `json:"totalAmount"`
	AdvanceReceived float64 `json:"advanceReceived"`
	Balance         float64 `json:"balance"`

	Status        BookingStatus    `json:"status"`
	StatusHistory []StatusChange   `json:"statusHistory"`
	Expenses      []Expense        `json:"expenses"`
	DutySlips     []DutySlip       `json:"dutySlips"`
	Payments      []BookingPayment `json:"payments"`
	Billed        bool             `json:"billed"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type StatusChange struct {
	Status    BookingStatus `json:"status"`
	Timestamp time.Time     `json:"timestamp"`
	ChangedBy string        `json:"changedBy"`
}

type Expense struct {
	Type        ExpenseType `json:"type"`
	Amount      float64     `json:"amount"`
	Description string      `json:"description"`
	Receipt     string      `json:"receipt,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

type DutySlip struct {
	Path        string    `json:"path"`
	UploadedBy  string    `json:"uploadedBy"`
	UploadedAt  time.Time `json:"uploadedAt"`
	Description string    `json:"description,omitempty"`
}

// BookingPayment is money collected in the field. It is a parallel record and
// never feeds balance or the general ledger.
type BookingPayment struct {
	Amount      float64   `json:"amount"`
	Comments    string    `json:"comments,omitempty"`
	CollectedBy string    `json:"collectedBy,omitempty"`
	PaidOn      time.Time `json:"paidOn"`
}

type CustomerRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

type CompanyRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type VehicleRef struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	RegistrationNumber string `json:"registrationNumber,omitempty"`
}

type DriverRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// BookingInput is a validated create payload.
type BookingInput struct {
	CustomerName    string
	CustomerPhone   string
	CustomerID      *int64
	CompanyID       *int64
	VehicleID       *int64
	DriverID        *int64
	Source          string
	PickupLocation  string
	DropLocation    string
	JourneyType     JourneyType
	StartDate       time.Time
	EndDate         time.Time
	TariffRate      float64
	TotalAmount     float64
	AdvanceReceived float64
}

// BookingPatch holds one optional slot per updatable field. Nil means "leave
// unchanged".
type BookingPatch struct {
	CustomerName    *string
	CustomerPhone   *string
	CustomerID      *int64
	CompanyID       *int64
	VehicleID       *int64
	DriverID        *int64
	Source          *string
	PickupLocation  *string
	DropLocation    *string
	JourneyType     *JourneyType
	StartDate       *time.Time
	EndDate         *time.Time
	TariffRate      *float64
	TotalAmount     *float64
	AdvanceReceived *float64
	Billed          *bool
	Status          *BookingStatus
	StatusChangedBy string
}

// TouchesBalance reports whether the patch changes an operand of balance.
func (p BookingPatch) TouchesBalance() bool {
	return p.TotalAmount != nil || p.AdvanceReceived != nil
}

// BookingFilter narrows List results.
type BookingFilter struct {
	Status    BookingStatus
	Source    string
	StartFrom *time.Time
	EndUntil  *time.Time
	DriverID  *int64
	Page      int
	PageSize  int
}
