package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	intdb "fleetops/internal/db"
	"fleetops/internal/domain"
	"fleetops/internal/domain/models"
	"fleetops/internal/events"
	"fleetops/internal/repositories"
	"fleetops/internal/utils"
)

// DriverPaymentCSVHeader is the fixed column order of the driver payment export.
var DriverPaymentCSVHeader = []string{
	"id", "bookingId", "driverId", "mode", "amount", "description", "date",
	"fuelQuantity", "fuelRate", "computedAmount", "settled", "settledAt",
}

// PaymentService is the general ledger plus driver payments scoped to bookings.
type PaymentService struct {
	DB        *sql.DB
	RequestID string
	Events    events.Publisher
	Now       func() time.Time
}

func (s PaymentService) db() *sql.DB {
	return sharedDB(s.DB)
}

func (s PaymentService) payments() repositories.PaymentRepository {
	return repositories.PaymentRepository{DB: handle(s.db())}
}

func validatePaymentInput(in models.PaymentInput) error {
	if !in.EntityType.Valid() {
		return domain.Invalid("entityType", "tidak valid")
	}
	if in.EntityID <= 0 {
		return domain.Invalid("entityId", "wajib diisi")
	}
	if !in.Type.Valid() {
		return domain.Invalid("type", "tidak valid")
	}
	if err := nonNegative("amount", in.Amount); err != nil {
		return err
	}
	if in.RelatedAdvanceID != nil && *in.RelatedAdvanceID <= 0 {
		return domain.Invalid("relatedAdvanceId", "tidak valid")
	}
	return nil
}

// CreateGeneralPayment posts a ledger row and its side effect in one
// transaction: customer receipts reduce the company's outstanding amount,
// driver payouts tied to an advance settle it.
func (s PaymentService) CreateGeneralPayment(ctx context.Context, in models.PaymentInput) (models.Payment, error) {
	if err := validatePaymentInput(in); err != nil {
		return models.Payment{}, err
	}
	now := clock(s.Now)
	date := in.Date
	if date.IsZero() {
		date = now
	}

	p := models.Payment{
		EntityType:       in.EntityType,
		EntityID:         in.EntityID,
		Amount:           in.Amount,
		Type:             in.Type,
		Date:             date.UTC(),
		Description:      strings.TrimSpace(in.Description),
		RelatedAdvanceID: in.RelatedAdvanceID,
		BookingID:        in.BookingID,
		CreatedAt:        now,
	}

	err := intdb.WithTx(ctx, s.db(), func(tx intdb.DBTX) error {
		id, err := repositories.PaymentRepository{DB: tx}.Insert(ctx, p)
		if err != nil {
			return err
		}
		p.ID = id

		switch {
		case p.EntityType == models.EntityCustomer && p.Type == models.PaymentReceived:
			ok, err := repositories.CompanyRepository{DB: tx}.DecrementOutstanding(ctx, p.EntityID, p.Amount)
			if err != nil {
				return err
			}
			if !ok {
				utils.LogEvent(s.RequestID, "payments", "outstanding_skip", fmt.Sprintf("company_id=%d not found", p.EntityID))
			}
		case p.EntityType == models.EntityDriver && p.Type == models.PaymentPaid && p.RelatedAdvanceID != nil:
			if _, err := (repositories.DriverRepository{DB: tx}).SettleAdvance(ctx, p.EntityID, *p.RelatedAdvanceID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Payment{}, wrapInternal(err)
	}

	utils.LogEvent(s.RequestID, "payments", "create", fmt.Sprintf("payment_id=%d entity=%s/%d type=%s", p.ID, p.EntityType, p.EntityID, p.Type))
	publish(ctx, s.Events, s.RequestID, events.PaymentPosted, p)
	return p, nil
}

func (s PaymentService) ListGeneralPayments(ctx context.Context, page, pageSize int) (domain.Page[models.Payment], error) {
	pg := domain.NormalizePage(page, pageSize)
	list, total, err := s.payments().List(ctx, pg.PageSize, pg.Offset())
	if err != nil {
		return domain.Page[models.Payment]{}, domain.InternalError{Err: err}
	}
	pg.Total = total
	return domain.Page[models.Payment]{Data: list, Pagination: pg}, nil
}

func validateDriverPaymentInput(in models.DriverPaymentInput) error {
	if !in.Mode.Valid() {
		return domain.Invalid("mode", "tidak valid")
	}
	return optionalNonNegative(map[string]*float64{
		"amount":       in.Amount,
		"fuelQuantity": in.FuelQuantity,
		"fuelRate":     in.FuelRate,
		"distanceKm":   in.DistanceKm,
		"mileage":      in.Mileage,
	})
}

func optionalNonNegative(fields map[string]*float64) error {
	for _, name := range []string{"amount", "fuelQuantity", "fuelRate", "distanceKm", "mileage"} {
		if v := fields[name]; v != nil && *v < 0 {
			return domain.Invalid(name, "tidak boleh negatif")
		}
	}
	return nil
}

// CreateDriverBookingPayment posts a driver payout scoped to a booking. The
// payee is the booking's driver, or the supplied driver when the booking has none.
func (s PaymentService) CreateDriverBookingPayment(ctx context.Context, bookingID int64, in models.DriverPaymentInput) (models.Payment, error) {
	if bookingID <= 0 {
		return models.Payment{}, domain.Invalid("bookingId", "id tidak valid")
	}
	if err := validateDriverPaymentInput(in); err != nil {
		return models.Payment{}, err
	}

	assigned, err := repositories.BookingRepository{DB: handle(s.db())}.DriverID(ctx, bookingID)
	if err != nil {
		return models.Payment{}, lookupErr(err, "booking")
	}
	if assigned != nil && in.DriverID != nil && *assigned != *in.DriverID {
		return models.Payment{}, domain.Invalid("driverId", "driver mismatch")
	}

	var driverID int64
	switch {
	case assigned != nil:
		driverID = *assigned
	case in.DriverID != nil && *in.DriverID > 0:
		driverID = *in.DriverID
	default:
		return models.Payment{}, domain.Invalid("driverId", "wajib diisi")
	}

	resolved := resolveDriverAmount(in.Mode, in.Amount, in.FuelQuantity, in.FuelRate, in.DistanceKm, in.Mileage)
	now := clock(s.Now)
	mode := in.Mode
	p := models.Payment{
		EntityType:     models.EntityDriver,
		EntityID:       driverID,
		Amount:         resolved.Amount,
		Type:           models.PaymentPaid,
		Date:           now,
		Description:    strings.TrimSpace(in.Description),
		BookingID:      &bookingID,
		Mode:           &mode,
		FuelQuantity:   resolved.FuelQuantity,
		FuelRate:       in.FuelRate,
		ComputedAmount: resolved.ComputedAmount,
		DistanceKm:     in.DistanceKm,
		Mileage:        in.Mileage,
		CreatedAt:      now,
	}

	id, err := s.payments().Insert(ctx, p)
	if err != nil {
		return models.Payment{}, domain.InternalError{Err: err}
	}
	p.ID = id

	utils.LogEvent(s.RequestID, "payments", "create_driver_payment", fmt.Sprintf("payment_id=%d booking_id=%d driver_id=%d mode=%s", id, bookingID, driverID, mode))
	publish(ctx, s.Events, s.RequestID, events.PaymentPosted, p)
	return p, nil
}

func (s PaymentService) ListDriverBookingPayments(ctx context.Context, bookingID int64) ([]models.Payment, error) {
	if bookingID <= 0 {
		return nil, domain.Invalid("bookingId", "id tidak valid")
	}
	list, err := s.payments().ListDriverByBooking(ctx, bookingID)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	return list, nil
}

// UpdateDriverBookingPayment patches an entry. Fuel-basis entries are
// re-priced; Settle marks the entry settled at the current time.
func (s PaymentService) UpdateDriverBookingPayment(ctx context.Context, bookingID, paymentID int64, upd models.DriverPaymentUpdate) (models.Payment, error) {
	if bookingID <= 0 || paymentID <= 0 {
		return models.Payment{}, domain.Invalid("id", "id tidak valid")
	}
	if upd.Mode != nil && !upd.Mode.Valid() {
		return models.Payment{}, domain.Invalid("mode", "tidak valid")
	}
	if err := optionalNonNegative(map[string]*float64{
		"amount":       upd.Amount,
		"fuelQuantity": upd.FuelQuantity,
		"fuelRate":     upd.FuelRate,
		"distanceKm":   upd.DistanceKm,
		"mileage":      upd.Mileage,
	}); err != nil {
		return models.Payment{}, err
	}

	repo := s.payments()
	p, err := repo.FindDriverByBooking(ctx, bookingID, paymentID)
	if err != nil {
		return models.Payment{}, lookupErr(err, "payment")
	}

	applyDriverPaymentUpdate(&p, upd, clock(s.Now))

	if err := repo.UpdateDriverPayment(ctx, p); err != nil {
		return models.Payment{}, domain.InternalError{Err: err}
	}
	utils.LogEvent(s.RequestID, "payments", "update_driver_payment", fmt.Sprintf("payment_id=%d settled=%t", p.ID, p.Settled))
	return p, nil
}

func applyDriverPaymentUpdate(p *models.Payment, upd models.DriverPaymentUpdate, now time.Time) {
	if upd.Mode != nil {
		m := *upd.Mode
		p.Mode = &m
	}
	if upd.FuelRate != nil {
		p.FuelRate = upd.FuelRate
	}
	if upd.DistanceKm != nil {
		p.DistanceKm = upd.DistanceKm
	}
	if upd.Mileage != nil {
		p.Mileage = upd.Mileage
	}
	switch {
	case upd.FuelQuantity != nil:
		p.FuelQuantity = upd.FuelQuantity
	case upd.DistanceKm != nil || upd.Mileage != nil, storedDerivedQuantity(*p):
		// re-derive from distance/mileage
		p.FuelQuantity = nil
	}
	if upd.Amount != nil {
		p.Amount = *upd.Amount
	}
	if upd.Description != nil {
		p.Description = strings.TrimSpace(*upd.Description)
	}

	if p.Mode != nil && *p.Mode == models.ModeFuelBasis {
		resolved := resolveDriverAmount(*p.Mode, &p.Amount, p.FuelQuantity, p.FuelRate, p.DistanceKm, p.Mileage)
		p.FuelQuantity = resolved.FuelQuantity
		if resolved.ComputedAmount != nil {
			p.ComputedAmount = resolved.ComputedAmount
			p.Amount = *resolved.ComputedAmount
		}
	}

	if upd.Settle {
		p.Settled = true
		at := now
		p.SettledAt = &at
	}
}

// storedDerivedQuantity reports whether the persisted quantity is the
// distance/mileage quotient cut to the column's 3 dp.
func storedDerivedQuantity(p models.Payment) bool {
	if p.FuelQuantity == nil || p.DistanceKm == nil || p.Mileage == nil || *p.Mileage <= 0 {
		return false
	}
	q := decimal.NewFromFloat(*p.DistanceKm).Div(decimal.NewFromFloat(*p.Mileage)).Round(3)
	return q.Equal(decimal.NewFromFloat(*p.FuelQuantity))
}

// DeleteDriverBookingPayment reports whether a row was removed.
func (s PaymentService) DeleteDriverBookingPayment(ctx context.Context, bookingID, paymentID int64) (bool, error) {
	if bookingID <= 0 || paymentID <= 0 {
		return false, domain.Invalid("id", "id tidak valid")
	}
	removed, err := s.payments().DeleteDriverPayment(ctx, bookingID, paymentID)
	if err != nil {
		return false, domain.InternalError{Err: err}
	}
	if removed {
		utils.LogEvent(s.RequestID, "payments", "delete_driver_payment", fmt.Sprintf("payment_id=%d booking_id=%d", paymentID, bookingID))
	}
	return removed, nil
}

// ExportDriverBookingPayments renders the booking's driver payments as CSV.
func (s PaymentService) ExportDriverBookingPayments(ctx context.Context, bookingID int64) ([]byte, error) {
	list, err := s.ListDriverBookingPayments(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	out, err := encodeDriverPaymentsCSV(list)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	return out, nil
}

func encodeDriverPaymentsCSV(list []models.Payment) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(DriverPaymentCSVHeader); err != nil {
		return nil, err
	}
	for _, p := range list {
		if err := w.Write(driverPaymentRecord(p)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func driverPaymentRecord(p models.Payment) []string {
	bookingID := ""
	if p.BookingID != nil {
		bookingID = strconv.FormatInt(*p.BookingID, 10)
	}
	mode := ""
	if p.Mode != nil {
		mode = string(*p.Mode)
	}
	settledAt := ""
	if p.SettledAt != nil {
		settledAt = utils.FormatTimestamp(*p.SettledAt)
	}
	return []string{
		strconv.FormatInt(p.ID, 10),
		bookingID,
		strconv.FormatInt(p.EntityID, 10),
		mode,
		utils.FormatNumber(p.Amount),
		p.Description,
		utils.FormatTimestamp(p.Date),
		utils.FormatOptionalNumber(p.FuelQuantity),
		utils.FormatOptionalNumber(p.FuelRate),
		utils.FormatOptionalNumber(p.ComputedAmount),
		strconv.FormatBool(p.Settled),
		settledAt,
	}
}
