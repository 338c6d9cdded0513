package services

import (
	"context"
	"database/sql"
	"fmt"
	"mime/multipart"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	intdb "fleetops/internal/db"
	"fleetops/internal/domain"
	"fleetops/internal/domain/models"
	"fleetops/internal/events"
	"fleetops/internal/repositories"
	"fleetops/internal/storage"
	"fleetops/internal/utils"
)

// BookingService owns the booking aggregate: its header fields, status
// history, expenses, duty slips and in-booking payments.
type BookingService struct {
	DB        *sql.DB
	RequestID string
	Events    events.Publisher
	Files     storage.FileStore
	Now       func() time.Time
}

func (s BookingService) db() *sql.DB {
	return sharedDB(s.DB)
}

func (s BookingService) bookings() repositories.BookingRepository {
	return repositories.BookingRepository{DB: handle(s.db())}
}

func (s BookingService) files() storage.FileStore {
	if s.Files != nil {
		return s.Files
	}
	return storage.NewLocalStore("", "")
}

func computeBalance(total, advance float64) float64 {
	return decimal.NewFromFloat(total).Sub(decimal.NewFromFloat(advance)).Round(2).InexactFloat64()
}

func validateBookingInput(in models.BookingInput) error {
	required := []struct{ field, value string }{
		{"customerName", in.CustomerName},
		{"customerPhone", in.CustomerPhone},
		{"source", in.Source},
		{"pickupLocation", in.PickupLocation},
		{"dropLocation", in.DropLocation},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return domain.Invalid(r.field, "wajib diisi")
		}
	}
	if !in.JourneyType.Valid() {
		return domain.Invalid("journeyType", "tidak valid")
	}
	if in.StartDate.IsZero() {
		return domain.Invalid("startDate", "wajib diisi")
	}
	if in.EndDate.IsZero() {
		return domain.Invalid("endDate", "wajib diisi")
	}
	if err := nonNegative("tariffRate", in.TariffRate); err != nil {
		return err
	}
	if err := nonNegative("totalAmount", in.TotalAmount); err != nil {
		return err
	}
	return nonNegative("advanceReceived", in.AdvanceReceived)
}

func validateBookingPatch(p models.BookingPatch) error {
	texts := []struct {
		field string
		value *string
	}{
		{"customerName", p.CustomerName},
		{"customerPhone", p.CustomerPhone},
		{"source", p.Source},
		{"pickupLocation", p.PickupLocation},
		{"dropLocation", p.DropLocation},
	}
	for _, t := range texts {
		if t.value != nil && strings.TrimSpace(*t.value) == "" {
			return domain.Invalid(t.field, "tidak boleh kosong")
		}
	}
	refs := []struct {
		field string
		value *int64
	}{
		{"customerId", p.CustomerID},
		{"companyId", p.CompanyID},
		{"vehicleId", p.VehicleID},
		{"driverId", p.DriverID},
	}
	for _, r := range refs {
		if r.value != nil && *r.value <= 0 {
			return domain.Invalid(r.field, "id tidak valid")
		}
	}
	if p.JourneyType != nil && !p.JourneyType.Valid() {
		return domain.Invalid("journeyType", "tidak valid")
	}
	if p.Status != nil && !p.Status.Valid() {
		return domain.Invalid("status", "tidak valid")
	}
	amounts := []struct {
		field string
		value *float64
	}{
		{"tariffRate", p.TariffRate},
		{"totalAmount", p.TotalAmount},
		{"advanceReceived", p.AdvanceReceived},
	}
	for _, a := range amounts {
		if a.value != nil {
			if err := nonNegative(a.field, *a.value); err != nil {
				return err
			}
		}
	}
	return nil
}

func nonNegative(field string, v float64) error {
	if v < 0 {
		return domain.Invalid(field, "tidak boleh negatif")
	}
	return nil
}

// Create stores a new booking with its seed history entry.
func (s BookingService) Create(ctx context.Context, in models.BookingInput) (models.Booking, error) {
	if err := validateBookingInput(in); err != nil {
		return models.Booking{}, err
	}
	now := clock(s.Now)

	b := models.Booking{
		CustomerName:    strings.TrimSpace(in.CustomerName),
		CustomerPhone:   strings.TrimSpace(in.CustomerPhone),
		CustomerID:      in.CustomerID,
		CompanyID:       in.CompanyID,
		VehicleID:       in.VehicleID,
		DriverID:        in.DriverID,
		Source:          strings.TrimSpace(in.Source),
		PickupLocation:  strings.TrimSpace(in.PickupLocation),
		DropLocation:    strings.TrimSpace(in.DropLocation),
		JourneyType:     in.JourneyType,
		StartDate:       in.StartDate.UTC(),
		EndDate:         in.EndDate.UTC(),
		TariffRate:      in.TariffRate,
		TotalAmount:     in.TotalAmount,
		AdvanceReceived: in.AdvanceReceived,
		Balance:         computeBalance(in.TotalAmount, in.AdvanceReceived),
		Status:          models.StatusBooked,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	var id int64
	err := intdb.WithTx(ctx, s.db(), func(tx intdb.DBTX) error {
		repo := repositories.BookingRepository{DB: tx}
		var err error
		if id, err = repo.Insert(ctx, b); err != nil {
			return err
		}
		return repo.AppendStatus(ctx, id, models.StatusChange{
			Status:    models.StatusBooked,
			Timestamp: now,
			ChangedBy: domain.SystemActor,
		})
	})
	if err != nil {
		return models.Booking{}, wrapInternal(err)
	}

	utils.LogEvent(s.RequestID, "bookings", "create", fmt.Sprintf("booking_id=%d", id))
	created, err := s.Get(ctx, id)
	if err != nil {
		return models.Booking{}, err
	}
	publish(ctx, s.Events, s.RequestID, events.BookingCreated, created)
	return created, nil
}

func (s BookingService) Get(ctx context.Context, id int64) (models.Booking, error) {
	if id <= 0 {
		return models.Booking{}, domain.Invalid("id", "id tidak valid")
	}
	b, err := s.bookings().FindByID(ctx, id)
	if err != nil {
		return models.Booking{}, lookupErr(err, "booking")
	}
	return b, nil
}

func (s BookingService) List(ctx context.Context, f models.BookingFilter) (domain.Page[models.Booking], error) {
	if f.Status != "" && !f.Status.Valid() {
		return domain.Page[models.Booking]{}, domain.Invalid("status", "tidak valid")
	}
	pg := domain.NormalizePage(f.Page, f.PageSize)
	list, total, err := s.bookings().List(ctx, f, pg.PageSize, pg.Offset())
	if err != nil {
		return domain.Page[models.Booking]{}, domain.InternalError{Err: err}
	}
	pg.Total = total
	return domain.Page[models.Booking]{Data: list, Pagination: pg}, nil
}

// Update applies a partial patch. A status slot is recorded in the history
// under actor, in the same transaction.
func (s BookingService) Update(ctx context.Context, id int64, patch models.BookingPatch) (models.Booking, error) {
	if id <= 0 {
		return models.Booking{}, domain.Invalid("id", "id tidak valid")
	}
	if err := validateBookingPatch(patch); err != nil {
		return models.Booking{}, err
	}
	now := clock(s.Now)

	err := intdb.WithTx(ctx, s.db(), func(tx intdb.DBTX) error {
		repo := repositories.BookingRepository{DB: tx}
		ok, err := repo.Update(ctx, id, patch, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NotFound("booking")
		}
		if patch.Status == nil {
			return nil
		}
		return repo.AppendStatus(ctx, id, models.StatusChange{
			Status:    *patch.Status,
			Timestamp: now,
			ChangedBy: actorOrSystem(patch.StatusChangedBy),
		})
	})
	if err != nil {
		return models.Booking{}, wrapInternal(err)
	}

	utils.LogEvent(s.RequestID, "bookings", "update", fmt.Sprintf("booking_id=%d", id))
	updated, err := s.Get(ctx, id)
	if err != nil {
		return models.Booking{}, err
	}
	if patch.Status != nil {
		publish(ctx, s.Events, s.RequestID, events.BookingStatusChanged, statusEvent(updated))
	}
	return updated, nil
}

func (s BookingService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return domain.Invalid("id", "id tidak valid")
	}
	ok, err := s.bookings().Delete(ctx, id)
	if err != nil {
		return domain.InternalError{Err: err}
	}
	if !ok {
		return domain.NotFound("booking")
	}
	utils.LogEvent(s.RequestID, "bookings", "delete", fmt.Sprintf("booking_id=%d", id))
	return nil
}

func (s BookingService) AddExpense(ctx context.Context, id int64, e models.Expense) (models.Booking, error) {
	if id <= 0 {
		return models.Booking{}, domain.Invalid("id", "id tidak valid")
	}
	if !e.Type.Valid() {
		return models.Booking{}, domain.Invalid("type", "tidak valid")
	}
	if err := nonNegative("amount", e.Amount); err != nil {
		return models.Booking{}, err
	}
	e.Description = strings.TrimSpace(e.Description)
	if e.Description == "" {
		return models.Booking{}, domain.Invalid("description", "wajib diisi")
	}
	e.Receipt = strings.TrimSpace(e.Receipt)
	e.CreatedAt = clock(s.Now)

	ok, err := s.bookings().AppendExpense(ctx, id, e)
	if err != nil {
		return models.Booking{}, domain.InternalError{Err: err}
	}
	if !ok {
		return models.Booking{}, domain.NotFound("booking")
	}
	utils.LogEvent(s.RequestID, "bookings", "add_expense", fmt.Sprintf("booking_id=%d type=%s", id, e.Type))
	return s.Get(ctx, id)
}

// SaveReceipt stores an expense receipt through the file relay.
func (s BookingService) SaveReceipt(ctx context.Context, id int64, fh *multipart.FileHeader) (string, error) {
	p, err := s.files().Save(ctx, fmt.Sprintf("receipts/%d", id), fh)
	if err != nil {
		return "", domain.InternalError{Err: err}
	}
	return p, nil
}

// UpdateStatus sets the current status and appends the history entry atomically.
// Any status may follow any other.
func (s BookingService) UpdateStatus(ctx context.Context, id int64, status models.BookingStatus, changedBy string) (models.Booking, error) {
	if id <= 0 {
		return models.Booking{}, domain.Invalid("id", "id tidak valid")
	}
	if !status.Valid() {
		return models.Booking{}, domain.Invalid("status", "tidak valid")
	}
	now := clock(s.Now)
	actor := actorOrSystem(changedBy)

	err := intdb.WithTx(ctx, s.db(), func(tx intdb.DBTX) error {
		repo := repositories.BookingRepository{DB: tx}
		ok, err := repo.SetStatus(ctx, id, status, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.NotFound("booking")
		}
		return repo.AppendStatus(ctx, id, models.StatusChange{Status: status, Timestamp: now, ChangedBy: actor})
	})
	if err != nil {
		return models.Booking{}, wrapInternal(err)
	}

	utils.LogEvent(s.RequestID, "bookings", "update_status", fmt.Sprintf("booking_id=%d status=%s by=%s", id, status, actor))
	b, err := s.Get(ctx, id)
	if err != nil {
		return models.Booking{}, err
	}
	publish(ctx, s.Events, s.RequestID, events.BookingStatusChanged, statusEvent(b))
	return b, nil
}

// UploadDutySlips stores every file and appends all entries in one write.
func (s BookingService) UploadDutySlips(ctx context.Context, id int64, files []*multipart.FileHeader, uploadedBy string) (models.Booking, error) {
	if id <= 0 {
		return models.Booking{}, domain.Invalid("id", "id tidak valid")
	}
	if len(files) == 0 {
		return models.Booking{}, domain.Invalid("files", "tidak ada file")
	}
	repo := s.bookings()
	exists, err := repo.Exists(ctx, id)
	if err != nil {
		return models.Booking{}, domain.InternalError{Err: err}
	}
	if !exists {
		return models.Booking{}, domain.NotFound("booking")
	}

	now := clock(s.Now)
	actor := actorOrSystem(uploadedBy)
	slips := make([]models.DutySlip, 0, len(files))
	saved := make([]string, 0, len(files))
	store := s.files()
	for _, fh := range files {
		p, err := store.Save(ctx, fmt.Sprintf("duty-slips/%d", id), fh)
		if err != nil {
			s.discardFiles(store, saved...)
			return models.Booking{}, domain.InternalError{Err: err}
		}
		saved = append(saved, p)
		slips = append(slips, models.DutySlip{
			Path:        p,
			UploadedBy:  actor,
			UploadedAt:  now,
			Description: "Duty slip uploaded on " + utils.FormatTimestamp(now),
		})
	}

	if err := repo.AppendDutySlips(ctx, id, slips); err != nil {
		s.discardFiles(store, saved...)
		return models.Booking{}, domain.InternalError{Err: err}
	}
	utils.LogEvent(s.RequestID, "bookings", "upload_duty_slips", fmt.Sprintf("booking_id=%d count=%d", id, len(slips)))
	return s.Get(ctx, id)
}

// DiscardUpload removes a stored file whose owning entry was never written.
func (s BookingService) DiscardUpload(publicPath string) {
	s.discardFiles(s.files(), publicPath)
}

// discardFiles runs detached from the request context, which may already be canceled.
func (s BookingService) discardFiles(store storage.FileStore, paths ...string) {
	for _, p := range paths {
		if err := store.Remove(context.Background(), p); err != nil {
			utils.LogEvent(s.RequestID, "bookings", "discard_file", fmt.Sprintf("path=%s err=%v", p, err))
		}
	}
}

// RemoveDutySlip drops every slip with exactly this path. No match is not an error.
func (s BookingService) RemoveDutySlip(ctx context.Context, id int64, path string) (models.Booking, error) {
	if id <= 0 {
		return models.Booking{}, domain.Invalid("id", "id tidak valid")
	}
	path = strings.TrimSpace(path)
	if path == "" {
		return models.Booking{}, domain.Invalid("path", "wajib diisi")
	}
	n, err := s.bookings().RemoveDutySlip(ctx, id, path)
	if err != nil {
		return models.Booking{}, domain.InternalError{Err: err}
	}
	utils.LogEvent(s.RequestID, "bookings", "remove_duty_slip", fmt.Sprintf("booking_id=%d removed=%d", id, n))
	return s.Get(ctx, id)
}

// AddPayment records field money on the booking. Balance and the general
// ledger are left alone.
func (s BookingService) AddPayment(ctx context.Context, id int64, p models.BookingPayment) (models.Booking, error) {
	if id <= 0 {
		return models.Booking{}, domain.Invalid("id", "id tidak valid")
	}
	if err := nonNegative("amount", p.Amount); err != nil {
		return models.Booking{}, err
	}
	if p.PaidOn.IsZero() {
		p.PaidOn = clock(s.Now)
	}
	p.PaidOn = p.PaidOn.UTC()
	p.Comments = strings.TrimSpace(p.Comments)
	p.CollectedBy = strings.TrimSpace(p.CollectedBy)

	ok, err := s.bookings().AppendPayment(ctx, id, p)
	if err != nil {
		return models.Booking{}, domain.InternalError{Err: err}
	}
	if !ok {
		return models.Booking{}, domain.NotFound("booking")
	}
	utils.LogEvent(s.RequestID, "bookings", "add_payment", fmt.Sprintf("booking_id=%d amount=%s", id, utils.FormatMoney(p.Amount)))
	return s.Get(ctx, id)
}

func (s BookingService) ListPayments(ctx context.Context, id int64) ([]models.BookingPayment, error) {
	if id <= 0 {
		return nil, domain.Invalid("id", "id tidak valid")
	}
	repo := s.bookings()
	exists, err := repo.Exists(ctx, id)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	if !exists {
		return nil, domain.NotFound("booking")
	}
	list, err := repo.ListPayments(ctx, id)
	if err != nil {
		return nil, domain.InternalError{Err: err}
	}
	return list, nil
}

func (s BookingService) SetBilled(ctx context.Context, id int64, billed bool) (models.Booking, error) {
	return s.Update(ctx, id, models.BookingPatch{Billed: &billed})
}

func actorOrSystem(actor string) string {
	if a := strings.TrimSpace(actor); a != "" {
		return a
	}
	return domain.SystemActor
}

type statusChangedEvent struct {
	BookingID int64                `json:"bookingId"`
	Status    models.BookingStatus `json:"status"`
	ChangedBy string               `json:"changedBy"`
	At        time.Time            `json:"at"`
}

func statusEvent(b models.Booking) statusChangedEvent {
	ev := statusChangedEvent{BookingID: b.ID, Status: b.Status}
	if n := len(b.StatusHistory); n > 0 {
		ev.ChangedBy = b.StatusHistory[n-1].ChangedBy
		ev.At = b.StatusHistory[n-1].Timestamp
	}
	return ev
}
