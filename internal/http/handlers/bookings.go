package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fleetops/internal/domain"
	"fleetops/internal/domain/models"
	"fleetops/internal/http/middleware"
	"fleetops/internal/services"
	"fleetops/internal/utils"
)

func bookingService(c *gin.Context) services.BookingService {
	d := currentDeps()
	return services.BookingService{
		DB:        d.DB,
		RequestID: middleware.GetRequestID(c),
		Events:    d.Events,
		Files:     d.Files,
	}
}

type bookingRequest struct {
	CustomerName    string   `json:"customerName"`
	CustomerPhone   string   `json:"customerPhone"`
	CustomerID      *int64   `json:"customerId"`
	CompanyID       *int64   `json:"companyId"`
	VehicleID       *int64   `json:"vehicleId"`
	DriverID        *int64   `json:"driverId"`
	Source          string   `json:"source"`
	PickupLocation  string   `json:"pickupLocation"`
	DropLocation    string   `json:"dropLocation"`
	JourneyType     string   `json:"journeyType"`
	StartDate       string   `json:"startDate"`
	EndDate         string   `json:"endDate"`
	TariffRate      *float64 `json:"tariffRate"`
	TotalAmount     *float64 `json:"totalAmount"`
	AdvanceReceived *float64 `json:"advanceReceived"`
}

// toInput converts wire values once, at the boundary.
func (r bookingRequest) toInput() (models.BookingInput, error) {
	in := models.BookingInput{
		CustomerName:   r.CustomerName,
		CustomerPhone:  r.CustomerPhone,
		CustomerID:     positiveOrNil(r.CustomerID),
		CompanyID:      positiveOrNil(r.CompanyID),
		VehicleID:      positiveOrNil(r.VehicleID),
		DriverID:       positiveOrNil(r.DriverID),
		Source:         r.Source,
		PickupLocation: r.PickupLocation,
		DropLocation:   r.DropLocation,
		JourneyType:    models.JourneyType(strings.TrimSpace(r.JourneyType)),
	}
	var err error
	if in.StartDate, err = requiredDate("startDate", r.StartDate); err != nil {
		return in, err
	}
	if in.EndDate, err = requiredDate("endDate", r.EndDate); err != nil {
		return in, err
	}
	amounts := []struct {
		field string
		src   *float64
		dst   *float64
	}{
		{"tariffRate", r.TariffRate, &in.TariffRate},
		{"totalAmount", r.TotalAmount, &in.TotalAmount},
		{"advanceReceived", r.AdvanceReceived, &in.AdvanceReceived},
	}
	for _, a := range amounts {
		if a.src == nil {
			return in, domain.Invalid(a.field, "wajib diisi")
		}
		*a.dst = *a.src
	}
	return in, nil
}

type bookingPatchRequest struct {
	CustomerName    *string  `json:"customerName"`
	CustomerPhone   *string  `json:"customerPhone"`
	CustomerID      *int64   `json:"customerId"`
	CompanyID       *int64   `json:"companyId"`
	VehicleID       *int64   `json:"vehicleId"`
	DriverID        *int64   `json:"driverId"`
	Source          *string  `json:"source"`
	PickupLocation  *string  `json:"pickupLocation"`
	DropLocation    *string  `json:"dropLocation"`
	JourneyType     *string  `json:"journeyType"`
	StartDate       *string  `json:"startDate"`
	EndDate         *string  `json:"endDate"`
	TariffRate      *float64 `json:"tariffRate"`
	TotalAmount     *float64 `json:"totalAmount"`
	AdvanceReceived *float64 `json:"advanceReceived"`
	Billed          *bool    `json:"billed"`
	Status          *string  `json:"status"`
	ChangedBy       string   `json:"changedBy"`
}

func (r bookingPatchRequest) toPatch(actor string) (models.BookingPatch, error) {
	p := models.BookingPatch{
		CustomerName:    r.CustomerName,
		CustomerPhone:   r.CustomerPhone,
		CustomerID:      r.CustomerID,
		CompanyID:       r.CompanyID,
		VehicleID:       r.VehicleID,
		DriverID:        r.DriverID,
		Source:          r.Source,
		PickupLocation:  r.PickupLocation,
		DropLocation:    r.DropLocation,
		TariffRate:      r.TariffRate,
		TotalAmount:     r.TotalAmount,
		AdvanceReceived: r.AdvanceReceived,
		Billed:          r.Billed,
		StatusChangedBy: utils.FirstNonEmpty(r.ChangedBy, actor),
	}
	if r.JourneyType != nil {
		jt := models.JourneyType(strings.TrimSpace(*r.JourneyType))
		p.JourneyType = &jt
	}
	if r.Status != nil {
		st := models.BookingStatus(strings.TrimSpace(*r.Status))
		p.Status = &st
	}
	if r.StartDate != nil {
		t, err := requiredDate("startDate", *r.StartDate)
		if err != nil {
			return p, err
		}
		p.StartDate = &t
	}
	if r.EndDate != nil {
		t, err := requiredDate("endDate", *r.EndDate)
		if err != nil {
			return p, err
		}
		p.EndDate = &t
	}
	return p, nil
}

func requiredDate(field, v string) (time.Time, error) {
	if strings.TrimSpace(v) == "" {
		return time.Time{}, domain.Invalid(field, "wajib diisi")
	}
	t, err := utils.ParseTimestamp(v)
	if err != nil {
		return time.Time{}, domain.Invalid(field, "format tanggal tidak valid")
	}
	return t, nil
}

func positiveOrNil(id *int64) *int64 {
	if id == nil || *id <= 0 {
		return nil
	}
	return id
}

// actorName is the principal's display name, empty when unauthenticated.
func actorName(c *gin.Context) string {
	return middleware.CurrentPrincipal(c).Name
}

// POST /api/bookings
func CreateBooking(c *gin.Context) {
	var req bookingRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	in, err := req.toInput()
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	b, err := bookingService(c).Create(c.Request.Context(), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// GET /api/bookings
func ListBookings(c *gin.Context) {
	f := models.BookingFilter{
		Status:   models.BookingStatus(strings.TrimSpace(c.Query("status"))),
		Source:   c.Query("source"),
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "limit", "pageSize"),
	}
	var ok bool
	if f.StartFrom, ok = queryDate(c, "startDate"); !ok {
		return
	}
	if f.EndUntil, ok = queryDate(c, "endDate"); !ok {
		return
	}
	if v := strings.TrimSpace(c.Query("driverId")); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			RespondError(c, http.StatusBadRequest, "driverId tidak valid")
			return
		}
		f.DriverID = &id
	}

	page, err := bookingService(c).List(c.Request.Context(), f)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// GET /api/bookings/:id
func GetBooking(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	b, err := bookingService(c).Get(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// PUT /api/bookings/:id
func UpdateBooking(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req bookingPatchRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	patch, err := req.toPatch(actorName(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	b, err := bookingService(c).Update(c.Request.Context(), id, patch)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// DELETE /api/bookings/:id
func DeleteBooking(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := bookingService(c).Delete(c.Request.Context(), id); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type expenseRequest struct {
	Type        string   `json:"type" form:"type"`
	Amount      *float64 `json:"amount" form:"amount"`
	Description string   `json:"description" form:"description"`
	Receipt     string   `json:"receipt" form:"-"`
}

// POST /api/bookings/:id/expenses
// Accepts JSON, or multipart with an optional "receipt" file.
func AddBookingExpense(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	svc := bookingService(c)

	var req expenseRequest
	if isMultipart(c) {
		if err := c.ShouldBind(&req); err != nil {
			RespondError(c, http.StatusBadRequest, "payload tidak valid")
			return
		}
	} else if !BindJSONOrError(c, &req) {
		return
	}
	if req.Amount == nil {
		RespondDomainError(c, domain.Invalid("amount", "wajib diisi"))
		return
	}

	e := models.Expense{
		Type:        models.ExpenseType(strings.TrimSpace(req.Type)),
		Amount:      *req.Amount,
		Description: req.Description,
		Receipt:     req.Receipt,
	}
	var uploaded string
	if isMultipart(c) {
		if fh, err := c.FormFile("receipt"); err == nil {
			path, err := svc.SaveReceipt(c.Request.Context(), id, fh)
			if err != nil {
				RespondDomainError(c, err)
				return
			}
			e.Receipt, uploaded = path, path
		}
	}

	b, err := svc.AddExpense(c.Request.Context(), id, e)
	if err != nil {
		if uploaded != "" {
			svc.DiscardUpload(uploaded)
		}
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

type statusRequest struct {
	Status    string `json:"status"`
	ChangedBy string `json:"changedBy"`
}

// PUT /api/bookings/:id/status
func UpdateBookingStatus(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req statusRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	changedBy := utils.FirstNonEmpty(req.ChangedBy, actorName(c))
	b, err := bookingService(c).UpdateStatus(c.Request.Context(), id, models.BookingStatus(strings.TrimSpace(req.Status)), changedBy)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// POST /api/bookings/:id/duty-slips (multipart, field "dutySlips")
func UploadDutySlips(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		RespondError(c, http.StatusBadRequest, "form upload tidak valid")
		return
	}
	files := form.File["dutySlips"]
	if len(files) == 0 {
		files = form.File["files"]
	}
	b, err := bookingService(c).UploadDutySlips(c.Request.Context(), id, files, actorName(c))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

type removeSlipRequest struct {
	Path string `json:"path"`
}

// PUT /api/bookings/:id/remove-duty-slip
func RemoveDutySlip(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req removeSlipRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	b, err := bookingService(c).RemoveDutySlip(c.Request.Context(), id, req.Path)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

type bookingPaymentRequest struct {
	Amount      *float64 `json:"amount"`
	Comments    string   `json:"comments"`
	CollectedBy string   `json:"collectedBy"`
	PaidOn      string   `json:"paidOn"`
}

// POST /api/bookings/:id/payments
func AddBookingPayment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req bookingPaymentRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if req.Amount == nil {
		RespondDomainError(c, domain.Invalid("amount", "wajib diisi"))
		return
	}
	p := models.BookingPayment{
		Amount:      *req.Amount,
		Comments:    req.Comments,
		CollectedBy: utils.FirstNonEmpty(req.CollectedBy, actorName(c)),
	}
	if strings.TrimSpace(req.PaidOn) != "" {
		t, err := utils.ParseTimestamp(req.PaidOn)
		if err != nil {
			RespondDomainError(c, domain.Invalid("paidOn", "format tanggal tidak valid"))
			return
		}
		p.PaidOn = t
	}
	b, err := bookingService(c).AddPayment(c.Request.Context(), id, p)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

// GET /api/bookings/:id/payments
func ListBookingPayments(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	list, err := bookingService(c).ListPayments(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type billedRequest struct {
	Billed *bool `json:"billed"`
}

// PUT /api/bookings/:id/billed
func SetBookingBilled(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req billedRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if req.Billed == nil {
		RespondDomainError(c, domain.Invalid("billed", "wajib diisi"))
		return
	}
	b, err := bookingService(c).SetBilled(c.Request.Context(), id, *req.Billed)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, b)
}

// GET /api/bookings/:id/invoice
func BookingInvoice(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	d := currentDeps()
	docs := services.DocsService{DB: d.DB, RequestID: middleware.GetRequestID(c)}
	pdf, filename, err := docs.Invoice(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
