package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fleetops/internal/domain"
	"fleetops/internal/domain/models"
	"fleetops/internal/http/middleware"
	"fleetops/internal/services"
	"fleetops/internal/utils"
)

func paymentService(c *gin.Context) services.PaymentService {
	d := currentDeps()
	return services.PaymentService{
		DB:        d.DB,
		RequestID: middleware.GetRequestID(c),
		Events:    d.Events,
	}
}

type paymentRequest struct {
	EntityType       string   `json:"entityType"`
	EntityID         int64    `json:"entityId"`
	Amount           *float64 `json:"amount"`
	Type             string   `json:"type"`
	Date             string   `json:"date"`
	Description      string   `json:"description"`
	RelatedAdvanceID *int64   `json:"relatedAdvanceId"`
	BookingID        *int64   `json:"bookingId"`
}

// POST /api/payments
func CreatePayment(c *gin.Context) {
	var req paymentRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	if req.Amount == nil {
		RespondDomainError(c, domain.Invalid("amount", "wajib diisi"))
		return
	}
	in := models.PaymentInput{
		EntityType:       models.EntityType(strings.ToLower(strings.TrimSpace(req.EntityType))),
		EntityID:         req.EntityID,
		Amount:           *req.Amount,
		Type:             models.PaymentType(strings.ToLower(strings.TrimSpace(req.Type))),
		Description:      req.Description,
		RelatedAdvanceID: req.RelatedAdvanceID,
		BookingID:        positiveOrNil(req.BookingID),
	}
	if strings.TrimSpace(req.Date) != "" {
		t, err := utils.ParseTimestamp(req.Date)
		if err != nil {
			RespondDomainError(c, domain.Invalid("date", "format tanggal tidak valid"))
			return
		}
		in.Date = t
	}

	p, err := paymentService(c).CreateGeneralPayment(c.Request.Context(), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// GET /api/payments
func ListPayments(c *gin.Context) {
	page, err := paymentService(c).ListGeneralPayments(c.Request.Context(), queryInt(c, "page"), queryInt(c, "limit", "pageSize"))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type driverPaymentRequest struct {
	DriverID     *int64   `json:"driverId"`
	Mode         string   `json:"driverPaymentMode"`
	Amount       *float64 `json:"amount"`
	FuelQuantity *float64 `json:"fuelQuantity"`
	FuelRate     *float64 `json:"fuelRate"`
	DistanceKm   *float64 `json:"distanceKm"`
	Mileage      *float64 `json:"mileage"`
	Description  string   `json:"description"`
}

// POST /api/bookings/:id/driver-payments
func CreateDriverPayment(c *gin.Context) {
	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req driverPaymentRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	in := models.DriverPaymentInput{
		DriverID:     positiveOrNil(req.DriverID),
		Mode:         models.DriverPaymentMode(strings.ToLower(strings.TrimSpace(req.Mode))),
		Amount:       req.Amount,
		FuelQuantity: req.FuelQuantity,
		FuelRate:     req.FuelRate,
		DistanceKm:   req.DistanceKm,
		Mileage:      req.Mileage,
		Description:  req.Description,
	}
	p, err := paymentService(c).CreateDriverBookingPayment(c.Request.Context(), bookingID, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// GET /api/bookings/:id/driver-payments
func ListDriverPayments(c *gin.Context) {
	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	list, err := paymentService(c).ListDriverBookingPayments(c.Request.Context(), bookingID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type driverPaymentUpdateRequest struct {
	Mode         *string  `json:"driverPaymentMode"`
	Amount       *float64 `json:"amount"`
	FuelQuantity *float64 `json:"fuelQuantity"`
	FuelRate     *float64 `json:"fuelRate"`
	DistanceKm   *float64 `json:"distanceKm"`
	Mileage      *float64 `json:"mileage"`
	Description  *string  `json:"description"`
	Settle       bool     `json:"settle"`
}

// PUT /api/bookings/:id/driver-payments/:paymentId
func UpdateDriverPayment(c *gin.Context) {
	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	paymentID, ok := parseIDParam(c, "paymentId")
	if !ok {
		return
	}
	var req driverPaymentUpdateRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	upd := models.DriverPaymentUpdate{
		Amount:       req.Amount,
		FuelQuantity: req.FuelQuantity,
		FuelRate:     req.FuelRate,
		DistanceKm:   req.DistanceKm,
		Mileage:      req.Mileage,
		Description:  req.Description,
		Settle:       req.Settle,
	}
	if req.Mode != nil {
		m := models.DriverPaymentMode(strings.ToLower(strings.TrimSpace(*req.Mode)))
		upd.Mode = &m
	}
	p, err := paymentService(c).UpdateDriverBookingPayment(c.Request.Context(), bookingID, paymentID, upd)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DELETE /api/bookings/:id/driver-payments/:paymentId
func DeleteDriverPayment(c *gin.Context) {
	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	paymentID, ok := parseIDParam(c, "paymentId")
	if !ok {
		return
	}
	deleted, err := paymentService(c).DeleteDriverBookingPayment(c.Request.Context(), bookingID, paymentID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	if !deleted {
		RespondError(c, http.StatusNotFound, "pembayaran driver tidak ditemukan")
		return
	}
	c.Status(http.StatusNoContent)
}

// GET /api/bookings/:id/driver-payments-export
func ExportDriverPayments(c *gin.Context) {
	bookingID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	data, err := paymentService(c).ExportDriverBookingPayments(c.Request.Context(), bookingID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	filename := fmt.Sprintf("driver_payments_%d_%s.csv", bookingID, time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}
