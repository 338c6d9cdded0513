package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"fleetops/internal/domain"
	"fleetops/internal/http/middleware"
	"fleetops/internal/services"
)

type amountRequest struct {
	Amount      *float64 `json:"amount"`
	Description string   `json:"description"`
}

func (r amountRequest) amount() (float64, error) {
	if r.Amount == nil {
		return 0, domain.Invalid("amount", "wajib diisi")
	}
	return *r.Amount, nil
}

func driverService(c *gin.Context) services.DriverService {
	return services.DriverService{DB: currentDeps().DB, RequestID: middleware.GetRequestID(c)}
}

// GET /api/drivers/:id
func GetDriver(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	d, err := driverService(c).GetDriver(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// POST /api/drivers/:id/advances
func AddDriverAdvance(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req amountRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	amount, err := req.amount()
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	d, err := driverService(c).AddAdvance(c.Request.Context(), id, amount, req.Description)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// PUT /api/drivers/:id/advances/:advanceId/settle
func SettleDriverAdvance(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	advanceID, ok := parseIDParam(c, "advanceId")
	if !ok {
		return
	}
	if err := driverService(c).SettleAdvance(c.Request.Context(), id, advanceID); err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "advance diselesaikan"})
}

func companyService(c *gin.Context) services.CompanyService {
	return services.CompanyService{DB: currentDeps().DB, RequestID: middleware.GetRequestID(c)}
}

// GET /api/companies/:id
func GetCompany(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	co, err := companyService(c).GetCompany(c.Request.Context(), id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, co)
}

// POST /api/companies/:id/payments
func RecordCompanyPayment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req amountRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	amount, err := req.amount()
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	co, err := companyService(c).RecordPayment(c.Request.Context(), id, amount, req.Description)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, co)
}

func reportRange(c *gin.Context) (from, to time.Time, ok bool) {
	f, ok := queryDate(c, "from")
	if !ok {
		return
	}
	t, ok := queryDate(c, "to")
	if !ok {
		return
	}
	if f != nil {
		from = *f
	}
	if t != nil {
		to = *t
	}
	return from, to, true
}

// GET /api/reports/bookings?from=YYYY-MM-DD&to=YYYY-MM-DD
func BookingStatusReport(c *gin.Context) {
	from, to, ok := reportRange(c)
	if !ok {
		return
	}
	rows, err := services.ReportService{DB: currentDeps().DB}.BookingStatusSummary(c.Request.Context(), from, to)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rows})
}

// GET /api/reports/finance?from=YYYY-MM-DD&to=YYYY-MM-DD
func FinanceReport(c *gin.Context) {
	from, to, ok := reportRange(c)
	if !ok {
		return
	}
	sum, err := services.ReportService{DB: currentDeps().DB}.FinanceSummary(c.Request.Context(), from, to)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}
