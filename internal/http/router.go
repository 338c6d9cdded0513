package api

import (
	"log"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	intconfig "fleetops/internal/config"
	"fleetops/internal/domain"
	h "fleetops/internal/http/handlers"
	"fleetops/internal/http/middleware"
)

// NewRouter wires middleware and routes. rdb may be nil, which disables rate limiting.
func NewRouter(env intconfig.Env, rdb redis.Cmdable) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS(env.CORSAllowedOrigins))
	if rdb != nil {
		r.Use(middleware.RateLimit(rdb, env.RateLimitPerMinute))
	}

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.OPTIONS("/*path", func(c *gin.Context) { c.AbortWithStatus(stdhttp.StatusNoContent) })

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route tidak ditemukan",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	if env.UploadURLPrefix != "" && env.UploadDir != "" {
		r.Static(env.UploadURLPrefix, env.UploadDir)
	}

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", h.DBCheck)

		auth := api.Group("/auth")
		auth.POST("/login", h.Login)

		secured := api.Group("", middleware.Auth(env.JWTSecret))
		secured.GET("/auth/me", h.Me)
		secured.GET("/routes", middleware.RequireRoles(domain.RoleAdmin), h.Routes)

		mountBookings(secured.Group("/bookings"))
		mountLedgers(secured)
		mountReports(secured.Group("/reports"))
	}

	h.SetRouter(r)
	return r
}

var (
	staff      = []string{domain.RoleAdmin, domain.RoleAccountant, domain.RoleDispatcher, domain.RoleDriver}
	office     = []string{domain.RoleAdmin, domain.RoleAccountant, domain.RoleDispatcher}
	operations = []string{domain.RoleAdmin, domain.RoleDispatcher}
	field      = []string{domain.RoleAdmin, domain.RoleDispatcher, domain.RoleDriver}
	accounts   = []string{domain.RoleAdmin, domain.RoleAccountant}
)

func roles(rs []string) gin.HandlerFunc { return middleware.RequireRoles(rs...) }

func mountBookings(g *gin.RouterGroup) {
	g.POST("", roles(operations), h.CreateBooking)
	g.GET("", roles(staff), h.ListBookings)
	g.GET("/:id", roles(staff), h.GetBooking)
	g.PUT("/:id", roles(operations), h.UpdateBooking)
	g.DELETE("/:id", middleware.RequireRoles(domain.RoleAdmin), h.DeleteBooking)

	g.POST("/:id/expenses", roles(field), h.AddBookingExpense)
	g.PUT("/:id/status", roles(field), h.UpdateBookingStatus)
	g.POST("/:id/duty-slips", roles(field), h.UploadDutySlips)
	g.PUT("/:id/remove-duty-slip", roles(operations), h.RemoveDutySlip)

	g.POST("/:id/payments", roles(staff), h.AddBookingPayment)
	g.GET("/:id/payments", roles(office), h.ListBookingPayments)
	g.PUT("/:id/billed", roles(accounts), h.SetBookingBilled)
	g.GET("/:id/invoice", roles(office), h.BookingInvoice)

	g.POST("/:id/driver-payments", roles(accounts), h.CreateDriverPayment)
	g.GET("/:id/driver-payments", roles(accounts), h.ListDriverPayments)
	g.PUT("/:id/driver-payments/:paymentId", roles(accounts), h.UpdateDriverPayment)
	g.DELETE("/:id/driver-payments/:paymentId", roles(accounts), h.DeleteDriverPayment)
	g.GET("/:id/driver-payments-export", roles(accounts), h.ExportDriverPayments)
}

func mountLedgers(g *gin.RouterGroup) {
	g.POST("/payments", roles(accounts), h.CreatePayment)
	g.GET("/payments", roles(accounts), h.ListPayments)

	g.GET("/drivers/:id", roles(office), h.GetDriver)
	g.POST("/drivers/:id/advances", roles(accounts), h.AddDriverAdvance)
	g.PUT("/drivers/:id/advances/:advanceId/settle", roles(accounts), h.SettleDriverAdvance)

	g.GET("/companies/:id", roles(accounts), h.GetCompany)
	g.POST("/companies/:id/payments", roles(accounts), h.RecordCompanyPayment)
}

func mountReports(g *gin.RouterGroup) {
	g.Use(roles(accounts))
	g.GET("/bookings", h.BookingStatusReport)
	g.GET("/finance", h.FinanceReport)
}
