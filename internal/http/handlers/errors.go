package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fleetops/internal/domain"
	"fleetops/internal/http/middleware"
	"fleetops/internal/utils"
)

// RespondDomainError maps domain errors to HTTP responses. Internal details
// are logged, never returned.
func RespondDomainError(c *gin.Context, err error) {
	reqID := middleware.GetRequestID(c)
	switch {
	case domain.IsValidation(err):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error(), "request_id": reqID})
	case domain.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"message": err.Error(), "request_id": reqID})
	case domain.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"message": err.Error(), "request_id": reqID})
	default:
		utils.LogEvent(reqID, "http", "internal_error", c.Request.Method+" "+c.FullPath()+": "+err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "terjadi kesalahan", "request_id": reqID})
	}
}
