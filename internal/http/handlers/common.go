package handlers

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"fleetops/internal/events"
	"fleetops/internal/http/middleware"
	"fleetops/internal/storage"
	"fleetops/internal/utils"
)

// Deps are the collaborators handlers hand to services. A nil DB falls back
// to the shared pool.
type Deps struct {
	DB        *sql.DB
	Events    events.Publisher
	Files     storage.FileStore
	JWTSecret string
	JWTTTL    time.Duration
}

var (
	depsMu sync.RWMutex
	deps   Deps
)

// Configure installs handler dependencies; call once at startup.
func Configure(d Deps) {
	depsMu.Lock()
	defer depsMu.Unlock()
	deps = d
}

func currentDeps() Deps {
	depsMu.RLock()
	defer depsMu.RUnlock()
	return deps
}

// RespondError sends standard error payload with request_id included.
func RespondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"message":    message,
		"request_id": middleware.GetRequestID(c),
	})
}

// BindJSONOrError ensures body is present and parsable.
func BindJSONOrError[T any](c *gin.Context, dst *T) bool {
	if c.Request.Body == nil || c.Request.ContentLength == 0 {
		RespondError(c, http.StatusBadRequest, "body kosong")
		return false
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		RespondError(c, http.StatusBadRequest, "payload tidak valid")
		return false
	}
	return true
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if err != nil || id <= 0 {
		RespondError(c, http.StatusBadRequest, name+" tidak valid")
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, keys ...string) int {
	for _, k := range keys {
		if v := strings.TrimSpace(c.Query(k)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
		}
	}
	return 0
}

// queryDate parses an optional date query parameter; ok is false after a 400.
func queryDate(c *gin.Context, key string) (*time.Time, bool) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return nil, true
	}
	t, err := utils.ParseTimestamp(v)
	if err != nil {
		RespondError(c, http.StatusBadRequest, key+" tidak valid")
		return nil, false
	}
	return &t, true
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}
