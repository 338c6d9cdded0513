package handlers

import (
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	intconfig "fleetops/internal/config"
)

var (
	routerMu sync.RWMutex
	router   *gin.Engine
)

// SetRouter keeps the engine so /api/routes can list it.
func SetRouter(r *gin.Engine) {
	routerMu.Lock()
	defer routerMu.Unlock()
	router = r
}

func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "fleetops backend berjalan"})
}

func DBCheck(c *gin.Context) {
	db := currentDeps().DB
	if db == nil {
		if err := intconfig.EnsureDB(c.Request.Context()); err != nil {
			RespondError(c, http.StatusServiceUnavailable, "database belum terhubung")
			return
		}
		db = intconfig.DB
	}
	var count int
	if err := db.QueryRowContext(c.Request.Context(), "SELECT COUNT(*) FROM bookings").Scan(&count); err != nil {
		RespondError(c, http.StatusServiceUnavailable, "gagal query ke database")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "koneksi database OK", "bookings_in_db": count})
}

func Routes(c *gin.Context) {
	routerMu.RLock()
	r := router
	routerMu.RUnlock()
	if r == nil {
		RespondError(c, http.StatusServiceUnavailable, "router belum siap")
		return
	}

	prefix := c.Query("prefix")
	routes := r.Routes()
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path != routes[j].Path {
			return routes[i].Path < routes[j].Path
		}
		return routes[i].Method < routes[j].Method
	})
	out := make([]gin.H, 0, len(routes))
	for _, rt := range routes {
		if prefix != "" && !strings.HasPrefix(rt.Path, prefix) {
			continue
		}
		out = append(out, gin.H{"method": rt.Method, "path": rt.Path})
	}
	c.JSON(http.StatusOK, gin.H{"routes": out, "total": len(out)})
}
