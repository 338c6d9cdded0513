package handlers

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"fleetops/internal/http/middleware"
	"fleetops/internal/repositories"
	"fleetops/internal/utils"
)

// AuthUser is the user payload returned with a token.
type AuthUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

const invalidLogin = "Email/username atau password salah"

// POST /api/auth/login
func Login(c *gin.Context) {
	var req loginRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	login := utils.FirstNonEmpty(req.Email, req.Username)
	if login == "" || req.Password == "" {
		RespondError(c, http.StatusBadRequest, "email/username dan password wajib diisi")
		return
	}

	d := currentDeps()
	var repo repositories.UserRepository
	if d.DB != nil {
		repo.DB = d.DB
	}
	user, err := repo.FindByLogin(c.Request.Context(), login)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			RespondError(c, http.StatusUnauthorized, invalidLogin)
			return
		}
		utils.LogEvent(middleware.GetRequestID(c), "auth", "login", "query error: "+err.Error())
		RespondError(c, http.StatusInternalServerError, "terjadi kesalahan")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		RespondError(c, http.StatusUnauthorized, invalidLogin)
		return
	}
	if !strings.EqualFold(user.Status, "active") {
		RespondError(c, http.StatusForbidden, "akun tidak aktif")
		return
	}

	ttl := d.JWTTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	token, err := middleware.IssueToken(d.JWTSecret, ttl, user.ID, user.Role, user.Name, time.Now())
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "gagal membuat token")
		return
	}

	utils.LogEvent(middleware.GetRequestID(c), "auth", "login", fmt.Sprintf("user_id=%d role=%s", user.ID, user.Role))
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  AuthUser{ID: user.ID, Name: user.Name, Role: strings.ToLower(user.Role)},
	})
}

// GET /api/auth/me
func Me(c *gin.Context) {
	c.JSON(http.StatusOK, middleware.CurrentPrincipal(c))
}
