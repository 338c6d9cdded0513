package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"

	"fleetops/internal/domain"
)

// Claims carried by access tokens. Subject holds the user id.
type Claims struct {
	Role string `json:"role"`
	Name string `json:"name"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 access token.
func IssueToken(secret string, ttl time.Duration, userID int64, role, name string, now time.Time) (string, error) {
	claims := Claims{
		Role: role,
		Name: name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseToken validates signature, algorithm and expiry.
func ParseToken(secret, tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, errors.New("invalid token")
	}
	return c, nil
}

// Auth requires a bearer token and exposes userID, userRole and userName on the context.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "token tidak ditemukan", "request_id": GetRequestID(c)})
			return
		}
		claims, err := ParseToken(secret, strings.TrimSpace(token))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "token tidak valid", "request_id": GetRequestID(c)})
			return
		}
		userID, _ := strconv.ParseInt(claims.Subject, 10, 64)
		c.Set("userID", userID)
		c.Set("userRole", strings.ToLower(strings.TrimSpace(claims.Role)))
		c.Set("userName", claims.Name)
		c.Next()
	}
}

// RequireRoles only lets through principals whose role is listed. Auth must run first.
func RequireRoles(allowedRoles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[strings.ToLower(strings.TrimSpace(r))] = struct{}{}
	}

	return func(c *gin.Context) {
		role := c.GetString("userRole")
		if role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "role tidak ditemukan", "request_id": GetRequestID(c)})
			return
		}
		if _, ok := allowed[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": "role tidak diizinkan", "request_id": GetRequestID(c)})
			return
		}
		c.Next()
	}
}

// CurrentPrincipal reads what Auth stored. Unauthenticated requests get a zero principal.
func CurrentPrincipal(c *gin.Context) domain.Principal {
	return domain.Principal{
		UserID: c.GetInt64("userID"),
		Role:   c.GetString("userRole"),
		Name:   c.GetString("userName"),
	}
}
