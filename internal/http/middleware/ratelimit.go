package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"fleetops/internal/utils"
)

// RateLimit counts requests per client IP in fixed one-minute windows kept in
// Redis. Redis errors let the request through.
func RateLimit(client redis.Cmdable, perMinute int) gin.HandlerFunc {
	return rateLimit(client, perMinute, time.Now)
}

func rateLimit(client redis.Cmdable, limit int, now func() time.Time) gin.HandlerFunc {
	const window = time.Minute

	return func(c *gin.Context) {
		if client == nil || limit <= 0 {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		bucket := now().Unix() / int64(window/time.Second)
		key := fmt.Sprintf("ratelimit:%s:%d", c.ClientIP(), bucket)

		var incr *redis.IntCmd
		_, err := client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			pipe.Expire(ctx, key, window)
			return nil
		})
		if err != nil {
			utils.LogEvent(GetRequestID(c), "ratelimit", "redis_error", err.Error())
			c.Next()
			return
		}

		count := incr.Val()
		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(limit) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"message": "terlalu banyak permintaan", "request_id": GetRequestID(c)})
			return
		}
		c.Next()
	}
}
