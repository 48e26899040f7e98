package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"
)

var (
	corsMethods = strings.Join([]string{"GET", "POST", "PUT", "OPTIONS"}, ", ")
	corsHeaders = strings.Join([]string{"Content-Type", "Authorization", RequestIDHeader}, ", ")
)

// CORS solo responde con headers a los orígenes de la lista blanca.
// Un preflight siempre termina en 204.
func CORS(allowed []string) gin.HandlerFunc {
	wildcard := slices.Contains(allowed, "*")
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (wildcard || slices.Contains(allowed, origin)) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", corsMethods)
			h.Set("Access-Control-Allow-Headers", corsHeaders)
			h.Set("Access-Control-Expose-Headers", RequestIDHeader)
			h.Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cross-Origin-Resource-Policy", "same-origin")
		h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		c.Next()
	}
}

// RateLimiter es una ventana fija por IP sobre go-cache. El primer request
// de la ventana fija su vencimiento; los siguientes solo incrementan.
type RateLimiter struct {
	store  *gocache.Cache
	limit  int
	window time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		store:  gocache.New(window, 2*window),
		limit:  limit,
		window: window,
	}
}

// Allow devuelve si el request entra, cuántos quedan y cuándo reinicia la ventana.
func (rl *RateLimiter) Allow(key string) (bool, int, time.Time) {
	if err := rl.store.Add(key, 1, rl.window); err == nil {
		return true, rl.limit - 1, time.Now().Add(rl.window)
	}
	n, err := rl.store.IncrementInt(key, 1)
	if err != nil {
		// la entrada venció entre Add e Increment
		rl.store.Set(key, 1, rl.window)
		return true, rl.limit - 1, time.Now().Add(rl.window)
	}
	_, reset, _ := rl.store.GetWithExpiration(key)
	if n > rl.limit {
		return false, 0, reset
	}
	return true, rl.limit - n, reset
}

func RateLimit(rl *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, remaining, reset := rl.Allow(c.ClientIP())
		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !ok {
			retry := int(time.Until(reset).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(retry))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "demasiadas solicitudes, intente más tarde"})
			return
		}
		c.Next()
	}
}
