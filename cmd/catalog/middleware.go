package main

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"library_catalog/pkg/access"
	"library_catalog/pkg/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Request-Id"
	requestIDKey    = "request_id"
	viewerKey       = "viewer"
)

// requestID propagates an incoming X-Request-Id or generates one.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(requestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		status := c.Writer.Status()
		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(requestIDKey),
		}
		if status >= http.StatusInternalServerError {
			slog.Error("request", attrs...)
			return
		}
		slog.Info("request", attrs...)
	}
}

func recoverPanic(c *gin.Context, recovered any) {
	slog.Error("panic recovered", "panic", recovered, "request_id", c.GetString(requestIDKey))
	c.Header("Connection", "close")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimit gives every client IP its own token bucket. Buckets idle for
// three minutes are swept on the next request after a minute has passed.
func rateLimit(rps float64, burst int) gin.HandlerFunc {
	var (
		mu        sync.Mutex
		clients   = make(map[string]*client)
		lastSweep = time.Now()
	)
	return func(c *gin.Context) {
		ip := c.ClientIP()
		seen := time.Now()

		mu.Lock()
		if seen.Sub(lastSweep) > time.Minute {
			for key, cl := range clients {
				if seen.Sub(cl.lastSeen) > 3*time.Minute {
					delete(clients, key)
				}
			}
			lastSweep = seen
		}
		cl, found := clients[ip]
		if !found {
			cl = &client{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			clients[ip] = cl
		}
		cl.lastSeen = seen
		allowed := cl.limiter.Allow()
		mu.Unlock()

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

// resolveViewer turns the bearer token into an access.Viewer. Requests
// without a token act as the anonymous viewer; a bad token is rejected.
func resolveViewer() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Set(viewerKey, access.Anonymous())
			c.Next()
			return
		}
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		viewer, err := access.ParseToken(tokenSecret, strings.TrimSpace(parts[1]))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		if err := repo.EnsureUser(c.Request.Context(), viewer.UserID, viewer.Username); err != nil {
			var verr *validator.ValidationError
			if errors.As(err, &verr) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject", "errors": verr.Fields})
				return
			}
			slog.Error("register viewer", "err", err, "user_id", viewer.UserID)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		c.Set(viewerKey, viewer)
		c.Next()
	}
}

func viewerFrom(c *gin.Context) access.Viewer {
	if v, ok := c.Get(viewerKey); ok {
		if viewer, ok := v.(access.Viewer); ok {
			return viewer
		}
	}
	return access.Anonymous()
}

// requireCapability answers 403 when the viewer lacks want, anonymous
// viewers included.
func requireCapability(want access.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !viewerFrom(c).Can(want) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}
		c.Next()
	}
}
