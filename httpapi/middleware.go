package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Brano80/eGarant/apikey"
	"github.com/Brano80/eGarant/auth"
	"github.com/Brano80/eGarant/pkg/logger"
)

const (
	ctxSession = "session"
	ctxAPIKey  = "api_key"
)

// RequestID assigns every request an id, honoring an inbound X-Request-ID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogger logs each request after completion.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info(c.Request.Context(), "request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// Recovery converts panics into 500 responses.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error(c.Request.Context(), "panic recovered", "panic", r)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}

// SessionAuth requires a bearer session token and stores the decoded session
// on the gin context.
func SessionAuth(authSvc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		session, err := authSvc.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session"})
			return
		}
		c.Set(ctxSession, session)
		ctx := context.WithValue(c.Request.Context(), logger.UserIDKey, session.UserID)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// APIKeyAuth requires a valid X-API-Key on machine endpoints.
func APIKeyAuth(keys *apikey.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		presented := c.GetHeader("X-API-Key")
		if presented == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing api key"})
			return
		}
		key, err := keys.Verify(c.Request.Context(), presented)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid api key"})
			return
		}
		c.Set(ctxAPIKey, key)
		c.Next()
	}
}

func sessionFrom(c *gin.Context) auth.Session {
	s, _ := c.Get(ctxSession)
	session, _ := s.(auth.Session)
	return session
}

// companyContext returns the company id of the acting context, empty when
// acting personally.
func companyContext(session auth.Session) string {
	if session.ActiveContext == auth.ContextPersonal {
		return ""
	}
	return session.ActiveContext
}
