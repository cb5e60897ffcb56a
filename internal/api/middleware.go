package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/voxlink/voxlink/config"
	"github.com/voxlink/voxlink/middleware/jwt"
	logger "github.com/voxlink/voxlink/middleware/log"
	"github.com/voxlink/voxlink/middleware/ratelimit"
)

type MiddlewareManager struct {
	tokenManager *jwt.TokenManager
	limiter      ratelimit.Limiter
	cfg          *config.Config
	logger       *zap.Logger
}

func NewMiddlewareManager(
	tokenManager *jwt.TokenManager,
	rdb redis.UniversalClient,
	cfg *config.Config,
	logger *zap.Logger,
) *MiddlewareManager {
	return &MiddlewareManager{
		tokenManager: tokenManager,
		limiter:      ratelimit.NewWindowLimiter(rdb, logger, true),
		cfg:          cfg,
		logger:       logger,
	}
}

// JWTAuth resolves the session principal from the Authorization header
// and stores it in the request context.
func (m *MiddlewareManager) JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"error": "authorization header required"})
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				gin.H{"error": "invalid authorization header format"})
			return
		}

		claims, err := m.tokenManager.ParseToken(parts[1])
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.Error(err), zap.String("ip", c.ClientIP()))

			message := "invalid token"
			switch {
			case errors.Is(err, jwt.ErrExpiredToken):
				message = "token has expired"
			case errors.Is(err, jwt.ErrTokenNotYetValid):
				message = "token not yet valid"
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": message})
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.UserName)
		c.Next()
	}
}

// RateLimit throttles per user when authenticated, per IP otherwise.
func (m *MiddlewareManager) RateLimit(limitPerMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		var key string
		if userID := c.GetString("user_id"); userID != "" {
			key = "user:" + userID
		} else {
			key = "ip:" + c.ClientIP()
		}

		allowed, err := m.limiter.Allow(c.Request.Context(), key, limitPerMinute, time.Minute)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				gin.H{"error": "rate limit check failed"})
			return
		}
		if !allowed {
			remaining, _ := m.limiter.Remaining(c.Request.Context(), key, limitPerMinute, time.Minute)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": 60,
				"remaining":   remaining,
			})
			return
		}
		c.Next()
	}
}

// Logger emits one structured line per request, tagged with a trace id
// that also lands on the response for client-side correlation.
func (m *MiddlewareManager) Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		ctx := logger.WithTraceID(c.Request.Context(), c.GetHeader("X-Trace-ID"))
		c.Request = c.Request.WithContext(ctx)
		traceID := logger.GetTraceID(ctx)
		c.Header("X-Trace-ID", traceID)

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("ip", c.ClientIP()),
			zap.String("trace_id", traceID),
		}
		if userID := c.GetString("user_id"); userID != "" {
			fields = append(fields, zap.String("user_id", userID))
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			m.logger.Error("server error", fields...)
		case status >= 400:
			m.logger.Warn("client error", fields...)
		default:
			m.logger.Info("request completed", fields...)
		}
	}
}

func (m *MiddlewareManager) CORS() gin.HandlerFunc {
	origin := m.cfg.Server.FrontendURL
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Headers",
			"Content-Type, Content-Length, Accept-Encoding, Authorization, Origin, Cache-Control, X-Requested-With, X-Trace-ID")
		c.Header("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (m *MiddlewareManager) Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				m.logger.Error("panic recovered",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError,
					gin.H{"error": "internal server error"})
			}
		}()
		c.Next()
	}
}
