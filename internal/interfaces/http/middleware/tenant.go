package middleware

import (
	"net/http"
	"strings"

	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/infrastructure/logger"
	"github.com/ferdiebotden-ai/conversionos-demo-sub002/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TenantHeaderKey is the header that selects the tenant
const TenantHeaderKey = "X-Tenant-ID"

// TenantMiddlewareConfig holds configuration for tenant middleware
type TenantMiddlewareConfig struct {
	// DefaultTenant is used when the header is absent. uuid.Nil makes the
	// header mandatory.
	DefaultTenant uuid.UUID
	// SkipPaths are paths that don't require tenant context
	SkipPaths []string
	Logger    *zap.Logger
}

// DefaultTenantConfig returns default tenant middleware configuration
func DefaultTenantConfig() TenantMiddlewareConfig {
	return TenantMiddlewareConfig{
		SkipPaths: []string{"/health", "/metrics"},
	}
}

// TenantMiddlewareWithConfig resolves the tenant for each request and stores
// it on both the gin context and the request context.
func TenantMiddlewareWithConfig(cfg TenantMiddlewareConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, skip := range cfg.SkipPaths {
			if path == skip || strings.HasPrefix(path, skip+"/") {
				c.Next()
				return
			}
		}

		tenantID := cfg.DefaultTenant
		if raw := strings.TrimSpace(c.GetHeader(TenantHeaderKey)); raw != "" {
			parsed, err := uuid.Parse(raw)
			if err != nil || !isValidTenantID(raw) {
				log.Debug("rejected malformed tenant header", zap.String("path", path))
				abortWithError(c, http.StatusBadRequest, dto.ErrCodeValidation, "X-Tenant-ID must be a UUID")
				return
			}
			tenantID = parsed
		}
		if tenantID == uuid.Nil {
			abortWithError(c, http.StatusBadRequest, dto.ErrCodeValidationRequired, "X-Tenant-ID header is required")
			return
		}

		c.Set(logger.GinTenantIDKey, tenantID.String())
		ctx, reqLogger := logger.WithTenantID(c.Request.Context(), logger.FromContext(c.Request.Context()), tenantID.String())
		c.Set(logger.GinLoggerKey, reqLogger)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// GetTenantID returns the tenant resolved by the tenant middleware
func GetTenantID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.GetString(logger.GinTenantIDKey))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

func abortWithError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, dto.NewErrorResponseWithRequestID(code, message, GetRequestID(c)))
}
