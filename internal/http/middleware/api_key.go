package middleware

import (
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/repository"
)

// TenantIDFromCtx extracts the authenticated tenant_id set by APIKeyMiddleware.
func TenantIDFromCtx(c echo.Context) (int64, bool) {
	v := c.Get("tenant_id")
	id, ok := v.(int64)
	return id, ok
}

// APIKeyMiddleware authenticates requests using the X-API-Key header. Inbound
// caller identity is pre-resolved here; on success tenant_id lands in context
// and suspended tenants are blocked.
func APIKeyMiddleware(tenants repository.TenantsRepository) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := strings.TrimSpace(c.Request().Header.Get("X-API-Key"))
			if key == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing api key"})
			}
			t, err := tenants.GetByAPIKey(c.Request().Context(), key)
			if err != nil {
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "auth error"})
			}
			if t == nil || t.Status != "active" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			}
			c.Set("tenant_id", t.ID)
			if t.RateLimitRPS != nil {
				c.Set("tenant_rps", *t.RateLimitRPS)
			}
			return next(c)
		}
	}
}
