package http

import (
	"net/http"

	echo "github.com/labstack/echo/v4"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/capture"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/http/middleware"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/quota"
)

// quotaStatusHandler reports the current month's usage and whether one more
// lead would be allowed.
func quotaStatusHandler(coord *capture.Coordinator, ledger *quota.Ledger) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, ok := middleware.TenantIDFromCtx(c)
		if !ok || tenantID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		counter, err := ledger.GetOrCreate(c.Request().Context(), tenantID)
		if err != nil {
			c.Logger().Errorf("quota status failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		dec := coord.CheckQuota(c.Request().Context(), tenantID)

		return c.JSON(http.StatusOK, map[string]any{
			"month":          counter.MonthKey,
			"units_consumed": counter.UnitsConsumed,
			"allowed":        dec.Allowed,
			"remaining":      dec.Remaining,
			"limit":          dec.Limit,
			"reason":         dec.Reason,
		})
	}
}

// quotaResetHandler zeroes the current month's counter. Triggered by
// plan-change, refund, and cancellation flows in the billing service.
func quotaResetHandler(ledger *quota.Ledger) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, ok := middleware.TenantIDFromCtx(c)
		if !ok || tenantID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		if err := ledger.Reset(c.Request().Context(), tenantID); err != nil {
			c.Logger().Errorf("quota reset failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusOK, map[string]any{"reset": true})
	}
}
