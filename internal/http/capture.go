package http

import (
	"errors"
	"net/http"

	echo "github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/capture"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/http/middleware"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/model"
)

// captureHandler ingests one analyzed conversation candidate. The analysis
// step upstream already turned raw text into structured fields; this endpoint
// only coordinates dedup, quota, and persistence.
func captureHandler(coord *capture.Coordinator) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, ok := middleware.TenantIDFromCtx(c)
		if !ok || tenantID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		var cand model.Candidate
		if err := c.Bind(&cand); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		res, err := coord.Capture(c.Request().Context(), tenantID, cand)
		if err != nil {
			var qe *capture.QuotaExceededError
			if errors.As(err, &qe) {
				return c.JSON(http.StatusForbidden, map[string]any{
					"error":  "quota_exceeded",
					"reason": qe.Reason,
					"limit":  qe.Limit,
				})
			}

			var ve *capture.ValidationError
			if errors.As(err, &ve) {
				return c.JSON(http.StatusBadRequest, map[string]any{
					"error": "validation",
					"field": ve.Field,
				})
			}

			log.Errorf("capture failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		status := http.StatusOK
		if res.WasCreated {
			status = http.StatusCreated
		}
		return c.JSON(status, map[string]any{
			"lead_id":     res.LeadID,
			"was_created": res.WasCreated,
			"lead":        res.Record,
		})
	}
}
