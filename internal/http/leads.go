package http

import (
	"net/http"
	"strconv"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/http/middleware"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/model"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/repository"
)

func listLeadsHandler(leads repository.LeadsRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, ok := middleware.TenantIDFromCtx(c)
		if !ok || tenantID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		limit := 50
		offset := 0
		if v := c.QueryParam("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
				limit = n
			}
		}
		if v := c.QueryParam("offset"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n >= 0 {
				offset = n
			}
		}

		var st model.LeadStatus
		if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
			tmp := model.LeadStatus(raw)
			if tmp.Valid() {
				st = tmp
			}
		}

		rows, err := leads.ListByTenant(c.Request().Context(), tenantID, st, limit, offset)
		if err != nil {
			c.Logger().Errorf("leads list failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(rows),
			"results": rows,
		})
	}
}
