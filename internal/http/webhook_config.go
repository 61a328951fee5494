package http

import (
	"net/http"
	"net/url"
	"strings"

	echo "github.com/labstack/echo/v4"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/http/middleware"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/model"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/repository"
)

type webhookConfigReq struct {
	URL      string   `json:"url"`
	Secret   *string  `json:"secret"`
	Events   []string `json:"events"`
	IsActive bool     `json:"is_active"`
}

var knownEvents = map[string]bool{
	model.EventLeadCreated:        true,
	model.EventLeadUpdated:        true,
	model.EventAppointmentCreated: true,
	model.EventAppointmentUpdated: true,
}

// getWebhookHandler returns the tenant's endpoint configuration including the
// health counters (failure_count, last_triggered_at) the tenant is expected
// to monitor.
func getWebhookHandler(webhooks repository.WebhooksRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, ok := middleware.TenantIDFromCtx(c)
		if !ok || tenantID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		sub, err := webhooks.GetByTenant(c.Request().Context(), tenantID)
		if err != nil {
			c.Logger().Errorf("webhook get failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}
		if sub == nil {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "not configured"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"url":               sub.URL,
			"events":            sub.Events,
			"is_active":         sub.IsActive,
			"has_secret":        sub.Secret != nil && *sub.Secret != "",
			"failure_count":     sub.FailureCount,
			"last_triggered_at": sub.LastTriggeredAt,
		})
	}
}

func putWebhookHandler(webhooks repository.WebhooksRepository) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, ok := middleware.TenantIDFromCtx(c)
		if !ok || tenantID <= 0 {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		}

		var req webhookConfigReq
		if err := c.Bind(&req); err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "bad request"})
		}

		req.URL = strings.TrimSpace(req.URL)
		u, err := url.Parse(req.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid url"})
		}

		events := make(model.EventSet, 0, len(req.Events))
		for _, e := range req.Events {
			e = strings.TrimSpace(e)
			if !knownEvents[e] {
				return c.JSON(http.StatusBadRequest, map[string]any{"error": "unknown event", "event": e})
			}
			if !events.Contains(e) {
				events = append(events, e)
			}
		}

		sub := model.WebhookSubscription{
			TenantID: tenantID,
			URL:      req.URL,
			Secret:   req.Secret,
			Events:   events,
			IsActive: req.IsActive,
		}
		if err := webhooks.Upsert(c.Request().Context(), sub); err != nil {
			c.Logger().Errorf("webhook upsert failed: %v", err)

			return c.JSON(http.StatusInternalServerError, map[string]string{"error": "db error"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"url":       sub.URL,
			"events":    sub.Events,
			"is_active": sub.IsActive,
		})
	}
}
