package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/automation"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/capture"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/config"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/http/middleware"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/logger"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/metrics"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/model"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/notify"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/quota"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/repository"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/webhook"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	e    *echo.Echo
	disp *webhook.Dispatcher
}

func NewServer(cfg config.Config, mysqlDB *sqlx.DB, rds *redis.Client, notifier notify.Notifier) *Server {
	// repos
	tenantsRepo := repository.NewTenantsRepository(mysqlDB)
	leadsRepo := repository.NewLeadsRepository(mysqlDB)
	usageRepo := repository.NewUsageRepository(mysqlDB)
	webhooksRepo := repository.NewWebhooksRepository(mysqlDB)

	// services
	ledger := quota.NewLedger(usageRepo)
	disp := webhook.NewDispatcher(webhooksRepo, webhook.Options{
		WorkerCount:    cfg.Webhook.WorkerCount,
		QueueSize:      cfg.Webhook.QueueSize,
		RequestTimeout: cfg.Webhook.RequestTimeout,
	})
	rules := newAutomationRules(disp, notifier)

	coord := capture.NewCoordinator(
		leadsRepo,
		ledger,
		capture.TenantLimitResolver{Tenants: tenantsRepo, Default: cfg.Quota.DefaultMonthlyLeads},
		capture.NewRedisKeyLock(rds, cfg.Quota.LockTTL),
		rules,
	)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	authMW := middleware.APIKeyMiddleware(tenantsRepo)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		DefaultRPS:     cfg.RateLimit.RPS,
		KeyPrefix:      "rl:tenant:",
		Window:         time.Second,
		RetryAfterHint: true,
	})

	// routes
	v1 := e.Group("/v1", authMW, rlMW)
	v1.POST("/leads/capture", captureHandler(coord))
	v1.GET("/leads", listLeadsHandler(leadsRepo))
	v1.GET("/webhook", getWebhookHandler(webhooksRepo))
	v1.PUT("/webhook", putWebhookHandler(webhooksRepo))
	v1.GET("/quota", quotaStatusHandler(coord, ledger))
	v1.POST("/quota/reset", quotaResetHandler(ledger))

	return &Server{e: e, disp: disp}
}

// newAutomationRules wires the closed (trigger, action) table: every lead
// state change fans out to the tenant's webhook endpoint and to the
// notification emitter.
func newAutomationRules(disp *webhook.Dispatcher, notifier notify.Notifier) *automation.Registry {
	rules := automation.NewRegistry()

	webhookAction := func(ctx context.Context, ev automation.Event) {
		disp.Dispatch(ev.TenantID, string(ev.Trigger), model.LeadEvent(ev.Lead))
	}
	notifyAction := func(ctx context.Context, ev automation.Event) {
		title := "Lead atualizado"
		message := "Um lead existente recebeu novas informações."
		typ := "lead_updated"
		if ev.Trigger == automation.TriggerLeadCreated {
			title = "Novo lead capturado"
			message = "Um novo lead foi capturado a partir de uma conversa."
			typ = "lead_captured"
		}
		notifier.Notify(ctx, ev.TenantID, typ, title, message, map[string]any{
			"lead_id": ev.Lead.ID,
		})
	}

	for _, t := range []automation.Trigger{automation.TriggerLeadCreated, automation.TriggerLeadUpdated} {
		if err := rules.Register(t, automation.ActionWebhook, webhookAction); err != nil {
			panic(fmt.Sprintf("automation wiring: %v", err))
		}
		if err := rules.Register(t, automation.ActionNotification, notifyAction); err != nil {
			panic(fmt.Sprintf("automation wiring: %v", err))
		}
	}
	return rules
}

func (s *Server) Start(addr string) error {
	logger.Log.Info("http listening", zap.String("addr", addr))
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	err := s.e.Shutdown(ctx)
	// drain in-flight webhook dispatches before exit
	s.disp.Close()
	return err
}
