package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/config"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/db"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/model"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo tenants",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1) load config
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// 2) connect MySQL
		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Println(">> Seeding demo tenants...")

		if err := seedTenants(sqlDB); err != nil {
			return err
		}
		if err := seedWebhooks(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seed completed ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

// seedTenants inserts deterministic demo tenants (idempotent).
func seedTenants(dbx *sqlx.DB) error {
	tenants := []model.Tenant{
		{
			Name:             "Imobiliária Horizonte",
			APIKey:           "11111111111111111111111111111111",
			Status:           "active",
			MonthlyLeadLimit: 50,
			RateLimitRPS:     intptr(20),
		},
		{
			Name:             "Corretora Litoral",
			APIKey:           "22222222222222222222222222222222",
			Status:           "active",
			MonthlyLeadLimit: 10,
			RateLimitRPS:     intptr(10),
		},
		{
			Name:             "Premium Imóveis",
			APIKey:           "33333333333333333333333333333333",
			Status:           "active",
			MonthlyLeadLimit: model.UnlimitedLeads,
			RateLimitRPS:     intptr(100),
		},
		{
			Name:             "Conta Suspensa",
			APIKey:           "44444444444444444444444444444444",
			Status:           "suspended",
			MonthlyLeadLimit: 50,
			RateLimitRPS:     nil,
		},
	}

	// idempotent upsert based on api_key (UNIQUE)
	const q = `
INSERT INTO tenants
    (name, api_key, status, monthly_lead_limit, rate_limit_rps, created_at, updated_at)
VALUES
    (?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    name               = VALUES(name),
    status             = VALUES(status),
    monthly_lead_limit = VALUES(monthly_lead_limit),
    rate_limit_rps     = VALUES(rate_limit_rps),
    updated_at         = VALUES(updated_at)
`
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	for _, t := range tenants {
		if _, err := tx.Exec(q, t.Name, t.APIKey, t.Status, t.MonthlyLeadLimit, t.RateLimitRPS, now, now); err != nil {
			return fmt.Errorf("insert tenant %q: %w", t.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tenants: %w", err)
	}
	return nil
}

// seedWebhooks gives the first demo tenant a local echo endpoint subscription.
func seedWebhooks(dbx *sqlx.DB) error {
	const q = `
INSERT INTO webhook_subscriptions
    (tenant_id, url, secret, events, is_active, failure_count, created_at, updated_at)
SELECT t.id, 'http://127.0.0.1:9999/webhook', 'demo-secret',
       '["lead.created","lead.updated"]', 1, 0, NOW(), NOW()
FROM tenants t
LEFT JOIN webhook_subscriptions w ON w.tenant_id = t.id
WHERE t.api_key = '11111111111111111111111111111111' AND w.tenant_id IS NULL
`
	if _, err := dbx.Exec(q); err != nil {
		return fmt.Errorf("seed webhooks: %w", err)
	}
	return nil
}

func intptr(i int) *int { return &i }
