package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/model"
)

type WebhooksRepository interface {
	GetByTenant(ctx context.Context, tenantID int64) (*model.WebhookSubscription, error)
	Upsert(ctx context.Context, s model.WebhookSubscription) error
	RecordFailure(ctx context.Context, tenantID int64) error
	RecordDelivered(ctx context.Context, tenantID int64) error
}

type WebhooksRepositoryImpl struct {
	db *sqlx.DB
}

func NewWebhooksRepository(db *sqlx.DB) *WebhooksRepositoryImpl {
	return &WebhooksRepositoryImpl{db: db}
}

var _ WebhooksRepository = (*WebhooksRepositoryImpl)(nil)

func (r *WebhooksRepositoryImpl) GetByTenant(ctx context.Context, tenantID int64) (*model.WebhookSubscription, error) {
	var s model.WebhookSubscription
	err := r.db.GetContext(ctx, &s, `
		SELECT tenant_id, url, secret, events, is_active, last_triggered_at,
		       failure_count, created_at, updated_at
		  FROM webhook_subscriptions
		 WHERE tenant_id = ? LIMIT 1
	`, tenantID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Upsert writes the tenant's endpoint configuration. Health counters are
// preserved across reconfiguration.
func (r *WebhooksRepositoryImpl) Upsert(ctx context.Context, s model.WebhookSubscription) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO webhook_subscriptions
		    (tenant_id, url, secret, events, is_active, failure_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 0, NOW(), NOW())
		ON DUPLICATE KEY UPDATE
		    url = VALUES(url),
		    secret = VALUES(secret),
		    events = VALUES(events),
		    is_active = VALUES(is_active),
		    updated_at = NOW()
	`, s.TenantID, s.URL, s.Secret, s.Events, s.IsActive)
	return err
}

// RecordFailure bumps failure_count. The increment runs in SQL so concurrent
// dispatch attempts never lose updates; the counter is never auto-reset.
func (r *WebhooksRepositoryImpl) RecordFailure(ctx context.Context, tenantID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE webhook_subscriptions
		   SET failure_count = failure_count + 1, updated_at = NOW()
		 WHERE tenant_id = ?
	`, tenantID)
	return err
}

// RecordDelivered stamps last_triggered_at (last-write-wins) and leaves
// failure_count untouched.
func (r *WebhooksRepositoryImpl) RecordDelivered(ctx context.Context, tenantID int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE webhook_subscriptions
		   SET last_triggered_at = NOW(), updated_at = NOW()
		 WHERE tenant_id = ?
	`, tenantID)
	return err
}
