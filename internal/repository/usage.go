package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/model"
)

type UsageRepository interface {
	Get(ctx context.Context, tenantID int64, monthKey string) (*model.UsageCounter, error)
	UpsertZero(ctx context.Context, tenantID int64, monthKey string) error
	IncrementBy(ctx context.Context, tenantID int64, monthKey string, amount int64) error
	ResetMonth(ctx context.Context, tenantID int64, monthKey string) error
}

type UsageRepositoryImpl struct {
	db *sqlx.DB
}

func NewUsageRepository(db *sqlx.DB) *UsageRepositoryImpl {
	return &UsageRepositoryImpl{db: db}
}

var _ UsageRepository = (*UsageRepositoryImpl)(nil)

func (r *UsageRepositoryImpl) Get(ctx context.Context, tenantID int64, monthKey string) (*model.UsageCounter, error) {
	var c model.UsageCounter
	err := r.db.GetContext(ctx, &c, `
		SELECT tenant_id, month_key, units_consumed, updated_at
		  FROM usage_counters
		 WHERE tenant_id = ? AND month_key = ? LIMIT 1
	`, tenantID, monthKey)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertZero materializes the counter row at zero without touching an
// existing value.
func (r *UsageRepositoryImpl) UpsertZero(ctx context.Context, tenantID int64, monthKey string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO usage_counters (tenant_id, month_key, units_consumed, created_at, updated_at)
		VALUES (?, ?, 0, NOW(), NOW())
		ON DUPLICATE KEY UPDATE tenant_id = tenant_id
	`, tenantID, monthKey)
	return err
}

// IncrementBy adds amount atomically, creating the row when absent. The upsert
// avoids the read-then-write lost update under concurrent captures.
func (r *UsageRepositoryImpl) IncrementBy(ctx context.Context, tenantID int64, monthKey string, amount int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO usage_counters (tenant_id, month_key, units_consumed, created_at, updated_at)
		VALUES (?, ?, ?, NOW(), NOW())
		ON DUPLICATE KEY UPDATE
		    units_consumed = units_consumed + VALUES(units_consumed),
		    updated_at = NOW()
	`, tenantID, monthKey, amount)
	return err
}

// ResetMonth forces the counter to zero. Idempotent; creates the row if absent.
func (r *UsageRepositoryImpl) ResetMonth(ctx context.Context, tenantID int64, monthKey string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO usage_counters (tenant_id, month_key, units_consumed, created_at, updated_at)
		VALUES (?, ?, 0, NOW(), NOW())
		ON DUPLICATE KEY UPDATE
		    units_consumed = 0,
		    updated_at = NOW()
	`, tenantID, monthKey)
	return err
}
