package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/rafaelccorrea/back-plugin-sub000/internal/model"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/repository"
)

// Ledger maintains the per-(tenant, calendar-month) lead-creation counters.
// It never fails on month rollover: a new month key simply starts fresh.
type Ledger struct {
	usage repository.UsageRepository
	now   func() time.Time
}

func NewLedger(usage repository.UsageRepository) *Ledger {
	return &Ledger{usage: usage, now: time.Now}
}

// WithClock overrides the time source, for tests.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed   bool
	Remaining int64
	Limit     int64
	Reason    string
}

// GetOrCreate returns the current month's counter, materializing a zero row
// when the tenant has not been seen this month.
func (l *Ledger) GetOrCreate(ctx context.Context, tenantID int64) (model.UsageCounter, error) {
	key := model.MonthKey(l.now())

	c, err := l.usage.Get(ctx, tenantID, key)
	if err != nil {
		return model.UsageCounter{}, fmt.Errorf("usage get: %w", err)
	}
	if c != nil {
		return *c, nil
	}

	if err := l.usage.UpsertZero(ctx, tenantID, key); err != nil {
		return model.UsageCounter{}, fmt.Errorf("usage upsert zero: %w", err)
	}
	return model.UsageCounter{TenantID: tenantID, MonthKey: key, UnitsConsumed: 0, UpdatedAt: l.now()}, nil
}

// Increment adds amount to the current month's counter.
func (l *Ledger) Increment(ctx context.Context, tenantID int64, amount int64) error {
	if amount <= 0 {
		return nil
	}
	if err := l.usage.IncrementBy(ctx, tenantID, model.MonthKey(l.now()), amount); err != nil {
		return fmt.Errorf("usage increment: %w", err)
	}
	return nil
}

// Reset forces the current month's counter back to zero. Used by plan-change,
// refund and cancellation flows. Idempotent.
func (l *Ledger) Reset(ctx context.Context, tenantID int64) error {
	if err := l.usage.ResetMonth(ctx, tenantID, model.MonthKey(l.now())); err != nil {
		return fmt.Errorf("usage reset: %w", err)
	}
	return nil
}

// Check reports whether one more unit fits under limit. It performs no write;
// a missing row counts as zero. limit == model.UnlimitedLeads bypasses the
// check. Storage errors propagate to the caller, which decides the fail-open
// policy.
func (l *Ledger) Check(ctx context.Context, tenantID int64, limit int64) (Decision, error) {
	if limit == model.UnlimitedLeads {
		return Decision{Allowed: true, Remaining: model.UnlimitedLeads, Limit: limit}, nil
	}

	key := model.MonthKey(l.now())
	c, err := l.usage.Get(ctx, tenantID, key)
	if err != nil {
		return Decision{}, fmt.Errorf("usage get: %w", err)
	}

	var used int64
	if c != nil {
		used = c.UnitsConsumed
	}

	if used >= limit {
		return Decision{
			Allowed:   false,
			Remaining: 0,
			Limit:     limit,
			Reason:    fmt.Sprintf("monthly lead limit of %d reached", limit),
		}, nil
	}
	return Decision{Allowed: true, Remaining: limit - used, Limit: limit}, nil
}
