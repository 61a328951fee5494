package model

import "time"

// MonthKey formats t as the "YYYY-MM" billing-month key, in UTC.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// UsageCounter tracks lead-creation units consumed by a tenant in one month.
// A (tenant_id, month_key) pair with no row is implicitly zero.
type UsageCounter struct {
	TenantID      int64     `db:"tenant_id"`
	MonthKey      string    `db:"month_key"`
	UnitsConsumed int64     `db:"units_consumed"`
	UpdatedAt     time.Time `db:"updated_at"`
}
