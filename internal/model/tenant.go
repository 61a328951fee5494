package model

import "time"

// UnlimitedLeads is the sentinel monthly limit that bypasses quota checks.
const UnlimitedLeads int64 = -1

type Tenant struct {
	ID               int64     `db:"id"`
	Name             string    `db:"name"`
	APIKey           string    `db:"api_key"`
	Status           string    `db:"status"`             // active|suspended
	MonthlyLeadLimit int64     `db:"monthly_lead_limit"` // UnlimitedLeads = no cap
	RateLimitRPS     *int      `db:"rate_limit_rps"`     // nullable
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}
