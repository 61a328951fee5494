package capture

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/rafaelccorrea/back-plugin-sub000/internal/automation"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/logger"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/metrics"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/model"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/quota"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/repository"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/util"
	"go.uber.org/zap"
)

// LimitResolver answers the monthly lead limit for a tenant. Plan/billing
// resolution lives outside this core; the default implementation reads the
// tenant row.
type LimitResolver interface {
	MonthlyLeadLimit(ctx context.Context, tenantID int64) (int64, error)
}

// TenantLimitResolver resolves the limit from the tenants table, with a
// config fallback for rows that carry no plan-specific value.
type TenantLimitResolver struct {
	Tenants repository.TenantsRepository
	Default int64
}

func (r TenantLimitResolver) MonthlyLeadLimit(ctx context.Context, tenantID int64) (int64, error) {
	t, err := r.Tenants.GetByID(ctx, tenantID)
	if err != nil {
		return 0, err
	}
	if t == nil || t.MonthlyLeadLimit == 0 {
		return r.Default, nil
	}
	return t.MonthlyLeadLimit, nil
}

// Result is the outcome of one capture call.
type Result struct {
	LeadID     string
	WasCreated bool
	Record     model.Lead
}

// Coordinator is the lead capture orchestrator: dedup against open records,
// quota-gated creation, and automation fan-out (webhook + notification).
type Coordinator struct {
	leads  repository.LeadsRepository
	ledger *quota.Ledger
	limits LimitResolver
	locks  KeyLock
	rules  *automation.Registry
}

func NewCoordinator(
	leads repository.LeadsRepository,
	ledger *quota.Ledger,
	limits LimitResolver,
	locks KeyLock,
	rules *automation.Registry,
) *Coordinator {
	if locks == nil {
		locks = NoopLock{}
	}
	return &Coordinator{leads: leads, ledger: ledger, limits: limits, locks: locks, rules: rules}
}

// Capture finds-or-creates the lead record for tenantID from the analyzed
// candidate fields. Merging an open record never consumes quota; creating a
// record consumes one unit and is blocked by ErrQuotaExceeded at the limit.
func (c *Coordinator) Capture(ctx context.Context, tenantID int64, cand model.Candidate) (Result, error) {
	if err := validate(cand); err != nil {
		metrics.CapturesTotal.WithLabelValues("error").Inc()
		return Result{}, err
	}

	phone := util.NormalizePhone(cand.Phone)

	if phone != "" {
		release, acquired := c.locks.Acquire(ctx, fmt.Sprintf("%d:%s", tenantID, phone))
		defer release()
		if !acquired {
			logger.Log.Warn("capture lock unavailable, proceeding unserialized",
				zap.Int64("tenant_id", tenantID))
		}

		existing, err := c.leads.FindOpenByPhone(ctx, tenantID, phone)
		if err != nil {
			metrics.CapturesTotal.WithLabelValues("error").Inc()
			return Result{}, fmt.Errorf("dedup lookup: %w", err)
		}
		if existing != nil {
			return c.merge(ctx, *existing, cand)
		}
	}

	return c.create(ctx, tenantID, phone, cand)
}

// CheckQuota is the quota gate shared with other record-creation entrypoints.
// Storage failures fail open: a transient outage must not block legitimate
// captures.
func (c *Coordinator) CheckQuota(ctx context.Context, tenantID int64) quota.Decision {
	limit, err := c.limits.MonthlyLeadLimit(ctx, tenantID)
	if err != nil {
		logger.Log.Warn("limit resolution failed, quota check fails open",
			zap.Int64("tenant_id", tenantID), zap.Error(err))
		return quota.Decision{Allowed: true, Remaining: model.UnlimitedLeads}
	}

	dec, err := c.ledger.Check(ctx, tenantID, limit)
	if err != nil {
		logger.Log.Warn("quota check failed, failing open",
			zap.Int64("tenant_id", tenantID), zap.Error(err))
		return quota.Decision{Allowed: true, Remaining: model.UnlimitedLeads}
	}

	return dec
}

func (c *Coordinator) create(ctx context.Context, tenantID int64, phone string, cand model.Candidate) (Result, error) {
	dec := c.CheckQuota(ctx, tenantID)
	if !dec.Allowed {
		metrics.CapturesTotal.WithLabelValues("rejected").Inc()
		return Result{}, &QuotaExceededError{Limit: dec.Limit, Reason: dec.Reason}
	}

	lead := model.Lead{
		ID:                util.NewID(),
		TenantID:          tenantID,
		Name:              cand.Name,
		Email:             cand.Email,
		Objective:         cand.Objective,
		PropertyType:      cand.PropertyType,
		Neighborhood:      cand.Neighborhood,
		Budget:            cand.Budget,
		Urgency:           cand.Urgency,
		Score:             cand.Score,
		Summary:           cand.Summary,
		SuggestedResponse: cand.SuggestedResponse,
		Status:            model.LeadStatusNew,
		Checklist:         model.Checklist(nil).Union(cand.ChecklistItems),
	}
	if phone != "" {
		lead.Phone = &phone
	}

	if err := c.leads.Insert(ctx, lead); err != nil {
		metrics.CapturesTotal.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("insert lead: %w", err)
	}

	if err := c.ledger.Increment(ctx, tenantID, 1); err != nil {
		// the lead exists; an undercounted unit is preferable to a failed capture
		logger.Log.Error("quota increment failed after create",
			zap.Int64("tenant_id", tenantID), zap.String("lead_id", lead.ID), zap.Error(err))
	}

	metrics.CapturesTotal.WithLabelValues("created").Inc()
	c.fire(ctx, automation.TriggerLeadCreated, lead)

	return Result{LeadID: lead.ID, WasCreated: true, Record: lead}, nil
}

func (c *Coordinator) merge(ctx context.Context, existing model.Lead, cand model.Candidate) (Result, error) {
	merged := mergeCandidate(existing, cand)

	if err := c.leads.Update(ctx, merged); err != nil {
		metrics.CapturesTotal.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("update lead: %w", err)
	}

	metrics.CapturesTotal.WithLabelValues("merged").Inc()
	c.fire(ctx, automation.TriggerLeadUpdated, merged)

	return Result{LeadID: merged.ID, WasCreated: false, Record: merged}, nil
}

// fire hands the event to the automation registry. Handlers are non-blocking
// (webhook enqueue, async notification publish); the detached context keeps
// them alive past the request's cancellation.
func (c *Coordinator) fire(ctx context.Context, trigger automation.Trigger, lead model.Lead) {
	if c.rules == nil {
		return
	}
	c.rules.Fire(context.WithoutCancel(ctx), automation.Event{
		TenantID: lead.TenantID,
		Trigger:  trigger,
		Lead:     lead,
	})
}

// mergeCandidate applies candidate-wins field merge: a non-nil candidate field
// overwrites, a nil one retains the existing value. Checklist items are
// unioned so confirmed items are never un-confirmed. Status never changes on
// merge.
func mergeCandidate(existing model.Lead, cand model.Candidate) model.Lead {
	out := existing
	if cand.Name != nil {
		out.Name = cand.Name
	}
	if cand.Email != nil {
		out.Email = cand.Email
	}
	if cand.Objective != nil {
		out.Objective = cand.Objective
	}
	if cand.PropertyType != nil {
		out.PropertyType = cand.PropertyType
	}
	if cand.Neighborhood != nil {
		out.Neighborhood = cand.Neighborhood
	}
	if cand.Budget != nil {
		out.Budget = cand.Budget
	}
	if cand.Urgency != nil {
		out.Urgency = cand.Urgency
	}
	if cand.Score != nil {
		out.Score = cand.Score
	}
	if cand.Summary != nil {
		out.Summary = cand.Summary
	}
	if cand.SuggestedResponse != nil {
		out.SuggestedResponse = cand.SuggestedResponse
	}
	out.Checklist = existing.Checklist.Union(cand.ChecklistItems)
	return out
}

const (
	maxShortField = 255
	maxLongField  = 4000
)

func validate(cand model.Candidate) error {
	short := map[string]*string{
		"name":          cand.Name,
		"email":         cand.Email,
		"objective":     cand.Objective,
		"property_type": cand.PropertyType,
		"neighborhood":  cand.Neighborhood,
		"budget":        cand.Budget,
		"urgency":       cand.Urgency,
	}
	for field, v := range short {
		if v != nil && utf8.RuneCountInString(*v) > maxShortField {
			return &ValidationError{Field: field, Detail: "too long"}
		}
	}
	if cand.Summary != nil && utf8.RuneCountInString(*cand.Summary) > maxLongField {
		return &ValidationError{Field: "summary", Detail: "too long"}
	}
	if cand.SuggestedResponse != nil && utf8.RuneCountInString(*cand.SuggestedResponse) > maxLongField {
		return &ValidationError{Field: "suggested_response", Detail: "too long"}
	}
	if cand.Score != nil && (*cand.Score < 0 || *cand.Score > 100) {
		return &ValidationError{Field: "score", Detail: "out of range"}
	}
	for _, it := range cand.ChecklistItems {
		if utf8.RuneCountInString(it) > maxShortField {
			return &ValidationError{Field: "checklist_items", Detail: "item too long"}
		}
	}
	return nil
}
