package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/logger"
	"github.com/rafaelccorrea/back-plugin-sub000/internal/model"
	"go.uber.org/zap"
)

const (
	mysqlErrUnknownColumn = 1054
)

// leadColumns is the full column set; leadColumnsReduced is the base set used
// when the storage schema predates the qualification fields. Reads and updates
// fall back to the reduced set instead of hard-failing on unknown columns.
const (
	leadColumns = `id, tenant_id, phone, name, email, objective, property_type, neighborhood,
		budget, urgency, score, summary, suggested_response, status, checklist, created_at, updated_at`
	leadColumnsReduced = `id, tenant_id, phone, name, email, status, checklist, created_at, updated_at`
)

type LeadsRepository interface {
	FindOpenByPhone(ctx context.Context, tenantID int64, phone string) (*model.Lead, error)
	Insert(ctx context.Context, l model.Lead) error
	Update(ctx context.Context, l model.Lead) error
	ListByTenant(ctx context.Context, tenantID int64, status model.LeadStatus, limit, offset int) ([]model.Lead, error)
}

type LeadsRepositoryImpl struct {
	db *sqlx.DB
}

func NewLeadsRepository(db *sqlx.DB) *LeadsRepositoryImpl {
	return &LeadsRepositoryImpl{db: db}
}

var _ LeadsRepository = (*LeadsRepositoryImpl)(nil)

func isUnknownColumn(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlErrUnknownColumn
}

// FindOpenByPhone returns the most recently created lead for (tenant, phone)
// whose status is still open, or nil when no such record exists.
func (r *LeadsRepositoryImpl) FindOpenByPhone(ctx context.Context, tenantID int64, phone string) (*model.Lead, error) {
	query, args, err := sqlx.In(`
		SELECT `+leadColumns+`
		  FROM leads
		 WHERE tenant_id = ? AND phone = ? AND status IN (?)
		 ORDER BY created_at DESC
		 LIMIT 1
	`, tenantID, phone, model.OpenStatuses())
	if err != nil {
		return nil, err
	}

	var l model.Lead
	err = r.db.GetContext(ctx, &l, r.db.Rebind(query), args...)
	if isUnknownColumn(err) {
		logger.Log.Warn("leads schema missing columns, reduced-field read",
			zap.Int64("tenant_id", tenantID), zap.Error(err))
		query, args, inErr := sqlx.In(`
			SELECT `+leadColumnsReduced+`
			  FROM leads
			 WHERE tenant_id = ? AND phone = ? AND status IN (?)
			 ORDER BY created_at DESC
			 LIMIT 1
		`, tenantID, phone, model.OpenStatuses())
		if inErr != nil {
			return nil, inErr
		}
		err = r.db.GetContext(ctx, &l, r.db.Rebind(query), args...)
	}
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LeadsRepositoryImpl) Insert(ctx context.Context, l model.Lead) error {
	const q = `
		INSERT INTO leads
		    (id, tenant_id, phone, name, email, objective, property_type, neighborhood,
		     budget, urgency, score, summary, suggested_response, status, checklist,
		     created_at, updated_at)
		VALUES
		    (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())
	`
	_, err := r.db.ExecContext(ctx, q,
		l.ID, l.TenantID, l.Phone, l.Name, l.Email, l.Objective, l.PropertyType,
		l.Neighborhood, l.Budget, l.Urgency, l.Score, l.Summary, l.SuggestedResponse,
		l.Status.String(), l.Checklist,
	)
	return err
}

func (r *LeadsRepositoryImpl) Update(ctx context.Context, l model.Lead) error {
	const q = `
		UPDATE leads
		   SET phone = ?, name = ?, email = ?, objective = ?, property_type = ?,
		       neighborhood = ?, budget = ?, urgency = ?, score = ?, summary = ?,
		       suggested_response = ?, status = ?, checklist = ?, updated_at = NOW()
		 WHERE id = ? AND tenant_id = ?
	`
	_, err := r.db.ExecContext(ctx, q,
		l.Phone, l.Name, l.Email, l.Objective, l.PropertyType, l.Neighborhood,
		l.Budget, l.Urgency, l.Score, l.Summary, l.SuggestedResponse,
		l.Status.String(), l.Checklist, l.ID, l.TenantID,
	)
	if isUnknownColumn(err) {
		logger.Log.Warn("leads schema missing columns, reduced-field update",
			zap.String("lead_id", l.ID), zap.Error(err))
		const reduced = `
			UPDATE leads
			   SET phone = ?, name = ?, email = ?, status = ?, checklist = ?, updated_at = NOW()
			 WHERE id = ? AND tenant_id = ?
		`
		_, err = r.db.ExecContext(ctx, reduced,
			l.Phone, l.Name, l.Email, l.Status.String(), l.Checklist, l.ID, l.TenantID,
		)
	}
	return err
}

func (r *LeadsRepositoryImpl) ListByTenant(ctx context.Context, tenantID int64, status model.LeadStatus, limit, offset int) ([]model.Lead, error) {
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	q := `SELECT ` + leadColumns + ` FROM leads WHERE tenant_id = ?`
	args := []any{tenantID}

	if status != "" {
		q += " AND status = ?"
		args = append(args, status.String())
	}

	q += " ORDER BY created_at DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var rows []model.Lead
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, err
	}
	return rows, nil
}
