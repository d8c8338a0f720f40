package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/pkg/database"
	"go.uber.org/zap"
)

const claimColumns = `id, employee_id, company_id, description, date, category,
		amount, currency, converted_amount, remarks, receipt_ref, status, stage,
		applied_rule_id, applied_rule, submitted_at, created_at, updated_at`

// ClaimRepository implements port.ClaimRepository. The rule snapshot taken at
// submission is stored as a JSON column alongside the claim.
type ClaimRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewClaimRepository creates a new expense claim repository
func NewClaimRepository(db *database.DB, logger *zap.Logger) port.ClaimRepository {
	return &ClaimRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new claim record
func (r *ClaimRepository) Create(ctx context.Context, claim *entity.ExpenseClaim) error {
	appliedRule, err := marshalRule(claim.AppliedRule)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO expense_claims (` + claimColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Conn(ctx).ExecContext(ctx, query,
		claim.ID,
		claim.EmployeeID,
		claim.CompanyID,
		claim.Description,
		claim.Date,
		claim.Category,
		claim.Amount,
		claim.Currency,
		claim.ConvertedAmount,
		claim.Remarks,
		claim.ReceiptRef,
		claim.Status.String(),
		claim.Stage,
		nullString(claim.AppliedRuleID),
		appliedRule,
		claim.SubmittedAt,
		claim.CreatedAt,
		claim.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create claim", zap.Error(err))
		return fmt.Errorf("failed to create claim: %w", err)
	}

	return nil
}

// GetByID retrieves a claim by ID
func (r *ClaimRepository) GetByID(ctx context.Context, id string) (*entity.ExpenseClaim, error) {
	query := `SELECT ` + claimColumns + ` FROM expense_claims WHERE id = ?`

	row := r.db.Conn(ctx).QueryRowContext(ctx, query, id)
	claim, err := scanClaim(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get claim by ID", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return claim, nil
}

// Update updates a draft claim's editable fields and recorded conversion
func (r *ClaimRepository) Update(ctx context.Context, claim *entity.ExpenseClaim) error {
	appliedRule, err := marshalRule(claim.AppliedRule)
	if err != nil {
		return err
	}

	query := `
		UPDATE expense_claims
		SET description = ?, date = ?, category = ?, amount = ?, currency = ?,
			converted_amount = ?, remarks = ?, receipt_ref = ?, status = ?, stage = ?,
			applied_rule_id = ?, applied_rule = ?, submitted_at = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err = r.db.Conn(ctx).ExecContext(ctx, query,
		claim.Description,
		claim.Date,
		claim.Category,
		claim.Amount,
		claim.Currency,
		claim.ConvertedAmount,
		claim.Remarks,
		claim.ReceiptRef,
		claim.Status.String(),
		claim.Stage,
		nullString(claim.AppliedRuleID),
		appliedRule,
		claim.SubmittedAt,
		claim.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update claim", zap.String("id", claim.ID), zap.Error(err))
		return fmt.Errorf("failed to update claim: %w", err)
	}

	return nil
}

// UpdateStatus updates a claim's lifecycle status and workflow stage
func (r *ClaimRepository) UpdateStatus(ctx context.Context, id string, status entity.ClaimStatus, stage string) error {
	query := `
		UPDATE expense_claims
		SET status = ?, stage = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := r.db.Conn(ctx).ExecContext(ctx, query, status.String(), stage, id)
	if err != nil {
		r.logger.Error("Failed to update claim status", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to update claim status: %w", err)
	}

	return nil
}

// ListByCompany retrieves a company's claims, newest first
func (r *ClaimRepository) ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.ExpenseClaim, error) {
	query := `
		SELECT ` + claimColumns + `
		FROM expense_claims
		WHERE company_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	return r.list(ctx, query, companyID, limit, offset)
}

// ListByEmployee retrieves an employee's claims, newest first
func (r *ClaimRepository) ListByEmployee(ctx context.Context, employeeID string, limit, offset int) ([]*entity.ExpenseClaim, error) {
	query := `
		SELECT ` + claimColumns + `
		FROM expense_claims
		WHERE employee_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`
	return r.list(ctx, query, employeeID, limit, offset)
}

func (r *ClaimRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.ExpenseClaim, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list claims", zap.Error(err))
		return nil, fmt.Errorf("failed to list claims: %w", err)
	}
	defer rows.Close()

	var claims []*entity.ExpenseClaim
	for rows.Next() {
		claim, err := scanClaim(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claim: %w", err)
		}
		claims = append(claims, claim)
	}

	return claims, rows.Err()
}

func scanClaim(scan func(dest ...interface{}) error) (*entity.ExpenseClaim, error) {
	var claim entity.ExpenseClaim
	var date, submittedAt sql.NullTime
	var appliedRuleID, appliedRule sql.NullString

	err := scan(
		&claim.ID,
		&claim.EmployeeID,
		&claim.CompanyID,
		&claim.Description,
		&date,
		&claim.Category,
		&claim.Amount,
		&claim.Currency,
		&claim.ConvertedAmount,
		&claim.Remarks,
		&claim.ReceiptRef,
		&claim.Status,
		&claim.Stage,
		&appliedRuleID,
		&appliedRule,
		&submittedAt,
		&claim.CreatedAt,
		&claim.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if date.Valid {
		claim.Date = date.Time
	}
	if submittedAt.Valid {
		claim.SubmittedAt = &submittedAt.Time
	}
	claim.AppliedRuleID = appliedRuleID.String
	if appliedRule.Valid && appliedRule.String != "" {
		var rule entity.ApprovalRule
		if err := json.Unmarshal([]byte(appliedRule.String), &rule); err != nil {
			return nil, fmt.Errorf("failed to unmarshal rule snapshot: %w", err)
		}
		claim.AppliedRule = &rule
	}

	return &claim, nil
}

func marshalRule(rule *entity.ApprovalRule) (sql.NullString, error) {
	if rule == nil {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(rule)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal rule snapshot: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

// Verify interface compliance
var _ port.ClaimRepository = (*ClaimRepository)(nil)
