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

// RuleRepository implements port.RuleRepository. Approver seats are stored as
// a JSON column; seat order in the JSON array is the seat order of the rule.
type RuleRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewRuleRepository creates a new approval rule repository
func NewRuleRepository(db *database.DB, logger *zap.Logger) port.RuleRepository {
	return &RuleRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new approval rule record
func (r *RuleRepository) Create(ctx context.Context, rule *entity.ApprovalRule) error {
	approvers, err := json.Marshal(rule.Approvers)
	if err != nil {
		return fmt.Errorf("failed to marshal approvers: %w", err)
	}

	query := `
		INSERT INTO approval_rules (
			id, company_id, rule_name, description, manager_id, is_manager_approver,
			approvers, approvers_sequence, min_approval_percentage, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Conn(ctx).ExecContext(ctx, query,
		rule.ID,
		rule.CompanyID,
		rule.RuleName,
		rule.Description,
		nullString(rule.ManagerID),
		rule.IsManagerApprover,
		string(approvers),
		rule.ApproversSequence,
		rule.MinApprovalPercentage,
		rule.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create rule", zap.Error(err))
		return fmt.Errorf("failed to create rule: %w", err)
	}

	return nil
}

// GetByID retrieves a rule by ID, including soft-deleted rules so that claim
// snapshots can still be traced back.
func (r *RuleRepository) GetByID(ctx context.Context, id string) (*entity.ApprovalRule, error) {
	query := `
		SELECT id, company_id, rule_name, description, manager_id, is_manager_approver,
			approvers, approvers_sequence, min_approval_percentage, created_at
		FROM approval_rules
		WHERE id = ?
	`
	return r.scanOne(r.db.Conn(ctx).QueryRowContext(ctx, query, id))
}

// GetActive retrieves the company's current rule: the most recently created
// rule that has not been deleted.
func (r *RuleRepository) GetActive(ctx context.Context, companyID string) (*entity.ApprovalRule, error) {
	query := `
		SELECT id, company_id, rule_name, description, manager_id, is_manager_approver,
			approvers, approvers_sequence, min_approval_percentage, created_at
		FROM approval_rules
		WHERE company_id = ? AND deleted_at IS NULL
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	return r.scanOne(r.db.Conn(ctx).QueryRowContext(ctx, query, companyID))
}

// Delete soft-deletes a rule. In-flight claims are unaffected: they evaluate
// against their stored snapshot.
func (r *RuleRepository) Delete(ctx context.Context, id string) error {
	query := `UPDATE approval_rules SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`

	_, err := r.db.Conn(ctx).ExecContext(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete rule", zap.String("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete rule: %w", err)
	}

	return nil
}

func (r *RuleRepository) scanOne(row *sql.Row) (*entity.ApprovalRule, error) {
	var rule entity.ApprovalRule
	var managerID sql.NullString
	var approvers string

	err := row.Scan(
		&rule.ID,
		&rule.CompanyID,
		&rule.RuleName,
		&rule.Description,
		&managerID,
		&rule.IsManagerApprover,
		&approvers,
		&rule.ApproversSequence,
		&rule.MinApprovalPercentage,
		&rule.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get rule", zap.Error(err))
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	rule.ManagerID = managerID.String
	if err := json.Unmarshal([]byte(approvers), &rule.Approvers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal approvers: %w", err)
	}

	return &rule, nil
}

// Verify interface compliance
var _ port.RuleRepository = (*RuleRepository)(nil)
