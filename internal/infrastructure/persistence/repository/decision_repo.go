package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/approval"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/pkg/database"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// DecisionRepository implements port.DecisionLedger. The ledger is append-only:
// a UNIQUE (claim_id, seat_index) constraint enforces one decision per seat,
// and there are no update or delete operations.
type DecisionRepository struct {
	db     *database.DB
	logger *zap.Logger
}

// NewDecisionRepository creates a new decision ledger
func NewDecisionRepository(db *database.DB, logger *zap.Logger) port.DecisionLedger {
	return &DecisionRepository{
		db:     db,
		logger: logger,
	}
}

// Append records a decision. A second decision for the same seat violates the
// unique constraint and is reported as approval.ErrDuplicateSeat.
func (r *DecisionRepository) Append(ctx context.Context, decision *entity.Decision) error {
	query := `
		INSERT INTO decisions (id, claim_id, approver_user_id, seat_index, action, comment, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.Conn(ctx).ExecContext(ctx, query,
		decision.ID,
		decision.ClaimID,
		decision.ApproverUserID,
		decision.SeatIndex,
		string(decision.Action),
		decision.Comment,
		decision.Timestamp,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("%w: claim %s seat %d", approval.ErrDuplicateSeat, decision.ClaimID, decision.SeatIndex)
		}
		r.logger.Error("Failed to append decision", zap.String("claim_id", decision.ClaimID), zap.Error(err))
		return fmt.Errorf("failed to append decision: %w", err)
	}

	return nil
}

// ListByClaim retrieves a claim's decisions in append order
func (r *DecisionRepository) ListByClaim(ctx context.Context, claimID string) ([]entity.Decision, error) {
	query := `
		SELECT id, claim_id, approver_user_id, seat_index, action, comment, timestamp
		FROM decisions
		WHERE claim_id = ?
		ORDER BY seq
	`

	rows, err := r.db.Conn(ctx).QueryContext(ctx, query, claimID)
	if err != nil {
		r.logger.Error("Failed to list decisions", zap.String("claim_id", claimID), zap.Error(err))
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var decisions []entity.Decision
	for rows.Next() {
		var d entity.Decision
		err := rows.Scan(
			&d.ID,
			&d.ClaimID,
			&d.ApproverUserID,
			&d.SeatIndex,
			&d.Action,
			&d.Comment,
			&d.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan decision: %w", err)
		}
		decisions = append(decisions, d)
	}

	return decisions, rows.Err()
}

// Verify interface compliance
var _ port.DecisionLedger = (*DecisionRepository)(nil)
