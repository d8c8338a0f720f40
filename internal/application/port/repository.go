package port

import (
	"context"

	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

// CompanyRepository defines persistence operations for Company.
type CompanyRepository interface {
	Create(ctx context.Context, company *entity.Company) error
	GetByID(ctx context.Context, id string) (*entity.Company, error)
}

// UserRepository defines persistence operations for User.
type UserRepository interface {
	Create(ctx context.Context, user *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	ListByCompany(ctx context.Context, companyID string) ([]*entity.User, error)
	ListManagers(ctx context.Context, companyID string) ([]*entity.User, error)
}

// RuleRepository defines persistence operations for ApprovalRule. Creating a
// rule makes it the company's active rule; in-flight claims keep their
// snapshot.
type RuleRepository interface {
	Create(ctx context.Context, rule *entity.ApprovalRule) error
	GetByID(ctx context.Context, id string) (*entity.ApprovalRule, error)
	GetActive(ctx context.Context, companyID string) (*entity.ApprovalRule, error)
	Delete(ctx context.Context, id string) error
}

// ClaimRepository defines persistence operations for ExpenseClaim.
type ClaimRepository interface {
	Create(ctx context.Context, claim *entity.ExpenseClaim) error
	GetByID(ctx context.Context, id string) (*entity.ExpenseClaim, error)
	Update(ctx context.Context, claim *entity.ExpenseClaim) error
	UpdateStatus(ctx context.Context, id string, status entity.ClaimStatus, stage string) error
	ListByCompany(ctx context.Context, companyID string, limit, offset int) ([]*entity.ExpenseClaim, error)
	ListByEmployee(ctx context.Context, employeeID string, limit, offset int) ([]*entity.ExpenseClaim, error)
}

// DecisionLedger is the append-only record of approver decisions per claim.
// Append returns approval.ErrDuplicateSeat when the (claim, seat) pair already
// has a decision. ListByClaim returns decisions in append order.
type DecisionLedger interface {
	Append(ctx context.Context, decision *entity.Decision) error
	ListByClaim(ctx context.Context, claimID string) ([]entity.Decision, error)
}

// TransactionManager handles database transactions. The callback context
// carries the transaction; repositories pick it up transparently.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
