package port

import (
	"context"

	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

// Principal is the authenticated caller as supplied by the identity layer.
// The application services trust it as given.
type Principal struct {
	UserID    string
	Role      entity.Role
	CompanyID string
}

// PartialExpenseFields is a best-effort extraction result. Every field is
// optional; callers must treat all of it as untrusted suggestions requiring
// the same validation as manually entered data.
type PartialExpenseFields struct {
	Amount      *float64 `json:"amount,omitempty"`
	Date        *string  `json:"date,omitempty"` // YYYY-MM-DD
	Description *string  `json:"description,omitempty"`
	Category    *string  `json:"category,omitempty"`
}

// DocumentExtractor extracts expense fields from a receipt image or PDF.
type DocumentExtractor interface {
	Extract(ctx context.Context, data []byte, filename string) (*PartialExpenseFields, error)
}

// RateSource converts an amount between currencies. Used once at submission
// time; the engine never re-converts.
type RateSource interface {
	Convert(ctx context.Context, amount float64, from, to string) (float64, error)
}

// Notifier tells a user that a claim needs their decision, or the submitter
// that a claim was resolved. Failures are logged by callers, never propagated.
type Notifier interface {
	NotifyDecisionRequired(ctx context.Context, userID string, claim *entity.ExpenseClaim) error
	NotifyClaimResolved(ctx context.Context, userID string, claim *entity.ExpenseClaim) error
}
