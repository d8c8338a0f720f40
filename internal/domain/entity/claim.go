package entity

import "time"

// ClaimStatus is the claim-level lifecycle state.
type ClaimStatus string

const (
	StatusDraft     ClaimStatus = "DRAFT"
	StatusSubmitted ClaimStatus = "SUBMITTED"
	StatusApproved  ClaimStatus = "APPROVED"
	StatusRejected  ClaimStatus = "REJECTED"
)

var terminalStatuses = map[ClaimStatus]bool{
	StatusApproved: true,
	StatusRejected: true,
}

// IsTerminal returns true once the claim can no longer change.
func (s ClaimStatus) IsTerminal() bool {
	return terminalStatuses[s]
}

// String returns the string representation of the status.
func (s ClaimStatus) String() string {
	return string(s)
}

// ExpenseClaim is a reimbursement request. A claim is mutable by its owner
// while Draft, by the approval engine while Submitted (status only), and never
// after reaching a terminal status.
//
// AppliedRule is the rule snapshot taken at submission time. Rule edits after
// submission never change an in-flight claim's evaluation.
type ExpenseClaim struct {
	ID              string        `json:"id"`
	EmployeeID      string        `json:"employee_id"`
	CompanyID       string        `json:"company_id"`
	Description     string        `json:"description"`
	Date            time.Time     `json:"date"`
	Category        string        `json:"category"`
	Amount          float64       `json:"amount"`
	Currency        string        `json:"currency"`
	ConvertedAmount float64       `json:"converted_amount"`
	Remarks         string        `json:"remarks,omitempty"`
	ReceiptRef      string        `json:"receipt_ref,omitempty"`
	Status          ClaimStatus   `json:"status"`
	Stage           string        `json:"stage,omitempty"`
	AppliedRuleID   string        `json:"applied_rule_id,omitempty"`
	AppliedRule     *ApprovalRule `json:"applied_rule,omitempty"`
	SubmittedAt     *time.Time    `json:"submitted_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}
