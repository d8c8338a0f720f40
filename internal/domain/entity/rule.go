package entity

import "time"

// ApproverSeat is one position in a rule's approver list. The same user may
// occupy several seats; each list entry is a distinct seat.
type ApproverSeat struct {
	UserID   string `json:"user_id"`
	Required bool   `json:"required"`
}

// ApprovalRule describes how a company's claims are approved: an optional
// mandatory manager gate, an ordered or unordered set of approver seats, and a
// minimum-approval-percentage threshold.
type ApprovalRule struct {
	ID                    string         `json:"id"`
	CompanyID             string         `json:"company_id"`
	RuleName              string         `json:"rule_name"`
	Description           string         `json:"description,omitempty"`
	ManagerID             string         `json:"manager_id,omitempty"`
	IsManagerApprover     bool           `json:"is_manager_approver"`
	Approvers             []ApproverSeat `json:"approvers"`
	ApproversSequence     bool           `json:"approvers_sequence"`
	MinApprovalPercentage int            `json:"min_approval_percentage"`
	CreatedAt             time.Time      `json:"created_at"`
}
