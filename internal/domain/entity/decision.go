package entity

import "time"

// DecisionAction is a closed two-variant tag so the state machine is
// exhaustively checkable.
type DecisionAction string

const (
	ActionApprove DecisionAction = "APPROVE"
	ActionReject  DecisionAction = "REJECT"
)

// IsValid returns true for the two known actions.
func (a DecisionAction) IsValid() bool {
	return a == ActionApprove || a == ActionReject
}

// ManagerSeat is the seat index reserved for the manager-gate decision. It is
// outside the approver seat arena and never counts toward the percentage
// threshold.
const ManagerSeat = -1

// Decision is one approver's recorded verdict on a claim. Decisions are
// append-only: at most one per (claim, seat), never mutated or deleted.
type Decision struct {
	ID             string         `json:"id"`
	ClaimID        string         `json:"claim_id"`
	ApproverUserID string         `json:"approver_user_id"`
	SeatIndex      int            `json:"seat_index"`
	Action         DecisionAction `json:"action"`
	Comment        string         `json:"comment,omitempty"`
	Timestamp      time.Time      `json:"timestamp"`
}
