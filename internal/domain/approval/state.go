package approval

// State is the evaluation stage of a submitted claim.
type State string

const (
	StateAwaitingManager   State = "AWAITING_MANAGER"
	StateAwaitingApprovers State = "AWAITING_APPROVERS"
	StateApproved          State = "APPROVED"
	StateRejected          State = "REJECTED"
)

var terminalStates = map[State]bool{
	StateApproved: true,
	StateRejected: true,
}

// IsTerminal returns true if the state accepts no further decisions.
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// String returns the string representation of the state.
func (s State) String() string {
	return string(s)
}
