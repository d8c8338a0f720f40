// Package approval implements the approval-rule evaluation engine: a pure
// state machine that turns a rule plus a partial decision set into a claim
// stage. The engine performs no I/O and never consults a clock; given the same
// rule and the same decision sequence it always produces the same stage.
package approval

import (
	"fmt"

	"github.com/expenseflow/expenseflow/internal/domain/entity"
)

// Engine evaluates approval rules against decision ledgers.
type Engine struct {
	earlyReject bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithPendingUntilDecided disables early-impossibility rejection: a claim
// stays in AwaitingApprovers until the threshold is met or a required seat
// rejects, even when the threshold has become unreachable.
func WithPendingUntilDecided() Option {
	return func(e *Engine) {
		e.earlyReject = false
	}
}

// NewEngine creates an engine. Early-impossibility rejection is on by default
// so claims never sit on an unreachable threshold.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{earlyReject: true}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run holds the evaluation state for a single claim.
type run struct {
	rule  *entity.ApprovalRule
	state State
	seats map[int]entity.DecisionAction
}

func (e *Engine) newRun(rule *entity.ApprovalRule) *run {
	r := &run{
		rule:  rule,
		seats: make(map[int]entity.DecisionAction, len(rule.Approvers)),
	}
	// The manager gate only applies when a manager was resolvable at
	// submission time; otherwise proceed straight to the approver stage.
	if rule.IsManagerApprover && rule.ManagerID != "" {
		r.state = StateAwaitingManager
	} else {
		e.enterApprovers(r)
	}
	return r
}

// InitialState returns the stage a freshly submitted claim starts in. An
// empty approver set with no manager gate is vacuously approved immediately.
func (e *Engine) InitialState(rule *entity.ApprovalRule) State {
	return e.newRun(rule).state
}

// Evaluate replays a decision ledger against a rule and returns the resulting
// stage. The ledger must be in append order.
func (e *Engine) Evaluate(rule *entity.ApprovalRule, decisions []entity.Decision) (State, error) {
	r := e.newRun(rule)
	for i := range decisions {
		if err := e.step(r, &decisions[i]); err != nil {
			return r.state, fmt.Errorf("ledger entry %d: %w", i, err)
		}
	}
	return r.state, nil
}

// Apply validates one new decision against the rule and the ledger recorded
// so far, returning the stage after the decision takes effect. The decision
// must not be appended to the ledger unless Apply succeeds.
func (e *Engine) Apply(rule *entity.ApprovalRule, decisions []entity.Decision, next *entity.Decision) (State, error) {
	r := e.newRun(rule)
	for i := range decisions {
		if err := e.step(r, &decisions[i]); err != nil {
			return r.state, fmt.Errorf("replaying ledger entry %d: %w", i, err)
		}
	}
	if err := e.step(r, next); err != nil {
		return r.state, err
	}
	return r.state, nil
}

func (e *Engine) step(r *run, d *entity.Decision) error {
	if !d.Action.IsValid() {
		return fmt.Errorf("%w: unknown action %q", ErrValidation, d.Action)
	}
	if r.state.IsTerminal() {
		return fmt.Errorf("%w: claim already %s", ErrInvalidTransition, r.state)
	}
	if d.SeatIndex == entity.ManagerSeat {
		return e.stepManager(r, d)
	}
	return e.stepApprover(r, d)
}

func (e *Engine) stepManager(r *run, d *entity.Decision) error {
	if r.state != StateAwaitingManager {
		return fmt.Errorf("%w: no manager decision expected in state %s", ErrInvalidTransition, r.state)
	}
	// Manager veto is absolute, independent of the approver set.
	if d.Action == entity.ActionReject {
		r.state = StateRejected
		return nil
	}
	e.enterApprovers(r)
	return nil
}

func (e *Engine) stepApprover(r *run, d *entity.Decision) error {
	if r.state == StateAwaitingManager {
		return fmt.Errorf("%w: manager decision pending", ErrInvalidTransition)
	}
	if d.SeatIndex < 0 || d.SeatIndex >= len(r.rule.Approvers) {
		return fmt.Errorf("%w: seat %d out of range for %d approvers", ErrValidation, d.SeatIndex, len(r.rule.Approvers))
	}
	if _, decided := r.seats[d.SeatIndex]; decided {
		return fmt.Errorf("%w: seat %d", ErrDuplicateSeat, d.SeatIndex)
	}
	if r.rule.ApproversSequence {
		// Seat N is gated on every required seat before it having an
		// approval on record. Optional seats never block progression and
		// may still record a decision after being skipped over.
		for i := 0; i < d.SeatIndex; i++ {
			if !r.rule.Approvers[i].Required {
				continue
			}
			if action, ok := r.seats[i]; !ok || action != entity.ActionApprove {
				return fmt.Errorf("%w: seat %d is gated on required seat %d", ErrInvalidTransition, d.SeatIndex, i)
			}
		}
	}

	r.seats[d.SeatIndex] = d.Action

	if d.Action == entity.ActionReject {
		if r.rule.Approvers[d.SeatIndex].Required {
			r.state = StateRejected
			return nil
		}
		e.checkImpossible(r)
		return nil
	}
	e.checkThreshold(r)
	return nil
}

// enterApprovers moves the run into the approver stage and resolves it right
// away when the stage is already conclusive: zero seats are vacuously
// satisfied, and a zero threshold is met before anyone decides.
func (e *Engine) enterApprovers(r *run) {
	r.state = StateAwaitingApprovers
	e.checkThreshold(r)
}

// checkThreshold applies the percentage test, floor(approved*100/total)
// against MinApprovalPercentage. Approval is conclusive as soon as the
// arithmetic allows, even with seats still undecided.
func (e *Engine) checkThreshold(r *run) {
	total := len(r.rule.Approvers)
	if total == 0 {
		r.state = StateApproved
		return
	}
	approved := r.approvedCount()
	if approved*100/total >= r.rule.MinApprovalPercentage {
		r.state = StateApproved
		return
	}
	e.checkImpossible(r)
}

// checkImpossible rejects once the threshold can no longer be met even if
// every undecided seat were to approve.
func (e *Engine) checkImpossible(r *run) {
	if !e.earlyReject {
		return
	}
	total := len(r.rule.Approvers)
	if total == 0 {
		return
	}
	bestCase := r.approvedCount() + (total - len(r.seats))
	if bestCase*100/total < r.rule.MinApprovalPercentage {
		r.state = StateRejected
	}
}

func (r *run) approvedCount() int {
	n := 0
	for _, action := range r.seats {
		if action == entity.ActionApprove {
			n++
		}
	}
	return n
}
