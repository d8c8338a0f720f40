package service

import (
	"context"
	"fmt"
	"time"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/approval"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/pkg/utils"
	"github.com/google/uuid"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ClaimInput carries the owner-editable fields of a claim.
type ClaimInput struct {
	Description string
	Date        time.Time
	Category    string
	Amount      float64
	Currency    string
	Remarks     string
	ReceiptRef  string
}

// DecisionInput carries one approver verdict. SeatIndex is optional: when nil
// the service resolves the caller's lowest undecided seat; it must be set when
// the same user holds several seats and wants a specific one.
type DecisionInput struct {
	Action    entity.DecisionAction
	Comment   string
	SeatIndex *int
}

// ClaimStatusView is the read model for a claim's workflow position.
type ClaimStatusView struct {
	Claim        *entity.ExpenseClaim `json:"claim"`
	Decisions    []entity.Decision    `json:"decisions"`
	PendingSeats []PendingSeat        `json:"pending_seats"`
}

// PendingSeat identifies a seat that may act right now.
type PendingSeat struct {
	SeatIndex int    `json:"seat_index"`
	UserID    string `json:"user_id"`
	Required  bool   `json:"required"`
}

// ClaimService manages the expense claim lifecycle from draft to resolution.
type ClaimService interface {
	CreateDraft(ctx context.Context, principal port.Principal, input ClaimInput) (*entity.ExpenseClaim, error)
	UpdateDraft(ctx context.Context, principal port.Principal, claimID string, input ClaimInput) (*entity.ExpenseClaim, error)
	Submit(ctx context.Context, principal port.Principal, claimID string) (*entity.ExpenseClaim, error)
	RecordDecision(ctx context.Context, principal port.Principal, claimID string, input DecisionInput) (*entity.ExpenseClaim, error)
	Get(ctx context.Context, principal port.Principal, claimID string) (*entity.ExpenseClaim, error)
	Status(ctx context.Context, principal port.Principal, claimID string) (*ClaimStatusView, error)
	List(ctx context.Context, principal port.Principal, limit, offset int) ([]*entity.ExpenseClaim, error)
}

type claimServiceImpl struct {
	claimRepo   port.ClaimRepository
	ruleRepo    port.RuleRepository
	userRepo    port.UserRepository
	companyRepo port.CompanyRepository
	ledger      port.DecisionLedger
	txManager   port.TransactionManager
	engine      *approval.Engine
	rateSource  port.RateSource
	notifier    port.Notifier
	locks       *claimLocks
	logger      Logger
}

// NewClaimService creates a new ClaimService
func NewClaimService(
	claimRepo port.ClaimRepository,
	ruleRepo port.RuleRepository,
	userRepo port.UserRepository,
	companyRepo port.CompanyRepository,
	ledger port.DecisionLedger,
	txManager port.TransactionManager,
	engine *approval.Engine,
	rateSource port.RateSource,
	notifier port.Notifier,
	logger Logger,
) ClaimService {
	return &claimServiceImpl{
		claimRepo:   claimRepo,
		ruleRepo:    ruleRepo,
		userRepo:    userRepo,
		companyRepo: companyRepo,
		ledger:      ledger,
		txManager:   txManager,
		engine:      engine,
		rateSource:  rateSource,
		notifier:    notifier,
		locks:       newClaimLocks(),
		logger:      logger,
	}
}

// CreateDraft creates a new draft claim owned by the caller
func (s *claimServiceImpl) CreateDraft(ctx context.Context, principal port.Principal, input ClaimInput) (*entity.ExpenseClaim, error) {
	if err := validateDraftInput(input); err != nil {
		return nil, err
	}

	now := time.Now()
	claim := &entity.ExpenseClaim{
		ID:          uuid.NewString(),
		EmployeeID:  principal.UserID,
		CompanyID:   principal.CompanyID,
		Description: input.Description,
		Date:        input.Date,
		Category:    input.Category,
		Amount:      input.Amount,
		Currency:    input.Currency,
		Remarks:     input.Remarks,
		ReceiptRef:  input.ReceiptRef,
		Status:      entity.StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.claimRepo.Create(ctx, claim); err != nil {
		return nil, err
	}

	s.logger.Info("Draft claim created", "claim_id", claim.ID, "employee_id", principal.UserID)
	return claim, nil
}

// UpdateDraft updates an owned draft claim's editable fields
func (s *claimServiceImpl) UpdateDraft(ctx context.Context, principal port.Principal, claimID string, input ClaimInput) (*entity.ExpenseClaim, error) {
	claim, err := s.loadOwned(ctx, principal, claimID)
	if err != nil {
		return nil, err
	}
	if claim.Status != entity.StatusDraft {
		return nil, fmt.Errorf("%w: claim is %s, only drafts are editable", approval.ErrInvalidTransition, claim.Status)
	}
	if err := validateDraftInput(input); err != nil {
		return nil, err
	}

	claim.Description = input.Description
	claim.Date = input.Date
	claim.Category = input.Category
	claim.Amount = input.Amount
	claim.Currency = input.Currency
	claim.Remarks = input.Remarks
	claim.ReceiptRef = input.ReceiptRef

	if err := s.claimRepo.Update(ctx, claim); err != nil {
		return nil, err
	}
	return claim, nil
}

// Submit moves an owned draft into the workflow. The company's active rule is
// snapshotted onto the claim, the amount is converted to the company currency,
// and the claim may resolve immediately when the rule is vacuously satisfied.
func (s *claimServiceImpl) Submit(ctx context.Context, principal port.Principal, claimID string) (*entity.ExpenseClaim, error) {
	claim, err := s.loadOwned(ctx, principal, claimID)
	if err != nil {
		return nil, err
	}
	if claim.Status != entity.StatusDraft {
		return nil, fmt.Errorf("%w: claim is %s, only drafts can be submitted", approval.ErrInvalidTransition, claim.Status)
	}
	if err := validateSubmission(claim); err != nil {
		return nil, err
	}

	company, err := s.companyRepo.GetByID(ctx, claim.CompanyID)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, fmt.Errorf("%w: company %s", ErrNotFound, claim.CompanyID)
	}

	// Conversion happens exactly once, at submission. A rate source outage
	// fails the submission; the claim stays a draft.
	if claim.Currency == company.Currency {
		claim.ConvertedAmount = claim.Amount
	} else {
		converted, err := s.rateSource.Convert(ctx, claim.Amount, claim.Currency, company.Currency)
		if err != nil {
			s.logger.Error("Currency conversion failed", "claim_id", claim.ID, "error", err)
			return nil, err
		}
		claim.ConvertedAmount = converted
	}

	rule, err := s.ruleRepo.GetActive(ctx, claim.CompanyID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, fmt.Errorf("%w: company has no approval rule", approval.ErrValidation)
	}

	snapshot, err := s.snapshotRule(ctx, rule, claim.EmployeeID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	state := s.engine.InitialState(snapshot)
	claim.Status, claim.Stage = claimPosition(state)
	claim.AppliedRuleID = rule.ID
	claim.AppliedRule = snapshot
	claim.SubmittedAt = &now

	if err := s.claimRepo.Update(ctx, claim); err != nil {
		return nil, err
	}

	s.logger.Info("Claim submitted",
		"claim_id", claim.ID,
		"rule_id", rule.ID,
		"stage", claim.Stage,
	)
	s.notifyAfterTransition(ctx, claim, state, nil)
	return claim, nil
}

// RecordDecision records one approver verdict and advances the claim. The
// decision is validated against the rule snapshot and the ledger inside a
// transaction, and a per-claim lock serializes concurrent approvers.
func (s *claimServiceImpl) RecordDecision(ctx context.Context, principal port.Principal, claimID string, input DecisionInput) (*entity.ExpenseClaim, error) {
	if !input.Action.IsValid() {
		return nil, fmt.Errorf("%w: unknown action %q", approval.ErrValidation, input.Action)
	}
	if !principal.Role.CanApprove() {
		return nil, fmt.Errorf("%w: role %s cannot approve claims", approval.ErrUnauthorized, principal.Role)
	}

	unlock := s.locks.Lock(claimID)
	defer unlock()

	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim == nil || claim.CompanyID != principal.CompanyID {
		return nil, fmt.Errorf("%w: claim %s", ErrNotFound, claimID)
	}
	if claim.Status != entity.StatusSubmitted {
		return nil, fmt.Errorf("%w: claim is %s", approval.ErrInvalidTransition, claim.Status)
	}
	if claim.AppliedRule == nil {
		return nil, fmt.Errorf("claim %s has no rule snapshot", claimID)
	}

	var state approval.State
	decision := &entity.Decision{
		ID:             uuid.NewString(),
		ClaimID:        claim.ID,
		ApproverUserID: principal.UserID,
		Action:         input.Action,
		Comment:        input.Comment,
		Timestamp:      time.Now(),
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		decisions, err := s.ledger.ListByClaim(txCtx, claim.ID)
		if err != nil {
			return err
		}

		seat, err := resolveSeat(claim.AppliedRule, decisions, principal.UserID, input.SeatIndex)
		if err != nil {
			return err
		}
		decision.SeatIndex = seat

		state, err = s.engine.Apply(claim.AppliedRule, decisions, decision)
		if err != nil {
			return err
		}
		if err := s.ledger.Append(txCtx, decision); err != nil {
			return err
		}

		claim.Status, claim.Stage = claimPosition(state)
		return s.claimRepo.UpdateStatus(txCtx, claim.ID, claim.Status, claim.Stage)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Decision recorded",
		"claim_id", claim.ID,
		"approver", principal.UserID,
		"seat", decision.SeatIndex,
		"action", string(input.Action),
		"stage", claim.Stage,
	)
	s.notifyAfterTransition(ctx, claim, state, decision)
	return claim, nil
}

// Get retrieves a claim visible to the caller
func (s *claimServiceImpl) Get(ctx context.Context, principal port.Principal, claimID string) (*entity.ExpenseClaim, error) {
	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim == nil || claim.CompanyID != principal.CompanyID {
		return nil, fmt.Errorf("%w: claim %s", ErrNotFound, claimID)
	}
	// Employees see only their own claims; approvers see the whole company.
	if !principal.Role.CanApprove() && claim.EmployeeID != principal.UserID {
		return nil, fmt.Errorf("%w: claim %s", ErrNotFound, claimID)
	}
	return claim, nil
}

// Status returns the claim together with its decision ledger and the seats
// that may act next.
func (s *claimServiceImpl) Status(ctx context.Context, principal port.Principal, claimID string) (*ClaimStatusView, error) {
	claim, err := s.Get(ctx, principal, claimID)
	if err != nil {
		return nil, err
	}

	decisions, err := s.ledger.ListByClaim(ctx, claimID)
	if err != nil {
		return nil, err
	}

	return &ClaimStatusView{
		Claim:        claim,
		Decisions:    decisions,
		PendingSeats: pendingSeats(claim, decisions),
	}, nil
}

// List returns the caller's claims: their own for employees, the whole
// company's for managers and admins.
func (s *claimServiceImpl) List(ctx context.Context, principal port.Principal, limit, offset int) ([]*entity.ExpenseClaim, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if principal.Role.CanApprove() {
		return s.claimRepo.ListByCompany(ctx, principal.CompanyID, limit, offset)
	}
	return s.claimRepo.ListByEmployee(ctx, principal.UserID, limit, offset)
}

func (s *claimServiceImpl) loadOwned(ctx context.Context, principal port.Principal, claimID string) (*entity.ExpenseClaim, error) {
	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, err
	}
	if claim == nil || claim.CompanyID != principal.CompanyID {
		return nil, fmt.Errorf("%w: claim %s", ErrNotFound, claimID)
	}
	if claim.EmployeeID != principal.UserID {
		return nil, fmt.Errorf("%w: claim belongs to another employee", approval.ErrUnauthorized)
	}
	return claim, nil
}

// snapshotRule copies the active rule onto the claim, resolving the manager
// gate at submission time: an explicit rule manager wins, then the employee's
// own manager, and with neither the gate is skipped.
func (s *claimServiceImpl) snapshotRule(ctx context.Context, rule *entity.ApprovalRule, employeeID string) (*entity.ApprovalRule, error) {
	snapshot := *rule
	snapshot.Approvers = make([]entity.ApproverSeat, len(rule.Approvers))
	copy(snapshot.Approvers, rule.Approvers)

	if snapshot.IsManagerApprover && snapshot.ManagerID == "" {
		employee, err := s.userRepo.GetByID(ctx, employeeID)
		if err != nil {
			return nil, err
		}
		if employee != nil {
			snapshot.ManagerID = employee.ManagerID
		}
	}
	return &snapshot, nil
}

// notifyAfterTransition sends workflow notifications. Failures are logged and
// never fail the operation that triggered them.
func (s *claimServiceImpl) notifyAfterTransition(ctx context.Context, claim *entity.ExpenseClaim, state approval.State, last *entity.Decision) {
	if s.notifier == nil {
		return
	}

	if state.IsTerminal() {
		if err := s.notifier.NotifyClaimResolved(ctx, claim.EmployeeID, claim); err != nil {
			s.logger.Warn("Failed to notify claim resolution", "claim_id", claim.ID, "error", err)
		}
		return
	}

	if state == approval.StateAwaitingManager {
		if err := s.notifier.NotifyDecisionRequired(ctx, claim.AppliedRule.ManagerID, claim); err != nil {
			s.logger.Warn("Failed to notify manager", "claim_id", claim.ID, "error", err)
		}
		return
	}

	decisions, err := s.ledger.ListByClaim(ctx, claim.ID)
	if err != nil {
		s.logger.Warn("Failed to load ledger for notification", "claim_id", claim.ID, "error", err)
		return
	}
	notified := make(map[string]bool)
	for _, seat := range pendingSeats(claim, decisions) {
		if notified[seat.UserID] {
			continue
		}
		notified[seat.UserID] = true
		if err := s.notifier.NotifyDecisionRequired(ctx, seat.UserID, claim); err != nil {
			s.logger.Warn("Failed to notify approver", "claim_id", claim.ID, "user_id", seat.UserID, "error", err)
		}
	}
}

// resolveSeat maps the acting user to a seat. An explicit index must belong to
// the user; otherwise the user's lowest undecided seat is chosen. The manager
// gate seat is taken while it is the claim's current stage.
func resolveSeat(rule *entity.ApprovalRule, decisions []entity.Decision, userID string, explicit *int) (int, error) {
	managerPending := rule.IsManagerApprover && rule.ManagerID != "" && !seatDecided(decisions, entity.ManagerSeat)

	if explicit != nil {
		seat := *explicit
		if seat == entity.ManagerSeat {
			if rule.ManagerID != userID {
				return 0, fmt.Errorf("%w: not the claim's manager", approval.ErrUnauthorized)
			}
			return seat, nil
		}
		if seat < 0 || seat >= len(rule.Approvers) {
			return 0, fmt.Errorf("%w: seat %d out of range", approval.ErrValidation, seat)
		}
		if rule.Approvers[seat].UserID != userID {
			return 0, fmt.Errorf("%w: seat %d belongs to another approver", approval.ErrUnauthorized, seat)
		}
		return seat, nil
	}

	if managerPending && rule.ManagerID == userID {
		return entity.ManagerSeat, nil
	}
	for i, seat := range rule.Approvers {
		if seat.UserID == userID && !seatDecided(decisions, i) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: no seat for user on this claim", approval.ErrUnauthorized)
}

// pendingSeats lists the approver seats that may act right now given the
// recorded decisions. During the manager gate only the manager seat pends.
func pendingSeats(claim *entity.ExpenseClaim, decisions []entity.Decision) []PendingSeat {
	if claim.Status.IsTerminal() || claim.AppliedRule == nil {
		return nil
	}
	rule := claim.AppliedRule

	if claim.Stage == string(approval.StateAwaitingManager) {
		return []PendingSeat{{SeatIndex: entity.ManagerSeat, UserID: rule.ManagerID, Required: true}}
	}

	decided := make(map[int]bool, len(decisions))
	approvedSeats := make(map[int]bool, len(decisions))
	for _, d := range decisions {
		decided[d.SeatIndex] = true
		if d.Action == entity.ActionApprove {
			approvedSeats[d.SeatIndex] = true
		}
	}

	var pending []PendingSeat
	for i, seat := range rule.Approvers {
		if decided[i] {
			continue
		}
		if rule.ApproversSequence && !predecessorsApproved(rule, approvedSeats, i) {
			continue
		}
		pending = append(pending, PendingSeat{SeatIndex: i, UserID: seat.UserID, Required: seat.Required})
	}
	return pending
}

func predecessorsApproved(rule *entity.ApprovalRule, approvedSeats map[int]bool, seat int) bool {
	for i := 0; i < seat; i++ {
		if rule.Approvers[i].Required && !approvedSeats[i] {
			return false
		}
	}
	return true
}

func seatDecided(decisions []entity.Decision, seat int) bool {
	for _, d := range decisions {
		if d.SeatIndex == seat {
			return true
		}
	}
	return false
}

// claimPosition maps an engine state to a claim status and stage.
func claimPosition(state approval.State) (entity.ClaimStatus, string) {
	switch state {
	case approval.StateApproved:
		return entity.StatusApproved, string(state)
	case approval.StateRejected:
		return entity.StatusRejected, string(state)
	default:
		return entity.StatusSubmitted, string(state)
	}
}

func validateDraftInput(input ClaimInput) error {
	if input.Amount != 0 {
		if err := utils.ValidateAmount(input.Amount); err != nil {
			return fmt.Errorf("%w: %v", approval.ErrValidation, err)
		}
	}
	if input.Currency != "" {
		if err := utils.ValidateCurrencyCode(input.Currency); err != nil {
			return fmt.Errorf("%w: %v", approval.ErrValidation, err)
		}
	}
	return nil
}

// validateSubmission enforces the fields a draft may leave blank but a
// submission may not.
func validateSubmission(claim *entity.ExpenseClaim) error {
	if err := utils.ValidateAmount(claim.Amount); err != nil {
		return fmt.Errorf("%w: %v", approval.ErrValidation, err)
	}
	if err := utils.ValidateCurrencyCode(claim.Currency); err != nil {
		return fmt.Errorf("%w: %v", approval.ErrValidation, err)
	}
	if claim.Description == "" {
		return fmt.Errorf("%w: description is required", approval.ErrValidation)
	}
	if claim.Category == "" {
		return fmt.Errorf("%w: category is required", approval.ErrValidation)
	}
	if claim.Date.IsZero() {
		return fmt.Errorf("%w: expense date is required", approval.ErrValidation)
	}
	return nil
}
