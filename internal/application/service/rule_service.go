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

// RuleInput carries the fields of a new approval rule.
type RuleInput struct {
	RuleName              string
	Description           string
	ManagerID             string
	IsManagerApprover     bool
	Approvers             []entity.ApproverSeat
	ApproversSequence     bool
	MinApprovalPercentage int
}

// RuleService manages a company's approval rules. Creating a rule makes it
// the active rule for future submissions; claims already in flight keep the
// snapshot they were submitted under.
type RuleService interface {
	Create(ctx context.Context, principal port.Principal, input RuleInput) (*entity.ApprovalRule, error)
	Get(ctx context.Context, principal port.Principal, id string) (*entity.ApprovalRule, error)
	GetActive(ctx context.Context, principal port.Principal) (*entity.ApprovalRule, error)
	Delete(ctx context.Context, principal port.Principal, id string) error
}

type ruleServiceImpl struct {
	ruleRepo port.RuleRepository
	userRepo port.UserRepository
	logger   Logger
}

// NewRuleService creates a new RuleService
func NewRuleService(ruleRepo port.RuleRepository, userRepo port.UserRepository, logger Logger) RuleService {
	return &ruleServiceImpl{
		ruleRepo: ruleRepo,
		userRepo: userRepo,
		logger:   logger,
	}
}

// Create validates and stores a new rule for the caller's company
func (s *ruleServiceImpl) Create(ctx context.Context, principal port.Principal, input RuleInput) (*entity.ApprovalRule, error) {
	if principal.Role != entity.RoleAdmin {
		return nil, fmt.Errorf("%w: only admins manage approval rules", approval.ErrUnauthorized)
	}
	if err := s.validate(ctx, principal.CompanyID, input); err != nil {
		return nil, err
	}

	rule := &entity.ApprovalRule{
		ID:                    uuid.NewString(),
		CompanyID:             principal.CompanyID,
		RuleName:              input.RuleName,
		Description:           input.Description,
		ManagerID:             input.ManagerID,
		IsManagerApprover:     input.IsManagerApprover,
		Approvers:             input.Approvers,
		ApproversSequence:     input.ApproversSequence,
		MinApprovalPercentage: input.MinApprovalPercentage,
		CreatedAt:             time.Now(),
	}

	if err := s.ruleRepo.Create(ctx, rule); err != nil {
		return nil, err
	}

	s.logger.Info("Approval rule created",
		"rule_id", rule.ID,
		"company_id", rule.CompanyID,
		"approvers", len(rule.Approvers),
		"min_percentage", rule.MinApprovalPercentage,
	)
	return rule, nil
}

// Get retrieves a rule visible to the caller's company
func (s *ruleServiceImpl) Get(ctx context.Context, principal port.Principal, id string) (*entity.ApprovalRule, error) {
	rule, err := s.ruleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rule == nil || rule.CompanyID != principal.CompanyID {
		return nil, fmt.Errorf("%w: rule %s", ErrNotFound, id)
	}
	return rule, nil
}

// GetActive retrieves the company's current rule
func (s *ruleServiceImpl) GetActive(ctx context.Context, principal port.Principal) (*entity.ApprovalRule, error) {
	rule, err := s.ruleRepo.GetActive(ctx, principal.CompanyID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, fmt.Errorf("%w: company has no approval rule", ErrNotFound)
	}
	return rule, nil
}

// Delete soft-deletes a rule; in-flight claims keep their snapshot
func (s *ruleServiceImpl) Delete(ctx context.Context, principal port.Principal, id string) error {
	if principal.Role != entity.RoleAdmin {
		return fmt.Errorf("%w: only admins manage approval rules", approval.ErrUnauthorized)
	}
	if _, err := s.Get(ctx, principal, id); err != nil {
		return err
	}
	return s.ruleRepo.Delete(ctx, id)
}

func (s *ruleServiceImpl) validate(ctx context.Context, companyID string, input RuleInput) error {
	if input.RuleName == "" {
		return fmt.Errorf("%w: rule name is required", approval.ErrValidation)
	}
	if err := utils.ValidatePercentage(input.MinApprovalPercentage); err != nil {
		return fmt.Errorf("%w: %v", approval.ErrValidation, err)
	}
	if len(input.Approvers) == 0 && !input.IsManagerApprover {
		return fmt.Errorf("%w: rule needs approver seats or a manager gate", approval.ErrValidation)
	}

	if input.ManagerID != "" {
		if err := s.checkApprover(ctx, companyID, input.ManagerID); err != nil {
			return err
		}
	}
	for i, seat := range input.Approvers {
		if seat.UserID == "" {
			return fmt.Errorf("%w: seat %d has no user", approval.ErrValidation, i)
		}
		if err := s.checkApprover(ctx, companyID, seat.UserID); err != nil {
			return err
		}
	}
	return nil
}

func (s *ruleServiceImpl) checkApprover(ctx context.Context, companyID, userID string) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil || user.CompanyID != companyID {
		return fmt.Errorf("%w: approver %s is not in the company", approval.ErrValidation, userID)
	}
	if !user.Role.CanApprove() {
		return fmt.Errorf("%w: user %s has role %s and cannot approve", approval.ErrValidation, userID, user.Role)
	}
	return nil
}
