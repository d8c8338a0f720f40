// Package lark adapts Lark IM messages to the workflow notifier port. User
// emails double as Lark receive IDs, which keeps the mapping configuration
// free for workspaces provisioned from the same directory.
package lark

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	larkIm "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	"go.uber.org/zap"
)

// Config holds Lark notifier configuration
type Config struct {
	AppID     string
	AppSecret string
}

// Notifier sends workflow notifications over Lark IM
type Notifier struct {
	client   *lark.Client
	userRepo port.UserRepository
	logger   *zap.Logger
}

// NewNotifier creates a new Lark notifier
func NewNotifier(cfg Config, userRepo port.UserRepository, logger *zap.Logger) *Notifier {
	client := lark.NewClient(cfg.AppID, cfg.AppSecret,
		lark.WithLogLevel(larkcore.LogLevelInfo),
		lark.WithEnableTokenCache(true),
	)
	return &Notifier{
		client:   client,
		userRepo: userRepo,
		logger:   logger,
	}
}

// NotifyDecisionRequired tells an approver a claim awaits their decision
func (n *Notifier) NotifyDecisionRequired(ctx context.Context, userID string, claim *entity.ExpenseClaim) error {
	text := fmt.Sprintf("Expense claim %s (%.2f %s, %s) is awaiting your approval.",
		claim.ID, claim.Amount, claim.Currency, claim.Description)
	return n.sendText(ctx, userID, text)
}

// NotifyClaimResolved tells the submitter their claim reached a terminal state
func (n *Notifier) NotifyClaimResolved(ctx context.Context, userID string, claim *entity.ExpenseClaim) error {
	text := fmt.Sprintf("Your expense claim %s (%.2f %s) was %s.",
		claim.ID, claim.Amount, claim.Currency, claim.Status)
	return n.sendText(ctx, userID, text)
}

func (n *Notifier) sendText(ctx context.Context, userID, text string) error {
	user, err := n.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return fmt.Errorf("user %s not found", userID)
	}

	content, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return fmt.Errorf("failed to build message content: %w", err)
	}

	req := larkIm.NewCreateMessageReqBuilder().
		ReceiveIdType("email").
		Body(larkIm.NewCreateMessageReqBodyBuilder().
			ReceiveId(user.Email).
			MsgType("text").
			Content(string(content)).
			Build()).
		Build()

	resp, err := n.client.Im.Message.Create(ctx, req)
	if err != nil {
		n.logger.Error("Failed to send Lark message", zap.String("user_id", userID), zap.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}
	if !resp.Success() {
		n.logger.Error("Lark API returned failure",
			zap.String("user_id", userID),
			zap.Int("code", resp.Code),
			zap.String("msg", resp.Msg))
		return fmt.Errorf("lark API error: code=%d, msg=%s", resp.Code, resp.Msg)
	}

	n.logger.Info("Notification sent", zap.String("user_id", userID))
	return nil
}

// NopNotifier is used when Lark is disabled; notifications are logged and
// dropped.
type NopNotifier struct {
	logger *zap.Logger
}

// NewNopNotifier creates a notifier that drops all messages
func NewNopNotifier(logger *zap.Logger) *NopNotifier {
	return &NopNotifier{logger: logger}
}

func (n *NopNotifier) NotifyDecisionRequired(ctx context.Context, userID string, claim *entity.ExpenseClaim) error {
	n.logger.Debug("Notifications disabled, dropping decision-required message",
		zap.String("user_id", userID), zap.String("claim_id", claim.ID))
	return nil
}

func (n *NopNotifier) NotifyClaimResolved(ctx context.Context, userID string, claim *entity.ExpenseClaim) error {
	n.logger.Debug("Notifications disabled, dropping claim-resolved message",
		zap.String("user_id", userID), zap.String("claim_id", claim.ID))
	return nil
}

// Verify interface compliance
var (
	_ port.Notifier = (*Notifier)(nil)
	_ port.Notifier = (*NopNotifier)(nil)
)
