package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/expenseflow/expenseflow/internal/application/service"
	"github.com/expenseflow/expenseflow/internal/domain/approval"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/internal/identity"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	identity identity.Service
	claims   service.ClaimService
	rules    service.RuleService
	autofill service.AutofillService
	export   service.ExportService
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	identitySvc identity.Service,
	claimSvc service.ClaimService,
	ruleSvc service.RuleService,
	autofillSvc service.AutofillService,
	exportSvc service.ExportService,
	logger Logger,
) *Handlers {
	return &Handlers{
		identity: identitySvc,
		claims:   claimSvc,
		rules:    ruleSvc,
		autofill: autofillSvc,
		export:   exportSvc,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{Success: true, Data: data})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Response{Success: true, Data: data})
}

// respondError maps service errors onto status codes. Duplicate seats are a
// conflict like any other invalid transition.
func (h *Handlers) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal error"

	switch {
	case errors.Is(err, approval.ErrValidation):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, approval.ErrUnauthorized):
		status = http.StatusForbidden
		message = err.Error()
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, approval.ErrInvalidTransition):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, approval.ErrUpstreamUnavailable):
		status = http.StatusBadGateway
		message = err.Error()
	default:
		h.logger.Error("Unhandled service error", "error", err)
	}

	c.JSON(status, Response{Success: false, Error: message})
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	respondOK(c, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// --- Auth ---

// RegisterRequest represents POST /auth/register
type RegisterRequest struct {
	CompanyName string `json:"company_name" binding:"required"`
	Country     string `json:"country" binding:"required"`
	Currency    string `json:"currency" binding:"required"`
	AdminName   string `json:"admin_name" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

// Register handles POST /auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid payload: " + err.Error()})
		return
	}

	session, err := h.identity.RegisterCompany(c.Request.Context(), identity.RegisterInput{
		CompanyName: req.CompanyName,
		Country:     req.Country,
		Currency:    req.Currency,
		AdminName:   req.AdminName,
		Email:       req.Email,
		Password:    req.Password,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondCreated(c, session)
}

// LoginRequest represents POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login handles POST /auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid payload: " + err.Error()})
		return
	}

	session, err := h.identity.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		// Login failures are 401, not 403: the caller is not authenticated.
		if errors.Is(err, approval.ErrUnauthorized) {
			c.JSON(http.StatusUnauthorized, Response{Success: false, Error: "invalid credentials"})
			return
		}
		h.respondError(c, err)
		return
	}
	respondOK(c, session)
}

// --- Users ---

// CreateUserRequest represents POST /users
type CreateUserRequest struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Role      string `json:"role" binding:"required"`
	ManagerID string `json:"manager_id"`
}

// CreateUser handles POST /users
func (h *Handlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid payload: " + err.Error()})
		return
	}

	user, err := h.identity.CreateUser(c.Request.Context(), currentPrincipal(c), identity.CreateUserInput{
		Name:      req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Role:      entity.Role(req.Role),
		ManagerID: req.ManagerID,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondCreated(c, user)
}

// ListUsers handles GET /users
func (h *Handlers) ListUsers(c *gin.Context) {
	users, err := h.identity.ListUsers(c.Request.Context(), currentPrincipal(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, users)
}

// ListManagers handles GET /users/managers
func (h *Handlers) ListManagers(c *gin.Context) {
	users, err := h.identity.ListManagers(c.Request.Context(), currentPrincipal(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, users)
}

// --- Rules ---

// ApproverSeatRequest is one approver seat in a rule payload
type ApproverSeatRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Required bool   `json:"required"`
}

// CreateRuleRequest represents POST /rules
type CreateRuleRequest struct {
	RuleName              string                `json:"rule_name" binding:"required"`
	Description           string                `json:"description"`
	ManagerID             string                `json:"manager_id"`
	IsManagerApprover     bool                  `json:"is_manager_approver"`
	Approvers             []ApproverSeatRequest `json:"approvers"`
	ApproversSequence     bool                  `json:"approvers_sequence"`
	MinApprovalPercentage int                   `json:"min_approval_percentage"`
}

// CreateRule handles POST /rules
func (h *Handlers) CreateRule(c *gin.Context) {
	var req CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid payload: " + err.Error()})
		return
	}

	seats := make([]entity.ApproverSeat, len(req.Approvers))
	for i, a := range req.Approvers {
		seats[i] = entity.ApproverSeat{UserID: a.UserID, Required: a.Required}
	}

	rule, err := h.rules.Create(c.Request.Context(), currentPrincipal(c), service.RuleInput{
		RuleName:              req.RuleName,
		Description:           req.Description,
		ManagerID:             req.ManagerID,
		IsManagerApprover:     req.IsManagerApprover,
		Approvers:             seats,
		ApproversSequence:     req.ApproversSequence,
		MinApprovalPercentage: req.MinApprovalPercentage,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondCreated(c, rule)
}

// GetRule handles GET /rules/:id
func (h *Handlers) GetRule(c *gin.Context) {
	rule, err := h.rules.Get(c.Request.Context(), currentPrincipal(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, rule)
}

// GetActiveRule handles GET /rules/active
func (h *Handlers) GetActiveRule(c *gin.Context) {
	rule, err := h.rules.GetActive(c.Request.Context(), currentPrincipal(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, rule)
}

// DeleteRule handles DELETE /rules/:id
func (h *Handlers) DeleteRule(c *gin.Context) {
	if err := h.rules.Delete(c.Request.Context(), currentPrincipal(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, gin.H{"deleted": true})
}

// --- Claims ---

// ClaimRequest represents claim create/update payloads
type ClaimRequest struct {
	Description string  `json:"description"`
	Date        string  `json:"date"` // YYYY-MM-DD
	Category    string  `json:"category"`
	Amount      float64 `json:"amount"`
	Currency    string  `json:"currency"`
	Remarks     string  `json:"remarks"`
	ReceiptRef  string  `json:"receipt_ref"`
}

func (r ClaimRequest) toInput() (service.ClaimInput, error) {
	input := service.ClaimInput{
		Description: r.Description,
		Category:    r.Category,
		Amount:      r.Amount,
		Currency:    r.Currency,
		Remarks:     r.Remarks,
		ReceiptRef:  r.ReceiptRef,
	}
	if r.Date != "" {
		date, err := time.Parse("2006-01-02", r.Date)
		if err != nil {
			return input, fmt.Errorf("%w: date must be YYYY-MM-DD", approval.ErrValidation)
		}
		input.Date = date
	}
	return input, nil
}

// CreateClaim handles POST /claims
func (h *Handlers) CreateClaim(c *gin.Context) {
	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid payload: " + err.Error()})
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.respondError(c, err)
		return
	}

	claim, err := h.claims.CreateDraft(c.Request.Context(), currentPrincipal(c), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondCreated(c, claim)
}

// UpdateClaim handles PUT /claims/:id
func (h *Handlers) UpdateClaim(c *gin.Context) {
	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid payload: " + err.Error()})
		return
	}
	input, err := req.toInput()
	if err != nil {
		h.respondError(c, err)
		return
	}

	claim, err := h.claims.UpdateDraft(c.Request.Context(), currentPrincipal(c), c.Param("id"), input)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, claim)
}

// SubmitClaim handles POST /claims/:id/submit
func (h *Handlers) SubmitClaim(c *gin.Context) {
	claim, err := h.claims.Submit(c.Request.Context(), currentPrincipal(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, claim)
}

// DecisionRequest represents POST /claims/:id/decisions
type DecisionRequest struct {
	Action    string `json:"action" binding:"required"`
	Comment   string `json:"comment"`
	SeatIndex *int   `json:"seat_index"`
}

// RecordDecision handles POST /claims/:id/decisions
func (h *Handlers) RecordDecision(c *gin.Context) {
	var req DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid payload: " + err.Error()})
		return
	}

	claim, err := h.claims.RecordDecision(c.Request.Context(), currentPrincipal(c), c.Param("id"), service.DecisionInput{
		Action:    entity.DecisionAction(req.Action),
		Comment:   req.Comment,
		SeatIndex: req.SeatIndex,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, claim)
}

// GetClaim handles GET /claims/:id
func (h *Handlers) GetClaim(c *gin.Context) {
	claim, err := h.claims.Get(c.Request.Context(), currentPrincipal(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, claim)
}

// ClaimStatus handles GET /claims/:id/status
func (h *Handlers) ClaimStatus(c *gin.Context) {
	view, err := h.claims.Status(c.Request.Context(), currentPrincipal(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, view)
}

// ListClaims handles GET /claims
func (h *Handlers) ListClaims(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	claims, err := h.claims.List(c.Request.Context(), currentPrincipal(c), limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, claims)
}

// ExportClaims handles GET /claims/export
func (h *Handlers) ExportClaims(c *gin.Context) {
	data, filename, err := h.export.ExportClaims(c.Request.Context(), currentPrincipal(c))
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// --- Receipts ---

// ExtractReceipt handles POST /receipts/extract (multipart form, field "receipt")
func (h *Handlers) ExtractReceipt(c *gin.Context) {
	file, header, err := c.Request.FormFile("receipt")
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "missing receipt file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "failed to read upload"})
		return
	}

	fields, err := h.autofill.Suggest(c.Request.Context(), data, header.Filename)
	if err != nil {
		h.respondError(c, err)
		return
	}
	respondOK(c, fields)
}
