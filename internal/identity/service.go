// Package identity handles company registration, user accounts and token
// verification. It produces the Principal the application services trust.
package identity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/expenseflow/expenseflow/internal/application/port"
	"github.com/expenseflow/expenseflow/internal/application/service"
	"github.com/expenseflow/expenseflow/internal/domain/approval"
	"github.com/expenseflow/expenseflow/internal/domain/entity"
	"github.com/expenseflow/expenseflow/pkg/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const tokenIssuer = "expenseflow"

// Config holds token and password hashing settings.
type Config struct {
	JWTSecret  string
	TokenTTL   time.Duration
	BcryptCost int
}

// RegisterInput carries a new company and its first admin.
type RegisterInput struct {
	CompanyName string
	Country     string
	Currency    string
	AdminName   string
	Email       string
	Password    string
}

// CreateUserInput carries a new company member.
type CreateUserInput struct {
	Name      string
	Email     string
	Password  string
	Role      entity.Role
	ManagerID string
}

// Session is a login result: the user plus a signed bearer token.
type Session struct {
	Token string       `json:"token"`
	User  *entity.User `json:"user"`
}

// Service manages companies, users and sessions.
type Service interface {
	RegisterCompany(ctx context.Context, input RegisterInput) (*Session, error)
	CreateUser(ctx context.Context, principal port.Principal, input CreateUserInput) (*entity.User, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	VerifyToken(token string) (port.Principal, error)
	ListUsers(ctx context.Context, principal port.Principal) ([]*entity.User, error)
	ListManagers(ctx context.Context, principal port.Principal) ([]*entity.User, error)
}

type serviceImpl struct {
	companyRepo port.CompanyRepository
	userRepo    port.UserRepository
	txManager   port.TransactionManager
	cfg         Config
	logger      service.Logger
}

// NewService creates a new identity Service
func NewService(
	companyRepo port.CompanyRepository,
	userRepo port.UserRepository,
	txManager port.TransactionManager,
	cfg Config,
	logger service.Logger,
) Service {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	return &serviceImpl{
		companyRepo: companyRepo,
		userRepo:    userRepo,
		txManager:   txManager,
		cfg:         cfg,
		logger:      logger,
	}
}

// RegisterCompany creates a company and its admin account in one transaction
// and signs the admin in.
func (s *serviceImpl) RegisterCompany(ctx context.Context, input RegisterInput) (*Session, error) {
	if input.CompanyName == "" {
		return nil, fmt.Errorf("%w: company name is required", approval.ErrValidation)
	}
	if err := utils.ValidateCurrencyCode(input.Currency); err != nil {
		return nil, fmt.Errorf("%w: %v", approval.ErrValidation, err)
	}
	if err := s.validateCredentials(input.Email, input.Password); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email already registered", approval.ErrValidation)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	admin := &entity.User{
		ID:           uuid.NewString(),
		Name:         input.AdminName,
		Email:        normalizeEmail(input.Email),
		PasswordHash: string(hash),
		Role:         entity.RoleAdmin,
		CreatedAt:    now,
	}
	company := &entity.Company{
		ID:        uuid.NewString(),
		Name:      input.CompanyName,
		Country:   input.Country,
		Currency:  input.Currency,
		CreatedBy: admin.ID,
		CreatedAt: now,
	}
	admin.CompanyID = company.ID

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.companyRepo.Create(txCtx, company); err != nil {
			return err
		}
		return s.userRepo.Create(txCtx, admin)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Company registered", "company_id", company.ID, "admin_id", admin.ID)
	return s.startSession(admin)
}

// CreateUser adds a member to the caller's company. Admin only.
func (s *serviceImpl) CreateUser(ctx context.Context, principal port.Principal, input CreateUserInput) (*entity.User, error) {
	if principal.Role != entity.RoleAdmin {
		return nil, fmt.Errorf("%w: only admins create users", approval.ErrUnauthorized)
	}
	if !input.Role.IsValid() {
		return nil, fmt.Errorf("%w: unknown role %q", approval.ErrValidation, input.Role)
	}
	if err := s.validateCredentials(input.Email, input.Password); err != nil {
		return nil, err
	}

	existing, err := s.userRepo.GetByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: email already registered", approval.ErrValidation)
	}

	if input.ManagerID != "" {
		manager, err := s.userRepo.GetByID(ctx, input.ManagerID)
		if err != nil {
			return nil, err
		}
		if manager == nil || manager.CompanyID != principal.CompanyID {
			return nil, fmt.Errorf("%w: manager %s is not in the company", approval.ErrValidation, input.ManagerID)
		}
		if !manager.Role.CanApprove() {
			return nil, fmt.Errorf("%w: user %s cannot be a manager", approval.ErrValidation, input.ManagerID)
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &entity.User{
		ID:           uuid.NewString(),
		Name:         input.Name,
		Email:        normalizeEmail(input.Email),
		PasswordHash: string(hash),
		Role:         input.Role,
		CompanyID:    principal.CompanyID,
		ManagerID:    input.ManagerID,
		CreatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User created", "user_id", user.ID, "role", user.Role.String(), "company_id", user.CompanyID)
	return user, nil
}

// Login verifies credentials and opens a session
func (s *serviceImpl) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: invalid credentials", approval.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("%w: invalid credentials", approval.ErrUnauthorized)
	}
	return s.startSession(user)
}

type tokenClaims struct {
	Role      string `json:"role"`
	CompanyID string `json:"company_id"`
	jwt.RegisteredClaims
}

// VerifyToken parses and validates a bearer token
func (s *serviceImpl) VerifyToken(token string) (port.Principal, error) {
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWTSecret), nil
	}, jwt.WithIssuer(tokenIssuer))
	if err != nil || !parsed.Valid {
		return port.Principal{}, fmt.Errorf("%w: invalid token", approval.ErrUnauthorized)
	}

	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok {
		return port.Principal{}, fmt.Errorf("%w: invalid token claims", approval.ErrUnauthorized)
	}
	role := entity.Role(claims.Role)
	if !role.IsValid() {
		return port.Principal{}, fmt.Errorf("%w: invalid role in token", approval.ErrUnauthorized)
	}

	return port.Principal{
		UserID:    claims.Subject,
		Role:      role,
		CompanyID: claims.CompanyID,
	}, nil
}

// ListUsers returns the caller's company members
func (s *serviceImpl) ListUsers(ctx context.Context, principal port.Principal) ([]*entity.User, error) {
	return s.userRepo.ListByCompany(ctx, principal.CompanyID)
}

// ListManagers returns the company members eligible as approvers
func (s *serviceImpl) ListManagers(ctx context.Context, principal port.Principal) ([]*entity.User, error) {
	return s.userRepo.ListManagers(ctx, principal.CompanyID)
}

func (s *serviceImpl) startSession(user *entity.User) (*Session, error) {
	now := time.Now()
	claims := tokenClaims{
		Role:      user.Role.String(),
		CompanyID: user.CompanyID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.TokenTTL)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}
	return &Session{Token: token, User: user}, nil
}

func (s *serviceImpl) validateCredentials(email, password string) error {
	if err := utils.ValidateEmail(normalizeEmail(email)); err != nil {
		return fmt.Errorf("%w: %v", approval.ErrValidation, err)
	}
	if len(password) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", approval.ErrValidation)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
