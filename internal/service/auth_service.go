package service

import (
	"context"
	"fmt"

	"campus-wallet/internal/core/domain"
	"campus-wallet/internal/core/ports"
	"campus-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const defaultCurrency = "VND"

// AuthServiceImpl implements ports.AuthService.
type AuthServiceImpl struct {
	userRepo    ports.UserRepository
	vendorRepo  ports.VendorRepository
	studentRepo ports.StudentRepository
	walletRepo  ports.WalletRepository
	hashSvc     ports.HashService
	tokenSvc    ports.TokenService
	auditSvc    ports.AuditService
	log         zerolog.Logger
}

// NewAuthService creates a new AuthServiceImpl.
func NewAuthService(
	userRepo ports.UserRepository,
	vendorRepo ports.VendorRepository,
	studentRepo ports.StudentRepository,
	walletRepo ports.WalletRepository,
	hashSvc ports.HashService,
	tokenSvc ports.TokenService,
	auditSvc ports.AuditService,
	log zerolog.Logger,
) *AuthServiceImpl {
	return &AuthServiceImpl{
		userRepo:    userRepo,
		vendorRepo:  vendorRepo,
		studentRepo: studentRepo,
		walletRepo:  walletRepo,
		hashSvc:     hashSvc,
		tokenSvc:    tokenSvc,
		auditSvc:    auditSvc,
		log:         log,
	}
}

// RegisterGuardian creates a guardian account with an empty wallet.
func (s *AuthServiceImpl) RegisterGuardian(ctx context.Context, req ports.RegisterRequest) (*domain.User, error) {
	return s.register(ctx, req, domain.RoleGuardian)
}

// RegisterVendor creates a vendor account with an empty wallet and an
// unapproved store profile. The vendor cannot charge students until an
// admin approves the profile.
func (s *AuthServiceImpl) RegisterVendor(ctx context.Context, req ports.RegisterRequest) (*domain.User, error) {
	if req.StoreName == "" {
		return nil, apperror.Validation("store_name is required")
	}
	return s.register(ctx, req, domain.RoleVendor)
}

func (s *AuthServiceImpl) register(ctx context.Context, req ports.RegisterRequest, role domain.Role) (*domain.User, error) {
	existing, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check email: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrEmailExists()
	}

	passwordHash, err := s.hashSvc.Hash(req.Password)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash password: %w", err))
	}

	user := &domain.User{
		ID:           uuid.New(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: passwordHash,
		Role:         role,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	kind := domain.WalletKindGuardian
	if role == domain.RoleVendor {
		kind = domain.WalletKindVendor
	}
	wallet := domain.NewUserWallet(user.ID, kind, defaultCurrency)
	if err := s.walletRepo.Create(ctx, wallet); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}

	if role == domain.RoleVendor {
		vendor := &domain.Vendor{
			ID:        uuid.New(),
			UserID:    user.ID,
			StoreName: req.StoreName,
			Approved:  false,
		}
		if err := s.vendorRepo.Create(ctx, vendor); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("create vendor profile: %w", err))
		}
	}

	s.auditSvc.Log(ctx, domain.AuditActionRegister, user.ID, "user", user.ID.String(),
		map[string]interface{}{"role": string(role)}, req.ClientIP)

	s.log.Info().
		Str("user_id", user.ID.String()).
		Str("role", string(role)).
		Msg("user registered")

	return user, nil
}

// Login authenticates a guardian, vendor, or admin by email and password.
func (s *AuthServiceImpl) Login(ctx context.Context, email, password, clientIP string) (*ports.Session, error) {
	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrInvalidCredentials()
	}

	ok, err := s.hashSvc.Verify(password, user.PasswordHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify password: %w", err))
	}
	if !ok {
		return nil, apperror.ErrInvalidCredentials()
	}

	token, expiresAt, err := s.tokenSvc.Generate(user.ID, user.Role)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	s.auditSvc.Log(ctx, domain.AuditActionLogin, user.ID, "user", user.ID.String(), nil, clientIP)

	return &ports.Session{Token: token, ExpiresAt: expiresAt, User: user}, nil
}

// StudentLogin authenticates a student by campus ID and PIN for the mobile
// app. Failed PIN attempts are audited against the student.
func (s *AuthServiceImpl) StudentLogin(ctx context.Context, externalID, pin, clientIP string) (*ports.StudentSession, error) {
	student, err := s.studentRepo.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if !student.IsActive() {
		return nil, apperror.ErrStudentBlocked()
	}

	ok, err := s.hashSvc.Verify(pin, student.PINHash)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("verify pin: %w", err))
	}
	if !ok {
		s.auditSvc.Log(ctx, domain.AuditActionFailedPINAttempt, student.ID, "student", student.ID.String(),
			map[string]interface{}{"context": "login", "student_id": student.ExternalID}, clientIP)
		return nil, apperror.ErrInvalidCredentials()
	}

	token, expiresAt, err := s.tokenSvc.Generate(student.ID, domain.RoleStudent)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate token: %w", err))
	}

	balance := decimal.Zero
	if wallet, err := s.walletRepo.GetByStudent(ctx, student.ID); err == nil && wallet != nil {
		balance = wallet.Balance
	}

	s.auditSvc.Log(ctx, domain.AuditActionStudentLogin, student.ID, "student", student.ID.String(), nil, clientIP)

	return &ports.StudentSession{Token: token, ExpiresAt: expiresAt, Student: student, Balance: balance}, nil
}
