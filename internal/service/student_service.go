package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campus-wallet/internal/core/domain"
	"campus-wallet/internal/core/ports"
	"campus-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// StudentServiceImpl implements ports.StudentService. Every mutating
// operation verifies the caller guardian owns the student before touching
// anything.
type StudentServiceImpl struct {
	studentRepo ports.StudentRepository
	walletRepo  ports.WalletRepository
	txRepo      ports.TransactionRepository
	ruleRepo    ports.RuleRepository
	hashSvc     ports.HashService
	auditSvc    ports.AuditService
	transactor  ports.DBTransactor
	now         func() time.Time
	log         zerolog.Logger
}

// NewStudentService creates a new StudentServiceImpl.
func NewStudentService(
	studentRepo ports.StudentRepository,
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	ruleRepo ports.RuleRepository,
	hashSvc ports.HashService,
	auditSvc ports.AuditService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *StudentServiceImpl {
	return &StudentServiceImpl{
		studentRepo: studentRepo,
		walletRepo:  walletRepo,
		txRepo:      txRepo,
		ruleRepo:    ruleRepo,
		hashSvc:     hashSvc,
		auditSvc:    auditSvc,
		transactor:  transactor,
		now:         time.Now,
		log:         log,
	}
}

// Create provisions a student and their wallet in one transaction.
func (s *StudentServiceImpl) Create(ctx context.Context, req ports.CreateStudentRequest) (*domain.Student, error) {
	if !validPIN(req.PIN) {
		return nil, apperror.Validation("pin must be 4 to 6 digits")
	}
	if req.Name == "" || req.ExternalID == "" {
		return nil, apperror.Validation("name and student_id are required")
	}

	// NotFound here means the campus ID is free to take
	existing, err := s.studentRepo.GetByExternalID(ctx, req.ExternalID)
	if err != nil {
		var appErr *apperror.AppError
		if !errors.As(err, &appErr) || appErr.Code != "WAL_001" {
			return nil, err
		}
	} else if existing != nil {
		return nil, apperror.ErrStudentIDExists()
	}

	pinHash, err := s.hashSvc.Hash(req.PIN)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash pin: %w", err))
	}

	now := s.now().UTC()
	student := &domain.Student{
		ID:         uuid.New(),
		Name:       req.Name,
		ExternalID: req.ExternalID,
		PINHash:    pinHash,
		GuardianID: req.GuardianID,
		Status:     domain.StudentStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.studentRepo.Create(ctx, dbTx, student); err != nil {
		return nil, err
	}
	wallet := domain.NewStudentWallet(student.ID, defaultCurrency)
	if err := s.walletRepo.CreateInTx(ctx, dbTx, wallet); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create wallet: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.auditSvc.Log(ctx, domain.AuditActionStudentCreated, req.GuardianID, "student", student.ID.String(),
		map[string]interface{}{"student_id": student.ExternalID}, req.ClientIP)

	s.log.Info().
		Str("student_id", student.ID.String()).
		Str("guardian_id", req.GuardianID.String()).
		Msg("student created")

	return student, nil
}

// ListByGuardian returns the guardian's students with wallet balances.
func (s *StudentServiceImpl) ListByGuardian(ctx context.Context, guardianID uuid.UUID) ([]ports.StudentWithBalance, error) {
	students, err := s.studentRepo.ListByGuardian(ctx, guardianID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list students: %w", err))
	}
	return s.withBalances(ctx, students)
}

// ListAll returns every student with wallet balance, for admin views.
func (s *StudentServiceImpl) ListAll(ctx context.Context) ([]ports.StudentWithBalance, error) {
	students, err := s.studentRepo.ListAll(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list students: %w", err))
	}
	return s.withBalances(ctx, students)
}

func (s *StudentServiceImpl) withBalances(ctx context.Context, students []domain.Student) ([]ports.StudentWithBalance, error) {
	out := make([]ports.StudentWithBalance, 0, len(students))
	for _, st := range students {
		balance := decimal.Zero
		if wallet, err := s.walletRepo.GetByStudent(ctx, st.ID); err == nil && wallet != nil {
			balance = wallet.Balance
		}
		out = append(out, ports.StudentWithBalance{Student: st, Balance: balance})
	}
	return out, nil
}

// UpdatePIN replaces the student's PIN. Only the owning guardian may call it.
func (s *StudentServiceImpl) UpdatePIN(ctx context.Context, guardianID, studentID uuid.UUID, newPIN, clientIP string) error {
	if !validPIN(newPIN) {
		return apperror.Validation("pin must be 4 to 6 digits")
	}

	student, err := s.ownedStudent(ctx, guardianID, studentID)
	if err != nil {
		return err
	}

	pinHash, err := s.hashSvc.Hash(newPIN)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("hash pin: %w", err))
	}
	if err := s.studentRepo.UpdatePINHash(ctx, student.ID, pinHash); err != nil {
		return apperror.InternalError(fmt.Errorf("update pin: %w", err))
	}

	s.auditSvc.Log(ctx, domain.AuditActionStudentPINUpdated, guardianID, "student", student.ID.String(), nil, clientIP)
	return nil
}

// SetStatus blocks or unblocks a student.
func (s *StudentServiceImpl) SetStatus(ctx context.Context, guardianID, studentID uuid.UUID, status domain.StudentStatus, clientIP string) (*domain.Student, error) {
	if status != domain.StudentStatusActive && status != domain.StudentStatusBlocked {
		return nil, apperror.Validation("status must be ACTIVE or BLOCKED")
	}

	student, err := s.ownedStudent(ctx, guardianID, studentID)
	if err != nil {
		return nil, err
	}

	if err := s.studentRepo.UpdateStatus(ctx, student.ID, status); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update status: %w", err))
	}
	student.Status = status

	s.auditSvc.Log(ctx, domain.AuditActionStudentStatusSet, guardianID, "student", student.ID.String(),
		map[string]interface{}{"status": string(status)}, clientIP)

	return student, nil
}

// SetSpendingLimit writes the student wallet's spending rule. A zero daily
// limit disables the ceiling; an empty vendor list permits every vendor.
func (s *StudentServiceImpl) SetSpendingLimit(ctx context.Context, guardianID, studentID uuid.UUID, dailyLimit decimal.Decimal, allowedVendors []uuid.UUID, clientIP string) (*domain.SpendingRule, error) {
	if dailyLimit.IsNegative() {
		return nil, apperror.Validation("daily_limit must not be negative")
	}

	student, err := s.ownedStudent(ctx, guardianID, studentID)
	if err != nil {
		return nil, err
	}
	wallet, err := s.walletRepo.GetByStudent(ctx, student.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("student wallet")
	}

	now := s.now().UTC()
	rule := &domain.SpendingRule{
		ID:             uuid.New(),
		WalletID:       wallet.ID,
		Active:         dailyLimit.IsPositive() || len(allowedVendors) > 0,
		AllowedVendors: allowedVendors,
		CreatedBy:      guardianID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if dailyLimit.IsPositive() {
		rule.DailyLimit = &dailyLimit
	}

	if err := s.ruleRepo.Upsert(ctx, rule); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("upsert rule: %w", err))
	}

	s.auditSvc.Log(ctx, domain.AuditActionSpendingLimitSet, guardianID, "wallet", wallet.ID.String(),
		map[string]interface{}{"daily_limit": dailyLimit.String(), "allowed_vendors": len(allowedVendors)}, clientIP)

	return rule, nil
}

// GetSpendingLimit returns the current rule plus how much of today's
// allowance is already spent.
func (s *StudentServiceImpl) GetSpendingLimit(ctx context.Context, guardianID, studentID uuid.UUID) (*ports.SpendingLimitStatus, error) {
	student, err := s.ownedStudent(ctx, guardianID, studentID)
	if err != nil {
		return nil, err
	}
	wallet, err := s.walletRepo.GetByStudent(ctx, student.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("student wallet")
	}

	rule, err := s.ruleRepo.GetByWallet(ctx, wallet.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find rule: %w", err))
	}

	status := &ports.SpendingLimitStatus{SpentToday: decimal.Zero}
	if rule == nil || !rule.LimitsSpending() {
		return status, nil
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	dayStart, dayEnd := dayBounds(s.now())
	spent, err := s.txRepo.SumCompletedPayments(ctx, dbTx, wallet.ID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	limit := *rule.DailyLimit
	remaining := limit.Sub(spent)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	status.DailyLimit = limit
	status.Active = true
	status.SpentToday = spent
	status.Remaining = &remaining
	return status, nil
}

// Transactions returns the student wallet's recent ledger entries.
func (s *StudentServiceImpl) Transactions(ctx context.Context, guardianID, studentID uuid.UUID, limit int) ([]domain.Transaction, error) {
	student, err := s.ownedStudent(ctx, guardianID, studentID)
	if err != nil {
		return nil, err
	}
	wallet, err := s.walletRepo.GetByStudent(ctx, student.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("student wallet")
	}
	return s.txRepo.List(ctx, ports.TransactionFilter{WalletID: &wallet.ID, Limit: limit})
}

func (s *StudentServiceImpl) ownedStudent(ctx context.Context, guardianID, studentID uuid.UUID) (*domain.Student, error) {
	student, err := s.studentRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if student == nil {
		return nil, apperror.ErrNotFound("student")
	}
	if student.GuardianID != guardianID {
		return nil, apperror.ErrNotAuthorized()
	}
	return student, nil
}

// validPIN accepts 4 to 6 ASCII digits.
func validPIN(pin string) bool {
	if len(pin) < 4 || len(pin) > 6 {
		return false
	}
	for _, c := range pin {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
