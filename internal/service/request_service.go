package service

import (
	"context"
	"fmt"
	"time"

	"campus-wallet/internal/core/domain"
	"campus-wallet/internal/core/ports"
	"campus-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// RequestServiceImpl implements ports.RequestService. Approval resolves the
// request and moves the money in one database transaction, so a request can
// never be paid twice even under concurrent guardian clicks.
type RequestServiceImpl struct {
	requestRepo ports.RequestRepository
	studentRepo ports.StudentRepository
	walletRepo  ports.WalletRepository
	txRepo      ports.TransactionRepository
	auditSvc    ports.AuditService
	transactor  ports.DBTransactor
	now         func() time.Time
	log         zerolog.Logger
}

// NewRequestService creates a new RequestServiceImpl.
func NewRequestService(
	requestRepo ports.RequestRepository,
	studentRepo ports.StudentRepository,
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	auditSvc ports.AuditService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *RequestServiceImpl {
	return &RequestServiceImpl{
		requestRepo: requestRepo,
		studentRepo: studentRepo,
		walletRepo:  walletRepo,
		txRepo:      txRepo,
		auditSvc:    auditSvc,
		transactor:  transactor,
		now:         time.Now,
		log:         log,
	}
}

// Create files a money request against the student's guardian.
func (s *RequestServiceImpl) Create(ctx context.Context, studentID uuid.UUID, amount decimal.Decimal, reason string) (*domain.MoneyRequest, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	student, err := s.studentRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !student.IsActive() {
		return nil, apperror.ErrStudentBlocked()
	}

	now := s.now().UTC()
	request := &domain.MoneyRequest{
		ID:        uuid.New(),
		StudentID: studentID,
		Amount:    amount,
		Reason:    reason,
		Status:    domain.RequestStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.requestRepo.Create(ctx, request); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create request: %w", err))
	}

	s.log.Info().
		Str("request_id", request.ID.String()).
		Str("student_id", studentID.String()).
		Str("amount", amount.String()).
		Msg("money request created")

	return request, nil
}

// Approve resolves a pending request and transfers the amount from the
// guardian's wallet to the student's wallet.
func (s *RequestServiceImpl) Approve(ctx context.Context, requestID, guardianID uuid.UUID, clientIP string) (*domain.MoneyRequest, error) {
	request, student, err := s.ownedRequest(ctx, requestID, guardianID)
	if err != nil {
		return nil, err
	}

	guardianWallet, err := s.walletRepo.GetByUser(ctx, guardianID, domain.WalletKindGuardian)
	if err != nil {
		return nil, err
	}
	if guardianWallet == nil {
		return nil, apperror.ErrNotFound("guardian wallet")
	}
	studentWallet, err := s.walletRepo.GetByStudent(ctx, student.ID)
	if err != nil {
		return nil, err
	}
	if studentWallet == nil {
		return nil, apperror.ErrNotFound("student wallet")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Resolving first means a concurrent approval loses here, before any
	// balance is touched.
	resolved, err := s.requestRepo.Resolve(ctx, dbTx, request.ID, domain.RequestStatusApproved, guardianID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("resolve request: %w", err))
	}
	if !resolved {
		return nil, apperror.ErrAlreadyProcessed()
	}

	lockedGuardian, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, guardianWallet.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock guardian wallet: %w", err))
	}
	if _, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, studentWallet.ID); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock student wallet: %w", err))
	}
	if !lockedGuardian.CanCover(request.Amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	if _, err := s.walletRepo.ApplyDelta(ctx, dbTx, guardianWallet.ID, request.Amount.Neg()); err != nil {
		return nil, err
	}
	if _, err := s.walletRepo.ApplyDelta(ctx, dbTx, studentWallet.ID, request.Amount); err != nil {
		return nil, err
	}

	txn, err := domain.NewTransaction(&guardianWallet.ID, &studentWallet.ID, request.Amount,
		domain.TransactionTypeTransfer, domain.TransactionStatusCompleted,
		"Approved request: "+request.Reason, guardianID)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	request.Status = domain.RequestStatusApproved
	request.ReviewedBy = &guardianID

	s.auditSvc.Log(ctx, domain.AuditActionRequestApproved, guardianID, "request", request.ID.String(),
		map[string]interface{}{"amount": request.Amount.String(), "student_id": student.ExternalID}, clientIP)

	s.log.Info().
		Str("request_id", request.ID.String()).
		Str("tx_id", txn.ID.String()).
		Msg("money request approved")

	return request, nil
}

// Reject resolves a pending request without moving money.
func (s *RequestServiceImpl) Reject(ctx context.Context, requestID, guardianID uuid.UUID, clientIP string) (*domain.MoneyRequest, error) {
	request, _, err := s.ownedRequest(ctx, requestID, guardianID)
	if err != nil {
		return nil, err
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	resolved, err := s.requestRepo.Resolve(ctx, dbTx, request.ID, domain.RequestStatusRejected, guardianID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("resolve request: %w", err))
	}
	if !resolved {
		return nil, apperror.ErrAlreadyProcessed()
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	request.Status = domain.RequestStatusRejected
	request.ReviewedBy = &guardianID

	s.auditSvc.Log(ctx, domain.AuditActionRequestRejected, guardianID, "request", request.ID.String(), nil, clientIP)

	return request, nil
}

// ListForStudent returns the student's own requests.
func (s *RequestServiceImpl) ListForStudent(ctx context.Context, studentID uuid.UUID) ([]domain.MoneyRequest, error) {
	return s.requestRepo.ListByStudent(ctx, studentID)
}

// ListForGuardian returns requests from all the guardian's students.
func (s *RequestServiceImpl) ListForGuardian(ctx context.Context, guardianID uuid.UUID) ([]domain.MoneyRequest, error) {
	return s.requestRepo.ListByGuardian(ctx, guardianID)
}

func (s *RequestServiceImpl) ownedRequest(ctx context.Context, requestID, guardianID uuid.UUID) (*domain.MoneyRequest, *domain.Student, error) {
	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, nil, err
	}
	if request == nil {
		return nil, nil, apperror.ErrNotFound("request")
	}

	student, err := s.studentRepo.GetByID(ctx, request.StudentID)
	if err != nil {
		return nil, nil, err
	}
	if student.GuardianID != guardianID {
		return nil, nil, apperror.ErrNotAuthorized()
	}
	return request, student, nil
}
