package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"campus-wallet/internal/core/domain"
	"campus-wallet/internal/core/ports"
	"campus-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const depositConfirmTTL = 24 * time.Hour

// TransferServiceImpl implements ports.TransferService. Every balance
// mutation runs inside a single database transaction with the affected
// wallet rows locked FOR UPDATE; when two wallets are involved they are
// locked in wallet-ID order so concurrent transfers cannot deadlock.
type TransferServiceImpl struct {
	txRepo      ports.TransactionRepository
	walletRepo  ports.WalletRepository
	studentRepo ports.StudentRepository
	vendorRepo  ports.VendorRepository
	ruleEval    ports.RuleEvaluator
	identitySvc ports.IdentityService
	idempCache  ports.IdempotencyCache
	auditSvc    ports.AuditService
	transactor  ports.DBTransactor
	now         func() time.Time
	log         zerolog.Logger
}

// NewTransferService creates a new TransferServiceImpl.
func NewTransferService(
	txRepo ports.TransactionRepository,
	walletRepo ports.WalletRepository,
	studentRepo ports.StudentRepository,
	vendorRepo ports.VendorRepository,
	ruleEval ports.RuleEvaluator,
	identitySvc ports.IdentityService,
	idempCache ports.IdempotencyCache,
	auditSvc ports.AuditService,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *TransferServiceImpl {
	return &TransferServiceImpl{
		txRepo:      txRepo,
		walletRepo:  walletRepo,
		studentRepo: studentRepo,
		vendorRepo:  vendorRepo,
		ruleEval:    ruleEval,
		identitySvc: identitySvc,
		idempCache:  idempCache,
		auditSvc:    auditSvc,
		transactor:  transactor,
		now:         time.Now,
		log:         log,
	}
}

// Deposit credits a guardian wallet immediately (manual load, no gateway).
func (s *TransferServiceImpl) Deposit(ctx context.Context, guardianID uuid.UUID, amount decimal.Decimal, clientIP string) (*domain.Transaction, decimal.Decimal, error) {
	if !amount.IsPositive() {
		return nil, decimal.Zero, apperror.ErrInvalidAmount()
	}

	wallet, err := s.walletRepo.GetByUser(ctx, guardianID, domain.WalletKindGuardian)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if wallet == nil {
		return nil, decimal.Zero, apperror.ErrNotFound("wallet")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, decimal.Zero, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if _, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, wallet.ID); err != nil {
		return nil, decimal.Zero, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}

	newBalance, err := s.walletRepo.ApplyDelta(ctx, dbTx, wallet.ID, amount)
	if err != nil {
		return nil, decimal.Zero, err
	}

	txn, err := domain.NewTransaction(nil, &wallet.ID, amount, domain.TransactionTypeDeposit, domain.TransactionStatusCompleted, "Wallet deposit", guardianID)
	if err != nil {
		return nil, decimal.Zero, apperror.Validation(err.Error())
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, decimal.Zero, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, decimal.Zero, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.auditSvc.Log(ctx, domain.AuditActionMoneyAdded, guardianID, "transaction", txn.ID.String(),
		map[string]interface{}{"amount": amount.String()}, clientIP)

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("guardian_id", guardianID.String()).
		Str("amount", amount.String()).
		Msg("deposit completed")

	return txn, newBalance, nil
}

// InitiateDeposit records a PENDING deposit tied to a gateway order
// reference. Nothing is credited until the gateway confirms.
func (s *TransferServiceImpl) InitiateDeposit(ctx context.Context, guardianID uuid.UUID, amount decimal.Decimal, reference string) (*domain.Transaction, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if reference == "" {
		return nil, apperror.Validation("order reference is required")
	}

	wallet, err := s.walletRepo.GetByUser(ctx, guardianID, domain.WalletKindGuardian)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	existing, err := s.txRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("check reference: %w", err))
	}
	if existing != nil {
		return nil, apperror.ErrConflict()
	}

	txn, err := domain.NewTransaction(nil, &wallet.ID, amount, domain.TransactionTypeDeposit, domain.TransactionStatusPending, "Gateway deposit", guardianID)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}
	txn.Reference = &reference

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("reference", reference).
		Str("amount", amount.String()).
		Msg("gateway deposit initiated")

	return txn, nil
}

// ConfirmDeposit completes a pending gateway deposit and credits the wallet.
// Confirming an already completed reference returns the stored transaction
// without crediting again.
func (s *TransferServiceImpl) ConfirmDeposit(ctx context.Context, reference string, paymentID string, clientIP string) (*domain.Transaction, error) {
	cacheKey := "deposit:confirm:" + reference

	// Fast path: already confirmed and cached
	cached, err := s.idempCache.Get(ctx, cacheKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", cacheKey).Msg("idempotency cache check failed, falling through to DB")
	}
	if cached != nil {
		return unmarshalCachedTransaction(cached)
	}

	pending, err := s.txRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("find deposit: %w", err))
	}
	if pending == nil {
		return nil, apperror.ErrNotFound("deposit order")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Re-read under lock: a concurrent confirmation may have won
	txn, err := s.txRepo.GetByIDForUpdate(ctx, dbTx, pending.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock deposit: %w", err))
	}
	if txn.Status == domain.TransactionStatusCompleted {
		return txn, nil
	}
	if txn.Status == domain.TransactionStatusFailed {
		return nil, apperror.ErrAlreadyProcessed()
	}

	if _, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, *txn.ToWalletID); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if _, err := s.walletRepo.ApplyDelta(ctx, dbTx, *txn.ToWalletID, txn.Amount); err != nil {
		return nil, err
	}
	if err := s.txRepo.UpdateStatus(ctx, dbTx, txn.ID, domain.TransactionStatusCompleted, "gateway payment "+paymentID); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	txn.Status = domain.TransactionStatusCompleted

	if respJSON, err := json.Marshal(txn); err == nil {
		if err := s.idempCache.Set(ctx, cacheKey, respJSON, depositConfirmTTL); err != nil {
			s.log.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache deposit confirmation")
		}
	}

	s.auditSvc.Log(ctx, domain.AuditActionWalletRecharge, txn.InitiatedBy, "transaction", txn.ID.String(),
		map[string]interface{}{"amount": txn.Amount.String(), "reference": reference, "payment_id": paymentID}, clientIP)

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("reference", reference).
		Msg("gateway deposit confirmed")

	return txn, nil
}

// FailDeposit marks a pending gateway deposit FAILED. Failing an already
// failed reference is a no-op.
func (s *TransferServiceImpl) FailDeposit(ctx context.Context, reference string, reason string) error {
	pending, err := s.txRepo.GetByReference(ctx, reference)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("find deposit: %w", err))
	}
	if pending == nil {
		return apperror.ErrNotFound("deposit order")
	}
	if pending.Status == domain.TransactionStatusFailed {
		return nil
	}
	if pending.Status == domain.TransactionStatusCompleted {
		return apperror.ErrAlreadyProcessed()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.txRepo.UpdateStatus(ctx, dbTx, pending.ID, domain.TransactionStatusFailed, reason); err != nil {
		return err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("tx_id", pending.ID.String()).
		Str("reference", reference).
		Str("reason", reason).
		Msg("gateway deposit failed")

	return nil
}

// TransferToStudent moves funds from a guardian wallet into one of the
// guardian's student wallets.
func (s *TransferServiceImpl) TransferToStudent(ctx context.Context, guardianID, studentID uuid.UUID, amount decimal.Decimal, description, clientIP string) (*domain.Transaction, decimal.Decimal, error) {
	if !amount.IsPositive() {
		return nil, decimal.Zero, apperror.ErrInvalidAmount()
	}

	student, err := s.studentRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if student.GuardianID != guardianID {
		return nil, decimal.Zero, apperror.ErrNotAuthorized()
	}

	guardianWallet, err := s.walletRepo.GetByUser(ctx, guardianID, domain.WalletKindGuardian)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if guardianWallet == nil {
		return nil, decimal.Zero, apperror.ErrNotFound("wallet")
	}
	studentWallet, err := s.walletRepo.GetByStudent(ctx, studentID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if studentWallet == nil {
		return nil, decimal.Zero, apperror.ErrNotFound("student wallet")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, decimal.Zero, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	lockedFrom, _, err := s.lockWalletPair(ctx, dbTx, guardianWallet.ID, studentWallet.ID)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if !lockedFrom.CanCover(amount) {
		return nil, decimal.Zero, apperror.ErrInsufficientFunds()
	}

	newBalance, err := s.walletRepo.ApplyDelta(ctx, dbTx, guardianWallet.ID, amount.Neg())
	if err != nil {
		return nil, decimal.Zero, err
	}
	if _, err := s.walletRepo.ApplyDelta(ctx, dbTx, studentWallet.ID, amount); err != nil {
		return nil, decimal.Zero, err
	}

	if description == "" {
		description = "Transfer to " + student.Name
	}
	txn, err := domain.NewTransaction(&guardianWallet.ID, &studentWallet.ID, amount, domain.TransactionTypeTransfer, domain.TransactionStatusCompleted, description, guardianID)
	if err != nil {
		return nil, decimal.Zero, apperror.Validation(err.Error())
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, decimal.Zero, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, decimal.Zero, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.auditSvc.Log(ctx, domain.AuditActionMoneyTransferred, guardianID, "transaction", txn.ID.String(),
		map[string]interface{}{"amount": amount.String(), "student_id": student.ExternalID}, clientIP)

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("guardian_id", guardianID.String()).
		Str("student_id", studentID.String()).
		Str("amount", amount.String()).
		Msg("transfer to student completed")

	return txn, newBalance, nil
}

// Charge runs the vendor-initiated payment. Credential failures are audited
// before the error returns; the balance and rule checks run under the
// student wallet row lock so two concurrent charges cannot both pass.
func (s *TransferServiceImpl) Charge(ctx context.Context, req ports.ChargeRequest) (*ports.ChargeResult, error) {
	result, err := s.chargeOnce(ctx, req)
	if err != nil {
		// A concurrent writer can still produce a conflict between the
		// pre-reads and the locked section. One retry is enough: the
		// second attempt re-reads everything under fresh locks.
		var appErr *apperror.AppError
		if errors.As(err, &appErr) && appErr.Code == "WAL_004" {
			s.log.Warn().Str("student_id", req.StudentExternalID).Msg("charge conflict, retrying once")
			return s.chargeOnce(ctx, req)
		}
		return nil, err
	}
	return result, nil
}

func (s *TransferServiceImpl) chargeOnce(ctx context.Context, req ports.ChargeRequest) (*ports.ChargeResult, error) {
	total, items, err := chargeTotal(req)
	if err != nil {
		return nil, err
	}

	vendor, err := s.vendorRepo.GetByUserID(ctx, req.VendorUserID)
	if err != nil {
		return nil, err
	}
	if vendor == nil || !vendor.Approved {
		return nil, apperror.ErrVendorNotApproved()
	}

	student, err := s.studentRepo.GetByExternalID(ctx, req.StudentExternalID)
	if err != nil {
		return nil, err
	}
	if !student.IsActive() {
		return nil, apperror.ErrStudentBlocked()
	}

	if err := s.verifyChargeCredential(ctx, student, req); err != nil {
		return nil, err
	}

	studentWallet, err := s.walletRepo.GetByStudent(ctx, student.ID)
	if err != nil {
		return nil, err
	}
	if studentWallet == nil {
		return nil, apperror.ErrNotFound("student wallet")
	}
	vendorWallet, err := s.walletRepo.GetByUser(ctx, req.VendorUserID, domain.WalletKindVendor)
	if err != nil {
		return nil, err
	}
	if vendorWallet == nil {
		return nil, apperror.ErrNotFound("vendor wallet")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	var lockedStudent *domain.Wallet
	lockedStudent, _, err = s.lockWalletPair(ctx, dbTx, studentWallet.ID, vendorWallet.ID)
	if err != nil {
		return nil, err
	}

	// Balance first, then spending rules. A student who cannot cover the
	// charge gets InsufficientFunds even when a limit would also block it.
	if !lockedStudent.CanCover(total) {
		return nil, apperror.ErrInsufficientFunds()
	}
	if err := s.ruleEval.Check(ctx, dbTx, studentWallet.ID, total, req.VendorUserID, s.now()); err != nil {
		return nil, err
	}

	if _, err := s.walletRepo.ApplyDelta(ctx, dbTx, studentWallet.ID, total.Neg()); err != nil {
		return nil, err
	}
	vendorBalance, err := s.walletRepo.ApplyDelta(ctx, dbTx, vendorWallet.ID, total)
	if err != nil {
		return nil, err
	}

	description := req.Description
	if description == "" {
		description = "Payment to " + vendor.StoreName
	}
	txn, err := domain.NewTransaction(&studentWallet.ID, &vendorWallet.ID, total, domain.TransactionTypePayment, domain.TransactionStatusCompleted, description, req.VendorUserID)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	for i := range items {
		items[i].ID = uuid.New()
		items[i].TransactionID = txn.ID
	}
	if len(items) > 0 {
		if err := s.txRepo.CreateItems(ctx, dbTx, items); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("create items: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.auditSvc.Log(ctx, domain.AuditActionVendorPayment, req.VendorUserID, "transaction", txn.ID.String(),
		map[string]interface{}{"amount": total.String(), "student_id": student.ExternalID}, req.ClientIP)

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("vendor_id", req.VendorUserID.String()).
		Str("student_id", student.ExternalID).
		Str("amount", total.String()).
		Msg("vendor charge completed")

	return &ports.ChargeResult{
		Transaction:   txn,
		Items:         items,
		StudentName:   student.Name,
		VendorBalance: vendorBalance,
	}, nil
}

// verifyChargeCredential checks exactly one of PIN or OTP. Failed attempts
// are always audited, whether or not the payment proceeds.
func (s *TransferServiceImpl) verifyChargeCredential(ctx context.Context, student *domain.Student, req ports.ChargeRequest) error {
	hasPIN := req.PIN != ""
	hasOTP := req.OTP != ""
	if hasPIN == hasOTP {
		return apperror.Validation("exactly one of pin or otp is required")
	}

	if hasPIN {
		ok, err := s.identitySvc.VerifyPIN(ctx, student, req.PIN)
		if err != nil {
			return err
		}
		if !ok {
			s.auditSvc.Log(ctx, domain.AuditActionFailedPINAttempt, student.ID, "student", student.ID.String(),
				map[string]interface{}{"vendor_id": req.VendorUserID.String(), "student_id": student.ExternalID}, req.ClientIP)
			return apperror.ErrAuthenticationFailed()
		}
		return nil
	}

	grantStudentID, err := s.identitySvc.ValidateOTP(ctx, student.ExternalID, req.OTP)
	if err != nil || grantStudentID != student.ID {
		s.auditSvc.Log(ctx, domain.AuditActionFailedOTPAttempt, student.ID, "student", student.ID.String(),
			map[string]interface{}{"vendor_id": req.VendorUserID.String(), "student_id": student.ExternalID}, req.ClientIP)
		if err != nil {
			return err
		}
		return apperror.ErrAuthenticationFailed()
	}
	return nil
}

// RequestWithdrawal debits the vendor wallet immediately and records a
// PENDING withdrawal. The funds leave the vendor's spendable balance at
// request time; settlement only flips the status.
func (s *TransferServiceImpl) RequestWithdrawal(ctx context.Context, vendorUserID uuid.UUID, amount decimal.Decimal, clientIP string) (*domain.Transaction, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}

	wallet, err := s.walletRepo.GetByUser(ctx, vendorUserID, domain.WalletKindVendor)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	locked, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, wallet.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if !locked.CanCover(amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	if _, err := s.walletRepo.ApplyDelta(ctx, dbTx, wallet.ID, amount.Neg()); err != nil {
		return nil, err
	}

	txn, err := domain.NewTransaction(&wallet.ID, nil, amount, domain.TransactionTypeWithdrawal, domain.TransactionStatusPending, "Withdrawal request", vendorUserID)
	if err != nil {
		return nil, apperror.Validation(err.Error())
	}
	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create transaction: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.auditSvc.Log(ctx, domain.AuditActionWithdrawalRequested, vendorUserID, "transaction", txn.ID.String(),
		map[string]interface{}{"amount": amount.String()}, clientIP)

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("vendor_id", vendorUserID.String()).
		Str("amount", amount.String()).
		Msg("withdrawal requested")

	return txn, nil
}

// Settle finalizes a pending withdrawal. The funds were already debited at
// request time, so settlement is a pure status flip, and the PENDING-only
// update guarantees it happens at most once.
func (s *TransferServiceImpl) Settle(ctx context.Context, adminID, transactionID uuid.UUID, clientIP string) (*domain.Transaction, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := s.txRepo.GetByIDForUpdate(ctx, dbTx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Type != domain.TransactionTypeWithdrawal {
		return nil, apperror.ErrInvalidTransaction()
	}
	if !txn.IsSettleable() {
		return nil, apperror.ErrAlreadyProcessed()
	}

	if err := s.txRepo.UpdateStatus(ctx, dbTx, txn.ID, domain.TransactionStatusCompleted, "settled"); err != nil {
		return nil, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	txn.Status = domain.TransactionStatusCompleted

	s.auditSvc.Log(ctx, domain.AuditActionSettlementApproved, adminID, "transaction", txn.ID.String(),
		map[string]interface{}{"amount": txn.Amount.String(), "vendor_id": txn.InitiatedBy.String()}, clientIP)

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("admin_id", adminID.String()).
		Msg("withdrawal settled")

	return txn, nil
}

// RejectWithdrawal fails a pending withdrawal and credits the amount back to
// the vendor wallet in the same transaction as the status flip.
func (s *TransferServiceImpl) RejectWithdrawal(ctx context.Context, adminID, transactionID uuid.UUID, reason, clientIP string) (*domain.Transaction, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	txn, err := s.txRepo.GetByIDForUpdate(ctx, dbTx, transactionID)
	if err != nil {
		return nil, err
	}
	if txn.Type != domain.TransactionTypeWithdrawal {
		return nil, apperror.ErrInvalidTransaction()
	}
	if !txn.IsSettleable() {
		return nil, apperror.ErrAlreadyProcessed()
	}

	if _, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, *txn.FromWalletID); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if _, err := s.walletRepo.ApplyDelta(ctx, dbTx, *txn.FromWalletID, txn.Amount); err != nil {
		return nil, err
	}
	if reason == "" {
		reason = "rejected"
	}
	if err := s.txRepo.UpdateStatus(ctx, dbTx, txn.ID, domain.TransactionStatusFailed, reason); err != nil {
		return nil, err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	txn.Status = domain.TransactionStatusFailed

	s.auditSvc.Log(ctx, domain.AuditActionSettlementRejected, adminID, "transaction", txn.ID.String(),
		map[string]interface{}{"amount": txn.Amount.String(), "reason": reason, "vendor_id": txn.InitiatedBy.String()}, clientIP)

	s.log.Info().
		Str("tx_id", txn.ID.String()).
		Str("admin_id", adminID.String()).
		Str("reason", reason).
		Msg("withdrawal rejected, vendor re-credited")

	return txn, nil
}

// lockWalletPair takes FOR UPDATE locks on two wallets in wallet-ID order
// and returns them keyed to the caller's (first, second) arguments.
func (s *TransferServiceImpl) lockWalletPair(ctx context.Context, dbTx pgx.Tx, firstID, secondID uuid.UUID) (*domain.Wallet, *domain.Wallet, error) {
	ids := []uuid.UUID{firstID, secondID}
	if strings.Compare(secondID.String(), firstID.String()) < 0 {
		ids[0], ids[1] = ids[1], ids[0]
	}

	locked := make(map[uuid.UUID]*domain.Wallet, 2)
	for _, id := range ids {
		w, err := s.walletRepo.GetByIDForUpdate(ctx, dbTx, id)
		if err != nil {
			return nil, nil, apperror.InternalError(fmt.Errorf("lock wallet %s: %w", id, err))
		}
		locked[id] = w
	}
	return locked[firstID], locked[secondID], nil
}

// chargeTotal computes the amount to debit: the cart total when items are
// present, the flat amount otherwise.
func chargeTotal(req ports.ChargeRequest) (decimal.Decimal, []domain.TransactionItem, error) {
	if len(req.Items) == 0 {
		if !req.Amount.IsPositive() {
			return decimal.Zero, nil, apperror.ErrInvalidAmount()
		}
		return req.Amount, nil, nil
	}

	total := decimal.Zero
	items := make([]domain.TransactionItem, 0, len(req.Items))
	for _, it := range req.Items {
		if it.Quantity <= 0 || !it.Price.IsPositive() {
			return decimal.Zero, nil, apperror.Validation("item price and quantity must be positive")
		}
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
		items = append(items, domain.TransactionItem{
			MenuItemID: it.MenuItemID,
			Name:       it.Name,
			Price:      it.Price,
			Quantity:   it.Quantity,
		})
	}
	if !total.IsPositive() {
		return decimal.Zero, nil, apperror.ErrInvalidAmount()
	}
	return total, items, nil
}

// unmarshalCachedTransaction deserializes a cached transaction.
func unmarshalCachedTransaction(data []byte) (*domain.Transaction, error) {
	txn := &domain.Transaction{}
	if err := json.Unmarshal(data, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached tx: %w", err))
	}
	return txn, nil
}
