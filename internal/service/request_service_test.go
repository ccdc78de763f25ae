package service

import (
	"context"
	"testing"

	"campus-wallet/internal/core/domain"
	"campus-wallet/internal/core/ports/mocks"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type requestTestDeps struct {
	svc         *RequestServiceImpl
	requestRepo *mocks.MockRequestRepository
	studentRepo *mocks.MockStudentRepository
	walletRepo  *mocks.MockWalletRepository
	txRepo      *mocks.MockTransactionRepository
	auditSvc    *mocks.MockAuditService
	transactor  *mocks.MockDBTransactor
	ctrl        *gomock.Controller
}

func setupRequestService(t *testing.T) *requestTestDeps {
	ctrl := gomock.NewController(t)
	d := &requestTestDeps{
		requestRepo: mocks.NewMockRequestRepository(ctrl),
		studentRepo: mocks.NewMockStudentRepository(ctrl),
		walletRepo:  mocks.NewMockWalletRepository(ctrl),
		txRepo:      mocks.NewMockTransactionRepository(ctrl),
		auditSvc:    mocks.NewMockAuditService(ctrl),
		transactor:  mocks.NewMockDBTransactor(ctrl),
		ctrl:        ctrl,
	}
	d.auditSvc.EXPECT().Log(
		gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
	).AnyTimes()
	d.svc = NewRequestService(
		d.requestRepo, d.studentRepo, d.walletRepo, d.txRepo,
		d.auditSvc, d.transactor, newTestLogger(),
	)
	return d
}

func pendingRequest(studentID uuid.UUID, amount string) *domain.MoneyRequest {
	return &domain.MoneyRequest{
		ID:        uuid.New(),
		StudentID: studentID,
		Amount:    decimal.RequireFromString(amount),
		Reason:    "field trip",
		Status:    domain.RequestStatusPending,
	}
}

func TestRequestService_Create_Success(t *testing.T) {
	d := setupRequestService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	student := activeStudent()

	d.studentRepo.EXPECT().GetByID(ctx, student.ID).Return(student, nil)
	d.requestRepo.EXPECT().Create(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, req *domain.MoneyRequest) error {
			assert.Equal(t, domain.RequestStatusPending, req.Status)
			assert.Equal(t, student.ID, req.StudentID)
			return nil
		},
	)

	req, err := d.svc.Create(ctx, student.ID, decimal.RequireFromString("25.00"), "field trip")
	require.NoError(t, err)
	assert.True(t, req.IsPending())
}

func TestRequestService_Create_BlockedStudent(t *testing.T) {
	d := setupRequestService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	student := activeStudent()
	student.Status = domain.StudentStatusBlocked
	d.studentRepo.EXPECT().GetByID(ctx, student.ID).Return(student, nil)

	_, err := d.svc.Create(ctx, student.ID, decimal.RequireFromString("25.00"), "field trip")
	assertAppError(t, err, "PAY_003")
}

func TestRequestService_Create_InvalidAmount(t *testing.T) {
	d := setupRequestService(t)
	defer d.ctrl.Finish()

	_, err := d.svc.Create(context.Background(), uuid.New(), decimal.Zero, "field trip")
	assertAppError(t, err, "WAL_003")
}

func TestRequestService_Approve_TransfersFunds(t *testing.T) {
	d := setupRequestService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	student := activeStudent()
	request := pendingRequest(student.ID, "25.00")
	gWallet := guardianWallet(student.GuardianID, "100.00")
	sWallet := studentWalletFor(student.ID, "5.00")
	tx := &mockTx{}

	d.requestRepo.EXPECT().GetByID(ctx, request.ID).Return(request, nil)
	d.studentRepo.EXPECT().GetByID(ctx, student.ID).Return(student, nil)
	d.walletRepo.EXPECT().GetByUser(ctx, student.GuardianID, domain.WalletKindGuardian).Return(gWallet, nil)
	d.walletRepo.EXPECT().GetByStudent(ctx, student.ID).Return(sWallet, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.requestRepo.EXPECT().Resolve(ctx, tx, request.ID, domain.RequestStatusApproved, student.GuardianID).Return(true, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, gWallet.ID).Return(gWallet, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, sWallet.ID).Return(sWallet, nil)
	d.walletRepo.EXPECT().ApplyDelta(ctx, tx, gWallet.ID, request.Amount.Neg()).Return(decimal.RequireFromString("75.00"), nil)
	d.walletRepo.EXPECT().ApplyDelta(ctx, tx, sWallet.ID, request.Amount).Return(decimal.RequireFromString("30.00"), nil)
	d.txRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ interface{}, txn *domain.Transaction) error {
			assert.Equal(t, domain.TransactionTypeTransfer, txn.Type)
			assert.True(t, request.Amount.Equal(txn.Amount))
			return nil
		},
	)

	resolved, err := d.svc.Approve(ctx, request.ID, student.GuardianID, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusApproved, resolved.Status)
	require.NotNil(t, resolved.ReviewedBy)
	assert.Equal(t, student.GuardianID, *resolved.ReviewedBy)
}

func TestRequestService_Approve_AlreadyResolved(t *testing.T) {
	d := setupRequestService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	student := activeStudent()
	request := pendingRequest(student.ID, "25.00")
	gWallet := guardianWallet(student.GuardianID, "100.00")
	sWallet := studentWalletFor(student.ID, "5.00")
	tx := &mockTx{}

	d.requestRepo.EXPECT().GetByID(ctx, request.ID).Return(request, nil)
	d.studentRepo.EXPECT().GetByID(ctx, student.ID).Return(student, nil)
	d.walletRepo.EXPECT().GetByUser(ctx, student.GuardianID, domain.WalletKindGuardian).Return(gWallet, nil)
	d.walletRepo.EXPECT().GetByStudent(ctx, student.ID).Return(sWallet, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	// A concurrent approval already flipped the row
	d.requestRepo.EXPECT().Resolve(ctx, tx, request.ID, domain.RequestStatusApproved, student.GuardianID).Return(false, nil)

	_, err := d.svc.Approve(ctx, request.ID, student.GuardianID, "1.2.3.4")
	assertAppError(t, err, "REQ_001")
}

func TestRequestService_Approve_WrongGuardian(t *testing.T) {
	d := setupRequestService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	student := activeStudent()
	request := pendingRequest(student.ID, "25.00")

	d.requestRepo.EXPECT().GetByID(ctx, request.ID).Return(request, nil)
	d.studentRepo.EXPECT().GetByID(ctx, student.ID).Return(student, nil)

	_, err := d.svc.Approve(ctx, request.ID, uuid.New(), "1.2.3.4")
	assertAppError(t, err, "AUTH_002")
}

func TestRequestService_Approve_InsufficientFunds(t *testing.T) {
	d := setupRequestService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	student := activeStudent()
	request := pendingRequest(student.ID, "150.00")
	gWallet := guardianWallet(student.GuardianID, "100.00")
	sWallet := studentWalletFor(student.ID, "5.00")
	tx := &mockTx{}

	d.requestRepo.EXPECT().GetByID(ctx, request.ID).Return(request, nil)
	d.studentRepo.EXPECT().GetByID(ctx, student.ID).Return(student, nil)
	d.walletRepo.EXPECT().GetByUser(ctx, student.GuardianID, domain.WalletKindGuardian).Return(gWallet, nil)
	d.walletRepo.EXPECT().GetByStudent(ctx, student.ID).Return(sWallet, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.requestRepo.EXPECT().Resolve(ctx, tx, request.ID, domain.RequestStatusApproved, student.GuardianID).Return(true, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, gWallet.ID).Return(gWallet, nil)
	d.walletRepo.EXPECT().GetByIDForUpdate(ctx, tx, sWallet.ID).Return(sWallet, nil)

	// The tx rolls back, leaving the request PENDING
	_, err := d.svc.Approve(ctx, request.ID, student.GuardianID, "1.2.3.4")
	assertAppError(t, err, "WAL_002")
}

func TestRequestService_Reject_NoMoneyMoves(t *testing.T) {
	d := setupRequestService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	student := activeStudent()
	request := pendingRequest(student.ID, "25.00")
	tx := &mockTx{}

	d.requestRepo.EXPECT().GetByID(ctx, request.ID).Return(request, nil)
	d.studentRepo.EXPECT().GetByID(ctx, student.ID).Return(student, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.requestRepo.EXPECT().Resolve(ctx, tx, request.ID, domain.RequestStatusRejected, student.GuardianID).Return(true, nil)

	resolved, err := d.svc.Reject(ctx, request.ID, student.GuardianID, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, domain.RequestStatusRejected, resolved.Status)
}

func TestRequestService_Reject_AlreadyResolved(t *testing.T) {
	d := setupRequestService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	student := activeStudent()
	request := pendingRequest(student.ID, "25.00")
	tx := &mockTx{}

	d.requestRepo.EXPECT().GetByID(ctx, request.ID).Return(request, nil)
	d.studentRepo.EXPECT().GetByID(ctx, student.ID).Return(student, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.requestRepo.EXPECT().Resolve(ctx, tx, request.ID, domain.RequestStatusRejected, student.GuardianID).Return(false, nil)

	_, err := d.svc.Reject(ctx, request.ID, student.GuardianID, "1.2.3.4")
	assertAppError(t, err, "REQ_001")
}

func TestRequestService_ListForGuardian(t *testing.T) {
	d := setupRequestService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	guardianID := uuid.New()
	d.requestRepo.EXPECT().ListByGuardian(ctx, guardianID).Return([]domain.MoneyRequest{
		*pendingRequest(uuid.New(), "10.00"),
	}, nil)

	out, err := d.svc.ListForGuardian(ctx, guardianID)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}
