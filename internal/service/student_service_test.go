package service

import (
	"context"
	"testing"
	"time"

	"campus-wallet/internal/core/domain"
	"campus-wallet/internal/core/ports"
	"campus-wallet/internal/core/ports/mocks"
	"campus-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type studentTestDeps struct {
	svc         *StudentServiceImpl
	studentRepo *mocks.MockStudentRepository
	walletRepo  *mocks.MockWalletRepository
	txRepo      *mocks.MockTransactionRepository
	ruleRepo    *mocks.MockRuleRepository
	hashSvc     *mocks.MockHashService
	auditSvc    *mocks.MockAuditService
	transactor  *mocks.MockDBTransactor
	ctrl        *gomock.Controller
}

func setupStudentService(t *testing.T) *studentTestDeps {
	ctrl := gomock.NewController(t)
	d := &studentTestDeps{
		studentRepo: mocks.NewMockStudentRepository(ctrl),
		walletRepo:  mocks.NewMockWalletRepository(ctrl),
		txRepo:      mocks.NewMockTransactionRepository(ctrl),
		ruleRepo:    mocks.NewMockRuleRepository(ctrl),
		hashSvc:     mocks.NewMockHashService(ctrl),
		auditSvc:    mocks.NewMockAuditService(ctrl),
		transactor:  mocks.NewMockDBTransactor(ctrl),
		ctrl:        ctrl,
	}
	d.auditSvc.EXPECT().Log(
		gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
	).AnyTimes()
	d.svc = NewStudentService(
		d.studentRepo, d.walletRepo, d.txRepo, d.ruleRepo,
		d.hashSvc, d.auditSvc, d.transactor, newTestLogger(),
	)
	return d
}

func TestStudentService_Create_Success(t *testing.T) {
	d := setupStudentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	guardianID := uuid.New()
	tx := &mockTx{}

	d.studentRepo.EXPECT().GetByExternalID(ctx, "STU-2024").Return(nil, apperror.ErrNotFound("student"))
	d.hashSvc.EXPECT().Hash("1234").Return("pin-hash", nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.studentRepo.EXPECT().Create(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ interface{}, student *domain.Student) error {
			assert.Equal(t, guardianID, student.GuardianID)
			assert.Equal(t, "pin-hash", student.PINHash)
			assert.Equal(t, domain.StudentStatusActive, student.Status)
			return nil
		},
	)
	d.walletRepo.EXPECT().CreateInTx(ctx, tx, gomock.Any()).DoAndReturn(
		func(_ context.Context, _ interface{}, wallet *domain.Wallet) error {
			assert.Equal(t, domain.WalletKindStudent, wallet.Kind)
			assert.True(t, wallet.Balance.IsZero())
			return nil
		},
	)

	student, err := d.svc.Create(ctx, ports.CreateStudentRequest{
		GuardianID: guardianID, Name: "An Nguyen", ExternalID: "STU-2024", PIN: "1234", ClientIP: "1.2.3.4",
	})
	require.NoError(t, err)
	assert.Equal(t, "STU-2024", student.ExternalID)
}

func TestStudentService_Create_DuplicateExternalID(t *testing.T) {
	d := setupStudentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.studentRepo.EXPECT().GetByExternalID(ctx, "STU-2024").Return(activeStudent(), nil)

	_, err := d.svc.Create(ctx, ports.CreateStudentRequest{
		GuardianID: uuid.New(), Name: "An Nguyen", ExternalID: "STU-2024", PIN: "1234",
	})
	assertAppError(t, err, "REQ_002")
}

func TestStudentService_Create_BadPIN(t *testing.T) {
	d := setupStudentService(t)
	defer d.ctrl.Finish()

	for _, pin := range []string{"", "12", "1234567", "12ab"} {
		_, err := d.svc.Create(context.Background(), ports.CreateStudentRequest{
			GuardianID: uuid.New(), Name: "An Nguyen", ExternalID: "STU-2024", PIN: pin,
		})
		assertAppError(t, err, "SYS_002")
	}
}

func TestStudentService_UpdatePIN_Success(t *testing.T) {
	d := setupStudentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	student := activeStudent()

	d.studentRepo.EXPECT().GetByID(ctx, student.ID).Return(student, nil)
	d.hashSvc.EXPECT().Hash("567890").Return("new-hash", nil)
	d.studentRepo.EXPECT().UpdatePINHash(ctx, student.ID, "new-hash").Return(nil)

	require.NoError(t, d.svc.UpdatePIN(ctx, student.GuardianID, student.ID, "567890", "1.2.3.4"))
}

func TestStudentService_UpdatePIN_WrongGuardian(t *testing.T) {
	d := setupStudentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	student := activeStudent()
	d.studentRepo.EXPECT().GetByID(ctx, student.ID).Return(student, nil)

	err := d.svc.UpdatePIN(ctx, uuid.New(), student.ID, "567890", "1.2.3.4")
	assertAppError(t, err, "AUTH_002")
}

func TestStudentService_SetStatus_Blocks(t *testing.T) {
	d := setupStudentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	student := activeStudent()

	d.studentRepo.EXPECT().GetByID(ctx, student.ID).Return(student, nil)
	d.studentRepo.EXPECT().UpdateStatus(ctx, student.ID, domain.StudentStatusBlocked).Return(nil)

	updated, err := d.svc.SetStatus(ctx, student.GuardianID, student.ID, domain.StudentStatusBlocked, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, domain.StudentStatusBlocked, updated.Status)
}

func TestStudentService_SetStatus_RejectsUnknownStatus(t *testing.T) {
	d := setupStudentService(t)
	defer d.ctrl.Finish()

	_, err := d.svc.SetStatus(context.Background(), uuid.New(), uuid.New(), "SUSPENDED", "1.2.3.4")
	assertAppError(t, err, "SYS_002")
}

func TestStudentService_SetSpendingLimit_Success(t *testing.T) {
	d := setupStudentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	student := activeStudent()
	wallet := studentWalletFor(student.ID, "50.00")
	vendorID := uuid.New()
	limit := decimal.RequireFromString("200.00")

	d.studentRepo.EXPECT().GetByID(ctx, student.ID).Return(student, nil)
	d.walletRepo.EXPECT().GetByStudent(ctx, student.ID).Return(wallet, nil)
	d.ruleRepo.EXPECT().Upsert(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, rule *domain.SpendingRule) error {
			assert.Equal(t, wallet.ID, rule.WalletID)
			assert.True(t, rule.Active)
			require.NotNil(t, rule.DailyLimit)
			assert.True(t, limit.Equal(*rule.DailyLimit))
			assert.Equal(t, []uuid.UUID{vendorID}, rule.AllowedVendors)
			return nil
		},
	)

	rule, err := d.svc.SetSpendingLimit(ctx, student.GuardianID, student.ID, limit, []uuid.UUID{vendorID}, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, rule.LimitsSpending())
}

func TestStudentService_SetSpendingLimit_ZeroDisables(t *testing.T) {
	d := setupStudentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	student := activeStudent()
	wallet := studentWalletFor(student.ID, "50.00")

	d.studentRepo.EXPECT().GetByID(ctx, student.ID).Return(student, nil)
	d.walletRepo.EXPECT().GetByStudent(ctx, student.ID).Return(wallet, nil)
	d.ruleRepo.EXPECT().Upsert(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, rule *domain.SpendingRule) error {
			assert.Nil(t, rule.DailyLimit)
			assert.False(t, rule.Active)
			return nil
		},
	)

	rule, err := d.svc.SetSpendingLimit(ctx, student.GuardianID, student.ID, decimal.Zero, nil, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, rule.LimitsSpending())
}

func TestStudentService_GetSpendingLimit_ReportsSpentToday(t *testing.T) {
	d := setupStudentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	student := activeStudent()
	wallet := studentWalletFor(student.ID, "50.00")
	limit := decimal.RequireFromString("200.00")
	tx := &mockTx{}

	d.studentRepo.EXPECT().GetByID(ctx, student.ID).Return(student, nil)
	d.walletRepo.EXPECT().GetByStudent(ctx, student.ID).Return(wallet, nil)
	d.ruleRepo.EXPECT().GetByWallet(ctx, wallet.ID).Return(&domain.SpendingRule{
		ID: uuid.New(), WalletID: wallet.ID, DailyLimit: &limit, Active: true,
	}, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.txRepo.EXPECT().SumCompletedPayments(ctx, tx, wallet.ID, gomock.Any(), gomock.Any()).
		Return(decimal.RequireFromString("75.00"), nil)

	status, err := d.svc.GetSpendingLimit(ctx, student.GuardianID, student.ID)
	require.NoError(t, err)
	assert.True(t, status.Active)
	assert.Equal(t, "75", status.SpentToday.String())
	require.NotNil(t, status.Remaining)
	assert.Equal(t, "125", status.Remaining.String())
}

func TestStudentService_GetSpendingLimit_NoRule(t *testing.T) {
	d := setupStudentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	student := activeStudent()
	wallet := studentWalletFor(student.ID, "50.00")

	d.studentRepo.EXPECT().GetByID(ctx, student.ID).Return(student, nil)
	d.walletRepo.EXPECT().GetByStudent(ctx, student.ID).Return(wallet, nil)
	d.ruleRepo.EXPECT().GetByWallet(ctx, wallet.ID).Return(nil, nil)

	status, err := d.svc.GetSpendingLimit(ctx, student.GuardianID, student.ID)
	require.NoError(t, err)
	assert.False(t, status.Active)
	assert.Nil(t, status.Remaining)
}

func TestStudentService_ListByGuardian_IncludesBalances(t *testing.T) {
	d := setupStudentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	guardianID := uuid.New()
	s1 := *activeStudent()
	s2 := *activeStudent()
	w1 := studentWalletFor(s1.ID, "12.00")

	d.studentRepo.EXPECT().ListByGuardian(ctx, guardianID).Return([]domain.Student{s1, s2}, nil)
	d.walletRepo.EXPECT().GetByStudent(ctx, s1.ID).Return(w1, nil)
	d.walletRepo.EXPECT().GetByStudent(ctx, s2.ID).Return(nil, nil)

	out, err := d.svc.ListByGuardian(ctx, guardianID)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "12", out[0].Balance.String())
	assert.True(t, out[1].Balance.IsZero())
}

func TestStudentService_Transactions_WrongGuardian(t *testing.T) {
	d := setupStudentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	student := activeStudent()
	d.studentRepo.EXPECT().GetByID(ctx, student.ID).Return(student, nil)

	_, err := d.svc.Transactions(ctx, uuid.New(), student.ID, 20)
	assertAppError(t, err, "AUTH_002")
}

func TestStudentService_Transactions_Success(t *testing.T) {
	d := setupStudentService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	student := activeStudent()
	wallet := studentWalletFor(student.ID, "50.00")
	now := time.Now()

	d.studentRepo.EXPECT().GetByID(ctx, student.ID).Return(student, nil)
	d.walletRepo.EXPECT().GetByStudent(ctx, student.ID).Return(wallet, nil)
	d.txRepo.EXPECT().List(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, filter ports.TransactionFilter) ([]domain.Transaction, error) {
			require.NotNil(t, filter.WalletID)
			assert.Equal(t, wallet.ID, *filter.WalletID)
			assert.Equal(t, 20, filter.Limit)
			return []domain.Transaction{{ID: uuid.New(), CreatedAt: now}}, nil
		},
	)

	txns, err := d.svc.Transactions(ctx, student.GuardianID, student.ID, 20)
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}
