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
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type identityTestDeps struct {
	svc         *IdentityServiceImpl
	studentRepo *mocks.MockStudentRepository
	hashSvc     *mocks.MockHashService
	otpStore    *mocks.MockOTPStore
	deviceStore *mocks.MockDeviceStore
	auditSvc    *mocks.MockAuditService
	ctrl        *gomock.Controller
}

func setupIdentityService(t *testing.T) *identityTestDeps {
	ctrl := gomock.NewController(t)
	d := &identityTestDeps{
		studentRepo: mocks.NewMockStudentRepository(ctrl),
		hashSvc:     mocks.NewMockHashService(ctrl),
		otpStore:    mocks.NewMockOTPStore(ctrl),
		deviceStore: mocks.NewMockDeviceStore(ctrl),
		auditSvc:    mocks.NewMockAuditService(ctrl),
		ctrl:        ctrl,
	}
	d.svc = NewIdentityService(
		d.studentRepo, d.hashSvc, d.otpStore, d.deviceStore, d.auditSvc,
		60*time.Second, newTestLogger(),
	)
	// Silence fire-and-forget audit calls by default
	d.auditSvc.EXPECT().Log(
		gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(),
	).AnyTimes()
	return d
}

func activeStudent() *domain.Student {
	return &domain.Student{
		ID:         uuid.New(),
		Name:       "An Nguyen",
		ExternalID: "STU-1001",
		PINHash:    "$argon2id$...",
		GuardianID: uuid.New(),
		Status:     domain.StudentStatusActive,
	}
}

func assertAppError(t *testing.T, err error, code string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, code, appErr.Code)
}

func TestIdentityService_VerifyPIN(t *testing.T) {
	d := setupIdentityService(t)
	defer d.ctrl.Finish()

	student := activeStudent()
	d.hashSvc.EXPECT().Verify("1234", student.PINHash).Return(true, nil)

	ok, err := d.svc.VerifyPIN(context.Background(), student, "1234")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestIdentityService_IssueOTP_Success(t *testing.T) {
	d := setupIdentityService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	student := activeStudent()

	d.studentRepo.EXPECT().GetByID(ctx, student.ID).Return(student, nil)
	d.deviceStore.EXPECT().Get(ctx, "dev-abc").Return(&ports.DeviceRegistration{
		DeviceKey: "dev-abc",
		StudentID: student.ID,
	}, nil)

	var saved ports.OTPGrant
	d.otpStore.EXPECT().Save(ctx, student.ExternalID, gomock.Any(), 60*time.Second).DoAndReturn(
		func(_ context.Context, _ string, grant ports.OTPGrant, _ time.Duration) error {
			saved = grant
			return nil
		},
	)

	issue, err := d.svc.IssueOTP(ctx, student.ID, "dev-abc")
	require.NoError(t, err)
	assert.Len(t, issue.Code, 6)
	assert.Equal(t, 60*time.Second, issue.ExpiresIn)
	assert.Equal(t, issue.Code, saved.Code)
	assert.Equal(t, student.ID, saved.StudentID)
}

func TestIdentityService_IssueOTP_OverwritesPriorGrant(t *testing.T) {
	d := setupIdentityService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	student := activeStudent()
	reg := &ports.DeviceRegistration{DeviceKey: "dev-abc", StudentID: student.ID}

	d.studentRepo.EXPECT().GetByID(ctx, student.ID).Return(student, nil).Times(2)
	d.deviceStore.EXPECT().Get(ctx, "dev-abc").Return(reg, nil).Times(2)
	// Save is called for each issuance with the same key; the store
	// overwrites, no delete of the prior grant is needed.
	d.otpStore.EXPECT().Save(ctx, student.ExternalID, gomock.Any(), gomock.Any()).Return(nil).Times(2)

	first, err := d.svc.IssueOTP(ctx, student.ID, "dev-abc")
	require.NoError(t, err)
	second, err := d.svc.IssueOTP(ctx, student.ID, "dev-abc")
	require.NoError(t, err)
	assert.Len(t, first.Code, 6)
	assert.Len(t, second.Code, 6)
}

func TestIdentityService_IssueOTP_UnregisteredDevice(t *testing.T) {
	d := setupIdentityService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	student := activeStudent()

	d.studentRepo.EXPECT().GetByID(ctx, student.ID).Return(student, nil)
	d.deviceStore.EXPECT().Get(ctx, "unknown-device").Return(nil, nil)

	_, err := d.svc.IssueOTP(ctx, student.ID, "unknown-device")
	assertAppError(t, err, "OTP_001")
}

func TestIdentityService_IssueOTP_DeviceOfOtherStudent(t *testing.T) {
	d := setupIdentityService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	student := activeStudent()

	d.studentRepo.EXPECT().GetByID(ctx, student.ID).Return(student, nil)
	d.deviceStore.EXPECT().Get(ctx, "dev-xyz").Return(&ports.DeviceRegistration{
		DeviceKey: "dev-xyz",
		StudentID: uuid.New(),
	}, nil)

	_, err := d.svc.IssueOTP(ctx, student.ID, "dev-xyz")
	assertAppError(t, err, "OTP_001")
}

func TestIdentityService_IssueOTP_BlockedStudent(t *testing.T) {
	d := setupIdentityService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	student := activeStudent()
	student.Status = domain.StudentStatusBlocked

	d.studentRepo.EXPECT().GetByID(ctx, student.ID).Return(student, nil)

	_, err := d.svc.IssueOTP(ctx, student.ID, "dev-abc")
	assertAppError(t, err, "PAY_003")
}

func TestIdentityService_ValidateOTP_SingleUse(t *testing.T) {
	d := setupIdentityService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	studentID := uuid.New()
	grant := &ports.OTPGrant{
		Code:      "482913",
		StudentID: studentID,
		ExpiresAt: time.Now().Add(30 * time.Second),
	}

	gomock.InOrder(
		d.otpStore.EXPECT().Get(ctx, "STU-1001").Return(grant, nil),
		d.otpStore.EXPECT().Delete(ctx, "STU-1001").Return(nil),
		// Second attempt: grant already consumed
		d.otpStore.EXPECT().Get(ctx, "STU-1001").Return(nil, nil),
	)

	got, err := d.svc.ValidateOTP(ctx, "STU-1001", "482913")
	require.NoError(t, err)
	assert.Equal(t, studentID, got)

	_, err = d.svc.ValidateOTP(ctx, "STU-1001", "482913")
	assertAppError(t, err, "AUTH_001")
}

func TestIdentityService_ValidateOTP_WrongCode(t *testing.T) {
	d := setupIdentityService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	grant := &ports.OTPGrant{
		Code:      "482913",
		StudentID: uuid.New(),
		ExpiresAt: time.Now().Add(30 * time.Second),
	}

	d.otpStore.EXPECT().Get(ctx, "STU-1001").Return(grant, nil)

	_, err := d.svc.ValidateOTP(ctx, "STU-1001", "000000")
	assertAppError(t, err, "AUTH_001")
}

func TestIdentityService_ValidateOTP_ExpiredGrant(t *testing.T) {
	d := setupIdentityService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	grant := &ports.OTPGrant{
		Code:      "482913",
		StudentID: uuid.New(),
		ExpiresAt: time.Now().Add(-time.Second),
	}

	d.otpStore.EXPECT().Get(ctx, "STU-1001").Return(grant, nil)
	d.otpStore.EXPECT().Delete(ctx, "STU-1001").Return(nil)

	_, err := d.svc.ValidateOTP(ctx, "STU-1001", "482913")
	assertAppError(t, err, "AUTH_001")
}

func TestIdentityService_RegisterDevice_ConflictWithOtherStudent(t *testing.T) {
	d := setupIdentityService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	student := activeStudent()

	d.studentRepo.EXPECT().GetByID(ctx, student.ID).Return(student, nil)
	d.deviceStore.EXPECT().Get(ctx, "dev-abc").Return(&ports.DeviceRegistration{
		DeviceKey: "dev-abc",
		StudentID: uuid.New(),
	}, nil)

	err := d.svc.RegisterDevice(ctx, student.ID, "dev-abc", "phone")
	assertAppError(t, err, "WAL_004")
}

func TestIdentityService_RegisterDevice_Success(t *testing.T) {
	d := setupIdentityService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	student := activeStudent()

	d.studentRepo.EXPECT().GetByID(ctx, student.ID).Return(student, nil)
	d.deviceStore.EXPECT().Get(ctx, "dev-abc").Return(nil, nil)
	d.deviceStore.EXPECT().Register(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, reg ports.DeviceRegistration) error {
			assert.Equal(t, student.ID, reg.StudentID)
			assert.Equal(t, "dev-abc", reg.DeviceKey)
			return nil
		},
	)

	err := d.svc.RegisterDevice(ctx, student.ID, "dev-abc", "phone")
	require.NoError(t, err)
}
