package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"campus-wallet/internal/core/domain"
	"campus-wallet/internal/core/ports"
	"campus-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// IdentityServiceImpl validates student credentials and manages the OTP
// payment-code lifecycle. Codes are 6 digits, expire after a short TTL, are
// keyed by the student's external id and are consumed on first use. Issuing
// a new code overwrites any outstanding one.
type IdentityServiceImpl struct {
	studentRepo ports.StudentRepository
	hashSvc     ports.HashService
	otpStore    ports.OTPStore
	deviceStore ports.DeviceStore
	auditSvc    ports.AuditService
	otpTTL      time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

// NewIdentityService creates the identity service.
func NewIdentityService(
	studentRepo ports.StudentRepository,
	hashSvc ports.HashService,
	otpStore ports.OTPStore,
	deviceStore ports.DeviceStore,
	auditSvc ports.AuditService,
	otpTTL time.Duration,
	log zerolog.Logger,
) *IdentityServiceImpl {
	return &IdentityServiceImpl{
		studentRepo: studentRepo,
		hashSvc:     hashSvc,
		otpStore:    otpStore,
		deviceStore: deviceStore,
		auditSvc:    auditSvc,
		otpTTL:      otpTTL,
		now:         time.Now,
		log:         log,
	}
}

// VerifyPIN checks the supplied PIN against the student's stored hash.
func (s *IdentityServiceImpl) VerifyPIN(ctx context.Context, student *domain.Student, pin string) (bool, error) {
	match, err := s.hashSvc.Verify(pin, student.PINHash)
	if err != nil {
		return false, apperror.InternalError(err)
	}
	return match, nil
}

// RegisterDevice binds a device key to a student. Registration gates OTP
// issuance so a lost card number alone cannot be turned into a payment code.
func (s *IdentityServiceImpl) RegisterDevice(ctx context.Context, studentID uuid.UUID, deviceKey, deviceName string) error {
	student, err := s.studentRepo.GetByID(ctx, studentID)
	if err != nil {
		return err
	}

	existing, err := s.deviceStore.Get(ctx, deviceKey)
	if err != nil {
		return apperror.InternalError(err)
	}
	if existing != nil && existing.StudentID != studentID {
		return apperror.ErrConflict()
	}

	reg := ports.DeviceRegistration{
		DeviceKey:    deviceKey,
		StudentID:    studentID,
		DeviceName:   deviceName,
		RegisteredAt: s.now(),
	}
	if err := s.deviceStore.Register(ctx, reg); err != nil {
		return apperror.InternalError(err)
	}

	s.auditSvc.Log(ctx, domain.AuditActionDeviceRegistered, studentID, "student", student.ID.String(),
		map[string]interface{}{"device_name": deviceName}, "")
	return nil
}

// DeviceRegistered reports whether the student has at least one device.
func (s *IdentityServiceImpl) DeviceRegistered(ctx context.Context, studentID uuid.UUID) (bool, error) {
	ok, err := s.deviceStore.ExistsForStudent(ctx, studentID)
	if err != nil {
		return false, apperror.InternalError(err)
	}
	return ok, nil
}

// IssueOTP generates a fresh payment code for the student. The calling
// device must be registered to the student.
func (s *IdentityServiceImpl) IssueOTP(ctx context.Context, studentID uuid.UUID, deviceKey string) (*ports.OTPIssue, error) {
	student, err := s.studentRepo.GetByID(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if !student.IsActive() {
		return nil, apperror.ErrStudentBlocked()
	}

	reg, err := s.deviceStore.Get(ctx, deviceKey)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if reg == nil || reg.StudentID != studentID {
		return nil, apperror.ErrDeviceNotRegistered()
	}

	code, err := generateOTPCode()
	if err != nil {
		return nil, apperror.InternalError(err)
	}

	grant := ports.OTPGrant{
		Code:      code,
		StudentID: student.ID,
		ExpiresAt: s.now().Add(s.otpTTL),
	}
	if err := s.otpStore.Save(ctx, student.ExternalID, grant, s.otpTTL); err != nil {
		return nil, apperror.InternalError(err)
	}

	s.auditSvc.Log(ctx, domain.AuditActionOTPGenerated, studentID, "student", student.ID.String(), nil, "")

	return &ports.OTPIssue{Code: code, ExpiresIn: s.otpTTL}, nil
}

// ValidateOTP consumes a payment code. The grant is deleted on success so a
// code can never authorize two payments. Expired grants are rejected even if
// the store has not evicted them yet.
func (s *IdentityServiceImpl) ValidateOTP(ctx context.Context, externalID string, code string) (uuid.UUID, error) {
	grant, err := s.otpStore.Get(ctx, externalID)
	if err != nil {
		return uuid.Nil, apperror.InternalError(err)
	}
	if grant == nil {
		return uuid.Nil, apperror.ErrAuthenticationFailed()
	}
	if s.now().After(grant.ExpiresAt) {
		if err := s.otpStore.Delete(ctx, externalID); err != nil {
			s.log.Warn().Err(err).Msg("failed to delete expired payment code")
		}
		return uuid.Nil, apperror.ErrAuthenticationFailed()
	}
	if grant.Code != code {
		return uuid.Nil, apperror.ErrAuthenticationFailed()
	}

	if err := s.otpStore.Delete(ctx, externalID); err != nil {
		// The code matched but could not be consumed. Refuse the payment
		// rather than risk double spend of the same code.
		return uuid.Nil, apperror.InternalError(err)
	}
	return grant.StudentID, nil
}

// generateOTPCode returns a 6-digit numeric code from crypto/rand.
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", fmt.Errorf("generating otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
