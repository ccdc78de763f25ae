package handler

import (
	"campus-wallet/internal/adapter/http/dto"
	"campus-wallet/internal/adapter/http/middleware"
	"campus-wallet/internal/core/domain"
	"campus-wallet/internal/core/ports"
	"campus-wallet/pkg/apperror"
	"campus-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StudentHandler handles guardian-facing student management and the student
// mobile device/OTP endpoints.
type StudentHandler struct {
	studentSvc  ports.StudentService
	identitySvc ports.IdentityService
}

// NewStudentHandler creates a new StudentHandler.
func NewStudentHandler(studentSvc ports.StudentService, identitySvc ports.IdentityService) *StudentHandler {
	return &StudentHandler{studentSvc: studentSvc, identitySvc: identitySvc}
}

// Create handles POST /api/v1/students.
func (h *StudentHandler) Create(c *gin.Context) {
	guardianID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	student, err := h.studentSvc.Create(c.Request.Context(), ports.CreateStudentRequest{
		GuardianID: guardianID,
		Name:       req.Name,
		ExternalID: req.StudentID,
		PIN:        req.PIN,
		ClientIP:   c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromStudent(student, decimal.Zero))
}

// ListMine handles GET /api/v1/students.
func (h *StudentHandler) ListMine(c *gin.Context) {
	guardianID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	students, err := h.studentSvc.ListByGuardian(c.Request.Context(), guardianID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, studentsWithBalances(students))
}

// UpdatePIN handles PATCH /api/v1/students/:studentId/pin.
func (h *StudentHandler) UpdatePIN(c *gin.Context) {
	guardianID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	studentID, err := parseUUID(c.Param("studentId"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid student id"))
		return
	}

	var req dto.UpdatePINRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.studentSvc.UpdatePIN(c.Request.Context(), guardianID, studentID, req.PIN, c.ClientIP()); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"updated": true})
}

// UpdateStatus handles PATCH /api/v1/students/:studentId/status.
func (h *StudentHandler) UpdateStatus(c *gin.Context) {
	guardianID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	studentID, err := parseUUID(c.Param("studentId"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid student id"))
		return
	}

	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	student, err := h.studentSvc.SetStatus(
		c.Request.Context(), guardianID, studentID, domain.StudentStatus(req.Status), c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromStudent(student, decimal.Zero))
}

// SetLimit handles PUT /api/v1/students/:studentId/limit.
func (h *StudentHandler) SetLimit(c *gin.Context) {
	guardianID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	studentID, err := parseUUID(c.Param("studentId"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid student id"))
		return
	}

	var req dto.SetSpendingLimitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	allowed := make([]uuid.UUID, 0, len(req.AllowedVendors))
	for _, raw := range req.AllowedVendors {
		id, err := parseUUID(raw)
		if err != nil {
			response.Error(c, apperror.Validation("invalid vendor id in allowed_vendors"))
			return
		}
		allowed = append(allowed, id)
	}

	rule, err := h.studentSvc.SetSpendingLimit(
		c.Request.Context(), guardianID, studentID, req.DailyLimit, allowed, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, rule)
}

// GetLimit handles GET /api/v1/students/:studentId/limit.
func (h *StudentHandler) GetLimit(c *gin.Context) {
	guardianID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	studentID, err := parseUUID(c.Param("studentId"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid student id"))
		return
	}

	status, err := h.studentSvc.GetSpendingLimit(c.Request.Context(), guardianID, studentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.SpendingLimitResponse{
		DailyLimit: status.DailyLimit,
		Active:     status.Active,
		SpentToday: status.SpentToday,
		Remaining:  status.Remaining,
	})
}

// Transactions handles GET /api/v1/students/:studentId/transactions.
func (h *StudentHandler) Transactions(c *gin.Context) {
	guardianID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	studentID, err := parseUUID(c.Param("studentId"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid student id"))
		return
	}

	limit := parseLimit(c, 50)
	txns, err := h.studentSvc.Transactions(c.Request.Context(), guardianID, studentID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromTransactions(txns))
}

// RegisterDevice handles POST /api/v1/student/device — student session only.
func (h *StudentHandler) RegisterDevice(c *gin.Context) {
	studentID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.RegisterDeviceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	if err := h.identitySvc.RegisterDevice(c.Request.Context(), studentID, req.DeviceKey, req.DeviceName); err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, gin.H{"registered": true})
}

// VerifyDevice handles GET /api/v1/student/device.
func (h *StudentHandler) VerifyDevice(c *gin.Context) {
	studentID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	registered, err := h.identitySvc.DeviceRegistered(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"registered": registered})
}

// IssueOTP handles POST /api/v1/student/otp.
func (h *StudentHandler) IssueOTP(c *gin.Context) {
	studentID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.IssueOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	issue, err := h.identitySvc.IssueOTP(c.Request.Context(), studentID, req.DeviceKey)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.OTPResponse{
		Code:      issue.Code,
		ExpiresIn: int64(issue.ExpiresIn.Seconds()),
	})
}

func studentsWithBalances(students []ports.StudentWithBalance) []dto.StudentResponse {
	out := make([]dto.StudentResponse, 0, len(students))
	for i := range students {
		out = append(out, dto.FromStudent(&students[i].Student, students[i].Balance))
	}
	return out
}
