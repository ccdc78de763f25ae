package handler

import (
	"campus-wallet/internal/adapter/http/dto"
	"campus-wallet/internal/adapter/http/middleware"
	"campus-wallet/internal/core/domain"
	"campus-wallet/internal/core/ports"
	"campus-wallet/pkg/apperror"
	"campus-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// RequestHandler handles the money-request workflow endpoints.
type RequestHandler struct {
	requestSvc ports.RequestService
}

// NewRequestHandler creates a new RequestHandler.
func NewRequestHandler(requestSvc ports.RequestService) *RequestHandler {
	return &RequestHandler{requestSvc: requestSvc}
}

// Create handles POST /api/v1/requests — student asks for funds.
func (h *RequestHandler) Create(c *gin.Context) {
	studentID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.CreateMoneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	request, err := h.requestSvc.Create(c.Request.Context(), studentID, req.Amount, req.Reason)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromMoneyRequest(request))
}

// List handles GET /api/v1/requests — scoped by the caller's role.
func (h *RequestHandler) List(c *gin.Context) {
	subjectID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	role, _ := c.Get(middleware.CtxRole)
	var (
		requests []domain.MoneyRequest
		err      error
	)
	if role == domain.RoleStudent {
		requests, err = h.requestSvc.ListForStudent(c.Request.Context(), subjectID)
	} else {
		requests, err = h.requestSvc.ListForGuardian(c.Request.Context(), subjectID)
	}
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromMoneyRequests(requests))
}

// Approve handles POST /api/v1/requests/:requestId/approve.
func (h *RequestHandler) Approve(c *gin.Context) {
	guardianID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	requestID, err := parseUUID(c.Param("requestId"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid request id"))
		return
	}

	request, err := h.requestSvc.Approve(c.Request.Context(), requestID, guardianID, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromMoneyRequest(request))
}

// Reject handles POST /api/v1/requests/:requestId/reject.
func (h *RequestHandler) Reject(c *gin.Context) {
	guardianID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	requestID, err := parseUUID(c.Param("requestId"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid request id"))
		return
	}

	request, err := h.requestSvc.Reject(c.Request.Context(), requestID, guardianID, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromMoneyRequest(request))
}
