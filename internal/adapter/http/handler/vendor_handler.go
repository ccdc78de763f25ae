package handler

import (
	"campus-wallet/internal/adapter/http/dto"
	"campus-wallet/internal/adapter/http/middleware"
	"campus-wallet/internal/core/ports"
	"campus-wallet/pkg/apperror"
	"campus-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// VendorHandler handles the vendor terminal endpoints.
type VendorHandler struct {
	transferSvc ports.TransferService
	vendorSvc   ports.VendorService
}

// NewVendorHandler creates a new VendorHandler.
func NewVendorHandler(transferSvc ports.TransferService, vendorSvc ports.VendorService) *VendorHandler {
	return &VendorHandler{transferSvc: transferSvc, vendorSvc: vendorSvc}
}

// Charge handles POST /api/v1/vendors/charge — the vendor-initiated payment.
func (h *VendorHandler) Charge(c *gin.Context) {
	vendorUserID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.ChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	items := make([]ports.ChargeItem, 0, len(req.Items))
	for i := range req.Items {
		items = append(items, ports.ChargeItem{
			MenuItemID: req.Items[i].MenuItemID,
			Name:       req.Items[i].Name,
			Price:      req.Items[i].Price,
			Quantity:   req.Items[i].Quantity,
		})
	}

	result, err := h.transferSvc.Charge(c.Request.Context(), ports.ChargeRequest{
		VendorUserID:      vendorUserID,
		StudentExternalID: req.StudentID,
		PIN:               req.PIN,
		OTP:               req.OTP,
		Amount:            req.Amount,
		Description:       req.Description,
		Items:             items,
		ClientIP:          c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	respItems := make([]dto.ChargeItemResponse, 0, len(result.Items))
	for i := range result.Items {
		respItems = append(respItems, dto.ChargeItemResponse{
			Name:     result.Items[i].Name,
			Price:    result.Items[i].Price,
			Quantity: result.Items[i].Quantity,
		})
	}

	response.Created(c, dto.ChargeResponse{
		Transaction:   dto.FromTransaction(result.Transaction),
		StudentName:   result.StudentName,
		VendorBalance: result.VendorBalance,
		Items:         respItems,
	})
}

// Transactions handles GET /api/v1/vendors/transactions.
func (h *VendorHandler) Transactions(c *gin.Context) {
	vendorUserID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	limit := parseLimit(c, 50)
	txns, err := h.vendorSvc.Transactions(c.Request.Context(), vendorUserID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromTransactions(txns))
}

// RequestWithdrawal handles POST /api/v1/vendors/withdrawals.
func (h *VendorHandler) RequestWithdrawal(c *gin.Context) {
	vendorUserID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.WithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	txn, err := h.transferSvc.RequestWithdrawal(c.Request.Context(), vendorUserID, req.Amount, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromTransaction(txn))
}

// ApprovedDirectory handles GET /api/v1/vendors/approved — the directory a
// guardian picks allowed vendors from.
func (h *VendorHandler) ApprovedDirectory(c *gin.Context) {
	vendors, err := h.vendorSvc.List(c.Request.Context(), true)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.VendorResponse, 0, len(vendors))
	for i := range vendors {
		out = append(out, dto.FromVendor(&vendors[i]))
	}
	response.OK(c, out)
}
