package handler

import (
	"campus-wallet/internal/adapter/http/dto"
	"campus-wallet/internal/adapter/http/middleware"
	"campus-wallet/internal/core/ports"
	"campus-wallet/internal/service"
	"campus-wallet/pkg/apperror"
	"campus-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet and deposit endpoints.
type WalletHandler struct {
	transferSvc   ports.TransferService
	reportingSvc  ports.ReportingService
	sigSvc        ports.SignatureService
	gatewaySecret string
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(
	transferSvc ports.TransferService,
	reportingSvc ports.ReportingService,
	sigSvc ports.SignatureService,
	gatewaySecret string,
) *WalletHandler {
	return &WalletHandler{
		transferSvc:   transferSvc,
		reportingSvc:  reportingSvc,
		sigSvc:        sigSvc,
		gatewaySecret: gatewaySecret,
	}
}

// GetBalance handles GET /api/v1/wallets/balance.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	wallet, err := h.reportingSvc.WalletForUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		WalletID: wallet.ID.String(),
		Kind:     string(wallet.Kind),
		Balance:  wallet.Balance,
		Currency: wallet.Currency,
	})
}

// GetTransactions handles GET /api/v1/wallets/transactions.
func (h *WalletHandler) GetTransactions(c *gin.Context) {
	userID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	filter := parseTransactionFilter(c)
	txns, err := h.reportingSvc.WalletHistory(c.Request.Context(), userID, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromTransactions(txns))
}

// Deposit handles POST /api/v1/wallets/deposit — manual guardian load.
func (h *WalletHandler) Deposit(c *gin.Context) {
	userID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	txn, balance, err := h.transferSvc.Deposit(c.Request.Context(), userID, req.Amount, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.DepositResponse{
		Transaction: dto.FromTransaction(txn),
		Balance:     balance,
	})
}

// InitiateDeposit handles POST /api/v1/wallets/deposit/initiate — records a
// PENDING deposit for a gateway order reference.
func (h *WalletHandler) InitiateDeposit(c *gin.Context) {
	userID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.InitiateDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	txn, err := h.transferSvc.InitiateDeposit(c.Request.Context(), userID, req.Amount, req.Reference)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromTransaction(txn))
}

// GatewayCallback handles POST /api/v1/wallets/deposit/callback — the
// payment gateway's signed confirmation. The route is unauthenticated; the
// HMAC signature over "reference|payment_id" is the credential.
func (h *WalletHandler) GatewayCallback(c *gin.Context) {
	var req dto.GatewayCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	payload := service.GatewayConfirmationPayload(req.Reference, req.PaymentID)
	if !h.sigSvc.Verify(h.gatewaySecret, payload, req.Signature) {
		response.Error(c, apperror.ErrAuthenticationFailed())
		return
	}

	if req.Status == "FAILED" {
		if err := h.transferSvc.FailDeposit(c.Request.Context(), req.Reference, req.Reason); err != nil {
			response.Error(c, err)
			return
		}
		response.OK(c, gin.H{"reference": req.Reference, "status": "FAILED"})
		return
	}

	txn, err := h.transferSvc.ConfirmDeposit(c.Request.Context(), req.Reference, req.PaymentID, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromTransaction(txn))
}

// Transfer handles POST /api/v1/students/transfer — guardian to student.
func (h *WalletHandler) Transfer(c *gin.Context) {
	userID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	studentID, err := parseUUID(req.StudentID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid student id"))
		return
	}

	txn, balance, err := h.transferSvc.TransferToStudent(
		c.Request.Context(), userID, studentID, req.Amount, req.Description, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.DepositResponse{
		Transaction: dto.FromTransaction(txn),
		Balance:     balance,
	})
}
