package handler

import (
	"strconv"
	"time"

	"campus-wallet/internal/adapter/http/dto"
	"campus-wallet/internal/adapter/http/middleware"
	"campus-wallet/internal/core/domain"
	"campus-wallet/internal/core/ports"
	"campus-wallet/pkg/apperror"
	"campus-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler handles the administrative endpoints.
type AdminHandler struct {
	reportingSvc ports.ReportingService
	studentSvc   ports.StudentService
	vendorSvc    ports.VendorService
	transferSvc  ports.TransferService
	auditSvc     ports.AuditService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(
	reportingSvc ports.ReportingService,
	studentSvc ports.StudentService,
	vendorSvc ports.VendorService,
	transferSvc ports.TransferService,
	auditSvc ports.AuditService,
) *AdminHandler {
	return &AdminHandler{
		reportingSvc: reportingSvc,
		studentSvc:   studentSvc,
		vendorSvc:    vendorSvc,
		transferSvc:  transferSvc,
		auditSvc:     auditSvc,
	}
}

// Stats handles GET /api/v1/admin/stats.
func (h *AdminHandler) Stats(c *gin.Context) {
	stats, err := h.reportingSvc.DashboardStats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.DashboardStatsResponse{
		TotalUsers:      stats.TotalUsers,
		TotalGuardians:  stats.TotalGuardians,
		TotalStudents:   stats.TotalStudents,
		ActiveStudents:  stats.ActiveStudents,
		BlockedStudents: stats.BlockedStudents,
		TotalVendors:    stats.TotalVendors,
		ApprovedVendors: stats.ApprovedVendors,
		PendingVendors:  stats.PendingVendors,
		TotalWallets:    stats.TotalWallets,
		TotalBalance:    stats.TotalBalance,
		Ledger: dto.LedgerStatsDTO{
			Total:       stats.Ledger.Total,
			Completed:   stats.Ledger.Completed,
			Pending:     stats.Ledger.Pending,
			Failed:      stats.Ledger.Failed,
			Volume:      stats.Ledger.Volume,
			Deposits:    stats.Ledger.Deposits,
			Transfers:   stats.Ledger.Transfers,
			Payments:    stats.Ledger.Payments,
			Withdrawals: stats.Ledger.Withdrawals,
		},
	})
}

// ListTransactions handles GET /api/v1/admin/transactions.
func (h *AdminHandler) ListTransactions(c *gin.Context) {
	filter := parseTransactionFilter(c)
	txns, err := h.reportingSvc.ListTransactions(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromTransactions(txns))
}

// ListStudents handles GET /api/v1/admin/students.
func (h *AdminHandler) ListStudents(c *gin.Context) {
	students, err := h.studentSvc.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, studentsWithBalances(students))
}

// ListVendors handles GET /api/v1/admin/vendors.
func (h *AdminHandler) ListVendors(c *gin.Context) {
	approvedOnly := c.Query("approved") == "true"
	vendors, err := h.vendorSvc.List(c.Request.Context(), approvedOnly)
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

// SetVendorApproval handles PATCH /api/v1/admin/vendors/:vendorId/approval.
func (h *AdminHandler) SetVendorApproval(c *gin.Context) {
	adminID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	vendorID, err := parseUUID(c.Param("vendorId"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid vendor id"))
		return
	}

	var req dto.SetVendorApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	vendor, err := h.vendorSvc.SetApproved(c.Request.Context(), adminID, vendorID, *req.Approved, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromVendor(vendor))
}

// Settle handles POST /api/v1/admin/withdrawals/:transactionId/settle.
func (h *AdminHandler) Settle(c *gin.Context) {
	adminID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	txnID, err := parseUUID(c.Param("transactionId"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid transaction id"))
		return
	}

	txn, err := h.transferSvc.Settle(c.Request.Context(), adminID, txnID, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromTransaction(txn))
}

// RejectWithdrawal handles POST /api/v1/admin/withdrawals/:transactionId/reject.
func (h *AdminHandler) RejectWithdrawal(c *gin.Context) {
	adminID, ok := middleware.SubjectID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	txnID, err := parseUUID(c.Param("transactionId"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid transaction id"))
		return
	}

	var req dto.RejectWithdrawalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	txn, err := h.transferSvc.RejectWithdrawal(c.Request.Context(), adminID, txnID, req.Reason, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromTransaction(txn))
}

// AuditLogs handles GET /api/v1/admin/audit-logs.
func (h *AdminHandler) AuditLogs(c *gin.Context) {
	filter := ports.AuditFilter{Limit: parseLimit(c, 100)}

	if a := c.Query("actor_id"); a != "" {
		id, err := parseUUID(a)
		if err != nil {
			response.Error(c, apperror.Validation("invalid actor id"))
			return
		}
		filter.ActorID = &id
	}
	if a := c.Query("action"); a != "" {
		action := domain.AuditAction(a)
		filter.Action = &action
	}
	if e := c.Query("entity_type"); e != "" {
		filter.EntityType = &e
	}
	if f := c.Query("from"); f != "" {
		if ts, err := time.Parse(time.RFC3339, f); err == nil {
			filter.From = &ts
		}
	}
	if t := c.Query("to"); t != "" {
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			filter.To = &ts
		}
	}

	entries, err := h.auditSvc.Query(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.AuditEntryResponse, 0, len(entries))
	for i := range entries {
		out = append(out, dto.FromAuditEntry(&entries[i]))
	}
	response.OK(c, out)
}

// ---- Shared query helpers ----

func parseUUID(raw string) (uuid.UUID, error) {
	return uuid.Parse(raw)
}

// parseLimit reads a "limit" query param clamped to [1, 200].
func parseLimit(c *gin.Context, def int) int {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(def)))
	if err != nil || limit < 1 {
		return def
	}
	if limit > 200 {
		return 200
	}
	return limit
}

// parseTransactionFilter reads the common transaction listing filters.
func parseTransactionFilter(c *gin.Context) ports.TransactionFilter {
	filter := ports.TransactionFilter{Limit: parseLimit(c, 50)}

	if s := c.Query("status"); s != "" {
		status := domain.TransactionStatus(s)
		filter.Status = &status
	}
	if t := c.Query("type"); t != "" {
		txType := domain.TransactionType(t)
		filter.Type = &txType
	}
	if f := c.Query("from"); f != "" {
		if ts, err := time.Parse(time.RFC3339, f); err == nil {
			filter.From = &ts
		}
	}
	if t := c.Query("to"); t != "" {
		if ts, err := time.Parse(time.RFC3339, t); err == nil {
			filter.To = &ts
		}
	}
	return filter
}
