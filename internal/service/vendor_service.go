package service

import (
	"context"
	"fmt"

	"campus-wallet/internal/core/domain"
	"campus-wallet/internal/core/ports"
	"campus-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// vendorService implements ports.VendorService.
type vendorService struct {
	vendorRepo ports.VendorRepository
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	auditSvc   ports.AuditService
	log        zerolog.Logger
}

// NewVendorService creates a new vendor service.
func NewVendorService(
	vendorRepo ports.VendorRepository,
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	auditSvc ports.AuditService,
	log zerolog.Logger,
) ports.VendorService {
	return &vendorService{
		vendorRepo: vendorRepo,
		walletRepo: walletRepo,
		txRepo:     txRepo,
		auditSvc:   auditSvc,
		log:        log,
	}
}

// List returns vendor profiles, optionally only approved ones.
func (s *vendorService) List(ctx context.Context, approvedOnly bool) ([]domain.Vendor, error) {
	return s.vendorRepo.List(ctx, approvedOnly)
}

// SetApproved flips the vendor approval gate. Only admins reach this path;
// the handler enforces the role.
func (s *vendorService) SetApproved(ctx context.Context, adminID, vendorID uuid.UUID, approved bool, clientIP string) (*domain.Vendor, error) {
	vendor, err := s.vendorRepo.GetByID(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if vendor == nil {
		return nil, apperror.ErrNotFound("vendor")
	}

	if vendor.Approved != approved {
		if err := s.vendorRepo.SetApproved(ctx, vendorID, approved); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("set approved: %w", err))
		}
		vendor.Approved = approved
	}

	s.auditSvc.Log(ctx, domain.AuditActionVendorApproved, adminID, "vendor", vendorID.String(),
		map[string]interface{}{"approved": approved, "store_name": vendor.StoreName}, clientIP)

	s.log.Info().
		Str("vendor_id", vendorID.String()).
		Bool("approved", approved).
		Msg("vendor approval updated")

	return vendor, nil
}

// Transactions lists the vendor wallet's recent ledger entries.
func (s *vendorService) Transactions(ctx context.Context, vendorUserID uuid.UUID, limit int) ([]domain.Transaction, error) {
	wallet, err := s.walletRepo.GetByUser(ctx, vendorUserID, domain.WalletKindVendor)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("vendor wallet")
	}
	return s.txRepo.List(ctx, ports.TransactionFilter{WalletID: &wallet.ID, Limit: limit})
}
