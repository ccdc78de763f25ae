package service

import (
	"context"
	"fmt"

	"campus-wallet/internal/core/domain"
	"campus-wallet/internal/core/ports"
	"campus-wallet/pkg/apperror"

	"github.com/google/uuid"
)

// reportingService implements ports.ReportingService.
type reportingService struct {
	userRepo    ports.UserRepository
	vendorRepo  ports.VendorRepository
	studentRepo ports.StudentRepository
	walletRepo  ports.WalletRepository
	txRepo      ports.TransactionRepository
}

// NewReportingService creates a new reporting service.
func NewReportingService(
	userRepo ports.UserRepository,
	vendorRepo ports.VendorRepository,
	studentRepo ports.StudentRepository,
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
) ports.ReportingService {
	return &reportingService{
		userRepo:    userRepo,
		vendorRepo:  vendorRepo,
		studentRepo: studentRepo,
		walletRepo:  walletRepo,
		txRepo:      txRepo,
	}
}

// DashboardStats aggregates platform-wide counters for the admin dashboard.
func (s *reportingService) DashboardStats(ctx context.Context) (*ports.DashboardStats, error) {
	stats := &ports.DashboardStats{}

	guardians, err := s.userRepo.Count(ctx, domain.RoleGuardian)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("count guardians: %w", err))
	}
	vendors, err := s.userRepo.Count(ctx, domain.RoleVendor)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("count vendors: %w", err))
	}
	admins, err := s.userRepo.Count(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("count admins: %w", err))
	}
	stats.TotalGuardians = guardians
	stats.TotalUsers = guardians + vendors + admins

	students, err := s.studentRepo.ListAll(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list students: %w", err))
	}
	stats.TotalStudents = int64(len(students))
	for _, st := range students {
		if st.IsActive() {
			stats.ActiveStudents++
		} else {
			stats.BlockedStudents++
		}
	}

	vendorProfiles, err := s.vendorRepo.List(ctx, false)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list vendors: %w", err))
	}
	stats.TotalVendors = int64(len(vendorProfiles))
	for _, v := range vendorProfiles {
		if v.Approved {
			stats.ApprovedVendors++
		} else {
			stats.PendingVendors++
		}
	}

	wallets, err := s.walletRepo.Count(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("count wallets: %w", err))
	}
	stats.TotalWallets = wallets

	balance, err := s.walletRepo.TotalBalance(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("sum balances: %w", err))
	}
	stats.TotalBalance = balance

	ledger, err := s.txRepo.Stats(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("ledger stats: %w", err))
	}
	stats.Ledger = *ledger

	return stats, nil
}

// ListTransactions returns ledger entries matching the filter.
func (s *reportingService) ListTransactions(ctx context.Context, filter ports.TransactionFilter) ([]domain.Transaction, error) {
	return s.txRepo.List(ctx, filter)
}

// WalletForUser finds the wallet of a guardian or vendor account.
func (s *reportingService) WalletForUser(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	for _, kind := range []domain.WalletKind{domain.WalletKindGuardian, domain.WalletKindVendor} {
		wallet, err := s.walletRepo.GetByUser(ctx, userID, kind)
		if err != nil {
			return nil, err
		}
		if wallet != nil {
			return wallet, nil
		}
	}
	return nil, apperror.ErrNotFound("wallet")
}

// WalletHistory lists ledger entries touching the user's wallet.
func (s *reportingService) WalletHistory(ctx context.Context, userID uuid.UUID, filter ports.TransactionFilter) ([]domain.Transaction, error) {
	wallet, err := s.WalletForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	filter.WalletID = &wallet.ID
	return s.txRepo.List(ctx, filter)
}
