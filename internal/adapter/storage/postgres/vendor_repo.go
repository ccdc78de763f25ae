package postgres

import (
	"context"
	"errors"
	"fmt"

	"campus-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// VendorRepo implements ports.VendorRepository.
type VendorRepo struct {
	pool Pool
}

// NewVendorRepo creates a new VendorRepo.
func NewVendorRepo(pool Pool) *VendorRepo {
	return &VendorRepo{pool: pool}
}

// Create inserts a new vendor profile.
func (r *VendorRepo) Create(ctx context.Context, v *domain.Vendor) error {
	query := `INSERT INTO vendors (id, user_id, store_name, approved, created_at)
		VALUES ($1, $2, $3, $4, NOW())`

	_, err := r.pool.Exec(ctx, query, v.ID, v.UserID, v.StoreName, v.Approved)
	if err != nil {
		return fmt.Errorf("insert vendor: %w", err)
	}
	return nil
}

// GetByID fetches a vendor profile by its UUID. Returns nil when absent.
func (r *VendorRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Vendor, error) {
	return r.get(ctx, `SELECT id, user_id, store_name, approved, created_at
		FROM vendors WHERE id = $1`, id)
}

// GetByUserID fetches the vendor profile of a VENDOR user. Returns nil when absent.
func (r *VendorRepo) GetByUserID(ctx context.Context, userID uuid.UUID) (*domain.Vendor, error) {
	return r.get(ctx, `SELECT id, user_id, store_name, approved, created_at
		FROM vendors WHERE user_id = $1`, userID)
}

func (r *VendorRepo) get(ctx context.Context, query string, arg any) (*domain.Vendor, error) {
	v := &domain.Vendor{}
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&v.ID, &v.UserID, &v.StoreName, &v.Approved, &v.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get vendor: %w", err)
	}
	return v, nil
}

// List returns vendor profiles, optionally only approved ones.
func (r *VendorRepo) List(ctx context.Context, approvedOnly bool) ([]domain.Vendor, error) {
	query := `SELECT id, user_id, store_name, approved, created_at FROM vendors`
	if approvedOnly {
		query += ` WHERE approved = TRUE`
	}
	query += ` ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()

	var out []domain.Vendor
	for rows.Next() {
		var v domain.Vendor
		if err := rows.Scan(&v.ID, &v.UserID, &v.StoreName, &v.Approved, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan vendor: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// SetApproved flips the approval flag.
func (r *VendorRepo) SetApproved(ctx context.Context, id uuid.UUID, approved bool) error {
	tag, err := r.pool.Exec(ctx, `UPDATE vendors SET approved = $1 WHERE id = $2`, approved, id)
	if err != nil {
		return fmt.Errorf("set vendor approved: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vendor %s not found", id)
	}
	return nil
}
