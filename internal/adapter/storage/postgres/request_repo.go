package postgres

import (
	"context"
	"errors"
	"fmt"

	"campus-wallet/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// RequestRepo implements ports.RequestRepository.
type RequestRepo struct {
	pool Pool
}

// NewRequestRepo creates a new RequestRepo.
func NewRequestRepo(pool Pool) *RequestRepo {
	return &RequestRepo{pool: pool}
}

const requestColumns = `id, student_id, amount, reason, status, reviewed_by, created_at, updated_at`

// Create inserts a new money request.
func (r *RequestRepo) Create(ctx context.Context, req *domain.MoneyRequest) error {
	query := `INSERT INTO money_requests (id, student_id, amount, reason, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		req.ID, req.StudentID, req.Amount, req.Reason, req.Status, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert money request: %w", err)
	}
	return nil
}

// GetByID fetches a money request. Returns nil when absent.
func (r *RequestRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.MoneyRequest, error) {
	req := &domain.MoneyRequest{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM money_requests WHERE id = $1`, id).Scan(
		&req.ID, &req.StudentID, &req.Amount, &req.Reason, &req.Status,
		&req.ReviewedBy, &req.CreatedAt, &req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get money request: %w", err)
	}
	return req, nil
}

// Resolve flips a PENDING request to a terminal status. Reports false when
// the row was already resolved, which is how concurrent approvals lose.
func (r *RequestRepo) Resolve(ctx context.Context, tx pgx.Tx, id uuid.UUID, status domain.RequestStatus, reviewerID uuid.UUID) (bool, error) {
	query := `UPDATE money_requests
		SET status = $1, reviewed_by = $2, updated_at = NOW()
		WHERE id = $3 AND status = 'PENDING'`

	tag, err := tx.Exec(ctx, query, status, reviewerID, id)
	if err != nil {
		return false, fmt.Errorf("resolve money request: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListByStudent returns the student's requests, newest first.
func (r *RequestRepo) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]domain.MoneyRequest, error) {
	return r.list(ctx,
		`SELECT `+requestColumns+` FROM money_requests WHERE student_id = $1 ORDER BY created_at DESC`,
		studentID)
}

// ListByGuardian returns requests from every student of the guardian,
// newest first.
func (r *RequestRepo) ListByGuardian(ctx context.Context, guardianID uuid.UUID) ([]domain.MoneyRequest, error) {
	return r.list(ctx,
		`SELECT r.id, r.student_id, r.amount, r.reason, r.status, r.reviewed_by, r.created_at, r.updated_at
		FROM money_requests r JOIN students s ON s.id = r.student_id
		WHERE s.guardian_id = $1 ORDER BY r.created_at DESC`,
		guardianID)
}

func (r *RequestRepo) list(ctx context.Context, query string, args ...any) ([]domain.MoneyRequest, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list money requests: %w", err)
	}
	defer rows.Close()

	var out []domain.MoneyRequest
	for rows.Next() {
		var req domain.MoneyRequest
		if err := rows.Scan(
			&req.ID, &req.StudentID, &req.Amount, &req.Reason, &req.Status,
			&req.ReviewedBy, &req.CreatedAt, &req.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan money request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
