package postgres

import (
	"context"
	"errors"
	"fmt"

	"campus-wallet/internal/core/domain"
	"campus-wallet/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// StudentRepo implements ports.StudentRepository.
type StudentRepo struct {
	pool Pool
}

// NewStudentRepo creates a new StudentRepo.
func NewStudentRepo(pool Pool) *StudentRepo {
	return &StudentRepo{pool: pool}
}

const studentColumns = `id, name, external_id, pin_hash, guardian_id, status, created_at, updated_at`

// Create inserts a new student inside the provisioning transaction. A
// duplicate campus ID maps to the student-id-exists error.
func (r *StudentRepo) Create(ctx context.Context, tx pgx.Tx, s *domain.Student) error {
	query := `INSERT INTO students (id, name, external_id, pin_hash, guardian_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := tx.Exec(ctx, query,
		s.ID, s.Name, s.ExternalID, s.PINHash, s.GuardianID, s.Status, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return apperror.ErrStudentIDExists()
		}
		return fmt.Errorf("insert student: %w", err)
	}
	return nil
}

// GetByID fetches a student by UUID.
func (r *StudentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Student, error) {
	return r.get(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
}

// GetByExternalID fetches a student by campus ID.
func (r *StudentRepo) GetByExternalID(ctx context.Context, externalID string) (*domain.Student, error) {
	return r.get(ctx, `SELECT `+studentColumns+` FROM students WHERE external_id = $1`, externalID)
}

func (r *StudentRepo) get(ctx context.Context, query string, arg any) (*domain.Student, error) {
	s := &domain.Student{}
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&s.ID, &s.Name, &s.ExternalID, &s.PINHash, &s.GuardianID, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrNotFound("student")
		}
		return nil, fmt.Errorf("get student: %w", err)
	}
	return s, nil
}

// ListByGuardian returns the guardian's students ordered by creation.
func (r *StudentRepo) ListByGuardian(ctx context.Context, guardianID uuid.UUID) ([]domain.Student, error) {
	return r.list(ctx, `SELECT `+studentColumns+` FROM students WHERE guardian_id = $1 ORDER BY created_at`, guardianID)
}

// ListAll returns every student.
func (r *StudentRepo) ListAll(ctx context.Context) ([]domain.Student, error) {
	return r.list(ctx, `SELECT `+studentColumns+` FROM students ORDER BY created_at`)
}

func (r *StudentRepo) list(ctx context.Context, query string, args ...any) ([]domain.Student, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	defer rows.Close()

	var out []domain.Student
	for rows.Next() {
		var s domain.Student
		if err := rows.Scan(&s.ID, &s.Name, &s.ExternalID, &s.PINHash, &s.GuardianID, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UpdatePINHash replaces the stored PIN hash.
func (r *StudentRepo) UpdatePINHash(ctx context.Context, id uuid.UUID, pinHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE students SET pin_hash = $1, updated_at = NOW() WHERE id = $2`, pinHash, id)
	if err != nil {
		return fmt.Errorf("update pin hash: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrNotFound("student")
	}
	return nil
}

// UpdateStatus sets the student ACTIVE or BLOCKED.
func (r *StudentRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.StudentStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE students SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("update student status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperror.ErrNotFound("student")
	}
	return nil
}
