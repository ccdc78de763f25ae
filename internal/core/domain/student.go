package domain

import (
	"time"

	"github.com/google/uuid"
)

// StudentStatus represents the state of a student account.
type StudentStatus string

const (
	StudentStatusActive  StudentStatus = "ACTIVE"
	StudentStatusBlocked StudentStatus = "BLOCKED"
)

// Student is a non-authenticating principal provisioned by a guardian.
// ExternalID is the human-entered campus ID used at vendor terminals.
type Student struct {
	ID         uuid.UUID     `json:"id"`
	Name       string        `json:"name"`
	ExternalID string        `json:"student_id"`
	PINHash    string        `json:"-"` // Never expose
	GuardianID uuid.UUID     `json:"guardian_id"`
	Status     StudentStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// IsActive returns true if the student may transact.
func (s *Student) IsActive() bool {
	return s.Status == StudentStatusActive
}
