package enrollment

import (
	"time"

	"github.com/trezcool/academia/core"
)

// Enrollment is the authoritative fact that a student is in a class for a session.
// There is at most one per (StudentPAN, SchoolID, SessionID).
type Enrollment struct {
	ID         string    `json:"id"`
	StudentPAN string    `json:"student_pan"`
	SchoolID   string    `json:"school_id"`
	ClassID    string    `json:"class_id"`
	SessionID  string    `json:"session_id"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

// NewEnrollment contains information needed to admit a student into a class.
type NewEnrollment struct {
	StudentPAN string `json:"student_pan" validate:"required,pan"`
	SchoolID   string `json:"school_id" validate:"required"`
	SessionID  string `json:"session_id" validate:"required"`
	ClassID    string `json:"class_id" validate:"required"`
}

func (ne *NewEnrollment) Validate() error {
	ne.StudentPAN = core.CleanString(ne.StudentPAN)
	ne.SchoolID = core.CleanString(ne.SchoolID)
	ne.SessionID = core.CleanString(ne.SessionID)
	ne.ClassID = core.CleanString(ne.ClassID)
	return core.ValidateStruct(ne)
}

// QueryFilter narrows a school's enrollments; empty fields match everything.
type QueryFilter struct {
	SessionID  string
	ClassID    string
	StudentPAN string
}
