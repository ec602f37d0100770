package promotion

import (
	"strings"
	"time"

	"github.com/trezcool/academia/core"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPromoted  Status = "PROMOTED"
	StatusGraduated Status = "GRADUATED"
	StatusDetained  Status = "DETAINED"
)

// Terminal reports whether the decision was executed. Terminal decisions are never changed again.
func (s Status) Terminal() bool {
	return s == StatusPromoted || s == StatusGraduated || s == StatusDetained
}

func (s Status) Valid() bool {
	return s == StatusPending || s.Terminal()
}

// Promotion is a teacher's decision about a student at the end of FromSessionID, and its outcome.
// There is at most one per (StudentPAN, FromSessionID, SchoolID).
type Promotion struct {
	ID            string     `json:"id"`
	StudentPAN    string     `json:"student_pan"`
	SchoolID      string     `json:"school_id"`
	FromClassID   string     `json:"from_class_id"`
	FromSessionID string     `json:"from_session_id"`
	ToClassID     string     `json:"to_class_id,omitempty"`   // empty until decided
	ToSessionID   string     `json:"to_session_id,omitempty"` // session of ToClassID, or of the run that graduated the student
	AssignedBy    string     `json:"assigned_by"`
	Status        Status     `json:"status"`
	Remarks       string     `json:"remarks"`
	IsGraduated   bool       `json:"is_graduated"`
	IsDetained    bool       `json:"is_detained"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"` // UTC
	CreatedAt     time.Time  `json:"created_at"`             // UTC
	UpdatedAt     time.Time  `json:"updated_at"`             // UTC
}

// Outcome is the terminal status execution gives the decision.
func (p Promotion) Outcome() Status {
	switch {
	case p.IsGraduated:
		return StatusGraduated
	case p.IsDetained:
		return StatusDetained
	default:
		return StatusPromoted
	}
}

// NewPromotion contains information needed to record a promotion decision.
type NewPromotion struct {
	StudentPAN    string `json:"student_pan" validate:"required,pan"`
	SchoolID      string `json:"school_id" validate:"required"`
	FromSessionID string `json:"from_session_id" validate:"required"`
	ToClassID     string `json:"to_class_id"`
	Remarks       string `json:"remarks" validate:"max=500"`
	IsGraduated   bool   `json:"is_graduated"`
	IsDetained    bool   `json:"is_detained"`
}

func (np *NewPromotion) Validate() error {
	np.StudentPAN = core.CleanString(np.StudentPAN)
	np.SchoolID = core.CleanString(np.SchoolID)
	np.FromSessionID = core.CleanString(np.FromSessionID)
	np.ToClassID = core.CleanString(np.ToClassID)
	np.Remarks = core.CleanString(np.Remarks)
	if err := core.ValidateStruct(np); err != nil {
		return err
	}
	return validateOutcome(np.ToClassID, np.IsGraduated, np.IsDetained)
}

// UpdatePromotion holds the decision fields to change; nil fields are left untouched.
type UpdatePromotion struct {
	ToClassID   *string `json:"to_class_id"`
	Remarks     *string `json:"remarks" validate:"omitempty,max=500"`
	IsGraduated *bool   `json:"is_graduated"`
	IsDetained  *bool   `json:"is_detained"`
}

// apply copies the set fields onto p and validates the resulting decision.
func (up UpdatePromotion) apply(p *Promotion) error {
	if up.ToClassID != nil {
		p.ToClassID = core.CleanString(*up.ToClassID)
	}
	if up.Remarks != nil {
		p.Remarks = core.CleanString(*up.Remarks)
	}
	if up.IsGraduated != nil {
		p.IsGraduated = *up.IsGraduated
	}
	if up.IsDetained != nil {
		p.IsDetained = *up.IsDetained
	}
	if err := core.ValidateStruct(up); err != nil {
		return err
	}
	return validateOutcome(p.ToClassID, p.IsGraduated, p.IsDetained)
}

// validateOutcome checks the decision is coherent: a graduate has no target class and is not detained.
func validateOutcome(toClassID string, graduated, detained bool) error {
	var flds []core.FieldError
	if graduated && toClassID != "" {
		flds = append(flds, core.FieldError{Field: "to_class_id", Error: "a graduating student cannot have a target class"})
	}
	if graduated && detained {
		flds = append(flds, core.FieldError{Field: "is_detained", Error: "a graduating student cannot be detained"})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}

// QueryFilter narrows a school's decisions; empty fields match everything.
type QueryFilter struct {
	FromSessionID string
	StudentPAN    string
	Status        Status
}

// Failure is a decision execution could not apply.
type Failure struct {
	PromotionID string    `json:"promotion_id"`
	StudentPAN  string    `json:"student_pan"`
	Kind        core.Kind `json:"kind"`
	Reason      string    `json:"reason"`
}

// Report summarizes one execution run.
type Report struct {
	SchoolID         string    `json:"school_id"`
	FromSessionID    string    `json:"from_session_id"`
	ToSessionID      string    `json:"to_session_id"`
	Promoted         int       `json:"promoted"`
	Graduated        int       `json:"graduated"`
	Detained         int       `json:"detained"`
	Skipped          int       `json:"skipped"`           // already done
	MissingDecisions []string  `json:"missing_decisions"` // PANs
	Failures         []Failure `json:"failures"`
	StartedAt        time.Time `json:"started_at"`
	ProcessedAt      time.Time `json:"processed_at"`
}

// Processed is the number of decisions this run turned terminal.
func (r Report) Processed() int {
	return r.Promoted + r.Graduated + r.Detained
}

// MissingDecisionError returns the MissingDecision warning of the run, or nil when every enrolled student was decided.
func (r Report) MissingDecisionError() error {
	if len(r.MissingDecisions) == 0 {
		return nil
	}
	return core.NewError(core.KindMissingDecision, ErrMissingDecision,
		core.ID("school_id", r.SchoolID),
		core.ID("session_id", r.FromSessionID),
		core.ID("student_pans", strings.Join(r.MissingDecisions, ",")))
}
