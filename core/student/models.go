package student

import (
	"time"

	"github.com/trezcool/academia/core"
)

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusGraduated Status = "GRADUATED"
	StatusInactive  Status = "INACTIVE"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusGraduated, StatusInactive:
		return true
	}
	return false
}

// Student is identified by its PAN. Its current class is not stored here: it is the
// class of its enrollment in the school's active session.
type Student struct {
	PAN       string    `json:"pan"`
	SchoolID  string    `json:"school_id"`
	Name      string    `json:"name"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	PAN      string `json:"pan" validate:"required,pan,max=32"`
	SchoolID string `json:"school_id" validate:"required"`
	Name     string `json:"name" validate:"required,notblank,max=160"`
}

func (ns *NewStudent) Validate() error {
	ns.PAN = core.CleanString(ns.PAN)
	ns.SchoolID = core.CleanString(ns.SchoolID)
	ns.Name = core.CleanString(ns.Name)
	return core.ValidateStruct(ns)
}

type QueryFilter struct {
	Status Status
	Search string // case-insensitive, on PAN and name
}
