package class

import (
	"time"

	"github.com/trezcool/academia/core"
)

// Class is a grade/section of a school within one session.
type Class struct {
	ID        string    `json:"id"`
	SchoolID  string    `json:"school_id"`
	SessionID string    `json:"session_id"`
	Name      string    `json:"name"` // canonical, eg. "10-A"
	Grade     string    `json:"grade"`
	Section   string    `json:"section"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewClass contains information needed to create a new Class.
type NewClass struct {
	SchoolID  string `json:"school_id" validate:"required"`
	SessionID string `json:"session_id" validate:"required"`
	Label     string `json:"label" validate:"required,notblank,max=40"`
}

func (nc *NewClass) Validate() error {
	nc.SchoolID = core.CleanString(nc.SchoolID)
	nc.SessionID = core.CleanString(nc.SessionID)
	nc.Label = core.CleanString(nc.Label)
	return core.ValidateStruct(nc)
}
