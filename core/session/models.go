package session

import (
	"time"

	"github.com/trezcool/academia/core"
)

// Session is an academic period of a school. At most one Session per school is Active.
type Session struct {
	ID        string    `json:"id"`
	SchoolID  string    `json:"school_id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// Overlaps reports whether [start, end] intersects the session's date range (bounds included).
func (s Session) Overlaps(start, end time.Time) bool {
	return !start.After(s.EndDate) && !s.StartDate.After(end)
}

// NewSession contains information needed to create a new Session.
type NewSession struct {
	SchoolID  string    `json:"school_id" validate:"required"`
	Name      string    `json:"name" validate:"required,notblank,max=80"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtefield=StartDate"`
	Active    bool      `json:"active"`
}

func (ns *NewSession) Validate() error {
	ns.SchoolID = core.CleanString(ns.SchoolID)
	ns.Name = core.CleanString(ns.Name)
	ns.StartDate = truncateDate(ns.StartDate)
	ns.EndDate = truncateDate(ns.EndDate)
	return core.ValidateStruct(ns)
}

// truncateDate drops the time of day; sessions are day-granular.
func truncateDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
