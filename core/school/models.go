package school

import (
	"time"

	"github.com/trezcool/academia/core"
)

// School is the tenant root: every other entity belongs to exactly one School.
type School struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

// NewSchool contains information needed to create a new School.
type NewSchool struct {
	Name string `json:"name" validate:"required,notblank,max=160"`
}

func (ns *NewSchool) Validate() error {
	ns.Name = core.CleanString(ns.Name)
	return core.ValidateStruct(ns)
}
