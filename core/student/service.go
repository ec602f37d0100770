package student

import (
	"context"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

var (
	// errors
	ErrNotFound      = errors.New("student not found")
	ErrPANExists     = errors.New("a student with this PAN already exists")
	ErrInvalidStatus = errors.New("invalid student status")
)

type (
	Repository interface {
		CreateStudent(ctx context.Context, std Student) (Student, error)
		// GetStudent looks the student up by PAN, whatever its school.
		GetStudent(ctx context.Context, pan string) (Student, error)
		QueryStudents(ctx context.Context, schoolID string, filter QueryFilter) ([]Student, error)
		UpdateStudentStatus(ctx context.Context, pan string, status Status, updatedAt time.Time) error
	}

	Service struct {
		tx    core.Transactor
		repo  Repository
		clock core.Clock
	}
)

func NewService(tx core.Transactor, repo Repository, clock core.Clock) *Service {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(clock, "clock"),
	).Check(); err != nil {
		panic(err)
	}
	return &Service{tx: tx, repo: repo, clock: clock}
}

func NotFound(pan string) error {
	return core.NewError(core.KindNotFound, ErrNotFound, core.ID("student_pan", pan))
}

func PANExists(pan string) error {
	return core.NewError(core.KindAlreadyExists, ErrPANExists, core.ID("student_pan", pan))
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if err := ns.Validate(); err != nil {
		return Student{}, err
	}
	now := svc.clock.Now()
	return svc.repo.CreateStudent(ctx, Student{
		PAN:       ns.PAN,
		SchoolID:  ns.SchoolID,
		Name:      ns.Name,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

// Get returns the student of the school; students of other schools are not found.
func (svc *Service) Get(ctx context.Context, schoolID, pan string) (Student, error) {
	schoolID, pan = core.CleanString(schoolID), core.CleanString(pan)
	std, err := svc.repo.GetStudent(ctx, pan)
	if err != nil {
		return Student{}, err
	}
	if std.SchoolID != schoolID {
		return Student{}, NotFound(pan)
	}
	return std, nil
}

func (svc *Service) Query(ctx context.Context, schoolID string, filter QueryFilter) ([]Student, error) {
	filter.Search = core.CleanString(filter.Search, true)
	return svc.repo.QueryStudents(ctx, core.CleanString(schoolID), filter)
}

func (svc *Service) SetStatus(ctx context.Context, schoolID, pan string, status Status) (Student, error) {
	if !status.Valid() {
		return Student{}, core.NewError(core.KindInvalidInput, ErrInvalidStatus, core.ID("status", string(status)))
	}

	var std Student
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if std, err = svc.Get(ctx, schoolID, pan); err != nil {
			return err
		}
		std.Status = status
		std.UpdatedAt = svc.clock.Now()
		return svc.repo.UpdateStudentStatus(ctx, std.PAN, status, std.UpdatedAt)
	})
	if err != nil {
		return Student{}, err
	}
	return std, nil
}
