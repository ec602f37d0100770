package school

import (
	"context"
	"errors"

	"github.com/kat-co/vala"

	"github.com/trezcool/academia/core"
)

var ErrNotFound = errors.New("school not found")

type (
	Repository interface {
		CreateSchool(ctx context.Context, sch School) (School, error)
		GetSchool(ctx context.Context, id string) (School, error)
		QuerySchools(ctx context.Context) ([]School, error)
		// LockSchool serializes writers on the school for the rest of the ambient transaction.
		LockSchool(ctx context.Context, id string) error
	}

	Service struct {
		repo  Repository
		clock core.Clock
	}
)

func NewService(repo Repository, clock core.Clock) *Service {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(clock, "clock"),
	).Check(); err != nil {
		panic(err)
	}
	return &Service{repo: repo, clock: clock}
}

// NotFound builds the error returned for an unknown school id.
func NotFound(id string) error {
	return core.NewError(core.KindNotFound, ErrNotFound, core.ID("school_id", id))
}

func (svc *Service) Create(ctx context.Context, ns NewSchool) (School, error) {
	if err := ns.Validate(); err != nil {
		return School{}, err
	}
	return svc.repo.CreateSchool(ctx, School{Name: ns.Name, CreatedAt: svc.clock.Now()})
}

func (svc *Service) Get(ctx context.Context, id string) (School, error) {
	return svc.repo.GetSchool(ctx, core.CleanString(id))
}

func (svc *Service) Query(ctx context.Context) ([]School, error) {
	return svc.repo.QuerySchools(ctx)
}
