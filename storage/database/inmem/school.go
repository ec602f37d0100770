package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core/school"
)

type schoolRepository struct {
	db *DB
}

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateSchool(ctx context.Context, sch school.School) (school.School, error) {
	err := repo.db.update(ctx, func(t *tables) error {
		sch.ID = uuid.NewString()
		t.schools[sch.ID] = sch
		return nil
	})
	return sch, err
}

func (repo *schoolRepository) GetSchool(ctx context.Context, id string) (school.School, error) {
	var sch school.School
	err := repo.db.view(ctx, func(t *tables) error {
		var ok bool
		if sch, ok = t.schools[id]; !ok {
			return school.NotFound(id)
		}
		return nil
	})
	return sch, err
}

func (repo *schoolRepository) QuerySchools(ctx context.Context) ([]school.School, error) {
	var schools []school.School
	err := repo.db.view(ctx, func(t *tables) error {
		schools = make([]school.School, 0, len(t.schools))
		for _, sch := range t.schools {
			schools = append(schools, sch)
		}
		return nil
	})
	sort.Slice(schools, func(i, j int) bool { return schools[i].Name < schools[j].Name })
	return schools, err
}

// LockSchool only checks the school exists: transactions already hold the store's single write lock.
func (repo *schoolRepository) LockSchool(ctx context.Context, id string) error {
	return repo.db.view(ctx, func(t *tables) error {
		if _, ok := t.schools[id]; !ok {
			return school.NotFound(id)
		}
		return nil
	})
}
