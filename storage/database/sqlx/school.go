package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/school"
)

type schoolRow struct {
	ID        string    `db:"id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}

func (r schoolRow) toSchool() school.School {
	return school.School{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt.UTC()}
}

type schoolRepository struct {
	db *DB
}

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) CreateSchool(ctx context.Context, sch school.School) (school.School, error) {
	sch.ID = uuid.NewString()
	const q = `INSERT INTO school (id, name, created_at) VALUES ($1, $2, $3)`
	if _, err := repo.db.exec(ctx).ExecContext(ctx, q, sch.ID, sch.Name, sch.CreatedAt); err != nil {
		return school.School{}, errors.Wrap(err, "inserting school")
	}
	return sch, nil
}

func (repo *schoolRepository) GetSchool(ctx context.Context, id string) (school.School, error) {
	var row schoolRow
	const q = `SELECT id, name, created_at FROM school WHERE id = $1`
	if err := sqlx.GetContext(ctx, repo.db.exec(ctx), &row, q, id); err != nil {
		return school.School{}, notFound(err, school.NotFound(id), "selecting school")
	}
	return row.toSchool(), nil
}

func (repo *schoolRepository) QuerySchools(ctx context.Context) ([]school.School, error) {
	var rows []schoolRow
	const q = `SELECT id, name, created_at FROM school ORDER BY name`
	if err := sqlx.SelectContext(ctx, repo.db.exec(ctx), &rows, q); err != nil {
		return nil, errors.Wrap(err, "selecting schools")
	}
	schools := make([]school.School, 0, len(rows))
	for _, row := range rows {
		schools = append(schools, row.toSchool())
	}
	return schools, nil
}

// LockSchool row-locks the school until the ambient transaction ends.
func (repo *schoolRepository) LockSchool(ctx context.Context, id string) error {
	var locked string
	const q = `SELECT id FROM school WHERE id = $1 FOR UPDATE`
	if err := sqlx.GetContext(ctx, repo.db.exec(ctx), &locked, q, id); err != nil {
		return notFound(err, school.NotFound(id), "locking school")
	}
	return nil
}
