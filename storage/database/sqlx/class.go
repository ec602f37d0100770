package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/session"
)

const classColumns = `id, school_id, session_id, name, grade, section, created_at`

type classRow struct {
	ID        string    `db:"id"`
	SchoolID  string    `db:"school_id"`
	SessionID string    `db:"session_id"`
	Name      string    `db:"name"`
	Grade     string    `db:"grade"`
	Section   string    `db:"section"`
	CreatedAt time.Time `db:"created_at"`
}

func (r classRow) toClass() class.Class {
	return class.Class{
		ID:        r.ID,
		SchoolID:  r.SchoolID,
		SessionID: r.SessionID,
		Name:      r.Name,
		Grade:     r.Grade,
		Section:   r.Section,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

type classRepository struct {
	db *DB
}

func NewClassRepository(db *DB) class.Repository {
	return &classRepository{db: db}
}

func (repo *classRepository) CreateClass(ctx context.Context, cls class.Class) (class.Class, error) {
	cls.ID = uuid.NewString()
	const q = `INSERT INTO class (` + classColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := repo.db.exec(ctx).ExecContext(ctx, q,
		cls.ID, cls.SchoolID, cls.SessionID, cls.Name, cls.Grade, cls.Section, cls.CreatedAt)
	if err != nil {
		return class.Class{}, violation(err, "inserting class", map[string]error{
			"class_school_session_name_key": class.NameExists(cls.SchoolID, cls.SessionID, cls.Name),
			codeForeignKeyViolation:         session.NotFound(cls.SchoolID, cls.SessionID),
			codeInvalidText:                 session.NotFound(cls.SchoolID, cls.SessionID),
		})
	}
	return cls, nil
}

func (repo *classRepository) GetClass(ctx context.Context, schoolID, id string) (class.Class, error) {
	var row classRow
	const q = `SELECT ` + classColumns + ` FROM class WHERE school_id = $1 AND id = $2`
	if err := sqlx.GetContext(ctx, repo.db.exec(ctx), &row, q, schoolID, id); err != nil {
		return class.Class{}, notFound(err, class.NotFound(schoolID, id), "selecting class")
	}
	return row.toClass(), nil
}

func (repo *classRepository) GetClassByName(ctx context.Context, schoolID, sessionID, name string) (class.Class, error) {
	var row classRow
	const q = `SELECT ` + classColumns + ` FROM class WHERE school_id = $1 AND session_id = $2 AND lower(name) = lower($3)`
	if err := sqlx.GetContext(ctx, repo.db.exec(ctx), &row, q, schoolID, sessionID, name); err != nil {
		return class.Class{}, notFound(err, class.NotFound(schoolID, name), "selecting class by name")
	}
	return row.toClass(), nil
}

func (repo *classRepository) QueryClasses(ctx context.Context, schoolID, sessionID string) ([]class.Class, error) {
	var rows []classRow
	const q = `SELECT ` + classColumns + ` FROM class WHERE school_id = $1 AND session_id = $2 ORDER BY name`
	if err := sqlx.SelectContext(ctx, repo.db.exec(ctx), &rows, q, schoolID, sessionID); err != nil {
		return nil, notFound(err, session.NotFound(schoolID, sessionID), "selecting classes")
	}
	classes := make([]class.Class, 0, len(rows))
	for _, row := range rows {
		classes = append(classes, row.toClass())
	}
	return classes, nil
}

func (repo *classRepository) DeleteClass(ctx context.Context, schoolID, id string) error {
	const q = `DELETE FROM class WHERE school_id = $1 AND id = $2`
	res, err := repo.db.exec(ctx).ExecContext(ctx, q, schoolID, id)
	if err != nil {
		return violation(err, "deleting class", map[string]error{
			codeForeignKeyViolation: class.InUse(schoolID, id),
			codeInvalidText:         class.NotFound(schoolID, id),
		})
	}
	return checkAffected(res, class.NotFound(schoolID, id), "deleting class")
}
