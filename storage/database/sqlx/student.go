package sqlxrepos

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/student"
)

const studentColumns = `pan, school_id, name, status, created_at, updated_at`

type studentRow struct {
	PAN       string    `db:"pan"`
	SchoolID  string    `db:"school_id"`
	Name      string    `db:"name"`
	Status    string    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r studentRow) toStudent() student.Student {
	return student.Student{
		PAN:       r.PAN,
		SchoolID:  r.SchoolID,
		Name:      r.Name,
		Status:    student.Status(r.Status),
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type studentRepository struct {
	db *DB
}

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	const q = `INSERT INTO student (` + studentColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.db.exec(ctx).ExecContext(ctx, q,
		std.PAN, std.SchoolID, std.Name, string(std.Status), std.CreatedAt, std.UpdatedAt)
	if err != nil {
		return student.Student{}, violation(err, "inserting student", map[string]error{
			"student_pkey":          student.PANExists(std.PAN),
			codeForeignKeyViolation: school.NotFound(std.SchoolID),
			codeInvalidText:         school.NotFound(std.SchoolID),
		})
	}
	return std, nil
}

func (repo *studentRepository) GetStudent(ctx context.Context, pan string) (student.Student, error) {
	var row studentRow
	const q = `SELECT ` + studentColumns + ` FROM student WHERE pan = $1`
	if err := sqlx.GetContext(ctx, repo.db.exec(ctx), &row, q, pan); err != nil {
		return student.Student{}, notFound(err, student.NotFound(pan), "selecting student")
	}
	return row.toStudent(), nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, schoolID string, filter student.QueryFilter) ([]student.Student, error) {
	where := []string{"school_id = $1"}
	args := []interface{}{schoolID}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, "status = $"+strconv.Itoa(len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		n := strconv.Itoa(len(args))
		where = append(where, "(lower(pan) LIKE $"+n+" OR lower(name) LIKE $"+n+")")
	}
	q := `SELECT ` + studentColumns + ` FROM student WHERE ` + strings.Join(where, " AND ") + ` ORDER BY pan`

	var rows []studentRow
	if err := sqlx.SelectContext(ctx, repo.db.exec(ctx), &rows, q, args...); err != nil {
		return nil, notFound(err, school.NotFound(schoolID), "selecting students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		students = append(students, row.toStudent())
	}
	return students, nil
}

func (repo *studentRepository) UpdateStudentStatus(ctx context.Context, pan string, status student.Status, updatedAt time.Time) error {
	const q = `UPDATE student SET status = $1, updated_at = $2 WHERE pan = $3`
	res, err := repo.db.exec(ctx).ExecContext(ctx, q, string(status), updatedAt, pan)
	if err != nil {
		return errors.Wrap(err, "updating student status")
	}
	return checkAffected(res, student.NotFound(pan), "updating student status")
}
