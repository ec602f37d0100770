package sqlxrepos

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/enrollment"
)

const enrollmentColumns = `id, student_pan, school_id, class_id, session_id, created_at`

type enrollmentRow struct {
	ID         string    `db:"id"`
	StudentPAN string    `db:"student_pan"`
	SchoolID   string    `db:"school_id"`
	ClassID    string    `db:"class_id"`
	SessionID  string    `db:"session_id"`
	CreatedAt  time.Time `db:"created_at"`
}

func (r enrollmentRow) toEnrollment() enrollment.Enrollment {
	return enrollment.Enrollment{
		ID:         r.ID,
		StudentPAN: r.StudentPAN,
		SchoolID:   r.SchoolID,
		ClassID:    r.ClassID,
		SessionID:  r.SessionID,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

type enrollmentRepository struct {
	db *DB
}

func NewEnrollmentRepository(db *DB) enrollment.Repository {
	return &enrollmentRepository{db: db}
}

func (repo *enrollmentRepository) CreateEnrollment(ctx context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	enr.ID = uuid.NewString()
	const q = `INSERT INTO enrollment (` + enrollmentColumns + `) VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := repo.db.exec(ctx).ExecContext(ctx, q,
		enr.ID, enr.StudentPAN, enr.SchoolID, enr.ClassID, enr.SessionID, enr.CreatedAt)
	if err != nil {
		return enrollment.Enrollment{}, violation(err, "inserting enrollment", map[string]error{
			"enrollment_student_school_session_key": enrollment.Duplicate(enr.SchoolID, enr.SessionID, enr.StudentPAN),
			"enrollment_class_id_fkey":              class.NotFound(enr.SchoolID, enr.ClassID),
			codeInvalidText:                         class.NotFound(enr.SchoolID, enr.ClassID),
		})
	}
	return enr, nil
}

func (repo *enrollmentRepository) GetEnrollment(ctx context.Context, schoolID, id string) (enrollment.Enrollment, error) {
	var row enrollmentRow
	const q = `SELECT ` + enrollmentColumns + ` FROM enrollment WHERE school_id = $1 AND id = $2`
	if err := sqlx.GetContext(ctx, repo.db.exec(ctx), &row, q, schoolID, id); err != nil {
		return enrollment.Enrollment{}, notFound(err, enrollment.IDNotFound(schoolID, id), "selecting enrollment")
	}
	return row.toEnrollment(), nil
}

func (repo *enrollmentRepository) FindEnrollment(ctx context.Context, schoolID, sessionID, pan string) (enrollment.Enrollment, error) {
	var row enrollmentRow
	const q = `SELECT ` + enrollmentColumns + ` FROM enrollment WHERE school_id = $1 AND session_id = $2 AND student_pan = $3`
	if err := sqlx.GetContext(ctx, repo.db.exec(ctx), &row, q, schoolID, sessionID, pan); err != nil {
		return enrollment.Enrollment{}, notFound(err, enrollment.NotFound(schoolID, sessionID, pan), "selecting enrollment")
	}
	return row.toEnrollment(), nil
}

func (repo *enrollmentRepository) QueryEnrollments(ctx context.Context, schoolID string, filter enrollment.QueryFilter) ([]enrollment.Enrollment, error) {
	where := []string{"school_id = $1"}
	args := []interface{}{schoolID}
	for col, val := range map[string]string{
		"session_id":  filter.SessionID,
		"class_id":    filter.ClassID,
		"student_pan": filter.StudentPAN,
	} {
		if val != "" {
			args = append(args, val)
			where = append(where, col+" = $"+strconv.Itoa(len(args)))
		}
	}
	q := `SELECT ` + enrollmentColumns + ` FROM enrollment WHERE ` + strings.Join(where, " AND ") + ` ORDER BY student_pan, created_at`

	var rows []enrollmentRow
	if err := sqlx.SelectContext(ctx, repo.db.exec(ctx), &rows, q, args...); err != nil {
		if pqErr, ok := pqError(err); ok && pqErr.Code == codeInvalidText {
			return []enrollment.Enrollment{}, nil // a malformed id matches nothing
		}
		return nil, errors.Wrap(err, "selecting enrollments")
	}
	enrs := make([]enrollment.Enrollment, 0, len(rows))
	for _, row := range rows {
		enrs = append(enrs, row.toEnrollment())
	}
	return enrs, nil
}

// DeleteEnrollment refuses to delete an enrollment a promotion decision was made on.
func (repo *enrollmentRepository) DeleteEnrollment(ctx context.Context, schoolID, id string) error {
	enr, err := repo.GetEnrollment(ctx, schoolID, id)
	if err != nil {
		return err
	}

	var decided bool
	const check = `SELECT EXISTS (
		SELECT 1 FROM promotion WHERE school_id = $1 AND student_pan = $2 AND from_session_id = $3
	)`
	if err = sqlx.GetContext(ctx, repo.db.exec(ctx), &decided, check, schoolID, enr.StudentPAN, enr.SessionID); err != nil {
		return errors.Wrap(err, "checking enrollment decisions")
	}
	if decided {
		return enrollment.InUse(schoolID, id)
	}

	const q = `DELETE FROM enrollment WHERE school_id = $1 AND id = $2`
	res, err := repo.db.exec(ctx).ExecContext(ctx, q, schoolID, id)
	if err != nil {
		return errors.Wrap(err, "deleting enrollment")
	}
	return checkAffected(res, enrollment.IDNotFound(schoolID, id), "deleting enrollment")
}
