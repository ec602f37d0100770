package sqlxrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/session"
)

const sessionColumns = `id, school_id, name, start_date, end_date, active, created_at, updated_at`

type sessionRow struct {
	ID        string    `db:"id"`
	SchoolID  string    `db:"school_id"`
	Name      string    `db:"name"`
	StartDate time.Time `db:"start_date"`
	EndDate   time.Time `db:"end_date"`
	Active    bool      `db:"active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (r sessionRow) toSession() session.Session {
	return session.Session{
		ID:        r.ID,
		SchoolID:  r.SchoolID,
		Name:      r.Name,
		StartDate: r.StartDate.UTC(),
		EndDate:   r.EndDate.UTC(),
		Active:    r.Active,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type sessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) session.Repository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) CreateSession(ctx context.Context, sess session.Session) (session.Session, error) {
	sess.ID = uuid.NewString()
	const q = `INSERT INTO session (` + sessionColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := repo.db.exec(ctx).ExecContext(ctx, q,
		sess.ID, sess.SchoolID, sess.Name, sess.StartDate, sess.EndDate, sess.Active, sess.CreatedAt, sess.UpdatedAt)
	if err != nil {
		return session.Session{}, violation(err, "inserting session", map[string]error{
			"session_school_name_key":   session.NameExists(sess.SchoolID, sess.Name),
			"session_school_active_key": session.ActiveExists(sess.SchoolID),
			codeForeignKeyViolation:     school.NotFound(sess.SchoolID),
			codeInvalidText:             school.NotFound(sess.SchoolID),
		})
	}
	return sess, nil
}

func (repo *sessionRepository) GetSession(ctx context.Context, schoolID, id string) (session.Session, error) {
	var row sessionRow
	const q = `SELECT ` + sessionColumns + ` FROM session WHERE school_id = $1 AND id = $2`
	if err := sqlx.GetContext(ctx, repo.db.exec(ctx), &row, q, schoolID, id); err != nil {
		return session.Session{}, notFound(err, session.NotFound(schoolID, id), "selecting session")
	}
	return row.toSession(), nil
}

func (repo *sessionRepository) GetActiveSession(ctx context.Context, schoolID string) (session.Session, error) {
	var row sessionRow
	const q = `SELECT ` + sessionColumns + ` FROM session WHERE school_id = $1 AND active`
	if err := sqlx.GetContext(ctx, repo.db.exec(ctx), &row, q, schoolID); err != nil {
		return session.Session{}, notFound(err, session.NoActiveSession(schoolID), "selecting active session")
	}
	return row.toSession(), nil
}

func (repo *sessionRepository) QuerySessions(ctx context.Context, schoolID string) ([]session.Session, error) {
	var rows []sessionRow
	const q = `SELECT ` + sessionColumns + ` FROM session WHERE school_id = $1 ORDER BY start_date`
	if err := sqlx.SelectContext(ctx, repo.db.exec(ctx), &rows, q, schoolID); err != nil {
		return nil, notFound(err, school.NotFound(schoolID), "selecting sessions")
	}
	sessions := make([]session.Session, 0, len(rows))
	for _, row := range rows {
		sessions = append(sessions, row.toSession())
	}
	return sessions, nil
}

func (repo *sessionRepository) SetSessionActive(ctx context.Context, schoolID, id string, active bool, updatedAt time.Time) error {
	const q = `UPDATE session SET active = $1, updated_at = $2 WHERE school_id = $3 AND id = $4`
	res, err := repo.db.exec(ctx).ExecContext(ctx, q, active, updatedAt, schoolID, id)
	if err != nil {
		return violation(err, "updating session", map[string]error{
			"session_school_active_key": session.ActiveExists(schoolID),
			codeInvalidText:             session.NotFound(schoolID, id),
		})
	}
	return checkAffected(res, session.NotFound(schoolID, id), "updating session")
}

func (repo *sessionRepository) DeleteSession(ctx context.Context, schoolID, id string) error {
	const q = `DELETE FROM session WHERE school_id = $1 AND id = $2`
	res, err := repo.db.exec(ctx).ExecContext(ctx, q, schoolID, id)
	if err != nil {
		return violation(err, "deleting session", map[string]error{
			codeForeignKeyViolation: session.InUse(schoolID, id),
			codeInvalidText:         session.NotFound(schoolID, id),
		})
	}
	return checkAffected(res, session.NotFound(schoolID, id), "deleting session")
}
