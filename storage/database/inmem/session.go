package inmemdb

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/session"
)

type sessionRepository struct {
	db *DB
}

func NewSessionRepository(db *DB) session.Repository {
	return &sessionRepository{db: db}
}

func (repo *sessionRepository) CreateSession(ctx context.Context, sess session.Session) (session.Session, error) {
	err := repo.db.update(ctx, func(t *tables) error {
		if _, ok := t.schools[sess.SchoolID]; !ok {
			return school.NotFound(sess.SchoolID)
		}
		for _, s := range t.sessions {
			if s.SchoolID != sess.SchoolID {
				continue
			}
			if strings.EqualFold(s.Name, sess.Name) {
				return session.NameExists(sess.SchoolID, sess.Name)
			}
			if sess.Active && s.Active {
				return session.ActiveExists(sess.SchoolID)
			}
		}
		sess.ID = uuid.NewString()
		t.sessions[sess.ID] = sess
		return nil
	})
	return sess, err
}

func (repo *sessionRepository) GetSession(ctx context.Context, schoolID, id string) (session.Session, error) {
	var sess session.Session
	err := repo.db.view(ctx, func(t *tables) error {
		s, ok := t.sessions[id]
		if !ok || s.SchoolID != schoolID {
			return session.NotFound(schoolID, id)
		}
		sess = s
		return nil
	})
	return sess, err
}

func (repo *sessionRepository) GetActiveSession(ctx context.Context, schoolID string) (session.Session, error) {
	var sess session.Session
	err := repo.db.view(ctx, func(t *tables) error {
		for _, s := range t.sessions {
			if s.SchoolID == schoolID && s.Active {
				sess = s
				return nil
			}
		}
		return session.NoActiveSession(schoolID)
	})
	return sess, err
}

func (repo *sessionRepository) QuerySessions(ctx context.Context, schoolID string) ([]session.Session, error) {
	var sessions []session.Session
	err := repo.db.view(ctx, func(t *tables) error {
		for _, s := range t.sessions {
			if s.SchoolID == schoolID {
				sessions = append(sessions, s)
			}
		}
		return nil
	})
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].StartDate.Before(sessions[j].StartDate) })
	return sessions, err
}

func (repo *sessionRepository) SetSessionActive(ctx context.Context, schoolID, id string, active bool, updatedAt time.Time) error {
	return repo.db.update(ctx, func(t *tables) error {
		sess, ok := t.sessions[id]
		if !ok || sess.SchoolID != schoolID {
			return session.NotFound(schoolID, id)
		}
		if active {
			for _, s := range t.sessions {
				if s.SchoolID == schoolID && s.Active && s.ID != id {
					return session.ActiveExists(schoolID)
				}
			}
		}
		sess.Active = active
		sess.UpdatedAt = updatedAt
		t.sessions[id] = sess
		return nil
	})
}

func (repo *sessionRepository) DeleteSession(ctx context.Context, schoolID, id string) error {
	return repo.db.update(ctx, func(t *tables) error {
		sess, ok := t.sessions[id]
		if !ok || sess.SchoolID != schoolID {
			return session.NotFound(schoolID, id)
		}
		for _, c := range t.classes {
			if c.SessionID == id {
				return session.InUse(schoolID, id)
			}
		}
		for _, e := range t.enrollments {
			if e.SessionID == id {
				return session.InUse(schoolID, id)
			}
		}
		for _, p := range t.promotions {
			if p.FromSessionID == id || p.ToSessionID == id {
				return session.InUse(schoolID, id)
			}
		}
		delete(t.sessions, id)
		return nil
	})
}
