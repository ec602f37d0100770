package session

import (
	"context"
	"strings"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/school"
)

var (
	// errors
	ErrNotFound         = errors.New("session not found")
	ErrNoActiveSession  = errors.New("school has no active session")
	ErrNameExists       = errors.New("a session with this name already exists")
	ErrOverlappingRange = errors.New("session dates overlap an existing session")
	ErrInUse            = errors.New("session is still referenced by classes, enrollments or promotions")
	ErrActiveExists     = errors.New("school already has an active session")
)

type (
	Repository interface {
		CreateSession(ctx context.Context, sess Session) (Session, error)
		GetSession(ctx context.Context, schoolID, id string) (Session, error)
		GetActiveSession(ctx context.Context, schoolID string) (Session, error)
		// QuerySessions returns the school's sessions ordered by StartDate.
		QuerySessions(ctx context.Context, schoolID string) ([]Session, error)
		SetSessionActive(ctx context.Context, schoolID, id string, active bool, updatedAt time.Time) error
		// DeleteSession fails with ErrInUse while anything references the session.
		DeleteSession(ctx context.Context, schoolID, id string) error
	}

	// Service is the session registry: it owns the lifecycle of a school's sessions
	// and guarantees that at most one of them is active.
	Service struct {
		tx      core.Transactor
		schools school.Repository
		repo    Repository
		locker  core.Locker
		clock   core.Clock
		logger  core.Logger
	}
)

func NewService(
	tx core.Transactor,
	schools school.Repository,
	repo Repository,
	locker core.Locker,
	clock core.Clock,
	logger core.Logger,
) *Service {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(schools, "schools"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(locker, "locker"),
		vala.IsNotNil(clock, "clock"),
		vala.IsNotNil(logger, "logger"),
	).Check(); err != nil {
		panic(err)
	}
	return &Service{tx: tx, schools: schools, repo: repo, locker: locker, clock: clock, logger: logger}
}

func NotFound(schoolID, id string) error {
	return core.NewError(core.KindNotFound, ErrNotFound, core.ID("school_id", schoolID), core.ID("session_id", id))
}

func NoActiveSession(schoolID string) error {
	return core.NewError(core.KindNotFound, ErrNoActiveSession, core.ID("school_id", schoolID))
}

func InUse(schoolID, id string) error {
	return core.NewError(core.KindInvalidReference, ErrInUse, core.ID("school_id", schoolID), core.ID("session_id", id))
}

func NameExists(schoolID, name string) error {
	return core.NewError(core.KindDuplicateName, ErrNameExists, core.ID("school_id", schoolID), core.ID("name", name))
}

func ActiveExists(schoolID string) error {
	return core.NewError(core.KindInvalidState, ErrActiveExists, core.ID("school_id", schoolID))
}

// LockKey is the Locker key serializing the session lifecycle of a school.
func LockKey(schoolID string) string {
	return "school:" + schoolID + ":sessions"
}

// withSchoolLock runs fn under the school's session lock, in a transaction that also row-locks the school.
func (svc *Service) withSchoolLock(ctx context.Context, schoolID string, fn func(ctx context.Context) error) error {
	release, err := svc.locker.Acquire(ctx, LockKey(schoolID))
	if err != nil {
		return errors.Wrap(err, "locking school sessions")
	}
	defer release()

	return svc.tx.InTx(ctx, func(ctx context.Context) error {
		if err := svc.schools.LockSchool(ctx, schoolID); err != nil {
			return err
		}
		return fn(ctx)
	})
}

func (svc *Service) Create(ctx context.Context, ns NewSession) (Session, error) {
	if err := ns.Validate(); err != nil {
		return Session{}, err
	}

	var sess Session
	err := svc.withSchoolLock(ctx, ns.SchoolID, func(ctx context.Context) error {
		existing, err := svc.repo.QuerySessions(ctx, ns.SchoolID)
		if err != nil {
			return errors.Wrap(err, "querying sessions")
		}
		for _, s := range existing {
			if strings.EqualFold(s.Name, ns.Name) {
				return NameExists(ns.SchoolID, ns.Name)
			}
			if s.Overlaps(ns.StartDate, ns.EndDate) {
				return core.NewError(core.KindOverlappingRange, ErrOverlappingRange,
					core.ID("school_id", ns.SchoolID), core.ID("session_id", s.ID))
			}
		}

		now := svc.clock.Now()
		sess, err = svc.repo.CreateSession(ctx, Session{
			SchoolID:  ns.SchoolID,
			Name:      ns.Name,
			StartDate: ns.StartDate,
			EndDate:   ns.EndDate,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return err
		}
		if ns.Active {
			if err = svc.activate(ctx, ns.SchoolID, sess.ID, now); err != nil {
				return err
			}
			sess.Active = true
		}
		return nil
	})
	if err != nil {
		return Session{}, err
	}
	return sess, nil
}

// activate switches the active session of the school to id. Must run under withSchoolLock.
func (svc *Service) activate(ctx context.Context, schoolID, id string, now time.Time) error {
	target, err := svc.repo.GetSession(ctx, schoolID, id)
	if err != nil {
		return err
	}
	if target.Active {
		return nil
	}

	cur, err := svc.repo.GetActiveSession(ctx, schoolID)
	switch {
	case err == nil:
		if err = svc.repo.SetSessionActive(ctx, schoolID, cur.ID, false, now); err != nil {
			return errors.Wrap(err, "deactivating current session")
		}
	case errors.Is(err, ErrNoActiveSession):
	default:
		return errors.Wrap(err, "getting active session")
	}

	if err = svc.repo.SetSessionActive(ctx, schoolID, id, true, now); err != nil {
		return errors.Wrap(err, "activating session")
	}
	return nil
}

// Activate makes sessionID the only active session of the school, atomically.
func (svc *Service) Activate(ctx context.Context, schoolID, sessionID string) error {
	schoolID, sessionID = core.CleanString(schoolID), core.CleanString(sessionID)
	err := svc.withSchoolLock(ctx, schoolID, func(ctx context.Context) error {
		return svc.activate(ctx, schoolID, sessionID, svc.clock.Now())
	})
	if err != nil {
		return err
	}
	svc.logger.Info("session activated", map[string]interface{}{"school_id": schoolID, "session_id": sessionID})
	return nil
}

// DeactivateCurrent leaves the school without an active session. It is a no-op if none is active.
func (svc *Service) DeactivateCurrent(ctx context.Context, schoolID string) error {
	schoolID = core.CleanString(schoolID)
	return svc.withSchoolLock(ctx, schoolID, func(ctx context.Context) error {
		cur, err := svc.repo.GetActiveSession(ctx, schoolID)
		if err != nil {
			if errors.Is(err, ErrNoActiveSession) {
				return nil
			}
			return err
		}
		return svc.repo.SetSessionActive(ctx, schoolID, cur.ID, false, svc.clock.Now())
	})
}

func (svc *Service) GetCurrent(ctx context.Context, schoolID string) (Session, error) {
	return svc.repo.GetActiveSession(ctx, core.CleanString(schoolID))
}

func (svc *Service) Get(ctx context.Context, schoolID, id string) (Session, error) {
	return svc.repo.GetSession(ctx, core.CleanString(schoolID), core.CleanString(id))
}

func (svc *Service) Query(ctx context.Context, schoolID string) ([]Session, error) {
	return svc.repo.QuerySessions(ctx, core.CleanString(schoolID))
}

func (svc *Service) Delete(ctx context.Context, schoolID, id string) error {
	schoolID, id = core.CleanString(schoolID), core.CleanString(id)
	return svc.withSchoolLock(ctx, schoolID, func(ctx context.Context) error {
		return svc.repo.DeleteSession(ctx, schoolID, id)
	})
}
