package promotion

import (
	"context"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/session"
)

var (
	// errors
	ErrNotFound         = errors.New("promotion decision not found")
	ErrExists           = errors.New("a promotion decision already exists for this student and session")
	ErrNotPending       = errors.New("promotion decision was already executed")
	ErrNotEnrolled      = errors.New("student is not enrolled in the source session")
	ErrUnknownClass     = errors.New("target class does not exist in the school")
	ErrSameSessionClass = errors.New("target class belongs to the source session")
	ErrNoTeacher        = errors.New("teacher identity is required")
	ErrNoTargetClass    = errors.New("decision has no target class")
	ErrTargetOtherSess  = errors.New("target class does not belong to the target session")
	ErrSameSession      = errors.New("source and target sessions must differ")
	ErrMissingDecision  = errors.New("enrolled student has no promotion decision")
)

type (
	Repository interface {
		CreatePromotion(ctx context.Context, p Promotion) (Promotion, error)
		GetPromotion(ctx context.Context, schoolID, id string) (Promotion, error)
		// FindPromotion returns the decision of pan for the source session.
		FindPromotion(ctx context.Context, schoolID, fromSessionID, pan string) (Promotion, error)
		// QueryPromotions returns the matching decisions ordered by StudentPAN.
		QueryPromotions(ctx context.Context, schoolID string, filter QueryFilter) ([]Promotion, error)
		// UpdatePromotion saves every mutable field of p.
		UpdatePromotion(ctx context.Context, p Promotion) error
		DeletePromotion(ctx context.Context, schoolID, id string) error
	}

	// Service is the promotion assigner: it records and amends PENDING decisions.
	Service struct {
		tx          core.Transactor
		locker      core.Locker
		sessions    session.Repository
		classes     class.Repository
		enrollments enrollment.Repository
		repo        Repository
		clock       core.Clock
		logger      core.Logger
	}
)

func NewService(
	tx core.Transactor,
	locker core.Locker,
	sessions session.Repository,
	classes class.Repository,
	enrollments enrollment.Repository,
	repo Repository,
	clock core.Clock,
	logger core.Logger,
) *Service {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(locker, "locker"),
		vala.IsNotNil(sessions, "sessions"),
		vala.IsNotNil(classes, "classes"),
		vala.IsNotNil(enrollments, "enrollments"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(clock, "clock"),
		vala.IsNotNil(logger, "logger"),
	).Check(); err != nil {
		panic(err)
	}
	return &Service{
		tx:          tx,
		locker:      locker,
		sessions:    sessions,
		classes:     classes,
		enrollments: enrollments,
		repo:        repo,
		clock:       clock,
		logger:      logger,
	}
}

func NotFound(schoolID, id string) error {
	return core.NewError(core.KindNotFound, ErrNotFound, core.ID("school_id", schoolID), core.ID("promotion_id", id))
}

// DecisionNotFound is returned when pan has no decision for the source session.
func DecisionNotFound(schoolID, fromSessionID, pan string) error {
	return core.NewError(core.KindNotFound, ErrNotFound,
		core.ID("school_id", schoolID), core.ID("session_id", fromSessionID), core.ID("student_pan", pan))
}

func Exists(schoolID, fromSessionID, pan string) error {
	return core.NewError(core.KindAlreadyExists, ErrExists,
		core.ID("school_id", schoolID), core.ID("session_id", fromSessionID), core.ID("student_pan", pan))
}

func notPending(p Promotion) error {
	return core.NewError(core.KindInvalidState, ErrNotPending,
		core.ID("promotion_id", p.ID), core.ID("student_pan", p.StudentPAN), core.ID("status", string(p.Status)))
}

// DecisionLockKey serializes the decisions of one student for one source session.
func DecisionLockKey(schoolID, fromSessionID, pan string) string {
	return "school:" + schoolID + ":promotion:" + fromSessionID + ":student:" + pan
}

// Assign records a PENDING decision for a student enrolled in np.FromSessionID.
func (svc *Service) Assign(ctx context.Context, teacher core.Actor, np NewPromotion) (Promotion, error) {
	if core.CleanString(teacher.ID) == "" {
		return Promotion{}, core.NewError(core.KindInvalidInput, ErrNoTeacher)
	}
	if err := np.Validate(); err != nil {
		return Promotion{}, err
	}

	release, err := svc.locker.Acquire(ctx, DecisionLockKey(np.SchoolID, np.FromSessionID, np.StudentPAN))
	if err != nil {
		return Promotion{}, errors.Wrap(err, "locking promotion decision")
	}
	defer release()

	var p Promotion
	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := svc.sessions.GetSession(ctx, np.SchoolID, np.FromSessionID); err != nil {
			return err
		}
		enr, err := svc.enrollments.FindEnrollment(ctx, np.SchoolID, np.FromSessionID, np.StudentPAN)
		if err != nil {
			if errors.Is(err, enrollment.ErrNotFound) {
				return core.NewError(core.KindInvalidReference, ErrNotEnrolled,
					core.ID("student_pan", np.StudentPAN), core.ID("session_id", np.FromSessionID))
			}
			return err
		}

		_, err = svc.repo.FindPromotion(ctx, np.SchoolID, np.FromSessionID, np.StudentPAN)
		switch {
		case err == nil:
			return Exists(np.SchoolID, np.FromSessionID, np.StudentPAN)
		case !errors.Is(err, ErrNotFound):
			return errors.Wrap(err, "looking up promotion decision")
		}

		toSessionID, err := svc.targetSession(ctx, np.SchoolID, np.FromSessionID, np.ToClassID)
		if err != nil {
			return err
		}

		now := svc.clock.Now()
		p, err = svc.repo.CreatePromotion(ctx, Promotion{
			StudentPAN:    np.StudentPAN,
			SchoolID:      np.SchoolID,
			FromClassID:   enr.ClassID,
			FromSessionID: np.FromSessionID,
			ToClassID:     np.ToClassID,
			ToSessionID:   toSessionID,
			AssignedBy:    teacher.ID,
			Status:        StatusPending,
			Remarks:       np.Remarks,
			IsGraduated:   np.IsGraduated,
			IsDetained:    np.IsDetained,
			CreatedAt:     now,
			UpdatedAt:     now,
		})
		return err
	})
	if err != nil {
		return Promotion{}, err
	}

	svc.logger.Info("promotion decision assigned", teacher, map[string]interface{}{
		"school_id":    p.SchoolID,
		"student_pan":  p.StudentPAN,
		"promotion_id": p.ID,
	})
	return p, nil
}

// targetSession resolves the session of the target class. An empty class id resolves to no session.
func (svc *Service) targetSession(ctx context.Context, schoolID, fromSessionID, toClassID string) (string, error) {
	if toClassID == "" {
		return "", nil
	}
	cls, err := svc.classes.GetClass(ctx, schoolID, toClassID)
	if err != nil {
		if errors.Is(err, class.ErrNotFound) {
			return "", core.NewError(core.KindInvalidReference, ErrUnknownClass, core.ID("class_id", toClassID))
		}
		return "", err
	}
	if cls.SessionID == fromSessionID {
		return "", core.NewError(core.KindInvalidReference, ErrSameSessionClass,
			core.ID("class_id", toClassID), core.ID("session_id", fromSessionID))
	}
	return cls.SessionID, nil
}

// Update amends a PENDING decision. Executed decisions are immutable.
func (svc *Service) Update(ctx context.Context, teacher core.Actor, schoolID, id string, up UpdatePromotion) (Promotion, error) {
	schoolID, id = core.CleanString(schoolID), core.CleanString(id)
	if core.CleanString(teacher.ID) == "" {
		return Promotion{}, core.NewError(core.KindInvalidInput, ErrNoTeacher)
	}

	cur, err := svc.repo.GetPromotion(ctx, schoolID, id)
	if err != nil {
		return Promotion{}, err
	}
	release, err := svc.locker.Acquire(ctx, DecisionLockKey(schoolID, cur.FromSessionID, cur.StudentPAN))
	if err != nil {
		return Promotion{}, errors.Wrap(err, "locking promotion decision")
	}
	defer release()

	var p Promotion
	err = svc.tx.InTx(ctx, func(ctx context.Context) error {
		var err error
		if p, err = svc.repo.GetPromotion(ctx, schoolID, id); err != nil {
			return err
		}
		if p.Status != StatusPending {
			return notPending(p)
		}
		if err = up.apply(&p); err != nil {
			return err
		}
		if p.ToSessionID, err = svc.targetSession(ctx, schoolID, p.FromSessionID, p.ToClassID); err != nil {
			return err
		}
		p.AssignedBy = teacher.ID
		p.UpdatedAt = svc.clock.Now()
		return svc.repo.UpdatePromotion(ctx, p)
	})
	if err != nil {
		return Promotion{}, err
	}
	return p, nil
}

// Delete removes a PENDING decision. Executed decisions are immutable.
func (svc *Service) Delete(ctx context.Context, schoolID, id string) error {
	schoolID, id = core.CleanString(schoolID), core.CleanString(id)

	cur, err := svc.repo.GetPromotion(ctx, schoolID, id)
	if err != nil {
		return err
	}
	release, err := svc.locker.Acquire(ctx, DecisionLockKey(schoolID, cur.FromSessionID, cur.StudentPAN))
	if err != nil {
		return errors.Wrap(err, "locking promotion decision")
	}
	defer release()

	return svc.tx.InTx(ctx, func(ctx context.Context) error {
		p, err := svc.repo.GetPromotion(ctx, schoolID, id)
		if err != nil {
			return err
		}
		if p.Status != StatusPending {
			return notPending(p)
		}
		return svc.repo.DeletePromotion(ctx, schoolID, id)
	})
}

func (svc *Service) Get(ctx context.Context, schoolID, id string) (Promotion, error) {
	return svc.repo.GetPromotion(ctx, core.CleanString(schoolID), core.CleanString(id))
}

func (svc *Service) Query(ctx context.Context, schoolID string, filter QueryFilter) ([]Promotion, error) {
	filter.FromSessionID = core.CleanString(filter.FromSessionID)
	filter.StudentPAN = core.CleanString(filter.StudentPAN)
	return svc.repo.QueryPromotions(ctx, core.CleanString(schoolID), filter)
}
