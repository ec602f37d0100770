package enrollment

import (
	"context"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/student"
)

var (
	// errors
	ErrNotFound          = errors.New("enrollment not found")
	ErrDuplicate         = errors.New("student is already enrolled in this session")
	ErrInUse             = errors.New("enrollment has a promotion decision")
	ErrOtherSchool       = errors.New("student belongs to another school")
	ErrClassOtherSession = errors.New("class belongs to another session")
	ErrStudentGraduated  = errors.New("graduated students cannot be enrolled")
)

type (
	Repository interface {
		CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
		GetEnrollment(ctx context.Context, schoolID, id string) (Enrollment, error)
		// FindEnrollment returns the enrollment of pan in the session.
		FindEnrollment(ctx context.Context, schoolID, sessionID, pan string) (Enrollment, error)
		// QueryEnrollments returns the matching enrollments ordered by StudentPAN.
		QueryEnrollments(ctx context.Context, schoolID string, filter QueryFilter) ([]Enrollment, error)
		// DeleteEnrollment fails with ErrInUse while a promotion decision references the enrollment.
		DeleteEnrollment(ctx context.Context, schoolID, id string) error
	}

	// Service is the enrollment store: it admits students into classes, one class per session.
	Service struct {
		tx       core.Transactor
		students student.Repository
		sessions session.Repository
		classes  class.Repository
		repo     Repository
		clock    core.Clock
	}
)

func NewService(
	tx core.Transactor,
	students student.Repository,
	sessions session.Repository,
	classes class.Repository,
	repo Repository,
	clock core.Clock,
) *Service {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(students, "students"),
		vala.IsNotNil(sessions, "sessions"),
		vala.IsNotNil(classes, "classes"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(clock, "clock"),
	).Check(); err != nil {
		panic(err)
	}
	return &Service{tx: tx, students: students, sessions: sessions, classes: classes, repo: repo, clock: clock}
}

func NotFound(schoolID, sessionID, pan string) error {
	return core.NewError(core.KindNotFound, ErrNotFound,
		core.ID("school_id", schoolID), core.ID("session_id", sessionID), core.ID("student_pan", pan))
}

func IDNotFound(schoolID, id string) error {
	return core.NewError(core.KindNotFound, ErrNotFound, core.ID("school_id", schoolID), core.ID("enrollment_id", id))
}

func Duplicate(schoolID, sessionID, pan string) error {
	return core.NewError(core.KindDuplicateEnrollment, ErrDuplicate,
		core.ID("school_id", schoolID), core.ID("session_id", sessionID), core.ID("student_pan", pan))
}

func InUse(schoolID, id string) error {
	return core.NewError(core.KindInvalidReference, ErrInUse, core.ID("school_id", schoolID), core.ID("enrollment_id", id))
}

// Enroll admits a student of the school into a class of the given session.
func (svc *Service) Enroll(ctx context.Context, ne NewEnrollment) (Enrollment, error) {
	if err := ne.Validate(); err != nil {
		return Enrollment{}, err
	}

	var enr Enrollment
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		std, err := svc.students.GetStudent(ctx, ne.StudentPAN)
		if err != nil {
			return err
		}
		if std.SchoolID != ne.SchoolID {
			return core.NewError(core.KindInvalidReference, ErrOtherSchool,
				core.ID("school_id", ne.SchoolID), core.ID("student_pan", ne.StudentPAN))
		}
		if std.Status == student.StatusGraduated {
			return core.NewError(core.KindInvalidState, ErrStudentGraduated, core.ID("student_pan", ne.StudentPAN))
		}

		if _, err = svc.sessions.GetSession(ctx, ne.SchoolID, ne.SessionID); err != nil {
			return err
		}
		cls, err := svc.classes.GetClass(ctx, ne.SchoolID, ne.ClassID)
		if err != nil {
			return err
		}
		if cls.SessionID != ne.SessionID {
			return core.NewError(core.KindInvalidReference, ErrClassOtherSession,
				core.ID("class_id", cls.ID), core.ID("session_id", ne.SessionID))
		}

		_, err = svc.repo.FindEnrollment(ctx, ne.SchoolID, ne.SessionID, ne.StudentPAN)
		switch {
		case err == nil:
			return Duplicate(ne.SchoolID, ne.SessionID, ne.StudentPAN)
		case !errors.Is(err, ErrNotFound):
			return errors.Wrap(err, "looking up enrollment")
		}

		enr, err = svc.repo.CreateEnrollment(ctx, Enrollment{
			StudentPAN: ne.StudentPAN,
			SchoolID:   ne.SchoolID,
			ClassID:    ne.ClassID,
			SessionID:  ne.SessionID,
			CreatedAt:  svc.clock.Now(),
		})
		return err
	})
	if err != nil {
		return Enrollment{}, err
	}
	return enr, nil
}

// Get returns the enrollment of pan in the session.
func (svc *Service) Get(ctx context.Context, schoolID, sessionID, pan string) (Enrollment, error) {
	return svc.repo.FindEnrollment(ctx, core.CleanString(schoolID), core.CleanString(sessionID), core.CleanString(pan))
}

func (svc *Service) Query(ctx context.Context, schoolID string, filter QueryFilter) ([]Enrollment, error) {
	filter.SessionID = core.CleanString(filter.SessionID)
	filter.ClassID = core.CleanString(filter.ClassID)
	filter.StudentPAN = core.CleanString(filter.StudentPAN)
	return svc.repo.QueryEnrollments(ctx, core.CleanString(schoolID), filter)
}

// Withdraw removes an enrollment that no promotion decision references.
func (svc *Service) Withdraw(ctx context.Context, schoolID, id string) error {
	schoolID, id = core.CleanString(schoolID), core.CleanString(id)
	return svc.tx.InTx(ctx, func(ctx context.Context) error {
		return svc.repo.DeleteEnrollment(ctx, schoolID, id)
	})
}

// CurrentClass derives the student's class from its enrollment in the school's active session.
func (svc *Service) CurrentClass(ctx context.Context, schoolID, pan string) (class.Class, error) {
	schoolID, pan = core.CleanString(schoolID), core.CleanString(pan)

	var cls class.Class
	err := svc.tx.InTx(ctx, func(ctx context.Context) error {
		sess, err := svc.sessions.GetActiveSession(ctx, schoolID)
		if err != nil {
			return err
		}
		enr, err := svc.repo.FindEnrollment(ctx, schoolID, sess.ID, pan)
		if err != nil {
			return err
		}
		cls, err = svc.classes.GetClass(ctx, schoolID, enr.ClassID)
		return err
	})
	if err != nil {
		return class.Class{}, err
	}
	return cls, nil
}
