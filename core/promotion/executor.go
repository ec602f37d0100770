package promotion

import (
	"context"
	"sort"
	"time"

	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/student"
)

const DefaultChunkSize = 100

// Executor turns the PENDING decisions of a source session into enrollments of a target session,
// or into graduations. Runs are idempotent and can be resumed after a partial failure.
type Executor struct {
	tx          core.Transactor
	locker      core.Locker
	sessions    session.Repository
	classes     class.Repository
	enrollments enrollment.Repository
	students    student.Repository
	repo        Repository
	clock       core.Clock
	logger      core.Logger
	chunkSize   int
}

func NewExecutor(
	tx core.Transactor,
	locker core.Locker,
	sessions session.Repository,
	classes class.Repository,
	enrollments enrollment.Repository,
	students student.Repository,
	repo Repository,
	clock core.Clock,
	logger core.Logger,
	chunkSize int,
) *Executor {
	if err := vala.BeginValidation().Validate(
		vala.IsNotNil(tx, "tx"),
		vala.IsNotNil(locker, "locker"),
		vala.IsNotNil(sessions, "sessions"),
		vala.IsNotNil(classes, "classes"),
		vala.IsNotNil(enrollments, "enrollments"),
		vala.IsNotNil(students, "students"),
		vala.IsNotNil(repo, "repo"),
		vala.IsNotNil(clock, "clock"),
		vala.IsNotNil(logger, "logger"),
		vala.GreaterThan(chunkSize, 0, "chunkSize"),
	).Check(); err != nil {
		panic(err)
	}
	return &Executor{
		tx:          tx,
		locker:      locker,
		sessions:    sessions,
		classes:     classes,
		enrollments: enrollments,
		students:    students,
		repo:        repo,
		clock:       clock,
		logger:      logger,
		chunkSize:   chunkSize,
	}
}

// ExecutionLockKey is the Locker key held while a chunk of (from, to) decisions is applied.
func ExecutionLockKey(schoolID, fromSessionID, toSessionID string) string {
	return "school:" + schoolID + ":promotion:" + fromSessionID + ":" + toSessionID
}

// Execute applies the PENDING decisions of fromSessionID into toSessionID, chunk by chunk.
//
// Decisions that cannot be applied are reported in Report.Failures and do not stop the run.
// An unknown session, a lock timeout or a store failure stops it: the in-flight chunk is rolled
// back and the report of the committed chunks is returned with the error.
func (ex *Executor) Execute(ctx context.Context, actor core.Actor, schoolID, fromSessionID, toSessionID string) (Report, error) {
	schoolID = core.CleanString(schoolID)
	fromSessionID, toSessionID = core.CleanString(fromSessionID), core.CleanString(toSessionID)

	rep := Report{
		SchoolID:         schoolID,
		FromSessionID:    fromSessionID,
		ToSessionID:      toSessionID,
		MissingDecisions: []string{},
		Failures:         []Failure{},
		StartedAt:        ex.clock.Now(),
	}
	if fromSessionID == toSessionID {
		return rep, core.NewError(core.KindInvalidInput, ErrSameSession, core.ID("session_id", fromSessionID))
	}

	pending, err := ex.load(ctx, &rep)
	if err != nil {
		return rep, err
	}

	for start := 0; start < len(pending); start += ex.chunkSize {
		if err = ctx.Err(); err != nil {
			rep.ProcessedAt = ex.clock.Now()
			return rep, errors.Wrap(err, "promotion execution interrupted")
		}
		end := start + ex.chunkSize
		if end > len(pending) {
			end = len(pending)
		}

		res, err := ex.executeChunk(ctx, schoolID, toSessionID, pending[start:end])
		if err != nil {
			rep.ProcessedAt = ex.clock.Now()
			return rep, err
		}
		rep.merge(res)
	}
	rep.ProcessedAt = ex.clock.Now()

	ex.logger.Info("promotion executed", actor, map[string]interface{}{
		"school_id":         schoolID,
		"from_session_id":   fromSessionID,
		"to_session_id":     toSessionID,
		"promoted":          rep.Promoted,
		"graduated":         rep.Graduated,
		"detained":          rep.Detained,
		"skipped":           rep.Skipped,
		"missing_decisions": len(rep.MissingDecisions),
		"failures":          len(rep.Failures),
	})
	return rep, nil
}

// load runs the systemic checks, fills the report's skipped and missing counts,
// and returns the PENDING decisions sorted by PAN.
func (ex *Executor) load(ctx context.Context, rep *Report) ([]Promotion, error) {
	var pending []Promotion
	err := ex.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := ex.sessions.GetSession(ctx, rep.SchoolID, rep.FromSessionID); err != nil {
			return err
		}
		toSess, err := ex.sessions.GetSession(ctx, rep.SchoolID, rep.ToSessionID)
		if err != nil {
			return err
		}
		if !toSess.Active {
			ex.logger.Info("executing promotions into an inactive session", map[string]interface{}{
				"school_id":     rep.SchoolID,
				"to_session_id": rep.ToSessionID,
			})
		}

		decisions, err := ex.repo.QueryPromotions(ctx, rep.SchoolID, QueryFilter{FromSessionID: rep.FromSessionID})
		if err != nil {
			return errors.Wrap(err, "querying promotion decisions")
		}
		enrolled, err := ex.enrollments.QueryEnrollments(ctx, rep.SchoolID, enrollment.QueryFilter{SessionID: rep.FromSessionID})
		if err != nil {
			return errors.Wrap(err, "querying source enrollments")
		}

		decided := make(map[string]bool, len(decisions))
		for _, p := range decisions {
			decided[p.StudentPAN] = true
			switch {
			case p.Status == StatusPending:
				pending = append(pending, p)
			case p.ToSessionID == rep.ToSessionID:
				rep.Skipped++
			}
		}
		for _, enr := range enrolled {
			if !decided[enr.StudentPAN] {
				rep.MissingDecisions = append(rep.MissingDecisions, enr.StudentPAN)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(rep.MissingDecisions)
	sort.Slice(pending, func(i, j int) bool { return pending[i].StudentPAN < pending[j].StudentPAN })
	if warn := rep.MissingDecisionError(); warn != nil {
		ex.logger.Warn(warn.Error(), map[string]interface{}{
			"kind":            core.KindOf(warn),
			"school_id":       rep.SchoolID,
			"from_session_id": rep.FromSessionID,
			"student_pans":    rep.MissingDecisions,
		})
	}
	return pending, nil
}

// executeChunk applies a chunk of decisions in one transaction, under the execution lock.
func (ex *Executor) executeChunk(ctx context.Context, schoolID, toSessionID string, chunk []Promotion) (Report, error) {
	release, err := ex.locker.Acquire(ctx, ExecutionLockKey(schoolID, chunk[0].FromSessionID, toSessionID))
	if err != nil {
		return Report{}, errors.Wrap(err, "locking promotion execution")
	}
	defer release()

	var res Report
	err = ex.tx.InTx(ctx, func(ctx context.Context) error {
		res = Report{}
		now := ex.clock.Now()
		for _, d := range chunk {
			p, err := ex.repo.GetPromotion(ctx, schoolID, d.ID)
			if err != nil {
				if errors.Is(err, ErrNotFound) { // deleted since loaded
					continue
				}
				return err
			}
			if p.Status != StatusPending {
				if p.ToSessionID == toSessionID {
					res.Skipped++
				}
				continue
			}
			// each decision runs in a savepoint: a failed one leaves the chunk usable
			var one Report
			err = ex.tx.InTx(ctx, func(ctx context.Context) error {
				one = Report{}
				return ex.apply(ctx, &one, p, toSessionID, now)
			})
			if err != nil {
				if err = res.fail(p, err); err != nil {
					return err
				}
				continue
			}
			res.merge(one)
		}
		return nil
	})
	if err != nil {
		return Report{}, err
	}

	for _, f := range res.Failures {
		ex.logger.Warn("promotion decision not applied", map[string]interface{}{
			"school_id":    schoolID,
			"promotion_id": f.PromotionID,
			"student_pan":  f.StudentPAN,
			"reason":       f.Reason,
		})
	}
	return res, nil
}

// apply executes one PENDING decision and counts it in res. Its errors undo the decision's writes.
func (ex *Executor) apply(ctx context.Context, res *Report, p Promotion, toSessionID string, now time.Time) error {
	skipped := false
	if p.IsGraduated {
		if err := ex.students.UpdateStudentStatus(ctx, p.StudentPAN, student.StatusGraduated, now); err != nil {
			return err
		}
	} else {
		if p.ToClassID == "" {
			return core.NewError(core.KindInvalidState, ErrNoTargetClass, core.ID("student_pan", p.StudentPAN))
		}
		cls, err := ex.classes.GetClass(ctx, p.SchoolID, p.ToClassID)
		if err != nil {
			return err
		}
		if cls.SessionID != toSessionID {
			return core.NewError(core.KindInvalidReference, ErrTargetOtherSess,
				core.ID("class_id", cls.ID), core.ID("session_id", toSessionID))
		}
		if skipped, err = ex.enroll(ctx, p, cls.ID, toSessionID, now); err != nil {
			return err
		}
	}

	p.Status = p.Outcome()
	p.ToSessionID = toSessionID
	p.ProcessedAt = &now
	p.UpdatedAt = now
	if err := ex.repo.UpdatePromotion(ctx, p); err != nil {
		return err
	}

	switch {
	case skipped:
		res.Skipped++
	case p.Status == StatusGraduated:
		res.Graduated++
	case p.Status == StatusDetained:
		res.Detained++
	default:
		res.Promoted++
	}
	return nil
}

// enroll creates the target enrollment of p. It reports skipped when the student is already
// enrolled in toSessionID, including by a concurrent enrollment the insert collides with.
func (ex *Executor) enroll(ctx context.Context, p Promotion, classID, toSessionID string, now time.Time) (skipped bool, err error) {
	_, err = ex.enrollments.FindEnrollment(ctx, p.SchoolID, toSessionID, p.StudentPAN)
	switch {
	case err == nil:
		return true, nil
	case !errors.Is(err, enrollment.ErrNotFound):
		return false, err
	}

	// the insert gets its own savepoint so that a collision leaves the decision usable
	err = ex.tx.InTx(ctx, func(ctx context.Context) error {
		_, err := ex.enrollments.CreateEnrollment(ctx, enrollment.Enrollment{
			StudentPAN: p.StudentPAN,
			SchoolID:   p.SchoolID,
			ClassID:    classID,
			SessionID:  toSessionID,
			CreatedAt:  now,
		})
		return err
	})
	if core.KindOf(err) == core.KindDuplicateEnrollment {
		return true, nil
	}
	return false, err
}

// fail records err against p when it is a business error, and returns it otherwise.
func (r *Report) fail(p Promotion, err error) error {
	kind := core.KindOf(err)
	if kind == core.KindUnknown {
		return err
	}
	r.Failures = append(r.Failures, Failure{
		PromotionID: p.ID,
		StudentPAN:  p.StudentPAN,
		Kind:        kind,
		Reason:      err.Error(),
	})
	return nil
}

func (r *Report) merge(o Report) {
	r.Promoted += o.Promoted
	r.Graduated += o.Graduated
	r.Detained += o.Detained
	r.Skipped += o.Skipped
	r.Failures = append(r.Failures, o.Failures...)
}
