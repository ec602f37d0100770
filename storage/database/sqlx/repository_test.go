package sqlxrepos_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/promotion"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/tests"
)

func TestPostgres_promotionRun(t *testing.T) {
	env := testutil.NewPostgresEnv(t, 2)
	ctx := context.Background()

	sch := testutil.CreateSchool(t, env, "Green Hills")
	s2023 := testutil.CreateSession(t, env, sch.ID, 2023, true)
	s2024 := testutil.CreateSession(t, env, sch.ID, 2024, false)
	c10a := testutil.CreateClass(t, env, sch.ID, s2023.ID, "10A")
	c11a := testutil.CreateClass(t, env, sch.ID, s2024.ID, "11A")
	for _, pan := range []string{"PAN001", "PAN002", "PAN003"} {
		testutil.CreateStudent(t, env, sch.ID, pan, &c10a)
	}
	testutil.Assign(t, env, promotion.NewPromotion{
		StudentPAN: "PAN001", SchoolID: sch.ID, FromSessionID: s2023.ID, ToClassID: c11a.ID, Remarks: "well done",
	})
	testutil.Assign(t, env, promotion.NewPromotion{
		StudentPAN: "PAN003", SchoolID: sch.ID, FromSessionID: s2023.ID, IsGraduated: true,
	})

	rep, err := env.Executor.Execute(ctx, testutil.Teacher, sch.ID, s2023.ID, s2024.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Promoted)
	assert.Equal(t, 1, rep.Graduated)
	assert.Equal(t, []string{"PAN002"}, rep.MissingDecisions)

	enr, err := env.EnrollmentSvc.Get(ctx, sch.ID, s2024.ID, "PAN001")
	require.NoError(t, err)
	assert.Equal(t, c11a.ID, enr.ClassID)

	std, err := env.StudentSvc.Get(ctx, sch.ID, "PAN003")
	require.NoError(t, err)
	assert.Equal(t, student.StatusGraduated, std.Status)

	rep, err = env.Executor.Execute(ctx, testutil.Teacher, sch.ID, s2023.ID, s2024.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, rep.Processed())
	assert.Equal(t, 2, rep.Skipped)

	ps, err := env.PromotionSvc.Query(ctx, sch.ID, promotion.QueryFilter{FromSessionID: s2023.ID})
	require.NoError(t, err)
	require.Len(t, ps, 2)
	assert.Equal(t, "well done", ps[0].Remarks)
	require.NotNil(t, ps[0].ProcessedAt)
	assert.Equal(t, s2024.ID, ps[1].ToSessionID)
}

func TestPostgres_constraints(t *testing.T) {
	env := testutil.NewPostgresEnv(t)
	ctx := context.Background()

	sch := testutil.CreateSchool(t, env, "Green Hills")
	s2023 := testutil.CreateSession(t, env, sch.ID, 2023, true)
	s2024 := testutil.CreateSession(t, env, sch.ID, 2024, false)
	c10a := testutil.CreateClass(t, env, sch.ID, s2023.ID, "10A")
	c10b := testutil.CreateClass(t, env, sch.ID, s2023.ID, "10B")
	testutil.CreateStudent(t, env, sch.ID, "PAN001", &c10a)

	err := env.Sessions.SetSessionActive(ctx, sch.ID, s2024.ID, true, env.Clock.Now())
	assert.ErrorIs(t, err, session.ErrActiveExists)

	_, err = env.Sessions.CreateSession(ctx, session.Session{
		SchoolID: sch.ID, Name: "2023-2024", StartDate: testutil.Date(2030, 1, 1), EndDate: testutil.Date(2030, 6, 1),
	})
	assert.Equal(t, core.KindDuplicateName, core.KindOf(err))

	_, err = env.Enrollments.CreateEnrollment(ctx, enrollment.Enrollment{
		StudentPAN: "PAN001", SchoolID: sch.ID, SessionID: s2023.ID, ClassID: c10b.ID, CreatedAt: env.Clock.Now(),
	})
	assert.Equal(t, core.KindDuplicateEnrollment, core.KindOf(err))

	_, err = env.SessionSvc.Get(ctx, sch.ID, "not-a-uuid")
	assert.Equal(t, core.KindNotFound, core.KindOf(err))

	require.NoError(t, env.SessionSvc.Activate(ctx, sch.ID, s2024.ID))
	cur, err := env.SessionSvc.GetCurrent(ctx, sch.ID)
	require.NoError(t, err)
	assert.Equal(t, s2024.ID, cur.ID)
}

func TestPostgres_savepoint(t *testing.T) {
	env := testutil.NewPostgresEnv(t)
	ctx := context.Background()
	boom := errors.New("boom")
	sch := testutil.CreateSchool(t, env, "Green Hills")
	sess := func(name string, year int) session.Session {
		return session.Session{
			SchoolID: sch.ID, Name: name, StartDate: testutil.Date(year, 9, 1), EndDate: testutil.Date(year+1, 6, 30),
			CreatedAt: env.Clock.Now(), UpdatedAt: env.Clock.Now(),
		}
	}

	require.NoError(t, env.Tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := env.Sessions.CreateSession(ctx, sess("2023-2024", 2023)); err != nil {
			return err
		}
		// a failed statement only aborts its savepoint
		err := env.Tx.InTx(ctx, func(ctx context.Context) error {
			_, err := env.Sessions.CreateSession(ctx, sess("2023-2024", 2030))
			return err
		})
		assert.Equal(t, core.KindDuplicateName, core.KindOf(err))

		err = env.Tx.InTx(ctx, func(ctx context.Context) error {
			if _, err := env.Sessions.CreateSession(ctx, sess("2024-2025", 2024)); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)
		return nil
	}))

	got, err := env.Sessions.QuerySessions(ctx, sch.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2023-2024", got[0].Name)
}

func TestPostgres_promotionRun_concurrentEnrollment(t *testing.T) {
	env := testutil.NewPostgresEnv(t)
	ctx := context.Background()

	sch := testutil.CreateSchool(t, env, "Green Hills")
	s2023 := testutil.CreateSession(t, env, sch.ID, 2023, true)
	s2024 := testutil.CreateSession(t, env, sch.ID, 2024, false)
	c10a := testutil.CreateClass(t, env, sch.ID, s2023.ID, "10A")
	c11a := testutil.CreateClass(t, env, sch.ID, s2024.ID, "11A")
	var ids []string
	for _, pan := range []string{"PAN001", "PAN002"} {
		testutil.CreateStudent(t, env, sch.ID, pan, &c10a)
		p := testutil.Assign(t, env, promotion.NewPromotion{
			StudentPAN: pan, SchoolID: sch.ID, FromSessionID: s2023.ID, ToClassID: c11a.ID,
		})
		ids = append(ids, p.ID)
	}
	_, err := env.Enrollments.CreateEnrollment(ctx, enrollment.Enrollment{
		StudentPAN: "PAN001", SchoolID: sch.ID, SessionID: s2024.ID, ClassID: c11a.ID, CreatedAt: env.Clock.Now(),
	})
	require.NoError(t, err)

	// the insert of PAN001 collides; PAN002 is applied in the same transaction afterwards
	ex := env.NewExecutor(&testutil.StaleEnrollments{Repository: env.Enrollments}, promotion.DefaultChunkSize)
	rep, err := ex.Execute(ctx, testutil.Teacher, sch.ID, s2023.ID, s2024.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Promoted)
	assert.Equal(t, 1, rep.Skipped)
	assert.Empty(t, rep.Failures)

	for _, id := range ids {
		p, err := env.PromotionSvc.Get(ctx, sch.ID, id)
		require.NoError(t, err)
		assert.Equal(t, promotion.StatusPromoted, p.Status)
	}
	_, err = env.EnrollmentSvc.Get(ctx, sch.ID, s2024.ID, "PAN002")
	require.NoError(t, err)
}
