package enrollment_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/promotion"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/tests"
)

func TestService_Enroll(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	sch := testutil.CreateSchool(t, env, "Green Hills")
	other := testutil.CreateSchool(t, env, "Blue Lake")
	s2023 := testutil.CreateSession(t, env, sch.ID, 2023, true)
	s2024 := testutil.CreateSession(t, env, sch.ID, 2024, false)
	c10a := testutil.CreateClass(t, env, sch.ID, s2023.ID, "10A")
	c10b := testutil.CreateClass(t, env, sch.ID, s2023.ID, "10B")
	c11a := testutil.CreateClass(t, env, sch.ID, s2024.ID, "11A")
	testutil.CreateStudent(t, env, sch.ID, "PAN001", nil)
	testutil.CreateStudent(t, env, other.ID, "PAN900", nil)

	tests := []struct {
		name     string
		ne       enrollment.NewEnrollment
		wantKind core.Kind
		wantErr  error
	}{
		{
			name: "ok",
			ne:   enrollment.NewEnrollment{StudentPAN: "PAN001", SchoolID: sch.ID, SessionID: s2023.ID, ClassID: c10a.ID},
		},
		{
			name:     "second class in the same session",
			ne:       enrollment.NewEnrollment{StudentPAN: "PAN001", SchoolID: sch.ID, SessionID: s2023.ID, ClassID: c10b.ID},
			wantKind: core.KindDuplicateEnrollment,
			wantErr:  enrollment.ErrDuplicate,
		},
		{
			name: "next session",
			ne:   enrollment.NewEnrollment{StudentPAN: "PAN001", SchoolID: sch.ID, SessionID: s2024.ID, ClassID: c11a.ID},
		},
		{
			name:     "session of another school",
			ne:       enrollment.NewEnrollment{StudentPAN: "PAN900", SchoolID: other.ID, SessionID: s2023.ID, ClassID: c10a.ID},
			wantKind: core.KindNotFound,
		},
		{
			name:     "student of another school",
			ne:       enrollment.NewEnrollment{StudentPAN: "PAN900", SchoolID: sch.ID, SessionID: s2023.ID, ClassID: c10a.ID},
			wantKind: core.KindInvalidReference,
			wantErr:  enrollment.ErrOtherSchool,
		},
		{
			name:     "unknown student",
			ne:       enrollment.NewEnrollment{StudentPAN: "PAN404", SchoolID: sch.ID, SessionID: s2023.ID, ClassID: c10a.ID},
			wantKind: core.KindNotFound,
			wantErr:  student.ErrNotFound,
		},
		{
			name:     "class not in session",
			ne:       enrollment.NewEnrollment{StudentPAN: "PAN001", SchoolID: sch.ID, SessionID: s2024.ID, ClassID: c10a.ID},
			wantKind: core.KindInvalidReference,
			wantErr:  enrollment.ErrClassOtherSession,
		},
		{
			name:     "malformed PAN",
			ne:       enrollment.NewEnrollment{StudentPAN: "PAN-001", SchoolID: sch.ID, SessionID: s2023.ID, ClassID: c10a.ID},
			wantKind: core.KindInvalidInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enr, err := env.EnrollmentSvc.Enroll(ctx, tt.ne)
			if tt.wantKind != core.KindUnknown {
				assert.Equal(t, tt.wantKind, core.KindOf(err))
				if tt.wantErr != nil {
					assert.ErrorIs(t, err, tt.wantErr)
				}
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, enr.ID)
			assert.Equal(t, tt.ne.ClassID, enr.ClassID)
		})
	}

	enrs, err := env.EnrollmentSvc.Query(ctx, sch.ID, enrollment.QueryFilter{StudentPAN: "PAN001"})
	require.NoError(t, err)
	assert.Len(t, enrs, 2)
}

func TestRepository_uniqueEnrollment(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	sch := testutil.CreateSchool(t, env, "Green Hills")
	sess := testutil.CreateSession(t, env, sch.ID, 2023, true)
	c10a := testutil.CreateClass(t, env, sch.ID, sess.ID, "10A")
	c10b := testutil.CreateClass(t, env, sch.ID, sess.ID, "10B")
	testutil.CreateStudent(t, env, sch.ID, "PAN001", &c10a)

	// the store is the final backstop
	_, err := env.Enrollments.CreateEnrollment(ctx, enrollment.Enrollment{
		StudentPAN: "PAN001", SchoolID: sch.ID, SessionID: sess.ID, ClassID: c10b.ID,
	})
	assert.Equal(t, core.KindDuplicateEnrollment, core.KindOf(err))

	enrs, err := env.Enrollments.QueryEnrollments(ctx, sch.ID, enrollment.QueryFilter{SessionID: sess.ID})
	require.NoError(t, err)
	assert.Len(t, enrs, 1)
}

func TestService_Enroll_graduated(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	sch := testutil.CreateSchool(t, env, "Green Hills")
	sess := testutil.CreateSession(t, env, sch.ID, 2023, true)
	cls := testutil.CreateClass(t, env, sch.ID, sess.ID, "12A")
	testutil.CreateStudent(t, env, sch.ID, "PAN001", nil)
	_, err := env.StudentSvc.SetStatus(ctx, sch.ID, "PAN001", student.StatusGraduated)
	require.NoError(t, err)

	_, err = env.EnrollmentSvc.Enroll(ctx, enrollment.NewEnrollment{
		StudentPAN: "PAN001", SchoolID: sch.ID, SessionID: sess.ID, ClassID: cls.ID,
	})
	assert.Equal(t, core.KindInvalidState, core.KindOf(err))
}

func TestService_CurrentClass(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	sch := testutil.CreateSchool(t, env, "Green Hills")
	s2023 := testutil.CreateSession(t, env, sch.ID, 2023, true)
	s2024 := testutil.CreateSession(t, env, sch.ID, 2024, false)
	c10a := testutil.CreateClass(t, env, sch.ID, s2023.ID, "10A")
	c11a := testutil.CreateClass(t, env, sch.ID, s2024.ID, "11A")
	testutil.CreateStudent(t, env, sch.ID, "PAN001", &c10a)
	testutil.Enroll(t, env, "PAN001", c11a)

	cls, err := env.EnrollmentSvc.CurrentClass(ctx, sch.ID, "PAN001")
	require.NoError(t, err)
	assert.Equal(t, c10a.ID, cls.ID)

	// follows the active session
	require.NoError(t, env.SessionSvc.Activate(ctx, sch.ID, s2024.ID))
	cls, err = env.EnrollmentSvc.CurrentClass(ctx, sch.ID, "PAN001")
	require.NoError(t, err)
	assert.Equal(t, c11a.ID, cls.ID)

	_, err = env.EnrollmentSvc.CurrentClass(ctx, sch.ID, "PAN404")
	assert.Equal(t, core.KindNotFound, core.KindOf(err))

	require.NoError(t, env.SessionSvc.DeactivateCurrent(ctx, sch.ID))
	_, err = env.EnrollmentSvc.CurrentClass(ctx, sch.ID, "PAN001")
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
}

func TestService_Withdraw(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	sch := testutil.CreateSchool(t, env, "Green Hills")
	s2023 := testutil.CreateSession(t, env, sch.ID, 2023, true)
	c10a := testutil.CreateClass(t, env, sch.ID, s2023.ID, "10A")
	testutil.CreateStudent(t, env, sch.ID, "PAN001", nil)
	testutil.CreateStudent(t, env, sch.ID, "PAN002", nil)
	decided := testutil.Enroll(t, env, "PAN001", c10a)
	free := testutil.Enroll(t, env, "PAN002", c10a)
	testutil.Assign(t, env, promotion.NewPromotion{
		StudentPAN: "PAN001", SchoolID: sch.ID, FromSessionID: s2023.ID, IsGraduated: true,
	})

	err := env.EnrollmentSvc.Withdraw(ctx, sch.ID, decided.ID)
	assert.Equal(t, core.KindInvalidReference, core.KindOf(err))
	assert.ErrorIs(t, err, enrollment.ErrInUse)

	require.NoError(t, env.EnrollmentSvc.Withdraw(ctx, sch.ID, free.ID))
	_, err = env.EnrollmentSvc.Get(ctx, sch.ID, s2023.ID, "PAN002")
	assert.ErrorIs(t, err, enrollment.ErrNotFound)
}
