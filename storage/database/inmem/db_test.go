package inmemdb_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/promotion"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/tests"
)

func TestDB_InTx_rollback(t *testing.T) {
	db := inmemdb.Open()
	schools := inmemdb.NewSchoolRepository(db)
	ctx := context.Background()
	boom := errors.New("boom")

	err := db.InTx(ctx, func(ctx context.Context) error {
		if _, err := schools.CreateSchool(ctx, school.School{Name: "Green Hills"}); err != nil {
			return err
		}
		// nested calls see the outer writes
		return db.InTx(ctx, func(ctx context.Context) error {
			got, err := schools.QuerySchools(ctx)
			require.NoError(t, err)
			assert.Len(t, got, 1)
			return boom
		})
	})
	assert.ErrorIs(t, err, boom)

	got, err := schools.QuerySchools(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDB_InTx_savepoint(t *testing.T) {
	db := inmemdb.Open()
	schools := inmemdb.NewSchoolRepository(db)
	ctx := context.Background()
	boom := errors.New("boom")

	require.NoError(t, db.InTx(ctx, func(ctx context.Context) error {
		if _, err := schools.CreateSchool(ctx, school.School{Name: "Green Hills"}); err != nil {
			return err
		}
		err := db.InTx(ctx, func(ctx context.Context) error {
			if _, err := schools.CreateSchool(ctx, school.School{Name: "Blue Lake"}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := schools.QuerySchools(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 1)
		return nil
	}))

	got, err := schools.QuerySchools(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Green Hills", got[0].Name)
}

func TestDB_InTx_commit(t *testing.T) {
	db := inmemdb.Open()
	schools := inmemdb.NewSchoolRepository(db)
	ctx := context.Background()

	var id string
	require.NoError(t, db.InTx(ctx, func(ctx context.Context) error {
		sch, err := schools.CreateSchool(ctx, school.School{Name: "Green Hills"})
		id = sch.ID
		return err
	}))

	sch, err := schools.GetSchool(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Green Hills", sch.Name)
}

func TestSessionRepository_oneActive(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	sch := testutil.CreateSchool(t, env, "Green Hills")
	testutil.CreateSession(t, env, sch.ID, 2023, true)
	next := testutil.CreateSession(t, env, sch.ID, 2024, false)

	// bypassing the service still cannot produce two active sessions
	_, err := env.Sessions.CreateSession(ctx, session.Session{
		SchoolID:  sch.ID,
		Name:      "extra",
		StartDate: testutil.Date(2030, 1, 1),
		EndDate:   testutil.Date(2030, 6, 1),
		Active:    true,
	})
	assert.ErrorIs(t, err, session.ErrActiveExists)

	err = env.Sessions.SetSessionActive(ctx, sch.ID, next.ID, true, env.Clock.Now())
	assert.ErrorIs(t, err, session.ErrActiveExists)
	assert.Equal(t, core.KindInvalidState, core.KindOf(err))
}

func TestPromotionRepository_FindPromotion(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	sch := testutil.CreateSchool(t, env, "Green Hills")
	s2023 := testutil.CreateSession(t, env, sch.ID, 2023, true)
	c10a := testutil.CreateClass(t, env, sch.ID, s2023.ID, "10A")
	testutil.CreateStudent(t, env, sch.ID, "PAN001", &c10a)
	p := testutil.Assign(t, env, promotion.NewPromotion{
		StudentPAN: "PAN001", SchoolID: sch.ID, FromSessionID: s2023.ID, IsDetained: true,
	})

	got, err := env.Promotions.FindPromotion(ctx, sch.ID, s2023.ID, "PAN001")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = env.Promotions.FindPromotion(ctx, sch.ID, s2023.ID, "PAN002")
	assert.ErrorIs(t, err, promotion.ErrNotFound)
	var cErr *core.Error
	require.True(t, errors.As(err, &cErr))
	assert.Equal(t, map[string]string{
		"school_id":   sch.ID,
		"session_id":  s2023.ID,
		"student_pan": "PAN002",
	}, cErr.IDMap())
}
