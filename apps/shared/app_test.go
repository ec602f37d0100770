package shared_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/apps/shared"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/promotion"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/tests"
)

func newApp(t *testing.T, conf *core.Config) *shared.App {
	app, err := shared.NewApp(context.Background(), conf, &testutil.Logger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func TestNewApp_memoryStore(t *testing.T) {
	app := newApp(t, &core.Config{AppName: "Academia", Store: core.StoreMemory})
	ctx := context.Background()
	assert.Nil(t, app.DB)
	assert.ErrorIs(t, app.Migrate("up"), shared.ErrNoDatabase)

	sch, err := app.SchoolSvc.Create(ctx, school.NewSchool{Name: "Green Hills"})
	require.NoError(t, err)
	s2023, err := app.SessionSvc.Create(ctx, session.NewSession{
		SchoolID: sch.ID, Name: "2023-2024", Active: true,
		StartDate: testutil.Date(2023, time.September, 1), EndDate: testutil.Date(2024, time.June, 30),
	})
	require.NoError(t, err)
	s2024, err := app.SessionSvc.Create(ctx, session.NewSession{
		SchoolID: sch.ID, Name: "2024-2025",
		StartDate: testutil.Date(2024, time.September, 1), EndDate: testutil.Date(2025, time.June, 30),
	})
	require.NoError(t, err)
	c10a, err := app.ClassSvc.Create(ctx, class.NewClass{SchoolID: sch.ID, SessionID: s2023.ID, Label: "10A"})
	require.NoError(t, err)
	c11a, err := app.ClassSvc.Create(ctx, class.NewClass{SchoolID: sch.ID, SessionID: s2024.ID, Label: "11A"})
	require.NoError(t, err)
	_, err = app.StudentSvc.Create(ctx, student.NewStudent{PAN: "PAN001", SchoolID: sch.ID, Name: "Ada"})
	require.NoError(t, err)
	_, err = app.EnrollmentSvc.Enroll(ctx, enrollment.NewEnrollment{
		StudentPAN: "PAN001", SchoolID: sch.ID, SessionID: s2023.ID, ClassID: c10a.ID,
	})
	require.NoError(t, err)
	_, err = app.PromotionSvc.Assign(ctx, testutil.Teacher, promotion.NewPromotion{
		StudentPAN: "PAN001", SchoolID: sch.ID, FromSessionID: s2023.ID, ToClassID: c11a.ID,
	})
	require.NoError(t, err)

	rep, err := app.Executor.Execute(ctx, testutil.Teacher, sch.ID, s2023.ID, s2024.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Promoted)

	cls, err := app.EnrollmentSvc.CurrentClass(ctx, sch.ID, "PAN001")
	require.NoError(t, err)
	assert.Equal(t, c10a.ID, cls.ID) // the source session is still the active one
}

func TestNewApp_lockDefaults(t *testing.T) {
	app := newApp(t, &core.Config{AppName: "Academia", Store: core.StoreMemory})
	ctx := context.Background()

	release, err := app.Locker.Acquire(ctx, "school:1:sessions")
	require.NoError(t, err)
	defer release()

	// an unset wait does not give up at once
	cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = app.Locker.Acquire(cctx, "school:1:sessions")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewApp_unknownStore(t *testing.T) {
	_, err := shared.NewApp(context.Background(), &core.Config{Store: "mongo"}, &testutil.Logger{})
	require.Error(t, err)
	assert.Equal(t, `unknown store "mongo"`, err.Error())
}

func TestNewApp_redisLocker(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	app := newApp(t, &core.Config{
		AppName: "Academia",
		Store:   core.StoreMemory,
		Redis:   core.RedisConfig{Addr: addr},
	})

	release, err := app.Locker.Acquire(context.Background(), "school:1:sessions")
	require.NoError(t, err)
	release()
}
