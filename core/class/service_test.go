package class_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/tests"
)

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	sch := testutil.CreateSchool(t, env, "Green Hills")
	sess := testutil.CreateSession(t, env, sch.ID, 2023, true)
	next := testutil.CreateSession(t, env, sch.ID, 2024, false)

	cls, err := env.ClassSvc.Create(ctx, class.NewClass{SchoolID: sch.ID, SessionID: sess.ID, Label: "10a"})
	require.NoError(t, err)
	assert.Equal(t, "10-A", cls.Name)
	assert.Equal(t, "10", cls.Grade)
	assert.Equal(t, "A", cls.Section)

	tests := []struct {
		name     string
		nc       class.NewClass
		wantKind core.Kind
		wantName string
	}{
		{name: "same name, other spelling", nc: class.NewClass{SchoolID: sch.ID, SessionID: sess.ID, Label: "10 - a"}, wantKind: core.KindDuplicateName},
		{name: "blank label", nc: class.NewClass{SchoolID: sch.ID, SessionID: sess.ID, Label: " "}, wantKind: core.KindInvalidInput},
		{name: "unknown session", nc: class.NewClass{SchoolID: sch.ID, SessionID: "nope", Label: "10A"}, wantKind: core.KindNotFound},
		{name: "same name, next session", nc: class.NewClass{SchoolID: sch.ID, SessionID: next.ID, Label: "10A"}, wantName: "10-A"},
		{name: "periods", nc: class.NewClass{SchoolID: sch.ID, SessionID: sess.ID, Label: "L.K.G.-A"}, wantName: "L.K.G.-A"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls, err := env.ClassSvc.Create(ctx, tt.nc)
			if tt.wantKind != core.KindUnknown {
				assert.Equal(t, tt.wantKind, core.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, cls.Name)
		})
	}
}

func TestService_Create_fallbackWarns(t *testing.T) {
	env := testutil.NewEnv(t)
	sch := testutil.CreateSchool(t, env, "Green Hills")
	sess := testutil.CreateSession(t, env, sch.ID, 2023, true)

	cls := testutil.CreateClass(t, env, sch.ID, sess.ID, "Grade 10 Science")
	assert.Equal(t, "GRADE 10 SCIENCE-A", cls.Name)
	assert.Equal(t, 1, env.Logger.Count("WARN"))
}

func TestService_GetByLabel(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	sch := testutil.CreateSchool(t, env, "Green Hills")
	sess := testutil.CreateSession(t, env, sch.ID, 2023, true)
	want := testutil.CreateClass(t, env, sch.ID, sess.ID, "10-A")
	testutil.CreateClass(t, env, sch.ID, sess.ID, "10-B")

	got, err := env.ClassSvc.GetByLabel(ctx, sch.ID, sess.ID, "10a")
	require.NoError(t, err)
	assert.Equal(t, want.ID, got.ID)

	_, err = env.ClassSvc.GetByLabel(ctx, sch.ID, sess.ID, "10C")
	assert.ErrorIs(t, err, class.ErrNotFound)
	var cErr *core.Error
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, "10-A, 10-B", cErr.IDMap()["did_you_mean"])

	names, err := env.ClassSvc.Suggest(ctx, sch.ID, sess.ID, "10 b", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"10-B"}, names)
}

func TestService_Delete(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	sch := testutil.CreateSchool(t, env, "Green Hills")
	sess := testutil.CreateSession(t, env, sch.ID, 2023, true)
	used := testutil.CreateClass(t, env, sch.ID, sess.ID, "10A")
	unused := testutil.CreateClass(t, env, sch.ID, sess.ID, "10B")
	testutil.CreateStudent(t, env, sch.ID, "PAN001", &used)

	err := env.ClassSvc.Delete(ctx, sch.ID, used.ID)
	assert.Equal(t, core.KindInvalidReference, core.KindOf(err))
	assert.ErrorIs(t, err, class.ErrInUse)

	require.NoError(t, env.ClassSvc.Delete(ctx, sch.ID, unused.ID))
	classes, err := env.ClassSvc.Query(ctx, sch.ID, sess.ID)
	require.NoError(t, err)
	require.Len(t, classes, 1)
	assert.Equal(t, used.ID, classes[0].ID)
}
