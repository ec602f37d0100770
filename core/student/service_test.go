package student_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/tests"
)

func TestService_Create(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	sch := testutil.CreateSchool(t, env, "Green Hills")
	other := testutil.CreateSchool(t, env, "Blue Lake")
	testutil.CreateStudent(t, env, sch.ID, "PAN001", nil)

	tests := []struct {
		name     string
		ns       student.NewStudent
		wantKind core.Kind
	}{
		{name: "ok", ns: student.NewStudent{PAN: " PAN002 ", SchoolID: sch.ID, Name: "Ada"}},
		{name: "PAN taken in another school", ns: student.NewStudent{PAN: "PAN001", SchoolID: other.ID, Name: "Bob"}, wantKind: core.KindAlreadyExists},
		{name: "PAN with symbols", ns: student.NewStudent{PAN: "PAN 003", SchoolID: sch.ID, Name: "Cy"}, wantKind: core.KindInvalidInput},
		{name: "blank name", ns: student.NewStudent{PAN: "PAN004", SchoolID: sch.ID, Name: "  "}, wantKind: core.KindInvalidInput},
		{name: "unknown school", ns: student.NewStudent{PAN: "PAN005", SchoolID: "nope", Name: "Di"}, wantKind: core.KindNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			std, err := env.StudentSvc.Create(ctx, tt.ns)
			if tt.wantKind != core.KindUnknown {
				assert.Equal(t, tt.wantKind, core.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "PAN002", std.PAN)
			assert.Equal(t, student.StatusActive, std.Status)
		})
	}
}

func TestService_Get(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	sch := testutil.CreateSchool(t, env, "Green Hills")
	other := testutil.CreateSchool(t, env, "Blue Lake")
	testutil.CreateStudent(t, env, sch.ID, "PAN001", nil)

	std, err := env.StudentSvc.Get(ctx, sch.ID, "PAN001")
	require.NoError(t, err)
	assert.Equal(t, sch.ID, std.SchoolID)

	_, err = env.StudentSvc.Get(ctx, other.ID, "PAN001")
	assert.ErrorIs(t, err, student.ErrNotFound)
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
}

func TestService_Query(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	sch := testutil.CreateSchool(t, env, "Green Hills")
	other := testutil.CreateSchool(t, env, "Blue Lake")
	testutil.CreateStudent(t, env, sch.ID, "PAN002", nil)
	testutil.CreateStudent(t, env, sch.ID, "PAN001", nil)
	testutil.CreateStudent(t, env, other.ID, "PAN003", nil)
	_, err := env.StudentSvc.SetStatus(ctx, sch.ID, "PAN002", student.StatusInactive)
	require.NoError(t, err)

	all, err := env.StudentSvc.Query(ctx, sch.ID, student.QueryFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "PAN001", all[0].PAN)
	assert.Equal(t, "PAN002", all[1].PAN)

	inactive, err := env.StudentSvc.Query(ctx, sch.ID, student.QueryFilter{Status: student.StatusInactive})
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.Equal(t, "PAN002", inactive[0].PAN)

	found, err := env.StudentSvc.Query(ctx, sch.ID, student.QueryFilter{Search: " pan001"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "PAN001", found[0].PAN)
}

func TestService_SetStatus(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	sch := testutil.CreateSchool(t, env, "Green Hills")
	testutil.CreateStudent(t, env, sch.ID, "PAN001", nil)

	std, err := env.StudentSvc.SetStatus(ctx, sch.ID, "PAN001", student.StatusGraduated)
	require.NoError(t, err)
	assert.Equal(t, student.StatusGraduated, std.Status)

	_, err = env.StudentSvc.SetStatus(ctx, sch.ID, "PAN001", "EXPELLED")
	assert.ErrorIs(t, err, student.ErrInvalidStatus)

	_, err = env.StudentSvc.SetStatus(ctx, sch.ID, "PAN404", student.StatusActive)
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
}

func TestNewService(t *testing.T) {
	env := testutil.NewEnv(t)
	assert.NotPanics(t, func() { student.NewService(env.Tx, env.Students, core.SystemClock) })
	assert.Panics(t, func() { student.NewService(env.Tx, nil, core.SystemClock) })
}
