package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
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

func setup(t *testing.T, answers string) (*commandLine, *bytes.Buffer) {
	conf := &core.Config{AppName: "Academia", Store: core.StoreMemory, Lock: core.LockConfig{Wait: time.Second}}
	app, err := shared.NewApp(context.Background(), conf, &testutil.Logger{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	var out bytes.Buffer
	return &commandLine{app: app, in: strings.NewReader(answers), out: &out}, &out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func runCLITests(t *testing.T, cli *commandLine, tests []cliTest) {
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.wantErrStr != "":
				require.Error(t, err)
				assert.Equal(t, tt.wantErrStr, err.Error())
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func Test_commandLine_help(t *testing.T) {
	cli, out := setup(t, "")
	runCLITests(t, cli, []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "school without name", args: []string{"school"}, wantErr: errHelp},
		{name: "promote without sessions", args: []string{"promote", "-school", "x"}, wantErr: errHelp},
	})
	assert.Contains(t, out.String(), "Usage:")
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t, "")

	defer func(f func(*shared.App, string, ...string) error) { migrateFunc = f }(migrateFunc)
	migrateFunc = func(_ *shared.App, command string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	runCLITests(t, cli, []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "status", args: []string{"migrate", "status"}},
	})
}

func Test_commandLine_migrate_memoryStore(t *testing.T) {
	cli, _ := setup(t, "")
	err := cli.run([]string{"admin", "migrate", "up"})
	assert.True(t, errors.Is(err, shared.ErrNoDatabase))
}

func Test_commandLine_sessions(t *testing.T) {
	cli, out := setup(t, "")
	ctx := context.Background()

	require.NoError(t, cli.run([]string{"admin", "school", "-name", "Green Hills"}))
	schools, err := cli.app.SchoolSvc.Query(ctx)
	require.NoError(t, err)
	require.Len(t, schools, 1)
	sch := schools[0]
	assert.Contains(t, out.String(), sch.ID)

	sess, err := cli.app.SessionSvc.Create(ctx, session.NewSession{
		SchoolID:  sch.ID,
		Name:      "2023-2024",
		StartDate: testutil.Date(2023, time.September, 1),
		EndDate:   testutil.Date(2024, time.June, 30),
	})
	require.NoError(t, err)
	_, err = cli.app.ClassSvc.Create(ctx, class.NewClass{SchoolID: sch.ID, SessionID: sess.ID, Label: "10A"})
	require.NoError(t, err)

	runCLITests(t, cli, []cliTest{
		{name: "activate unknown session", args: []string{"activate", "-school", sch.ID, "-session", "nope"}, wantErr: session.ErrNotFound},
		{name: "activate", args: []string{"activate", "-school", sch.ID, "-session", sess.ID}},
		{name: "suggest", args: []string{"suggest", "-school", sch.ID, "-session", sess.ID, "-label", "10 a"}},
		{name: "deactivate", args: []string{"deactivate", "-school", sch.ID}},
	})
	assert.Contains(t, out.String(), "10-A\n")

	_, err = cli.app.SessionSvc.GetCurrent(ctx, sch.ID)
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
}

func Test_commandLine_promote(t *testing.T) {
	ctx := context.Background()
	prepare := func(t *testing.T, answers string) (*commandLine, *bytes.Buffer, []string) {
		cli, out := setup(t, answers)
		app := cli.app

		sch, err := app.SchoolSvc.Create(ctx, school.NewSchool{Name: "Green Hills"})
		require.NoError(t, err)
		sessions := make([]session.Session, 0, 2)
		for i, year := range []int{2023, 2024} {
			sess, err := app.SessionSvc.Create(ctx, session.NewSession{
				SchoolID:  sch.ID,
				Name:      fmt.Sprintf("%d-%d", year, year+1),
				StartDate: testutil.Date(year, time.September, 1),
				EndDate:   testutil.Date(year+1, time.June, 30),
				Active:    i == 0,
			})
			require.NoError(t, err)
			sessions = append(sessions, sess)
		}
		c10a, err := app.ClassSvc.Create(ctx, class.NewClass{SchoolID: sch.ID, SessionID: sessions[0].ID, Label: "10A"})
		require.NoError(t, err)
		c11a, err := app.ClassSvc.Create(ctx, class.NewClass{SchoolID: sch.ID, SessionID: sessions[1].ID, Label: "11A"})
		require.NoError(t, err)
		_, err = app.StudentSvc.Create(ctx, student.NewStudent{PAN: "PAN001", SchoolID: sch.ID, Name: "Ada"})
		require.NoError(t, err)
		_, err = app.EnrollmentSvc.Enroll(ctx, enrollment.NewEnrollment{
			StudentPAN: "PAN001", SchoolID: sch.ID, SessionID: sessions[0].ID, ClassID: c10a.ID,
		})
		require.NoError(t, err)
		_, err = app.PromotionSvc.Assign(ctx, testutil.Teacher, promotion.NewPromotion{
			StudentPAN: "PAN001", SchoolID: sch.ID, FromSessionID: sessions[0].ID, ToClassID: c11a.ID,
		})
		require.NoError(t, err)

		return cli, out, []string{"admin", "promote", "-school", sch.ID, "-from", sessions[0].ID, "-to", sessions[1].ID}
	}

	defer func(f func(int) bool) { isTerminalFunc = f }(isTerminalFunc)

	t.Run("aborted", func(t *testing.T) {
		isTerminalFunc = func(int) bool { return true }
		cli, out, args := prepare(t, "n\n")
		assert.Equal(t, errAborted, cli.run(args))
		assert.Contains(t, out.String(), "[y/N]")
		assert.NotContains(t, out.String(), "promoted:")
	})

	t.Run("confirmed", func(t *testing.T) {
		isTerminalFunc = func(int) bool { return true }
		cli, out, args := prepare(t, "yes\n")
		require.NoError(t, cli.run(args))
		assert.Contains(t, out.String(), "promoted: 1\n")
	})

	t.Run("not a terminal, with report", func(t *testing.T) {
		isTerminalFunc = func(int) bool { return false }
		cli, out, args := prepare(t, "")
		path := filepath.Join(t.TempDir(), "report.xlsx")
		require.NoError(t, cli.run(append(args, "-xlsx", path)))
		assert.Contains(t, out.String(), "promoted: 1\n")

		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.NotZero(t, info.Size())

		// nothing left to do
		out.Reset()
		require.NoError(t, cli.run(append(args, "-yes")))
		assert.Contains(t, out.String(), "skipped: 1\n")
	})
}
