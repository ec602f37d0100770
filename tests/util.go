package testutil

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/promotion"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/student"
	"github.com/trezcool/academia/services/lock"
	"github.com/trezcool/academia/storage/database"
	"github.com/trezcool/academia/storage/database/inmem"
	"github.com/trezcool/academia/storage/database/sqlx"
)

// Entry is a message recorded by Logger.
type Entry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger records log entries instead of printing them.
type Logger struct {
	mu      sync.Mutex
	Entries []Entry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Entries = append(l.Entries, Entry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("DEBUG", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("INFO", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("WARN", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("ERROR", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("FATAL", msg, args) }

// Count returns the number of entries logged at level.
func (l *Logger) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.Entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// Env wires every service of the core on one store.
type Env struct {
	Tx          core.Transactor
	Schools     school.Repository
	Sessions    session.Repository
	Classes     class.Repository
	Students    student.Repository
	Enrollments enrollment.Repository
	Promotions  promotion.Repository
	Locker      core.Locker
	Logger      *Logger
	Clock       core.Clock

	SchoolSvc     *school.Service
	SessionSvc    *session.Service
	ClassSvc      *class.Service
	StudentSvc    *student.Service
	EnrollmentSvc *enrollment.Service
	PromotionSvc  *promotion.Service
	Executor      *promotion.Executor
}

// Teacher is the actor tests assign decisions as.
var Teacher = core.Actor{ID: "teacher-1", Name: "T. Teacher", Roles: []string{"teacher"}}

// NewEnv returns an Env on a fresh in-memory store.
func NewEnv(t *testing.T, chunkSize ...int) *Env {
	db := inmemdb.Open()
	env := &Env{
		Tx:          db,
		Schools:     inmemdb.NewSchoolRepository(db),
		Sessions:    inmemdb.NewSessionRepository(db),
		Classes:     inmemdb.NewClassRepository(db),
		Students:    inmemdb.NewStudentRepository(db),
		Enrollments: inmemdb.NewEnrollmentRepository(db),
		Promotions:  inmemdb.NewPromotionRepository(db),
	}
	return env.wire(chunkSize)
}

// NewPostgresEnv returns an Env on the database of TEST_DATABASE_URL, migrated and emptied.
// The test is skipped when the variable is not set.
func NewPostgresEnv(t *testing.T, chunkSize ...int) *Env {
	db := PrepareDB(t)
	sdb := sqlxrepos.New(db)
	env := &Env{
		Tx:          sdb,
		Schools:     sqlxrepos.NewSchoolRepository(sdb),
		Sessions:    sqlxrepos.NewSessionRepository(sdb),
		Classes:     sqlxrepos.NewClassRepository(sdb),
		Students:    sqlxrepos.NewStudentRepository(sdb),
		Enrollments: sqlxrepos.NewEnrollmentRepository(sdb),
		Promotions:  sqlxrepos.NewPromotionRepository(sdb),
	}
	return env.wire(chunkSize)
}

func (env *Env) wire(chunkSize []int) *Env {
	size := promotion.DefaultChunkSize
	if len(chunkSize) > 0 {
		size = chunkSize[0]
	}
	env.Locker = locksvc.NewLocal(2 * time.Second)
	env.Logger = &Logger{}
	env.Clock = core.SystemClock

	env.SchoolSvc = school.NewService(env.Schools, env.Clock)
	env.SessionSvc = session.NewService(env.Tx, env.Schools, env.Sessions, env.Locker, env.Clock, env.Logger)
	env.ClassSvc = class.NewService(env.Tx, env.Sessions, env.Classes, env.Clock, env.Logger)
	env.StudentSvc = student.NewService(env.Tx, env.Students, env.Clock)
	env.EnrollmentSvc = enrollment.NewService(env.Tx, env.Students, env.Sessions, env.Classes, env.Enrollments, env.Clock)
	env.PromotionSvc = promotion.NewService(
		env.Tx, env.Locker, env.Sessions, env.Classes, env.Enrollments, env.Promotions, env.Clock, env.Logger,
	)
	env.Executor = promotion.NewExecutor(
		env.Tx, env.Locker, env.Sessions, env.Classes, env.Enrollments, env.Students, env.Promotions,
		env.Clock, env.Logger, size,
	)
	return env
}

// NewExecutor returns an executor on env that writes enrollments through enrollments.
func (env *Env) NewExecutor(enrollments enrollment.Repository, chunkSize int) *promotion.Executor {
	return promotion.NewExecutor(
		env.Tx, env.Locker, env.Sessions, env.Classes, enrollments, env.Students, env.Promotions,
		env.Clock, env.Logger, chunkSize,
	)
}

// StaleEnrollments misses every enrollment on lookup, like a reader racing a concurrent enrollment.
type StaleEnrollments struct {
	enrollment.Repository
}

func (StaleEnrollments) FindEnrollment(_ context.Context, schoolID, sessionID, pan string) (enrollment.Enrollment, error) {
	return enrollment.Enrollment{}, enrollment.NotFound(schoolID, sessionID, pan)
}

// PrepareDB connects to TEST_DATABASE_URL, migrates it and empties every table.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Fatalf("PrepareDB() connect failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db.DB, "up"); err != nil {
		t.Fatalf("PrepareDB() migrate failed: %v", err)
	}
	if _, err = db.Exec(`TRUNCATE promotion, enrollment, student, class, session, school`); err != nil {
		t.Fatalf("PrepareDB() truncate failed: %v", err)
	}
	return db
}

// Date returns midnight UTC of the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func CreateSchool(t *testing.T, env *Env, name string) school.School {
	t.Helper()
	sch, err := env.SchoolSvc.Create(context.Background(), school.NewSchool{Name: name})
	if err != nil {
		t.Fatalf("CreateSchool() failed: %v", err)
	}
	return sch
}

// CreateSession creates the session running from Sep 1 of year to Jun 30 of the next year.
func CreateSession(t *testing.T, env *Env, schoolID string, year int, active bool) session.Session {
	t.Helper()
	sess, err := env.SessionSvc.Create(context.Background(), session.NewSession{
		SchoolID:  schoolID,
		Name:      fmt.Sprintf("%d-%d", year, year+1),
		StartDate: Date(year, time.September, 1),
		EndDate:   Date(year+1, time.June, 30),
		Active:    active,
	})
	if err != nil {
		t.Fatalf("CreateSession() failed: %v", err)
	}
	return sess
}

func CreateClass(t *testing.T, env *Env, schoolID, sessionID, label string) class.Class {
	t.Helper()
	cls, err := env.ClassSvc.Create(context.Background(), class.NewClass{
		SchoolID:  schoolID,
		SessionID: sessionID,
		Label:     label,
	})
	if err != nil {
		t.Fatalf("CreateClass() failed: %v", err)
	}
	return cls
}

// CreateStudent creates the student and enrolls it in cls when cls is not nil.
func CreateStudent(t *testing.T, env *Env, schoolID, pan string, cls *class.Class) student.Student {
	t.Helper()
	ctx := context.Background()
	std, err := env.StudentSvc.Create(ctx, student.NewStudent{PAN: pan, SchoolID: schoolID, Name: "Student " + pan})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	if cls != nil {
		Enroll(t, env, pan, *cls)
	}
	return std
}

func Enroll(t *testing.T, env *Env, pan string, cls class.Class) enrollment.Enrollment {
	t.Helper()
	enr, err := env.EnrollmentSvc.Enroll(context.Background(), enrollment.NewEnrollment{
		StudentPAN: pan,
		SchoolID:   cls.SchoolID,
		SessionID:  cls.SessionID,
		ClassID:    cls.ID,
	})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return enr
}

func Assign(t *testing.T, env *Env, np promotion.NewPromotion) promotion.Promotion {
	t.Helper()
	p, err := env.PromotionSvc.Assign(context.Background(), Teacher, np)
	if err != nil {
		t.Fatalf("Assign() failed: %v", err)
	}
	return p
}
