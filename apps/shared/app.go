package shared

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

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

var ErrNoDatabase = errors.New("the memory store has no database")

// lock settings used when the Config leaves them unset
const (
	DefaultLockWait = 5 * time.Second
	DefaultLockTTL  = 30 * time.Second
)

type (
	// App holds the services of one process, wired on the store and locker chosen by the Config.
	App struct {
		Conf   *core.Config
		Logger core.Logger
		DB     *sqlx.DB // nil on the memory store
		Locker core.Locker

		SchoolSvc     *school.Service
		SessionSvc    *session.Service
		ClassSvc      *class.Service
		StudentSvc    *student.Service
		EnrollmentSvc *enrollment.Service
		PromotionSvc  *promotion.Service
		Executor      *promotion.Executor

		redis *redis.Client
	}

	store struct {
		tx          core.Transactor
		schools     school.Repository
		sessions    session.Repository
		classes     class.Repository
		students    student.Repository
		enrollments enrollment.Repository
		promotions  promotion.Repository
	}
)

// NewApp opens the store and the locker of conf and wires every service on them.
func NewApp(ctx context.Context, conf *core.Config, logger core.Logger) (*App, error) {
	app := &App{Conf: conf, Logger: logger}

	var st store
	switch conf.Store {
	case core.StoreMemory:
		db := inmemdb.Open()
		st = store{
			tx:          db,
			schools:     inmemdb.NewSchoolRepository(db),
			sessions:    inmemdb.NewSessionRepository(db),
			classes:     inmemdb.NewClassRepository(db),
			students:    inmemdb.NewStudentRepository(db),
			enrollments: inmemdb.NewEnrollmentRepository(db),
			promotions:  inmemdb.NewPromotionRepository(db),
		}
	case core.StorePostgres:
		db, err := database.Open(conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening database")
		}
		app.DB = db
		sdb := sqlxrepos.New(db)
		st = store{
			tx:          sdb,
			schools:     sqlxrepos.NewSchoolRepository(sdb),
			sessions:    sqlxrepos.NewSessionRepository(sdb),
			classes:     sqlxrepos.NewClassRepository(sdb),
			students:    sqlxrepos.NewStudentRepository(sdb),
			enrollments: sqlxrepos.NewEnrollmentRepository(sdb),
			promotions:  sqlxrepos.NewPromotionRepository(sdb),
		}
	default:
		return nil, errors.Errorf("unknown store %q", conf.Store)
	}

	lockConf := conf.Lock
	if lockConf.Wait <= 0 {
		lockConf.Wait = DefaultLockWait
	}
	if lockConf.TTL <= 0 {
		lockConf.TTL = DefaultLockTTL
	}
	if conf.Redis.Addr != "" {
		client, err := locksvc.NewRedisClient(ctx, conf.Redis)
		if err != nil {
			_ = app.Close()
			return nil, errors.Wrap(err, "connecting to redis")
		}
		app.redis = client
		app.Locker = locksvc.NewRedis(client, conf.AppName+":lock:", lockConf.Wait, lockConf.TTL, logger)
	} else {
		app.Locker = locksvc.NewLocal(lockConf.Wait)
	}

	chunkSize := conf.Promotion.ChunkSize
	if chunkSize <= 0 {
		chunkSize = promotion.DefaultChunkSize
	}
	clock := core.SystemClock

	app.SchoolSvc = school.NewService(st.schools, clock)
	app.SessionSvc = session.NewService(st.tx, st.schools, st.sessions, app.Locker, clock, logger)
	app.ClassSvc = class.NewService(st.tx, st.sessions, st.classes, clock, logger)
	app.StudentSvc = student.NewService(st.tx, st.students, clock)
	app.EnrollmentSvc = enrollment.NewService(st.tx, st.students, st.sessions, st.classes, st.enrollments, clock)
	app.PromotionSvc = promotion.NewService(
		st.tx, app.Locker, st.sessions, st.classes, st.enrollments, st.promotions, clock, logger,
	)
	app.Executor = promotion.NewExecutor(
		st.tx, app.Locker, st.sessions, st.classes, st.enrollments, st.students, st.promotions,
		clock, logger, chunkSize,
	)
	return app, nil
}

// Migrate runs a goose command on the app's database.
func (app *App) Migrate(command string, args ...string) error {
	if app.DB == nil {
		return ErrNoDatabase
	}
	return database.Migrate(app.DB.DB, command, args...)
}

// Close releases the database and redis connections.
func (app *App) Close() error {
	var errs []error
	if app.redis != nil {
		if err := app.redis.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "closing redis"))
		}
	}
	if app.DB != nil {
		if err := app.DB.Close(); err != nil {
			errs = append(errs, errors.Wrap(err, "closing database"))
		}
	}
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}
