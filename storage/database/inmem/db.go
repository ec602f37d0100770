package inmemdb

import (
	"context"
	"sync"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/class"
	"github.com/trezcool/academia/core/enrollment"
	"github.com/trezcool/academia/core/promotion"
	"github.com/trezcool/academia/core/school"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/student"
)

type (
	// DB is an in-process store. Transactions work on a copy of the tables that
	// replaces them on commit; a single writer runs at a time.
	DB struct {
		mu    sync.RWMutex
		state *tables
	}

	tables struct {
		schools     map[string]school.School
		sessions    map[string]session.Session
		classes     map[string]class.Class
		students    map[string]student.Student // by PAN
		enrollments map[string]enrollment.Enrollment
		promotions  map[string]promotion.Promotion
	}

	txKey struct{}

	tx struct {
		db    *DB
		state *tables
	}
)

var _ core.Transactor = (*DB)(nil)

func Open() *DB {
	return &DB{state: &tables{
		schools:     make(map[string]school.School),
		sessions:    make(map[string]session.Session),
		classes:     make(map[string]class.Class),
		students:    make(map[string]student.Student),
		enrollments: make(map[string]enrollment.Enrollment),
		promotions:  make(map[string]promotion.Promotion),
	}}
}

func (t *tables) clone() *tables {
	c := &tables{
		schools:     make(map[string]school.School, len(t.schools)),
		sessions:    make(map[string]session.Session, len(t.sessions)),
		classes:     make(map[string]class.Class, len(t.classes)),
		students:    make(map[string]student.Student, len(t.students)),
		enrollments: make(map[string]enrollment.Enrollment, len(t.enrollments)),
		promotions:  make(map[string]promotion.Promotion, len(t.promotions)),
	}
	for k, v := range t.schools {
		c.schools[k] = v
	}
	for k, v := range t.sessions {
		c.sessions[k] = v
	}
	for k, v := range t.classes {
		c.classes[k] = v
	}
	for k, v := range t.students {
		c.students[k] = v
	}
	for k, v := range t.enrollments {
		c.enrollments[k] = v
	}
	for k, v := range t.promotions {
		c.promotions[k] = v
	}
	return c
}

// InTx runs fn on a private copy of the tables, committed only if fn succeeds.
// A ctx already carrying a transaction of db runs fn in a savepoint of it.
func (db *DB) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if t := db.txFrom(ctx); t != nil {
		saved := t.state.clone()
		if err := fn(ctx); err != nil {
			t.state = saved
			return err
		}
		return nil
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	t := &tx{db: db, state: db.state.clone()}
	if err := fn(context.WithValue(ctx, txKey{}, t)); err != nil {
		return err
	}
	db.state = t.state
	return nil
}

func (db *DB) txFrom(ctx context.Context) *tx {
	if t, ok := ctx.Value(txKey{}).(*tx); ok && t.db == db {
		return t
	}
	return nil
}

// view runs a read on the transaction's tables, or on the committed ones.
func (db *DB) view(ctx context.Context, fn func(t *tables) error) error {
	if t := db.txFrom(ctx); t != nil {
		return fn(t.state)
	}
	db.mu.RLock()
	defer db.mu.RUnlock()
	return fn(db.state)
}

// update runs a write on the transaction's tables, or on the committed ones.
// Outside a transaction, fn must check everything before it mutates.
func (db *DB) update(ctx context.Context, fn func(t *tables) error) error {
	if t := db.txFrom(ctx); t != nil {
		return fn(t.state)
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	return fn(db.state)
}
