package core

import (
	"context"
	"time"
)

type (
	// Transactor runs fn inside a single store transaction.
	// The ctx handed to fn carries the transaction; repositories called with it join the transaction.
	// Calling InTx with a ctx that already carries a transaction of the same store runs fn in a savepoint:
	// when fn fails, only its writes are undone and the outer transaction goes on.
	Transactor interface {
		InTx(ctx context.Context, fn func(ctx context.Context) error) error
	}

	// Locker serializes work on a logical aggregate (eg. a school's sessions).
	Locker interface {
		// Acquire blocks until key is held, ctx is done or the locker's wait elapses (ErrLockTimeout).
		Acquire(ctx context.Context, key string) (release func(), err error)
	}

	Clock interface {
		Now() time.Time
	}
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// SystemClock returns the current UTC time.
var SystemClock Clock = &systemClock{}
