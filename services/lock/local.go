package locksvc

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
)

type (
	// Local is an in-process Locker: one buffered channel per key acts as its mutex.
	// A key is forgotten once nobody holds or waits for it.
	Local struct {
		mu   sync.Mutex
		keys map[string]*slot
		wait time.Duration
	}

	slot struct {
		ch   chan struct{}
		refs int // holder and waiters
	}
)

var _ core.Locker = (*Local)(nil)

// NewLocal returns a Locker whose Acquire gives up after wait (ErrLockTimeout).
func NewLocal(wait time.Duration) *Local {
	return &Local{keys: make(map[string]*slot), wait: wait}
}

func (l *Local) ref(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.keys[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.keys[key] = s
	}
	s.refs++
	return s
}

func (l *Local) unref(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.keys, key)
	}
}

func (l *Local) Acquire(ctx context.Context, key string) (func(), error) {
	s := l.ref(key)
	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case s.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-s.ch
				l.unref(key, s)
			})
		}, nil
	case <-timer.C:
		l.unref(key, s)
		return nil, errors.Wrapf(core.ErrLockTimeout, "acquiring %q", key)
	case <-ctx.Done():
		l.unref(key, s)
		return nil, errors.Wrapf(ctx.Err(), "acquiring %q", key)
	}
}
