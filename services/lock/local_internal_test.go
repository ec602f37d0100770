package locksvc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocal_forgetsIdleKeys(t *testing.T) {
	l := NewLocal(time.Second)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "school:1:sessions")
	require.NoError(t, err)
	assert.Len(t, l.keys, 1)
	release()
	release()
	assert.Empty(t, l.keys)

	// a timed out waiter does not pin the key
	release, err = l.Acquire(ctx, "school:1:sessions")
	require.NoError(t, err)
	cctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = l.Acquire(cctx, "school:1:sessions")
	require.Error(t, err)
	assert.Equal(t, 1, l.keys["school:1:sessions"].refs)
	release()
	assert.Empty(t, l.keys)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := "school:1:sessions"
			if i%2 == 0 {
				key = "school:2:sessions"
			}
			release, err := l.Acquire(ctx, key)
			if assert.NoError(t, err) {
				release()
			}
		}(i)
	}
	wg.Wait()
	assert.Empty(t, l.keys)
}
