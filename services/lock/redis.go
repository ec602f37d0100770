package locksvc

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/academia/core"
)

const retryInterval = 50 * time.Millisecond

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every process using the same Redis: SET NX PX with a random token.
// A holder that dies keeps the lock at most ttl.
type Redis struct {
	client *redis.Client
	prefix string
	wait   time.Duration
	ttl    time.Duration
	logger core.Logger
}

var _ core.Locker = (*Redis)(nil)

func NewRedis(client *redis.Client, prefix string, wait, ttl time.Duration, logger core.Logger) *Redis {
	return &Redis{client: client, prefix: prefix, wait: wait, ttl: ttl, logger: logger}
}

// NewRedisClient connects to the Redis of conf and checks it answers.
func NewRedisClient(ctx context.Context, conf core.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     conf.Addr,
		Password: conf.Password,
		DB:       conf.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func (l *Redis) Acquire(ctx context.Context, key string) (func(), error) {
	key = l.prefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, errors.Wrapf(err, "acquiring %q", key)
		}
		if ok {
			return func() { l.release(key, token) }, nil
		}
		if time.Now().After(deadline) {
			return nil, errors.Wrapf(core.ErrLockTimeout, "acquiring %q", key)
		}

		select {
		case <-time.After(retryInterval):
		case <-ctx.Done():
			return nil, errors.Wrapf(ctx.Err(), "acquiring %q", key)
		}
	}
}

func (l *Redis) release(key, token string) {
	// release even when the caller's ctx is done
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
		l.logger.Error("releasing lock", err, map[string]interface{}{"key": key})
	}
}
