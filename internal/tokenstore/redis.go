package tokenstore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// Deletes KEYS[1] only if it still holds ARGV[1].
var removeIfCurrentScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis keeps one dashboard client's token under <namespace>:access_token.
// A positive ttl makes abandoned tokens expire on their own.
type Redis struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

func NewRedis(client redis.UniversalClient, namespace string, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		key:    namespace + ":" + AccessTokenKey,
		ttl:    ttl,
	}
}

func (r *Redis) Key() string {
	return r.key
}

func (r *Redis) Get(ctx context.Context) (string, bool, error) {
	token, err := r.client.Get(ctx, r.key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "error reading %s", r.key)
	}
	return token, true, nil
}

func (r *Redis) Set(ctx context.Context, token string) error {
	if err := r.client.Set(ctx, r.key, token, r.ttl).Err(); err != nil {
		return errors.Wrapf(err, "error writing %s", r.key)
	}
	return nil
}

func (r *Redis) Remove(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return errors.Wrapf(err, "error deleting %s", r.key)
	}
	return nil
}

func (r *Redis) RemoveIfCurrent(ctx context.Context, token string) (bool, error) {
	removed, err := removeIfCurrentScript.Run(ctx, r.client, []string{r.key}, token).Int()
	if err != nil {
		return false, errors.Wrapf(err, "error deleting %s", r.key)
	}
	return removed == 1, nil
}
