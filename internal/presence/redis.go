package presence

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	onlineSetKey   = "online_users"
	presenceKeyFmt = "presence:%s"

	// DefaultTTL is how long a user stays online without a refresh
	DefaultTTL = 90 * time.Second
)

// Redis keeps the online set in a Redis SET so several server instances
// share it. Each member also has a presence:<id> key with a TTL; members
// whose key expired (a crashed instance stops refreshing) are pruned on read.
type Redis struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisClient parses a redis:// URL and checks the connection
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, key: onlineSetKey, ttl: ttl}
}

func presenceKey(userID string) string {
	return fmt.Sprintf(presenceKeyFmt, userID)
}

// Add marks userID online, or extends its TTL if it already is
func (r *Redis) Add(ctx context.Context, userID string) error {
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, presenceKey(userID), time.Now().Unix(), r.ttl)
	pipe.SAdd(ctx, r.key, userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add presence: %w", err)
	}
	return nil
}

func (r *Redis) Remove(ctx context.Context, userID string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, presenceKey(userID))
	pipe.SRem(ctx, r.key, userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to remove presence: %w", err)
	}
	return nil
}

func (r *Redis) Members(ctx context.Context) ([]string, error) {
	ids, err := r.client.SMembers(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get online users: %w", err)
	}
	if len(ids) == 0 {
		return ids, nil
	}

	pipe := r.client.Pipeline()
	checks := make([]*redis.IntCmd, len(ids))
	for i, id := range ids {
		checks[i] = pipe.Exists(ctx, presenceKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to check presence keys: %w", err)
	}

	alive := make([]string, 0, len(ids))
	var expired []interface{}
	for i, id := range ids {
		if checks[i].Val() > 0 {
			alive = append(alive, id)
		} else {
			expired = append(expired, id)
		}
	}
	if len(expired) > 0 {
		if err := r.client.SRem(ctx, r.key, expired...).Err(); err != nil {
			return nil, fmt.Errorf("failed to prune expired presence: %w", err)
		}
	}

	sort.Strings(alive)
	return alive, nil
}
