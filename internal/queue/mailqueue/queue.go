package mailqueue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/geocoder89/authhub/internal/jobs"
	"github.com/redis/go-redis/v9"
)

const DefaultKey = "authhub:mail"

// ErrEmpty is returned by Dequeue when nothing arrived before the timeout.
var ErrEmpty = errors.New("mail queue empty")

// Queue is a Redis list of job envelopes. Producers LPUSH, the worker BRPOPs,
// so delivery is FIFO. Failed jobs wait in a sorted set scored by the unix
// millisecond they become due and are moved back by PromoteDue.
type Queue struct {
	rdb     *redis.Client
	key     string
	delayed string
	now     func() time.Time
}

func New(rdb *redis.Client, key string) *Queue {
	if key == "" {
		key = DefaultKey
	}
	return &Queue{
		rdb:     rdb,
		key:     key,
		delayed: key + ":delayed",
		now:     time.Now,
	}
}

func (q *Queue) Enqueue(ctx context.Context, j jobs.Job) error {
	b, err := jobs.Marshal(j)
	if err != nil {
		return err
	}

	if err := q.rdb.LPush(ctx, q.key, b).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", q.key, err)
	}
	return nil
}

// Dequeue blocks up to timeout for the next job. Undecodable entries are
// returned as errors and are already off the list.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (jobs.Job, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return jobs.Job{}, ErrEmpty
		}
		return jobs.Job{}, fmt.Errorf("brpop %s: %w", q.key, err)
	}

	// res = [key, value]
	if len(res) != 2 {
		return jobs.Job{}, fmt.Errorf("brpop %s: unexpected reply length %d", q.key, len(res))
	}

	return jobs.Unmarshal([]byte(res[1]))
}

// Retry parks the job until delay has passed.
func (q *Queue) Retry(ctx context.Context, j jobs.Job, delay time.Duration) error {
	b, err := jobs.Marshal(j)
	if err != nil {
		return err
	}

	due := q.now().Add(delay).UnixMilli()

	if err := q.rdb.ZAdd(ctx, q.delayed, redis.Z{Score: float64(due), Member: b}).Err(); err != nil {
		return fmt.Errorf("zadd %s: %w", q.delayed, err)
	}
	return nil
}

// PromoteDue moves every due delayed job back onto the list and returns how
// many moved. Each member is removed before it is pushed, so two workers
// promoting at once never duplicate a job.
func (q *Queue) PromoteDue(ctx context.Context) (int, error) {
	max := strconv.FormatInt(q.now().UnixMilli(), 10)

	due, err := q.rdb.ZRangeByScore(ctx, q.delayed, &redis.ZRangeBy{Min: "-inf", Max: max}).Result()
	if err != nil {
		return 0, fmt.Errorf("zrangebyscore %s: %w", q.delayed, err)
	}

	moved := 0
	for _, member := range due {
		removed, err := q.rdb.ZRem(ctx, q.delayed, member).Result()
		if err != nil {
			return moved, fmt.Errorf("zrem %s: %w", q.delayed, err)
		}
		if removed == 0 {
			continue
		}

		if err := q.rdb.LPush(ctx, q.key, member).Err(); err != nil {
			return moved, fmt.Errorf("lpush %s: %w", q.key, err)
		}
		moved++
	}

	return moved, nil
}

func (q *Queue) Len(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, q.key).Result()
}

func (q *Queue) DelayedLen(ctx context.Context) (int64, error) {
	return q.rdb.ZCard(ctx, q.delayed).Result()
}
