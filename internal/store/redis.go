package store

import (
	"context"
	"errors"
	"fmt"

	"backend-tiket/internal/queue"

	"github.com/redis/go-redis/v9"
)

// Key layout:
//
//	branch:{id}:counter  last issued number (INCR)
//	branch:{id}:waiting  list of waiting numbers, head is next to call
func counterKey(branchID string) string { return fmt.Sprintf("branch:%s:counter", branchID) }
func waitingKey(branchID string) string { return fmt.Sprintf("branch:%s:waiting", branchID) }

// issueScript takes a number and enqueues it atomically, so numbers enter
// the list in the order they were handed out even with several servers.
var issueScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
local length = redis.call('RPUSH', KEYS[2], n)
return {n, length}
`)

var rewindScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	redis.call('DECR', KEYS[1])
	return 1
end
return 0
`)

// Redis backs both the sequence and the wait queue. Command timeouts come
// from the client options, so no call blocks indefinitely.
type Redis struct {
	rdb redis.Cmdable
}

var (
	_ queue.Store        = (*Redis)(nil)
	_ queue.AtomicIssuer = (*Redis)(nil)
)

func NewRedis(rdb redis.Cmdable) *Redis {
	return &Redis{rdb: rdb}
}

func (r *Redis) Next(ctx context.Context, branchID string) (int64, error) {
	n, err := r.rdb.Incr(ctx, counterKey(branchID)).Result()
	if err != nil {
		return 0, queue.Unavailable("incr", err)
	}
	return n, nil
}

// IssueNext is what the coordinator uses on Redis. A timed-out call may
// still have been applied; the number is then skipped, never reused.
func (r *Redis) IssueNext(ctx context.Context, branchID string) (int64, int64, error) {
	res, err := issueScript.Run(ctx, r.rdb, []string{counterKey(branchID), waitingKey(branchID)}).Int64Slice()
	if err != nil {
		return 0, 0, queue.Unavailable("issue", err)
	}
	if len(res) != 2 {
		return 0, 0, queue.Unavailable("issue", fmt.Errorf("unexpected reply %v", res))
	}
	return res[0], res[1], nil
}

func (r *Redis) Rewind(ctx context.Context, branchID string, n int64) (bool, error) {
	res, err := rewindScript.Run(ctx, r.rdb, []string{counterKey(branchID)}, n).Int()
	if err != nil {
		return false, queue.Unavailable("rewind", err)
	}
	return res == 1, nil
}

// PushBack relies on RPUSH returning the new length, so the count can never
// include another caller's push.
func (r *Redis) PushBack(ctx context.Context, branchID string, n int64) (int64, error) {
	length, err := r.rdb.RPush(ctx, waitingKey(branchID), n).Result()
	if err != nil {
		return 0, queue.Unavailable("rpush", err)
	}
	return length, nil
}

func (r *Redis) PopFront(ctx context.Context, branchID string) (int64, int64, bool, error) {
	key := waitingKey(branchID)

	var (
		pop    *redis.StringCmd
		length *redis.IntCmd
	)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pop = pipe.LPop(ctx, key)
		length = pipe.LLen(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, false, queue.Unavailable("lpop", err)
	}

	n, err := pop.Int64()
	if errors.Is(err, redis.Nil) {
		return 0, 0, false, nil
	}
	if err != nil {
		return 0, 0, false, queue.Unavailable("lpop", err)
	}
	return n, length.Val(), true, nil
}

func (r *Redis) Length(ctx context.Context, branchID string) (int64, error) {
	n, err := r.rdb.LLen(ctx, waitingKey(branchID)).Result()
	if err != nil {
		return 0, queue.Unavailable("llen", err)
	}
	return n, nil
}
