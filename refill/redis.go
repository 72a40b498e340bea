package refill

import (
	"context"
	"encoding/json"

	redis "github.com/redis/go-redis/v9"

	"github.com/viant/xfer/rpc"
	"github.com/viant/xfer/transfer"
)

// Descriptor is the JSON-encoded submission descriptor RedisQueue pops:
// just enough to materialize a transfer.HTTP (spec §4.5.1 "URL + method +
// body template").
type Descriptor struct {
	URL         string `json:"url"`
	Method      string `json:"method,omitempty"`
	Body        string `json:"body,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

// ToTransfer materializes the descriptor into a ready-to-submit Transfer.
func (d Descriptor) ToTransfer() (*transfer.HTTP, error) {
	var opts []transfer.Option
	if d.Method != "" {
		opts = append(opts, transfer.WithMethod(d.Method))
	}
	if d.Body != "" {
		opts = append(opts, transfer.WithBody(d.Body, d.ContentType))
	}
	return transfer.NewHTTP(d.URL, opts...)
}

// RedisQueue is a Redis-backed RefillSource (spec §4.5.1): an external work
// list an application drains descriptors from, independent of the Engine's
// own in-process backlog/delay-queue state.
type RedisQueue struct {
	rdb *redis.Client
	key string
}

// NewRedisQueue returns a queue reading/writing the Redis list at key
// (default "xfer:backlog").
func NewRedisQueue(rdb *redis.Client, key string) *RedisQueue {
	if key == "" {
		key = "xfer:backlog"
	}
	return &RedisQueue{rdb: rdb, key: key}
}

// Push appends a descriptor to the tail of the upstream list.
func (q *RedisQueue) Push(ctx context.Context, d Descriptor) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return q.rdb.RPush(ctx, q.key, data).Err()
}

// Next pops one descriptor from the head of the list, returning (nil, nil)
// once the list is empty.
func (q *RedisQueue) Next(ctx context.Context) (*Descriptor, error) {
	raw, err := q.rdb.LPop(ctx, q.key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	d := &Descriptor{}
	if err := json.Unmarshal(raw, d); err != nil {
		return nil, err
	}
	return d, nil
}

// Hook returns an engine.RefillHook that drains descriptors until either the
// list is empty or the backlog reaches maxConcurrency, logging (not
// failing) decode/transport errors so one bad descriptor does not stall the
// Engine.
func (q *RedisQueue) Hook(ctx context.Context, eng Submitter, logger rpc.Logger) func(backlogSize, maxConcurrency int) {
	if logger == nil {
		logger = rpc.DefaultLogger
	}
	return func(backlogSize, maxConcurrency int) {
		for backlogSize < maxConcurrency {
			d, err := q.Next(ctx)
			if err != nil {
				logger.Errorf("refill: redis pop failed: %v", err)
				return
			}
			if d == nil {
				return
			}
			t, err := d.ToTransfer()
			if err != nil {
				logger.Errorf("refill: invalid descriptor for %q: %v", d.URL, err)
				continue
			}
			eng.Submit(t, false, 0)
			backlogSize++
		}
	}
}
