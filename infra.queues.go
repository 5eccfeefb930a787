package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis lists carrying the catalog changes, one per kind of write.
const (
	CreateQueue = "bookshelf:books:created"
	UpdateQueue = "bookshelf:books:updated"
	DeleteQueue = "bookshelf:books:deleted"
)

// DefaultPopTimeout bounds a single blocking pop so that consumers
// can notice the context cancellation.
const DefaultPopTimeout = 2 * time.Second

// ErrQueueEmpty is returned by Pop when nothing arrived before the timeout.
var ErrQueueEmpty = errors.New("queue: no item available")

var _ Queuer = (*redisQueue)(nil)

// Queuer carries book change events between the catalog and its mirrors.
// Each event is the book as it was right after the write.
type Queuer interface {
	Push(ctx context.Context, qid string, book Book) error
	Pop(ctx context.Context, qids ...string) (string, Book, error)
}

// redisQueue stores events as json in redis lists, RPUSH on write and
// BLPOP on read, which keeps them in order per list.
type redisQueue struct {
	client  *redis.Client
	timeout time.Duration
}

func NewRedisQueue(client *redis.Client, timeout time.Duration) Queuer {
	if timeout <= 0 {
		timeout = DefaultPopTimeout
	}
	return &redisQueue{client: client, timeout: timeout}
}

func (q *redisQueue) Push(ctx context.Context, qid string, book Book) error {
	event, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("queue: encode book %d: %w", book.ID, err)
	}
	if err := q.client.RPush(ctx, qid, event).Err(); err != nil {
		return fmt.Errorf("queue: push onto %s: %w", qid, err)
	}
	return nil
}

// Pop waits up to the queue timeout for the next event on any of qids,
// checked in the given order.
func (q *redisQueue) Pop(ctx context.Context, qids ...string) (string, Book, error) {
	var book Book
	res, err := q.client.BLPop(ctx, q.timeout, qids...).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return "", book, ErrQueueEmpty
	case err != nil:
		return "", book, fmt.Errorf("queue: pop: %w", err)
	case len(res) != 2:
		return "", book, fmt.Errorf("queue: unexpected pop reply of %d items", len(res))
	}
	if err := json.Unmarshal([]byte(res[1]), &book); err != nil {
		return res[0], book, fmt.Errorf("queue: decode event from %s: %w", res[0], err)
	}
	return res[0], book, nil
}
