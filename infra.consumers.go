package main

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Pop failures are retried with an exponential delay between these bounds.
const (
	consumerRetryInitialInterval = 100 * time.Millisecond
	consumerRetryMaxInterval     = 5 * time.Second
)

type Consumer interface {
	Consume(ctx context.Context, qids ...string) error
}

// mirrorConsumer replays book change events into a secondary store.
type mirrorConsumer struct {
	logger *zap.Logger
	queue  Queuer
	mirror BookStorage
	retry  backoff.BackOff
}

func NewMirrorConsumer(logger *zap.Logger, q Queuer, mirror BookStorage) Consumer {
	return &mirrorConsumer{logger: logger, queue: q, mirror: mirror, retry: newConsumerRetry()}
}

// newConsumerRetry never gives up: the consumer lives as long as the app.
func newConsumerRetry() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = consumerRetryInitialInterval
	b.MaxInterval = consumerRetryMaxInterval
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// Consume pops events until ctx is done. Failed events are logged and
// skipped so a broken record never blocks the ones behind it. A failing
// queue is retried after a growing delay.
func (mc *mirrorConsumer) Consume(ctx context.Context, qids ...string) error {
	for {
		qid, book, err := mc.queue.Pop(ctx, qids...)
		if ctx.Err() != nil {
			mc.logger.Info("mirror consumer stopped", zap.String("reason", ctx.Err().Error()))
			return nil
		}
		switch {
		case errors.Is(err, ErrQueueEmpty):
			mc.retry.Reset()
		case err != nil:
			delay := mc.retry.NextBackOff()
			mc.logger.Error("mirror consumer failed to pop event", zap.Duration("retry.in", delay), zap.Error(err))
			if !sleepCtx(ctx, delay) {
				mc.logger.Info("mirror consumer stopped", zap.String("reason", ctx.Err().Error()))
				return nil
			}
		default:
			mc.retry.Reset()
			mc.apply(ctx, qid, book)
		}
	}
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// apply upserts created and updated books. Deleting a book the mirror
// never received is not an error.
func (mc *mirrorConsumer) apply(ctx context.Context, qid string, book Book) {
	var err error
	switch qid {
	case CreateQueue, UpdateQueue:
		err = mc.mirror.Put(ctx, book)
	case DeleteQueue:
		if err = mc.mirror.Delete(ctx, book.ID); errors.Is(err, ErrBookNotFound) {
			err = nil
		}
	default:
		mc.logger.Warn("mirror consumer received event on unknown queue", zap.String("qid", qid), zap.Int64("book.id", book.ID))
		return
	}
	if err != nil {
		mc.logger.Error("mirror consumer failed to apply event", zap.String("qid", qid), zap.Int64("book.id", book.ID), zap.Error(err))
	}
}
