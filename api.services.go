package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

type BookServiceProvider interface {
	Add(ctx context.Context, payload BookPayload) (Book, error)
	GetOne(ctx context.Context, id int64) (Book, error)
	Delete(ctx context.Context, id int64) error
	Update(ctx context.Context, id int64, payload BookPayload) (Book, error)
	GetAll(ctx context.Context) ([]Book, error)
}

type BookService struct {
	logger  *zap.Logger
	config  *Config
	clock   Clocker
	storage BookStorage
	queue   Queuer
}

// NewBookService provides the books catalog. The queue is optional: when
// set, every successful write is published for the mirror consumer.
func NewBookService(logger *zap.Logger, config *Config, clock Clocker, storage BookStorage, queue Queuer) BookServiceProvider {
	return &BookService{
		logger:  logger,
		config:  config,
		clock:   clock,
		storage: storage,
		queue:   queue,
	}
}

func (bs *BookService) publish(ctx context.Context, qid string, book Book) {
	if bs.queue == nil {
		return
	}
	if err := bs.queue.Push(ctx, qid, book); err != nil {
		bs.logger.Error("service: failed to push book to queue", zap.String("qid", qid), zap.Int64("book.id", book.ID), zap.Error(err))
	}
}

// Add validates the payload then stores a new book under the next id.
func (bs *BookService) Add(ctx context.Context, payload BookPayload) (Book, error) {
	req, err := payload.Validate(false)
	if err != nil {
		return Book{}, err
	}

	book := Book{
		Quantity: DefaultBookQuantity,
		UserID:   bs.config.Catalog.DefaultUserID,
	}
	req.ApplyTo(&book, bs.config.Catalog.DefaultUserID)
	now := stamp(bs.clock)
	book.CreatedAt = now
	book.UpdatedAt = now

	book, err = bs.storage.Add(ctx, book)
	if err != nil {
		return Book{}, fmt.Errorf("failed to add book: %w", err)
	}
	bs.publish(ctx, CreateQueue, book)
	return book, nil
}

func (bs *BookService) GetOne(ctx context.Context, id int64) (Book, error) {
	book, err := bs.storage.GetOne(ctx, id)
	if err != nil {
		return Book{}, fmt.Errorf("failed to get book %d: %w", id, err)
	}
	return book, nil
}

// Delete removes the book. ErrBookNotFound is returned when nothing was removed.
func (bs *BookService) Delete(ctx context.Context, id int64) error {
	if err := bs.storage.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete book %d: %w", id, err)
	}
	bs.publish(ctx, DeleteQueue, Book{ID: id})
	return nil
}

// Update applies the present members of the payload on the existing book.
// The existence check happens before the validation.
func (bs *BookService) Update(ctx context.Context, id int64, payload BookPayload) (Book, error) {
	book, err := bs.GetOne(ctx, id)
	if err != nil {
		return Book{}, err
	}

	req, err := payload.Validate(true)
	if err != nil {
		return Book{}, err
	}

	req.ApplyTo(&book, bs.config.Catalog.DefaultUserID)
	book.ID = id
	book.UpdatedAt = stamp(bs.clock)

	book, err = bs.storage.Update(ctx, book)
	if err != nil {
		return Book{}, fmt.Errorf("failed to update book %d: %w", id, err)
	}
	bs.publish(ctx, UpdateQueue, book)
	return book, nil
}

func (bs *BookService) GetAll(ctx context.Context) ([]Book, error) {
	books, err := bs.storage.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get all books: %w", err)
	}
	return books, nil
}
