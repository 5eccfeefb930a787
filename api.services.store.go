package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultUsername  = "librarian"
	DefaultUserEmail = "librarian@bookshelf.local"
)

// ErrDefaultUserIDTaken reports that the configured default user id
// belongs to a regular user, so the default user cannot be created.
var ErrDefaultUserIDTaken = errors.New("default user id is held by another user")

// seedBooks is the initial catalog content.
var seedBooks = []struct {
	title  string
	author string
	year   int
}{
	{"War and Peace", "Leo Tolstoy", 1869},
	{"1984", "George Orwell", 1949},
	{"The Master and Margarita", "Mikhail Bulgakov", 1967},
	{"Crime and Punishment", "Fyodor Dostoevsky", 1866},
	{"Harry Potter and the Philosopher's Stone", "J. K. Rowling", 1997},
}

type StoreServiceProvider interface {
	Init(ctx context.Context) error
	Reset(ctx context.Context) error
}

type StoreService struct {
	logger *zap.Logger
	config *Config
	clock  Clocker
	books  BookStorage
	users  UserStorage
}

func NewStoreService(logger *zap.Logger, config *Config, clock Clocker, books BookStorage, users UserStorage) StoreServiceProvider {
	return &StoreService{
		logger: logger,
		config: config,
		clock:  clock,
		books:  books,
		users:  users,
	}
}

// Init makes sure the default user exists and fills an empty catalog
// with the seed books. Existing records are never touched.
func (ss *StoreService) Init(ctx context.Context) error {
	if err := ss.ensureDefaultUser(ctx); err != nil {
		return err
	}

	books, err := ss.books.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to list books: %w", err)
	}
	if len(books) > 0 {
		ss.logger.Info("store: catalog not empty, seeding skipped", zap.Int("books", len(books)))
		return nil
	}

	now := stamp(ss.clock)
	for _, seed := range seedBooks {
		author, year := seed.author, seed.year
		book, err := ss.books.Add(ctx, Book{
			Title:     seed.title,
			Author:    &author,
			Year:      &year,
			Quantity:  DefaultBookQuantity,
			UserID:    ss.config.Catalog.DefaultUserID,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return fmt.Errorf("failed to seed book %q: %w", seed.title, err)
		}
		ss.logger.Debug("store: book seeded", zap.Int64("book.id", book.ID))
	}
	ss.logger.Info("store: catalog seeded", zap.Int("books", len(seedBooks)))
	return nil
}

// ensureDefaultUser creates the default user under the configured id.
// It fails rather than overwrite a regular user already holding that id.
func (ss *StoreService) ensureDefaultUser(ctx context.Context) error {
	id := ss.config.Catalog.DefaultUserID
	holder, err := ss.users.GetOne(ctx, id)
	switch {
	case err == nil && holder.Username == DefaultUsername:
		return nil
	case err == nil:
		return fmt.Errorf("%w: id %d belongs to %q", ErrDefaultUserIDTaken, id, holder.Username)
	case !errors.Is(err, ErrUserNotFound):
		return fmt.Errorf("failed to check default user id: %w", err)
	}

	exists, err := ss.users.Exists(ctx, DefaultUsername, DefaultUserEmail)
	if err != nil {
		return fmt.Errorf("failed to check default user: %w", err)
	}
	if exists {
		ss.logger.Warn("store: default user exists under another id", zap.Int64("user.id", id))
		return nil
	}

	// nobody logs in as the default user, its password is random.
	secret, err := uuid.NewV4()
	if err != nil {
		return fmt.Errorf("failed to generate default user secret: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword(secret.Bytes(), ss.config.Users.PasswordCost)
	if err != nil {
		return fmt.Errorf("failed to hash default user secret: %w", err)
	}

	err = ss.users.Put(ctx, User{
		ID:           id,
		Username:     DefaultUsername,
		Email:        DefaultUserEmail,
		PasswordHash: string(hash),
		CreatedAt:    stamp(ss.clock),
	})
	if err != nil {
		return fmt.Errorf("failed to save default user: %w", err)
	}
	return nil
}

// Reset wipes books and users, restarting the id counters, then runs Init.
func (ss *StoreService) Reset(ctx context.Context) error {
	if err := ss.books.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset books: %w", err)
	}
	if err := ss.users.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset users: %w", err)
	}
	ss.logger.Info("store: books and users wiped")
	return ss.Init(ctx)
}
