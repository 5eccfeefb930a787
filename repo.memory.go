package main

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"
)

var (
	_ BookStorage = (*memoryBookStorage)(nil)
	_ UserStorage = (*memoryUserStorage)(nil)
)

// memoryBookStorage keeps books in process memory. nextID is the
// identifier counter: it only moves forward until Reset is called.
type memoryBookStorage struct {
	logger *zap.Logger
	mu     sync.RWMutex
	books  map[int64]Book
	nextID int64
}

// NewMemoryBookStorage provides an instance of memory-based book storage.
func NewMemoryBookStorage(logger *zap.Logger) BookStorage {
	return &memoryBookStorage{
		logger: logger,
		books:  make(map[int64]Book),
		nextID: 1,
	}
}

// Add inserts a new book record under the next identifier.
func (ms *memoryBookStorage) Add(_ context.Context, book Book) (Book, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	book.ID = ms.nextID
	ms.nextID++
	ms.books[book.ID] = book
	return book, nil
}

// Put inserts or replaces the book stored under book.ID.
func (ms *memoryBookStorage) Put(_ context.Context, book Book) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.books[book.ID] = book
	if book.ID >= ms.nextID {
		ms.nextID = book.ID + 1
	}
	return nil
}

// GetOne retrieves a book record based on its ID.
func (ms *memoryBookStorage) GetOne(_ context.Context, id int64) (Book, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	book, ok := ms.books[id]
	if !ok {
		return Book{}, ErrBookNotFound
	}
	return book, nil
}

// GetAll retrieves all books ordered by identifier, which is the insertion order.
func (ms *memoryBookStorage) GetAll(_ context.Context) ([]Book, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	books := make([]Book, 0, len(ms.books))
	for _, book := range ms.books {
		books = append(books, book)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books, nil
}

// Update replaces an existing book record.
func (ms *memoryBookStorage) Update(_ context.Context, book Book) (Book, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if _, ok := ms.books[book.ID]; !ok {
		return Book{}, ErrBookNotFound
	}
	ms.books[book.ID] = book
	return book, nil
}

// Delete removes a book record based on its ID.
func (ms *memoryBookStorage) Delete(_ context.Context, id int64) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	before := len(ms.books)
	delete(ms.books, id)
	if len(ms.books) == before {
		return ErrBookNotFound
	}
	return nil
}

// Reset drops all books and restarts the identifier counter.
func (ms *memoryBookStorage) Reset(_ context.Context) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.books = make(map[int64]Book)
	ms.nextID = 1
	return nil
}

type memoryUserStorage struct {
	logger *zap.Logger
	mu     sync.RWMutex
	users  map[int64]User
	nextID int64
}

// NewMemoryUserStorage provides an instance of memory-based user storage.
func NewMemoryUserStorage(logger *zap.Logger) UserStorage {
	return &memoryUserStorage{
		logger: logger,
		users:  make(map[int64]User),
		nextID: 1,
	}
}

func (ms *memoryUserStorage) Add(_ context.Context, user User) (User, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if ms.exists(user.Username, user.Email) {
		return User{}, ErrUserConflict
	}
	user.ID = ms.nextID
	ms.nextID++
	ms.users[user.ID] = user
	return user, nil
}

func (ms *memoryUserStorage) Put(_ context.Context, user User) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.users[user.ID] = user
	if user.ID >= ms.nextID {
		ms.nextID = user.ID + 1
	}
	return nil
}

func (ms *memoryUserStorage) GetOne(_ context.Context, id int64) (User, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	user, ok := ms.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}

func (ms *memoryUserStorage) Exists(_ context.Context, username, email string) (bool, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.exists(username, email), nil
}

func (ms *memoryUserStorage) exists(username, email string) bool {
	for _, u := range ms.users {
		if u.Username == username || u.Email == email {
			return true
		}
	}
	return false
}

func (ms *memoryUserStorage) Reset(_ context.Context) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.users = make(map[int64]User)
	ms.nextID = 1
	return nil
}
