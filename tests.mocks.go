package main

import (
	"context"
	"time"
)

// This file contains mocks definitions needed to perform unit tests.

type MockBookStorage struct {
	AddFunc    func(ctx context.Context, book Book) (Book, error)
	PutFunc    func(ctx context.Context, book Book) error
	GetOneFunc func(ctx context.Context, id int64) (Book, error)
	GetAllFunc func(ctx context.Context) ([]Book, error)
	UpdateFunc func(ctx context.Context, book Book) (Book, error)
	DeleteFunc func(ctx context.Context, id int64) error
	ResetFunc  func(ctx context.Context) error
}

// Add mocks the behavior of book creation by the repository.
func (m *MockBookStorage) Add(ctx context.Context, book Book) (Book, error) {
	return m.AddFunc(ctx, book)
}

// Put mocks the behavior of book upsert by the repository.
func (m *MockBookStorage) Put(ctx context.Context, book Book) error {
	return m.PutFunc(ctx, book)
}

// GetOne mocks the behavior of retrieving a book by the repository.
func (m *MockBookStorage) GetOne(ctx context.Context, id int64) (Book, error) {
	return m.GetOneFunc(ctx, id)
}

// GetAll mocks the behavior of retrieving all books by the repository.
func (m *MockBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	return m.GetAllFunc(ctx)
}

// Update mocks the behavior of updating a book by the repository.
func (m *MockBookStorage) Update(ctx context.Context, book Book) (Book, error) {
	return m.UpdateFunc(ctx, book)
}

// Delete mocks the behavior of deleting a book by the repository.
func (m *MockBookStorage) Delete(ctx context.Context, id int64) error {
	return m.DeleteFunc(ctx, id)
}

// Reset mocks the behavior of wiping the books repository.
func (m *MockBookStorage) Reset(ctx context.Context) error {
	return m.ResetFunc(ctx)
}

type MockUserStorage struct {
	AddFunc    func(ctx context.Context, user User) (User, error)
	PutFunc    func(ctx context.Context, user User) error
	GetOneFunc func(ctx context.Context, id int64) (User, error)
	ExistsFunc func(ctx context.Context, username, email string) (bool, error)
	ResetFunc  func(ctx context.Context) error
}

func (m *MockUserStorage) Add(ctx context.Context, user User) (User, error) {
	return m.AddFunc(ctx, user)
}

func (m *MockUserStorage) Put(ctx context.Context, user User) error {
	return m.PutFunc(ctx, user)
}

func (m *MockUserStorage) GetOne(ctx context.Context, id int64) (User, error) {
	return m.GetOneFunc(ctx, id)
}

func (m *MockUserStorage) Exists(ctx context.Context, username, email string) (bool, error) {
	return m.ExistsFunc(ctx, username, email)
}

func (m *MockUserStorage) Reset(ctx context.Context) error {
	return m.ResetFunc(ctx)
}

// MockQueuer implements a fake Queuer.
type MockQueuer struct {
	PushFunc func(ctx context.Context, qid string, book Book) error
	PopFunc  func(ctx context.Context, qids ...string) (string, Book, error)
}

func (mq *MockQueuer) Push(ctx context.Context, qid string, book Book) error {
	return mq.PushFunc(ctx, qid, book)
}

func (mq *MockQueuer) Pop(ctx context.Context, qids ...string) (string, Book, error) {
	return mq.PopFunc(ctx, qids...)
}

// MockStoreService implements a fake StoreServiceProvider.
type MockStoreService struct {
	InitFunc  func(ctx context.Context) error
	ResetFunc func(ctx context.Context) error
}

func (ms *MockStoreService) Init(ctx context.Context) error {
	return ms.InitFunc(ctx)
}

func (ms *MockStoreService) Reset(ctx context.Context) error {
	return ms.ResetFunc(ctx)
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
// equals to `2023-07-02 00:00:00 +0000 UTC` in String format.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// Advance moves the mocked time forward.
func (mck *MockClocker) Advance(d time.Duration) {
	mck.MockNow = mck.MockNow.Add(d)
}

// MockUIDHandler implements a fake UIDHandler.
type MockUIDHandler struct {
	MockedUID string
	Valid     bool
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string, valid bool) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id, Valid: valid}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}

// IsValid mocks IsValid behavior by providing configured status.
func (muid *MockUIDHandler) IsValid(_, _ string) bool {
	return muid.Valid
}
