package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// newTestConfig returns the minimal configuration used by unit tests.
func newTestConfig() *Config {
	return &Config{
		Server: ServerConfig{
			LongRequestWriteTimeout: time.Second,
		},
		Storage: StorageConfig{Backend: MemoryBackend},
		Catalog: CatalogConfig{DefaultUserID: 1},
		Users:   UsersConfig{PasswordCost: bcrypt.MinCost},
		BoltDB: BoltDBConfig{
			Timeout:         time.Second,
			BooksBucketName: "test.books",
			UsersBucketName: "test.users",
		},
	}
}

// testCatalog bundles an api handler backed by memory storages.
type testCatalog struct {
	api    *APIHandler
	books  BookStorage
	users  UserStorage
	clock  *MockClocker
	config *Config
}

// newTestCatalog builds an api handler over seeded memory storages.
func newTestCatalog(t *testing.T) *testCatalog {
	t.Helper()
	config := newTestConfig()
	clock := NewMockClocker()
	books := NewMemoryBookStorage(zap.NewNop())
	users := NewMemoryUserStorage(zap.NewNop())
	store := NewStoreService(zap.NewNop(), config, clock, books, users)
	require.NoError(t, store.Init(context.Background()))
	api := NewAPIHandler(
		zap.NewNop(),
		config,
		&Statistics{started: clock.Now()},
		clock,
		NewMockUIDHandler("cb8f2136-fae4-4200-85d9-3533c7f8c70d", true),
		NewBookService(zap.NewNop(), config, clock, books, nil),
		NewUserService(zap.NewNop(), config, clock, users),
		store,
	)
	return &testCatalog{api: api, books: books, users: users, clock: clock, config: config}
}

// fixedTime is the timestamp set on storage fixtures.
var fixedTime = time.Date(2023, 7, 1, 20, 19, 10, 0, time.UTC)

func strPtr(s string) *string { return &s }

func intPtr(i int) *int { return &i }

// sampleBook returns a fully populated book without id.
func sampleBook(title string) Book {
	return Book{
		Title:       title,
		Author:      strPtr("Leo Tolstoy"),
		Year:        intPtr(1869),
		Price:       12.5,
		Quantity:    3,
		Description: strPtr("a novel"),
		UserID:      1,
		CreatedAt:   fixedTime,
		UpdatedAt:   fixedTime,
	}
}

// assertSameBook compares books field by field. Timestamps are compared
// as instants since storages may change their location.
func assertSameBook(t *testing.T, want, got Book) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Author, got.Author)
	assert.Equal(t, want.Year, got.Year)
	assert.Equal(t, want.Price, got.Price)
	assert.Equal(t, want.Quantity, got.Quantity)
	assert.Equal(t, want.Description, got.Description)
	assert.Equal(t, want.UserID, got.UserID)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "createdAt: want %v got %v", want.CreatedAt, got.CreatedAt)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updatedAt: want %v got %v", want.UpdatedAt, got.UpdatedAt)
}

// payloadOf builds a BookPayload from a json object literal.
func payloadOf(t *testing.T, body string) BookPayload {
	t.Helper()
	var p BookPayload
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	return p
}

// doRequest runs a handler against a recorded request and decodes the json answer.
func doRequest(t *testing.T, h httprouter.Handle, method, target, body string, ps httprouter.Params) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	h(w, req, ps)
	res := w.Result()
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	assert.Equal(t, "application/json; charset=UTF-8", res.Header.Get("Content-Type"))
	resultMap := make(map[string]interface{})
	require.NoError(t, json.Unmarshal(data, &resultMap), string(data))
	return res.StatusCode, resultMap
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(data)
}

func idParam(id string) httprouter.Params {
	return httprouter.Params{{Key: "id", Value: id}}
}
