package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestNewStorages ensures every local backend is built and usable.
func TestNewStorages(t *testing.T) {
	dir := t.TempDir()
	testCases := []struct {
		backend string
		modify  func(c *Config)
	}{
		{MemoryBackend, func(*Config) {}},
		{BoltBackend, func(c *Config) { c.BoltDB.FilePath = filepath.Join(dir, "bolt", "books.db") }},
		{SQLiteBackend, func(c *Config) { c.SQLite.FilePath = filepath.Join(dir, "sqlite", "books.db") }},
	}

	for _, tc := range testCases {
		t.Run(tc.backend, func(t *testing.T) {
			config := newTestConfig()
			config.Storage.Backend = tc.backend
			tc.modify(config)

			storages, err := NewStorages(config, zap.NewNop())
			require.NoError(t, err)
			defer func() { assert.NoError(t, storages.Close()) }()
			assert.Nil(t, storages.Redis)

			store := NewStoreService(zap.NewNop(), config, NewMockClocker(), storages.Books, storages.Users)
			require.NoError(t, store.Init(context.Background()))
			books, err := storages.Books.GetAll(context.Background())
			require.NoError(t, err)
			assert.Len(t, books, len(seedBooks))
		})
	}

	t.Run("unknown backend", func(t *testing.T) {
		config := newTestConfig()
		config.Storage.Backend = "mongo"
		_, err := NewStorages(config, zap.NewNop())
		assert.ErrorContains(t, err, `unknown storage backend "mongo"`)
	})
}
