package main

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Storages groups the stores selected by the configured backend.
// Redis is set whenever the backend or the mirror requires a client.
type Storages struct {
	Books   BookStorage
	Users   UserStorage
	Redis   *redis.Client
	closers []func() error
}

// NewStorages builds the book and user storages for the configured backend.
func NewStorages(config *Config, logger *zap.Logger) (*Storages, error) {
	s := &Storages{}

	if config.Storage.Backend == RedisBackend || config.Mirror.Enable {
		client, err := GetRedisClient(config)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		s.Redis = client
		s.closers = append(s.closers, client.Close)
	}

	switch config.Storage.Backend {
	case MemoryBackend:
		s.Books = NewMemoryBookStorage(logger)
		s.Users = NewMemoryUserStorage(logger)
	case BoltBackend:
		db, err := GetBoltDBClient(config.BoltDB.FilePath, &config.BoltDB)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("failed to setup boltdb: %w", err), s.Close())
		}
		s.closers = append(s.closers, db.Close)
		s.Books = NewBoltBookStorage(logger, &config.BoltDB, db)
		s.Users = NewBoltUserStorage(logger, &config.BoltDB, db)
	case SQLiteBackend:
		db, err := GetSQLiteClient(&config.SQLite)
		if err != nil {
			return nil, multierr.Append(fmt.Errorf("failed to setup sqlite: %w", err), s.Close())
		}
		s.closers = append(s.closers, func() error { return CloseSQLiteClient(db) })
		s.Books = NewSQLiteBookStorage(logger, db)
		s.Users = NewSQLiteUserStorage(logger, db)
	case RedisBackend:
		s.Books = NewRedisBookStorage(logger, s.Redis)
		s.Users = NewRedisUserStorage(logger, s.Redis)
	default:
		return nil, multierr.Append(fmt.Errorf("unknown storage backend %q", config.Storage.Backend), s.Close())
	}

	logger.Info("storage initialized", zap.String("backend", config.Storage.Backend))
	return s, nil
}

// Close releases every client opened by NewStorages, in reverse order.
func (s *Storages) Close() error {
	var err error
	for i := len(s.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, s.closers[i]())
	}
	s.closers = nil
	return err
}
