package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	HBooks         string = "books"
	KBooksSequence string = "books:seq"
	HUsers         string = "users"
	HUsernames     string = "users:usernames"
	HEmails        string = "users:emails"
	KUsersSequence string = "users:seq"
)

var (
	_ BookStorage = (*redisBookStorage)(nil)
	_ UserStorage = (*redisUserStorage)(nil)
)

// putScript stores a record under its id and moves the sequence forward when needed.
// KEYS[1] is the records hash, KEYS[2] the sequence key. ARGV[1] the id, ARGV[2] the record.
var putScript = redis.NewScript(`
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
local seq = tonumber(redis.call('GET', KEYS[2]) or '0')
if tonumber(ARGV[1]) > seq then
	redis.call('SET', KEYS[2], ARGV[1])
end
return 1
`)

// replaceScript overwrites a record only if it already exists. Returns 0 otherwise.
var replaceScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 1
`)

// addUserScript saves a user and its indexes unless the username or email is taken.
// KEYS: users, usernames, emails. ARGV: id, record, username, email. Returns 0 on conflict.
var addUserScript = redis.NewScript(`
if redis.call('HEXISTS', KEYS[2], ARGV[3]) == 1 or redis.call('HEXISTS', KEYS[3], ARGV[4]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('HSET', KEYS[2], ARGV[3], ARGV[1])
redis.call('HSET', KEYS[3], ARGV[4], ARGV[1])
return 1
`)

type redisBookStorage struct {
	logger *zap.Logger
	client *redis.Client
}

// NewRedisBookStorage provides an instance of redis-based book storage.
func NewRedisBookStorage(logger *zap.Logger, client *redis.Client) BookStorage {
	return &redisBookStorage{
		logger: logger,
		client: client,
	}
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(config *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Redis.Host, config.Redis.Port),
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
		PoolSize:     config.Redis.PoolSize,
		PoolTimeout:  config.Redis.PoolTimeout,
		Password:     config.Redis.Password,
		Username:     config.Redis.Username,
		DB:           config.Redis.DatabaseIndex,
	})

	// test connection.
	if pong, err := client.Ping(context.Background()).Result(); pong != "PONG" || err != nil {
		return client, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

func redisField(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Add inserts a new book record. The id comes from the books sequence counter.
func (rs *redisBookStorage) Add(ctx context.Context, book Book) (Book, error) {
	id, err := rs.client.Incr(ctx, KBooksSequence).Result()
	if err != nil {
		return Book{}, err
	}
	book.ID = id
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return Book{}, err
	}
	if err = rs.client.HSet(ctx, HBooks, redisField(id), bookBytes).Err(); err != nil {
		return Book{}, err
	}
	return book, nil
}

// Put inserts or replaces the book stored under book.ID.
func (rs *redisBookStorage) Put(ctx context.Context, book Book) error {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return putScript.Run(ctx, rs.client, []string{HBooks, KBooksSequence}, redisField(book.ID), bookBytes).Err()
}

// GetOne retrieves a book record based on its ID.
func (rs *redisBookStorage) GetOne(ctx context.Context, id int64) (Book, error) {
	var book Book
	bookJSONString, err := rs.client.HGet(ctx, HBooks, redisField(id)).Result()
	if err == redis.Nil {
		return book, ErrBookNotFound
	}
	if err != nil {
		return book, err
	}
	err = json.Unmarshal([]byte(bookJSONString), &book)
	return book, err
}

// Delete removes a book record based on its ID.
func (rs *redisBookStorage) Delete(ctx context.Context, id int64) error {
	n, err := rs.client.HDel(ctx, HBooks, redisField(id)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrBookNotFound
	}
	return nil
}

// Update replaces existing book record data.
func (rs *redisBookStorage) Update(ctx context.Context, book Book) (Book, error) {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return Book{}, err
	}
	n, err := replaceScript.Run(ctx, rs.client, []string{HBooks}, redisField(book.ID), bookBytes).Int()
	if err != nil {
		return Book{}, err
	}
	if n == 0 {
		return Book{}, ErrBookNotFound
	}
	return book, nil
}

// GetAll retrieves a list of all books stored in the redis database, ordered by id.
func (rs *redisBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	mapBooks, err := rs.client.HVals(ctx, HBooks).Result()
	if err != nil {
		return nil, err
	}
	books := []Book{}
	for _, bookJSONString := range mapBooks {
		var book Book
		if err = json.Unmarshal([]byte(bookJSONString), &book); err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books, nil
}

// Reset drops all books and the sequence counter.
func (rs *redisBookStorage) Reset(ctx context.Context) error {
	return rs.client.Del(ctx, HBooks, KBooksSequence).Err()
}

type redisUserStorage struct {
	logger *zap.Logger
	client *redis.Client
}

// NewRedisUserStorage provides an instance of redis-based user storage.
func NewRedisUserStorage(logger *zap.Logger, client *redis.Client) UserStorage {
	return &redisUserStorage{
		logger: logger,
		client: client,
	}
}

func (rs *redisUserStorage) Add(ctx context.Context, user User) (User, error) {
	taken, err := rs.Exists(ctx, user.Username, user.Email)
	if err != nil {
		return User{}, err
	}
	if taken {
		return User{}, ErrUserConflict
	}
	id, err := rs.client.Incr(ctx, KUsersSequence).Result()
	if err != nil {
		return User{}, err
	}
	user.ID = id
	userBytes, err := json.Marshal(toUserRecord(user))
	if err != nil {
		return User{}, err
	}
	keys := []string{HUsers, HUsernames, HEmails}
	n, err := addUserScript.Run(ctx, rs.client, keys, redisField(id), userBytes, user.Username, user.Email).Int()
	if err != nil {
		return User{}, err
	}
	if n == 0 {
		return User{}, ErrUserConflict
	}
	return user, nil
}

func (rs *redisUserStorage) Put(ctx context.Context, user User) error {
	userBytes, err := json.Marshal(toUserRecord(user))
	if err != nil {
		return err
	}
	field := redisField(user.ID)
	if err = putScript.Run(ctx, rs.client, []string{HUsers, KUsersSequence}, field, userBytes).Err(); err != nil {
		return err
	}
	_, err = rs.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, HUsernames, user.Username, field)
		pipe.HSet(ctx, HEmails, user.Email, field)
		return nil
	})
	return err
}

func (rs *redisUserStorage) GetOne(ctx context.Context, id int64) (User, error) {
	userJSONString, err := rs.client.HGet(ctx, HUsers, redisField(id)).Result()
	if err == redis.Nil {
		return User{}, ErrUserNotFound
	}
	if err != nil {
		return User{}, err
	}
	var record userRecord
	if err = json.Unmarshal([]byte(userJSONString), &record); err != nil {
		return User{}, err
	}
	return record.User(), nil
}

func (rs *redisUserStorage) Exists(ctx context.Context, username, email string) (bool, error) {
	found, err := rs.client.HExists(ctx, HUsernames, username).Result()
	if err != nil || found {
		return found, err
	}
	return rs.client.HExists(ctx, HEmails, email).Result()
}

func (rs *redisUserStorage) Reset(ctx context.Context) error {
	return rs.client.Del(ctx, HUsers, HUsernames, HEmails, KUsersSequence).Err()
}
