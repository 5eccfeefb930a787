package main

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

var (
	_ BookStorage = (*boltBookStorage)(nil)
	_ UserStorage = (*boltUserStorage)(nil)
)

type boltBookStorage struct {
	logger *zap.Logger
	client *bolt.DB
	bucket []byte
}

// GetBoltDBClient opens the database at path and sets up the books
// and users buckets then provides a ready to use client.
func GetBoltDBClient(path string, config *BoltDBConfig) (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create the database folder, %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: config.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range boltBucketNames(config) {
			if _, errB := tx.CreateBucketIfNotExists([]byte(name)); errB != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, errB)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up bucket: %w", err)
	}
	return db, nil
}

func boltBucketNames(config *BoltDBConfig) []string {
	return []string{
		config.BooksBucketName,
		config.UsersBucketName,
		usernamesBucketName(config.UsersBucketName),
		emailsBucketName(config.UsersBucketName),
	}
}

func usernamesBucketName(users string) string { return users + ".usernames" }

func emailsBucketName(users string) string { return users + ".emails" }

// itob encodes an id as big-endian bytes so that cursor order is id order.
func itob(id int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(id))
	return b
}

// recreateBucket empties a bucket. Its sequence starts back from zero.
func recreateBucket(tx *bolt.Tx, name []byte) error {
	if err := tx.DeleteBucket(name); err != nil && err != bolt.ErrBucketNotFound {
		return err
	}
	_, err := tx.CreateBucket(name)
	return err
}

// NewBoltBookStorage provides an instance of bolt-based book storage.
func NewBoltBookStorage(logger *zap.Logger, boltConfig *BoltDBConfig, client *bolt.DB) BookStorage {
	return &boltBookStorage{
		logger: logger,
		client: client,
		bucket: []byte(boltConfig.BooksBucketName),
	}
}

// Close shuts down the bolt-based book storage.
func (bs *boltBookStorage) Close() error {
	return bs.client.Close()
}

// Add inserts a new book record into boltdb store. The bucket
// sequence is the identifier counter.
func (bs *boltBookStorage) Add(_ context.Context, book Book) (Book, error) {
	err := bs.client.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bs.bucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		book.ID = int64(seq)
		bookBytes, err := json.Marshal(book)
		if err != nil {
			return err
		}
		return b.Put(itob(book.ID), bookBytes)
	})
	if err != nil {
		return Book{}, err
	}
	return book, nil
}

// Put inserts or replaces the book stored under book.ID and moves
// the sequence forward when needed.
func (bs *boltBookStorage) Put(_ context.Context, book Book) error {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return err
	}
	return bs.client.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bs.bucket)
		if err := b.Put(itob(book.ID), bookBytes); err != nil {
			return err
		}
		if uint64(book.ID) > b.Sequence() {
			return b.SetSequence(uint64(book.ID))
		}
		return nil
	})
}

// GetOne retrieves a book record based on its ID from boltdb store.
func (bs *boltBookStorage) GetOne(_ context.Context, id int64) (Book, error) {
	var book Book
	// initialize a readable transaction.
	tx, err := bs.client.Begin(false)
	if err != nil {
		return book, err
	}
	defer tx.Rollback()

	result := tx.Bucket(bs.bucket).Get(itob(id))
	if result == nil {
		return book, ErrBookNotFound
	}
	err = json.Unmarshal(result, &book)
	return book, err
}

// GetAll retrieves a list of all books stored in the bolt database.
func (bs *boltBookStorage) GetAll(_ context.Context) ([]Book, error) {
	tx, err := bs.client.Begin(false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Create a cursor on the books' bucket.
	c := tx.Bucket(bs.bucket).Cursor()

	books := []Book{}
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var book Book
		if err = json.Unmarshal(v, &book); err != nil {
			return nil, err
		}
		books = append(books, book)
	}
	return books, nil
}

// Update replaces existing book record data.
func (bs *boltBookStorage) Update(_ context.Context, book Book) (Book, error) {
	bookBytes, err := json.Marshal(book)
	if err != nil {
		return Book{}, err
	}
	err = bs.client.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bs.bucket)
		if b.Get(itob(book.ID)) == nil {
			return ErrBookNotFound
		}
		return b.Put(itob(book.ID), bookBytes)
	})
	if err != nil {
		return Book{}, err
	}
	return book, nil
}

// Delete removes a book record based on its ID from boltdb store.
func (bs *boltBookStorage) Delete(_ context.Context, id int64) error {
	return bs.client.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bs.bucket)
		if b.Get(itob(id)) == nil {
			return ErrBookNotFound
		}
		return b.Delete(itob(id))
	})
}

// Reset drops all books and restarts the bucket sequence.
func (bs *boltBookStorage) Reset(_ context.Context) error {
	return bs.client.Update(func(tx *bolt.Tx) error {
		return recreateBucket(tx, bs.bucket)
	})
}

type boltUserStorage struct {
	logger    *zap.Logger
	client    *bolt.DB
	bucket    []byte
	usernames []byte
	emails    []byte
}

// NewBoltUserStorage provides an instance of bolt-based user storage. Usernames
// and emails are indexed into dedicated buckets to detect duplicates.
func NewBoltUserStorage(logger *zap.Logger, boltConfig *BoltDBConfig, client *bolt.DB) UserStorage {
	return &boltUserStorage{
		logger:    logger,
		client:    client,
		bucket:    []byte(boltConfig.UsersBucketName),
		usernames: []byte(usernamesBucketName(boltConfig.UsersBucketName)),
		emails:    []byte(emailsBucketName(boltConfig.UsersBucketName)),
	}
}

func (us *boltUserStorage) Add(_ context.Context, user User) (User, error) {
	err := us.client.Update(func(tx *bolt.Tx) error {
		if us.exists(tx, user.Username, user.Email) {
			return ErrUserConflict
		}
		seq, err := tx.Bucket(us.bucket).NextSequence()
		if err != nil {
			return err
		}
		user.ID = int64(seq)
		return us.put(tx, user)
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (us *boltUserStorage) Put(_ context.Context, user User) error {
	return us.client.Update(func(tx *bolt.Tx) error {
		if err := us.put(tx, user); err != nil {
			return err
		}
		b := tx.Bucket(us.bucket)
		if uint64(user.ID) > b.Sequence() {
			return b.SetSequence(uint64(user.ID))
		}
		return nil
	})
}

func (us *boltUserStorage) put(tx *bolt.Tx, user User) error {
	userBytes, err := json.Marshal(toUserRecord(user))
	if err != nil {
		return err
	}
	key := itob(user.ID)
	if err = tx.Bucket(us.bucket).Put(key, userBytes); err != nil {
		return err
	}
	if err = tx.Bucket(us.usernames).Put([]byte(user.Username), key); err != nil {
		return err
	}
	return tx.Bucket(us.emails).Put([]byte(user.Email), key)
}

func (us *boltUserStorage) GetOne(_ context.Context, id int64) (User, error) {
	var record userRecord
	err := us.client.View(func(tx *bolt.Tx) error {
		result := tx.Bucket(us.bucket).Get(itob(id))
		if result == nil {
			return ErrUserNotFound
		}
		return json.Unmarshal(result, &record)
	})
	if err != nil {
		return User{}, err
	}
	return record.User(), nil
}

func (us *boltUserStorage) Exists(_ context.Context, username, email string) (bool, error) {
	var found bool
	err := us.client.View(func(tx *bolt.Tx) error {
		found = us.exists(tx, username, email)
		return nil
	})
	return found, err
}

func (us *boltUserStorage) exists(tx *bolt.Tx, username, email string) bool {
	return tx.Bucket(us.usernames).Get([]byte(username)) != nil ||
		tx.Bucket(us.emails).Get([]byte(email)) != nil
}

func (us *boltUserStorage) Reset(_ context.Context) error {
	return us.client.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{us.bucket, us.usernames, us.emails} {
			if err := recreateBucket(tx, name); err != nil {
				return err
			}
		}
		return nil
	})
}
