package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	_ BookStorage = (*sqliteBookStorage)(nil)
	_ UserStorage = (*sqliteUserStorage)(nil)
)

// GetSQLiteClient opens the sqlite database and migrates the books and users tables.
func GetSQLiteClient(config *SQLiteConfig) (*gorm.DB, error) {
	logMode := logger.Silent
	if config.LogQuery {
		logMode = logger.Info
	}
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create the database folder: %w", err)
	}
	db, err := gorm.Open(sqlite.Open(config.FilePath), &gorm.Config{
		Logger:         logger.Default.LogMode(logMode),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err = db.AutoMigrate(&User{}, &Book{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}

// CloseSQLiteClient releases the underlying sql connections pool.
func CloseSQLiteClient(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// resetSequence restarts the AUTOINCREMENT counter of a table.
func resetSequence(tx *gorm.DB, table string) error {
	return tx.Exec("DELETE FROM sqlite_sequence WHERE name = ?", table).Error
}

type sqliteBookStorage struct {
	logger *zap.Logger
	db     *gorm.DB
}

// NewSQLiteBookStorage provides an instance of sqlite-based book storage.
func NewSQLiteBookStorage(logger *zap.Logger, db *gorm.DB) BookStorage {
	return &sqliteBookStorage{
		logger: logger,
		db:     db,
	}
}

// Add inserts a new book record and lets the database assign its id.
func (ss *sqliteBookStorage) Add(ctx context.Context, book Book) (Book, error) {
	book.ID = 0
	if err := ss.db.WithContext(ctx).Create(&book).Error; err != nil {
		return Book{}, err
	}
	return book, nil
}

// Put inserts or replaces the book stored under book.ID.
func (ss *sqliteBookStorage) Put(ctx context.Context, book Book) error {
	return ss.db.WithContext(ctx).Save(&book).Error
}

// GetOne retrieves a book record based on its ID.
func (ss *sqliteBookStorage) GetOne(ctx context.Context, id int64) (Book, error) {
	var book Book
	err := ss.db.WithContext(ctx).First(&book, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Book{}, ErrBookNotFound
	}
	return book, err
}

// GetAll retrieves all books ordered by id.
func (ss *sqliteBookStorage) GetAll(ctx context.Context) ([]Book, error) {
	books := []Book{}
	if err := ss.db.WithContext(ctx).Order("id").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

// Update replaces all columns of an existing book record.
func (ss *sqliteBookStorage) Update(ctx context.Context, book Book) (Book, error) {
	result := ss.db.WithContext(ctx).Model(&Book{ID: book.ID}).Select("*").Updates(&book)
	if result.Error != nil {
		return Book{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Book{}, ErrBookNotFound
	}
	return book, nil
}

// Delete removes a book record based on its ID.
func (ss *sqliteBookStorage) Delete(ctx context.Context, id int64) error {
	result := ss.db.WithContext(ctx).Delete(&Book{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBookNotFound
	}
	return nil
}

// Reset drops all books and restarts the id counter.
func (ss *sqliteBookStorage) Reset(ctx context.Context) error {
	return ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Book{}).Error; err != nil {
			return err
		}
		return resetSequence(tx, "books")
	})
}

type sqliteUserStorage struct {
	logger *zap.Logger
	db     *gorm.DB
}

// NewSQLiteUserStorage provides an instance of sqlite-based user storage.
// Unique indexes on username and email back the conflict detection.
func NewSQLiteUserStorage(logger *zap.Logger, db *gorm.DB) UserStorage {
	return &sqliteUserStorage{
		logger: logger,
		db:     db,
	}
}

func (ss *sqliteUserStorage) Add(ctx context.Context, user User) (User, error) {
	user.ID = 0
	err := ss.db.WithContext(ctx).Create(&user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return User{}, ErrUserConflict
	}
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (ss *sqliteUserStorage) Put(ctx context.Context, user User) error {
	return ss.db.WithContext(ctx).Save(&user).Error
}

func (ss *sqliteUserStorage) GetOne(ctx context.Context, id int64) (User, error) {
	var user User
	err := ss.db.WithContext(ctx).First(&user, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return User{}, ErrUserNotFound
	}
	return user, err
}

func (ss *sqliteUserStorage) Exists(ctx context.Context, username, email string) (bool, error) {
	var count int64
	err := ss.db.WithContext(ctx).Model(&User{}).
		Where("username = ? OR email = ?", username, email).
		Count(&count).Error
	return count > 0, err
}

func (ss *sqliteUserStorage) Reset(ctx context.Context) error {
	return ss.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&User{}).Error; err != nil {
			return err
		}
		return resetSequence(tx, "users")
	})
}
