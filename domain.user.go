package main

import (
	"context"
	"time"
)

// User represents the owner of books. The password hash never
// leaves the service through the api responses.
type User struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Username     string    `json:"username" gorm:"uniqueIndex;not null"`
	Email        string    `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"not null"`
	CreatedAt    time.Time `json:"createdAt" gorm:"autoCreateTime:false"`
}

// UserStorage defines possible operations on user entity.
type UserStorage interface {
	Add(ctx context.Context, user User) (User, error)
	Put(ctx context.Context, user User) error
	GetOne(ctx context.Context, id int64) (User, error)
	Exists(ctx context.Context, username, email string) (bool, error)
	Reset(ctx context.Context) error
}

// userRecord is the persisted form of a user for key/value stores
// where the api json tags of User cannot be used.
type userRecord struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

func toUserRecord(u User) userRecord {
	return userRecord{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

func (r userRecord) User() User {
	return User{
		ID:           r.ID,
		Username:     r.Username,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}
}
