package main

import (
	"context"
	"time"
)

const (
	MinBookYear         = 1000
	MaxBookYear         = 2026
	DefaultBookQuantity = 1
)

// Book represents a book entity.
type Book struct {
	ID          int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Title       string    `json:"title" gorm:"not null"`
	Author      *string   `json:"author"`
	Year        *int      `json:"year"`
	Price       float64   `json:"price" gorm:"not null"`
	Quantity    int       `json:"quantity" gorm:"not null"`
	Description *string   `json:"description"`
	UserID      int64     `json:"user_id" gorm:"index;not null"`
	CreatedAt   time.Time `json:"createdAt" gorm:"autoCreateTime:false"`
	UpdatedAt   time.Time `json:"updatedAt" gorm:"autoUpdateTime:false"`
}

// BookStorage defines possible operations on book entity. Implementations
// own the identifier counter: Add assigns the next id and an id is never
// handed out twice during the lifetime of the store (until Reset).
type BookStorage interface {
	Add(ctx context.Context, book Book) (Book, error)
	Put(ctx context.Context, book Book) error
	GetOne(ctx context.Context, id int64) (Book, error)
	GetAll(ctx context.Context) ([]Book, error)
	Update(ctx context.Context, book Book) (Book, error)
	Delete(ctx context.Context, id int64) error
	Reset(ctx context.Context) error
}
