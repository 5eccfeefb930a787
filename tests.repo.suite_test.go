package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testBookStorage runs the behaviors every book storage backend must share.
// newStorage must return an empty storage for each call.
//
//nolint:funlen
func testBookStorage(t *testing.T, newStorage func(t *testing.T) BookStorage) {
	ctx := context.Background()

	t.Run("add assigns increasing ids", func(t *testing.T) {
		bs := newStorage(t)
		first, err := bs.Add(ctx, sampleBook("first"))
		require.NoError(t, err)
		second, err := bs.Add(ctx, sampleBook("second"))
		require.NoError(t, err)
		assert.Equal(t, int64(1), first.ID)
		assert.Equal(t, int64(2), second.ID)
	})

	t.Run("get existent book", func(t *testing.T) {
		bs := newStorage(t)
		added, err := bs.Add(ctx, sampleBook("War and Peace"))
		require.NoError(t, err)
		book, err := bs.GetOne(ctx, added.ID)
		require.NoError(t, err)
		assertSameBook(t, added, book)
	})

	t.Run("optional fields stay null", func(t *testing.T) {
		bs := newStorage(t)
		added, err := bs.Add(ctx, Book{Title: "bare", Quantity: 0, UserID: 1, CreatedAt: fixedTime, UpdatedAt: fixedTime})
		require.NoError(t, err)
		book, err := bs.GetOne(ctx, added.ID)
		require.NoError(t, err)
		assert.Nil(t, book.Author)
		assert.Nil(t, book.Year)
		assert.Nil(t, book.Description)
		assert.Equal(t, 0, book.Quantity)
	})

	t.Run("get nonexistent book", func(t *testing.T) {
		bs := newStorage(t)
		book, err := bs.GetOne(ctx, 42)
		assert.ErrorIs(t, err, ErrBookNotFound)
		assert.Equal(t, Book{}, book)
	})

	t.Run("get all in id order", func(t *testing.T) {
		bs := newStorage(t)
		books, err := bs.GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, books)

		for _, title := range []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k"} {
			_, err = bs.Add(ctx, sampleBook(title))
			require.NoError(t, err)
		}
		books, err = bs.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, books, 11)
		for i, book := range books {
			assert.Equal(t, int64(i+1), book.ID)
		}
	})

	t.Run("update existent book", func(t *testing.T) {
		bs := newStorage(t)
		added, err := bs.Add(ctx, sampleBook("before"))
		require.NoError(t, err)
		added.Title = "after"
		added.Year = nil
		added.Quantity = 0
		updated, err := bs.Update(ctx, added)
		require.NoError(t, err)
		assertSameBook(t, added, updated)

		book, err := bs.GetOne(ctx, added.ID)
		require.NoError(t, err)
		assertSameBook(t, added, book)
	})

	t.Run("update nonexistent book", func(t *testing.T) {
		bs := newStorage(t)
		book := sampleBook("ghost")
		book.ID = 7
		_, err := bs.Update(ctx, book)
		assert.ErrorIs(t, err, ErrBookNotFound)
		_, err = bs.GetOne(ctx, 7)
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("delete twice", func(t *testing.T) {
		bs := newStorage(t)
		added, err := bs.Add(ctx, sampleBook("to delete"))
		require.NoError(t, err)
		assert.NoError(t, bs.Delete(ctx, added.ID))
		assert.ErrorIs(t, bs.Delete(ctx, added.ID), ErrBookNotFound)
		_, err = bs.GetOne(ctx, added.ID)
		assert.ErrorIs(t, err, ErrBookNotFound)
	})

	t.Run("ids are never reused", func(t *testing.T) {
		bs := newStorage(t)
		first, err := bs.Add(ctx, sampleBook("first"))
		require.NoError(t, err)
		second, err := bs.Add(ctx, sampleBook("second"))
		require.NoError(t, err)
		require.NoError(t, bs.Delete(ctx, second.ID))
		require.NoError(t, bs.Delete(ctx, first.ID))
		third, err := bs.Add(ctx, sampleBook("third"))
		require.NoError(t, err)
		assert.Equal(t, int64(3), third.ID)
	})

	t.Run("put moves the counter forward", func(t *testing.T) {
		bs := newStorage(t)
		book := sampleBook("mirrored")
		book.ID = 10
		require.NoError(t, bs.Put(ctx, book))
		got, err := bs.GetOne(ctx, 10)
		require.NoError(t, err)
		assertSameBook(t, book, got)

		book.Title = "mirrored again"
		require.NoError(t, bs.Put(ctx, book))
		got, err = bs.GetOne(ctx, 10)
		require.NoError(t, err)
		assert.Equal(t, "mirrored again", got.Title)

		next, err := bs.Add(ctx, sampleBook("next"))
		require.NoError(t, err)
		assert.Equal(t, int64(11), next.ID)
	})

	t.Run("reset wipes books and restarts ids", func(t *testing.T) {
		bs := newStorage(t)
		for _, title := range []string{"a", "b", "c"} {
			_, err := bs.Add(ctx, sampleBook(title))
			require.NoError(t, err)
		}
		require.NoError(t, bs.Reset(ctx))
		books, err := bs.GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, books)

		added, err := bs.Add(ctx, sampleBook("fresh"))
		require.NoError(t, err)
		assert.Equal(t, int64(1), added.ID)
	})
}

// testUserStorage runs the behaviors every user storage backend must share.
func testUserStorage(t *testing.T, newStorage func(t *testing.T) UserStorage) {
	ctx := context.Background()
	alice := User{Username: "alice", Email: "alice@example.com", PasswordHash: "hash", CreatedAt: fixedTime}

	t.Run("add assigns ids", func(t *testing.T) {
		us := newStorage(t)
		first, err := us.Add(ctx, alice)
		require.NoError(t, err)
		second, err := us.Add(ctx, User{Username: "bob", Email: "bob@example.com", PasswordHash: "hash", CreatedAt: fixedTime})
		require.NoError(t, err)
		assert.Equal(t, int64(1), first.ID)
		assert.Equal(t, int64(2), second.ID)
		assert.Equal(t, "alice", first.Username)
		assert.Equal(t, "hash", first.PasswordHash)
	})

	t.Run("duplicate username or email", func(t *testing.T) {
		us := newStorage(t)
		_, err := us.Add(ctx, alice)
		require.NoError(t, err)

		_, err = us.Add(ctx, User{Username: "alice", Email: "other@example.com", PasswordHash: "hash"})
		assert.ErrorIs(t, err, ErrUserConflict)
		_, err = us.Add(ctx, User{Username: "other", Email: "alice@example.com", PasswordHash: "hash"})
		assert.ErrorIs(t, err, ErrUserConflict)
	})

	t.Run("exists", func(t *testing.T) {
		us := newStorage(t)
		found, err := us.Exists(ctx, "alice", "alice@example.com")
		require.NoError(t, err)
		assert.False(t, found)

		_, err = us.Add(ctx, alice)
		require.NoError(t, err)

		found, err = us.Exists(ctx, "alice", "nobody@example.com")
		require.NoError(t, err)
		assert.True(t, found)
		found, err = us.Exists(ctx, "nobody", "alice@example.com")
		require.NoError(t, err)
		assert.True(t, found)
		found, err = us.Exists(ctx, "nobody", "nobody@example.com")
		require.NoError(t, err)
		assert.False(t, found)
	})

	t.Run("get by id", func(t *testing.T) {
		us := newStorage(t)
		added, err := us.Add(ctx, alice)
		require.NoError(t, err)

		user, err := us.GetOne(ctx, added.ID)
		require.NoError(t, err)
		assert.Equal(t, added.ID, user.ID)
		assert.Equal(t, "alice", user.Username)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.Equal(t, "hash", user.PasswordHash)
		assert.True(t, fixedTime.Equal(user.CreatedAt))

		_, err = us.GetOne(ctx, added.ID+1)
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("put with explicit id", func(t *testing.T) {
		us := newStorage(t)
		user := alice
		user.ID = 5
		require.NoError(t, us.Put(ctx, user))
		found, err := us.Exists(ctx, "alice", "")
		require.NoError(t, err)
		assert.True(t, found)

		next, err := us.Add(ctx, User{Username: "bob", Email: "bob@example.com", PasswordHash: "hash"})
		require.NoError(t, err)
		assert.Equal(t, int64(6), next.ID)
	})

	t.Run("reset", func(t *testing.T) {
		us := newStorage(t)
		_, err := us.Add(ctx, alice)
		require.NoError(t, err)
		require.NoError(t, us.Reset(ctx))

		found, err := us.Exists(ctx, "alice", "alice@example.com")
		require.NoError(t, err)
		assert.False(t, found)

		added, err := us.Add(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, int64(1), added.ID)
	})
}
