package main

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestBookPayloadValidate ensures every broken rule is reported with its message.
//
//nolint:funlen
func TestBookPayloadValidate(t *testing.T) {
	testCases := []struct {
		name      string
		body      string
		forUpdate bool
		errs      []string
	}{
		{"valid full payload", `{"title":"War and Peace","author":"Leo Tolstoy","year":1869,"price":12.5,"quantity":2,"description":"novel","user_id":3}`, false, nil},
		{"title only", `{"title":"1984"}`, false, nil},
		{"missing title", `{"author":"George Orwell"}`, false, []string{"title is required"}},
		{"blank title", `{"title":"   "}`, false, []string{"title is required"}},
		{"null title", `{"title":null}`, false, []string{"title is required"}},
		{"title not a string", `{"title":42}`, false, []string{"title must be a string"}},
		{"blank title and year not a number", `{"title":"","year":"abc"}`, false, []string{"title is required", "year must be a number"}},
		{"year below range", `{"title":"t","year":999}`, false, []string{"year must be between 1000 and 2026"}},
		{"year above range", `{"title":"t","year":2027}`, false, []string{"year must be between 1000 and 2026"}},
		{"year lower bound", `{"title":"t","year":1000}`, false, nil},
		{"year upper bound", `{"title":"t","year":2026}`, false, nil},
		{"year numeric string", `{"title":"t","year":"1949"}`, false, nil},
		{"year fractional is truncated", `{"title":"t","year":1949.5}`, false, nil},
		{"year exponent", `{"title":"t","year":1.87e3}`, false, nil},
		{"year padded string", `{"title":"t","year":" 1870 "}`, false, nil},
		{"year fractional string", `{"title":"t","year":"1870.0"}`, false, []string{"year must be a number"}},
		{"year hex float string", `{"title":"t","year":"0x1p10"}`, false, []string{"year must be a number"}},
		{"year boolean", `{"title":"t","year":true}`, false, []string{"year must be between 1000 and 2026"}},
		{"year huge number", `{"title":"t","year":1e400}`, false, []string{"year must be between 1000 and 2026"}},
		{"year huge string", `{"title":"t","year":"99999999999999999999"}`, false, []string{"year must be between 1000 and 2026"}},
		{"year array", `{"title":"t","year":[1870]}`, false, []string{"year must be a number"}},
		{"price hex string", `{"title":"t","price":"0x10"}`, false, []string{"price must be a non-negative number"}},
		{"null year", `{"title":"t","year":null}`, false, nil},
		{"negative price", `{"title":"t","price":-1}`, false, []string{"price must be a non-negative number"}},
		{"price not a number", `{"title":"t","price":"cheap"}`, false, []string{"price must be a non-negative number"}},
		{"negative quantity", `{"title":"t","quantity":-2}`, false, []string{"quantity must be a non-negative integer"}},
		{"fractional quantity", `{"title":"t","quantity":1.5}`, false, []string{"quantity must be a non-negative integer"}},
		{"zero user id", `{"title":"t","user_id":0}`, false, []string{"user_id must be a positive integer"}},
		{"author not a string", `{"title":"t","author":["a"]}`, false, []string{"author must be a string"}},
		{"description not a string", `{"title":"t","description":{}}`, false, []string{"description must be a string"}},
		{
			"every rule broken",
			`{"title":1,"author":1,"year":"x","price":-1,"quantity":-1,"description":1,"user_id":-1}`,
			false,
			[]string{
				"title must be a string",
				"author must be a string",
				"year must be a number",
				"price must be a non-negative number",
				"quantity must be a non-negative integer",
				"description must be a string",
				"user_id must be a positive integer",
			},
		},
		{"update empty payload", `{}`, true, nil},
		{"update without title", `{"year":1870}`, true, nil},
		{"update blank title", `{"title":" "}`, true, []string{"title must not be blank"}},
		{"update null title", `{"title":null}`, true, []string{"title must not be blank"}},
		{"update year out of range", `{"year":3000}`, true, []string{"year must be between 1000 and 2026"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := payloadOf(t, tc.body).Validate(tc.forUpdate)
			if tc.errs == nil {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "expected a validation error, got %v", err)
			assert.Equal(t, tc.errs, verr.Violations())
		})
	}
}

// TestBookRequestApplyTo ensures only present members change the book.
func TestBookRequestApplyTo(t *testing.T) {
	t.Run("creation defaults", func(t *testing.T) {
		req, err := payloadOf(t, `{"title":"  Dune  ","author":"","year":"1965"}`).Validate(false)
		require.NoError(t, err)
		book := Book{Quantity: DefaultBookQuantity, UserID: 1}
		req.ApplyTo(&book, 1)
		assert.Equal(t, "Dune", book.Title)
		assert.Nil(t, book.Author)
		assert.Equal(t, 1965, *book.Year)
		assert.Equal(t, 0.0, book.Price)
		assert.Equal(t, 1, book.Quantity)
		assert.Nil(t, book.Description)
		assert.Equal(t, int64(1), book.UserID)
	})

	t.Run("fractional year truncated toward zero", func(t *testing.T) {
		req, err := payloadOf(t, `{"year":1870.9}`).Validate(true)
		require.NoError(t, err)
		book := sampleBook("kept")
		req.ApplyTo(&book, 1)
		assert.Equal(t, 1870, *book.Year)
	})

	t.Run("null members reset to defaults", func(t *testing.T) {
		req, err := payloadOf(t, `{"year":null,"price":null,"quantity":null,"user_id":null,"description":null}`).Validate(true)
		require.NoError(t, err)
		book := sampleBook("kept")
		book.UserID = 9
		req.ApplyTo(&book, 1)
		assert.Equal(t, "kept", book.Title)
		assert.Equal(t, "Leo Tolstoy", *book.Author)
		assert.Nil(t, book.Year)
		assert.Equal(t, 0.0, book.Price)
		assert.Equal(t, DefaultBookQuantity, book.Quantity)
		assert.Nil(t, book.Description)
		assert.Equal(t, int64(1), book.UserID)
	})

	t.Run("empty payload changes nothing", func(t *testing.T) {
		req, err := payloadOf(t, `{}`).Validate(true)
		require.NoError(t, err)
		book := sampleBook("same")
		before := book
		req.ApplyTo(&book, 1)
		assert.Equal(t, before, book)
	})
}
