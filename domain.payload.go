package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

// Field holds one member of a partial payload. Present tells whether the
// member was sent at all and Null whether it was sent as json null (or as
// a blank string for optional text members).
type Field[T any] struct {
	Present bool
	Null    bool
	Value   T
}

// BookPayload holds the raw members of a book creation or update request body.
// Members keep their json encoding until Validate coerces them.
type BookPayload map[string]json.RawMessage

// BookRequest is the typed view of a validated BookPayload.
type BookRequest struct {
	Title       Field[string]
	Author      Field[string]
	Year        Field[int]
	Price       Field[float64]
	Quantity    Field[int]
	Description Field[string]
	UserID      Field[int64]
}

// UserRequest is the body of a user creation request.
type UserRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required,max=72"`
}

// Validate coerces the payload into a BookRequest. It does not stop at the
// first violation: every broken rule is reported in the returned *ValidationError.
// The title is mandatory for creation only, but a title sent on update must
// still be a non-blank string.
func (p BookPayload) Validate(forUpdate bool) (BookRequest, error) {
	var req BookRequest
	var errs error

	errs = multierr.Append(errs, p.title(&req.Title, forUpdate))
	errs = multierr.Append(errs, p.text("author", &req.Author))
	errs = multierr.Append(errs, p.year(&req.Year))
	errs = multierr.Append(errs, p.price(&req.Price))
	errs = multierr.Append(errs, p.quantity(&req.Quantity))
	errs = multierr.Append(errs, p.text("description", &req.Description))
	errs = multierr.Append(errs, p.userID(&req.UserID))

	if errs != nil {
		return req, &ValidationError{err: errs}
	}
	return req, nil
}

// ApplyTo copies the present members of the request onto the book.
// Members sent as null fall back to their default value.
func (req BookRequest) ApplyTo(book *Book, defaultUserID int64) {
	if req.Title.Present {
		book.Title = req.Title.Value
	}
	if req.Author.Present {
		book.Author = optionalString(req.Author)
	}
	if req.Year.Present {
		book.Year = nil
		if !req.Year.Null {
			year := req.Year.Value
			book.Year = &year
		}
	}
	if req.Price.Present {
		book.Price = req.Price.Value
	}
	if req.Quantity.Present {
		book.Quantity = DefaultBookQuantity
		if !req.Quantity.Null {
			book.Quantity = req.Quantity.Value
		}
	}
	if req.Description.Present {
		book.Description = optionalString(req.Description)
	}
	if req.UserID.Present {
		book.UserID = defaultUserID
		if !req.UserID.Null {
			book.UserID = req.UserID.Value
		}
	}
}

func optionalString(f Field[string]) *string {
	if f.Null {
		return nil
	}
	s := f.Value
	return &s
}

func (p BookPayload) member(name string) (raw json.RawMessage, present, null bool) {
	raw, present = p[name]
	if !present {
		return nil, false, false
	}
	return raw, true, bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func (p BookPayload) title(f *Field[string], forUpdate bool) error {
	raw, present, null := p.member("title")
	f.Present, f.Null = present, null
	if !present {
		if forUpdate {
			return nil
		}
		return missingFieldError("title")
	}

	var s string
	if !null {
		if err := json.Unmarshal(raw, &s); err != nil {
			return invalidFieldError{"title", "must be a string"}
		}
	}
	f.Value = strings.TrimSpace(s)
	if f.Value == "" {
		if forUpdate {
			return invalidFieldError{"title", "must not be blank"}
		}
		return missingFieldError("title")
	}
	return nil
}

// text handles optional text members. A blank string is treated as null.
func (p BookPayload) text(name string, f *Field[string]) error {
	raw, present, null := p.member(name)
	f.Present, f.Null = present, null
	if !present || null {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return invalidFieldError{name, "must be a string"}
	}
	f.Value = strings.TrimSpace(s)
	f.Null = f.Value == ""
	return nil
}

func (p BookPayload) year(f *Field[int]) error {
	raw, present, null := p.member("year")
	f.Present, f.Null = present, null
	if !present || null {
		return nil
	}
	n, ok := decodeYear(raw)
	if !ok {
		return invalidFieldError{"year", "must be a number"}
	}
	if n < MinBookYear || n > MaxBookYear {
		return invalidFieldError{"year", "must be between " + strconv.Itoa(MinBookYear) + " and " + strconv.Itoa(MaxBookYear)}
	}
	f.Value = int(n)
	return nil
}

func (p BookPayload) price(f *Field[float64]) error {
	raw, present, null := p.member("price")
	f.Present, f.Null = present, null
	if !present || null {
		return nil
	}
	n, ok := decodeNumber(raw)
	if !ok {
		return invalidFieldError{"price", "must be a non-negative number"}
	}
	v, err := n.Float64()
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return invalidFieldError{"price", "must be a non-negative number"}
	}
	f.Value = v
	return nil
}

func (p BookPayload) quantity(f *Field[int]) error {
	raw, present, null := p.member("quantity")
	f.Present, f.Null = present, null
	if !present || null {
		return nil
	}
	n, ok := decodeInteger(raw)
	if !ok || n < 0 || n > math.MaxInt32 {
		return invalidFieldError{"quantity", "must be a non-negative integer"}
	}
	f.Value = int(n)
	return nil
}

func (p BookPayload) userID(f *Field[int64]) error {
	raw, present, null := p.member("user_id")
	f.Present, f.Null = present, null
	if !present || null {
		return nil
	}
	n, ok := decodeInteger(raw)
	if !ok || n <= 0 {
		return invalidFieldError{"user_id", "must be a positive integer"}
	}
	f.Value = n
	return nil
}

// decodeNumber accepts a json number or a string holding a number.
func decodeNumber(raw json.RawMessage) (json.Number, bool) {
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return "", false
	}
	switch t := v.(type) {
	case json.Number:
		return t, true
	case string:
		// only decimal json literals, not the hex or inf forms ParseFloat takes.
		var n json.Number
		if err := json.Unmarshal([]byte(strings.TrimSpace(t)), &n); err != nil {
			return "", false
		}
		return n, true
	}
	return "", false
}

// decodeYear converts a year member to an integer. Numbers are truncated toward zero, booleans count as 0 or 1, and
// strings must hold a base 10 integer. Values beyond int64 saturate so
// they fail the range check rather than the number check.
func decodeYear(raw json.RawMessage) (int64, bool) {
	var v interface{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}
	switch t := v.(type) {
	case bool:
		if t {
			return 1, true
		}
		return 0, true
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i, true
		}
		f, err := t.Float64()
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return 0, false
		}
		switch {
		case f >= math.MaxInt64:
			return math.MaxInt64, true
		case f <= math.MinInt64:
			return math.MinInt64, true
		}
		return int64(math.Trunc(f)), true
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return 0, false
		}
		return i, true
	}
	return 0, false
}

// decodeInteger is decodeNumber restricted to integral values, so that
// 1870, "1870" and 1.87e3 are all read as 1870.
func decodeInteger(raw json.RawMessage) (int64, bool) {
	n, ok := decodeNumber(raw)
	if !ok {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	f, err := n.Float64()
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return 0, false
	}
	return int64(f), true
}
