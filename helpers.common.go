package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"

	"go.uber.org/multierr"
)

var (
	ErrBookNotFound   = errors.New("book not found")
	ErrUserConflict   = errors.New("username or email already exists")
	ErrUserNotFound   = errors.New("user not found")
	ErrInvalidPayload = errors.New("invalid JSON body")
	ErrInvalidBookID  = errors.New("book id provided is not valid")
)

type (
	ContextKey        string
	missingFieldError string
)

const (
	RequestIDPrefix         string     = "r"
	RequestIDHeader         string     = "X-Request-ID"
	RequestIDContextKey     ContextKey = "request.id"
	RequestNumberContextKey ContextKey = "request.number"
	ConnContextKey          ContextKey = "http-conn"
	maxRequestBodySize      int64      = 1 << 20
)

func (m missingFieldError) Error() string {
	return string(m) + " is required"
}

type invalidFieldError struct {
	field  string
	reason string
}

func (e invalidFieldError) Error() string {
	return e.field + " " + e.reason
}

// ValidationError is the batch of rule violations found in a single payload.
type ValidationError struct {
	err error
}

func (v *ValidationError) Error() string {
	return "validation failed: " + strings.Join(v.Violations(), "; ")
}

// Violations returns one human-readable message per broken rule.
func (v *ValidationError) Violations() []string {
	errs := multierr.Errors(v.err)
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return msgs
}

func (v *ValidationError) Unwrap() error {
	return v.err
}

// GetValueFromContext returns the value of a given key in the context
// if this key is not available, it returns an empty string.
func GetValueFromContext(ctx context.Context, contextKey ContextKey) string {
	if val, ok := ctx.Value(contextKey).(string); ok {
		return val
	}
	return ""
}

// GetRequestNumberFromContext returns the request number set in
// the context. if not previously set then it returns 0.
func GetRequestNumberFromContext(ctx context.Context) uint64 {
	if val, ok := ctx.Value(RequestNumberContextKey).(uint64); ok {
		return val
	}
	return 0
}

// ParseBookID reads a book identifier from a path parameter.
func ParseBookID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidBookID
	}
	return id, nil
}

// DecodeBookRequestBody is a helper function to read the content of a book creation or update
// request. The body must be a json object, anything else is reported as ErrInvalidPayload.
func DecodeBookRequestBody(r *http.Request) (BookPayload, error) {
	var payload BookPayload
	if err := decodeJSONObject(r, &payload); err != nil {
		return nil, err
	}
	if payload == nil {
		return nil, ErrInvalidPayload
	}
	return payload, nil
}

// DecodeUserRequestBody reads a user creation request. A body that is not a
// json object gives ErrInvalidPayload, and members that are not strings are
// reported together in a *ValidationError.
func DecodeUserRequestBody(r *http.Request, req *UserRequest) error {
	var raw map[string]json.RawMessage
	if err := decodeJSONObject(r, &raw); err != nil {
		return err
	}
	if raw == nil {
		return ErrInvalidPayload
	}
	var errs error
	for _, m := range []struct {
		name string
		dst  *string
	}{{"username", &req.Username}, {"email", &req.Email}, {"password", &req.Password}} {
		v, ok := raw[m.name]
		if !ok || string(v) == "null" {
			continue
		}
		if err := json.Unmarshal(v, m.dst); err != nil {
			errs = multierr.Append(errs, invalidFieldError{m.name, "must be a string"})
		}
	}
	if errs != nil {
		return &ValidationError{err: errs}
	}
	return nil
}

func decodeJSONObject(r *http.Request, v interface{}) error {
	if r.Body == nil || r.Body == http.NoBody {
		return ErrInvalidPayload
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize))
	if err := dec.Decode(v); err != nil {
		return ErrInvalidPayload
	}
	var trailing json.RawMessage
	if err := dec.Decode(&trailing); !errors.Is(err, io.EOF) {
		return ErrInvalidPayload
	}
	return nil
}

// GetRequestSourceIP helps find the source IP of the caller.
func GetRequestSourceIP(r *http.Request) string {
	// Get IP from the X-REAL-IP header
	ip := r.Header.Get("X-REAL-IP")
	netIP := net.ParseIP(ip)
	if netIP != nil {
		return ip
	}

	// Get IP from X-FORWARDED-FOR header
	ips := r.Header.Get("X-FORWARDED-FOR")
	splitIps := strings.Split(ips, ",")
	for _, ip := range splitIps {
		ip = strings.TrimSpace(ip)
		netIP = net.ParseIP(ip)
		if netIP != nil {
			return ip
		}
	}

	// Get IP from RemoteAddr
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return ""
	}
	netIP = net.ParseIP(ip)
	if netIP != nil {
		return ip
	}
	return ""
}

// IsAppRunningInDocker checks the existence of the .dockerenv
// file at the root directory and returns a boolean result. This
// helps know if the App is running in a docker container or not.
func IsAppRunningInDocker() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return false
}

// SaveConnInContext is the hook used by the server under ConnContext.
// It sets the underlying connection into the request context for later
// use by ReadDeadline or WriteDeadline method on *CustomResponseWriter.
func SaveConnInContext(ctx context.Context, c net.Conn) context.Context {
	return context.WithValue(ctx, ConnContextKey, c)
}

// GetConnFromContext returns the connection saved into the context or nil.
func GetConnFromContext(ctx context.Context) net.Conn {
	c, _ := ctx.Value(ConnContextKey).(net.Conn)
	return c
}
