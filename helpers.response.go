package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"
)

// StatusClientClosedRequest is the nginx code recorded when the
// client goes away before the response is sent.
const StatusClientClosedRequest = 499

// CustomResponseWriter records the status code and body size of a
// response for the access logs and statistics. It also exposes the
// connection deadlines to http.ResponseController.
type CustomResponseWriter struct {
	http.ResponseWriter
	conn    net.Conn
	code    int
	bytes   int
	written bool
}

// NewCustomResponseWriter wraps rw. The status defaults to 200 until
// a handler writes another one. c may be nil.
func NewCustomResponseWriter(rw http.ResponseWriter, c net.Conn) *CustomResponseWriter {
	return &CustomResponseWriter{ResponseWriter: rw, conn: c, code: http.StatusOK}
}

// WriteHeader keeps the first status written and ignores the others.
func (cw *CustomResponseWriter) WriteHeader(code int) {
	if cw.written {
		return
	}
	cw.code, cw.written = code, true
	cw.ResponseWriter.WriteHeader(code)
}

func (cw *CustomResponseWriter) Write(b []byte) (int, error) {
	if !cw.written {
		cw.WriteHeader(cw.code)
	}
	n, err := cw.ResponseWriter.Write(b)
	cw.bytes += n
	return n, err
}

func (cw *CustomResponseWriter) Status() int { return cw.code }

func (cw *CustomResponseWriter) Bytes() int { return cw.bytes }

// Unwrap is used by http.ResponseController.
func (cw *CustomResponseWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}

func (cw *CustomResponseWriter) SetWriteDeadline(t time.Time) error {
	if cw.conn == nil {
		return fmt.Errorf("http: no underlying connection: %w", http.ErrNotSupported)
	}
	return cw.conn.SetWriteDeadline(t)
}

func (cw *CustomResponseWriter) SetReadDeadline(t time.Time) error {
	if cw.conn == nil {
		return fmt.Errorf("http: no underlying connection: %w", http.ErrNotSupported)
	}
	return cw.conn.SetReadDeadline(t)
}

// APIError is the error envelope. Message holds the single reason and
// Errors lists every validation failure when there are any.
type APIError struct {
	RequestID string   `json:"requestid"`
	Status    int      `json:"status"`
	Message   string   `json:"message"`
	Errors    []string `json:"errors,omitempty"`
}

// APIResponse is the success envelope. Total is only set on listings.
type APIResponse struct {
	RequestID string      `json:"requestid"`
	Status    int         `json:"status"`
	Message   string      `json:"message"`
	Total     *int        `json:"total,omitempty"`
	Data      interface{} `json:"data"`
}

func NewAPIError(requestid string, status int, message string, errs []string) *APIError {
	return &APIError{RequestID: requestid, Status: status, Message: message, Errors: errs}
}

func GenericResponse(requestid string, status int, message string, total *int, data interface{}) *APIResponse {
	return &APIResponse{RequestID: requestid, Status: status, Message: message, Total: total, Data: data}
}

// WriteErrorResponse sends an error envelope.
func WriteErrorResponse(ctx context.Context, w http.ResponseWriter, errResp *APIError) error {
	return writeJSON(ctx, w, errResp.Status, errResp)
}

// WriteResponse sends a success envelope.
func WriteResponse(ctx context.Context, w http.ResponseWriter, resp *APIResponse) error {
	return writeJSON(ctx, w, resp.Status, resp)
}

// writeJSON encodes v with the given status. When ctx is already done
// nothing is encoded and the status becomes 504 on timeout or 499 on
// cancellation, so that the statistics reflect what happened.
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v interface{}) error {
	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			w.WriteHeader(http.StatusGatewayTimeout)
		} else {
			w.WriteHeader(StatusClientClosedRequest)
		}
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}
