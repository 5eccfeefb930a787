package main

import (
	"net/http"
	"strings"

	"github.com/gofrs/uuid"
)

var _ UIDHandler = (*IDsHandler)(nil)

// UIDHandler generates and checks the prefixed ids attached to requests.
type UIDHandler interface {
	Generate(prefix string) string
	IsValid(id, prefix string) bool
}

// IDsHandler builds request ids as "<prefix>:<uuid v4>".
type IDsHandler struct{}

// NewIDsHandler returns a ready to use IDsHandler.
func NewIDsHandler() *IDsHandler {
	return &IDsHandler{}
}

// Generate returns a new prefixed id. It panics only if the
// system randomness source is broken.
func (idh *IDsHandler) Generate(prefix string) string {
	return prefix + ":" + uuid.Must(uuid.NewV4()).String()
}

// IsValid reports whether id carries the prefix followed by a non-nil uuid.
func (idh *IDsHandler) IsValid(id, prefix string) bool {
	raw, found := strings.CutPrefix(id, prefix+":")
	if !found {
		return false
	}
	return uuid.FromStringOrNil(raw) != uuid.Nil
}

// requestIDFrom keeps a well-formed X-Request-ID sent by the client
// and generates a new one otherwise.
func requestIDFrom(idh UIDHandler, r *http.Request) string {
	requestID := r.Header.Get(RequestIDHeader)
	if !idh.IsValid(requestID, RequestIDPrefix) {
		requestID = idh.Generate(RequestIDPrefix)
	}
	return requestID
}
