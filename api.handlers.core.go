package main

import (
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

var EmptyData = struct{}{}

// Statistics holds app stats for ops.
type Statistics struct {
	version   string
	container bool
	runtime   string
	platform  string
	backend   string
	called    uint64
	started   time.Time
	status    map[int]uint64
	mu        *sync.RWMutex
}

// Maintenance holds the maintenance mode switch. The flag is read on
// every public request; message and started are guarded by mu.
type Maintenance struct {
	enabled atomic.Bool
	mu      sync.RWMutex
	message string
	started time.Time
}

func (m *Maintenance) enable(message string, at time.Time) {
	m.mu.Lock()
	m.message, m.started = message, at
	m.mu.Unlock()
	m.enabled.Store(true)
}

func (m *Maintenance) disable() {
	m.enabled.Store(false)
	m.mu.Lock()
	m.message, m.started = "", time.Time{}
	m.mu.Unlock()
}

// details returns the current reason and start time.
func (m *Maintenance) details() (string, time.Time) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.message, m.started
}

// APIHandler defines the API handler.
type APIHandler struct {
	logger       *zap.Logger
	config       *Config
	stats        *Statistics
	mode         *Maintenance
	clock        Clocker
	idsHandler   UIDHandler
	limiters     *ClientLimiters
	bookService  BookServiceProvider
	userService  UserServiceProvider
	storeService StoreServiceProvider
}

// NewAPIHandler provides a new instance of APIHandler.
func NewAPIHandler(
	logger *zap.Logger,
	config *Config,
	stats *Statistics,
	clock Clocker,
	idsHandler UIDHandler,
	bs BookServiceProvider,
	us UserServiceProvider,
	ss StoreServiceProvider,
) *APIHandler {
	stats.status = make(map[int]uint64)
	stats.mu = &sync.RWMutex{}
	return &APIHandler{
		logger:       logger,
		config:       config,
		stats:        stats,
		mode:         &Maintenance{},
		clock:        clock,
		idsHandler:   idsHandler,
		limiters:     NewClientLimiters(config.Server.RateLimit, config.Server.RateBurst),
		bookService:  bs,
		userService:  us,
		storeService: ss,
	}
}

// Index describes the service and lists its public operations.
func (api *APIHandler) Index(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	resp := GenericResponse(requestID, http.StatusOK, "Bookshelf API", nil, map[string]interface{}{
		"name":        "Bookshelf API",
		"version":     api.stats.version,
		"description": "REST API to manage a catalog of books",
		"endpoints": map[string]string{
			"GET /books":         "list all books",
			"GET /books/:id":     "get a book by id",
			"POST /books":        "add a new book",
			"PUT /books/:id":     "update some fields of a book",
			"DELETE /books/:id":  "delete a book",
			"POST /users":        "register a new user",
			"GET /status":        "service liveness",
			"GET /swagger/*path": "api documentation",
		},
	})
	if err := WriteResponse(r.Context(), w, resp); err != nil {
		api.logger.Error("failed to send index response", zap.String("request.id", requestID), zap.Error(err))
	}
}

// Status reports liveness and uptime to the public users.
func (api *APIHandler) Status(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	api.writeOps(w, r, http.StatusOK, "status", map[string]interface{}{
		"requestid": GetValueFromContext(r.Context(), RequestIDContextKey),
		"status":    fmt.Sprintf("up & running since %.0f mins", api.clock.Now().Sub(api.stats.started).Minutes()),
		"message":   "Hello. Bookshelf api is available. Enjoy :)",
	})
}
