package main

import (
	"encoding/json"
	"expvar"
	"fmt"
	"net/http"
	"runtime"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.uber.org/zap"
)

// writeOps encodes an ops answer. Ops endpoints reply with plain json
// objects rather than the catalog envelopes.
func (api *APIHandler) writeOps(w http.ResponseWriter, r *http.Request, status int, name string, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		api.logger.Error("failed to send "+name+" response",
			zap.String("request.id", GetValueFromContext(r.Context(), RequestIDContextKey)),
			zap.Error(err),
		)
	}
}

// Maintenance switches the maintenance mode. While enabled every public
// endpoint answers 503 with the given message.
//
//	/ops/maintenance?status=enable&msg=message-to-be-displayed-to-users
//	/ops/maintenance?status=disable
func (api *APIHandler) Maintenance(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	requestID := GetValueFromContext(r.Context(), RequestIDContextKey)
	q := r.URL.Query()
	switch q.Get("status") {
	case "enable":
		started := api.clock.Now().UTC()
		api.mode.enable(q.Get("msg"), started)
		api.logger.Warn("maintenance mode enabled", zap.String("request.id", requestID), zap.String("maintenance.message", q.Get("msg")))
		api.writeOps(w, r, http.StatusOK, "maintenance", map[string]interface{}{
			"requestid":           requestID,
			"maintenance.started": started.Format(time.RFC1123),
			"maintenance.message": q.Get("msg"),
			"message":             "Maintenance mode enabled successfully.",
		})
	case "disable":
		api.mode.disable()
		api.logger.Info("maintenance mode disabled", zap.String("request.id", requestID))
		api.writeOps(w, r, http.StatusOK, "maintenance", map[string]interface{}{
			"requestid": requestID,
			"message":   "Maintenance mode disabled successfully.",
		})
	default:
		api.writeOps(w, r, http.StatusBadRequest, "maintenance", map[string]interface{}{
			"requestid": requestID,
			"message":   "status must be enable or disable.",
		})
	}
}

var goroutines = expvar.NewInt("goroutines")

// GetMemStats serves the expvar variables, memstats included, with
// the current number of goroutines.
func GetMemStats(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	goroutines.Set(int64(runtime.NumGoroutine()))
	expvar.Handler().ServeHTTP(w, r)
}

// RunGC triggers a garbage collection in the background.
func (api *APIHandler) RunGC(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	go runtime.GC()
	api.writeOps(w, r, http.StatusOK, "run gc", map[string]string{"called": "go runtime.GC()"})
}

// FreeOSMemory returns as much memory as possible to the OS in the background.
func (api *APIHandler) FreeOSMemory(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	go debug.FreeOSMemory()
	api.writeOps(w, r, http.StatusOK, "free os memory", map[string]string{"called": "go debug.FreeOSMemory()"})
}

// GetStatistics reports runtime details and per status counters. The
// stats request itself is not yet in the status counters so it is
// left out of the called value as well.
func (api *APIHandler) GetStatistics(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	message, since := api.mode.details()
	started := ""
	if !since.IsZero() {
		started = since.Format(time.RFC1123)
	}
	called := atomic.LoadUint64(&api.stats.called)
	if called > 0 {
		called--
	}

	api.stats.mu.RLock()
	status := make(map[int]uint64, len(api.stats.status))
	for code, n := range api.stats.status {
		status[code] = n
	}
	api.stats.mu.RUnlock()

	api.writeOps(w, r, http.StatusOK, "statistics", map[string]interface{}{
		"requestid":     GetValueFromContext(r.Context(), RequestIDContextKey),
		"app.version":   api.stats.version,
		"app.container": api.stats.container,
		"app.platform":  api.stats.platform,
		"app.backend":   api.stats.backend,
		"go.version":    api.stats.runtime,
		"called":        called,
		"started":       api.stats.started.Format(time.RFC1123),
		"uptime":        fmt.Sprintf("%.0f mins", api.clock.Now().Sub(api.stats.started).Minutes()),
		"maintenance": map[string]interface{}{
			"enabled": api.mode.enabled.Load(),
			"started": started,
			"message": message,
		},
		"status": status,
	})
}

// GetConfigs serves the settings in use. Secrets are not serialized.
func (api *APIHandler) GetConfigs(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	api.writeOps(w, r, http.StatusOK, "configs", map[string]interface{}{"configs": api.config})
}

// InitStore seeds the default user and, if the catalog is empty, the initial books.
func (api *APIHandler) InitStore(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	if err := api.storeService.Init(r.Context()); err != nil {
		logger.Error("failed to initialize store", zap.Error(err))
		api.replyError(w, r, http.StatusInternalServerError, "failed to initialize the store", nil)
		return
	}
	logger.Info("store initialized")
	api.reply(w, r, http.StatusOK, "Store initialized successfully.", nil, EmptyData)
}

// ResetStore wipes books and users then seeds the store again.
func (api *APIHandler) ResetStore(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	logger := api.GetLoggerFromContext(r.Context())
	if err := api.storeService.Reset(r.Context()); err != nil {
		logger.Error("failed to reset store", zap.Error(err))
		api.replyError(w, r, http.StatusInternalServerError, "failed to reset the store", nil)
		return
	}
	logger.Warn("store reset")
	api.reply(w, r, http.StatusOK, "Store reset successfully.", nil, EmptyData)
}

// OpsHandlerWrapper adapts a standard http.Handler to the router.
func (api *APIHandler) OpsHandlerWrapper(h http.Handler) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		h.ServeHTTP(w, r)
	}
}
