package main

import (
	"net/http"
	"net/http/pprof"

	"github.com/julienschmidt/httprouter"
)

// profiles are the runtime/pprof lookups served under /ops/debug/pprof/.
var profiles = []string{"heap", "allocs", "goroutine", "threadcreate", "block", "mutex"}

// SetupOpsRoutes registers the internal operations endpoints. The
// profiler ones only exist when enabled in the configs.
func (api *APIHandler) SetupOpsRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.GET("/ops/configs", m.ops(api.GetConfigs))
	router.GET("/ops/stats", m.ops(api.GetStatistics))
	router.GET("/ops/maintenance", m.ops(api.Maintenance))
	router.POST("/ops/store/init", m.ops(api.InitStore))
	router.POST("/ops/store/reset", m.ops(api.ResetStore))
	router.GET("/ops/debug/vars", m.ops(GetMemStats))
	router.GET("/ops/debug/gc", m.ops(api.RunGC))
	router.GET("/ops/debug/fos", m.ops(api.FreeOSMemory))

	if !api.config.ProfilerEnable {
		return router
	}
	pprofs := map[string]http.Handler{
		"":        http.HandlerFunc(pprof.Index),
		"profile": http.HandlerFunc(pprof.Profile),
		"trace":   http.HandlerFunc(pprof.Trace),
		"symbol":  http.HandlerFunc(pprof.Symbol),
		"cmdline": http.HandlerFunc(pprof.Cmdline),
	}
	for _, name := range profiles {
		pprofs[name] = pprof.Handler(name)
	}
	for name, h := range pprofs {
		router.GET("/ops/debug/pprof/"+name, m.ops(api.OpsHandlerWrapper(h)))
	}
	return router
}
