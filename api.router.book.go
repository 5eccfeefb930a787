package main

import (
	"github.com/julienschmidt/httprouter"
)

// SetupBookRoutes injects book related the api endpoints. The
// same operations are reachable under the /api prefix as well.
func (api *APIHandler) SetupBookRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.GET("/", m.public(api.Index))
	router.GET("/status", m.public(api.Status))
	for _, prefix := range []string{"", "/api"} {
		router.POST(prefix+"/books", m.public(api.CreateBook))
		router.GET(prefix+"/books", m.public(api.GetAllBooks))
		router.GET(prefix+"/books/:id", m.public(api.GetOneBook))
		router.PUT(prefix+"/books/:id", m.public(api.UpdateBook))
		router.DELETE(prefix+"/books/:id", m.public(api.DeleteOneBook))
	}
	return router
}

// SetupUserRoutes injects user related the api endpoints.
func (api *APIHandler) SetupUserRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.POST("/users", m.public(api.CreateUser))
	router.POST("/api/users", m.public(api.CreateUser))
	return router
}
