package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noMiddlewares() *MiddlewareMap {
	return &MiddlewareMap{public: (&Middlewares{}).Chain, ops: (&Middlewares{}).Chain}
}

// TestSetupBookRoutes ensures all expected book and user endpoints are implemented.
//
//nolint:funlen
func TestSetupBookRoutes(t *testing.T) {
	testCases := []struct {
		name        string
		request     *http.Request
		implemented bool
	}{
		{
			"index endpoint",
			httptest.NewRequest(http.MethodGet, "/", nil),
			true,
		},
		{
			"status endpoint",
			httptest.NewRequest(http.MethodGet, "/status", nil),
			true,
		},
		{
			"create book endpoint",
			httptest.NewRequest(http.MethodPost, "/books", nil),
			true,
		},
		{
			"fetch all books endpoint",
			httptest.NewRequest(http.MethodGet, "/books", nil),
			true,
		},
		{
			"fetch all books endpoint with slash",
			httptest.NewRequest(http.MethodGet, "/books/", nil),
			true,
		},
		{
			"fetch single book endpoint",
			httptest.NewRequest(http.MethodGet, "/books/1", nil),
			true,
		},
		{
			"update book endpoint",
			httptest.NewRequest(http.MethodPut, "/books/1", nil),
			true,
		},
		{
			"delete book endpoint",
			httptest.NewRequest(http.MethodDelete, "/books/1", nil),
			true,
		},
		{
			"prefixed fetch all books endpoint",
			httptest.NewRequest(http.MethodGet, "/api/books", nil),
			true,
		},
		{
			"prefixed fetch single book endpoint",
			httptest.NewRequest(http.MethodGet, "/api/books/2", nil),
			true,
		},
		{
			"prefixed delete book endpoint",
			httptest.NewRequest(http.MethodDelete, "/api/books/2", nil),
			true,
		},
		{
			"create user endpoint",
			httptest.NewRequest(http.MethodPost, "/users", nil),
			true,
		},
		{
			"prefixed create user endpoint",
			httptest.NewRequest(http.MethodPost, "/api/users", nil),
			true,
		},
		{
			"invalid api endpoint",
			httptest.NewRequest(http.MethodGet, "/api", nil),
			false,
		},
		{
			"old versioned books endpoint",
			httptest.NewRequest(http.MethodGet, "/v1/books", nil),
			false,
		},
		{
			"nested book path",
			httptest.NewRequest(http.MethodGet, "/books/1/pages", nil),
			false,
		},
	}

	tc := newTestCatalog(t)
	router := httprouter.New()
	m := noMiddlewares()
	tc.api.SetupBookRoutes(router, m)
	tc.api.SetupUserRoutes(router, m)

	for _, c := range testCases {
		t.Run(c.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, c.request)
			if c.implemented {
				assert.NotEqual(t, 404, w.Code)
			} else {
				assert.Equal(t, 404, w.Code)
			}
		})
	}
}

// TestSetupOpsRoutes ensures all expected operations endpoints are implemented.
func TestSetupOpsRoutes(t *testing.T) {
	testCases := []struct {
		name        string
		profiler    bool
		request     *http.Request
		implemented bool
	}{
		{"fetch configs endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/configs", nil), true},
		{"fetch stats endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/stats", nil), true},
		{"maintenance mode endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/maintenance", nil), true},
		{"store init endpoint", false, httptest.NewRequest(http.MethodPost, "/ops/store/init", nil), true},
		{"store reset endpoint", false, httptest.NewRequest(http.MethodPost, "/ops/store/reset", nil), true},
		{"gc endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/debug/gc", nil), true},
		{"invalid ops endpoint", false, httptest.NewRequest(http.MethodGet, "/ops", nil), false},
		{"unknown ops endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/unknown", nil), false},
		{"disabled profiler endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/debug/pprof/", nil), false},
		{"enabled profiler endpoint", true, httptest.NewRequest(http.MethodGet, "/ops/debug/pprof/", nil), true},
		{"enabled profiler heap endpoint", true, httptest.NewRequest(http.MethodGet, "/ops/debug/pprof/heap", nil), true},
	}

	for _, c := range testCases {
		t.Run(c.name, func(t *testing.T) {
			tc := newTestCatalog(t)
			tc.config.ProfilerEnable = c.profiler
			router := httprouter.New()
			tc.api.SetupOpsRoutes(router, noMiddlewares())
			w := httptest.NewRecorder()
			router.ServeHTTP(w, c.request)
			if c.implemented {
				assert.NotEqual(t, 404, w.Code)
			} else {
				assert.Equal(t, 404, w.Code)
			}
		})
	}
}

// TestSetupRoutes ensures ops endpoints only exist when enabled.
func TestSetupRoutes(t *testing.T) {
	testCases := []struct {
		name               string
		OpsEndpointsEnable bool
		request            *http.Request
		implemented        bool
	}{
		{"ops disable:fetch configs endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/configs", nil), false},
		{"ops enable:fetch configs endpoint", true, httptest.NewRequest(http.MethodGet, "/ops/configs", nil), true},
		{"ops disable:store reset endpoint", false, httptest.NewRequest(http.MethodPost, "/ops/store/reset", nil), false},
		{"ops enable:disabled profiler endpoint", true, httptest.NewRequest(http.MethodGet, "/ops/debug/pprof/", nil), false},
		{"ops disable:create book endpoint", false, httptest.NewRequest(http.MethodPost, "/books", nil), true},
		{"ops enable:create book endpoint", true, httptest.NewRequest(http.MethodPost, "/books", nil), true},
		{"swagger documentation", false, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil), true},
		{"invalid ops endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/", nil), false},
	}

	for _, c := range testCases {
		t.Run(c.name, func(t *testing.T) {
			tc := newTestCatalog(t)
			tc.config.OpsEndpointsEnable = c.OpsEndpointsEnable
			router := tc.api.SetupRoutes(httprouter.New(), noMiddlewares())
			w := httptest.NewRecorder()
			router.ServeHTTP(w, c.request)
			if c.implemented {
				assert.NotEqual(t, 404, w.Code)
			} else {
				assert.Equal(t, 404, w.Code)
			}
		})
	}
}

// TestSetupRoutes_NotFound ensures exact status code and json response body when a user requests an inexistant route.
func TestSetupRoutes_NotFound(t *testing.T) {
	tc := newTestCatalog(t)
	router := tc.api.SetupRoutes(httprouter.New(), noMiddlewares())
	r := httptest.NewRequest(http.MethodGet, "/x/books/", nil)
	r.Header.Set(RequestIDHeader, "r:abc")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)

	res := w.Result()
	defer res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Equal(t, "application/json; charset=UTF-8", res.Header.Get("Content-Type"))
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	expected := `{"requestid":"r:abc", "status":404, "message":"resource not found"}`
	assert.JSONEq(t, expected, string(data))
}

// TestSetupRoutes_Preflight ensures browsers preflight requests get the cors headers.
func TestSetupRoutes_Preflight(t *testing.T) {
	tc := newTestCatalog(t)
	router := tc.api.SetupRoutes(httprouter.New(), noMiddlewares())

	r := httptest.NewRequest(http.MethodOptions, "/books/1", nil)
	r.Header.Set("Origin", "http://localhost:3000")
	r.Header.Set("Access-Control-Request-Method", http.MethodPut)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Content-Type")
	assert.Contains(t, w.Header().Get("Allow"), http.MethodDelete)

	r = httptest.NewRequest(http.MethodOptions, "/api/books", nil)
	r.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Allow"), http.MethodPost)

	r = httptest.NewRequest(http.MethodOptions, "/unknown", nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, r)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// TestRoutesEndToEnd runs a book lifecycle through the full public middlewares stack.
func TestRoutesEndToEnd(t *testing.T) {
	tc := newTestCatalog(t)
	tc.api.idsHandler = NewMockUIDHandler("cb8f2136-fae4-4200-85d9-3533c7f8c70d", false)
	pub, ops := tc.api.MiddlewaresStacks()
	router := tc.api.SetupRoutes(httprouter.New(), &MiddlewareMap{public: pub.Chain, ops: ops.Chain})
	server := httptest.NewServer(router)
	defer server.Close()

	do := func(method, path, body string) *http.Response {
		var reader io.Reader
		if body != "" {
			reader = strings.NewReader(body)
		}
		req, err := http.NewRequest(method, server.URL+path, reader)
		require.NoError(t, err)
		res, err := server.Client().Do(req)
		require.NoError(t, err)
		return res
	}

	res := do(http.MethodPost, "/api/books", `{"title":"Dune","year":1965}`)
	res.Body.Close()
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.NotEmpty(t, res.Header.Get(RequestIDHeader))
	assert.Equal(t, "*", res.Header.Get("Access-Control-Allow-Origin"))

	res = do(http.MethodPut, "/books/6", `{"price":7.5}`)
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res = do(http.MethodDelete, "/books/6", "")
	res.Body.Close()
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res = do(http.MethodGet, "/api/books/6", "")
	res.Body.Close()
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	assert.Equal(t, uint64(4), tc.api.stats.called)
	assert.Equal(t, uint64(1), tc.api.stats.status[http.StatusCreated])
	assert.Equal(t, uint64(2), tc.api.stats.status[http.StatusOK])
	assert.Equal(t, uint64(1), tc.api.stats.status[http.StatusNotFound])
}
