// Package resourcetest serves in-memory resource collections over HTTP so
// that tests can count the remote requests an operation issues.
package resourcetest

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/jinzhu/inflection"
	"github.com/karagenc/fj4echo"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/xompass/remote-association/helpers"
	"github.com/xompass/remote-association/resource"
)

type Server struct {
	URL string

	// Wrap nests every returned object under its element name,
	// e.g. {"profile": {...}}.
	Wrap bool

	echo       *echo.Echo
	httpServer *httptest.Server

	mu          sync.Mutex
	collections map[string][]resource.Object
	failures    map[string]int
	queries     map[string][]string
}

func NewServer() *Server {
	s := &Server{
		collections: map[string][]resource.Object{},
		failures:    map[string]int{},
		queries:     map[string][]string{},
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.JSONSerializer = fj4echo.New()
	e.GET("/*", s.serve)

	s.echo = e
	s.httpServer = httptest.NewServer(e)
	s.URL = s.httpServer.URL
	return s
}

func (s *Server) Close() {
	s.httpServer.Close()
}

// Set replaces the objects of a collection. Custom scopes are addressed as
// "<collection>/<scope>".
func (s *Server) Set(collection string, objects ...resource.Object) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = objects
}

// Fail makes every request to collection answer with status.
func (s *Server) Fail(collection string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[collection] = status
}

// Requests returns how many requests collection received.
func (s *Server) Requests(collection string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queries[collection])
}

// Queries returns the raw query strings collection received, in order.
func (s *Server) Queries(collection string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries[collection]...)
}

func (s *Server) TotalRequests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, queries := range s.queries {
		total += len(queries)
	}
	return total
}

func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = map[string][]string{}
}

func (s *Server) serve(c echo.Context) error {
	path := strings.TrimPrefix(c.Request().URL.Path, "/")
	path = strings.TrimSuffix(path, ".json")
	element := inflection.Singular(strings.Split(path, "/")[0])

	s.mu.Lock()
	s.queries[path] = append(s.queries[path], c.Request().URL.RawQuery)
	status, failing := s.failures[path]
	objects, exists := s.collections[path]
	s.mu.Unlock()

	if failing {
		return c.JSON(status, map[string]any{"message": http.StatusText(status)})
	}
	if !exists {
		return c.JSON(http.StatusNotFound, map[string]any{"message": "not found"})
	}

	matched := filter(objects, c.QueryParams())

	body := make([]any, 0, len(matched))
	for _, object := range matched {
		if s.Wrap {
			body = append(body, map[string]any{element: object})
		} else {
			body = append(body, object)
		}
	}
	return c.JSON(http.StatusOK, body)
}

// filter keeps the objects matching every query parameter. The field of a
// parameter is its innermost bracket segment without an "_in" suffix, so
// user_id[], search[user_id_in][] and search[user_id] all filter user_id.
func filter(objects []resource.Object, params url.Values) []resource.Object {
	var matched []resource.Object
	for _, object := range objects {
		if matchesAll(object, params) {
			matched = append(matched, object)
		}
	}
	return matched
}

func matchesAll(object resource.Object, params url.Values) bool {
	for key, values := range params {
		field := fieldOf(key)
		actual := object.Get(field)
		if actual == nil {
			return false
		}

		found := false
		for _, value := range values {
			if value != "" && helpers.KeyOf(actual) == value {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func fieldOf(key string) string {
	key = strings.TrimSuffix(key, "[]")
	if open := strings.LastIndex(key, "["); open >= 0 {
		key = strings.TrimSuffix(key[open+1:], "]")
	}
	return strings.TrimSuffix(key, "_in")
}
