package guard

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Meta es la metadata de autorización declarada por ruta.
type Meta struct {
	RequiresAuth      bool `json:"requiresAuth,omitempty" yaml:"requires_auth"`
	RequiresSuperuser bool `json:"requiresSuperuser,omitempty" yaml:"requires_superuser"`
}

// normalize aplica requiresSuperuser => requiresAuth.
func (m Meta) normalize() Meta {
	if m.RequiresSuperuser {
		m.RequiresAuth = true
	}
	return m
}

// Route es una entrada de la tabla de navegación. Pattern usa la sintaxis de chi.
type Route struct {
	Name    string `json:"name" yaml:"name"`
	Pattern string `json:"path" yaml:"path"`
	Meta    Meta   `json:"meta" yaml:"meta"`
}

// Nombres de las rutas por defecto.
const (
	RouteHome       = "home"
	RouteLogin      = "login"
	RouteRegister   = "register"
	RouteCalendar   = "calendar"
	RouteAdmin      = "admin"
	RouteUserDetail = "user-detail"
	RouteNotFound   = "not-found"
)

// DefaultRoutes es la tabla de navegación de la aplicación.
func DefaultRoutes() []Route {
	return []Route{
		{Name: RouteHome, Pattern: "/"},
		{Name: RouteCalendar, Pattern: "/calendar", Meta: Meta{RequiresAuth: true}},
		{Name: "contact", Pattern: "/contact"},
		{Name: "kawa", Pattern: "/kawa"},
		{Name: "stage", Pattern: "/stage"},
		{Name: RouteRegister, Pattern: "/register"},
		{Name: RouteLogin, Pattern: "/login"},
		{Name: RouteUserDetail, Pattern: "/users/{id}"},
		{Name: RouteAdmin, Pattern: "/admin", Meta: Meta{RequiresSuperuser: true}},
		{Name: RouteNotFound, Pattern: "/*"},
	}
}

// table resuelve paths a rutas usando el árbol de chi.
type table struct {
	mux       *chi.Mux
	byPattern map[string]Route
	routes    []Route
}

func newTable(routes []Route) *table {
	t := &table{
		mux:       chi.NewRouter(),
		byPattern: make(map[string]Route, len(routes)),
	}
	noop := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	for _, r := range routes {
		r.Meta = r.Meta.normalize()
		if _, dup := t.byPattern[r.Pattern]; dup {
			continue
		}
		t.byPattern[r.Pattern] = r
		t.routes = append(t.routes, r)
		t.mux.Get(r.Pattern, noop)
	}
	return t
}

// resolve devuelve la ruta que matchea path y sus parámetros.
func (t *table) resolve(path string) (Route, map[string]string, bool) {
	rctx := chi.NewRouteContext()
	if !t.mux.Match(rctx, http.MethodGet, path) {
		return Route{}, nil, false
	}
	r, ok := t.byPattern[rctx.RoutePattern()]
	if !ok {
		return Route{}, nil, false
	}
	params := make(map[string]string, len(rctx.URLParams.Keys))
	for i, k := range rctx.URLParams.Keys {
		params[k] = rctx.URLParams.Values[i]
	}
	return r, params, true
}
