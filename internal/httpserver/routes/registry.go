package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
)

type (
	Registrar  func(r chi.Router, d deps.Deps)
	Middleware = func(http.Handler) http.Handler
)

type entry struct {
	reg Registrar
	mws []Middleware
	api bool
}

var registry []entry

// Register a root-level registrar with optional per-route middlewares.
func Register(reg Registrar, mws ...Middleware) {
	registry = append(registry, entry{reg: reg, mws: mws})
}

// RegisterAPI registers routes mounted under /api.
func RegisterAPI(reg Registrar, mws ...Middleware) {
	registry = append(registry, entry{reg: reg, mws: mws, api: true})
}

// RegisterAll mounts every registrar. Called once from server.New().
func RegisterAll(r chi.Router, d deps.Deps) {
	mount := func(r chi.Router, e entry) {
		if len(e.mws) == 0 {
			e.reg(r, d)
			return
		}
		e.reg(r.With(e.mws...), d)
	}

	for _, e := range registry {
		if !e.api {
			mount(r, e)
		}
	}
	r.Route("/api", func(api chi.Router) {
		for _, e := range registry {
			if e.api {
				mount(api, e)
			}
		}
	})
}
