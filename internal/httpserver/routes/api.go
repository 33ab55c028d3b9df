package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/httpserver/handlers"
	"github.com/MrSnakeDoc/stash/internal/httpserver/mw"
)

func init() { RegisterAPI(registerAPI) }

func registerAPI(r chi.Router, d deps.Deps) {
	r = r.With(mw.AllowOnlyCIDRS(d.AllowedCIDRS, d.TrustProxy, d.Logger), mw.EnforceHost(d.AllowedHosts, d.Logger))
	write := r.With(mw.RateLimit(mw.RateLimitConfig{
		Burst:             d.RateLimitBurst,
		RefillPerIPPerMin: d.RateLimitPerMin,
		MaxEntries:        d.RateLimitEntries,
		TrustProxy:        d.TrustProxy,
	}))

	write.Post("/messages", handlers.Messages(d))
	write.Post("/capture", handlers.Capture(d))
	write.Post("/capture/snapshot", handlers.CaptureSnapshot(d))

	r.Get("/records", handlers.ListRecords(d))
	r.Get("/records/{id}", handlers.GetRecord(d))
	write.Put("/records/{id}/tags", handlers.UpdateTags(d))
	write.Delete("/records/{id}", handlers.DeleteRecord(d))
	write.Post("/records/tags", handlers.BulkUpdateTags(d))
	write.Post("/records/delete", handlers.DeleteRecords(d))

	r.Get("/search", handlers.Search(d))
	r.Get("/stats", handlers.Stats(d))
	r.Get("/export", handlers.Export(d))
	write.Post("/import/{format}", handlers.Import(d))
	write.Post("/sync", handlers.Sync(d))
}
