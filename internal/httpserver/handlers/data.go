package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/stash/internal/backup"
	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/syncer"
	"github.com/MrSnakeDoc/stash/internal/transport"
)

func Stats(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dispatch(w, r, d, transport.GetStats{})
	}
}

// Export answers with the full backup document.
func Export(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dispatch(w, r, d, transport.Export{})
	}
}

// Import loads a file in the format named by the path. "backup" restores
// an export; any other format goes through the import adapters, reading
// the body or, with ?url=, fetching a feed.
func Import(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format := strings.ToLower(chi.URLParam(r, "format"))

		if format == "backup" {
			doc, err := backup.Decode(bodyReader(w, r, d))
			if err != nil {
				writeErr(w, d, err)
				return
			}
			dispatch(w, r, d, transport.ImportBackup{Backup: doc})
			return
		}

		if u := strings.TrimSpace(r.URL.Query().Get("url")); u != "" {
			dispatch(w, r, d, transport.ImportFile{Format: format, URL: u})
			return
		}

		b, err := io.ReadAll(bodyReader(w, r, d))
		if err != nil {
			writeErr(w, d, err)
			return
		}
		dispatch(w, r, d, transport.ImportFile{Format: format, Content: string(b)})
	}
}

// Sync runs one remote sync now.
func Sync(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if d.Sync == nil {
			writeResponse(w, d, http.StatusServiceUnavailable, transport.Response{
				Error: "remote sync is not configured",
				Code:  transport.CodeInternal,
			})
			return
		}

		res, err := d.Sync.Run(r.Context())
		switch {
		case errors.Is(err, syncer.ErrRunning):
			writeResponse(w, d, http.StatusConflict, transport.Response{
				Error: err.Error(),
				Code:  transport.CodeInvalid,
			})
		case err != nil:
			d.Logger.Error("manual sync failed", logger.Error(err))
			writeErr(w, d, err)
		default:
			writeOK(w, d, res)
		}
	}
}
