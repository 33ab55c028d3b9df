package handlers

import (
	"fmt"
	"net/http"

	"github.com/MrSnakeDoc/stash/internal/capture"
	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/transport"
)

// Capture stores an already extracted post.
func Capture(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var post domain.CanonicalPost
		if err := decodeBody(w, r, d, &post); err != nil {
			writeErr(w, d, err)
			return
		}
		dispatch(w, r, d, transport.SavePost{Post: &post})
	}
}

// CaptureSnapshot runs the capture pipeline on a page snapshot and
// answers with the outcome notification. A failed capture is a 422.
func CaptureSnapshot(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var snap capture.Snapshot
		if err := decodeBody(w, r, d, &snap); err != nil {
			writeErr(w, d, err)
			return
		}
		if snap.HTML == "" {
			writeErr(w, d, fmt.Errorf("snapshot without html: %w", domain.ErrInvalidRequest))
			return
		}

		out := d.Capture.HandleSnapshot(r.Context(), snap)
		d.Logger.Debug("snapshot handled",
			logger.String("status", string(out.Status)),
			logger.String("url", snap.URL))

		if out.Status == capture.StatusFailed {
			resp := transport.OK(out)
			resp.Success = false
			resp.Error = out.Message
			resp.Code = transport.CodeInvalid
			writeResponse(w, d, http.StatusUnprocessableEntity, resp)
			return
		}
		writeOK(w, d, out)
	}
}
