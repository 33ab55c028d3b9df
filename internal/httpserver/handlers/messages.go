package handlers

import (
	"io"
	"net/http"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/transport"
)

// Messages accepts a raw {type, data} envelope, so every request kind is
// reachable over HTTP.
func Messages(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(bodyReader(w, r, d))
		if err != nil {
			writeErr(w, d, err)
			return
		}
		req, err := transport.Decode(b)
		if err != nil {
			writeErr(w, d, err)
			return
		}
		dispatch(w, r, d, req)
	}
}
