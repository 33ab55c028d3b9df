package mw

import (
	"encoding/json"
	"net/http"

	"github.com/MrSnakeDoc/stash/internal/transport"
)

// deny writes a failed envelope so API clients always get the same shape.
func deny(w http.ResponseWriter, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(transport.Response{
		Error: http.StatusText(status),
		Code:  transport.CodeInvalid,
	})
}
