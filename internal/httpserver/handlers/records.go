package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/storage"
	"github.com/MrSnakeDoc/stash/internal/transport"
)

// ListRecords pages through the collection.
// Query: page, pageSize, sort, order.
func ListRecords(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := queryInt(r, "page")
		if err != nil {
			writeErr(w, d, err)
			return
		}
		size, err := queryInt(r, "pageSize")
		if err != nil {
			writeErr(w, d, err)
			return
		}
		q := r.URL.Query()
		dispatch(w, r, d, transport.GetRecords{ListOptions: storage.ListOptions{
			Page:      page,
			PageSize:  size,
			SortField: storage.SortField(q.Get("sort")),
			SortOrder: storage.SortOrder(q.Get("order")),
		}})
	}
}

func GetRecord(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dispatch(w, r, d, transport.GetRecord{ID: chi.URLParam(r, "id")})
	}
}

type tagsBody struct {
	Tags []string `json:"tags"`
}

// UpdateTags replaces the manual tags of one record.
func UpdateTags(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body tagsBody
		if err := decodeBody(w, r, d, &body); err != nil {
			writeErr(w, d, err)
			return
		}
		dispatch(w, r, d, transport.UpdateTags{ID: chi.URLParam(r, "id"), Tags: body.Tags})
	}
}

// DeleteRecord hard-deletes a record, or marks it unavailable with
// ?soft=true.
func DeleteRecord(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		soft, err := queryBool(r, "soft")
		if err != nil {
			writeErr(w, d, err)
			return
		}
		dispatch(w, r, d, transport.DeleteRecord{
			ID:   chi.URLParam(r, "id"),
			Soft: soft != nil && *soft,
		})
	}
}

func BulkUpdateTags(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transport.BulkUpdateTags
		if err := decodeBody(w, r, d, &req); err != nil {
			writeErr(w, d, err)
			return
		}
		dispatch(w, r, d, req)
	}
}

func DeleteRecords(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transport.DeleteRecords
		if err := decodeBody(w, r, d, &req); err != nil {
			writeErr(w, d, err)
			return
		}
		dispatch(w, r, d, req)
	}
}
