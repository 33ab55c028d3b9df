// Package transport carries requests between capture clients, the HTTP
// API and the storage engine. The set of request kinds is closed.
package transport

import (
	"encoding/json"
	"fmt"

	"github.com/MrSnakeDoc/stash/internal/backup"
	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/storage"
)

// Kind names a request on the wire.
type Kind string

const (
	KindSavePost          Kind = "SAVE_POST"
	KindGetRecords        Kind = "GET_RECORDS"
	KindGetRecord         Kind = "GET_RECORD"
	KindSearch            Kind = "SEARCH"
	KindFilter            Kind = "FILTER"
	KindUpdateTags        Kind = "UPDATE_TAGS"
	KindBulkUpdateTags    Kind = "BULK_UPDATE_TAGS"
	KindDeleteRecord      Kind = "DELETE_RECORD"
	KindDeleteRecords     Kind = "DELETE_RECORDS"
	KindClearAll          Kind = "CLEAR_ALL"
	KindGetStats          Kind = "GET_STATS"
	KindExport            Kind = "EXPORT"
	KindImportBackup      Kind = "IMPORT_BACKUP"
	KindImportFile        Kind = "IMPORT_FILE"
	KindGetCategories     Kind = "GET_CATEGORIES"
	KindSaveCategories    Kind = "SAVE_CATEGORIES"
	KindGetSavedSearches  Kind = "GET_SAVED_SEARCHES"
	KindSaveSearch        Kind = "SAVE_SEARCH"
	KindDeleteSavedSearch Kind = "DELETE_SAVED_SEARCH"
	KindGetSettings       Kind = "GET_SETTINGS"
	KindSaveSettings      Kind = "SAVE_SETTINGS"
)

// Kinds lists every request kind.
func Kinds() []Kind {
	return []Kind{
		KindSavePost, KindGetRecords, KindGetRecord, KindSearch, KindFilter,
		KindUpdateTags, KindBulkUpdateTags, KindDeleteRecord, KindDeleteRecords,
		KindClearAll, KindGetStats, KindExport, KindImportBackup, KindImportFile,
		KindGetCategories, KindSaveCategories, KindGetSavedSearches, KindSaveSearch,
		KindDeleteSavedSearch, KindGetSettings, KindSaveSettings,
	}
}

// Request is implemented only by the types in this file.
type Request interface {
	Kind() Kind
	sealed()
}

type request struct{}

func (request) sealed() {}

// ─────────────────────────────
// Records
// ─────────────────────────────

type SavePost struct {
	request
	Post *domain.CanonicalPost `json:"post"`
}

type GetRecords struct {
	request
	storage.ListOptions
}

type GetRecord struct {
	request
	ID string `json:"id"`
}

type Search struct {
	request
	storage.SearchRequest
}

type Filter struct {
	request
	Filters domain.FilterSpec `json:"filters"`
}

type UpdateTags struct {
	request
	ID   string   `json:"id"`
	Tags []string `json:"tags"`
}

type BulkUpdateTags struct {
	request
	IDs    []string `json:"ids"`
	Add    []string `json:"add"`
	Remove []string `json:"remove"`
}

// DeleteRecord hard-deletes unless Soft is set, in which case the record
// is only marked unavailable and left for the garbage collector.
type DeleteRecord struct {
	request
	ID   string `json:"id"`
	Soft bool   `json:"soft,omitempty"`
}

type DeleteRecords struct {
	request
	IDs []string `json:"ids"`
}

type ClearAll struct{ request }

type GetStats struct{ request }

// ─────────────────────────────
// Import / export
// ─────────────────────────────

type Export struct{ request }

type ImportBackup struct {
	request
	Backup *backup.Document `json:"backup"`
}

// ImportFile parses Content with the named adapter. For feeds, URL may be
// given instead of Content and the feed is downloaded.
type ImportFile struct {
	request
	Format  string `json:"format"`
	Content string `json:"content,omitempty"`
	URL     string `json:"url,omitempty"`
}

// ─────────────────────────────
// Meta
// ─────────────────────────────

type GetCategories struct{ request }

type SaveCategories struct {
	request
	Categories []domain.Category `json:"categories"`
}

type GetSavedSearches struct{ request }

type SaveSearch struct {
	request
	Search domain.SavedSearch `json:"search"`
}

type DeleteSavedSearch struct {
	request
	ID string `json:"id"`
}

type GetSettings struct{ request }

type SaveSettings struct {
	request
	Settings domain.Settings `json:"settings"`
}

func (SavePost) Kind() Kind          { return KindSavePost }
func (GetRecords) Kind() Kind        { return KindGetRecords }
func (GetRecord) Kind() Kind         { return KindGetRecord }
func (Search) Kind() Kind            { return KindSearch }
func (Filter) Kind() Kind            { return KindFilter }
func (UpdateTags) Kind() Kind        { return KindUpdateTags }
func (BulkUpdateTags) Kind() Kind    { return KindBulkUpdateTags }
func (DeleteRecord) Kind() Kind      { return KindDeleteRecord }
func (DeleteRecords) Kind() Kind     { return KindDeleteRecords }
func (ClearAll) Kind() Kind          { return KindClearAll }
func (GetStats) Kind() Kind          { return KindGetStats }
func (Export) Kind() Kind            { return KindExport }
func (ImportBackup) Kind() Kind      { return KindImportBackup }
func (ImportFile) Kind() Kind        { return KindImportFile }
func (GetCategories) Kind() Kind     { return KindGetCategories }
func (SaveCategories) Kind() Kind    { return KindSaveCategories }
func (GetSavedSearches) Kind() Kind  { return KindGetSavedSearches }
func (SaveSearch) Kind() Kind        { return KindSaveSearch }
func (DeleteSavedSearch) Kind() Kind { return KindDeleteSavedSearch }
func (GetSettings) Kind() Kind       { return KindGetSettings }
func (SaveSettings) Kind() Kind      { return KindSaveSettings }

// ─────────────────────────────
// Envelope
// ─────────────────────────────

// Envelope is the wire form of a Request.
type Envelope struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

func decodeAs[T Request](raw json.RawMessage) (Request, error) {
	var v T
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, err
		}
	}
	return v, nil
}

var decoders = map[Kind]func(json.RawMessage) (Request, error){
	KindSavePost:          decodeAs[SavePost],
	KindGetRecords:        decodeAs[GetRecords],
	KindGetRecord:         decodeAs[GetRecord],
	KindSearch:            decodeAs[Search],
	KindFilter:            decodeAs[Filter],
	KindUpdateTags:        decodeAs[UpdateTags],
	KindBulkUpdateTags:    decodeAs[BulkUpdateTags],
	KindDeleteRecord:      decodeAs[DeleteRecord],
	KindDeleteRecords:     decodeAs[DeleteRecords],
	KindClearAll:          decodeAs[ClearAll],
	KindGetStats:          decodeAs[GetStats],
	KindExport:            decodeAs[Export],
	KindImportBackup:      decodeAs[ImportBackup],
	KindImportFile:        decodeAs[ImportFile],
	KindGetCategories:     decodeAs[GetCategories],
	KindSaveCategories:    decodeAs[SaveCategories],
	KindGetSavedSearches:  decodeAs[GetSavedSearches],
	KindSaveSearch:        decodeAs[SaveSearch],
	KindDeleteSavedSearch: decodeAs[DeleteSavedSearch],
	KindGetSettings:       decodeAs[GetSettings],
	KindSaveSettings:      decodeAs[SaveSettings],
}

// Encode wraps req in an Envelope.
func Encode(req Request) ([]byte, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", req.Kind(), err)
	}
	return json.Marshal(Envelope{Type: req.Kind(), Data: data})
}

// Decode parses an Envelope into its typed Request.
func Decode(b []byte) (Request, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %v: %w", err, domain.ErrInvalidRequest)
	}
	return env.Request()
}

// Request returns the typed request carried by e.
func (e Envelope) Request() (Request, error) {
	dec, ok := decoders[e.Type]
	if !ok {
		return nil, fmt.Errorf("unknown request type %q: %w", e.Type, domain.ErrInvalidRequest)
	}
	req, err := dec(e.Data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %v: %w", e.Type, err, domain.ErrInvalidRequest)
	}
	return req, nil
}
