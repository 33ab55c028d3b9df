package transport

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/importer"
)

// Error codes carried in a failed Response.
const (
	CodeNotFound = "not_found"
	CodeInvalid  = "invalid"
	CodeInternal = "internal"
)

// Response is the answer to every Request.
type Response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    string          `json:"code,omitempty"`
}

// OK wraps data in a successful Response.
func OK(data any) Response {
	if data == nil {
		return Response{Success: true}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return Fail(fmt.Errorf("encode response: %w", err))
	}
	return Response{Success: true, Data: b}
}

// Fail converts err into a failed Response.
func Fail(err error) Response {
	return Response{Success: false, Error: err.Error(), Code: CodeOf(err)}
}

// CodeOf classifies err.
func CodeOf(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, domain.ErrInvalidPost),
		errors.Is(err, domain.ErrInvalidRequest),
		errors.Is(err, importer.ErrMalformed):
		return CodeInvalid
	default:
		return CodeInternal
	}
}

// Err turns a failed Response back into an error that matches the
// sentinel for its code.
func (r Response) Err() error {
	if r.Success {
		return nil
	}
	switch r.Code {
	case CodeNotFound:
		return fmt.Errorf("%s: %w", r.Error, domain.ErrNotFound)
	case CodeInvalid:
		return fmt.Errorf("%s: %w", r.Error, domain.ErrInvalidRequest)
	default:
		return errors.New(r.Error)
	}
}

// Decode unmarshals the payload of a successful Response into v.
func (r Response) Decode(v any) error {
	if err := r.Err(); err != nil {
		return err
	}
	if len(r.Data) == 0 {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}

// SaveResult is the payload of SAVE_POST. Record is nil for a duplicate.
type SaveResult struct {
	Record    *domain.StoredRecord `json:"record"`
	Duplicate bool                 `json:"duplicate"`
}

// DeleteResult is the payload of DELETE_RECORDS.
type DeleteResult struct {
	Deleted int `json:"deleted"`
}
