package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
	"github.com/MrSnakeDoc/stash/internal/logger"
	"github.com/MrSnakeDoc/stash/internal/transport"
)

// DefaultMaxBodyBytes caps request bodies when deps leave it unset.
const DefaultMaxBodyBytes = 10 << 20

// statusFor maps a Response to its HTTP status.
func statusFor(resp transport.Response) int {
	if resp.Success {
		return http.StatusOK
	}
	switch resp.Code {
	case transport.CodeNotFound:
		return http.StatusNotFound
	case transport.CodeInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeResponse(w http.ResponseWriter, d deps.Deps, status int, resp transport.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		d.Logger.Debug("failed to write response", logger.Error(err))
	}
}

func writeOK(w http.ResponseWriter, d deps.Deps, data any) {
	resp := transport.OK(data)
	writeResponse(w, d, statusFor(resp), resp)
}

func writeErr(w http.ResponseWriter, d deps.Deps, err error) {
	resp := transport.Fail(err)
	writeResponse(w, d, statusFor(resp), resp)
}

// dispatch sends req through the configured transport and writes the
// answer.
func dispatch(w http.ResponseWriter, r *http.Request, d deps.Deps, req transport.Request) {
	resp, err := d.Sender.Send(r.Context(), req)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusGatewayTimeout
		}
		d.Logger.Error("request delivery failed",
			logger.String("kind", string(req.Kind())),
			logger.Error(err))
		writeResponse(w, d, status, transport.Response{
			Error: "request could not be delivered",
			Code:  transport.CodeInternal,
		})
		return
	}
	if !resp.Success && resp.Code == transport.CodeInternal {
		d.Logger.Warn("request failed",
			logger.String("kind", string(req.Kind())),
			logger.String("error", resp.Error))
	}
	writeResponse(w, d, statusFor(resp), resp)
}

func bodyReader(w http.ResponseWriter, r *http.Request, d deps.Deps) io.Reader {
	max := d.MaxBodyBytes
	if max <= 0 {
		max = DefaultMaxBodyBytes
	}
	return http.MaxBytesReader(w, r.Body, max)
}

// decodeBody reads a JSON body into v. Every failure is an invalid
// request.
func decodeBody(w http.ResponseWriter, r *http.Request, d deps.Deps, v any) error {
	if err := json.NewDecoder(bodyReader(w, r, d)).Decode(v); err != nil {
		return fmt.Errorf("decode body: %v: %w", err, domain.ErrInvalidRequest)
	}
	return nil
}

func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, domain.ErrInvalidRequest)
	}
	return n, nil
}

func queryBool(r *http.Request, key string) (*bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, fmt.Errorf("%s must be a boolean: %w", key, domain.ErrInvalidRequest)
	}
	return &b, nil
}
