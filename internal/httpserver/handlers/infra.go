package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/MrSnakeDoc/stash/internal/httpserver/deps"
)

type componentStatus struct {
	OK     bool   `json:"ok"`
	Mode   string `json:"mode,omitempty"`
	Impact string `json:"impact,omitempty"`
	Error  string `json:"error,omitempty"`
}

type infraResponse struct {
	Status     string                     `json:"status"`
	Components map[string]componentStatus `json:"components"`
}

// Infra reports the state of every backing component.
func Infra(d deps.Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		components := map[string]componentStatus{
			"store":      checkStore(ctx, d),
			"transport":  checkTransport(d),
			"categories": checkCategories(d),
			"sync":       checkSync(d),
		}
		if d.RedisClient != nil {
			components["redis"] = checkRedis(ctx, d)
		}

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(infraResponse{
			Status:     overallStatus(components),
			Components: components,
		})
	}
}

func overallStatus(components map[string]componentStatus) string {
	if store, ok := components["store"]; ok && !store.OK {
		return "critical"
	}
	for _, c := range components {
		if !c.OK {
			return "degraded"
		}
	}
	return "ok"
}

func checkStore(ctx context.Context, d deps.Deps) componentStatus {
	if d.Store == nil {
		return componentStatus{OK: false, Error: "not initialized"}
	}
	if err := d.Store.Ping(ctx); err != nil {
		return componentStatus{OK: false, Mode: d.StoreKind, Impact: "captures-failing", Error: err.Error()}
	}
	return componentStatus{OK: true, Mode: d.StoreKind}
}

func checkRedis(ctx context.Context, d deps.Deps) componentStatus {
	if err := d.RedisClient.Ping(ctx).Err(); err != nil {
		return componentStatus{OK: false, Mode: "degraded", Error: "timeout"}
	}
	return componentStatus{OK: true, Mode: "optimal"}
}

func checkTransport(d deps.Deps) componentStatus {
	if d.NATSConn == nil {
		return componentStatus{OK: true, Mode: "local"}
	}
	if st := d.NATSConn.Status(); st != nats.CONNECTED {
		return componentStatus{OK: false, Mode: "nats", Impact: "requests-failing", Error: st.String()}
	}
	return componentStatus{OK: true, Mode: "nats"}
}

func checkCategories(d deps.Deps) componentStatus {
	if d.CategoryFile == "" {
		return componentStatus{OK: true, Mode: "api"}
	}
	return componentStatus{OK: true, Mode: "file"}
}

func checkSync(d deps.Deps) componentStatus {
	if d.Sync == nil {
		return componentStatus{OK: true, Mode: "disabled"}
	}
	return componentStatus{OK: true, Mode: "remote"}
}
