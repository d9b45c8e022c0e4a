package handlers

import (
	"context"
	"net/http"
	"time"

	"homedeck/internal/db"
	applog "homedeck/internal/log"
)

type healthResponse struct {
	Status   string    `json:"status"`
	Database string    `json:"database,omitempty"`
	Time     time.Time `json:"time"`
}

// Health is a readiness handler suitable for infrastructure probes. It
// reports degraded when the database does not answer.
func Health(w http.ResponseWriter, r *http.Request) {
	applog.Debug(r.Context(), "health check requested", "method", r.Method)
	resp := healthResponse{Status: "ok", Time: time.Now().UTC()}
	status := http.StatusOK

	if database != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		resp.Database = "ok"
		if err := db.Ping(ctx, database); err != nil {
			applog.Warn(r.Context(), "database health check failed", "error", err)
			resp.Status = "degraded"
			resp.Database = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, status, resp)
}
